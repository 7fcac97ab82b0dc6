package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/diff"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Event types pushed to live sweep subscribers.
const (
	EventSweepStarted    = "sweep_started"
	EventFixtureFinished = "fixture_finished"
	EventSweepFinished   = "sweep_finished"
)

// Event is the envelope of every message on the live stream.
type Event struct {
	Type    string `json:"type"`
	SweepID string `json:"sweep_id"`
	Payload any    `json:"payload"`
}

// SweepStartedPayload announces a sweep.
type SweepStartedPayload struct {
	Label    string `json:"label,omitempty"`
	Fixtures int    `json:"fixtures"`
}

// FixturePayload summarises one fixture result. Records stay in the store.
type FixturePayload struct {
	Fixture        string                `json:"fixture"`
	Verdict        converge.Verdict      `json:"verdict"`
	Reason         string                `json:"reason,omitempty"`
	Records        int                   `json:"records"`
	Histogram      map[diff.Severity]int `json:"histogram,omitempty"`
	Diverged       bool                  `json:"diverged"`
	DivergenceTurn uint64                `json:"divergence_turn,omitempty"`
	DurationMs     int64                 `json:"duration_ms"`
}

// SweepFinishedPayload closes a sweep.
type SweepFinishedPayload struct {
	Verdict    converge.Verdict         `json:"verdict"`
	ParityRate decimal.Decimal          `json:"parity_rate"`
	Counts     map[converge.Verdict]int `json:"counts"`
	Histogram  map[diff.Severity]int    `json:"histogram"`
	TimedOut   bool                     `json:"timed_out,omitempty"`
}

// Hub fans sweep events out to websocket subscribers. It implements
// converge.Observer; Run must be running for events to be delivered.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	count      atomic.Int64
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

var _ converge.Observer = (*Hub)(nil)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Call Run in its own goroutine.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Clients reports the number of registered subscribers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Run serves registrations and broadcasts until ctx ends, then closes every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.logger.Debug("ws client registered", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("ws client too slow, dropping")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
}

// ServeWS upgrades the request and subscribes the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) publish(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("ws encode event", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast buffer full, event dropped", "type", ev.Type, "sweep_id", ev.SweepID)
	}
}

func (h *Hub) SweepStarted(id, label string, fixtures int) {
	h.publish(Event{Type: EventSweepStarted, SweepID: id, Payload: SweepStartedPayload{Label: label, Fixtures: fixtures}})
}

func (h *Hub) FixtureFinished(sweepID string, r converge.FixtureResult) {
	h.publish(Event{Type: EventFixtureFinished, SweepID: sweepID, Payload: FixturePayload{
		Fixture:        r.Fixture,
		Verdict:        r.Verdict,
		Reason:         r.Reason,
		Records:        len(r.Records),
		Histogram:      r.Histogram,
		Diverged:       r.Diverged,
		DivergenceTurn: r.DivergenceTurn,
		DurationMs:     r.Duration.Milliseconds(),
	}})
}

func (h *Hub) SweepFinished(r *converge.Report) {
	h.publish(Event{Type: EventSweepFinished, SweepID: r.ID, Payload: SweepFinishedPayload{
		Verdict:    r.Verdict,
		ParityRate: r.ParityRate,
		Counts:     r.Counts,
		Histogram:  r.Histogram,
		TimedOut:   r.TimedOut,
	}})
}

// readPump only services control frames; subscribers do not send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("ws read", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
