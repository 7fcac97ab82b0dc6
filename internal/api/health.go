package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/nh-parity-go/internal/engine"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	GitCommit     string                 `json:"git_commit,omitempty"`
	BuildTime     string                 `json:"build_time,omitempty"`
	Uptime        string                 `json:"uptime"`
	Checks        map[string]HealthCheck `json:"checks"`
	System        SystemInfo             `json:"system"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	GOMAXPROCS    int    `json:"gomaxprocs"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	MemorySys     uint64 `json:"memory_sys_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// handleHealthCheck reports the database, oracle and severity table checks.
// An unreachable database makes the service unhealthy; a missing oracle only
// degrades it since stored reports can still be browsed.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]HealthCheck{
		"database": s.checkDatabaseHealth(ctx),
		"oracle":   s.checkOracleHealth(ctx),
		"severity": s.checkTableHealth(),
	}

	overall := HealthStatusHealthy
	for name, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy && name == "database":
			overall = HealthStatusUnhealthy
		case c.Status != HealthStatusHealthy && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	statusCode := http.StatusOK
	if overall == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, HealthCheckResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Uptime:        time.Since(s.startTime).String(),
		Checks:        checks,
		System:        getSystemInfo(),
		RequestID:     middleware.GetReqID(r.Context()),
	})
}

// handleReadiness reports whether sweeps can be stored.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	db := s.checkDatabaseHealth(ctx)
	ready := db.Status == HealthStatusHealthy

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}
	s.writeJSON(w, statusCode, map[string]any{
		"ready":          ready,
		"message":        db.Message,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

// handleLiveness answers as long as the process serves requests.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alive":          true,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"uptime":         time.Since(s.startTime).String(),
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

func (s *Server) checkDatabaseHealth(ctx context.Context) HealthCheck {
	start := time.Now()
	status, message := HealthStatusHealthy, "Database connection healthy"
	switch {
	case s.db == nil:
		status, message = HealthStatusUnhealthy, "Database not initialized"
	default:
		if err := s.db.Ping(ctx); err != nil {
			status, message = HealthStatusUnhealthy, fmt.Sprintf("Database ping failed: %v", err)
		}
	}
	return healthCheck(status, message, start)
}

// checkOracleHealth opens and closes one session.
func (s *Server) checkOracleHealth(ctx context.Context) HealthCheck {
	start := time.Now()
	if s.oracle == nil {
		return healthCheck(HealthStatusDegraded, "No oracle configured", start)
	}
	sess, err := s.oracle.Start(ctx, 0, engine.Options{})
	if err != nil {
		return healthCheck(HealthStatusDegraded, fmt.Sprintf("Oracle %s failed to start: %v", s.oracle.Name(), err), start)
	}
	if err := sess.Close(); err != nil {
		return healthCheck(HealthStatusDegraded, fmt.Sprintf("Oracle %s failed to close: %v", s.oracle.Name(), err), start)
	}
	return healthCheck(HealthStatusHealthy, fmt.Sprintf("Oracle %s responding", s.oracle.Name()), start)
}

func (s *Server) checkTableHealth() HealthCheck {
	start := time.Now()
	n := len(s.table.Rules())
	if n == 0 {
		return healthCheck(HealthStatusDegraded, fmt.Sprintf("Severity table has no rules (default %s)", s.table.Default()), start)
	}
	return healthCheck(HealthStatusHealthy, fmt.Sprintf("%d severity rules loaded", n), start)
}

func healthCheck(status HealthStatus, message string, start time.Time) HealthCheck {
	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		MemoryAlloc:   m.Alloc,
		MemorySys:     m.Sys,
		GCCycles:      m.NumGC,
	}
}
