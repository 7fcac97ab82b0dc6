package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

// ResponsePrefix marks protocol lines on the worker's stdout. Anything else
// the worker prints is ignored.
const ResponsePrefix = "JSON:"

// ProtocolVersion is reported by the hello op.
const ProtocolVersion = "1"

// Ops understood by a worker.
const (
	OpHello = "hello"
	OpReset = "reset"
	OpApply = "apply"
	OpState = "state"
	OpTrace = "trace"
	OpExit  = "exit"
)

// Request is one line sent to a worker.
type Request struct {
	Op      string          `json:"op"`
	Seed    uint64          `json:"seed,omitempty"`
	Options *engine.Options `json:"options,omitempty"`
	Command string          `json:"command,omitempty"`
}

// Response is the payload of one prefixed line from a worker.
type Response struct {
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Version string           `json:"version,omitempty"`
	Step    *Step            `json:"step,omitempty"`
	State   *snapshot.Raw    `json:"state,omitempty"`
	Trace   []rng.TraceEntry `json:"trace,omitempty"`
}

func encodeResponse(r Response) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ResponsePrefix)+len(b)+1)
	out = append(out, ResponsePrefix...)
	out = append(out, b...)
	return append(out, '\n'), nil
}

// decodeResponse parses a line. ok is false for lines that are not protocol
// output.
func decodeResponse(line []byte) (r Response, ok bool, err error) {
	line = bytes.TrimSpace(line)
	payload, found := bytes.CutPrefix(line, []byte(ResponsePrefix))
	if !found {
		return Response{}, false, nil
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return Response{}, true, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return r, true, nil
}
