package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/MJE43/nh-parity-go/internal/engine"
)

// Serve answers worker requests read from in, one JSON object per line, with
// prefixed responses on out. Each reset replaces the current session. Serve
// returns nil on exit or end of input.
func Serve(ctx context.Context, in io.Reader, out io.Writer, o Oracle, logger *slog.Logger) (err error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := bufio.NewWriter(out)
	var sess Session
	defer func() {
		if sess != nil {
			err = multierr.Append(err, sess.Close())
		}
	}()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var req Request
		var resp Response
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			resp = Response{Error: fmt.Sprintf("bad request: %v", err)}
		} else {
			resp = handle(ctx, o, &sess, req)
		}
		if !resp.OK {
			logger.Warn("worker request failed", "op", req.Op, "error", resp.Error)
		}
		line, err := encodeResponse(resp)
		if err != nil {
			return fmt.Errorf("oracle: encode response: %w", err)
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("oracle: write response: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("oracle: write response: %w", err)
		}
		if req.Op == OpExit {
			return nil
		}
	}
	return sc.Err()
}

func handle(ctx context.Context, o Oracle, sess *Session, req Request) Response {
	fail := func(err error) Response { return Response{Error: err.Error()} }

	switch req.Op {
	case OpHello:
		return Response{OK: true, Version: ProtocolVersion}
	case OpExit:
		return Response{OK: true}
	case OpReset:
		if *sess != nil {
			_ = (*sess).Close()
			*sess = nil
		}
		var opts engine.Options
		if req.Options != nil {
			opts = *req.Options
		}
		s, err := o.Start(ctx, req.Seed, opts)
		if err != nil {
			return fail(err)
		}
		*sess = s
		return Response{OK: true}
	}

	if *sess == nil {
		return fail(fmt.Errorf("%s before reset", req.Op))
	}
	switch req.Op {
	case OpApply:
		cmd, err := engine.ParseCommand(req.Command)
		if err != nil {
			return fail(err)
		}
		step, err := (*sess).Apply(ctx, cmd)
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, Step: &step}
	case OpState:
		raw, err := (*sess).ReadState(ctx)
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, State: &raw}
	case OpTrace:
		tr, err := (*sess).Trace(ctx)
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, Trace: tr}
	}
	return fail(fmt.Errorf("unknown op %q", req.Op))
}
