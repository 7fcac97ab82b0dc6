package fixture

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/rng"
)

const (
	defaultScriptTimeout = 2 * time.Second
	defaultMaxCommands   = 10000
	maxScriptLogs        = 500
)

// Script generates a fixture from JavaScript. The script sees:
//
//	seed          the fixture seed
//	rn2(n)        draws from an ISAAC64 generator seeded with seed
//	emit(cmd)     appends a command such as "move e" or "dig n"
//	options       an object copied into the fixture options when the script ends
//	log(...)      writes to the generator log (console.log is an alias)
//
// A script may also define generate(), which is called after the top level
// has run.
type Script struct {
	Source      string
	Timeout     time.Duration
	MaxCommands int
}

// Result is a generated fixture plus the script's log output.
type Result struct {
	Fixture *Fixture
	Logs    []string
}

type generator struct {
	runtime  *goja.Runtime
	gen      *rng.Isaac64
	commands []engine.Command
	logs     []string
	max      int
}

// Generate runs the script for one seed. The same source and seed always
// produce the same commands.
func (s Script) Generate(name string, seed uint64) (*Result, error) {
	g := &generator{
		runtime: goja.New(),
		gen:     rng.New(seed),
		max:     s.MaxCommands,
	}
	if g.max <= 0 {
		g.max = defaultMaxCommands
	}
	g.install(seed)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}
	err := g.runWithTimeout(timeout, func() error {
		if _, err := g.runtime.RunString(s.Source); err != nil {
			return fmt.Errorf("script: %w", err)
		}
		if fn, ok := goja.AssertFunction(g.runtime.Get("generate")); ok {
			if _, err := fn(goja.Undefined()); err != nil {
				return fmt.Errorf("script: generate(): %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f := &Fixture{Name: name, Seed: seed, Commands: g.commands}
	if err := g.exportOptions(&f.Options); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Result{Fixture: f, Logs: g.logs}, nil
}

func (g *generator) install(seed uint64) {
	rt := g.runtime
	rt.Set("seed", seed)
	rt.Set("options", rt.NewObject())

	rt.Set("rn2", func(call goja.FunctionCall) goja.Value {
		n := int(call.Argument(0).ToInteger())
		return rt.ToValue(g.gen.Rn2(n))
	})

	rt.Set("emit", func(call goja.FunctionCall) goja.Value {
		text := call.Argument(0).String()
		cmd, err := engine.ParseCommand(text)
		if err != nil {
			panic(rt.NewTypeError(err.Error()))
		}
		if len(g.commands) >= g.max {
			panic(rt.NewGoError(fmt.Errorf("more than %d commands", g.max)))
		}
		g.commands = append(g.commands, cmd)
		return goja.Undefined()
	})

	rt.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if len(g.logs) >= maxScriptLogs {
			g.logs = g.logs[1:]
		}
		g.logs = append(g.logs, strings.Join(parts, " "))
		return goja.Undefined()
	})
	console := rt.NewObject()
	_ = console.Set("log", rt.Get("log"))
	rt.Set("console", console)

	rt.Set("require", goja.Undefined())
	rt.Set("eval", goja.Undefined())
	rt.Set("Function", goja.Undefined())
}

func (g *generator) exportOptions(out *engine.Options) error {
	v := g.runtime.Get("options")
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	data, err := json.Marshal(v.Export())
	if err != nil {
		return fmt.Errorf("script: options: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("script: options: %w", err)
	}
	return nil
}

func (g *generator) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		g.runtime.Interrupt("script execution timeout")
		if err := <-done; err != nil {
			return fmt.Errorf("script timed out: %w", err)
		}
		return fmt.Errorf("script timed out")
	}
}
