// Package fixture loads and saves replay fixtures: a seed, starting options,
// a command list and optional expected checkpoints.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
)

var (
	ErrInvalid     = errors.New("invalid fixture")
	ErrUnsupported = errors.New("unsupported fixture format")
)

// Fixture is one scripted game.
type Fixture struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Seed        uint64           `yaml:"seed" json:"seed"`
	Options     engine.Options   `yaml:"options,omitempty" json:"options,omitempty"`
	Commands    []engine.Command `yaml:"commands" json:"commands"`
	// Checkpoints are expected states recorded from a reference engine.
	Checkpoints []Checkpoint `yaml:"checkpoints,omitempty" json:"checkpoints,omitempty"`

	// Path is where the fixture was loaded from.
	Path string `yaml:"-" json:"-"`
}

// Checkpoint is an expected state after a turn. State may be omitted when
// only the digest was recorded.
type Checkpoint struct {
	Turn   uint64        `yaml:"turn" json:"turn"`
	Digest string        `yaml:"digest,omitempty" json:"digest,omitempty"`
	State  *snapshot.Raw `yaml:"state,omitempty" json:"state,omitempty"`
}

// Validate checks the fields every fixture needs.
func (f *Fixture) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if len(f.Commands) == 0 {
		return fmt.Errorf("%w: %s: no commands", ErrInvalid, f.Name)
	}
	for i, c := range f.Commands {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %s: command %d: %v", ErrInvalid, f.Name, i, err)
		}
	}
	for i := 1; i < len(f.Checkpoints); i++ {
		if f.Checkpoints[i].Turn <= f.Checkpoints[i-1].Turn {
			return fmt.Errorf("%w: %s: checkpoints out of turn order", ErrInvalid, f.Name)
		}
	}
	for _, c := range f.Checkpoints {
		if c.State == nil && c.Digest == "" {
			return fmt.Errorf("%w: %s: checkpoint at turn %d has neither state nor digest", ErrInvalid, f.Name, c.Turn)
		}
	}
	return nil
}

// Checkpoint returns the expected checkpoint for turn.
func (f *Fixture) Checkpoint(turn uint64) (Checkpoint, bool) {
	i := slices.IndexFunc(f.Checkpoints, func(c Checkpoint) bool { return c.Turn == turn })
	if i < 0 {
		return Checkpoint{}, false
	}
	return f.Checkpoints[i], true
}

// Parse decodes a fixture. format is "yaml" or "json".
func Parse(data []byte, format string) (*Fixture, error) {
	var f Fixture
	var err error
	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	case "json":
		err = json.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, format)
	}
	if err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads a fixture file. The format follows the extension.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	f, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Marshal encodes f in format.
func Marshal(f *Fixture, format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(f)
	case "json":
		return json.MarshalIndent(f, "", "  ")
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, format)
}

// Save writes f to path, creating parent directories.
func Save(f *Fixture, path string) error {
	if err := f.Validate(); err != nil {
		return err
	}
	data, err := Marshal(f, formatOf(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	return nil
}

// LoadDir loads every .yaml, .yml and .json fixture in dir, sorted by name.
// Fixture names must be unique.
func LoadDir(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	var out []*Fixture
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isFixtureFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: name %q used by %s and %s", ErrInvalid, f.Name, prev, path)
		}
		seen[f.Name] = path
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *Fixture) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Select keeps fixtures whose name matches any of the glob patterns. No
// patterns keeps everything.
func Select(fs []*Fixture, patterns ...string) ([]*Fixture, error) {
	if len(patterns) == 0 {
		return fs, nil
	}
	var out []*Fixture
	for _, f := range fs {
		for _, p := range patterns {
			ok, err := filepath.Match(p, f.Name)
			if err != nil {
				return nil, fmt.Errorf("fixture: pattern %q: %w", p, err)
			}
			if ok {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

func formatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func isFixtureFile(name string) bool {
	switch formatOf(name) {
	case "yaml", "yml", "json":
		return true
	}
	return false
}
