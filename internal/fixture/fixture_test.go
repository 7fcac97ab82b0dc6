package fixture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/snapshot"
	"github.com/MJE43/nh-parity-go/internal/world"
)

func sample() *Fixture {
	return &Fixture{
		Name: "sample",
		Seed: 42,
		Options: engine.Options{
			Monsters: []engine.MonsterSpec{{Species: "newt", At: world.Coord{X: 6, Y: 5}}},
		},
		Commands: []engine.Command{engine.Move(world.East), engine.Dig(world.North), engine.Drop('b'), engine.Rest()},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{"yaml", "json"} {
		t.Run(ext, func(t *testing.T) {
			f := sample()
			gs, err := engine.NewGame(f.Seed, f.Options)
			require.NoError(t, err)
			raw := snapshot.Project(gs)
			f.Checkpoints = []Checkpoint{{Turn: 0, State: &raw, Digest: snapshot.FromRaw(raw).Digest()}}

			path := filepath.Join(dir, "sample."+ext)
			require.NoError(t, Save(f, path))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, path, got.Path)
			assert.Equal(t, f.Name, got.Name)
			assert.Equal(t, f.Seed, got.Seed)
			assert.Equal(t, f.Commands, got.Commands)
			assert.Equal(t, f.Options.Monsters, got.Options.Monsters)
			require.Len(t, got.Checkpoints, 1)
			assert.Equal(t, f.Checkpoints[0].Digest, snapshot.FromRaw(*got.Checkpoints[0].State).Digest())
		})
	}
}

func TestParseYAMLCommands(t *testing.T) {
	src := `
name: parsed
seed: 3
commands: [move e, "dig n", search, pickup, drop a, rest]
`
	f, err := Parse([]byte(src), "yaml")
	require.NoError(t, err)
	require.Len(t, f.Commands, 6)
	assert.Equal(t, engine.Dig(world.North), f.Commands[1])
	assert.Equal(t, engine.Drop('a'), f.Commands[4])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no name", "seed: 1\ncommands: [rest]\n"},
		{"no commands", "name: x\nseed: 1\n"},
		{"bad command", "name: x\ncommands: [fly]\n"},
		{"checkpoint order", "name: x\ncommands: [rest]\ncheckpoints:\n  - {turn: 2, digest: aa}\n  - {turn: 1, digest: bb}\n"},
		{"empty checkpoint", "name: x\ncommands: [rest]\ncheckpoints:\n  - {turn: 2}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "yaml")
			require.Error(t, err)
		})
	}

	_, err := Parse([]byte("name: x\ncommands: [rest]\n"), "toml")
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = Parse([]byte("name: x\ncommands: []\n"), "yaml")
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	b := sample()
	b.Name = "b"
	a := sample()
	a.Name = "a"
	require.NoError(t, Save(b, filepath.Join(dir, "one.yaml")))
	require.NoError(t, Save(a, filepath.Join(dir, "two.json")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	fs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "a", fs[0].Name)
	assert.Equal(t, "b", fs[1].Name)

	sel, err := Select(fs, "a*")
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, "a", sel[0].Name)

	dup := sample()
	dup.Name = "a"
	require.NoError(t, Save(dup, filepath.Join(dir, "three.yml")))
	_, err = LoadDir(dir)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestShippedFixturesLoadAndRun(t *testing.T) {
	fs, err := LoadDir("../../fixtures")
	require.NoError(t, err)
	require.NotEmpty(t, fs)
	for _, f := range fs {
		t.Run(f.Name, func(t *testing.T) {
			s, err := engine.New(f.Seed, f.Options)
			require.NoError(t, err)
			for _, c := range f.Commands {
				_, err := s.Submit(c)
				if err != nil {
					require.True(t, errors.Is(err, engine.ErrIllegalCommand) || errors.Is(err, engine.ErrSessionEnded), err.Error())
				}
			}
			assert.Greater(t, s.State.Turn, uint64(0))
		})
	}
}
