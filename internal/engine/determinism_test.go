package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/nh-parity-go/internal/world"
)

var script = []string{
	"move e", "move e", "move e", "move n", "search", "move n", "move n",
	"move w", "rest", "dig n", "dig n", "dig n", "move s", "pickup", "rest",
	"move e", "move e", "move e", "move e", "search", "search",
}

func playScript(t *testing.T, seed uint64) *Session {
	t.Helper()
	cmds, err := ParseCommands(script)
	require.NoError(t, err)

	s := newSession(t, seed, Options{Trace: true})
	for _, c := range cmds {
		if _, err := s.Submit(c); err != nil {
			if errors.Is(err, ErrSessionEnded) {
				break
			}
			require.ErrorIs(t, err, ErrIllegalCommand)
		}
	}
	return s
}

func TestReplayIsDeterministic(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42, 12345} {
		a := playScript(t, seed)
		b := playScript(t, seed)

		assert.Equal(t, a.State.Turn, b.State.Turn)
		assert.Equal(t, a.State.RNG.Checksum(), b.State.RNG.Checksum())
		assert.Equal(t, a.State.RNG.Trace(), b.State.RNG.Trace())
		assert.Equal(t, *a.State.Player, *b.State.Player)
		assert.Equal(t, a.Phase(), b.Phase())

		la, lb := a.State.Level(), b.State.Level()
		for y := 0; y < la.Height; y++ {
			assert.Equal(t, la.Row(y), lb.Row(y))
		}
		ma, mb := a.State.Dungeon.Monsters(), b.State.Dungeon.Monsters()
		require.Equal(t, len(ma), len(mb))
		for i := range ma {
			assert.Equal(t, *ma[i], *mb[i])
		}
	}
}

func TestSameCommandSameDraws(t *testing.T) {
	opts := Options{
		Map:      roomMap,
		Trace:    true,
		Monsters: []MonsterSpec{{Species: "newt", At: world.Coord{X: 6, Y: 5}}, {Species: "kobold", At: world.Coord{X: 8, Y: 3}}},
	}
	a := newSession(t, 77, opts)
	b := newSession(t, 77, opts)

	for i := 0; i < 5; i++ {
		oa, ea := a.Submit(Move(world.East))
		ob, eb := b.Submit(Move(world.East))
		assert.Equal(t, ea, eb)
		assert.Equal(t, oa.Draws, ob.Draws)

		ta, tb := a.State.RNG.DrainTrace(), b.State.RNG.DrainTrace()
		require.Equal(t, len(ta), len(tb))
		for j := range ta {
			assert.Equal(t, ta[j].Site, tb[j].Site)
			assert.Equal(t, ta[j].Raw, tb[j].Raw)
		}
	}
}

func TestMonstersActInIDOrder(t *testing.T) {
	// Both species have speed 12, so each acts exactly once per turn: the
	// sleeping jackal rolls to wake and the grid bug next to the player
	// attacks. Whichever was created first must draw first.
	jackal := MonsterSpec{Species: "jackal", At: world.Coord{X: 8, Y: 2}, Asleep: true}
	bug := MonsterSpec{Species: "grid bug", At: world.Coord{X: 5, Y: 4}}

	tests := []struct {
		name     string
		monsters []MonsterSpec
		want     []string
	}{
		{"jackal first", []MonsterSpec{jackal, bug}, []string{"mon.wake", "mhitu.tohit"}},
		{"grid bug first", []MonsterSpec{bug, jackal}, []string{"mhitu.tohit", "mon.wake"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, 31, Options{Map: roomMap, Bare: true, Trace: true, Monsters: tt.monsters})
			gs := s.State

			first, ok := gs.Dungeon.MonsterAt(gs.Player.Level, tt.monsters[0].At)
			require.True(t, ok)
			second, ok := gs.Dungeon.MonsterAt(gs.Player.Level, tt.monsters[1].At)
			require.True(t, ok)
			require.Less(t, first.ID, second.ID)

			_, err := s.Submit(Rest())
			require.NoError(t, err)

			var sites []string
			for _, e := range gs.RNG.Trace() {
				if e.Site == "mon.wake" || e.Site == "mhitu.tohit" {
					sites = append(sites, e.Site)
				}
			}
			assert.Equal(t, tt.want, sites)
		})
	}
}
