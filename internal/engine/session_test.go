package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/nh-parity-go/internal/world"
)

var roomMap = []string{
	"            ",
	" |--------| ",
	" |........| ",
	" |........| ",
	" |........| ",
	" |...@....| ",
	" |........| ",
	" |--------| ",
}

var tunnelMap = []string{
	"           ",
	" |---=---| ",
	" |...@     ",
	" |-------| ",
}

func pickAxe() []ObjectSpec { return []ObjectSpec{{Kind: "pick-axe"}} }

func newSession(t *testing.T, seed uint64, opts Options) *Session {
	t.Helper()
	s, err := New(seed, opts)
	require.NoError(t, err)
	return s
}

func TestMoveIntoOpenFloor(t *testing.T) {
	s := newSession(t, 42, Options{Map: roomMap, Bare: true})
	gs := s.State
	require.Equal(t, world.Coord{X: 5, Y: 5}, gs.Player.Pos)

	out, err := s.Submit(Move(world.East))
	require.NoError(t, err)

	assert.Equal(t, world.Coord{X: 6, Y: 5}, gs.Player.Pos)
	assert.Equal(t, uint64(1), gs.Turn)
	assert.Equal(t, uint64(1), out.Turn)
	assert.Zero(t, out.Draws)
	assert.Zero(t, gs.RNG.Calls())
	assert.Equal(t, AwaitingCommand, s.Phase())
}

func TestIllegalCommandsDoNotAdvance(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		cmd  Command
	}{
		{"move into wall without a tool", Options{Map: tunnelMap, Bare: true}, Move(world.North)},
		{"move into rock without a tool", Options{Map: tunnelMap, Bare: true}, Move(world.East)},
		{"dig without a tool", Options{Map: tunnelMap, Bare: true}, Dig(world.East)},
		{"dig into floor", Options{Map: tunnelMap, Bare: true, Objects: pickAxe()}, Dig(world.West)},
		{"dig nondiggable wall", Options{Map: tunnelMap, Bare: true, Objects: pickAxe()}, Dig(world.North)},
		{"dig downward", Options{Map: tunnelMap, Bare: true, Objects: pickAxe()}, Dig(world.Down)},
		{"pick up nothing", Options{Map: roomMap, Bare: true}, PickUp()},
		{"drop missing letter", Options{Map: roomMap, Bare: true}, Drop('q')},
		{"move nowhere", Options{Map: roomMap, Bare: true}, Command{Kind: CmdMove}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, 7, tt.opts)
			before := s.State.Player.Pos

			_, err := s.Submit(tt.cmd)
			require.ErrorIs(t, err, ErrIllegalCommand)

			var ice *IllegalCommandError
			require.ErrorAs(t, err, &ice)
			assert.NotEmpty(t, ice.Reason)

			assert.Zero(t, s.State.Turn)
			assert.Zero(t, s.State.RNG.Calls())
			assert.Equal(t, before, s.State.Player.Pos)
			assert.Equal(t, AwaitingCommand, s.Phase())
		})
	}
}

func TestDigThroughRock(t *testing.T) {
	s := newSession(t, 12345, Options{Map: tunnelMap, Bare: true, Objects: pickAxe()})
	gs := s.State
	target := world.Coord{X: 6, Y: 2}

	prev := digDone + 1
	turns := 0
	for {
		out, err := s.Submit(Dig(world.East))
		require.NoError(t, err)
		turns++
		require.Equal(t, uint64(1), out.Draws, "one effort roll per turn (turn %d)", turns)
		require.Less(t, out.Progress, prev, "progress must strictly decrease")
		prev = out.Progress

		cell, err := gs.Level().Cell(target)
		require.NoError(t, err)
		if out.Progress > 0 {
			require.Equal(t, MultiTurnAction, out.Phase)
			require.Equal(t, world.CellRock, cell.Type)
			continue
		}
		require.Equal(t, AwaitingCommand, out.Phase)
		require.Equal(t, world.CellFloor, cell.Type)
		break
	}

	// Each roll adds at least 12, so rock never takes more than nine turns.
	assert.LessOrEqual(t, turns, 9)
	assert.GreaterOrEqual(t, turns, 4)
	assert.Equal(t, uint64(turns), gs.Turn)
	assert.Equal(t, uint64(turns), gs.RNG.Calls())

	_, err := s.Submit(Move(world.East))
	require.NoError(t, err)
	assert.Equal(t, target, gs.Player.Pos)
}

func TestDigEffortMatchesGenerator(t *testing.T) {
	s := newSession(t, 99, Options{Map: tunnelMap, Bare: true, Objects: pickAxe()})
	shadow := s.State.RNG.Clone()
	p := s.State.Player

	effort := 0
	for s.Phase() != AwaitingCommand || effort == 0 {
		effort += shadow.Rn1(20, 10) + p.ToHitBonus() + p.DamageBonus()
		out, err := s.Submit(Dig(world.East))
		require.NoError(t, err)
		assert.Equal(t, max(0, digDone-effort), out.Progress)
	}
}

func TestAutodigAndResume(t *testing.T) {
	s := newSession(t, 5, Options{Map: tunnelMap, Bare: true, Objects: pickAxe()})

	out, err := s.Submit(Move(world.East))
	require.NoError(t, err)
	require.Equal(t, MultiTurnAction, out.Phase)
	assert.Contains(t, out.Messages, "You start digging.")
	progress := out.Progress

	cmd, ok := s.Occupation()
	require.True(t, ok)
	assert.Equal(t, Dig(world.East), cmd)

	// Resting interrupts the dig; digging again picks up where it stopped.
	out, err = s.Submit(Rest())
	require.NoError(t, err)
	assert.Equal(t, AwaitingCommand, out.Phase)
	assert.Zero(t, s.Progress())

	out, err = s.Submit(Dig(world.East))
	require.NoError(t, err)
	assert.Contains(t, out.Messages, "You continue digging.")
	assert.Less(t, out.Progress, progress)

	for s.Phase() == MultiTurnAction {
		_, err = s.Resume()
		require.NoError(t, err)
	}
	cell, err := s.State.Level().Cell(world.Coord{X: 6, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, world.CellFloor, cell.Type)

	_, err = s.Resume()
	assert.ErrorIs(t, err, ErrIllegalCommand)
}

func TestIllegalCommandKeepsOccupation(t *testing.T) {
	s := newSession(t, 5, Options{Map: tunnelMap, Bare: true, Objects: pickAxe()})

	out, err := s.Submit(Dig(world.East))
	require.NoError(t, err)
	require.Equal(t, MultiTurnAction, out.Phase)
	progress := out.Progress
	draws := s.State.RNG.Calls()

	out, err = s.Submit(Drop('z'))
	require.ErrorIs(t, err, ErrIllegalCommand)
	assert.Equal(t, MultiTurnAction, out.Phase)
	assert.Equal(t, progress, out.Progress)
	assert.Equal(t, draws, s.State.RNG.Calls())

	cmd, ok := s.Occupation()
	require.True(t, ok)
	assert.Equal(t, Dig(world.East), cmd)

	out, err = s.Resume()
	require.NoError(t, err)
	assert.NotContains(t, out.Messages, "You start digging.")
	assert.Less(t, out.Progress, progress)
}

func TestDigWallMakesDoorway(t *testing.T) {
	m := []string{
		"       ",
		" |---| ",
		" |.@.| ",
		" |---| ",
	}
	s := newSession(t, 1, Options{Map: m, Bare: true, Objects: pickAxe()})
	for {
		out, err := s.Submit(Dig(world.South))
		require.NoError(t, err)
		if out.Phase == AwaitingCommand {
			break
		}
	}
	cell, err := s.State.Level().Cell(world.Coord{X: 3, Y: 3})
	require.NoError(t, err)
	assert.Equal(t, world.CellDoor, cell.Type)
	assert.Equal(t, world.DoorNone, cell.Door)
	assert.True(t, cell.Passable())
}

func TestSearchFindsSecretDoor(t *testing.T) {
	m := []string{
		"       ",
		" |-S-| ",
		" |.@.| ",
		" |---| ",
	}
	s := newSession(t, 3, Options{Map: m, Bare: true})
	door := world.Coord{X: 3, Y: 1}

	found := false
	for i := 0; i < 200 && !found; i++ {
		out, err := s.Submit(Search())
		require.NoError(t, err)
		require.Equal(t, uint64(1), out.Draws, "one rnl roll for the single hidden door")
		cell, _ := s.State.Level().Cell(door)
		found = cell.Type == world.CellDoor
	}
	require.True(t, found)

	out, err := s.Submit(Search())
	require.NoError(t, err)
	assert.Zero(t, out.Draws, "nothing hidden remains")
}

func TestSearchRevealsTrap(t *testing.T) {
	s := newSession(t, 11, Options{
		Map:   roomMap,
		Bare:  true,
		Traps: []TrapSpec{{Type: "pit", At: world.Coord{X: 6, Y: 5}, Hidden: true}},
	})
	trap, ok := s.State.Level().TrapAt(world.Coord{X: 6, Y: 5})
	require.True(t, ok)

	for i := 0; i < 200 && !trap.Seen; i++ {
		_, err := s.Submit(Search())
		require.NoError(t, err)
	}
	assert.True(t, trap.Seen)
}

func TestPickUpAndDrop(t *testing.T) {
	here := world.Coord{X: 5, Y: 5}
	s := newSession(t, 8, Options{
		Map: roomMap,
		Objects: []ObjectSpec{
			{Kind: "food ration", Quantity: 1, At: &here},
			{Kind: "gold piece", Quantity: 30, At: &here},
		},
	})
	gs := s.State

	before := len(gs.Inventory())
	_, err := s.Submit(PickUp())
	require.NoError(t, err)
	assert.Empty(t, gs.Dungeon.ObjectsAt(gs.Player.Level, here))

	// The ration merges into the starting stack; gold gets its own slot.
	assert.Len(t, gs.Inventory(), before+1)
	gold, ok := gs.InventoryItem('$')
	require.True(t, ok)
	assert.Equal(t, 30, gold.Quantity)

	var rations *world.Object
	for _, o := range gs.Inventory() {
		if o.Kind == world.KindFoodRation {
			rations = o
		}
	}
	require.NotNil(t, rations)
	assert.Equal(t, 3, rations.Quantity)

	_, err = s.Submit(Drop(rations.Letter))
	require.NoError(t, err)
	assert.Equal(t, []world.ObjectID{rations.ID}, gs.Dungeon.ObjectsAt(gs.Player.Level, here))
	assert.Equal(t, uint64(2), gs.Turn)
}

func TestArrowTrap(t *testing.T) {
	s := newSession(t, 21, Options{
		Map:   roomMap,
		Bare:  true,
		Traps: []TrapSpec{{Type: "arrow_trap", At: world.Coord{X: 6, Y: 5}}},
	})
	gs := s.State
	hp := gs.Player.HP

	out, err := s.Submit(Move(world.East))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Draws)
	assert.Less(t, gs.Player.HP, hp)

	trap, _ := gs.Level().TrapAt(world.Coord{X: 6, Y: 5})
	assert.Equal(t, world.TrapTriggered, trap.State)
	assert.Equal(t, 4, trap.Charges)
}

func TestBearTrapHoldsPlayer(t *testing.T) {
	s := newSession(t, 4, Options{
		Map:   roomMap,
		Bare:  true,
		Traps: []TrapSpec{{Type: "bear_trap", At: world.Coord{X: 6, Y: 5}}},
	})
	gs := s.State
	gs.Player.HP = 100
	gs.Player.HPMax = 100

	_, err := s.Submit(Move(world.East))
	require.NoError(t, err)
	stuck := gs.Player.Trapped
	require.GreaterOrEqual(t, stuck, 4)
	require.Less(t, stuck, 8)

	for i := 0; i < stuck; i++ {
		_, err := s.Submit(Move(world.East))
		require.NoError(t, err)
		assert.Equal(t, world.Coord{X: 6, Y: 5}, gs.Player.Pos)
	}
	_, err = s.Submit(Move(world.East))
	require.NoError(t, err)
	assert.Equal(t, world.Coord{X: 7, Y: 5}, gs.Player.Pos)
}

func TestDeathEndsSession(t *testing.T) {
	s := newSession(t, 2, Options{
		Map:   roomMap,
		Bare:  true,
		Traps: []TrapSpec{{Type: "land_mine", At: world.Coord{X: 6, Y: 5}}},
	})
	s.State.Player.HP = 1

	out, err := s.Submit(Move(world.East))
	require.NoError(t, err)
	assert.Equal(t, SessionEnded, out.Phase)
	assert.True(t, s.State.Player.Dead)
	assert.Equal(t, "killed by a land mine", s.State.Player.DeathReason)

	trap, _ := s.State.Level().TrapAt(world.Coord{X: 6, Y: 5})
	assert.Equal(t, world.TrapDestroyed, trap.State)

	_, err = s.Submit(Rest())
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestQuitAndTurnLimit(t *testing.T) {
	s := newSession(t, 1, Options{Map: roomMap, Bare: true})
	out, err := s.Submit(Quit())
	require.NoError(t, err)
	assert.Equal(t, SessionEnded, out.Phase)
	assert.Zero(t, s.State.Turn)

	s = newSession(t, 1, Options{Map: roomMap, Bare: true, MaxTurns: 3})
	for i := 0; i < 3; i++ {
		_, err := s.Submit(Rest())
		require.NoError(t, err)
	}
	assert.Equal(t, SessionEnded, s.Phase())
	_, err = s.Submit(Rest())
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestSleepingMonsterOutOfRangeDrawsNothing(t *testing.T) {
	wide := []string{
		"                            ",
		" |------------------------| ",
		" |.@......................| ",
		" |------------------------| ",
	}
	s := newSession(t, 6, Options{
		Map:      wide,
		Bare:     true,
		Monsters: []MonsterSpec{{Species: "jackal", At: world.Coord{X: 25, Y: 2}, Asleep: true}},
	})

	out, err := s.Submit(Rest())
	require.NoError(t, err)
	assert.Zero(t, out.Draws, "jackal speed is a multiple of 12 and the player is out of range")
}

func TestHostileMonsterApproaches(t *testing.T) {
	s := newSession(t, 6, Options{
		Map:      roomMap,
		Bare:     true,
		Monsters: []MonsterSpec{{Species: "jackal", At: world.Coord{X: 9, Y: 5}}},
	})
	gs := s.State
	jackal := gs.Dungeon.Monsters()[0]

	_, err := s.Submit(Rest())
	require.NoError(t, err)
	assert.Equal(t, world.Coord{X: 8, Y: 5}, jackal.Pos)
	_, err = s.Submit(Rest())
	require.NoError(t, err)
	assert.Equal(t, world.Coord{X: 7, Y: 5}, jackal.Pos)
	_, err = s.Submit(Rest())
	require.NoError(t, err)
	assert.Equal(t, world.Coord{X: 6, Y: 5}, jackal.Pos)

	// Adjacent now: the next turn is an attack with a to-hit roll.
	out, err := s.Submit(Rest())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Draws, uint64(1))
	assert.Equal(t, world.Coord{X: 6, Y: 5}, jackal.Pos)
}

func TestFightingKillsAndRetiresMonster(t *testing.T) {
	s := newSession(t, 10, Options{
		Map:      roomMap,
		Monsters: []MonsterSpec{{Species: "newt", At: world.Coord{X: 6, Y: 5}, Asleep: true}},
	})
	gs := s.State
	gs.Player.HP = 500
	newt := gs.Dungeon.Monsters()[0]

	for i := 0; i < 100 && !s.State.Player.Dead; i++ {
		if _, err := gs.Dungeon.Monster(newt.ID); err != nil {
			break
		}
		_, err := s.Submit(Move(world.East))
		require.NoError(t, err)
	}
	_, err := gs.Dungeon.Monster(newt.ID)
	assert.ErrorIs(t, err, world.ErrNotFound)
	assert.Equal(t, 1, gs.Player.Conducts.Killer)
	assert.Empty(t, gs.Level().MonsterIDs())
}

func TestHungerTicks(t *testing.T) {
	s := newSession(t, 1, Options{Map: roomMap, Bare: true})
	p := s.State.Player
	p.Nutrition = 151

	out, err := s.Submit(Rest())
	require.NoError(t, err)
	assert.Equal(t, 150, p.Nutrition)
	assert.Contains(t, out.Messages, "You are beginning to feel hungry.")
	assert.Zero(t, out.Draws)
}

func TestRegenerationIsDeterministic(t *testing.T) {
	s := newSession(t, 1, Options{Map: roomMap, Bare: true})
	p := s.State.Player
	p.HP = 10

	// XL 1 heals one point every 15 turns.
	for i := 0; i < 15; i++ {
		_, err := s.Submit(Rest())
		require.NoError(t, err)
	}
	assert.Equal(t, 11, p.HP)
	assert.Zero(t, s.State.RNG.Calls())
}

func TestDefaultGame(t *testing.T) {
	s := newSession(t, 0, Options{})
	gs := s.State

	assert.Equal(t, world.Coord{X: 5, Y: 5}, gs.Player.Pos)
	assert.Len(t, gs.Dungeon.Monsters(), 2)
	assert.Len(t, gs.Level().Traps(), 2)
	_, ok := gs.DiggingTool()
	assert.True(t, ok)
	w, ok := gs.Weapon()
	require.True(t, ok)
	assert.Equal(t, world.KindDagger, w.Kind)
	assert.Zero(t, gs.RNG.Calls())
}

func TestBadOptions(t *testing.T) {
	_, err := New(1, Options{Map: []string{"...."}})
	assert.ErrorIs(t, err, ErrBadMap)

	_, err = New(1, Options{Map: []string{".@.@"}})
	assert.ErrorIs(t, err, ErrBadMap)

	_, err = New(1, Options{Map: []string{".@?"}})
	assert.ErrorIs(t, err, ErrBadMap)

	_, err = New(1, Options{Map: roomMap, Monsters: []MonsterSpec{{Species: "dragon"}}})
	assert.ErrorIs(t, err, world.ErrNotFound)

	_, err = New(1, Options{Map: roomMap, Race: "elf"})
	assert.Error(t, err)
}
