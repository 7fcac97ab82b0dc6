package engine

import (
	"fmt"
	"slices"

	"github.com/MJE43/nh-parity-go/internal/rng"
	"github.com/MJE43/nh-parity-go/internal/world"
)

// StartLevel is the level every session begins on.
const StartLevel world.LevelID = 1

// DefaultMap is the starting level used when Options.Map is empty. '@' marks
// the player's start square and sits on floor.
var DefaultMap = []string{
	"                                        ",
	" |-------|                              ",
	" |.......|      ######                  ",
	" |.......+######    #    |-----|        ",
	" |.......|          #    |.....|        ",
	" |...@...|          #####S.....|        ",
	" |.......|               |..>..|        ",
	" |-------|               |-----|        ",
	"                                        ",
}

// MonsterSpec places a monster at game creation.
type MonsterSpec struct {
	Species string      `json:"species" yaml:"species"`
	At      world.Coord `json:"at" yaml:"at"`
	Asleep  bool        `json:"asleep,omitempty" yaml:"asleep,omitempty"`
}

// TrapSpec places a trap at game creation.
type TrapSpec struct {
	Type   string      `json:"type" yaml:"type"`
	At     world.Coord `json:"at" yaml:"at"`
	Hidden bool        `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// ObjectSpec places an object on the floor or, with no position, in the
// player's starting inventory.
type ObjectSpec struct {
	Kind        string       `json:"kind" yaml:"kind"`
	Quantity    int          `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Enchantment int          `json:"enchantment,omitempty" yaml:"enchantment,omitempty"`
	Erosion     int          `json:"erosion,omitempty" yaml:"erosion,omitempty"`
	At          *world.Coord `json:"at,omitempty" yaml:"at,omitempty"`
}

// Options describe the starting position of a game. The zero value gives the
// default level with its default population.
type Options struct {
	Map       []string      `json:"map,omitempty" yaml:"map,omitempty"`
	Monsters  []MonsterSpec `json:"monsters,omitempty" yaml:"monsters,omitempty"`
	Traps     []TrapSpec    `json:"traps,omitempty" yaml:"traps,omitempty"`
	Objects   []ObjectSpec  `json:"objects,omitempty" yaml:"objects,omitempty"`
	Race      string        `json:"race,omitempty" yaml:"race,omitempty"`
	Luck      int           `json:"luck,omitempty" yaml:"luck,omitempty"`
	MaxTurns  uint64        `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
	Trace     bool          `json:"trace,omitempty" yaml:"trace,omitempty"`
	// Bare skips the default population and starting inventory.
	Bare bool `json:"bare,omitempty" yaml:"bare,omitempty"`
}

var defaultMonsters = []MonsterSpec{
	{Species: "jackal", At: world.Coord{X: 28, Y: 4}, Asleep: true},
	{Species: "newt", At: world.Coord{X: 20, Y: 3}},
}

var defaultTraps = []TrapSpec{
	{Type: "arrow_trap", At: world.Coord{X: 13, Y: 3}, Hidden: true},
	{Type: "squeaky_board", At: world.Coord{X: 3, Y: 2}, Hidden: true},
}

var defaultInventory = []ObjectSpec{
	{Kind: "pick-axe"},
	{Kind: "dagger", Quantity: 1},
	{Kind: "food ration", Quantity: 2},
}

// GameState is the aggregate root of a session: the dungeon, the player, the
// generator and the turn counter.
type GameState struct {
	Seed     uint64
	Turn     uint64
	Dungeon  *world.Dungeon
	Player   *world.Player
	RNG      *rng.Isaac64
	Messages []string
}

// NewGame builds a starting state. Creation draws nothing from the generator,
// so the first command sees the generator exactly as seeded.
func NewGame(seed uint64, opts Options) (*GameState, error) {
	gs := &GameState{
		Seed:    seed,
		Dungeon: world.NewDungeon(),
		RNG:     rng.New(seed),
	}
	if opts.Trace {
		gs.RNG.EnableTracing()
	}

	rows := opts.Map
	if len(rows) == 0 {
		rows = DefaultMap
	}
	start, err := buildLevel(gs.Dungeon, StartLevel, rows)
	if err != nil {
		return nil, err
	}

	p := world.NewPlayer(StartLevel, start)
	p.Luck = opts.Luck
	switch opts.Race {
	case "", "human":
	case "dwarf":
		p.Race = world.RaceDwarf
	default:
		return nil, fmt.Errorf("new game: unknown race %q", opts.Race)
	}
	gs.Player = p

	monsters, traps, objects := opts.Monsters, opts.Traps, opts.Objects
	if !opts.Bare {
		if len(opts.Map) == 0 {
			monsters = append(slices.Clone(defaultMonsters), monsters...)
			traps = append(slices.Clone(defaultTraps), traps...)
		}
		objects = append(slices.Clone(defaultInventory), objects...)
	}

	for _, ms := range monsters {
		sp, err := world.ParseSpecies(ms.Species)
		if err != nil {
			return nil, fmt.Errorf("new game: %w", err)
		}
		m := world.NewMonster(sp, StartLevel, ms.At)
		if ms.Asleep {
			m.Tactic = world.TacticSleep
		}
		if err := gs.Dungeon.AddMonster(m); err != nil {
			return nil, fmt.Errorf("new game: monster %s: %w", ms.Species, err)
		}
	}

	for _, ts := range traps {
		tt, err := world.ParseTrapType(ts.Type)
		if err != nil {
			return nil, fmt.Errorf("new game: %w", err)
		}
		t, err := gs.Dungeon.AddTrap(StartLevel, tt, ts.At)
		if err != nil {
			return nil, fmt.Errorf("new game: trap %s: %w", ts.Type, err)
		}
		t.Seen = !ts.Hidden
	}

	for _, item := range objects {
		kind, err := world.ParseObjectKind(item.Kind)
		if err != nil {
			return nil, fmt.Errorf("new game: %w", err)
		}
		o := world.NewObject(kind, item.Quantity)
		o.Enchantment = item.Enchantment
		o.Erosion = item.Erosion
		if item.At != nil {
			o.Loc = world.OnGround(StartLevel, *item.At)
			if err := gs.Dungeon.AddObject(o); err != nil {
				return nil, fmt.Errorf("new game: object %s: %w", item.Kind, err)
			}
			continue
		}
		o.Loc = world.Carried(world.OwnerYou)
		if err := gs.Dungeon.AddObject(o); err != nil {
			return nil, fmt.Errorf("new game: object %s: %w", item.Kind, err)
		}
		gs.assignLetter(o)
	}

	return gs, nil
}

func buildLevel(d *world.Dungeon, id world.LevelID, rows []string) (world.Coord, error) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	l, err := d.AddLevel(id, width, len(rows))
	if err != nil {
		return world.Coord{}, err
	}

	start, found := world.Coord{}, false
	for y, r := range rows {
		for x := 0; x < width; x++ {
			g := byte(' ')
			if x < len(r) {
				g = r[x]
			}
			if g == '@' {
				if found {
					return world.Coord{}, fmt.Errorf("%w: two start squares", ErrBadMap)
				}
				start, found = world.Coord{X: x, Y: y}, true
				g = '.'
			}
			cell, err := world.CellFromGlyph(g)
			if err != nil {
				return world.Coord{}, fmt.Errorf("%w: row %d col %d: %v", ErrBadMap, y, x, err)
			}
			if err := l.SetCell(world.Coord{X: x, Y: y}, cell); err != nil {
				return world.Coord{}, err
			}
		}
	}
	if !found {
		return world.Coord{}, fmt.Errorf("%w: no start square", ErrBadMap)
	}
	return start, nil
}

// Level returns the level the player is on.
func (gs *GameState) Level() *world.Level {
	l, err := gs.Dungeon.Level(gs.Player.Level)
	if err != nil {
		panic(fmt.Sprintf("engine: player on missing level %d", gs.Player.Level))
	}
	return l
}

// Inventory returns the player's objects ordered by letter.
func (gs *GameState) Inventory() []*world.Object {
	ids := gs.Dungeon.Carried(world.OwnerYou)
	out := make([]*world.Object, 0, len(ids))
	for _, id := range ids {
		o, err := gs.Dungeon.Object(id)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *world.Object) int { return letterRank(a.Letter) - letterRank(b.Letter) })
	return out
}

// InventoryItem finds the carried object in slot letter.
func (gs *GameState) InventoryItem(letter byte) (*world.Object, bool) {
	for _, o := range gs.Inventory() {
		if o.Letter == letter {
			return o, true
		}
	}
	return nil, false
}

// DiggingTool returns the first carried digging tool.
func (gs *GameState) DiggingTool() (*world.Object, bool) {
	for _, o := range gs.Inventory() {
		if o.CanDig() {
			return o, true
		}
	}
	return nil, false
}

// Weapon returns the object the player fights with: the first weapon, else a
// digging tool, else nothing.
func (gs *GameState) Weapon() (*world.Object, bool) {
	inv := gs.Inventory()
	for _, o := range inv {
		if o.Class() == world.ClassWeapon {
			return o, true
		}
	}
	for _, o := range inv {
		if o.CanDig() {
			return o, true
		}
	}
	return nil, false
}

func (gs *GameState) say(format string, args ...any) {
	gs.Messages = append(gs.Messages, fmt.Sprintf(format, args...))
}

// assignLetter gives a newly carried object its inventory slot, merging it
// into an existing stack when possible. It returns the object now holding the
// items.
func (gs *GameState) assignLetter(o *world.Object) *world.Object {
	if o.Kind == world.KindGold {
		o.Letter = '$'
	}
	for _, other := range gs.Inventory() {
		if other.ID == o.ID || !mergeable(other, o) {
			continue
		}
		other.Quantity += o.Quantity
		_ = gs.Dungeon.DestroyObject(o.ID)
		return other
	}
	if o.Letter == '$' {
		return o
	}
	used := make(map[byte]bool)
	for _, other := range gs.Inventory() {
		if other.ID != o.ID {
			used[other.Letter] = true
		}
	}
	for _, l := range letterOrder {
		if !used[l] {
			o.Letter = l
			return o
		}
	}
	o.Letter = '#'
	return o
}

func mergeable(a, b *world.Object) bool {
	return a.Kind == b.Kind && a.Kind.Info().Stacks &&
		a.BUC == b.BUC && a.Enchantment == b.Enchantment && a.Erosion == b.Erosion
}

var letterOrder = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func letterRank(l byte) int {
	switch {
	case l == '$':
		return -1
	case l >= 'a' && l <= 'z':
		return int(l - 'a')
	case l >= 'A' && l <= 'Z':
		return 26 + int(l-'A')
	}
	return 100
}
