package world

import "fmt"

// MonsterID identifies a monster for the whole session. IDs are never
// reused, and 0 is reserved for the player as an object owner.
type MonsterID uint32

// OwnerYou is the owner ID used for objects in the player's inventory.
const OwnerYou MonsterID = 0

// Species is the closed set of monster templates the kernel knows about.
type Species uint8

const (
	SpeciesNewt Species = iota + 1
	SpeciesJackal
	SpeciesGridBug
	SpeciesKobold
	SpeciesGnome
	SpeciesDwarf
	SpeciesFloatingEye
	SpeciesKitten
	numSpecies
)

// SpeciesInfo is the static template for a species.
type SpeciesInfo struct {
	Name        string
	Glyph       byte
	Level       int
	Speed       int
	AC          int
	AttackDice  int
	AttackSides int
	Tactic      Tactic
	Peaceful    bool
	// Orthogonal monsters cannot move diagonally.
	Orthogonal bool
}

var speciesTable = [numSpecies]SpeciesInfo{
	SpeciesNewt:        {Name: "newt", Glyph: ':', Level: 0, Speed: 6, AC: 8, AttackDice: 1, AttackSides: 3, Tactic: TacticApproach},
	SpeciesJackal:      {Name: "jackal", Glyph: 'd', Level: 0, Speed: 12, AC: 7, AttackDice: 1, AttackSides: 2, Tactic: TacticApproach},
	SpeciesGridBug:     {Name: "grid bug", Glyph: 'x', Level: 0, Speed: 12, AC: 9, AttackDice: 1, AttackSides: 1, Tactic: TacticApproach, Orthogonal: true},
	SpeciesKobold:      {Name: "kobold", Glyph: 'k', Level: 0, Speed: 6, AC: 10, AttackDice: 1, AttackSides: 4, Tactic: TacticApproach},
	SpeciesGnome:       {Name: "gnome", Glyph: 'G', Level: 1, Speed: 6, AC: 10, AttackDice: 1, AttackSides: 6, Tactic: TacticWander, Peaceful: true},
	SpeciesDwarf:       {Name: "dwarf", Glyph: 'h', Level: 2, Speed: 6, AC: 10, AttackDice: 1, AttackSides: 8, Tactic: TacticApproach},
	SpeciesFloatingEye: {Name: "floating eye", Glyph: 'e', Level: 2, Speed: 1, AC: 9, Tactic: TacticWander},
	SpeciesKitten:      {Name: "kitten", Glyph: 'f', Level: 0, Speed: 18, AC: 6, AttackDice: 1, AttackSides: 6, Tactic: TacticWander, Peaceful: true},
}

// Info returns the species template. It panics on an unknown species.
func (s Species) Info() SpeciesInfo {
	if s == 0 || s >= numSpecies {
		panic(fmt.Sprintf("world: unknown species %d", s))
	}
	return speciesTable[s]
}

func (s Species) String() string {
	if s == 0 || s >= numSpecies {
		return fmt.Sprintf("species(%d)", s)
	}
	return speciesTable[s].Name
}

// ParseSpecies looks a species up by name.
func ParseSpecies(name string) (Species, error) {
	for s := SpeciesNewt; s < numSpecies; s++ {
		if speciesTable[s].Name == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown species %q: %w", name, ErrNotFound)
}

// Tactic is a monster's current behaviour.
type Tactic uint8

const (
	TacticWander Tactic = iota
	TacticApproach
	TacticFlee
	TacticSleep
)

func (t Tactic) String() string {
	switch t {
	case TacticWander:
		return "wander"
	case TacticApproach:
		return "approach"
	case TacticFlee:
		return "flee"
	case TacticSleep:
		return "sleep"
	}
	return fmt.Sprintf("tactic(%d)", t)
}

// Monster is a live monster. Its position is mirrored in the owning level's
// monster set and only Dungeon methods may change Level or Pos.
type Monster struct {
	ID       MonsterID
	Species  Species
	Level    LevelID
	Pos      Coord
	HP       int
	HPMax    int
	Movement int
	Tactic   Tactic
	Peaceful bool
}

// NewMonster builds a monster from its species template. HP follows the
// template level so creation needs no random draws.
func NewMonster(s Species, level LevelID, pos Coord) *Monster {
	info := s.Info()
	hp := 4
	if info.Level > 0 {
		hp = info.Level * 6
	}
	return &Monster{
		Species:  s,
		Level:    level,
		Pos:      pos,
		HP:       hp,
		HPMax:    hp,
		Tactic:   info.Tactic,
		Peaceful: info.Peaceful,
	}
}

// Asleep reports whether the monster is dormant.
func (m *Monster) Asleep() bool { return m.Tactic == TacticSleep }

// Dead reports whether the monster has run out of hit points.
func (m *Monster) Dead() bool { return m.HP <= 0 }
