package world

import "fmt"

// Attr indexes the player's six base attributes.
type Attr int

const (
	AttrStr Attr = iota
	AttrInt
	AttrWis
	AttrDex
	AttrCon
	AttrCha
	NumAttrs
)

var attrNames = [NumAttrs]string{"str", "int", "wis", "dex", "con", "cha"}

func (a Attr) String() string {
	if a >= 0 && a < NumAttrs {
		return attrNames[a]
	}
	return fmt.Sprintf("attr(%d)", int(a))
}

// HungerState is derived from nutrition.
type HungerState uint8

const (
	Satiated HungerState = iota
	NotHungry
	Hungry
	Weak
	Fainting
	Starved
)

func (h HungerState) String() string {
	switch h {
	case Satiated:
		return "satiated"
	case NotHungry:
		return "not_hungry"
	case Hungry:
		return "hungry"
	case Weak:
		return "weak"
	case Fainting:
		return "fainting"
	case Starved:
		return "starved"
	}
	return fmt.Sprintf("hunger(%d)", h)
}

type Alignment int8

const (
	Chaotic Alignment = -1
	Neutral Alignment = 0
	Lawful  Alignment = 1
)

func (a Alignment) String() string {
	switch a {
	case Chaotic:
		return "chaotic"
	case Neutral:
		return "neutral"
	case Lawful:
		return "lawful"
	}
	return fmt.Sprintf("alignment(%d)", a)
}

type Race uint8

const (
	RaceHuman Race = iota
	RaceDwarf
)

func (r Race) String() string {
	if r == RaceDwarf {
		return "dwarf"
	}
	return "human"
}

// Conducts counts conduct violations. Zero means the conduct is intact.
type Conducts struct {
	Food       int
	Unvegan    int
	Unveggy    int
	Gnostic    int
	WeaponHits int
	Killer     int
	Literate   int
	Wishes     int
}

// Player is the single hero of a session.
type Player struct {
	Level       LevelID
	Pos         Coord
	HP          int
	HPMax       int
	AC          int
	XL          int
	Attrs       [NumAttrs]int
	Nutrition   int
	Alignment   Alignment
	AlignRecord int
	Luck        int
	Race        Race
	Conducts    Conducts
	Speed       int
	Movement    int
	// Trapped counts the turns left stuck in a bear trap or pit.
	Trapped     int
	Dead        bool
	DeathReason string
}

// NewPlayer returns a level 1 human with fixed starting stats.
func NewPlayer(level LevelID, pos Coord) *Player {
	return &Player{
		Level:     level,
		Pos:       pos,
		HP:        16,
		HPMax:     16,
		AC:        10,
		XL:        1,
		Attrs:     [NumAttrs]int{16, 10, 10, 14, 16, 10},
		Nutrition: 900,
		Alignment: Lawful,
		Speed:     12,
	}
}

// Attr returns the current value of attribute a.
func (p *Player) Attr(a Attr) int { return p.Attrs[a] }

// Hunger derives the hunger state from nutrition and constitution.
func (p *Player) Hunger() HungerState {
	switch {
	case p.Nutrition > 1000:
		return Satiated
	case p.Nutrition > 150:
		return NotHungry
	case p.Nutrition > 50:
		return Hungry
	case p.Nutrition > 0:
		return Weak
	case p.Nutrition >= -(100 + 10*p.Attrs[AttrCon]):
		return Fainting
	}
	return Starved
}

// Die marks the player dead. The first reason wins.
func (p *Player) Die(reason string) {
	if p.Dead {
		return
	}
	p.Dead = true
	p.DeathReason = reason
}

// ToHitBonus is NetHack's abon(): strength and dexterity adjustments to hit,
// with the low-level tuning kludge.
func (p *Player) ToHitBonus() int {
	str, dex := p.Attrs[AttrStr], p.Attrs[AttrDex]
	var sbon int
	switch {
	case str < 6:
		sbon = -2
	case str < 8:
		sbon = -1
	case str < 17:
		sbon = 0
	case str <= 18:
		sbon = 1
	case str < 21:
		sbon = 2
	default:
		sbon = 3
	}
	if p.XL < 3 {
		sbon++
	}

	switch {
	case dex < 4:
		return sbon - 3
	case dex < 6:
		return sbon - 2
	case dex < 8:
		return sbon - 1
	case dex < 14:
		return sbon
	}
	return sbon + dex - 14
}

// DamageBonus is NetHack's dbon() on a plain strength scale where values above
// 18 stand for the 18/xx range.
func (p *Player) DamageBonus() int {
	str := p.Attrs[AttrStr]
	switch {
	case str < 6:
		return -1
	case str < 16:
		return 0
	case str < 18:
		return 1
	case str == 18:
		return 2
	case str < 21:
		return 3
	case str < 23:
		return 4
	case str < 25:
		return 5
	}
	return 6
}
