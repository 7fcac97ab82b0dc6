package snapshot

import (
	"fmt"
	"strconv"

	"github.com/MJE43/nh-parity-go/internal/engine"
	"github.com/MJE43/nh-parity-go/internal/world"
)

// Raw is the wire form of a game state. The in-process kernel builds it with
// Project and an external oracle answers read_state with the same JSON.
type Raw struct {
	Turn      uint64       `json:"turn" yaml:"turn"`
	Player    RawPlayer    `json:"player" yaml:"player"`
	Inventory []RawObject  `json:"inventory" yaml:"inventory"`
	Monsters  []RawMonster `json:"monsters" yaml:"monsters"`
	Levels    []RawLevel   `json:"levels" yaml:"levels"`
	RNG       RawRNG       `json:"rng" yaml:"rng"`
	Messages  []string     `json:"messages,omitempty" yaml:"messages,omitempty"`
}

type RawPlayer struct {
	Level       int            `json:"level" yaml:"level"`
	X           int            `json:"x" yaml:"x"`
	Y           int            `json:"y" yaml:"y"`
	HP          int            `json:"hp" yaml:"hp"`
	HPMax       int            `json:"hp_max" yaml:"hp_max"`
	AC          int            `json:"ac" yaml:"ac"`
	XL          int            `json:"xl" yaml:"xl"`
	Attributes  map[string]int `json:"attributes" yaml:"attributes"`
	Nutrition   int            `json:"nutrition" yaml:"nutrition"`
	Hunger      string         `json:"hunger" yaml:"hunger"`
	Alignment   string         `json:"alignment" yaml:"alignment"`
	AlignRecord int            `json:"align_record" yaml:"align_record"`
	Luck        int            `json:"luck" yaml:"luck"`
	Race        string         `json:"race" yaml:"race"`
	Conducts    map[string]int `json:"conducts" yaml:"conducts"`
	Trapped     int            `json:"trapped" yaml:"trapped"`
	Dead        bool           `json:"dead" yaml:"dead"`
	DeathReason string         `json:"death_reason,omitempty" yaml:"death_reason,omitempty"`
}

// RawObject is an inventory item or a floor object. Inventory items are
// identified by Letter, floor objects by ID.
type RawObject struct {
	ID          uint32 `json:"id" yaml:"id"`
	Letter      string `json:"letter,omitempty" yaml:"letter,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Class       string `json:"class" yaml:"class"`
	Material    string `json:"material" yaml:"material"`
	Quantity    int    `json:"quantity" yaml:"quantity"`
	Enchantment int    `json:"enchantment" yaml:"enchantment"`
	Erosion     int    `json:"erosion" yaml:"erosion"`
	BUC         string `json:"buc" yaml:"buc"`
	X           int    `json:"x,omitempty" yaml:"x,omitempty"`
	Y           int    `json:"y,omitempty" yaml:"y,omitempty"`
}

type RawMonster struct {
	ID       uint32 `json:"id" yaml:"id"`
	Species  string `json:"species" yaml:"species"`
	Level    int    `json:"level" yaml:"level"`
	X        int    `json:"x" yaml:"x"`
	Y        int    `json:"y" yaml:"y"`
	HP       int    `json:"hp" yaml:"hp"`
	HPMax    int    `json:"hp_max" yaml:"hp_max"`
	Movement int    `json:"movement" yaml:"movement"`
	Tactic   string `json:"tactic" yaml:"tactic"`
	Peaceful bool   `json:"peaceful" yaml:"peaceful"`
}

// RawLevel carries terrain as glyph rows, one string per y.
type RawLevel struct {
	ID      int         `json:"id" yaml:"id"`
	Width   int         `json:"width" yaml:"width"`
	Height  int         `json:"height" yaml:"height"`
	Rows    []string    `json:"rows" yaml:"rows"`
	Lit     []string    `json:"lit,omitempty" yaml:"lit,omitempty"`
	Traps   []RawTrap   `json:"traps" yaml:"traps"`
	Objects []RawObject `json:"objects" yaml:"objects"`
}

type RawTrap struct {
	ID      uint32 `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	X       int    `json:"x" yaml:"x"`
	Y       int    `json:"y" yaml:"y"`
	State   string `json:"state" yaml:"state"`
	Charges int    `json:"charges" yaml:"charges"`
	Seen    bool   `json:"seen" yaml:"seen"`
}

// RawRNG summarizes the generator. Checksum is hex so it survives JSON
// decoders that read numbers as doubles.
type RawRNG struct {
	Calls    uint64 `json:"calls" yaml:"calls"`
	Checksum string `json:"checksum" yaml:"checksum"`
}

// FormatChecksum renders a generator checksum the way RawRNG carries it.
func FormatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// ParseChecksum is the inverse of FormatChecksum.
func ParseChecksum(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// Project reads gs into its wire form. It does not touch the generator.
func Project(gs *engine.GameState) Raw {
	p := gs.Player
	raw := Raw{
		Turn: gs.Turn,
		Player: RawPlayer{
			Level:       int(p.Level),
			X:           p.Pos.X,
			Y:           p.Pos.Y,
			HP:          p.HP,
			HPMax:       p.HPMax,
			AC:          p.AC,
			XL:          p.XL,
			Attributes:  make(map[string]int, world.NumAttrs),
			Nutrition:   p.Nutrition,
			Hunger:      p.Hunger().String(),
			Alignment:   p.Alignment.String(),
			AlignRecord: p.AlignRecord,
			Luck:        p.Luck,
			Race:        p.Race.String(),
			Conducts:    conducts(p.Conducts),
			Trapped:     p.Trapped,
			Dead:        p.Dead,
			DeathReason: p.DeathReason,
		},
		RNG: RawRNG{
			Calls:    gs.RNG.Calls(),
			Checksum: FormatChecksum(gs.RNG.Checksum()),
		},
		Messages: append([]string(nil), gs.Messages...),
	}
	for a := world.Attr(0); a < world.NumAttrs; a++ {
		raw.Player.Attributes[a.String()] = p.Attr(a)
	}

	raw.Inventory = make([]RawObject, 0)
	for _, o := range gs.Inventory() {
		ro := rawObject(o)
		ro.Letter = string(o.Letter)
		raw.Inventory = append(raw.Inventory, ro)
	}

	raw.Monsters = make([]RawMonster, 0)
	for _, m := range gs.Dungeon.Monsters() {
		raw.Monsters = append(raw.Monsters, RawMonster{
			ID:       uint32(m.ID),
			Species:  m.Species.String(),
			Level:    int(m.Level),
			X:        m.Pos.X,
			Y:        m.Pos.Y,
			HP:       m.HP,
			HPMax:    m.HPMax,
			Movement: m.Movement,
			Tactic:   m.Tactic.String(),
			Peaceful: m.Peaceful,
		})
	}

	for _, l := range gs.Dungeon.Levels() {
		rl := RawLevel{
			ID:      int(l.ID),
			Width:   l.Width,
			Height:  l.Height,
			Rows:    make([]string, l.Height),
			Lit:     make([]string, l.Height),
			Traps:   make([]RawTrap, 0),
			Objects: make([]RawObject, 0),
		}
		for y := 0; y < l.Height; y++ {
			rl.Rows[y] = l.Row(y)
			rl.Lit[y] = l.LitRow(y)
		}
		for _, t := range l.Traps() {
			rl.Traps = append(rl.Traps, RawTrap{
				ID:      uint32(t.ID),
				Type:    t.Type.String(),
				X:       t.Pos.X,
				Y:       t.Pos.Y,
				State:   t.State.String(),
				Charges: t.Charges,
				Seen:    t.Seen,
			})
		}
		for _, id := range l.ObjectIDs() {
			o, err := gs.Dungeon.Object(id)
			if err != nil {
				continue
			}
			ro := rawObject(o)
			ro.X, ro.Y = o.Loc.Pos.X, o.Loc.Pos.Y
			rl.Objects = append(rl.Objects, ro)
		}
		raw.Levels = append(raw.Levels, rl)
	}
	return raw
}

func rawObject(o *world.Object) RawObject {
	return RawObject{
		ID:          uint32(o.ID),
		Name:        o.Kind.String(),
		Class:       o.Class().String(),
		Material:    o.Material().String(),
		Quantity:    o.Quantity,
		Enchantment: o.Enchantment,
		Erosion:     o.Erosion,
		BUC:         o.BUC.String(),
	}
}

func conducts(c world.Conducts) map[string]int {
	return map[string]int{
		"food":        c.Food,
		"unvegan":     c.Unvegan,
		"unveggy":     c.Unveggy,
		"gnostic":     c.Gnostic,
		"weapon_hits": c.WeaponHits,
		"killer":      c.Killer,
		"literate":    c.Literate,
		"wishes":      c.Wishes,
	}
}
