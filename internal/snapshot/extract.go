package snapshot

import (
	"github.com/MJE43/nh-parity-go/internal/engine"
)

// Extract builds the canonical tree for a kernel state.
func Extract(gs *engine.GameState) Node {
	return FromRaw(Project(gs))
}

// FromRaw builds the canonical tree from a wire state. Messages are left out:
// they are reported alongside a snapshot but never compared.
func FromRaw(r Raw) Node {
	inv := make([]Node, 0, len(r.Inventory))
	for _, o := range r.Inventory {
		inv = append(inv, objectNode(o, F("slot", Str(o.Letter))))
	}
	mons := make([]Node, 0, len(r.Monsters))
	for _, m := range r.Monsters {
		mons = append(mons, Map(
			F("id", Int(int64(m.ID))),
			F("species", Str(m.Species)),
			F("level", Int(int64(m.Level))),
			F("pos", pos(m.X, m.Y)),
			F("hp", Int(int64(m.HP))),
			F("hp_max", Int(int64(m.HPMax))),
			F("movement", Int(int64(m.Movement))),
			F("tactic", Str(m.Tactic)),
			F("peaceful", Bool(m.Peaceful)),
		))
	}
	levels := make([]Node, 0, len(r.Levels))
	for _, l := range r.Levels {
		levels = append(levels, levelNode(l))
	}
	return Map(
		F("turn", Int(int64(r.Turn))),
		F("player", playerNode(r.Player)),
		F("inventory", KeyedList("slot", inv...)),
		F("monsters", KeyedList("id", mons...)),
		F("levels", KeyedList("id", levels...)),
		F("rng", Map(
			F("calls", Int(int64(r.RNG.Calls))),
			F("checksum", Str(r.RNG.Checksum)),
		)),
	)
}

func playerNode(p RawPlayer) Node {
	death := Null()
	if p.DeathReason != "" {
		death = Str(p.DeathReason)
	}
	return Map(
		F("level", Int(int64(p.Level))),
		F("pos", pos(p.X, p.Y)),
		F("hp", Int(int64(p.HP))),
		F("hp_max", Int(int64(p.HPMax))),
		F("ac", Int(int64(p.AC))),
		F("xl", Int(int64(p.XL))),
		F("attributes", intMap(p.Attributes)),
		F("nutrition", Int(int64(p.Nutrition))),
		F("hunger", Str(p.Hunger)),
		F("alignment", Str(p.Alignment)),
		F("align_record", Int(int64(p.AlignRecord))),
		F("luck", Int(int64(p.Luck))),
		F("race", Str(p.Race)),
		F("conducts", intMap(p.Conducts)),
		F("trapped", Int(int64(p.Trapped))),
		F("dead", Bool(p.Dead)),
		F("death_reason", death),
	)
}

func levelNode(l RawLevel) Node {
	rows := make([]Node, len(l.Rows))
	for i, s := range l.Rows {
		rows[i] = Str(s)
	}
	lit := make([]Node, len(l.Lit))
	for i, s := range l.Lit {
		lit[i] = Str(s)
	}
	traps := make([]Node, 0, len(l.Traps))
	for _, t := range l.Traps {
		traps = append(traps, Map(
			F("id", Int(int64(t.ID))),
			F("type", Str(t.Type)),
			F("pos", pos(t.X, t.Y)),
			F("state", Str(t.State)),
			F("charges", Int(int64(t.Charges))),
			F("seen", Bool(t.Seen)),
		))
	}
	objs := make([]Node, 0, len(l.Objects))
	for _, o := range l.Objects {
		objs = append(objs, objectNode(o, F("id", Int(int64(o.ID))), F("pos", pos(o.X, o.Y))))
	}
	return Map(
		F("id", Int(int64(l.ID))),
		F("width", Int(int64(l.Width))),
		F("height", Int(int64(l.Height))),
		F("rows", List(rows...)),
		F("lit", List(lit...)),
		F("traps", KeyedList("id", traps...)),
		F("objects", KeyedList("id", objs...)),
	)
}

func objectNode(o RawObject, ident ...Field) Node {
	fs := append([]Field{
		F("name", Str(o.Name)),
		F("class", Str(o.Class)),
		F("material", Str(o.Material)),
		F("quantity", Int(int64(o.Quantity))),
		F("enchantment", Int(int64(o.Enchantment))),
		F("erosion", Int(int64(o.Erosion))),
		F("buc", Str(o.BUC)),
	}, ident...)
	return Map(fs...)
}

func pos(x, y int) Node {
	return Map(F("x", Int(int64(x))), F("y", Int(int64(y))))
}

func intMap(m map[string]int) Node {
	fs := make([]Field, 0, len(m))
	for k, v := range m {
		fs = append(fs, F(k, Int(int64(v))))
	}
	return Map(fs...)
}
