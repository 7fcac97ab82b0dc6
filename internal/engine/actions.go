package engine

import (
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/world"
)

func (s *Session) planMove(d world.Direction) (action, error) {
	gs := s.State
	p := gs.Player
	lvl := gs.Level()
	to := p.Pos.Step(d)

	if p.Trapped > 0 {
		return func() bool {
			p.Trapped--
			if p.Trapped == 0 {
				gs.say("You finally wriggle free.")
			} else {
				gs.say("You are caught in a trap.")
			}
			return false
		}, nil
	}

	cell, err := lvl.Cell(to)
	if err != nil {
		return nil, illegal("you cannot leave the map")
	}

	if m, ok := gs.Dungeon.MonsterAt(p.Level, to); ok {
		if m.Peaceful {
			return nil, illegal(fmt.Sprintf("really attack the peaceful %s?", m.Species))
		}
		return func() bool {
			s.attack(m)
			return false
		}, nil
	}

	if cell.Passable() {
		return func() bool {
			p.Pos = to
			return true
		}, nil
	}

	if cell.Type == world.CellDoor {
		return nil, illegal("the door is closed")
	}
	if _, ok := gs.DiggingTool(); ok && cell.Diggable() {
		return s.planDig(d)
	}
	return nil, illegal(fmt.Sprintf("solid %s blocks the way", cell.Type))
}

// attack is the player's melee against m: Rnd(20) to hit, then weapon damage.
func (s *Session) attack(m *world.Monster) {
	gs := s.State
	p := gs.Player
	info := m.Species.Info()

	tmp := 1 + p.Luck + p.ToHitBonus() + info.AC + p.XL
	if m.Asleep() {
		tmp += 2
	}

	gs.RNG.SetSite("uhitm.tohit")
	if tmp <= gs.RNG.Rnd(20) {
		gs.say("You miss the %s.", m.Species)
		s.wake(m)
		return
	}

	gs.RNG.SetSite("uhitm.damage")
	dmg := gs.RNG.Rnd(2)
	if w, ok := gs.Weapon(); ok {
		dmg = gs.RNG.Rnd(w.Kind.Info().DamageSides) + w.Enchantment
		p.Conducts.WeaponHits++
	}
	dmg += p.DamageBonus()
	if dmg < 1 {
		dmg = 1
	}

	m.HP -= dmg
	if m.Dead() {
		gs.say("You kill the %s!", m.Species)
		p.Conducts.Killer++
		_ = gs.Dungeon.RemoveMonster(m.ID)
		return
	}
	gs.say("You hit the %s.", m.Species)
	s.wake(m)
}

func (s *Session) wake(m *world.Monster) {
	if m.Tactic == world.TacticSleep {
		m.Tactic = m.Species.Info().Tactic
	}
}

// search looks at the eight neighbours in x-major order. Only hidden
// features cost a draw.
func (s *Session) search() bool {
	gs := s.State
	p := gs.Player
	lvl := gs.Level()

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			at := p.Pos.Add(dx, dy)
			cell, err := lvl.Cell(at)
			if err != nil {
				continue
			}
			if cell.Type == world.CellSecretDoor {
				gs.RNG.SetSite("search.door")
				if gs.RNG.Rnl(7, p.Luck) == 0 {
					cell.Type = world.CellDoor
					cell.Door = world.DoorClosed
					_ = lvl.SetCell(at, cell)
					gs.say("You find a hidden door.")
				}
			}
			if t, ok := lvl.TrapAt(at); ok && !t.Seen {
				gs.RNG.SetSite("search.trap")
				if gs.RNG.Rnl(8, p.Luck) == 0 {
					t.Seen = true
					gs.say("You find a %s.", t.Type)
				}
			}
		}
	}
	return false
}

func (s *Session) planPickUp() (action, error) {
	gs := s.State
	p := gs.Player
	ids := gs.Dungeon.ObjectsAt(p.Level, p.Pos)
	if len(ids) == 0 {
		return nil, illegal("there is nothing here to pick up")
	}
	return func() bool {
		for _, id := range ids {
			o, err := gs.Dungeon.Object(id)
			if err != nil {
				continue
			}
			if err := gs.Dungeon.GiveObject(id, world.OwnerYou); err != nil {
				continue
			}
			held := gs.assignLetter(o)
			gs.say("%c - %s.", displayLetter(held), describe(held))
		}
		return false
	}, nil
}

func (s *Session) planDrop(letter byte) (action, error) {
	gs := s.State
	o, ok := gs.InventoryItem(letter)
	if !ok {
		return nil, illegal(fmt.Sprintf("you don't have object %c", letter))
	}
	return func() bool {
		p := gs.Player
		name := describe(o)
		if err := gs.Dungeon.PlaceObject(o.ID, p.Level, p.Pos); err == nil {
			gs.say("You drop %s.", name)
		}
		return false
	}, nil
}

func displayLetter(o *world.Object) byte {
	if o.Letter == 0 {
		return '?'
	}
	return o.Letter
}

func describe(o *world.Object) string {
	name := o.Kind.String()
	if o.Quantity > 1 {
		return fmt.Sprintf("%d %ss", o.Quantity, name)
	}
	if o.Enchantment != 0 {
		return fmt.Sprintf("a %+d %s", o.Enchantment, name)
	}
	return "a " + name
}
