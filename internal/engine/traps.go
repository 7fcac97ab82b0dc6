package engine

import "github.com/MJE43/nh-parity-go/internal/world"

// springTrap fires whatever live trap sits under the player.
func (s *Session) springTrap() {
	gs := s.State
	p := gs.Player
	lvl := gs.Level()

	t, ok := lvl.TrapAt(p.Pos)
	if !ok || !t.Active() {
		return
	}
	_ = t.Trigger()
	gs.RNG.SetSite("trap." + t.Type.String())

	switch t.Type {
	case world.TrapArrow:
		if !t.UseCharge() {
			gs.say("You hear a loud click!")
			_ = t.Destroy()
			return
		}
		gs.say("An arrow shoots out at you!")
		s.hurtPlayer(gs.RNG.Dice(1, 6), "an arrow trap")
	case world.TrapDart:
		if !t.UseCharge() {
			gs.say("You hear a soft click.")
			_ = t.Destroy()
			return
		}
		gs.say("A little dart shoots out at you!")
		s.hurtPlayer(gs.RNG.Dice(1, 3), "a dart trap")
	case world.TrapBear:
		gs.say("A bear trap closes on your foot!")
		p.Trapped = gs.RNG.Rn1(4, 4)
		s.hurtPlayer(gs.RNG.Dice(2, 4), "a bear trap")
	case world.TrapPit:
		gs.say("You fall into a pit!")
		p.Trapped = gs.RNG.Rn1(6, 2)
		s.hurtPlayer(gs.RNG.Rnd(6), "a pit")
	case world.TrapSqueakyBoard:
		gs.say("A board beneath you squeaks loudly.")
		s.wakeLevel()
	case world.TrapLandmine:
		gs.say("KAABLAMM!!!  You triggered a land mine!")
		_ = t.Destroy()
		s.wakeLevel()
		s.hurtPlayer(gs.RNG.Rnd(16), "a land mine")
	}
}

func (s *Session) wakeLevel() {
	for _, m := range s.State.Dungeon.MonstersOn(s.State.Player.Level) {
		s.wake(m)
	}
}

func (s *Session) hurtPlayer(dmg int, cause string) {
	p := s.State.Player
	p.HP -= dmg
	if p.HP <= 0 {
		p.HP = 0
		s.State.say("You die...")
		p.Die("killed by " + cause)
	}
}
