package engine

import (
	"github.com/MJE43/nh-parity-go/internal/world"
)

// normalSpeed is the movement cost of one action.
const normalSpeed = 12

// moveMonsters gives every monster on the player's level its movement for
// the turn and lets it act, strictly in ascending ID order.
func (s *Session) moveMonsters() {
	gs := s.State
	for _, m := range gs.Dungeon.MonstersOn(gs.Player.Level) {
		if m.Dead() {
			continue
		}
		m.Movement += s.movementGain(m)
		for m.Movement >= normalSpeed && !gs.Player.Dead {
			m.Movement -= normalSpeed
			s.monsterAct(m)
			if _, err := gs.Dungeon.Monster(m.ID); err != nil {
				break
			}
		}
	}
}

// movementGain rounds speed to a multiple of normalSpeed at random, weighted
// by the remainder. Speeds that are already multiples draw nothing.
func (s *Session) movementGain(m *world.Monster) int {
	speed := m.Species.Info().Speed
	adj := speed % normalSpeed
	speed -= adj
	if adj != 0 {
		s.State.RNG.SetSite("mon.speed")
		if s.State.RNG.Rn2(normalSpeed) < adj {
			speed += normalSpeed
		}
	}
	return speed
}

func (s *Session) monsterAct(m *world.Monster) {
	gs := s.State
	p := gs.Player
	info := m.Species.Info()

	if !m.Peaceful && m.Tactic != world.TacticSleep && m.Tactic != world.TacticFlee && m.HP*3 < m.HPMax {
		m.Tactic = world.TacticFlee
	}

	switch m.Tactic {
	case world.TacticSleep:
		if m.Pos.Dist2(p.Pos) <= 100 {
			gs.RNG.SetSite("mon.wake")
			if gs.RNG.Rn2(10) == 0 {
				m.Tactic = info.Tactic
			}
		}
	case world.TacticWander:
		if !m.Peaceful && s.canReach(m, p.Pos) {
			s.monsterAttack(m)
			return
		}
		dirs := s.allowedDirs(m)
		gs.RNG.SetSite("mon.wander")
		d := dirs[gs.RNG.Rn2(len(dirs))]
		to := m.Pos.Step(d)
		if s.freeFor(m, to) {
			_ = gs.Dungeon.MoveMonster(m.ID, to)
		}
	case world.TacticApproach:
		if m.Peaceful {
			m.Tactic = world.TacticWander
			return
		}
		if s.canReach(m, p.Pos) {
			s.monsterAttack(m)
			return
		}
		s.stepBy(m, func(cur, next int) bool { return next < cur })
	case world.TacticFlee:
		s.stepBy(m, func(cur, next int) bool { return next > cur })
	default:
		panic("engine: unhandled monster tactic " + m.Tactic.String())
	}
}

func (s *Session) allowedDirs(m *world.Monster) []world.Direction {
	if m.Species.Info().Orthogonal {
		return []world.Direction{world.North, world.East, world.South, world.West}
	}
	return world.Compass[:]
}

func (s *Session) canReach(m *world.Monster, target world.Coord) bool {
	if !m.Pos.Adjacent(target) {
		return false
	}
	if m.Species.Info().Orthogonal {
		return m.Pos.X == target.X || m.Pos.Y == target.Y
	}
	return true
}

// freeFor reports whether m may step onto to.
func (s *Session) freeFor(m *world.Monster, to world.Coord) bool {
	gs := s.State
	if to == gs.Player.Pos {
		return false
	}
	lvl, err := gs.Dungeon.Level(m.Level)
	if err != nil {
		return false
	}
	cell, err := lvl.Cell(to)
	if err != nil || !cell.Passable() {
		return false
	}
	_, occupied := gs.Dungeon.MonsterAt(m.Level, to)
	return !occupied
}

// stepBy moves m to the first neighbour, in direction order, whose squared
// distance to the player is best according to better. It draws nothing.
func (s *Session) stepBy(m *world.Monster, better func(cur, next int) bool) {
	gs := s.State
	goal := gs.Player.Pos
	best := m.Pos.Dist2(goal)
	var to world.Coord
	found := false
	for _, d := range s.allowedDirs(m) {
		next := m.Pos.Step(d)
		if !s.freeFor(m, next) {
			continue
		}
		if dist := next.Dist2(goal); better(best, dist) {
			best, to, found = dist, next, true
		}
	}
	if found {
		_ = gs.Dungeon.MoveMonster(m.ID, to)
	}
}

// monsterAttack is a melee attack against the player.
func (s *Session) monsterAttack(m *world.Monster) {
	gs := s.State
	p := gs.Player
	info := m.Species.Info()
	if info.AttackDice == 0 {
		return
	}

	gs.RNG.SetSite("mhitu.tohit")
	if 10+p.AC+info.Level <= gs.RNG.Rnd(20) {
		gs.say("The %s misses.", m.Species)
		return
	}
	gs.RNG.SetSite("mhitu.damage")
	dmg := gs.RNG.Dice(info.AttackDice, info.AttackSides)
	gs.say("The %s bites!", m.Species)
	s.hurtPlayer(dmg, "a "+m.Species.String())
}
