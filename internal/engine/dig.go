package engine

import (
	"fmt"

	"github.com/MJE43/nh-parity-go/internal/world"
)

const (
	// digDone is the effort at which a horizontal dig breaks through.
	digDone = 101
	// digMemoryTurns is how long an abandoned dig keeps its effort.
	digMemoryTurns = 250
)

// occupation is an action spread over several turns. It is resumed one turn
// at a time by resubmitting its command.
type occupation struct {
	cmd    Command
	level  world.LevelID
	target world.Coord
	effort int
}

func (o *occupation) continues(cmd Command) bool {
	return cmd == o.cmd
}

func (o *occupation) remaining() int {
	return max(0, digDone-o.effort)
}

type digMemory struct {
	valid    bool
	level    world.LevelID
	pos      world.Coord
	effort   int
	lastTurn uint64
}

func (s *Session) planDig(d world.Direction) (action, error) {
	gs := s.State
	p := gs.Player

	tool, ok := gs.DiggingTool()
	if !ok {
		return nil, illegal("you have no digging tool")
	}
	if !d.Horizontal() {
		return nil, illegal(fmt.Sprintf("you cannot dig %s here", d))
	}
	if p.Trapped > 0 {
		return nil, illegal("you cannot reach while trapped")
	}

	target := p.Pos.Step(d)
	cell, err := gs.Level().Cell(target)
	if err != nil {
		return nil, illegal("you cannot dig off the edge of the map")
	}
	if !cell.Diggable() {
		if cell.Nondiggable {
			return nil, illegal(fmt.Sprintf("the %s here is too hard to dig in", cell.Type))
		}
		return nil, illegal(fmt.Sprintf("you cannot dig through %s", cell.Type))
	}
	if _, ok := gs.Dungeon.MonsterAt(p.Level, target); ok {
		return nil, illegal("there is a monster in the way")
	}

	cmd := Dig(d)
	var opening string
	if s.occ == nil || s.occ.cmd != cmd || s.occ.target != target {
		s.occ = &occupation{cmd: cmd, level: p.Level, target: target}
		m := s.lastDig
		if m.valid && m.level == p.Level && m.pos == target && m.lastTurn+digMemoryTurns >= gs.Turn {
			s.occ.effort = m.effort
			opening = "You continue digging."
		} else {
			opening = "You start digging."
		}
	}

	occ := s.occ
	return func() bool {
		if opening != "" {
			gs.say(opening)
		}
		s.digTick(occ, tool)
		return false
	}, nil
}

// digTick adds one turn of effort. The single Rn1 draw here is the only
// random draw a dig makes.
func (s *Session) digTick(occ *occupation, tool *world.Object) {
	gs := s.State
	p := gs.Player

	gs.RNG.SetSite("dig.effort")
	bonus := gs.RNG.Rn1(20, 10) + p.ToHitBonus() + tool.Enchantment - tool.Erosion + p.DamageBonus()
	if p.Race == world.RaceDwarf {
		bonus *= 2
	}
	occ.effort += max(1, bonus)

	s.lastDig = digMemory{valid: true, level: occ.level, pos: occ.target, effort: occ.effort, lastTurn: gs.Turn}

	if occ.effort < digDone {
		return
	}

	lvl := gs.Level()
	cell, _ := lvl.Cell(occ.target)
	switch cell.Type {
	case world.CellWall:
		cell.Type, cell.Door = world.CellDoor, world.DoorNone
		gs.say("You make an opening in the wall.")
	case world.CellSecretDoor:
		cell.Type, cell.Door = world.CellDoor, world.DoorBroken
		gs.say("You break through a secret door!")
	default:
		cell.Type, cell.Door = world.CellFloor, world.DoorNone
		gs.say("You succeed in cutting away some rock.")
	}
	_ = lvl.SetCell(occ.target, cell)

	s.lastDig = digMemory{}
	s.occ = nil
}
