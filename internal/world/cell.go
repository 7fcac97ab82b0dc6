package world

import "fmt"

// CellType is the terrain of a single grid square.
type CellType uint8

const (
	CellRock CellType = iota
	CellWall
	CellFloor
	CellCorridor
	CellDoor
	CellSecretDoor
	CellStairsUp
	CellStairsDown
	CellTree
	CellAltar
	CellThrone
	CellFountain
)

var cellNames = [...]string{
	CellRock:       "rock",
	CellWall:       "wall",
	CellFloor:      "floor",
	CellCorridor:   "corridor",
	CellDoor:       "door",
	CellSecretDoor: "secret_door",
	CellStairsUp:   "stairs_up",
	CellStairsDown: "stairs_down",
	CellTree:       "tree",
	CellAltar:      "altar",
	CellThrone:     "throne",
	CellFountain:   "fountain",
}

func (t CellType) String() string {
	if int(t) < len(cellNames) {
		return cellNames[t]
	}
	return fmt.Sprintf("cell(%d)", t)
}

// DoorState is only meaningful on CellDoor squares.
type DoorState uint8

const (
	DoorNone DoorState = iota
	DoorOpen
	DoorClosed
	DoorLocked
	DoorBroken
)

func (d DoorState) String() string {
	switch d {
	case DoorNone:
		return "none"
	case DoorOpen:
		return "open"
	case DoorClosed:
		return "closed"
	case DoorLocked:
		return "locked"
	case DoorBroken:
		return "broken"
	}
	return fmt.Sprintf("door(%d)", d)
}

// Cell is one square of a level.
type Cell struct {
	Type        CellType
	Door        DoorState
	Lit         bool
	Nondiggable bool
}

// Passable reports whether a walker can enter the square.
func (c Cell) Passable() bool {
	switch c.Type {
	case CellFloor, CellCorridor, CellStairsUp, CellStairsDown, CellAltar, CellThrone, CellFountain:
		return true
	case CellDoor:
		return c.Door == DoorNone || c.Door == DoorOpen || c.Door == DoorBroken
	case CellRock, CellWall, CellSecretDoor, CellTree:
		return false
	}
	return false
}

// Diggable reports whether a pick can tunnel through the square.
// Furniture and stairs refuse digging, as does anything flagged nondiggable.
func (c Cell) Diggable() bool {
	if c.Nondiggable {
		return false
	}
	switch c.Type {
	case CellRock, CellWall, CellSecretDoor:
		return true
	case CellFloor, CellCorridor, CellDoor, CellStairsUp, CellStairsDown,
		CellTree, CellAltar, CellThrone, CellFountain:
		return false
	}
	return false
}

// Glyph is the map character used in snapshots. Hidden features keep their
// true type so that two engines disagreeing about a secret door show up.
func (c Cell) Glyph() byte {
	switch c.Type {
	case CellRock:
		return ' '
	case CellWall:
		return '-'
	case CellFloor:
		return '.'
	case CellCorridor:
		return '#'
	case CellDoor:
		switch c.Door {
		case DoorOpen:
			return '\''
		case DoorClosed:
			return '+'
		case DoorLocked:
			return 'L'
		case DoorBroken:
			return 'x'
		}
		return 'o'
	case CellSecretDoor:
		return 'S'
	case CellStairsUp:
		return '<'
	case CellStairsDown:
		return '>'
	case CellTree:
		return 'T'
	case CellAltar:
		return '_'
	case CellThrone:
		return '\\'
	case CellFountain:
		return '{'
	}
	return '?'
}

// CellFromGlyph is the inverse of Glyph, used to build levels from ASCII maps.
func CellFromGlyph(g byte) (Cell, error) {
	switch g {
	case ' ':
		return Cell{Type: CellRock}, nil
	case '-', '|':
		return Cell{Type: CellWall}, nil
	case '.':
		return Cell{Type: CellFloor, Lit: true}, nil
	case '#':
		return Cell{Type: CellCorridor}, nil
	case '+':
		return Cell{Type: CellDoor, Door: DoorClosed}, nil
	case '\'':
		return Cell{Type: CellDoor, Door: DoorOpen}, nil
	case 'L':
		return Cell{Type: CellDoor, Door: DoorLocked}, nil
	case 'x':
		return Cell{Type: CellDoor, Door: DoorBroken}, nil
	case 'o':
		return Cell{Type: CellDoor, Door: DoorNone}, nil
	case 'S':
		return Cell{Type: CellSecretDoor}, nil
	case '<':
		return Cell{Type: CellStairsUp, Lit: true}, nil
	case '>':
		return Cell{Type: CellStairsDown, Lit: true}, nil
	case 'T':
		return Cell{Type: CellTree}, nil
	case '_':
		return Cell{Type: CellAltar, Lit: true}, nil
	case '\\':
		return Cell{Type: CellThrone, Lit: true}, nil
	case '{':
		return Cell{Type: CellFountain, Lit: true}, nil
	case '=':
		return Cell{Type: CellWall, Nondiggable: true}, nil
	}
	return Cell{}, fmt.Errorf("unknown map glyph %q", g)
}
