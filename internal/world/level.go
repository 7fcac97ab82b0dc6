package world

import (
	"fmt"
	"slices"
)

type LevelID int

// Level owns its terrain and traps. Monsters and ground objects are only
// referenced by ID; the Dungeon holds the entities themselves.
type Level struct {
	ID     LevelID
	Width  int
	Height int

	cells    []Cell
	traps    map[TrapID]*Trap
	monsters []MonsterID
	objects  []ObjectID
}

func newLevel(id LevelID, w, h int) *Level {
	return &Level{
		ID:     id,
		Width:  w,
		Height: h,
		cells:  make([]Cell, w*h),
		traps:  make(map[TrapID]*Trap),
	}
}

// InBounds reports whether c lies on the grid.
func (l *Level) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < l.Width && c.Y < l.Height
}

func (l *Level) index(c Coord) (int, error) {
	if !l.InBounds(c) {
		return 0, fmt.Errorf("level %d %s: %w", l.ID, c, ErrOutOfBounds)
	}
	return c.Y*l.Width + c.X, nil
}

// Cell returns the square at c.
func (l *Level) Cell(c Coord) (Cell, error) {
	i, err := l.index(c)
	if err != nil {
		return Cell{}, err
	}
	return l.cells[i], nil
}

// SetCell replaces the square at c.
func (l *Level) SetCell(c Coord, cell Cell) error {
	i, err := l.index(c)
	if err != nil {
		return err
	}
	l.cells[i] = cell
	return nil
}

// Passable reports whether a walker can enter c.
func (l *Level) Passable(c Coord) (bool, error) {
	cell, err := l.Cell(c)
	if err != nil {
		return false, err
	}
	return cell.Passable(), nil
}

// Diggable reports whether c can be tunnelled through.
func (l *Level) Diggable(c Coord) (bool, error) {
	cell, err := l.Cell(c)
	if err != nil {
		return false, err
	}
	return cell.Diggable(), nil
}

// Row returns the glyphs of row y.
func (l *Level) Row(y int) string {
	b := make([]byte, l.Width)
	for x := 0; x < l.Width; x++ {
		b[x] = l.cells[y*l.Width+x].Glyph()
	}
	return string(b)
}

// LitRow returns row y's lighting as '0'/'1' characters.
func (l *Level) LitRow(y int) string {
	b := make([]byte, l.Width)
	for x := 0; x < l.Width; x++ {
		if l.cells[y*l.Width+x].Lit {
			b[x] = '1'
		} else {
			b[x] = '0'
		}
	}
	return string(b)
}

// TrapAt returns the trap at c, if any.
func (l *Level) TrapAt(c Coord) (*Trap, bool) {
	for _, t := range l.traps {
		if t.Pos == c {
			return t, true
		}
	}
	return nil, false
}

// Trap looks a trap up by ID.
func (l *Level) Trap(id TrapID) (*Trap, error) {
	t, ok := l.traps[id]
	if !ok {
		return nil, fmt.Errorf("trap %d on level %d: %w", id, l.ID, ErrNotFound)
	}
	return t, nil
}

// Traps returns the level's traps ordered by ID.
func (l *Level) Traps() []*Trap {
	out := make([]*Trap, 0, len(l.traps))
	for _, t := range l.traps {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Trap) int { return int(a.ID) - int(b.ID) })
	return out
}

// MonsterIDs returns the IDs of monsters on the level in ascending order.
func (l *Level) MonsterIDs() []MonsterID { return slices.Clone(l.monsters) }

// ObjectIDs returns the IDs of objects on the floor in ascending order.
func (l *Level) ObjectIDs() []ObjectID { return slices.Clone(l.objects) }

func insertSorted[T ~uint32](s []T, v T) []T {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}

func removeSorted[T ~uint32](s []T, v T) []T {
	i, found := slices.BinarySearch(s, v)
	if !found {
		return s
	}
	return slices.Delete(s, i, i+1)
}
