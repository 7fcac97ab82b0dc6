package world

import (
	"fmt"
	"strings"
)

// Coord is a position on a level grid. X grows east, Y grows south.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns c offset by (dx, dy).
func (c Coord) Add(dx, dy int) Coord { return Coord{c.X + dx, c.Y + dy} }

// Step returns the neighbouring coordinate in direction d.
func (c Coord) Step(d Direction) Coord {
	dx, dy := d.Delta()
	return c.Add(dx, dy)
}

// Dist2 is the squared euclidean distance, as NetHack's distu uses.
func (c Coord) Dist2(o Coord) int {
	dx, dy := c.X-o.X, c.Y-o.Y
	return dx*dx + dy*dy
}

// Adjacent reports whether o is one of the eight neighbours of c.
func (c Coord) Adjacent(o Coord) bool {
	d := c.Dist2(o)
	return d > 0 && d <= 2
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Direction is one of the eight compass directions or a vertical one.
type Direction uint8

const (
	DirNone Direction = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	Up
	Down
)

// Compass lists the horizontal directions in the order monsters try them.
var Compass = [8]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var dirNames = map[Direction]string{
	North: "n", NorthEast: "ne", East: "e", SouthEast: "se",
	South: "s", SouthWest: "sw", West: "w", NorthWest: "nw",
	Up: "up", Down: "down",
}

// Delta returns the grid offset for d. Vertical directions have no offset.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 0, -1
	case NorthEast:
		return 1, -1
	case East:
		return 1, 0
	case SouthEast:
		return 1, 1
	case South:
		return 0, 1
	case SouthWest:
		return -1, 1
	case West:
		return -1, 0
	case NorthWest:
		return -1, -1
	case DirNone, Up, Down:
		return 0, 0
	}
	panic(fmt.Sprintf("world: unknown direction %d", d))
}

// Horizontal reports whether d moves across the grid.
func (d Direction) Horizontal() bool { return d >= North && d <= NorthWest }

// Diagonal reports whether d is one of the four diagonals.
func (d Direction) Diagonal() bool {
	return d == NorthEast || d == SouthEast || d == SouthWest || d == NorthWest
}

func (d Direction) String() string {
	if s, ok := dirNames[d]; ok {
		return s
	}
	return "none"
}

// ParseDirection accepts short compass names ("ne") and long names
// ("northeast"). "<" and ">" are accepted for up and down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return North, nil
	case "ne", "northeast":
		return NorthEast, nil
	case "e", "east":
		return East, nil
	case "se", "southeast":
		return SouthEast, nil
	case "s", "south":
		return South, nil
	case "sw", "southwest":
		return SouthWest, nil
	case "w", "west":
		return West, nil
	case "nw", "northwest":
		return NorthWest, nil
	case "up", "<":
		return Up, nil
	case "down", ">":
		return Down, nil
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}
