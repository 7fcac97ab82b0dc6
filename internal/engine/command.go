package engine

import (
	"fmt"
	"strings"

	"github.com/MJE43/nh-parity-go/internal/world"
)

// CommandKind enumerates the player intents the kernel understands.
type CommandKind uint8

const (
	CmdMove CommandKind = iota + 1
	CmdDig
	CmdSearch
	CmdPickUp
	CmdDrop
	CmdRest
	CmdQuit
)

func (k CommandKind) String() string {
	switch k {
	case CmdMove:
		return "move"
	case CmdDig:
		return "dig"
	case CmdSearch:
		return "search"
	case CmdPickUp:
		return "pickup"
	case CmdDrop:
		return "drop"
	case CmdRest:
		return "rest"
	case CmdQuit:
		return "quit"
	}
	return fmt.Sprintf("command(%d)", k)
}

// Command is one player intent. Dir is set for Move and Dig, Letter for Drop.
type Command struct {
	Kind   CommandKind
	Dir    world.Direction
	Letter byte
}

func Move(d world.Direction) Command { return Command{Kind: CmdMove, Dir: d} }
func Dig(d world.Direction) Command  { return Command{Kind: CmdDig, Dir: d} }
func Search() Command                { return Command{Kind: CmdSearch} }
func PickUp() Command                { return Command{Kind: CmdPickUp} }
func Drop(letter byte) Command       { return Command{Kind: CmdDrop, Letter: letter} }
func Rest() Command                  { return Command{Kind: CmdRest} }
func Quit() Command                  { return Command{Kind: CmdQuit} }

// Validate checks the command's shape without looking at any game state.
func (c Command) Validate() error {
	switch c.Kind {
	case CmdMove:
		if !c.Dir.Horizontal() {
			return illegal("move needs a compass direction")
		}
	case CmdDig:
		if c.Dir == world.DirNone {
			return illegal("dig needs a direction")
		}
	case CmdDrop:
		if !isLetter(c.Letter) && c.Letter != '$' {
			return illegal("drop needs an inventory letter")
		}
	case CmdSearch, CmdPickUp, CmdRest, CmdQuit:
	default:
		return illegal(fmt.Sprintf("unknown command kind %d", c.Kind))
	}
	return nil
}

func (c Command) String() string {
	switch c.Kind {
	case CmdMove, CmdDig:
		return c.Kind.String() + " " + c.Dir.String()
	case CmdDrop:
		return "drop " + string(c.Letter)
	}
	return c.Kind.String()
}

// MarshalText encodes the command in its fixture form, e.g. "dig e".
func (c Command) MarshalText() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return []byte(c.String()), nil
}

func (c *Command) UnmarshalText(b []byte) error {
	parsed, err := ParseCommand(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommand reads the text form of a command.
func ParseCommand(s string) (Command, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("parse command: empty")
	}

	var cmd Command
	switch fields[0] {
	case "move", "go":
		cmd.Kind = CmdMove
	case "dig", "apply":
		cmd.Kind = CmdDig
	case "search", "s":
		cmd.Kind = CmdSearch
	case "pickup", "pick-up", ",":
		cmd.Kind = CmdPickUp
	case "drop", "d":
		cmd.Kind = CmdDrop
	case "rest", "wait", ".":
		cmd.Kind = CmdRest
	case "quit":
		cmd.Kind = CmdQuit
	default:
		return Command{}, fmt.Errorf("parse command %q: unknown verb", s)
	}

	switch cmd.Kind {
	case CmdMove, CmdDig:
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("parse command %q: want a direction", s)
		}
		d, err := world.ParseDirection(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("parse command %q: %w", s, err)
		}
		cmd.Dir = d
	case CmdDrop:
		if len(fields) != 2 || len(fields[1]) != 1 {
			return Command{}, fmt.Errorf("parse command %q: want an inventory letter", s)
		}
		// Letters are case sensitive, so take them from the original text.
		orig := strings.Fields(s)
		cmd.Letter = orig[1][0]
	default:
		if len(fields) != 1 {
			return Command{}, fmt.Errorf("parse command %q: unexpected argument", s)
		}
	}

	if err := cmd.Validate(); err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", s, err)
	}
	return cmd, nil
}

// ParseCommands parses a list of text commands, failing on the first bad one.
func ParseCommands(lines []string) ([]Command, error) {
	out := make([]Command, 0, len(lines))
	for i, l := range lines {
		c, err := ParseCommand(l)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
