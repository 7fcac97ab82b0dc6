package world

import "fmt"

type TrapID uint32

type TrapType uint8

const (
	TrapArrow TrapType = iota + 1
	TrapDart
	TrapBear
	TrapPit
	TrapSqueakyBoard
	TrapLandmine
)

func (t TrapType) String() string {
	switch t {
	case TrapArrow:
		return "arrow_trap"
	case TrapDart:
		return "dart_trap"
	case TrapBear:
		return "bear_trap"
	case TrapPit:
		return "pit"
	case TrapSqueakyBoard:
		return "squeaky_board"
	case TrapLandmine:
		return "land_mine"
	}
	return fmt.Sprintf("trap(%d)", t)
}

// ParseTrapType maps a snapshot name back to its type.
func ParseTrapType(s string) (TrapType, error) {
	for t := TrapArrow; t <= TrapLandmine; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trap type %q", s)
}

// DefaultCharges is the ammunition a freshly made trap starts with. Zero
// means the trap is not charge limited.
func (t TrapType) DefaultCharges() int {
	switch t {
	case TrapArrow, TrapDart:
		return 5
	case TrapBear, TrapPit, TrapSqueakyBoard, TrapLandmine:
		return 0
	}
	return 0
}

type TrapState uint8

const (
	TrapArmed TrapState = iota
	TrapTriggered
	TrapDisarmed
	TrapDestroyed
)

func (s TrapState) String() string {
	switch s {
	case TrapArmed:
		return "armed"
	case TrapTriggered:
		return "triggered"
	case TrapDisarmed:
		return "disarmed"
	case TrapDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("trapstate(%d)", s)
}

// Trap is owned by the level it sits on.
type Trap struct {
	ID      TrapID
	Type    TrapType
	Pos     Coord
	State   TrapState
	Charges int
	Seen    bool
}

// Active reports whether stepping on the trap can set it off.
func (t *Trap) Active() bool {
	return t.State == TrapArmed || t.State == TrapTriggered
}

// Trigger fires an armed trap. A trap stays live after firing, so triggering
// an already triggered trap is allowed.
func (t *Trap) Trigger() error {
	if !t.Active() {
		return fmt.Errorf("trigger %s %d while %s: %w", t.Type, t.ID, t.State, ErrInvalidState)
	}
	t.State = TrapTriggered
	t.Seen = true
	return nil
}

// Disarm makes a live trap harmless.
func (t *Trap) Disarm() error {
	if !t.Active() {
		return fmt.Errorf("disarm %s %d while %s: %w", t.Type, t.ID, t.State, ErrInvalidState)
	}
	t.State = TrapDisarmed
	return nil
}

// Destroy removes the trap's function permanently.
func (t *Trap) Destroy() error {
	if t.State == TrapDestroyed {
		return fmt.Errorf("destroy %s %d: already destroyed: %w", t.Type, t.ID, ErrInvalidState)
	}
	t.State = TrapDestroyed
	return nil
}

// UseCharge spends one unit of ammunition. It reports false when a charge
// limited trap has run dry.
func (t *Trap) UseCharge() bool {
	if t.Type.DefaultCharges() == 0 {
		return true
	}
	if t.Charges <= 0 {
		return false
	}
	t.Charges--
	return true
}
