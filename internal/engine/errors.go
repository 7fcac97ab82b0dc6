package engine

import "errors"

var (
	// ErrIllegalCommand means the command is infeasible in the current state.
	// The turn does not advance and no random draws are consumed.
	ErrIllegalCommand = errors.New("illegal command")
	ErrSessionEnded   = errors.New("session has ended")
	ErrBadMap         = errors.New("bad level map")
)

func illegal(reason string) error {
	return &IllegalCommandError{Reason: reason}
}

// IllegalCommandError carries the player-facing reason a command was refused.
type IllegalCommandError struct {
	Reason string
}

func (e *IllegalCommandError) Error() string { return "illegal command: " + e.Reason }

func (e *IllegalCommandError) Unwrap() error { return ErrIllegalCommand }
