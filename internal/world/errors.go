package world

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrOutOfBounds  = errors.New("coordinate out of bounds")
	ErrInvalidState = errors.New("invalid state for operation")
)
