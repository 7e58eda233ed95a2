package schedule

import "errors"

var (
	// ErrNoSlots is returned when no publish slot is configured.
	ErrNoSlots = errors.New("no publish slots configured")
	// ErrInvalidSlot is returned when a slot definition cannot be parsed or is out of range.
	ErrInvalidSlot = errors.New("invalid publish slot")
)
