package repository

import "errors"

// Sentinel kinds for ledger storage errors.
var (
	ErrDuplicate      = errors.New("video already recorded")
	ErrUnknownBackend = errors.New("unknown ledger backend")
	ErrInvalidRecord  = errors.New("invalid publish record")
	ErrClosed         = errors.New("ledger store closed")
)
