package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBusy = errors.New("busy")
)
