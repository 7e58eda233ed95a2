package discovery

import "errors"

var (
	// ErrNoSources is returned when discovery is asked to probe nothing.
	ErrNoSources = errors.New("no source identifiers configured")
	// ErrNoCandidates is returned when candidates are required but none qualified.
	ErrNoCandidates = errors.New("no qualifying candidates")
)
