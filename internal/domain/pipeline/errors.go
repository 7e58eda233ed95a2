package pipeline

import (
	"errors"
	"fmt"
)

// ErrPermanent marks a collaborator failure that retrying cannot fix,
// such as a removed or private source video.
var ErrPermanent = errors.New("permanent failure")

// ErrMissingArtifact is returned when a stage reports success without
// leaving its output on disk.
var ErrMissingArtifact = errors.New("stage produced no artifact")

// Permanent wraps err so errors.Is(err, ErrPermanent) holds.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Error reports the stage a pipeline run failed in.
type Error struct {
	Stage Stage
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }
