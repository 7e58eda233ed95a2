package service

import (
	"errors"
)

// Sentinel errors for the cycle service.
var (
	ErrCycleRunning = errors.New("a cycle is already running")
	ErrNoLedger     = errors.New("no ledger configured")
	ErrStopping     = errors.New("service is stopping")
)

// PublishFailedError reports a rendered clip the publisher rejected. The video
// stays unseen so a later cycle retries it.
type PublishFailedError struct {
	VideoID string
	Kept    string // path of the retained file, empty when discarded
	Cause   error
}

func (e *PublishFailedError) Error() string {
	return "publish " + e.VideoID + ": " + e.Cause.Error()
}

func (e *PublishFailedError) Unwrap() error { return e.Cause }

// UnrecordedError reports a clip that was uploaded but could not be written
// to the ledger. The video keeps its pending claim for the life of the
// process; ExternalID identifies the upload for manual reconciliation.
type UnrecordedError struct {
	VideoID    string
	ExternalID string
	Cause      error
}

func (e *UnrecordedError) Error() string {
	return "record " + e.VideoID + " (uploaded as " + e.ExternalID + "): " + e.Cause.Error()
}

func (e *UnrecordedError) Unwrap() error { return e.Cause }
