// Package dedupe guarantees at-most-once publication per source video.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/viralclip/internal/domain/model"
	"github.com/okian/viralclip/pkg/logger"
	"github.com/okian/viralclip/pkg/metrics"
)

// ErrNotClaimed is returned when recording a video that holds no pending claim.
var ErrNotClaimed = errors.New("video not claimed")

// Store is the durable side of the ledger.
type Store interface {
	Seen(ctx context.Context, videoID string) (bool, error)
	Record(ctx context.Context, rec model.PublishRecord) error
	Count(ctx context.Context) (int64, error)
}

// Ledger tracks which source videos were published or are being worked on.
type Ledger interface {
	// Claim atomically checks videoID against the durable ledger and the
	// pending set and marks it pending if absent.
	// Returns true if the caller now owns videoID, false if it was already
	// published or claimed.
	Claim(ctx context.Context, videoID string) (bool, error)

	// Release drops a pending claim so the video may be retried later.
	// Used when the work for a claimed video failed before publication.
	Release(ctx context.Context, videoID string)

	// Record durably marks rec.VideoID as published and clears its claim.
	// Only call after the publish acknowledgement was received.
	Record(ctx context.Context, rec model.PublishRecord) error

	// Seen reports whether videoID is published or pending.
	Seen(ctx context.Context, videoID string) (bool, error)

	// Size returns the number of durably recorded videos.
	Size(ctx context.Context) (int64, error)

	// Pending returns the number of outstanding claims.
	Pending() int
}

// storeLedger implements Ledger over a durable Store plus an in-memory
// pending set. Claim holds mu across the store lookup so two claims for the
// same id cannot both succeed.
type storeLedger struct {
	mu      sync.Mutex
	store   Store
	pending map[string]time.Time
	now     func() time.Time
	log     logger.Logger
}

// NewLedger creates a ledger over store with configuration options.
func NewLedger(store Store, opts ...Option) Ledger {
	l := &storeLedger{
		store:   store,
		pending: make(map[string]time.Time),
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *storeLedger) Claim(ctx context.Context, videoID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[videoID]; ok {
		return false, nil
	}
	seen, err := l.store.Seen(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", videoID, err)
	}
	if seen {
		return false, nil
	}
	l.pending[videoID] = l.now()
	return true, nil
}

func (l *storeLedger) Release(ctx context.Context, videoID string) {
	l.mu.Lock()
	claimed, ok := l.pending[videoID]
	delete(l.pending, videoID)
	l.mu.Unlock()

	if ok {
		l.log.Debug(ctx, "claim released",
			logger.String("video_id", videoID),
			logger.Duration("held", l.now().Sub(claimed)))
	}
}

func (l *storeLedger) Record(ctx context.Context, rec model.PublishRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[rec.VideoID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotClaimed, rec.VideoID)
	}
	if err := l.store.Record(ctx, rec); err != nil {
		return fmt.Errorf("record %s: %w", rec.VideoID, err)
	}
	delete(l.pending, rec.VideoID)

	if n, err := l.store.Count(ctx); err == nil {
		metrics.UpdateLedgerSize(n)
	}
	return nil
}

func (l *storeLedger) Seen(ctx context.Context, videoID string) (bool, error) {
	l.mu.Lock()
	_, pending := l.pending[videoID]
	l.mu.Unlock()
	if pending {
		return true, nil
	}
	return l.store.Seen(ctx, videoID)
}

func (l *storeLedger) Size(ctx context.Context) (int64, error) {
	return l.store.Count(ctx)
}

func (l *storeLedger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
