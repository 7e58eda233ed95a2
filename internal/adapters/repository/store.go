// Package repository persists the publication ledger.
package repository

import (
	"context"

	"github.com/okian/viralclip/internal/domain/model"
)

// Store is the durable record of published source videos.
type Store interface {
	// Seen reports whether videoID has a publication record.
	Seen(ctx context.Context, videoID string) (bool, error)

	// Record persists rec. Returns ErrDuplicate if rec.VideoID is already recorded.
	Record(ctx context.Context, rec model.PublishRecord) error

	// Get returns the record for videoID or model.ErrNotFound.
	Get(ctx context.Context, videoID string) (model.PublishRecord, error)

	// Count returns the number of recorded videos.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
