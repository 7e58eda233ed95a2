package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/viralclip/internal/domain/model"
)

// New opens the store for backend. dsn is a file path for sqlite and a
// connection URL for postgres; memory ignores it.
func New(ctx context.Context, backend, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		return NewSQLiteStore(ctx, dsn, opts...)
	case BackendPostgres:
		return NewPostgresStore(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func validate(rec model.PublishRecord) error {
	if strings.TrimSpace(rec.VideoID) == "" {
		return fmt.Errorf("%w: empty video id", ErrInvalidRecord)
	}
	return nil
}
