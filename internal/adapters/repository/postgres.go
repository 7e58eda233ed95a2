package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/viralclip/internal/domain/model"
)

// PostgresStore keeps the ledger in a shared postgres database, for
// deployments that run several instances against one channel.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    queries
}

// NewPostgresStore connects to databaseURL and ensures the ledger table exists.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres ledger: database url is required")
	}
	cfg := newSettings(opts)

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres ledger: parse url: %w", err)
	}
	config.MaxConns = cfg.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres ledger: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ledger: ping: %w", err)
	}

	s := &PostgresStore{pool: pool, q: newQueries(cfg.table, sq.Dollar)}
	if _, err := pool.Exec(ctx, s.q.schema("TIMESTAMPTZ")); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ledger: init schema: %w", err)
	}
	return s, nil
}

// Seen implements Store.
func (s *PostgresStore) Seen(ctx context.Context, videoID string) (bool, error) {
	query, args, err := s.q.seen(videoID)
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("postgres ledger: seen: %w", err)
	}
	return true, nil
}

// Record implements Store.
func (s *PostgresStore) Record(ctx context.Context, rec model.PublishRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	var scheduled *time.Time
	if !rec.ScheduledAt.IsZero() {
		t := rec.ScheduledAt.UTC()
		scheduled = &t
	}
	query, args, err := s.q.insert(rec.VideoID, rec.ExternalID, rec.PublishedAt.UTC(), scheduled)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres ledger: record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, videoID string) (model.PublishRecord, error) {
	query, args, err := s.q.get(videoID)
	if err != nil {
		return model.PublishRecord{}, err
	}
	var (
		rec       model.PublishRecord
		scheduled *time.Time
	)
	err = s.pool.QueryRow(ctx, query, args...).Scan(&rec.VideoID, &rec.ExternalID, &rec.PublishedAt, &scheduled)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.PublishRecord{}, model.ErrNotFound
	case err != nil:
		return model.PublishRecord{}, fmt.Errorf("postgres ledger: get: %w", err)
	}
	if scheduled != nil {
		rec.ScheduledAt = *scheduled
	}
	return rec, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	query, args, err := s.q.count()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres ledger: count: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
