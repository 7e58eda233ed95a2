package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/okian/viralclip/internal/domain/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the ledger in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
	q  queries
}

// NewSQLiteStore opens (or creates) the ledger database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite ledger: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite ledger: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite ledger: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	cfg := newSettings(opts)
	s := &SQLiteStore{db: db, q: newQueries(cfg.table, sq.Question)}
	if _, err := db.ExecContext(ctx, s.q.schema("TEXT")); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ledger: init schema: %w", err)
	}
	return s, nil
}

// Seen implements Store.
func (s *SQLiteStore) Seen(ctx context.Context, videoID string) (bool, error) {
	query, args, err := s.q.seen(videoID)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("sqlite ledger: seen: %w", err)
	}
	return true, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, rec model.PublishRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	var scheduled sql.NullString
	if !rec.ScheduledAt.IsZero() {
		scheduled = sql.NullString{String: formatTime(rec.ScheduledAt), Valid: true}
	}
	query, args, err := s.q.insert(rec.VideoID, rec.ExternalID, formatTime(rec.PublishedAt), scheduled)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite ledger: record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite ledger: record: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, videoID string) (model.PublishRecord, error) {
	query, args, err := s.q.get(videoID)
	if err != nil {
		return model.PublishRecord{}, err
	}
	var (
		rec       model.PublishRecord
		published string
		scheduled sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&rec.VideoID, &rec.ExternalID, &published, &scheduled)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.PublishRecord{}, model.ErrNotFound
	case err != nil:
		return model.PublishRecord{}, fmt.Errorf("sqlite ledger: get: %w", err)
	}
	if rec.PublishedAt, err = time.Parse(time.RFC3339Nano, published); err != nil {
		return model.PublishRecord{}, fmt.Errorf("sqlite ledger: published_at: %w", err)
	}
	if scheduled.Valid {
		if rec.ScheduledAt, err = time.Parse(time.RFC3339Nano, scheduled.String); err != nil {
			return model.PublishRecord{}, fmt.Errorf("sqlite ledger: scheduled_at: %w", err)
		}
	}
	return rec, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	query, args, err := s.q.count()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite ledger: count: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
