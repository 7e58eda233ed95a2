package repository

import (
	"context"
	"sync"

	"github.com/okian/viralclip/internal/domain/model"
)

// MemoryStore keeps the ledger in process memory. Records are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.PublishRecord
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.PublishRecord)}
}

// Seen implements Store.
func (s *MemoryStore) Seen(_ context.Context, videoID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.records[videoID]
	return ok, nil
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, rec model.PublishRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.records[rec.VideoID]; ok {
		return ErrDuplicate
	}
	s.records[rec.VideoID] = rec
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, videoID string) (model.PublishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.PublishRecord{}, ErrClosed
	}
	rec, ok := s.records[videoID]
	if !ok {
		return model.PublishRecord{}, model.ErrNotFound
	}
	return rec, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return int64(len(s.records)), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
