package repository

import (
	"context"
	"sync"

	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
)

// MemoryRepository keeps recordings in process. It follows the same ordering
// and range rules as PgRepository and backs the service and handler tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	recs []domain.Recording
	seq  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(_ context.Context, rec domain.Recording) (domain.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rec.Seq = m.seq
	if rec.Extra == nil {
		rec.Extra = map[string]any{}
	}
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *MemoryRepository) List(_ context.Context, filter domain.Filter, skip, limit int) ([]domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Recording, 0, limit)
	seen := 0
	for _, rec := range m.recs {
		if !matches(filter, rec) {
			continue
		}
		if seen >= skip && len(out) < limit {
			out = append(out, rec)
		}
		seen++
	}
	return out, nil
}

func (m *MemoryRepository) Count(_ context.Context, filter domain.Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, rec := range m.recs {
		if matches(filter, rec) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) All(_ context.Context) ([]domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Recording, len(m.recs))
	copy(out, m.recs)
	return out, nil
}

func matches(filter domain.Filter, rec domain.Recording) bool {
	if !filter.Active() {
		return true
	}
	if rec.Date == nil {
		return false
	}
	return !rec.Date.Before(*filter.From) && !rec.Date.After(*filter.To)
}
