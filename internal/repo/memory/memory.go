package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/endpointresolver/internal/domain"
	"github.com/hamed0406/endpointresolver/internal/repo"
)

const defaultCapacity = 256

// Store keeps the most recent resolutions in a bounded slice plus alert
// state in a map.
type Store struct {
	mu       sync.RWMutex
	capacity int
	history  []domain.Resolution
	alerts   map[string]repo.AlertRecord
}

func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Store{
		capacity: capacity,
		history:  make([]domain.Resolution, 0, capacity),
		alerts:   make(map[string]repo.AlertRecord),
	}
}

func (m *Store) Append(ctx context.Context, r *domain.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	if len(m.history) == m.capacity {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, *r)
	return nil
}

func (m *Store) Recent(ctx context.Context, limit int) ([]domain.Resolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]domain.Resolution, 0, limit)
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}

func (m *Store) Get(ctx context.Context, key string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[key]
	if !ok {
		return nil, nil
	}
	rr := r
	return &rr, nil
}

func (m *Store) Set(ctx context.Context, key, lastState string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	m.alerts[key] = repo.AlertRecord{Key: key, LastState: lastState, LastSentAt: ts}
	return nil
}
