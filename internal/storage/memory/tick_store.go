package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu    sync.RWMutex
	ticks []*domain.Tick
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// Insert adds a single tick.
func (s *TickStore) Insert(_ context.Context, t *domain.Tick) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.ticks = append(s.ticks, &cp)
	return nil
}

// InsertBulk adds multiple ticks atomically.
func (s *TickStore) InsertBulk(_ context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range ticks {
		cp := *t
		s.ticks = append(s.ticks, &cp)
	}
	return nil
}

// QueryByTimeRange retrieves ticks for a symbol within [start, end]
// (inclusive), ordered by timestamp ASC. limit <= 0 means no limit.
func (s *TickStore) QueryByTimeRange(_ context.Context, symbol string, start, end time.Time, limit int) ([]*domain.Tick, error) {
	s.mu.RLock()

	var result []*domain.Tick
	for _, t := range s.ticks {
		if t.Symbol != symbol {
			continue
		}
		if t.Timestamp.Before(start) || t.Timestamp.After(end) {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	s.mu.RUnlock()

	domain.SortTicksByTime(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListSymbols returns the distinct symbols with stored ticks, sorted.
func (s *TickStore) ListSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})
	for _, t := range s.ticks {
		seen[t.Symbol] = struct{}{}
	}
	s.mu.RUnlock()

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Count returns the number of stored ticks.
func (s *TickStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.ticks)), nil
}
