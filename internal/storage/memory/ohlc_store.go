package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

// OHLCStore is an in-memory implementation of storage.OHLCStore.
type OHLCStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OHLCBar // keyed by symbol|timeframe|bucket
}

// NewOHLCStore creates a new in-memory bar store.
func NewOHLCStore() *OHLCStore {
	return &OHLCStore{
		data: make(map[string]*domain.OHLCBar),
	}
}

// Compile-time interface check.
var _ storage.OHLCStore = (*OHLCStore)(nil)

// barKey generates the unique key for a bar.
func barKey(symbol string, tf domain.Timeframe, bucket time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, tf.String(), bucket.UnixMilli())
}

// Upsert writes a single bar, replacing any existing bar for the same
// symbol, timeframe and bucket.
func (s *OHLCStore) Upsert(_ context.Context, bar *domain.OHLCBar) error {
	if bar == nil || bar.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *bar
	s.data[barKey(bar.Symbol, bar.Timeframe, bar.BucketStart)] = &cp
	return nil
}

// UpsertBulk writes multiple bars atomically.
func (s *OHLCStore) UpsertBulk(_ context.Context, bars []*domain.OHLCBar) error {
	if len(bars) == 0 {
		return nil
	}
	for _, bar := range bars {
		if bar == nil || bar.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bar := range bars {
		cp := *bar
		s.data[barKey(bar.Symbol, bar.Timeframe, bar.BucketStart)] = &cp
	}
	return nil
}

// QueryByTimeRange retrieves bars for a symbol and timeframe within
// [start, end] (inclusive), ordered by bucket start ASC.
func (s *OHLCStore) QueryByTimeRange(_ context.Context, symbol string, tf domain.Timeframe, start, end time.Time, limit int) ([]*domain.OHLCBar, error) {
	s.mu.RLock()

	var result []*domain.OHLCBar
	for _, bar := range s.data {
		if bar.Symbol != symbol || bar.Timeframe != tf {
			continue
		}
		if bar.BucketStart.Before(start) || bar.BucketStart.After(end) {
			continue
		}
		cp := *bar
		result = append(result, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].BucketStart.Before(result[j].BucketStart)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored bars.
func (s *OHLCStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}
