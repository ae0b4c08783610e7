package storage

import (
	"context"
	"time"

	"tickpipe/internal/domain"
)

// TickStore provides access to raw tick storage.
type TickStore interface {
	// Insert adds a single tick.
	Insert(ctx context.Context, t *domain.Tick) error

	// InsertBulk adds multiple ticks atomically.
	InsertBulk(ctx context.Context, ticks []*domain.Tick) error

	// QueryByTimeRange retrieves ticks for a symbol within [start, end]
	// (inclusive), ordered by timestamp ASC. limit <= 0 means no limit.
	QueryByTimeRange(ctx context.Context, symbol string, start, end time.Time, limit int) ([]*domain.Tick, error)

	// ListSymbols returns the distinct symbols with stored ticks.
	ListSymbols(ctx context.Context) ([]string, error)

	// Count returns the number of stored ticks.
	Count(ctx context.Context) (int64, error)
}

// OHLCStore provides access to resampled bar storage. Bars are keyed
// by (symbol, timeframe, bucket_start); writing an existing key
// replaces the bar.
type OHLCStore interface {
	// Upsert writes a single bar.
	Upsert(ctx context.Context, bar *domain.OHLCBar) error

	// UpsertBulk writes multiple bars atomically.
	UpsertBulk(ctx context.Context, bars []*domain.OHLCBar) error

	// QueryByTimeRange retrieves bars for a symbol and timeframe within
	// [start, end] (inclusive), ordered by bucket start ASC. limit <= 0
	// means no limit.
	QueryByTimeRange(ctx context.Context, symbol string, tf domain.Timeframe, start, end time.Time, limit int) ([]*domain.OHLCBar, error)

	// Count returns the number of stored bars.
	Count(ctx context.Context) (int64, error)
}
