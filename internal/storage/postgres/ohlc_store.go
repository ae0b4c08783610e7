package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

// OHLCStore implements storage.OHLCStore using PostgreSQL. Bars are
// upserted on the (symbol, timeframe, bucket_start) primary key so a
// re-resampled window overwrites its earlier bars.
type OHLCStore struct {
	pool *Pool
}

// NewOHLCStore creates a new OHLCStore.
func NewOHLCStore(pool *Pool) *OHLCStore {
	return &OHLCStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OHLCStore = (*OHLCStore)(nil)

const upsertBarQuery = `
	INSERT INTO ohlc_bars (
		symbol, timeframe, bucket_start, open, high, low, close, volume, trade_count
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (symbol, timeframe, bucket_start) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		trade_count = EXCLUDED.trade_count
`

// Upsert writes a single bar.
func (s *OHLCStore) Upsert(ctx context.Context, bar *domain.OHLCBar) error {
	if bar == nil || bar.Symbol == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, upsertBarQuery,
		bar.Symbol,
		bar.Timeframe.String(),
		bar.BucketStart,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
		bar.TradeCount,
	)
	recordQuery("upsert_bar", start, err)
	if err != nil {
		return fmt.Errorf("upsert bar: %w", err)
	}
	return nil
}

// UpsertBulk writes multiple bars atomically.
func (s *OHLCStore) UpsertBulk(ctx context.Context, bars []*domain.OHLCBar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, bar := range bars {
		if bar == nil || bar.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, upsertBarQuery,
			bar.Symbol,
			bar.Timeframe.String(),
			bar.BucketStart,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			bar.TradeCount,
		)
		if err != nil {
			recordQuery("upsert_bars_bulk", start, err)
			return fmt.Errorf("upsert bar in bulk: %w", err)
		}
	}

	err = tx.Commit(ctx)
	recordQuery("upsert_bars_bulk", start, err)
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// QueryByTimeRange retrieves bars for a symbol and timeframe within
// [start, end] (inclusive), ordered by bucket start ASC.
func (s *OHLCStore) QueryByTimeRange(ctx context.Context, symbol string, tf domain.Timeframe, from, to time.Time, limit int) ([]*domain.OHLCBar, error) {
	query := `
		SELECT symbol, timeframe, bucket_start, open, high, low, close, volume, trade_count
		FROM ohlc_bars
		WHERE symbol = $1 AND timeframe = $2 AND bucket_start >= $3 AND bucket_start <= $4
		ORDER BY bucket_start ASC
	`
	args := []any{symbol, tf.String(), from, to}
	if limit > 0 {
		query += " LIMIT $5"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	recordQuery("query_bars", start, err)
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// Count returns the number of stored bars.
func (s *OHLCStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM ohlc_bars`).Scan(&count)
	recordQuery("count_bars", start, err)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return count, nil
}

func scanBars(rows pgx.Rows) ([]*domain.OHLCBar, error) {
	var bars []*domain.OHLCBar
	for rows.Next() {
		var (
			b  domain.OHLCBar
			tf string
		)
		err := rows.Scan(
			&b.Symbol,
			&tf,
			&b.BucketStart,
			&b.Open,
			&b.High,
			&b.Low,
			&b.Close,
			&b.Volume,
			&b.TradeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		parsed, err := domain.ParseTimeframe(tf)
		if err != nil {
			return nil, fmt.Errorf("parse stored timeframe %q: %w", tf, err)
		}
		b.Timeframe = parsed
		bars = append(bars, &b)
	}
	return bars, rows.Err()
}
