package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

// OHLCStore implements storage.OHLCStore using ClickHouse. Upsert
// semantics come from ReplacingMergeTree keyed on (symbol, timeframe,
// bucket_start) with an insert-time version column; queries read
// through FINAL so a re-resampled bar shadows its predecessor.
type OHLCStore struct {
	conn *Conn
}

// NewOHLCStore creates a new OHLCStore.
func NewOHLCStore(conn *Conn) *OHLCStore {
	return &OHLCStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OHLCStore = (*OHLCStore)(nil)

// Upsert writes a single bar.
func (s *OHLCStore) Upsert(ctx context.Context, bar *domain.OHLCBar) error {
	if bar == nil || bar.Symbol == "" {
		return storage.ErrInvalidInput
	}
	return s.UpsertBulk(ctx, []*domain.OHLCBar{bar})
}

// UpsertBulk writes multiple bars as one batch.
func (s *OHLCStore) UpsertBulk(ctx context.Context, bars []*domain.OHLCBar) error {
	if len(bars) == 0 {
		return nil
	}
	for _, bar := range bars {
		if bar == nil || bar.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ohlc_bars (
			symbol, timeframe, bucket_start, open, high, low, close, volume, trade_count, version
		)
	`)
	if err != nil {
		recordQuery("upsert_bars", start, err)
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := uint64(time.Now().UnixNano())
	for _, bar := range bars {
		err = batch.Append(
			bar.Symbol,
			bar.Timeframe.String(),
			bar.BucketStart,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			uint32(bar.TradeCount),
			version,
		)
		if err != nil {
			recordQuery("upsert_bars", start, err)
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	recordQuery("upsert_bars", start, err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// QueryByTimeRange retrieves bars for a symbol and timeframe within
// [start, end] (inclusive), ordered by bucket start ASC.
func (s *OHLCStore) QueryByTimeRange(ctx context.Context, symbol string, tf domain.Timeframe, from, to time.Time, limit int) ([]*domain.OHLCBar, error) {
	query := `
		SELECT symbol, timeframe, bucket_start, open, high, low, close, volume, trade_count
		FROM ohlc_bars FINAL
		WHERE symbol = ? AND timeframe = ? AND bucket_start >= ? AND bucket_start <= ?
		ORDER BY bucket_start ASC
	`
	args := []any{symbol, tf.String(), from, to}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	recordQuery("query_bars", start, err)
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// Count returns the number of stored bars after replacement collapses.
func (s *OHLCStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM ohlc_bars FINAL`).Scan(&count)
	recordQuery("count_bars", start, err)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return int64(count), nil
}

func scanBars(rows driver.Rows) ([]*domain.OHLCBar, error) {
	var bars []*domain.OHLCBar
	for rows.Next() {
		var (
			b          domain.OHLCBar
			tf         string
			tradeCount uint32
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
			&tradeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		parsed, err := domain.ParseTimeframe(tf)
		if err != nil {
			return nil, fmt.Errorf("parse stored timeframe %q: %w", tf, err)
		}
		b.Timeframe = parsed
		b.TradeCount = int(tradeCount)
		bars = append(bars, &b)
	}
	return bars, rows.Err()
}
