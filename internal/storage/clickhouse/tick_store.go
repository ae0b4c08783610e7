package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse. Ticks are
// append-only; the MergeTree table enforces no uniqueness.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// Insert adds a single tick.
func (s *TickStore) Insert(ctx context.Context, t *domain.Tick) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.Tick{t})
}

// InsertBulk adds multiple ticks as one batch.
func (s *TickStore) InsertBulk(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ticks (
			symbol, ts, price, size, trade_id, event_time, is_buyer_maker
		)
	`)
	if err != nil {
		recordQuery("insert_ticks", start, err)
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(
			t.Symbol, t.Timestamp, t.Price, t.Size,
			t.TradeID, t.EventTime, t.IsBuyerMaker,
		)
		if err != nil {
			recordQuery("insert_ticks", start, err)
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	recordQuery("insert_ticks", start, err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// QueryByTimeRange retrieves ticks for a symbol within [start, end]
// (inclusive), ordered by timestamp ASC. limit <= 0 means no limit.
func (s *TickStore) QueryByTimeRange(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*domain.Tick, error) {
	query := `
		SELECT symbol, ts, price, size, trade_id, event_time, is_buyer_maker
		FROM ticks
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`
	args := []any{symbol, from, to}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	recordQuery("query_ticks", start, err)
	if err != nil {
		return nil, fmt.Errorf("query ticks by time range: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// ListSymbols returns the distinct symbols with stored ticks.
func (s *TickStore) ListSymbols(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM ticks ORDER BY symbol ASC`)
	recordQuery("list_symbols", start, err)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Count returns the number of stored ticks.
func (s *TickStore) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM ticks`).Scan(&count)
	recordQuery("count_ticks", start, err)
	if err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return int64(count), nil
}

func scanTicks(rows driver.Rows) ([]*domain.Tick, error) {
	var ticks []*domain.Tick
	for rows.Next() {
		var t domain.Tick
		err := rows.Scan(
			&t.Symbol,
			&t.Timestamp,
			&t.Price,
			&t.Size,
			&t.TradeID,
			&t.EventTime,
			&t.IsBuyerMaker,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}
