package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

// TickStore implements storage.TickStore using PostgreSQL.
type TickStore struct {
	pool *Pool
}

// NewTickStore creates a new TickStore.
func NewTickStore(pool *Pool) *TickStore {
	return &TickStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

const insertTickQuery = `
	INSERT INTO ticks (
		symbol, ts, price, size, trade_id, event_time, is_buyer_maker
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Insert adds a single tick.
func (s *TickStore) Insert(ctx context.Context, t *domain.Tick) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, insertTickQuery,
		t.Symbol,
		t.Timestamp,
		t.Price,
		t.Size,
		t.TradeID,
		t.EventTime,
		t.IsBuyerMaker,
	)
	recordQuery("insert_tick", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

// InsertBulk adds multiple ticks atomically.
func (s *TickStore) InsertBulk(ctx context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertTickQuery,
			t.Symbol,
			t.Timestamp,
			t.Price,
			t.Size,
			t.TradeID,
			t.EventTime,
			t.IsBuyerMaker,
		)
		if err != nil {
			recordQuery("insert_ticks_bulk", start, err)
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert tick in bulk: %w", err)
		}
	}

	err = tx.Commit(ctx)
	recordQuery("insert_ticks_bulk", start, err)
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// QueryByTimeRange retrieves ticks for a symbol within [start, end]
// (inclusive), ordered by timestamp ASC. limit <= 0 means no limit.
func (s *TickStore) QueryByTimeRange(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*domain.Tick, error) {
	query := `
		SELECT symbol, ts, price, size, trade_id, event_time, is_buyer_maker
		FROM ticks
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts ASC, trade_id ASC
	`
	args := []any{symbol, from, to}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
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
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM ticks ORDER BY symbol ASC`)
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
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM ticks`).Scan(&count)
	recordQuery("count_ticks", start, err)
	if err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return count, nil
}

func scanTicks(rows pgx.Rows) ([]*domain.Tick, error) {
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
