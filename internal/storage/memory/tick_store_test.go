package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tickpipe/internal/domain"
	"tickpipe/internal/storage"
)

func tickAt(symbol string, ts time.Time, price float64) *domain.Tick {
	return &domain.Tick{Symbol: symbol, Timestamp: ts, Price: price, Size: 1.0}
}

func TestTickStore_InsertAndQuery(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		tickAt("btcusdt", base, 100.0),
		tickAt("btcusdt", base.Add(time.Second), 101.0),
		tickAt("ethusdt", base, 50.0),
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.QueryByTimeRange(ctx, "btcusdt", base, base.Add(time.Minute), 0)
	if err != nil {
		t.Fatalf("QueryByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(result))
	}
	if result[0].Price != 100.0 || result[1].Price != 101.0 {
		t.Errorf("Expected ticks ordered by timestamp ASC, got %v then %v", result[0].Price, result[1].Price)
	}
}

func TestTickStore_QueryLimit(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if err := store.Insert(ctx, tickAt("btcusdt", base.Add(time.Duration(i)*time.Second), 100.0+float64(i))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.QueryByTimeRange(ctx, "btcusdt", base, base.Add(time.Minute), 3)
	if err != nil {
		t.Fatalf("QueryByTimeRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("Expected 3 ticks with limit, got %d", len(result))
	}
}

func TestTickStore_QueryRangeInclusive(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		tickAt("btcusdt", base.Add(-time.Second), 99.0),
		tickAt("btcusdt", base, 100.0),
		tickAt("btcusdt", base.Add(time.Second), 101.0),
		tickAt("btcusdt", base.Add(2*time.Second), 102.0),
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.QueryByTimeRange(ctx, "btcusdt", base, base.Add(time.Second), 0)
	if err != nil {
		t.Fatalf("QueryByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 ticks in inclusive range, got %d", len(result))
	}
}

func TestTickStore_InvalidInput(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil tick, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Tick{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty symbol, got %v", err)
	}
}

func TestTickStore_ListSymbolsAndCount(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		tickAt("ethusdt", base, 50.0),
		tickAt("btcusdt", base, 100.0),
		tickAt("btcusdt", base.Add(time.Second), 101.0),
	}
	if err := store.InsertBulk(ctx, ticks); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	symbols, err := store.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "btcusdt" || symbols[1] != "ethusdt" {
		t.Errorf("Expected sorted [btcusdt ethusdt], got %v", symbols)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

func TestTickStore_CopiesOnWrite(t *testing.T) {
	store := NewTickStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tick := tickAt("btcusdt", base, 100.0)
	if err := store.Insert(ctx, tick); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's tick must not affect the stored copy.
	tick.Price = 999.0

	result, err := store.QueryByTimeRange(ctx, "btcusdt", base, base, 0)
	if err != nil {
		t.Fatalf("QueryByTimeRange failed: %v", err)
	}
	if len(result) != 1 || result[0].Price != 100.0 {
		t.Errorf("Expected stored copy with price 100.0, got %v", result)
	}
}
