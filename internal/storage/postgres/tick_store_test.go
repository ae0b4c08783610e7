package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickpipe/internal/domain"
)

func TestTickStore_InsertAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTickStore(pool)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tick := &domain.Tick{
		Symbol:       "btcusdt",
		Timestamp:    base,
		Price:        65000.5,
		Size:         0.25,
		TradeID:      ptr(int64(12345)),
		EventTime:    ptr(base),
		IsBuyerMaker: ptr(true),
	}

	err := store.Insert(ctx, tick)
	require.NoError(t, err)

	ticks, err := store.QueryByTimeRange(ctx, "btcusdt", base.Add(-time.Second), base.Add(time.Second), 0)
	require.NoError(t, err)

	require.Len(t, ticks, 1)
	assert.Equal(t, tick.Symbol, ticks[0].Symbol)
	assert.True(t, tick.Timestamp.Equal(ticks[0].Timestamp))
	assert.InDelta(t, tick.Price, ticks[0].Price, 0.0001)
	assert.InDelta(t, tick.Size, ticks[0].Size, 0.0001)
	require.NotNil(t, ticks[0].TradeID)
	assert.Equal(t, int64(12345), *ticks[0].TradeID)
	require.NotNil(t, ticks[0].IsBuyerMaker)
	assert.True(t, *ticks[0].IsBuyerMaker)
	require.NotNil(t, ticks[0].EventTime)
	assert.True(t, base.Equal(*ticks[0].EventTime))
}

func TestTickStore_InsertBulkAndLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTickStore(pool)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var ticks []*domain.Tick
	for i := 0; i < 5; i++ {
		ticks = append(ticks, &domain.Tick{
			Symbol:    "btcusdt",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Price:     65000 + float64(i),
			Size:      1.0,
			TradeID:   ptr(int64(i)),
		})
	}
	require.NoError(t, store.InsertBulk(ctx, ticks))

	result, err := store.QueryByTimeRange(ctx, "btcusdt", base, base.Add(time.Minute), 2)
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.InDelta(t, 65000.0, result[0].Price, 0.0001)
	assert.InDelta(t, 65001.0, result[1].Price, 0.0001)
}

func TestTickStore_ListSymbolsAndCount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTickStore(pool)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ticks := []*domain.Tick{
		{Symbol: "ethusdt", Timestamp: base, Price: 3500, Size: 1},
		{Symbol: "btcusdt", Timestamp: base, Price: 65000, Size: 1},
		{Symbol: "btcusdt", Timestamp: base.Add(time.Second), Price: 65001, Size: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, ticks))

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"btcusdt", "ethusdt"}, symbols)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
