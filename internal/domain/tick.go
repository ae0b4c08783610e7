package domain

import (
	"sort"
	"time"
)

// Tick represents one normalized trade event from a feed.
// Immutable once produced by the normalizer. Symbols are stored in
// lower-cased canonical form. Ordering within a symbol follows feed
// delivery order and is not guaranteed monotonic in Timestamp.
type Tick struct {
	Symbol       string     // lower-cased canonical symbol
	Timestamp    time.Time  // trade time, millisecond precision
	Price        float64    // trade price
	Size         float64    // trade quantity
	TradeID      *int64     // provider trade ID (nullable)
	EventTime    *time.Time // provider event time (nullable)
	IsBuyerMaker *bool      // true if buyer was the maker (nullable)
}

// SortTicksByTime sorts ticks by Timestamp ASC, TradeID ASC in place.
// The sort is stable so equal keys keep feed-delivery order, which
// fixes open/close assignment within a resample bucket.
func SortTicksByTime(ticks []*Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		if !ticks[i].Timestamp.Equal(ticks[j].Timestamp) {
			return ticks[i].Timestamp.Before(ticks[j].Timestamp)
		}
		if ticks[i].TradeID != nil && ticks[j].TradeID != nil {
			return *ticks[i].TradeID < *ticks[j].TradeID
		}
		return false
	})
}
