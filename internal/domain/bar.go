package domain

import "time"

// Timeframe is a fixed bucket width for OHLC aggregation.
type Timeframe time.Duration

// Supported timeframes. Matches the aggregation intervals exposed by
// the API; Resample accepts any positive duration.
const (
	Timeframe1s  = Timeframe(1 * time.Second)
	Timeframe1m  = Timeframe(1 * time.Minute)
	Timeframe5m  = Timeframe(5 * time.Minute)
	Timeframe15m = Timeframe(15 * time.Minute)
	Timeframe1h  = Timeframe(1 * time.Hour)
	Timeframe1d  = Timeframe(24 * time.Hour)
)

// Duration returns the timeframe as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf)
}

// String renders the timeframe in the compact form used as a storage
// key and in the API ("1s", "1m", "5m", "15m", "1h", "1d").
func (tf Timeframe) String() string {
	switch tf {
	case Timeframe1s:
		return "1s"
	case Timeframe1m:
		return "1m"
	case Timeframe5m:
		return "5m"
	case Timeframe15m:
		return "15m"
	case Timeframe1h:
		return "1h"
	case Timeframe1d:
		return "1d"
	}
	return time.Duration(tf).String()
}

// ParseTimeframe parses the compact timeframe form. Unknown values
// fall through to time.ParseDuration so ad-hoc widths like "2m30s"
// still work.
func ParseTimeframe(s string) (Timeframe, error) {
	switch s {
	case "1s":
		return Timeframe1s, nil
	case "1m", "1min":
		return Timeframe1m, nil
	case "5m", "5min":
		return Timeframe5m, nil
	case "15m", "15min":
		return Timeframe15m, nil
	case "1h":
		return Timeframe1h, nil
	case "1d":
		return Timeframe1d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return Timeframe(d), nil
}

// BucketStart returns the start of the bucket containing ts:
// floor(ts/timeframe)*timeframe over Unix milliseconds, in UTC.
func (tf Timeframe) BucketStart(ts time.Time) time.Time {
	width := time.Duration(tf).Milliseconds()
	ms := ts.UnixMilli()
	rem := ((ms % width) + width) % width // keep pre-epoch timestamps on the floor side
	return time.UnixMilli(ms - rem).UTC()
}

// OHLCBar summarizes one (symbol, timeframe, bucket) of trade activity.
// The (Symbol, Timeframe, BucketStart) tuple is unique; re-aggregating
// the same bucket overwrites rather than duplicates.
type OHLCBar struct {
	Symbol      string
	Timeframe   Timeframe
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64 // sum of tick sizes in bucket
	TradeCount  int     // number of ticks in bucket
}

// Filled reports whether the bar is a synthetic gap-fill bar
// (carried-forward close, no trades).
func (b *OHLCBar) Filled() bool {
	return b.TradeCount == 0
}
