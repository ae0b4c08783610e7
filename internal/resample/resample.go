// Package resample aggregates tick sequences into fixed-width OHLC
// bars. All functions are pure: identical input yields identical
// output, and the input slice is never mutated.
package resample

import (
	"time"

	"tickpipe/internal/domain"
)

// Options controls resampling behavior.
type Options struct {
	// Sparse disables gap filling: buckets with no ticks are simply
	// absent instead of carrying forward the previous close.
	Sparse bool
}

// Resample groups a single symbol's ticks into fixed-width buckets and
// produces one OHLC bar per populated bucket, plus gap-fill bars for
// empty buckets between populated ones. Input order does not matter;
// ticks are sorted by timestamp (stable, trade-ID tiebreak) first.
//
// The caller must pre-filter to one symbol; mixed-symbol input is a
// contract violation and the result is undefined.
func Resample(ticks []*domain.Tick, timeframe domain.Timeframe) []*domain.OHLCBar {
	return ResampleWithOptions(ticks, timeframe, Options{})
}

// ResampleWithOptions is Resample with explicit gap-fill policy.
func ResampleWithOptions(ticks []*domain.Tick, timeframe domain.Timeframe, opts Options) []*domain.OHLCBar {
	if len(ticks) == 0 || timeframe.Duration() <= 0 {
		return nil
	}

	sorted := make([]*domain.Tick, len(ticks))
	copy(sorted, ticks)
	domain.SortTicksByTime(sorted)

	symbol := sorted[0].Symbol

	// Walk sorted ticks, closing a bar whenever the bucket changes.
	var bars []*domain.OHLCBar
	var cur *domain.OHLCBar
	for _, t := range sorted {
		start := timeframe.BucketStart(t.Timestamp)
		if cur == nil || !start.Equal(cur.BucketStart) {
			if cur != nil {
				bars = append(bars, cur)
			}
			cur = &domain.OHLCBar{
				Symbol:      symbol,
				Timeframe:   timeframe,
				BucketStart: start,
				Open:        t.Price,
				High:        t.Price,
				Low:         t.Price,
			}
		}
		if t.Price > cur.High {
			cur.High = t.Price
		}
		if t.Price < cur.Low {
			cur.Low = t.Price
		}
		cur.Close = t.Price
		cur.Volume += t.Size
		cur.TradeCount++
	}
	bars = append(bars, cur)

	if opts.Sparse {
		return bars
	}
	return fillGaps(bars, timeframe)
}

// fillGaps inserts synthetic bars for empty buckets strictly between
// populated ones, carrying the previous close forward as OHLC with
// zero volume and zero trade count. Leading gaps have no previous bar
// and are never fabricated.
func fillGaps(bars []*domain.OHLCBar, timeframe domain.Timeframe) []*domain.OHLCBar {
	if len(bars) < 2 {
		return bars
	}

	width := timeframe.Duration()
	filled := make([]*domain.OHLCBar, 0, len(bars))
	filled = append(filled, bars[0])

	for i := 1; i < len(bars); i++ {
		prev := bars[i-1]
		for start := prev.BucketStart.Add(width); start.Before(bars[i].BucketStart); start = start.Add(width) {
			filled = append(filled, syntheticBar(prev, start))
		}
		filled = append(filled, bars[i])
	}

	return filled
}

func syntheticBar(prev *domain.OHLCBar, start time.Time) *domain.OHLCBar {
	return &domain.OHLCBar{
		Symbol:      prev.Symbol,
		Timeframe:   prev.Timeframe,
		BucketStart: start,
		Open:        prev.Close,
		High:        prev.Close,
		Low:         prev.Close,
		Close:       prev.Close,
		Volume:      0,
		TradeCount:  0,
	}
}
