// Package analytics computes statistical indicators over price and
// volume series. Every function is a pure, stateless transformation:
// inputs are never mutated, insufficient data yields documented
// sentinel values rather than errors, and identical inputs always
// produce identical outputs.
package analytics

import (
	"tickpipe/internal/domain"
)

// Series is a time-ordered numeric series. Timestamps are Unix
// milliseconds and must be ascending. Gaps are absent rows, never
// interpolated; rolling transforms propagate them as missing outputs.
type Series struct {
	Timestamps []int64
	Values     []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// IsEmpty reports whether the series has no points.
func (s Series) IsEmpty() bool {
	return len(s.Values) == 0
}

func (s *Series) push(ts int64, v float64) {
	s.Timestamps = append(s.Timestamps, ts)
	s.Values = append(s.Values, v)
}

// ClosePrices builds a close-price series from OHLC bars, keyed by
// bucket start.
func ClosePrices(bars []*domain.OHLCBar) Series {
	var s Series
	for _, b := range bars {
		s.push(b.BucketStart.UnixMilli(), b.Close)
	}
	return s
}

// Volumes builds a volume series from OHLC bars, keyed by bucket start.
func Volumes(bars []*domain.OHLCBar) Series {
	var s Series
	for _, b := range bars {
		s.push(b.BucketStart.UnixMilli(), b.Volume)
	}
	return s
}

// TickPrices builds a price series from ticks in input order.
func TickPrices(ticks []*domain.Tick) Series {
	var s Series
	for _, t := range ticks {
		s.push(t.Timestamp.UnixMilli(), t.Price)
	}
	return s
}

// InnerJoin aligns two series on exactly matching timestamps, dropping
// rows present in only one of them. Both inputs must be ascending in
// timestamp; the result preserves that order.
func InnerJoin(a, b Series) (Series, Series) {
	var ja, jb Series
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		switch {
		case a.Timestamps[i] < b.Timestamps[j]:
			i++
		case a.Timestamps[i] > b.Timestamps[j]:
			j++
		default:
			ja.push(a.Timestamps[i], a.Values[i])
			jb.push(b.Timestamps[j], b.Values[j])
			i++
			j++
		}
	}
	return ja, jb
}

// Spread returns a-b over inner-joined timestamps. Fewer than 2
// matching rows yields an empty series.
func Spread(a, b Series) Series {
	ja, jb := InnerJoin(a, b)
	if ja.Len() < 2 {
		return Series{}
	}
	var out Series
	for i := range ja.Values {
		out.push(ja.Timestamps[i], ja.Values[i]-jb.Values[i])
	}
	return out
}
