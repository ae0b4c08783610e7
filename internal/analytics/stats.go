package analytics

import (
	"math"
	"sort"
)

// SummaryStats holds basic distribution statistics for one series.
// Stddev uses the sample formula (n-1 denominator) throughout this
// package; CV is stddev/mean, defined as 0 when the mean is 0.
type SummaryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
	Range  float64 `json:"range"`
	CV     float64 `json:"cv"`
}

// Summarize computes summary statistics over the series values.
// An empty series yields the zero value.
func Summarize(s Series) SummaryStats {
	n := s.Len()
	if n == 0 {
		return SummaryStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	mean := computeMean(s.Values)
	stddev := computeStddev(s.Values, mean)

	cv := 0.0
	if mean != 0 {
		cv = stddev / mean
	}

	return SummaryStats{
		Count:  n,
		Mean:   mean,
		Stddev: stddev,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: computePercentile(sorted, 0.50),
		Q25:    computePercentile(sorted, 0.25),
		Q75:    computePercentile(sorted, 0.75),
		Range:  sorted[n-1] - sorted[0],
		CV:     cv,
	}
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC. p is the percentile (0.25 = 25th).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
