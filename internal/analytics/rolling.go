package analytics

import "math"

// Rolling transforms share one windowing rule: a value at index i
// requires i >= W-1 prior points, so output starts at the input's
// (W-1)th timestamp. Earlier indices are absent from the output, not
// zero.

// RollingMean computes the simple moving average over window points.
// Returns an empty series when window < 1 or the series is shorter
// than the window.
func RollingMean(s Series, window int) Series {
	if window < 1 || s.Len() < window {
		return Series{}
	}

	var out Series
	sum := 0.0
	for i, v := range s.Values {
		sum += v
		if i >= window {
			sum -= s.Values[i-window]
		}
		if i >= window-1 {
			out.push(s.Timestamps[i], sum/float64(window))
		}
	}
	return out
}

// RollingStddev computes the rolling sample standard deviation.
func RollingStddev(s Series, window int) Series {
	if window < 2 || s.Len() < window {
		return Series{}
	}

	var out Series
	for i := window - 1; i < s.Len(); i++ {
		win := s.Values[i-window+1 : i+1]
		mean := computeMean(win)
		out.push(s.Timestamps[i], computeStddev(win, mean))
	}
	return out
}

// RollingZScore computes (x - rolling_mean) / rolling_std over the
// window. Indices where the rolling stddev is 0 are absent from the
// output (a constant window carries no signal), so a constant series
// yields an empty result rather than NaN propagation.
func RollingZScore(s Series, window int) Series {
	if window < 2 || s.Len() < window {
		return Series{}
	}

	var out Series
	for i := window - 1; i < s.Len(); i++ {
		win := s.Values[i-window+1 : i+1]
		mean := computeMean(win)
		std := computeStddev(win, mean)
		if std == 0 {
			continue
		}
		out.push(s.Timestamps[i], (s.Values[i]-mean)/std)
	}
	return out
}

// RollingCorrelation computes rolling Pearson correlation between two
// series after inner-joining them on matching timestamps. Windows with
// zero variance on either side are absent from the output.
func RollingCorrelation(a, b Series, window int) Series {
	ja, jb := InnerJoin(a, b)
	if window < 2 || ja.Len() < window {
		return Series{}
	}

	var out Series
	for i := window - 1; i < ja.Len(); i++ {
		wa := ja.Values[i-window+1 : i+1]
		wb := jb.Values[i-window+1 : i+1]
		r, ok := pearson(wa, wb)
		if !ok {
			continue
		}
		out.push(ja.Timestamps[i], r)
	}
	return out
}

// pearson computes the Pearson correlation of two equal-length windows.
// ok is false when either side has zero variance.
func pearson(a, b []float64) (float64, bool) {
	meanA := computeMean(a)
	meanB := computeMean(b)

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varA*varB), true
}

// Returns computes simple percentage returns between consecutive
// points, dropping the first undefined point. Points following a zero
// price are absent (the return is undefined, not infinite).
func Returns(prices Series) Series {
	var out Series
	for i := 1; i < prices.Len(); i++ {
		prev := prices.Values[i-1]
		if prev == 0 {
			continue
		}
		out.push(prices.Timestamps[i], (prices.Values[i]-prev)/prev)
	}
	return out
}

// annualizationFactor assumes the return series represents
// daily-equivalent intervals: sqrt(252 trading days). A unit
// convention, not a general truth.
var annualizationFactor = math.Sqrt(252)

// RollingVolatility computes the rolling sample stddev of returns,
// annualized by sqrt(252).
func RollingVolatility(returns Series, window int) Series {
	std := RollingStddev(returns, window)
	for i := range std.Values {
		std.Values[i] *= annualizationFactor
	}
	return std
}

// Bands holds Bollinger bands; all three share the same rolling window.
type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// BollingerBands computes rolling mean +/- numStd rolling stddevs.
// The conventional multiplier is 2.0.
func BollingerBands(s Series, window int, numStd float64) Bands {
	if window < 2 || s.Len() < window {
		return Bands{}
	}

	var bands Bands
	for i := window - 1; i < s.Len(); i++ {
		win := s.Values[i-window+1 : i+1]
		mean := computeMean(win)
		std := computeStddev(win, mean)
		ts := s.Timestamps[i]
		bands.Middle.push(ts, mean)
		bands.Upper.push(ts, mean+std*numStd)
		bands.Lower.push(ts, mean-std*numStd)
	}
	return bands
}
