package analytics

import "tickpipe/internal/domain"

// DefaultSnapshotWindow is the rolling window used when BuildSnapshot
// is called with window <= 1.
const DefaultSnapshotWindow = 20

// Snapshot bundles the per-symbol analytics served over the API: close
// price summary, the tail of the rolling z-score, stationarity,
// annualized volatility, Bollinger bands and a volume profile, all
// computed from one bar series.
type Snapshot struct {
	Symbol     string       `json:"symbol"`
	Timeframe  string       `json:"timeframe"`
	BarCount   int          `json:"bar_count"`
	Stats      SummaryStats `json:"stats"`
	ZScore     []float64    `json:"zscore"`
	ADF        ADFResult    `json:"adf"`
	Volatility []float64    `json:"volatility"`
	Bollinger  Bands        `json:"bollinger"`
	Profile    Profile      `json:"volume_profile"`
}

// BuildSnapshot computes every block of the snapshot from the given
// bars. Blocks that need more data than the bars provide come back
// empty (or as the ADF sentinel); the caller serves whatever is there.
func BuildSnapshot(symbol string, tf domain.Timeframe, bars []*domain.OHLCBar, window int) Snapshot {
	if window <= 1 {
		window = DefaultSnapshotWindow
	}

	closes := ClosePrices(bars)

	// Serve only the most recent window of z-scores.
	zscore := RollingZScore(closes, window).Values
	if len(zscore) > window {
		zscore = zscore[len(zscore)-window:]
	}

	prices := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		prices[i] = b.Close
		volumes[i] = b.Volume
	}

	return Snapshot{
		Symbol:     symbol,
		Timeframe:  tf.String(),
		BarCount:   len(bars),
		Stats:      Summarize(closes),
		ZScore:     zscore,
		ADF:        ADFTest(closes),
		Volatility: RollingVolatility(Returns(closes), window).Values,
		Bollinger:  BollingerBands(closes, window, 2),
		Profile:    VolumeProfile(prices, volumes, DefaultProfileBins),
	}
}
