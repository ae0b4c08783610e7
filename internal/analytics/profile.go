package analytics

// DefaultProfileBins is the bin count used when VolumeProfile is
// called with bins <= 0.
const DefaultProfileBins = 20

// Profile is a histogram of traded volume across price levels.
// PriceLevels holds bin centers in ascending order; Volumes is the
// summed volume per bin. POC is the price level with the most volume.
type Profile struct {
	PriceLevels []float64 `json:"price_levels"`
	Volumes     []float64 `json:"volumes"`
	POC         float64   `json:"poc"`
}

// VolumeProfile bins traded volume into equal-width price buckets.
// Prices and volumes must be the same length; mismatched or empty
// input yields an empty profile. A degenerate price range (all trades
// at one price) collapses to a single level.
func VolumeProfile(prices, volumes []float64, bins int) Profile {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return Profile{}
	}
	if bins <= 0 {
		bins = DefaultProfileBins
	}

	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}

	if hi == lo {
		var total float64
		for _, v := range volumes {
			total += v
		}
		return Profile{
			PriceLevels: []float64{lo},
			Volumes:     []float64{total},
			POC:         lo,
		}
	}

	width := (hi - lo) / float64(bins)
	levels := make([]float64, bins)
	binned := make([]float64, bins)
	for i := 0; i < bins; i++ {
		levels[i] = lo + (float64(i)+0.5)*width
	}
	for i, p := range prices {
		idx := int((p - lo) / width)
		if idx >= bins { // the max price lands exactly on the upper edge
			idx = bins - 1
		}
		binned[idx] += volumes[i]
	}

	poc := 0
	for i := 1; i < bins; i++ {
		if binned[i] > binned[poc] {
			poc = i
		}
	}

	return Profile{PriceLevels: levels, Volumes: binned, POC: levels[poc]}
}
