package analytics

// HedgeRatioResult holds the OLS fit of a dependent series on an
// independent one. The all-zero value is the deliberate "no signal"
// sentinel for degenerate inputs, not an error.
type HedgeRatioResult struct {
	HedgeRatio float64 `json:"hedge_ratio"` // OLS slope
	Intercept  float64 `json:"intercept"`
	RSquared   float64 `json:"r_squared"`
}

// HedgeRatio regresses dependent on independent with an intercept,
// using only inner-joined timestamps. Degenerate cases (fewer than 2
// joined points, zero variance in the independent regressor, or zero
// total variance in the dependent) return the zero sentinel.
func HedgeRatio(dependent, independent Series) HedgeRatioResult {
	y, x := InnerJoin(dependent, independent)
	n := y.Len()
	if n < 2 {
		return HedgeRatioResult{}
	}

	meanX := computeMean(x.Values)
	meanY := computeMean(y.Values)

	var sxx, sxy, syy float64
	for i := 0; i < n; i++ {
		dx := x.Values[i] - meanX
		dy := y.Values[i] - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	if sxx == 0 || syy == 0 {
		return HedgeRatioResult{}
	}

	slope := sxy / sxx
	intercept := meanY - slope*meanX

	// R^2 = 1 - SS_res/SS_tot
	var ssRes float64
	for i := 0; i < n; i++ {
		resid := y.Values[i] - (intercept + slope*x.Values[i])
		ssRes += resid * resid
	}

	return HedgeRatioResult{
		HedgeRatio: slope,
		Intercept:  intercept,
		RSquared:   1 - ssRes/syy,
	}
}
