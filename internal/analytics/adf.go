package analytics

import "math"

// adfMinObservations is the minimum series length for a meaningful
// ADF regression; below it the conservative sentinel is returned.
const adfMinObservations = 10

// ADFResult holds an Augmented Dickey-Fuller stationarity test.
// The sentinel {0, 1.0, nil, false} encodes "cannot reject
// non-stationarity": p-value 1.0 is the conservative default for
// short series and numerical failures.
type ADFResult struct {
	Statistic      float64            `json:"adf_statistic"`
	PValue         float64            `json:"pvalue"`
	CriticalValues map[string]float64 `json:"critical_values"`
	IsStationary   bool               `json:"is_stationary"`
}

func adfSentinel() ADFResult {
	return ADFResult{Statistic: 0, PValue: 1.0, CriticalValues: nil, IsStationary: false}
}

// ADFTest runs an Augmented Dickey-Fuller test with a constant and one
// lagged difference term:
//
//	dy_t = alpha + gamma*y_{t-1} + beta*dy_{t-1} + e_t
//
// The test statistic is the t-ratio of gamma. P-values interpolate the
// Dickey-Fuller tau distribution (constant case); critical values use
// the MacKinnon finite-sample response surface. IsStationary is true
// iff the p-value is below 0.05.
func ADFTest(s Series) ADFResult {
	y := s.Values
	if len(y) < adfMinObservations {
		return adfSentinel()
	}

	// Build the regression rows: one lagged level plus one lagged
	// difference costs two leading observations.
	rows := len(y) - 2
	const k = 3 // intercept, y_{t-1}, dy_{t-1}
	if rows <= k {
		return adfSentinel()
	}

	X := make([][]float64, rows)
	target := make([]float64, rows)
	for t := 2; t < len(y); t++ {
		i := t - 2
		X[i] = []float64{1, y[t-1], y[t-1] - y[t-2]}
		target[i] = y[t] - y[t-1]
	}

	beta, invDiag, ok := olsWithVariance(X, target, 1)
	if !ok {
		return adfSentinel()
	}

	// Residual variance and the standard error of gamma.
	var rss float64
	for i := 0; i < rows; i++ {
		fit := 0.0
		for j := 0; j < k; j++ {
			fit += beta[j] * X[i][j]
		}
		resid := target[i] - fit
		rss += resid * resid
	}
	sigma2 := rss / float64(rows-k)
	se := math.Sqrt(sigma2 * invDiag)
	if se == 0 || math.IsNaN(se) || math.IsInf(se, 0) {
		return adfSentinel()
	}

	stat := beta[1] / se
	if math.IsNaN(stat) || math.IsInf(stat, 0) {
		return adfSentinel()
	}

	pvalue := dfTauPValue(stat)
	return ADFResult{
		Statistic:      stat,
		PValue:         pvalue,
		CriticalValues: mackinnonCriticalValues(rows),
		IsStationary:   pvalue < 0.05,
	}
}

// olsWithVariance solves the normal equations (X'X)b = X'y and also
// returns the requested diagonal element of (X'X)^-1, needed for the
// coefficient's standard error. ok is false on a singular system.
func olsWithVariance(X [][]float64, y []float64, diagIdx int) (beta []float64, invDiag float64, ok bool) {
	k := len(X[0])

	// X'X and X'y
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := 0; i < k; i++ {
		xtx[i] = make([]float64, k)
	}
	for r := range X {
		for i := 0; i < k; i++ {
			xty[i] += X[r][i] * y[r]
			for j := 0; j < k; j++ {
				xtx[i][j] += X[r][i] * X[r][j]
			}
		}
	}

	beta, ok = solveLinear(xtx, xty)
	if !ok {
		return nil, 0, false
	}

	// Column diagIdx of (X'X)^-1 via a unit right-hand side.
	unit := make([]float64, k)
	unit[diagIdx] = 1
	col, ok := solveLinear(xtx, unit)
	if !ok {
		return nil, 0, false
	}

	return beta, col[diagIdx], true
}

// solveLinear solves Ax = b by Gaussian elimination with partial
// pivoting. A is copied, not mutated. ok is false when A is singular.
func solveLinear(A [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	m := make([][]float64, n)
	for i := 0; i < n; i++ {
		m[i] = make([]float64, n+1)
		copy(m[i], A[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = m[i][n] / m[i][i]
	}
	return x, true
}

// dfTauQuantiles maps cumulative probabilities to asymptotic quantiles
// of the Dickey-Fuller tau distribution, constant case (Fuller 1976 /
// MacKinnon 1994).
var dfTauQuantiles = []struct {
	p   float64
	tau float64
}{
	{0.001, -4.32},
	{0.01, -3.43},
	{0.025, -3.12},
	{0.05, -2.86},
	{0.10, -2.57},
	{0.25, -2.14},
	{0.50, -1.57},
	{0.75, -0.94},
	{0.90, -0.44},
	{0.95, -0.07},
	{0.975, 0.23},
	{0.99, 0.60},
	{0.999, 1.28},
}

// dfTauPValue interpolates the tau table linearly; statistics beyond
// the table clamp to its edge probabilities.
func dfTauPValue(stat float64) float64 {
	q := dfTauQuantiles
	if stat <= q[0].tau {
		return q[0].p
	}
	if stat >= q[len(q)-1].tau {
		return q[len(q)-1].p
	}
	for i := 1; i < len(q); i++ {
		if stat <= q[i].tau {
			frac := (stat - q[i-1].tau) / (q[i].tau - q[i-1].tau)
			return q[i-1].p + frac*(q[i].p-q[i-1].p)
		}
	}
	return q[len(q)-1].p
}

// mackinnonCriticalValues returns finite-sample 1%/5%/10% critical
// values for the constant case (MacKinnon 2010 response surface).
func mackinnonCriticalValues(n int) map[string]float64 {
	fn := float64(n)
	return map[string]float64{
		"1%":  -3.43035 - 6.5393/fn - 16.786/(fn*fn) - 79.433/(fn*fn*fn),
		"5%":  -2.86154 - 2.8903/fn - 4.234/(fn*fn) - 40.040/(fn*fn*fn),
		"10%": -2.56677 - 1.5384/fn - 2.809/(fn*fn),
	}
}
