package analytics

import (
	"math"
	"testing"
)

func seriesOf(values ...float64) Series {
	var s Series
	for i, v := range values {
		s.push(int64(i)*60000, v)
	}
	return s
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRollingMean(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5)

	out := RollingMean(s, 3)
	if out.Len() != 3 {
		t.Fatalf("Expected 3 values, got %d", out.Len())
	}
	for i, want := range []float64{2, 3, 4} {
		if !almostEqual(out.Values[i], want) {
			t.Errorf("Index %d: expected %v, got %v", i, want, out.Values[i])
		}
	}
	// Output starts at the window's completion timestamp.
	if out.Timestamps[0] != 2*60000 {
		t.Errorf("Expected first timestamp at index 2, got %d", out.Timestamps[0])
	}
}

func TestRollingMean_InsufficientData(t *testing.T) {
	s := seriesOf(1, 2)
	if out := RollingMean(s, 3); !out.IsEmpty() {
		t.Errorf("Expected empty output for short series, got %v", out.Values)
	}
	if out := RollingMean(Series{}, 3); !out.IsEmpty() {
		t.Error("Expected empty output for empty series")
	}
}

func TestRollingStddev(t *testing.T) {
	s := seriesOf(1, 2, 3, 4)

	out := RollingStddev(s, 3)
	if out.Len() != 2 {
		t.Fatalf("Expected 2 values, got %d", out.Len())
	}
	// Sample stddev of {1,2,3} = 1.
	if !almostEqual(out.Values[0], 1.0) {
		t.Errorf("Expected stddev 1.0, got %v", out.Values[0])
	}
}

func TestRollingZScore(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 10)

	out := RollingZScore(s, 3)
	if out.Len() != 3 {
		t.Fatalf("Expected 3 values, got %d", out.Len())
	}
	// Last window {3,4,10}: mean 17/3, sample std sqrt(14.333).
	mean := 17.0 / 3.0
	std := math.Sqrt(((3-mean)*(3-mean) + (4-mean)*(4-mean) + (10-mean)*(10-mean)) / 2)
	if !almostEqual(out.Values[2], (10-mean)/std) {
		t.Errorf("Expected z-score %v, got %v", (10-mean)/std, out.Values[2])
	}
}

func TestRollingZScore_ConstantSeries(t *testing.T) {
	s := seriesOf(5, 5, 5, 5, 5)

	out := RollingZScore(s, 3)
	if !out.IsEmpty() {
		t.Errorf("Expected empty output for constant series, got %v", out.Values)
	}
}

func TestRollingCorrelation(t *testing.T) {
	a := seriesOf(1, 2, 3, 4, 5)
	b := seriesOf(2, 4, 6, 8, 10) // perfectly correlated

	out := RollingCorrelation(a, b, 3)
	if out.Len() != 3 {
		t.Fatalf("Expected 3 values, got %d", out.Len())
	}
	for i, v := range out.Values {
		if !almostEqual(v, 1.0) {
			t.Errorf("Index %d: expected correlation 1.0, got %v", i, v)
		}
	}

	// Anti-correlated.
	c := seriesOf(5, 4, 3, 2, 1)
	out = RollingCorrelation(a, c, 3)
	for i, v := range out.Values {
		if !almostEqual(v, -1.0) {
			t.Errorf("Index %d: expected correlation -1.0, got %v", i, v)
		}
	}
}

func TestRollingCorrelation_MisalignedTimestamps(t *testing.T) {
	a := seriesOf(1, 2, 3, 4, 5)
	var b Series
	// Offset timestamps never match a's.
	for i, v := range []float64{1, 2, 3, 4, 5} {
		b.push(int64(i)*60000+1, v)
	}

	out := RollingCorrelation(a, b, 3)
	if !out.IsEmpty() {
		t.Errorf("Expected empty output with no matching timestamps, got %v", out.Values)
	}
}

func TestReturns(t *testing.T) {
	s := seriesOf(100, 110, 99)

	out := Returns(s)
	if out.Len() != 2 {
		t.Fatalf("Expected 2 returns, got %d", out.Len())
	}
	if !almostEqual(out.Values[0], 0.10) {
		t.Errorf("Expected return 0.10, got %v", out.Values[0])
	}
	if !almostEqual(out.Values[1], -0.10) {
		t.Errorf("Expected return -0.10, got %v", out.Values[1])
	}
}

func TestReturns_ZeroPrice(t *testing.T) {
	s := seriesOf(100, 0, 50)

	out := Returns(s)
	// 0->50 is undefined, dropped; 100->0 is -1.
	if out.Len() != 1 {
		t.Fatalf("Expected 1 return, got %d", out.Len())
	}
	if !almostEqual(out.Values[0], -1.0) {
		t.Errorf("Expected return -1.0, got %v", out.Values[0])
	}
}

func TestRollingVolatility_Annualized(t *testing.T) {
	returns := seriesOf(0.01, -0.01, 0.01, -0.01)

	vol := RollingVolatility(returns, 3)
	raw := RollingStddev(returns, 3)
	if vol.Len() != raw.Len() {
		t.Fatalf("Expected matching lengths, got %d vs %d", vol.Len(), raw.Len())
	}
	for i := range vol.Values {
		if !almostEqual(vol.Values[i], raw.Values[i]*math.Sqrt(252)) {
			t.Errorf("Index %d: expected sqrt(252) scaling", i)
		}
	}
}

func TestBollingerBands(t *testing.T) {
	s := seriesOf(1, 2, 3, 4, 5)

	bands := BollingerBands(s, 3, 2.0)
	if bands.Middle.Len() != 3 {
		t.Fatalf("Expected 3 band points, got %d", bands.Middle.Len())
	}
	// Window {1,2,3}: mean 2, sample std 1.
	if !almostEqual(bands.Middle.Values[0], 2.0) {
		t.Errorf("Expected middle 2.0, got %v", bands.Middle.Values[0])
	}
	if !almostEqual(bands.Upper.Values[0], 4.0) {
		t.Errorf("Expected upper 4.0, got %v", bands.Upper.Values[0])
	}
	if !almostEqual(bands.Lower.Values[0], 0.0) {
		t.Errorf("Expected lower 0.0, got %v", bands.Lower.Values[0])
	}
}
