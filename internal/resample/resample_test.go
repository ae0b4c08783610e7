package resample

import (
	"testing"
	"time"

	"tickpipe/internal/domain"
)

func tickAt(ts time.Time, price, size float64) *domain.Tick {
	return &domain.Tick{Symbol: "btcusdt", Timestamp: ts, Price: price, Size: size}
}

func TestResample_SingleBucket(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ticks := []*domain.Tick{
		tickAt(base.Add(1*time.Second), 100, 1),
		tickAt(base.Add(10*time.Second), 105, 2),
		tickAt(base.Add(30*time.Second), 95, 1),
		tickAt(base.Add(59*time.Second), 101, 0.5),
	}

	bars := Resample(ticks, domain.Timeframe1m)
	if len(bars) != 1 {
		t.Fatalf("Expected 1 bar, got %d", len(bars))
	}

	bar := bars[0]
	if !bar.BucketStart.Equal(base) {
		t.Errorf("Expected bucket start %v, got %v", base, bar.BucketStart)
	}
	if bar.Open != 100 || bar.High != 105 || bar.Low != 95 || bar.Close != 101 {
		t.Errorf("Unexpected OHLC: %v %v %v %v", bar.Open, bar.High, bar.Low, bar.Close)
	}
	if bar.Volume != 4.5 {
		t.Errorf("Expected volume 4.5, got %v", bar.Volume)
	}
	if bar.TradeCount != 4 {
		t.Errorf("Expected 4 trades, got %d", bar.TradeCount)
	}
}

func TestResample_BucketBoundary(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// A tick exactly on the boundary opens the next bucket.
	ticks := []*domain.Tick{
		tickAt(base.Add(59*time.Second+999*time.Millisecond), 100, 1),
		tickAt(base.Add(time.Minute), 200, 1),
	}

	bars := Resample(ticks, domain.Timeframe1m)
	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}
	if !bars[0].BucketStart.Equal(base) {
		t.Errorf("First bucket: expected %v, got %v", base, bars[0].BucketStart)
	}
	if !bars[1].BucketStart.Equal(base.Add(time.Minute)) {
		t.Errorf("Second bucket: expected %v, got %v", base.Add(time.Minute), bars[1].BucketStart)
	}
}

func TestResample_UnorderedInput(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ticks := []*domain.Tick{
		tickAt(base.Add(30*time.Second), 105, 1),
		tickAt(base.Add(5*time.Second), 100, 1),
		tickAt(base.Add(55*time.Second), 110, 1),
	}

	bars := Resample(ticks, domain.Timeframe1m)
	if len(bars) != 1 {
		t.Fatalf("Expected 1 bar, got %d", len(bars))
	}
	if bars[0].Open != 100 || bars[0].Close != 110 {
		t.Errorf("Expected open 100 close 110 after sorting, got %v / %v", bars[0].Open, bars[0].Close)
	}

	// Input slice order is preserved.
	if ticks[0].Price != 105 {
		t.Error("Input slice was mutated")
	}
}

func TestResample_GapFill(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Ticks at t=0 and t=180s with a 60s timeframe: two empty buckets
	// between them get the previous close carried forward.
	ticks := []*domain.Tick{
		tickAt(base, 100, 1),
		tickAt(base.Add(180*time.Second), 110, 1),
	}

	bars := Resample(ticks, domain.Timeframe1m)
	if len(bars) != 4 {
		t.Fatalf("Expected 4 bars with gap fill, got %d", len(bars))
	}

	for i, b := range bars[1:3] {
		if !b.Filled() {
			t.Errorf("Bar %d: expected synthetic gap bar", i+1)
		}
		if b.Open != 100 || b.High != 100 || b.Low != 100 || b.Close != 100 {
			t.Errorf("Bar %d: expected flat OHLC at 100, got %v %v %v %v", i+1, b.Open, b.High, b.Low, b.Close)
		}
		if b.Volume != 0 || b.TradeCount != 0 {
			t.Errorf("Bar %d: expected zero volume and count", i+1)
		}
	}
	if bars[3].Close != 110 || bars[3].Filled() {
		t.Errorf("Last bar: expected real bar closing 110, got %+v", bars[3])
	}
}

func TestResample_SparseSkipsGapFill(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ticks := []*domain.Tick{
		tickAt(base, 100, 1),
		tickAt(base.Add(180*time.Second), 110, 1),
	}

	bars := ResampleWithOptions(ticks, domain.Timeframe1m, Options{Sparse: true})
	if len(bars) != 2 {
		t.Fatalf("Expected 2 sparse bars, got %d", len(bars))
	}
}

func TestResample_Idempotent(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var ticks []*domain.Tick
	for i := 0; i < 100; i++ {
		ticks = append(ticks, tickAt(base.Add(time.Duration(i)*3*time.Second), 100+float64(i%7), 1))
	}

	first := Resample(ticks, domain.Timeframe1m)
	second := Resample(ticks, domain.Timeframe1m)

	if len(first) != len(second) {
		t.Fatalf("Expected identical bar count, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Errorf("Bar %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestResample_EmptyInput(t *testing.T) {
	if bars := Resample(nil, domain.Timeframe1m); bars != nil {
		t.Errorf("Expected nil for empty input, got %v", bars)
	}
}

func TestResample_SecondTimeframe(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 100*int(time.Millisecond), time.UTC)
	ticks := []*domain.Tick{
		tickAt(base, 100, 1),
		tickAt(base.Add(500*time.Millisecond), 101, 1),
		tickAt(base.Add(time.Second), 102, 1),
	}

	bars := Resample(ticks, domain.Timeframe1s)
	if len(bars) != 2 {
		t.Fatalf("Expected 2 one-second bars, got %d", len(bars))
	}
	if bars[0].TradeCount != 2 || bars[1].TradeCount != 1 {
		t.Errorf("Expected 2+1 trades, got %d+%d", bars[0].TradeCount, bars[1].TradeCount)
	}
}
