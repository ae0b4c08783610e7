package domain

import (
	"testing"
	"time"
)

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 34, 56, 789*int(time.Millisecond), time.UTC)

	cases := []struct {
		tf   Timeframe
		want time.Time
	}{
		{Timeframe1s, time.Date(2024, 6, 1, 12, 34, 56, 0, time.UTC)},
		{Timeframe1m, time.Date(2024, 6, 1, 12, 34, 0, 0, time.UTC)},
		{Timeframe5m, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{Timeframe15m, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{Timeframe1h, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		{Timeframe1d, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := tc.tf.BucketStart(ts); !got.Equal(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.tf, tc.want, got)
		}
	}
}

func TestBucketStart_ExactBoundary(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 34, 0, 0, time.UTC)
	if got := Timeframe1m.BucketStart(ts); !got.Equal(ts) {
		t.Errorf("Boundary timestamp must map to its own bucket, got %v", got)
	}
}

func TestBucketStart_PreEpoch(t *testing.T) {
	ts := time.Date(1969, 12, 31, 23, 59, 30, 0, time.UTC)
	want := time.Date(1969, 12, 31, 23, 59, 0, 0, time.UTC)
	if got := Timeframe1m.BucketStart(ts); !got.Equal(want) {
		t.Errorf("Pre-epoch: expected %v, got %v", want, got)
	}
}

func TestParseTimeframe(t *testing.T) {
	cases := []struct {
		in   string
		want Timeframe
	}{
		{"1s", Timeframe1s},
		{"1m", Timeframe1m},
		{"5m", Timeframe5m},
		{"15m", Timeframe15m},
		{"1h", Timeframe1h},
		{"1d", Timeframe1d},
	}
	for _, tc := range cases {
		got, err := ParseTimeframe(tc.in)
		if err != nil {
			t.Errorf("ParseTimeframe(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeframe(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}

	if _, err := ParseTimeframe("bogus"); err == nil {
		t.Error("Expected error for invalid timeframe")
	}
}

func TestTimeframeString_RoundTrip(t *testing.T) {
	for _, tf := range []Timeframe{Timeframe1s, Timeframe1m, Timeframe5m, Timeframe15m, Timeframe1h, Timeframe1d} {
		parsed, err := ParseTimeframe(tf.String())
		if err != nil {
			t.Errorf("Round trip %s failed: %v", tf, err)
			continue
		}
		if parsed != tf {
			t.Errorf("Round trip %s: got %v", tf, parsed)
		}
	}
}

func TestSortTicksByTime(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id := func(v int64) *int64 { return &v }

	ticks := []*Tick{
		{Symbol: "btcusdt", Timestamp: base.Add(time.Second), Price: 3, TradeID: id(30)},
		{Symbol: "btcusdt", Timestamp: base, Price: 2, TradeID: id(20)},
		{Symbol: "btcusdt", Timestamp: base, Price: 1, TradeID: id(10)},
	}
	SortTicksByTime(ticks)

	if ticks[0].Price != 1 || ticks[1].Price != 2 || ticks[2].Price != 3 {
		t.Errorf("Expected order by timestamp then trade ID, got %v %v %v",
			ticks[0].Price, ticks[1].Price, ticks[2].Price)
	}
}

func TestOHLCBar_Filled(t *testing.T) {
	real := OHLCBar{TradeCount: 3}
	if real.Filled() {
		t.Error("Bar with trades must not report as filled")
	}
	synthetic := OHLCBar{TradeCount: 0}
	if !synthetic.Filled() {
		t.Error("Zero-trade bar must report as filled")
	}
}
