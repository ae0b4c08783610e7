package feed

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize_TradeMessage(t *testing.T) {
	n := NewNormalizer()
	raw := []byte(`{"e":"trade","E":1700000000100,"s":"BTCUSDT","t":12345,"p":"40000.50","q":"0.125","T":1700000000050,"m":true}`)

	tick, err := n.Normalize(raw, "btcusdt")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if tick.Symbol != "btcusdt" {
		t.Errorf("Expected lowercased symbol btcusdt, got %q", tick.Symbol)
	}
	if tick.Price != 40000.50 {
		t.Errorf("Expected price 40000.50, got %v", tick.Price)
	}
	if tick.Size != 0.125 {
		t.Errorf("Expected size 0.125, got %v", tick.Size)
	}
	if got := tick.Timestamp.UnixMilli(); got != 1700000000050 {
		t.Errorf("Expected trade time 1700000000050, got %d", got)
	}
	if tick.TradeID == nil || *tick.TradeID != 12345 {
		t.Errorf("Expected trade ID 12345, got %v", tick.TradeID)
	}
	if tick.IsBuyerMaker == nil || !*tick.IsBuyerMaker {
		t.Errorf("Expected is_buyer_maker true, got %v", tick.IsBuyerMaker)
	}
}

func TestNormalize_TimestampFallback(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := &Normalizer{now: func() time.Time { return fixed }}

	// Trade time missing, event time present.
	raw := []byte(`{"e":"trade","E":1700000000100,"s":"BTCUSDT","p":"100","q":"1"}`)
	tick, err := n.Normalize(raw, "btcusdt")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := tick.Timestamp.UnixMilli(); got != 1700000000100 {
		t.Errorf("Expected event time fallback 1700000000100, got %d", got)
	}

	// Both missing, local receive time.
	raw = []byte(`{"e":"trade","s":"BTCUSDT","p":"100","q":"1"}`)
	tick, err = n.Normalize(raw, "btcusdt")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !tick.Timestamp.Equal(fixed) {
		t.Errorf("Expected local time fallback %v, got %v", fixed, tick.Timestamp)
	}
}

func TestNormalize_SymbolFallback(t *testing.T) {
	n := NewNormalizer()
	raw := []byte(`{"e":"trade","T":1700000000050,"p":"100","q":"1"}`)

	tick, err := n.Normalize(raw, "ETHUSDT")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tick.Symbol != "ethusdt" {
		t.Errorf("Expected subscription symbol fallback ethusdt, got %q", tick.Symbol)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{not json`},
		{"wrong event type", `{"e":"aggTrade","s":"BTCUSDT","p":"100","q":"1","T":1}`},
		{"bad price", `{"e":"trade","s":"BTCUSDT","p":"abc","q":"1","T":1}`},
		{"bad quantity", `{"e":"trade","s":"BTCUSDT","p":"100","q":"","T":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize([]byte(tc.raw), "btcusdt")
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("Expected ErrMalformedMessage, got %v", err)
			}
		})
	}
}
