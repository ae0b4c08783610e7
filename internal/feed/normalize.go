// Package feed provides the Binance futures trade-stream client and
// the normalizer that converts raw feed messages into domain Ticks.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tickpipe/internal/domain"
)

// ErrMalformedMessage indicates a feed message that could not be
// normalized: not a trade event, or price/size not parseable.
// Malformed messages are logged and dropped; they never stop the feed.
var ErrMalformedMessage = errors.New("malformed feed message")

// tradeMessage is the raw Binance futures @trade payload.
//
//	{"e":"trade","E":123456789,"s":"BTCUSDT","t":12345,
//	 "p":"40000.00","q":"0.1","T":123456789,"m":true}
//
// Price and quantity arrive as decimal strings.
type tradeMessage struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// Normalizer converts raw feed messages into domain Ticks.
// Pure: no shared state, safe for concurrent use from every
// connection goroutine.
type Normalizer struct {
	// now is the local-receive-time fallback; overridable in tests.
	now func() time.Time
}

// NewNormalizer creates a Normalizer using the wall clock for the
// local receive-time fallback.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize converts one raw message for the subscribing symbol into a
// Tick. Returns ErrMalformedMessage (wrapped) when the message is not
// a trade event or price/size cannot be parsed.
//
// Timestamp fallback order is trade time (T), then event time (E),
// then local receive time. Downstream bucketing depends on this order;
// do not reorder.
func (n *Normalizer) Normalize(raw []byte, symbol string) (*domain.Tick, error) {
	var msg tradeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if msg.EventType != "trade" {
		return nil, fmt.Errorf("%w: event type %q", ErrMalformedMessage, msg.EventType)
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ErrMalformedMessage, msg.Price)
	}

	size, err := strconv.ParseFloat(msg.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q", ErrMalformedMessage, msg.Quantity)
	}

	var ts time.Time
	switch {
	case msg.TradeTime > 0:
		ts = time.UnixMilli(msg.TradeTime).UTC()
	case msg.EventTime > 0:
		ts = time.UnixMilli(msg.EventTime).UTC()
	default:
		ts = n.now().UTC()
	}

	sym := strings.ToLower(msg.Symbol)
	if sym == "" {
		sym = strings.ToLower(symbol)
	}

	tick := &domain.Tick{
		Symbol:       sym,
		Timestamp:    ts,
		Price:        price,
		Size:         size,
		IsBuyerMaker: &msg.IsBuyerMaker,
	}
	if msg.TradeID != 0 {
		tradeID := msg.TradeID
		tick.TradeID = &tradeID
	}
	if msg.EventTime != 0 {
		eventTime := time.UnixMilli(msg.EventTime).UTC()
		tick.EventTime = &eventTime
	}

	return tick, nil
}
