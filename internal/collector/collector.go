// Package collector owns the live feed connections and the shared
// tick buffer between the feed and the rest of the pipeline.
package collector

import (
	"errors"
	"log"
	"strings"
	"sync"

	"tickpipe/internal/domain"
	"tickpipe/internal/feed"
	"tickpipe/internal/observability"
)

// Lifecycle misuse errors, reported to the caller without state change.
var (
	ErrAlreadyRunning = errors.New("collector already running")
	ErrNotRunning     = errors.New("collector not running")
	ErrNoSymbols      = errors.New("no symbols to collect")
)

// Consumer receives each normalized tick synchronously on the
// delivering connection's goroutine. A panicking consumer is recovered
// and logged so it cannot take down a symbol's read loop.
type Consumer func(*domain.Tick)

// Conn is the transport the collector owns per symbol.
type Conn interface {
	Open()
	Close()
}

// ConnFactory builds the per-symbol transport. Overridable in tests.
type ConnFactory func(symbol string, handler feed.Handler) Conn

// Options configures a Collector.
type Options struct {
	// BufferCapacity bounds the tick buffer; 0 means unbounded.
	BufferCapacity int
	// ConnConfig configures the feed connections; nil uses defaults.
	ConnConfig *feed.ConnConfig
	// ConnFactory overrides transport creation; nil uses feed.NewConn.
	ConnFactory ConnFactory
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Collector opens one independent connection per subscribed symbol and
// accumulates normalized ticks in a shared buffer. Each tick is also
// fanned out to the registered consumers. One connection's failure
// never affects other symbols.
type Collector struct {
	connFactory ConnFactory
	logger      *log.Logger
	buffer      *tickBuffer

	mu      sync.Mutex
	running bool
	conns   []Conn

	consumersMu sync.RWMutex
	consumers   []Consumer
}

// New creates a Collector.
func New(opts Options) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	factory := opts.ConnFactory
	if factory == nil {
		cfg := opts.ConnConfig
		factory = func(symbol string, handler feed.Handler) Conn {
			return feed.NewConn(symbol, cfg, handler, logger)
		}
	}

	return &Collector{
		connFactory: factory,
		logger:      logger,
		buffer:      newTickBuffer(opts.BufferCapacity),
	}
}

// Subscribe registers a consumer for every subsequent tick.
func (c *Collector) Subscribe(consumer Consumer) {
	c.consumersMu.Lock()
	c.consumers = append(c.consumers, consumer)
	c.consumersMu.Unlock()
}

// Start opens one connection per symbol (lower-cased, deduplicated)
// and begins delivering ticks asynchronously. It returns immediately
// without waiting for connections to establish. Returns
// ErrAlreadyRunning if called while active.
func (c *Collector) Start(symbols []string) error {
	seen := make(map[string]bool, len(symbols))
	var normalized []string
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		return ErrNoSymbols
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true

	for _, symbol := range normalized {
		conn := c.connFactory(symbol, c.receive)
		c.conns = append(c.conns, conn)
		conn.Open()
		c.logger.Printf("[collector] started feed for %s", symbol)
	}

	c.logger.Printf("[collector] collecting %d symbols", len(normalized))
	return nil
}

// Stop closes all connections and stops accepting ticks. Idempotent;
// safe to call concurrently with in-flight delivery and when not
// running.
func (c *Collector) Stop() {
	c.mu.Lock()
	conns := c.conns
	wasRunning := c.running
	c.conns = nil
	c.running = false
	c.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	if wasRunning {
		c.logger.Printf("[collector] stopped %d feeds", len(conns))
	}
}

// Running reports whether the collector is active.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Drain atomically returns the buffered ticks, emptying the buffer in
// the same step when clear is true. Ticks delivered concurrently land
// either before or after the drain boundary, never both and never
// nowhere.
func (c *Collector) Drain(clear bool) []*domain.Tick {
	return c.buffer.drain(clear)
}

// PendingCount returns the current buffer size, consistent with the
// lock Drain uses.
func (c *Collector) PendingCount() int {
	return c.buffer.len()
}

// Dropped returns the total number of ticks evicted by the bounded
// buffer since creation.
func (c *Collector) Dropped() int64 {
	return c.buffer.droppedCount()
}

// receive is the feed.Handler for every connection: buffer the tick,
// then notify consumers. Both happen exactly once per tick; their
// relative order is not part of the contract.
func (c *Collector) receive(tick *domain.Tick) {
	c.buffer.append(tick)

	c.consumersMu.RLock()
	consumers := c.consumers
	c.consumersMu.RUnlock()

	for _, consumer := range consumers {
		c.notify(consumer, tick)
	}
}

// notify invokes one consumer, recovering panics so a bad callback
// cannot kill the delivering connection's read loop.
func (c *Collector) notify(consumer Consumer, tick *domain.Tick) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("[collector] consumer panic on %s tick: %v", tick.Symbol, r)
			observability.RecordConsumerPanic()
		}
	}()
	consumer(tick)
}
