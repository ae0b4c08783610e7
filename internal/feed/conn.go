package feed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tickpipe/internal/domain"
	"tickpipe/internal/observability"
)

// DefaultEndpoint is the Binance USD-M futures stream base URL.
const DefaultEndpoint = "wss://fstream.binance.com/ws"

// ConnConfig configures per-symbol connection behavior.
type ConnConfig struct {
	// Endpoint is the stream base URL; the per-symbol path is appended.
	Endpoint string
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
	// HandshakeTimeout is timeout for the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultConnConfig returns default connection configuration.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		Endpoint:          DefaultEndpoint,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Handler receives each normalized tick on the connection's goroutine.
type Handler func(*domain.Tick)

// Conn is one live trade-stream connection for a single symbol.
// Transport errors reconnect with exponential backoff and never affect
// other symbols' connections.
type Conn struct {
	symbol     string
	url        string
	config     ConnConfig
	normalizer *Normalizer
	handler    Handler
	logger     *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewConn creates a connection for symbol delivering normalized ticks
// to handler. The symbol is lower-cased. Dial does not happen here;
// Open starts the read loop which connects in the background.
func NewConn(symbol string, config *ConnConfig, handler Handler, logger *log.Logger) *Conn {
	cfg := DefaultConnConfig()
	if config != nil {
		cfg = *config
		if cfg.Endpoint == "" {
			cfg.Endpoint = DefaultEndpoint
		}
	}
	if logger == nil {
		logger = log.Default()
	}

	sym := strings.ToLower(symbol)
	return &Conn{
		symbol:     sym,
		url:        fmt.Sprintf("%s/%s@trade", strings.TrimSuffix(cfg.Endpoint, "/"), sym),
		config:     cfg,
		normalizer: NewNormalizer(),
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Symbol returns the lower-cased symbol this connection serves.
func (c *Conn) Symbol() string {
	return c.symbol
}

// Open starts the read and ping loops. It returns immediately; the
// initial dial happens on the read loop goroutine.
func (c *Conn) Open() {
	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
}

// Close tears down the connection. Idempotent and safe to call
// concurrently with in-flight message delivery.
func (c *Conn) Close() {
	if c.closed.Swap(true) {
		return // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
}

// connect establishes the websocket connection.
func (c *Conn) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.symbol, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// readLoop connects, reads messages, and dispatches normalized ticks.
// On transport errors it reconnects with exponential backoff until
// Close is called.
func (c *Conn) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			ctx, cancel := context.WithTimeout(context.Background(), c.config.HandshakeTimeout)
			err := c.connect(ctx)
			cancel()

			if err != nil {
				if c.closed.Load() {
					return
				}
				c.logger.Printf("[feed] %s: connect failed: %v (retry in %v)", c.symbol, err, reconnectDelay)
				observability.RecordConnectionError(c.symbol)

				select {
				case <-c.done:
					return
				case <-time.After(reconnectDelay):
				}

				reconnectDelay = reconnectDelay * 2
				if reconnectDelay > c.config.MaxReconnectDelay {
					reconnectDelay = c.config.MaxReconnectDelay
				}
				continue
			}

			c.logger.Printf("[feed] %s: connected", c.symbol)
			reconnectDelay = c.config.ReconnectDelay
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			c.logger.Printf("[feed] %s: read error: %v", c.symbol, err)
			observability.RecordConnectionError(c.symbol)

			// Drop the dead connection; the next iteration redials.
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()
			continue
		}

		c.handleMessage(message)
	}
}

// handleMessage normalizes one raw message and hands it to the handler.
// Malformed messages are logged and dropped; the stream continues.
func (c *Conn) handleMessage(message []byte) {
	start := time.Now()

	tick, err := c.normalizer.Normalize(message, c.symbol)
	if err != nil {
		c.logger.Printf("[feed] %s: dropping message: %v", c.symbol, err)
		observability.RecordMalformedMessage(c.symbol)
		return
	}

	if c.handler != nil {
		c.handler(tick)
	}

	observability.RecordTickReceived(c.symbol, time.Since(start).Seconds())
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Conn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}
