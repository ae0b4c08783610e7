// Package pipeline runs the periodic refresh cycle:
// drain → persist → resample → analytics context → alert evaluation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tickpipe/internal/alert"
	"tickpipe/internal/analytics"
	"tickpipe/internal/collector"
	"tickpipe/internal/domain"
	"tickpipe/internal/observability"
	"tickpipe/internal/resample"
	"tickpipe/internal/storage"
)

// Options for creating a Pipeline.
type Options struct {
	// Required collaborators.
	Collector *collector.Collector
	TickStore storage.TickStore
	OHLCStore storage.OHLCStore
	Alerts    *alert.Engine

	// Timeframes to maintain. The first one drives the alert context.
	Timeframes []domain.Timeframe

	// Interval between refresh cycles.
	Interval time.Duration

	// Window is the rolling window for context analytics.
	Window int

	// Resample controls gap-fill behavior.
	Resample resample.Options

	Logger *log.Logger
}

// Pipeline periodically drains the collector, persists ticks, rebuilds
// bars for every configured timeframe and feeds the freshest analytics
// into the alert engine.
type Pipeline struct {
	collector  *collector.Collector
	ticks      storage.TickStore
	bars       storage.OHLCStore
	alerts     *alert.Engine
	timeframes []domain.Timeframe
	interval   time.Duration
	window     int
	resampleOp resample.Options
	logger     *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Pipeline. Collector, stores and alert engine are
// required; zero options fall back to sensible defaults.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	window := opts.Window
	if window <= 1 {
		window = analytics.DefaultSnapshotWindow
	}
	timeframes := opts.Timeframes
	if len(timeframes) == 0 {
		timeframes = []domain.Timeframe{domain.Timeframe1s, domain.Timeframe1m}
	}

	return &Pipeline{
		collector:  opts.Collector,
		ticks:      opts.TickStore,
		bars:       opts.OHLCStore,
		alerts:     opts.Alerts,
		timeframes: timeframes,
		interval:   interval,
		window:     window,
		resampleOp: opts.Resample,
		logger:     logger,
	}
}

// Start launches the refresh loop. Safe to call once; subsequent calls
// are no-ops until Stop.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx)
}

// Stop halts the refresh loop and waits for the in-flight cycle.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Pipeline) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RunCycle(ctx); err != nil {
				p.logger.Printf("[pipeline] cycle failed: %v", err)
			}
		}
	}
}

// RunCycle executes one refresh cycle synchronously.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	start := time.Now()
	err := p.runCycle(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelineCycle(status, time.Since(start).Seconds())
	return err
}

func (p *Pipeline) runCycle(ctx context.Context) error {
	drained := p.collector.Drain(true)
	if len(drained) == 0 {
		return nil
	}

	if err := p.ticks.InsertBulk(ctx, drained); err != nil {
		return fmt.Errorf("persist ticks: %w", err)
	}

	// One symbol's failure must not starve the rest of the cycle.
	var errs []error
	for symbol, ticks := range groupBySymbol(drained) {
		if err := p.refreshSymbol(ctx, symbol, ticks); err != nil {
			p.logger.Printf("[pipeline] refresh %s failed: %v", symbol, err)
			errs = append(errs, fmt.Errorf("refresh %s: %w", symbol, err))
		}
	}
	return errors.Join(errs...)
}

// refreshSymbol rebuilds bars for every timeframe, then evaluates the
// alert rules against the symbol's freshest analytics. Resampling reads
// back from the tick store rather than the drained batch alone: a bucket
// can span several drain cycles, and a bar built from one cycle's ticks
// would overwrite the contribution of the earlier ones.
func (p *Pipeline) refreshSymbol(ctx context.Context, symbol string, drained []*domain.Tick) error {
	earliest, latest := tickTimeBounds(drained)

	for _, tf := range p.timeframes {
		from := tf.BucketStart(earliest)
		to := tf.BucketStart(latest).Add(tf.Duration() - time.Millisecond)
		ticks, err := p.ticks.QueryByTimeRange(ctx, symbol, from, to, 0)
		if err != nil {
			return fmt.Errorf("query %s ticks: %w", tf, err)
		}
		bars := resample.ResampleWithOptions(ticks, tf, p.resampleOp)
		if len(bars) == 0 {
			continue
		}
		observability.RecordResample(tf.String(), len(bars))
		if err := p.bars.UpsertBulk(ctx, bars); err != nil {
			return fmt.Errorf("upsert %s bars: %w", tf, err)
		}
	}

	vars, err := p.contextFor(ctx, symbol)
	if err != nil {
		return err
	}
	if vars == nil {
		return nil
	}

	fired := p.alerts.Evaluate(vars)
	for _, ev := range fired {
		p.logger.Printf("[pipeline] alert fired for %s: %s", symbol, ev.Condition)
	}
	return nil
}

// contextFor loads the recent bars of the context timeframe and builds
// the named variables alert conditions evaluate against. Returns nil
// when no bars exist yet.
func (p *Pipeline) contextFor(ctx context.Context, symbol string) (map[string]float64, error) {
	tf := p.timeframes[0]
	width := tf.Duration()
	now := time.Now().UTC()

	// Enough lookback to fill the rolling window several times over.
	from := now.Add(-time.Duration(p.window*4) * width)
	bars, err := p.bars.QueryByTimeRange(ctx, symbol, tf, from, now, 0)
	if err != nil {
		return nil, fmt.Errorf("query context bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, nil
	}

	closes := analytics.ClosePrices(bars)
	last := bars[len(bars)-1]

	vars := map[string]float64{
		"price":  last.Close,
		"volume": last.Volume,
	}
	if z := analytics.RollingZScore(closes, p.window); !z.IsEmpty() {
		vars["zscore"] = z.Values[len(z.Values)-1]
	}
	if vol := analytics.RollingVolatility(analytics.Returns(closes), p.window); !vol.IsEmpty() {
		vars["volatility"] = vol.Values[len(vol.Values)-1]
	}
	return vars, nil
}

// tickTimeBounds returns the earliest and latest timestamps in a
// non-empty tick slice. The slice is not assumed to be ordered.
func tickTimeBounds(ticks []*domain.Tick) (earliest, latest time.Time) {
	earliest, latest = ticks[0].Timestamp, ticks[0].Timestamp
	for _, t := range ticks[1:] {
		if t.Timestamp.Before(earliest) {
			earliest = t.Timestamp
		}
		if t.Timestamp.After(latest) {
			latest = t.Timestamp
		}
	}
	return earliest, latest
}

func groupBySymbol(ticks []*domain.Tick) map[string][]*domain.Tick {
	out := make(map[string][]*domain.Tick)
	for _, t := range ticks {
		out[t.Symbol] = append(out[t.Symbol], t)
	}
	return out
}
