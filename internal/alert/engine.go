package alert

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickpipe/internal/observability"
)

const historyCap = 1000

var (
	// ErrRuleNotFound is returned when removing a rule that does not exist.
	ErrRuleNotFound = errors.New("alert: rule not found")
)

// Rule is a registered alert condition. A rule is edge-triggered:
// it fires once when its condition first holds, then stays triggered
// until Reset arms it again.
type Rule struct {
	ID           string     `json:"id"`
	Condition    string     `json:"condition"`
	Triggered    bool       `json:"triggered"`
	TriggeredAt  *time.Time `json:"triggered_at,omitempty"`
	TriggerCount int        `json:"trigger_count"`

	expr Expr
}

// Event records one rule firing, with a copy of the context it fired
// under. History keeps the most recent 1000 events.
type Event struct {
	RuleID       string             `json:"rule_id"`
	Condition    string             `json:"condition"`
	TriggeredAt  time.Time          `json:"triggered_at"`
	TriggerCount int                `json:"trigger_count"`
	Context      map[string]float64 `json:"context"`
}

// Options configures an Engine.
type Options struct {
	Logger *log.Logger

	// Now overrides the trigger timestamp source, for tests.
	Now func() time.Time
}

// Engine owns the rule set and trigger history. All methods are safe
// for concurrent use.
type Engine struct {
	mu      sync.Mutex
	rules   []*Rule
	history []Event
	logger  *log.Logger
	now     func() time.Time
}

func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{logger: logger, now: now}
}

// AddRule compiles and registers a condition, returning the new rule's
// ID. Invalid conditions are rejected at registration, never at
// evaluation time.
func (e *Engine) AddRule(condition string) (string, error) {
	expr, err := ParseCondition(condition)
	if err != nil {
		return "", fmt.Errorf("parse condition: %w", err)
	}

	rule := &Rule{
		ID:        uuid.New().String(),
		Condition: condition,
		expr:      expr,
	}

	e.mu.Lock()
	e.rules = append(e.rules, rule)
	n := len(e.rules)
	e.mu.Unlock()

	observability.UpdateActiveRules(n)
	return rule.ID, nil
}

// RemoveRule deletes a rule by ID.
func (e *Engine) RemoveRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, r := range e.rules {
		if r.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			observability.UpdateActiveRules(len(e.rules))
			return nil
		}
	}
	return ErrRuleNotFound
}

// RemoveByCondition deletes every rule whose condition string matches
// exactly, returning how many were removed.
func (e *Engine) RemoveByCondition(condition string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.rules[:0]
	removed := 0
	for _, r := range e.rules {
		if r.Condition == condition {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	e.rules = kept
	if removed > 0 {
		observability.UpdateActiveRules(len(e.rules))
	}
	return removed
}

// Evaluate runs every armed rule against the context. A rule whose
// condition holds transitions to triggered, increments its counter and
// appends one history event; an already-triggered rule is skipped.
// Evaluation errors count as "condition false" and are logged, never
// propagated. Returns the events fired by this evaluation.
func (e *Engine) Evaluate(context map[string]float64) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fired []Event
	for _, r := range e.rules {
		if r.Triggered {
			continue
		}

		ok, err := Eval(r.expr, context)
		if err != nil {
			e.logger.Printf("[alert] rule %s eval error: %v", r.ID, err)
			observability.RecordAlertEvalError()
			continue
		}
		if !ok {
			continue
		}

		ts := e.now().UTC()
		r.Triggered = true
		r.TriggeredAt = &ts
		r.TriggerCount++

		ctxCopy := make(map[string]float64, len(context))
		for k, v := range context {
			ctxCopy[k] = v
		}
		ev := Event{
			RuleID:       r.ID,
			Condition:    r.Condition,
			TriggeredAt:  ts,
			TriggerCount: r.TriggerCount,
			Context:      ctxCopy,
		}
		e.appendEvent(ev)
		fired = append(fired, ev)
		observability.RecordAlertTriggered()
		e.logger.Printf("[alert] triggered: %s (count %d)", r.Condition, r.TriggerCount)
	}
	return fired
}

// appendEvent keeps the history bounded, dropping the oldest entry.
// Caller holds e.mu.
func (e *Engine) appendEvent(ev Event) {
	e.history = append(e.history, ev)
	if len(e.history) > historyCap {
		e.history = e.history[len(e.history)-historyCap:]
	}
}

// Reset re-arms a triggered rule so it can fire again. The trigger
// counter is preserved.
func (e *Engine) Reset(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.rules {
		if r.ID == id {
			r.Triggered = false
			r.TriggeredAt = nil
			return nil
		}
	}
	return ErrRuleNotFound
}

// ResetAll re-arms every rule.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.rules {
		r.Triggered = false
		r.TriggeredAt = nil
	}
}

// Rules returns a snapshot of the registered rules.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = *r
	}
	return out
}

// History returns the most recent events, newest last. limit <= 0
// returns everything retained.
func (e *Engine) History(limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	events := e.history
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}
