package ingest

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/wire"
)

// DefaultConcurrency bounds how many keys IngestBatch processes at once.
const DefaultConcurrency = 8

// Engine applies events to a Store.
type Engine struct {
	store       Store
	logger      *slog.Logger
	metrics     *Metrics
	seen        *lru.Cache[string, struct{}]
	seenSize    int
	maxAttempts int
	concurrency int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the metrics sink. Default: unregistered collectors.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSeenCache remembers the ids of the last size events that reached a
// terminal outcome, so re-deliveries skip the store round trip. Revisions
// only move forward, so a seen event can never be applied again.
// size <= 0 disables the cache (the default).
func WithSeenCache(size int) EngineOption {
	return func(e *Engine) {
		e.seenSize = size
	}
}

// WithMaxAttempts bounds compare-and-swap attempts per event. 0 (the
// default) retries until the context is done.
func WithMaxAttempts(n int) EngineOption {
	return func(e *Engine) {
		e.maxAttempts = n
	}
}

// WithConcurrency bounds parallel keys in IngestBatch.
// Default: DefaultConcurrency.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// NewEngine creates an engine writing through s.
func NewEngine(s Store, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		store:       s,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	if e.seenSize > 0 {
		cache, err := lru.New[string, struct{}](e.seenSize)
		if err != nil {
			return nil, fmt.Errorf("seen cache: %w", err)
		}
		e.seen = cache
	}
	return e, nil
}

// Ingest decodes ev and applies it to its key.
//
// Returns Applied or Skipped for every well-formed event. Returns a
// *RejectedError when decoding or hashing fails, a *ContentionError when the attempt
// limit runs out, and store or context errors as they occur.
func (e *Engine) Ingest(ctx context.Context, ev wire.RawEvent) (Outcome, error) {
	reason, err := e.ingest(ctx, ev)
	if err != nil {
		return "", err
	}
	return reason.Outcome(), nil
}

func (e *Engine) ingest(ctx context.Context, ev wire.RawEvent) (Reason, error) {
	if _, err := codec.Decode(ev.Kind, ev.Content, ev.Tags); err != nil {
		e.metrics.rejected.Inc()
		e.logger.Debug("event rejected",
			"event_id", ev.ID,
			"kind", ev.Kind,
			"error", err,
		)
		return "", &RejectedError{EventID: ev.ID, Kind: ev.Kind, Err: err}
	}

	if e.seen != nil && e.seen.Contains(ev.ID) {
		e.metrics.observe(ReasonSeen)
		return ReasonSeen, nil
	}

	next, err := NewRevision(ev)
	if err != nil {
		e.metrics.rejected.Inc()
		return "", &RejectedError{EventID: ev.ID, Kind: ev.Kind, Err: err}
	}
	key := next.Key()

	reason, err := e.apply(ctx, key, next)
	if err != nil {
		return "", err
	}

	e.metrics.observe(reason)
	if e.seen != nil {
		e.seen.Add(ev.ID, struct{}{})
	}
	e.logger.Debug("event ingested",
		"key", key.String(),
		"event_id", ev.ID,
		"outcome", reason.Outcome(),
		"reason", reason,
	)
	return reason, nil
}

// apply runs the compare-and-swap loop for one key.
func (e *Engine) apply(ctx context.Context, key eventstate.Key, next Revision) (Reason, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if e.maxAttempts > 0 && attempt > e.maxAttempts {
			return "", &ContentionError{Key: key, Attempts: e.maxAttempts}
		}

		current, err := e.store.Current(ctx, key)
		if err != nil {
			return "", fmt.Errorf("key %s: read current: %w", key, err)
		}

		reason := Decide(current, next)
		if !reason.Applies() {
			return reason, nil
		}

		swapped, err := e.store.CompareAndSwap(ctx, key, current, next)
		if err != nil {
			return "", fmt.Errorf("key %s: compare-and-swap: %w", key, err)
		}
		if swapped {
			return reason, nil
		}

		e.metrics.casRetries.Inc()
		e.logger.Debug("compare-and-swap lost, retrying",
			"key", key.String(),
			"event_id", next.EventID,
			"attempt", attempt,
		)
	}
}
