package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store persists shard checkpoints with per-shard atomic writes.
//
// GetCheckpoint returns nil when the shard has no checkpoint.
// CompareAndSwapCheckpoint writes next only if the stored checkpoint still
// equals expected (absent when expected is nil) and reports whether it did.
// Checkpoints returns every stored checkpoint ordered by shard id.
type Store interface {
	GetCheckpoint(ctx context.Context, id ShardID) (*ShardCheckpoint, error)
	PutCheckpoint(ctx context.Context, cp ShardCheckpoint) error
	CompareAndSwapCheckpoint(ctx context.Context, expected *ShardCheckpoint, next ShardCheckpoint) (bool, error)
	Checkpoints(ctx context.Context) ([]ShardCheckpoint, error)
}

// ErrEmptyShardID is returned for checkpoints without a shard id.
var ErrEmptyShardID = errors.New("checkpoint: empty shard id")

// Manager reads and advances shard checkpoints.
type Manager struct {
	store   Store
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock stamping snapshots. Default: time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a manager over s.
func NewManager(s Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  s,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

// Get returns the checkpoint of shard id. The bool is false when the shard
// has never been checkpointed.
func (m *Manager) Get(ctx context.Context, id ShardID) (ShardCheckpoint, bool, error) {
	cp, err := m.store.GetCheckpoint(ctx, id)
	if err != nil {
		return ShardCheckpoint{}, false, fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	if cp == nil {
		return ShardCheckpoint{}, false, nil
	}
	return *cp, true, nil
}

// Upsert replaces the checkpoint of cp.ShardID or inserts it. The write is
// unconditional; fetch loops should prefer Advance.
func (m *Manager) Upsert(ctx context.Context, cp ShardCheckpoint) error {
	if cp.ShardID == "" {
		return ErrEmptyShardID
	}
	if err := m.store.PutCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("put checkpoint %s: %w", cp.ShardID, err)
	}
	m.metrics.record(cp)
	return nil
}

// Advance moves shard id to w if w is past the stored watermark. It never
// moves a watermark backwards and returns the checkpoint in effect
// afterwards together with whether it changed.
//
// Call Advance only after the events up to w have been durably ingested.
func (m *Manager) Advance(ctx context.Context, id ShardID, w Watermark) (ShardCheckpoint, bool, error) {
	if id == "" {
		return ShardCheckpoint{}, false, ErrEmptyShardID
	}
	next := w.Checkpoint(id)
	for {
		if err := ctx.Err(); err != nil {
			return ShardCheckpoint{}, false, err
		}
		cur, err := m.store.GetCheckpoint(ctx, id)
		if err != nil {
			return ShardCheckpoint{}, false, fmt.Errorf("advance checkpoint %s: %w", id, err)
		}
		if cur != nil && !w.After(cur.Watermark()) {
			return *cur, false, nil
		}
		ok, err := m.store.CompareAndSwapCheckpoint(ctx, cur, next)
		if err != nil {
			return ShardCheckpoint{}, false, fmt.Errorf("advance checkpoint %s: %w", id, err)
		}
		if ok {
			m.metrics.record(next)
			m.logger.Debug("checkpoint advanced",
				"shard", string(id),
				"created_at", uint32(w.CreatedAt),
				"event_id", w.EventID,
			)
			return next, true, nil
		}
	}
}

// Snapshot returns every stored checkpoint stamped with the current time.
func (m *Manager) Snapshot(ctx context.Context) (IndexCheckpoint, error) {
	shards, err := m.store.Checkpoints(ctx)
	if err != nil {
		return IndexCheckpoint{}, fmt.Errorf("snapshot checkpoints: %w", err)
	}
	if shards == nil {
		shards = []ShardCheckpoint{}
	}
	return IndexCheckpoint{GeneratedAt: FromTime(m.now()), Shards: shards}, nil
}

// Metrics holds the manager's collectors.
type Metrics struct {
	watermark *prometheus.GaugeVec
	writes    *prometheus.CounterVec
}

// NewMetrics registers the checkpoint collectors with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		watermark: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relaysync_checkpoint_last_created_at_seconds",
			Help: "Watermark created_at of each shard",
		}, []string{"shard"}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relaysync_checkpoint_writes_total",
			Help: "Checkpoint writes, by shard",
		}, []string{"shard"}),
	}
}

func (m *Metrics) record(cp ShardCheckpoint) {
	m.watermark.WithLabelValues(string(cp.ShardID)).Set(float64(cp.LastCreatedAt))
	m.writes.WithLabelValues(string(cp.ShardID)).Inc()
}
