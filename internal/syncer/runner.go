package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/wire"
)

const (
	// DefaultFetchTimeout bounds a single FetchEvents call.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultLimit is the relay-side limit of one fetch.
	DefaultLimit = 500

	// DefaultParallelism is the number of shards synced at once.
	DefaultParallelism = 4
)

// Shard is a slice of the event space synced and checkpointed as a unit.
type Shard struct {
	ID      checkpoint.ShardID `json:"id" yaml:"id"`
	Kinds   []uint32           `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	Authors []string           `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// Filter returns the relay filter for the shard starting at w.
// Since is inclusive: events sharing the watermark's second are fetched
// again and skipped as duplicates, never lost.
func (s Shard) Filter(w checkpoint.Watermark, limit int) nostr.Filter {
	f := nostr.Filter{Authors: s.Authors, Limit: limit}
	for _, k := range s.Kinds {
		f.Kinds = append(f.Kinds, int(k))
	}
	if w.CreatedAt > 0 {
		since := nostr.Timestamp(w.CreatedAt)
		f.Since = &since
	}
	return f
}

// ShardResult reports one round of one shard.
type ShardResult struct {
	Shard      checkpoint.ShardID        `json:"shard"`
	Fetched    int                       `json:"fetched"`
	Summary    ingest.Summary            `json:"summary"`
	Advanced   bool                      `json:"advanced"`
	Checkpoint checkpoint.ShardCheckpoint `json:"checkpoint"`
	// Truncated is set when one second held more events than the page
	// limit. Events of that second past the limit were not fetched and the
	// watermark moved on without them.
	Truncated  *checkpoint.EpochSeconds   `json:"truncated,omitempty"`
}

// Runner drives fetch, ingest and checkpoint for a set of shards.
type Runner struct {
	fetcher     Fetcher
	engine      *ingest.Engine
	checkpoints *checkpoint.Manager
	logger      *slog.Logger
	timeout     time.Duration
	limit       int
	parallelism int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithFetchTimeout sets the timeout passed to each FetchEvents call.
func WithFetchTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLimit sets the relay-side limit of one fetch.
func WithLimit(n int) RunnerOption {
	return func(r *Runner) {
		r.limit = n
	}
}

// WithParallelism sets how many shards sync at once.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		r.parallelism = n
	}
}

// NewRunner returns a Runner.
func NewRunner(f Fetcher, e *ingest.Engine, m *checkpoint.Manager, opts ...RunnerOption) *Runner {
	r := &Runner{
		fetcher:     f,
		engine:      e,
		checkpoints: m,
		logger:      slog.Default(),
		timeout:     DefaultFetchTimeout,
		limit:       DefaultLimit,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SyncShard runs one fetch round for sh. The checkpoint is advanced only
// after the whole batch was ingested without a store error. Events the
// codec rejects still move the watermark; refetching them cannot succeed.
func (r *Runner) SyncShard(ctx context.Context, sh Shard) (ShardResult, error) {
	res := ShardResult{Shard: sh.ID}
	logger := r.logger.With("shard", string(sh.ID))

	cp, _, err := r.checkpoints.Get(ctx, sh.ID)
	if err != nil {
		return res, err
	}
	res.Checkpoint = cp
	start := cp.Watermark()

	fetched, truncated, err := r.fetch(ctx, sh.Filter(start, r.limit))
	if err != nil {
		return res, fmt.Errorf("shard %s: fetch: %w", sh.ID, err)
	}
	res.Fetched = len(fetched)
	if truncated != nil {
		sec := checkpoint.EpochSeconds(*truncated)
		res.Truncated = &sec
		logger.Warn("page limit hid events within one second",
			"created_at", uint32(sec),
			"limit", r.limit,
		)
	}
	if len(fetched) == 0 {
		logger.Debug("shard up to date")
		return res, nil
	}

	events := make([]wire.RawEvent, 0, len(fetched))
	high := start
	for _, ev := range fetched {
		raw, err := wire.FromNostr(ev)
		if err != nil {
			res.Summary.Rejected++
			logger.Debug("dropping out-of-range event", "event_id", ev.ID, "error", err)
			continue
		}
		events = append(events, raw)
		if w := (checkpoint.Watermark{CreatedAt: checkpoint.EpochSeconds(raw.CreatedAt), EventID: raw.ID}); w.After(high) {
			high = w
		}
	}

	results, err := r.engine.IngestBatch(ctx, events)
	if err != nil {
		return res, fmt.Errorf("shard %s: ingest: %w", sh.ID, err)
	}
	sum := ingest.Summarize(results)
	res.Summary.Applied += sum.Applied
	res.Summary.Skipped += sum.Skipped
	res.Summary.Rejected += sum.Rejected

	next, advanced, err := r.checkpoints.Advance(ctx, sh.ID, high)
	if err != nil {
		return res, err
	}
	res.Advanced = advanced
	res.Checkpoint = next

	logger.Info("shard synced",
		"fetched", res.Fetched,
		"applied", res.Summary.Applied,
		"skipped", res.Summary.Skipped,
		"rejected", res.Summary.Rejected,
		"last_created_at", uint32(next.LastCreatedAt),
	)
	return res, nil
}

// fetch pages backwards with Until while relays return full pages, so a
// limit never hides older events behind the new watermark. A non-nil
// truncated second means a full page fell inside that second and paging
// could not get past it. Filters have no offset, so holding the watermark
// there would refetch the same page forever.
func (r *Runner) fetch(ctx context.Context, filter nostr.Filter) ([]nostr.Event, *nostr.Timestamp, error) {
	seen := make(map[string]struct{})
	var out []nostr.Event
	for {
		page, err := r.fetcher.FetchEvents(ctx, filter, r.timeout)
		if err != nil {
			return nil, nil, err
		}
		oldest := nostr.Timestamp(math.MaxInt64)
		for _, ev := range page {
			if ev.CreatedAt < oldest {
				oldest = ev.CreatedAt
			}
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			out = append(out, ev)
		}
		if filter.Limit <= 0 || len(page) < filter.Limit {
			return out, nil, nil
		}
		// Until is inclusive, so a full page ending at Until made no progress.
		if filter.Until != nil && *filter.Until == oldest {
			return out, &oldest, nil
		}
		until := oldest
		filter.Until = &until
	}
}

// Run syncs every shard once, up to the configured parallelism. The first
// shard error cancels the rest; results of finished shards are kept.
func (r *Runner) Run(ctx context.Context, shards []Shard) ([]ShardResult, error) {
	if err := validateShards(shards); err != nil {
		return nil, err
	}
	results := make([]ShardResult, len(shards))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, sh := range shards {
		i, sh := i, sh
		g.Go(func() error {
			res, err := r.SyncShard(ctx, sh)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Loop calls Run every interval until ctx is done. Round errors are logged
// and the loop continues; a failed shard retries from its old checkpoint.
func (r *Runner) Loop(ctx context.Context, shards []Shard, interval time.Duration) error {
	if err := validateShards(shards); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx, shards); err != nil && ctx.Err() == nil {
			r.logger.Warn("sync round failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ErrDuplicateShard is returned when two shards share an id.
var ErrDuplicateShard = errors.New("duplicate shard id")

func validateShards(shards []Shard) error {
	seen := make(map[checkpoint.ShardID]struct{}, len(shards))
	for _, sh := range shards {
		if sh.ID == "" {
			return checkpoint.ErrEmptyShardID
		}
		if _, ok := seen[sh.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateShard, sh.ID)
		}
		seen[sh.ID] = struct{}{}
	}
	return nil
}
