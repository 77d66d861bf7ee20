package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/roach88/relaysync/internal/wire"
)

// Fetcher returns the events matching filter, giving up after timeout.
type Fetcher interface {
	FetchEvents(ctx context.Context, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error)

// FetchEvents calls f.
func (f FetcherFunc) FetchEvents(ctx context.Context, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error) {
	return f(ctx, filter, timeout)
}

// PublishOutcome reports how relays answered a publish.
type PublishOutcome struct {
	EventID  string            `json:"event_id"`
	Accepted []string          `json:"accepted"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// OK reports whether at least one relay accepted the event.
func (o PublishOutcome) OK() bool {
	return len(o.Accepted) > 0
}

// Publisher signs and sends a draft. Signing happens outside this module.
type Publisher interface {
	Publish(ctx context.Context, draft wire.EventDraft) (PublishOutcome, error)
}

// PublishError reports a draft no relay accepted.
type PublishError struct {
	Index   int
	Outcome PublishOutcome
	Err     error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish draft %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("publish draft %d: rejected by %d relays", e.Index, len(e.Outcome.Failed))
}

// Unwrap returns the underlying error.
func (e *PublishError) Unwrap() error {
	return e.Err
}

// PublishAll publishes drafts in order and stops at the first draft no
// relay accepted. Order matters: profiles and farms go out before the
// records that reference them.
func PublishAll(ctx context.Context, p Publisher, drafts []wire.EventDraft) ([]PublishOutcome, error) {
	outcomes := make([]PublishOutcome, 0, len(drafts))
	for i, d := range drafts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out, err := p.Publish(ctx, d)
		if err != nil {
			return outcomes, &PublishError{Index: i, Outcome: out, Err: err}
		}
		outcomes = append(outcomes, out)
		if !out.OK() {
			return outcomes, &PublishError{Index: i, Outcome: out}
		}
	}
	return outcomes, nil
}
