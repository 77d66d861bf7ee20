package syncer

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// StaticFetcher serves a fixed set of events and answers filters the way a
// relay does: newest first, truncated to the filter's limit. It replays
// exported event dumps and stands in for relays in tests.
type StaticFetcher struct {
	mu     sync.Mutex
	events []nostr.Event
	calls  int
}

// NewStaticFetcher returns a fetcher over events.
func NewStaticFetcher(events ...nostr.Event) *StaticFetcher {
	f := &StaticFetcher{}
	f.Add(events...)
	return f
}

// Add makes more events available.
func (f *StaticFetcher) Add(events ...nostr.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

// Calls returns the number of FetchEvents calls so far.
func (f *StaticFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FetchEvents implements Fetcher. The timeout is ignored.
func (f *StaticFetcher) FetchEvents(ctx context.Context, filter nostr.Filter, _ time.Duration) ([]nostr.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	var out []nostr.Event
	for i := range f.events {
		if filter.Matches(&f.events[i]) {
			out = append(out, f.events[i])
		}
	}
	slices.SortFunc(out, func(a, b nostr.Event) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
