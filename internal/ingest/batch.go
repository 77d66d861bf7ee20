package ingest

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/wire"
)

// Result is the per-event result of IngestBatch. Err is set only for
// rejected events; Outcome is empty in that case.
type Result struct {
	EventID string
	Key     eventstate.Key
	Outcome Outcome
	Reason  Reason
	Err     error
}

// Summary counts results by outcome.
type Summary struct {
	Applied  int `json:"applied"`
	Skipped  int `json:"skipped"`
	Rejected int `json:"rejected"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Rejected++
		case r.Outcome == Applied:
			s.Applied++
		default:
			s.Skipped++
		}
	}
	return s
}

// IngestBatch ingests events and returns one Result per event, in input
// order.
//
// Events sharing a key are applied sequentially in input order; distinct
// keys run concurrently up to the engine's concurrency bound. Rejected
// events are reported in their Result and do not stop the batch. Any other
// error (store, contention, context) aborts the batch and is returned; the
// results are then incomplete and must not be used to advance a checkpoint.
func (e *Engine) IngestBatch(ctx context.Context, events []wire.RawEvent) ([]Result, error) {
	results := make([]Result, len(events))

	// Group indices by key, preserving first-seen order.
	groups := make(map[eventstate.Key][]int)
	var order []eventstate.Key
	for i, ev := range events {
		key := eventstate.KeyOf(ev)
		results[i] = Result{EventID: ev.ID, Key: key}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, key := range order {
		indices := groups[key]
		g.Go(func() error {
			for _, i := range indices {
				reason, err := e.ingest(gctx, events[i])
				var rejected *RejectedError
				switch {
				case errors.As(err, &rejected):
					results[i].Err = err
				case err != nil:
					return err
				default:
					results[i].Outcome = reason.Outcome()
					results[i].Reason = reason
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
