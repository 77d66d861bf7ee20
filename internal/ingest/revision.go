package ingest

import (
	"context"
	"fmt"

	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/wire"
)

// Outcome is the terminal result of ingesting one well-formed event.
type Outcome string

const (
	// Applied means the event became the stored revision for its key.
	Applied Outcome = "applied"

	// Skipped means the stored revision was left untouched.
	Skipped Outcome = "skipped"
)

// Reason explains an Outcome.
type Reason string

const (
	ReasonNew       Reason = "new"
	ReasonNewer     Reason = "newer"
	ReasonTieBreak  Reason = "tie_break"
	ReasonDuplicate Reason = "duplicate"
	ReasonStale     Reason = "stale"
	ReasonSeen      Reason = "seen"
)

// Applies reports whether the reason leads to a write.
func (r Reason) Applies() bool {
	return r == ReasonNew || r == ReasonNewer || r == ReasonTieBreak
}

// Outcome maps the reason to its outcome.
func (r Reason) Outcome() Outcome {
	if r.Applies() {
		return Applied
	}
	return Skipped
}

// Revision is the stored state of one key: the winning event's content,
// canonical tags and content hash.
type Revision struct {
	EventID     string    `json:"event_id"`
	Author      string    `json:"author"`
	Kind        uint32    `json:"kind"`
	CreatedAt   uint32    `json:"created_at"`
	Content     string    `json:"content"`
	Tags        wire.Tags `json:"tags"`
	ContentHash string    `json:"content_hash"`
	Sig         string    `json:"sig,omitempty"`
}

// NewRevision builds the revision an event would store.
func NewRevision(e wire.RawEvent) (Revision, error) {
	tags := wire.Canonicalize(e.Tags)
	hash, err := eventstate.ContentHash(e.Content, tags)
	if err != nil {
		return Revision{}, fmt.Errorf("revision %s: %w", e.ID, err)
	}
	return Revision{
		EventID:     e.ID,
		Author:      e.Author,
		Kind:        e.Kind,
		CreatedAt:   e.CreatedAt,
		Content:     e.Content,
		Tags:        tags,
		ContentHash: hash,
		Sig:         e.Sig,
	}, nil
}

// Key returns the key the revision is stored under.
func (r Revision) Key() eventstate.Key {
	return eventstate.KeyFor(r.Kind, r.Author, r.EventID, r.Tags)
}

// Parts returns the wire parts of the stored event.
func (r Revision) Parts() wire.Parts {
	return wire.Parts{Kind: r.Kind, Content: r.Content, Tags: r.Tags}
}

// Event rebuilds the raw event the revision was taken from.
func (r Revision) Event() wire.RawEvent {
	return wire.RawEvent{
		ID:        r.EventID,
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
		Kind:      r.Kind,
		Tags:      r.Tags,
		Content:   r.Content,
		Sig:       r.Sig,
	}
}

// Decide compares an incoming revision against the stored one (nil when
// absent) and returns why it wins or loses.
//
// Decide is pure; it is the whole last-write-wins rule.
func Decide(current *Revision, next Revision) Reason {
	switch {
	case current == nil:
		return ReasonNew
	case next.CreatedAt > current.CreatedAt:
		return ReasonNewer
	case next.CreatedAt == current.CreatedAt && next.EventID > current.EventID:
		return ReasonTieBreak
	case next.ContentHash == current.ContentHash:
		return ReasonDuplicate
	default:
		return ReasonStale
	}
}

// Store is the per-key atomic storage the engine writes through.
//
// CompareAndSwap stores next under key only if the stored revision is still
// expected: absent when expected is nil, otherwise the revision with
// expected.EventID. It reports whether the write happened. A false return
// with a nil error means another writer changed the key first.
type Store interface {
	Current(ctx context.Context, key eventstate.Key) (*Revision, error)
	CompareAndSwap(ctx context.Context, key eventstate.Key, expected *Revision, next Revision) (bool, error)
}

// RevisionFilter selects stored revisions. Zero-valued fields match
// everything.
type RevisionFilter struct {
	Kinds   []uint32
	Authors []string
}

// Matches reports whether r passes the filter.
func (f RevisionFilter) Matches(r Revision) bool {
	if len(f.Kinds) > 0 && !contains(f.Kinds, r.Kind) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, r.Author) {
		return false
	}
	return true
}

func contains[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Lister enumerates stored revisions. Results are ordered by key string.
type Lister interface {
	Revisions(ctx context.Context, filter RevisionFilter) ([]Revision, error)
}
