package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/nbd-wtf/go-nostr"
)

// Parts is the kind/content/tags triple produced by encoding a record.
// It is not persisted; it is the input to signing and to decoding.
type Parts struct {
	Kind    uint32 `json:"kind"`
	Content string `json:"content"`
	Tags    Tags   `json:"tags"`
}

// Draft stamps parts with an author and timestamp.
func (p Parts) Draft(author string, createdAt uint32) EventDraft {
	return EventDraft{
		Kind:      p.Kind,
		CreatedAt: createdAt,
		Author:    author,
		Content:   p.Content,
		Tags:      p.Tags.Clone(),
	}
}

// EventDraft is a fully formed record awaiting an external signer.
// It is treated as immutable once built.
type EventDraft struct {
	Kind      uint32 `json:"kind"`
	CreatedAt uint32 `json:"created_at"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Tags      Tags   `json:"tags"`
}

// Parts returns the kind/content/tags triple of the draft.
func (d EventDraft) Parts() Parts {
	return Parts{Kind: d.Kind, Content: d.Content, Tags: d.Tags}
}

// RawEvent is a signed event delivered by a relay. It has already been
// verified by the transport layer and is read-only here.
type RawEvent struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	CreatedAt uint32 `json:"created_at"`
	Kind      uint32 `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// Parts returns the kind/content/tags triple of the event.
func (e RawEvent) Parts() Parts {
	return Parts{Kind: e.Kind, Content: e.Content, Tags: e.Tags}
}

// ErrOutOfRange is returned when a relay event carries a kind or timestamp
// that does not fit the wire format.
var ErrOutOfRange = errors.New("value out of wire range")

// FromNostr converts a relay event into a RawEvent.
// Negative kinds and timestamps outside the u32 seconds range are rejected.
func FromNostr(ev nostr.Event) (RawEvent, error) {
	if ev.Kind < 0 || int64(ev.Kind) > math.MaxUint32 {
		return RawEvent{}, fmt.Errorf("event %s: kind %d: %w", ev.ID, ev.Kind, ErrOutOfRange)
	}
	if ev.CreatedAt < 0 || int64(ev.CreatedAt) > math.MaxUint32 {
		return RawEvent{}, fmt.Errorf("event %s: created_at %d: %w", ev.ID, ev.CreatedAt, ErrOutOfRange)
	}

	tags := make(Tags, len(ev.Tags))
	for i, t := range ev.Tags {
		tags[i] = Tag(append([]string(nil), t...))
	}

	return RawEvent{
		ID:        ev.ID,
		Author:    ev.PubKey,
		CreatedAt: uint32(ev.CreatedAt),
		Kind:      uint32(ev.Kind),
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}, nil
}

// Nostr converts the event back into the relay representation.
func (e RawEvent) Nostr() nostr.Event {
	return nostr.Event{
		ID:        e.ID,
		PubKey:    e.Author,
		CreatedAt: nostr.Timestamp(e.CreatedAt),
		Kind:      int(e.Kind),
		Tags:      toNostrTags(e.Tags),
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

// Nostr converts the draft into an unsigned relay event for the signer.
func (d EventDraft) Nostr() nostr.Event {
	return nostr.Event{
		PubKey:    d.Author,
		CreatedAt: nostr.Timestamp(d.CreatedAt),
		Kind:      int(d.Kind),
		Tags:      toNostrTags(d.Tags),
		Content:   d.Content,
	}
}

func toNostrTags(tags Tags) nostr.Tags {
	out := make(nostr.Tags, len(tags))
	for i, t := range tags {
		out[i] = nostr.Tag(append([]string(nil), t...))
	}
	return out
}
