package testutil

import (
	"encoding/binary"

	"github.com/roach88/relaysync/internal/dtag"
	"github.com/roach88/relaysync/internal/wire"
)

// DefaultCreatedAt is the created_at of events built without At.
const DefaultCreatedAt uint32 = 1700000000

// DTag returns the n-th deterministic valid d-tag.
func DTag(n uint64) string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[8:], n)
	return dtag.FromBytes(b)
}

// EventBuilder assembles raw events for tests.
//
//	ev := testutil.Event(codec.KindPost).ID("ev1").Content("hello").Build()
type EventBuilder struct {
	ev wire.RawEvent
}

// Event starts a builder for kind with author "author1" and
// DefaultCreatedAt.
func Event(kind uint32) *EventBuilder {
	return &EventBuilder{ev: wire.RawEvent{
		ID:        "event1",
		Author:    "author1",
		CreatedAt: DefaultCreatedAt,
		Kind:      kind,
	}}
}

// FromParts starts a builder from encoded parts.
func FromParts(p wire.Parts) *EventBuilder {
	b := Event(p.Kind)
	b.ev.Content = p.Content
	b.ev.Tags = p.Tags.Clone()
	return b
}

// ID sets the event id.
func (b *EventBuilder) ID(id string) *EventBuilder {
	b.ev.ID = id
	return b
}

// Author sets the author public key.
func (b *EventBuilder) Author(pk string) *EventBuilder {
	b.ev.Author = pk
	return b
}

// At sets created_at.
func (b *EventBuilder) At(createdAt uint32) *EventBuilder {
	b.ev.CreatedAt = createdAt
	return b
}

// Content sets the content.
func (b *EventBuilder) Content(c string) *EventBuilder {
	b.ev.Content = c
	return b
}

// Tag appends a tag.
func (b *EventBuilder) Tag(key string, values ...string) *EventBuilder {
	b.ev.Tags = append(b.ev.Tags, wire.NewTag(key, values...))
	return b
}

// Build returns a copy of the event.
func (b *EventBuilder) Build() wire.RawEvent {
	ev := b.ev
	ev.Tags = b.ev.Tags.Clone()
	return ev
}
