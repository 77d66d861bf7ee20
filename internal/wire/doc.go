// Package wire defines the generic event shapes exchanged with relays and
// the canonical tag ordering every other package relies on.
//
// This package imports nothing internal. Everything above it (codec,
// eventstate, ingest, bundle) speaks in terms of Tags, Parts, EventDraft
// and RawEvent.
//
// Key invariants:
//   - Canonicalize is total and idempotent; it never mutates its input
//   - Canonical tag JSON is the only serialization used for content hashing
//   - created_at is always epoch seconds in the u32 range
package wire
