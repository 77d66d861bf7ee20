// Package codec maps typed records to and from the generic wire triple
// (kind, content, tags).
//
// Every record type has an EncodeX/DecodeX pair. Encode and Decode dispatch
// over the closed Record sum type by Go type and by wire kind respectively.
// Encoding validates, builds the record's tag grammar and canonicalizes the
// result; decoding checks the kind, canonicalizes incoming tags, locates
// required tags by key and re-validates everything encoding enforced.
//
// Failures are typed: *EncodeError names the offending field and
// *ParseError names the offending tag. Nothing here performs I/O.
//
// Reference tags have the shape
//
//	[relation, event-id, author, kind, d-tag, relay...]
//
// where the d-tag slot is empty for non-addressable targets.
package codec
