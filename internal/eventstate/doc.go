// Package eventstate derives the logical identity and content hash of an
// event.
//
// A Key (kind, author, discriminator) names one "latest wins" object; every
// event sharing a Key is a revision of the same object. ContentHash tells
// two revisions apart by meaning rather than by transport identity: events
// with equal content and logically equal tags hash equally regardless of
// id, signature, tag order or incidental whitespace.
//
// Both are recomputed on demand and never stored as entities of their own.
package eventstate
