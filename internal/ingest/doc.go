// Package ingest applies verified relay events to stored state.
//
// Each event maps to an eventstate.Key. The engine keeps exactly one
// Revision per key and resolves competing revisions last-write-wins by
// (created_at, id): a strictly newer timestamp wins, and on a timestamp tie
// the lexicographically greater event id wins. Losing and duplicate
// deliveries are reported as Skipped, never as errors. Only events the
// codec cannot decode are errors (*RejectedError).
//
// The read-modify-write for one key is a compare-and-swap against the
// Store, retried with a fresh read when another writer got there first.
// Different keys never contend.
//
// Thread-safety: Engine is safe for concurrent use.
package ingest
