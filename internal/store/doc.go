// Package store provides the atomic storage backends behind the ingest
// engine and the checkpoint manager.
//
// Three backends implement Backend:
//   - SQLite: durable single-file storage (WAL mode)
//   - Redis: shared storage for several processes, CAS via Lua scripts
//   - Memory: process-local storage for tests and dry runs
//
// # Atomicity
//
// Every backend offers per-key compare-and-swap for revisions and per-shard
// compare-and-swap for checkpoints. No backend holds a lock across calls;
// callers retry lost swaps.
//
//   - SQLite: INSERT ... ON CONFLICT DO NOTHING for first writes, and
//     UPDATE ... WHERE event_id = ? for replacements, on a single connection
//   - Redis: one Lua script per swap
//   - Memory: xsync.MapOf.Compute
//
// # Ordering
//
// Revisions and Checkpoints return results ordered by key string and shard
// id respectively, so listings are deterministic across backends.
package store
