// Package checkpoint tracks per-shard synchronization watermarks.
//
// A shard is a partition of the event space (a set of kinds and authors)
// that a fetch loop synchronizes independently. Its checkpoint records the
// newest (created_at, event id) pair that has been durably ingested, plus an
// optional opaque relay cursor. Fetch loops read the watermark, fetch since
// it, ingest, and only then advance it, so a crash between fetch and
// ingest replays events instead of losing them.
//
// Checkpoint state lives in an external Store that provides per-shard
// atomic writes; Manager holds no locks of its own.
//
// Timestamps are epoch seconds. Decoding a millisecond-scale value fails
// with ErrNotSeconds rather than truncating.
package checkpoint
