// Package syncer runs the incremental fetch loop.
//
// For each shard the Runner reads the checkpoint, asks the Fetcher for
// events at or after the watermark, ingests them through the engine and
// only then advances the checkpoint. A batch that fails with a store error
// leaves the checkpoint untouched, so the same events are fetched again on
// the next round. Re-delivery is harmless because ingestion is idempotent.
//
// Relay connections are not managed here. Fetcher and Publisher are the
// transport edge and speak go-nostr types.
package syncer
