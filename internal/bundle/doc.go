// Package bundle assembles and transfers sync bundles.
//
// A SyncBundle is a versioned, ordered list of event drafts that together
// form a coherent snapshot of one farm: the profiles of the people involved,
// the farm itself, its plots and the list sets that reference it. Bundles
// are built from stored revisions by re-encoding them through the codec, so
// every draft in a bundle is canonical.
//
// Two serializations exist. The JSON form ({"version", "events"}) is the
// interchange shape. The binary form wraps a zstd-compressed CBOR payload
// in a CBOR envelope carrying the version and a BLAKE3 digest of the
// uncompressed payload. Both reject unknown versions before touching the
// events.
package bundle
