package checkpoint

import (
	"slices"
)

// ShardID names a shard.
type ShardID string

// ShardCheckpoint is the persisted watermark of one shard.
type ShardCheckpoint struct {
	ShardID       ShardID      `json:"shard_id" yaml:"shard_id"`
	LastCreatedAt EpochSeconds `json:"last_created_at" yaml:"last_created_at"`
	LastEventID   *string      `json:"last_event_id,omitempty" yaml:"last_event_id,omitempty"`
	Cursor        *string      `json:"cursor,omitempty" yaml:"cursor,omitempty"`
}

// Watermark returns the position the checkpoint records.
func (c ShardCheckpoint) Watermark() Watermark {
	w := Watermark{CreatedAt: c.LastCreatedAt}
	if c.LastEventID != nil {
		w.EventID = *c.LastEventID
	}
	if c.Cursor != nil {
		w.Cursor = *c.Cursor
	}
	return w
}

// Equal reports whether two checkpoints hold the same values.
func (c ShardCheckpoint) Equal(o ShardCheckpoint) bool {
	return c.ShardID == o.ShardID &&
		c.LastCreatedAt == o.LastCreatedAt &&
		equalPtr(c.LastEventID, o.LastEventID) &&
		equalPtr(c.Cursor, o.Cursor)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Watermark is a position in a shard's (created_at, event id) order.
type Watermark struct {
	CreatedAt EpochSeconds
	EventID   string
	Cursor    string
}

// After reports whether w is strictly past o. Cursors do not take part in
// the ordering.
func (w Watermark) After(o Watermark) bool {
	if w.CreatedAt != o.CreatedAt {
		return w.CreatedAt > o.CreatedAt
	}
	return w.EventID > o.EventID
}

// Checkpoint returns the checkpoint recording w for shard id. Empty event
// ids and cursors are stored as absent.
func (w Watermark) Checkpoint(id ShardID) ShardCheckpoint {
	cp := ShardCheckpoint{ShardID: id, LastCreatedAt: w.CreatedAt}
	if w.EventID != "" {
		eventID := w.EventID
		cp.LastEventID = &eventID
	}
	if w.Cursor != "" {
		cursor := w.Cursor
		cp.Cursor = &cursor
	}
	return cp
}

// IndexCheckpoint is a snapshot of every shard's checkpoint.
type IndexCheckpoint struct {
	GeneratedAt EpochSeconds      `json:"generated_at" yaml:"generated_at"`
	Shards      []ShardCheckpoint `json:"shards" yaml:"shards"`
}

// Get returns the checkpoint of shard id.
func (ix IndexCheckpoint) Get(id ShardID) (ShardCheckpoint, bool) {
	i := slices.IndexFunc(ix.Shards, func(c ShardCheckpoint) bool { return c.ShardID == id })
	if i < 0 {
		return ShardCheckpoint{}, false
	}
	return ix.Shards[i], true
}

// Upsert replaces the checkpoint of cp.ShardID in place, or appends it when
// the shard is not present. Shard ids stay unique.
func (ix *IndexCheckpoint) Upsert(cp ShardCheckpoint) {
	i := slices.IndexFunc(ix.Shards, func(c ShardCheckpoint) bool { return c.ShardID == cp.ShardID })
	if i < 0 {
		ix.Shards = append(ix.Shards, cp)
		return
	}
	ix.Shards[i] = cp
}
