package store

import (
	"context"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/ingest"
)

// Memory keeps revisions and checkpoints in concurrent maps.
//
// Thread-safety: all methods are safe for concurrent use. Swaps run inside
// MapOf.Compute, which holds the key's bucket lock for the duration.
type Memory struct {
	revisions   *xsync.MapOf[eventstate.Key, ingest.Revision]
	checkpoints *xsync.MapOf[checkpoint.ShardID, checkpoint.ShardCheckpoint]
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		revisions:   xsync.NewMapOf[eventstate.Key, ingest.Revision](),
		checkpoints: xsync.NewMapOf[checkpoint.ShardID, checkpoint.ShardCheckpoint](),
	}
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// Current returns the stored revision of key, or nil.
func (m *Memory) Current(_ context.Context, key eventstate.Key) (*ingest.Revision, error) {
	r, ok := m.revisions.Load(key)
	if !ok {
		return nil, nil
	}
	r.Tags = r.Tags.Clone()
	return &r, nil
}

// CompareAndSwap stores next under key if the stored revision is still
// expected.
func (m *Memory) CompareAndSwap(_ context.Context, key eventstate.Key, expected *ingest.Revision, next ingest.Revision) (bool, error) {
	next.Tags = next.Tags.Clone()
	var swapped bool
	m.revisions.Compute(key, func(old ingest.Revision, loaded bool) (ingest.Revision, bool) {
		switch {
		case expected == nil && !loaded:
			swapped = true
			return next, false
		case expected != nil && loaded && old.EventID == expected.EventID:
			swapped = true
			return next, false
		}
		// Delete only when nothing was stored, so a miss leaves no entry.
		return old, !loaded
	})
	return swapped, nil
}

// Revisions lists stored revisions matching filter, ordered by key.
func (m *Memory) Revisions(_ context.Context, filter ingest.RevisionFilter) ([]ingest.Revision, error) {
	type entry struct {
		key string
		rev ingest.Revision
	}
	var entries []entry
	m.revisions.Range(func(k eventstate.Key, r ingest.Revision) bool {
		if filter.Matches(r) {
			r.Tags = r.Tags.Clone()
			entries = append(entries, entry{key: k.String(), rev: r})
		}
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := make([]ingest.Revision, len(entries))
	for i, e := range entries {
		out[i] = e.rev
	}
	return out, nil
}

// GetCheckpoint returns the checkpoint of shard id, or nil.
func (m *Memory) GetCheckpoint(_ context.Context, id checkpoint.ShardID) (*checkpoint.ShardCheckpoint, error) {
	cp, ok := m.checkpoints.Load(id)
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

// PutCheckpoint replaces or inserts cp.
func (m *Memory) PutCheckpoint(_ context.Context, cp checkpoint.ShardCheckpoint) error {
	m.checkpoints.Store(cp.ShardID, cp)
	return nil
}

// CompareAndSwapCheckpoint writes next if the stored checkpoint still
// equals expected.
func (m *Memory) CompareAndSwapCheckpoint(_ context.Context, expected *checkpoint.ShardCheckpoint, next checkpoint.ShardCheckpoint) (bool, error) {
	var swapped bool
	m.checkpoints.Compute(next.ShardID, func(old checkpoint.ShardCheckpoint, loaded bool) (checkpoint.ShardCheckpoint, bool) {
		switch {
		case expected == nil && !loaded:
			swapped = true
			return next, false
		case expected != nil && loaded && old.Equal(*expected):
			swapped = true
			return next, false
		}
		return old, !loaded
	})
	return swapped, nil
}

// Checkpoints returns every checkpoint ordered by shard id.
func (m *Memory) Checkpoints(_ context.Context) ([]checkpoint.ShardCheckpoint, error) {
	cps := []checkpoint.ShardCheckpoint{}
	m.checkpoints.Range(func(_ checkpoint.ShardID, cp checkpoint.ShardCheckpoint) bool {
		cps = append(cps, cp)
		return true
	})
	sort.Slice(cps, func(i, j int) bool { return cps[i].ShardID < cps[j].ShardID })
	return cps, nil
}
