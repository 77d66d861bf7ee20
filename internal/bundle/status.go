package bundle

import (
	"context"
	"fmt"

	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/wire"
)

// RevisionReader reads the stored revision of one key.
type RevisionReader interface {
	Current(ctx context.Context, key eventstate.Key) (*ingest.Revision, error)
}

// SyncStatus compares a bundle against a store.
type SyncStatus struct {
	// Expected is the number of distinct keys the bundle carries.
	Expected int `json:"expected"`
	// InSync counts keys whose stored content hash matches the bundle.
	InSync int `json:"in_sync"`
	// Missing lists keys with no stored revision.
	Missing []string `json:"missing"`
	// Differs lists keys stored with different content.
	Differs []string `json:"differs"`
}

// Complete reports whether every key in the bundle is stored unchanged.
func (s SyncStatus) Complete() bool {
	return s.InSync == s.Expected
}

// Status reports how much of b the store already holds. Drafts have no
// event id, so regular kinds cannot be keyed and are not counted.
func Status(ctx context.Context, b SyncBundle, r RevisionReader) (SyncStatus, error) {
	st := SyncStatus{Missing: []string{}, Differs: []string{}}
	seen := make(map[eventstate.Key]bool, len(b.Events))

	for _, ev := range b.Events {
		if eventstate.ClassOf(ev.Kind) == eventstate.Regular {
			continue
		}
		key := eventstate.KeyFor(ev.Kind, ev.Author, "", wire.Canonicalize(ev.Tags))
		if seen[key] {
			continue
		}
		seen[key] = true
		st.Expected++

		want, err := eventstate.ContentHash(ev.Content, ev.Tags)
		if err != nil {
			return SyncStatus{}, fmt.Errorf("hash %s: %w", key, err)
		}
		rev, err := r.Current(ctx, key)
		if err != nil {
			return SyncStatus{}, fmt.Errorf("read %s: %w", key, err)
		}
		switch {
		case rev == nil:
			st.Missing = append(st.Missing, key.String())
		case rev.ContentHash != want:
			st.Differs = append(st.Differs, key.String())
		default:
			st.InSync++
		}
	}
	return st, nil
}
