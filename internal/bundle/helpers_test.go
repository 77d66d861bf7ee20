package bundle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/store"
	"github.com/roach88/relaysync/internal/testutil"
)

const farmer = "farmer"

var (
	farmDTag  = testutil.DTag(1)
	otherFarm = testutil.DTag(2)
	farmRef   = codec.FarmRef{Pubkey: farmer, DTag: farmDTag}
)

// seed encodes rec and stores it as the current revision of its key.
func seed(t *testing.T, s ingest.Store, author, id string, rec codec.Record) ingest.Revision {
	t.Helper()
	parts, err := codec.Encode(rec)
	require.NoError(t, err)
	ev := testutil.FromParts(parts).ID(id).Author(author).At(testutil.DefaultCreatedAt).Build()
	rev, err := ingest.NewRevision(ev)
	require.NoError(t, err)
	ok, err := s.CompareAndSwap(context.Background(), rev.Key(), nil, rev)
	require.NoError(t, err)
	require.True(t, ok)
	return rev
}

// seedFarm stores a farm with two plots, a plot of another farm, a member
// list set for the farm and an unrelated list set.
func seedFarm(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()

	seed(t, mem, farmer, "farm", codec.Farm{DTag: farmDTag, Name: "Green Acres"})
	seed(t, mem, farmer, "farm2", codec.Farm{DTag: otherFarm, Name: "Elsewhere"})
	seed(t, mem, farmer, "plot1", codec.Plot{DTag: testutil.DTag(10), Farm: farmRef, Name: "Orchard"})
	seed(t, mem, farmer, "plot2", codec.Plot{DTag: testutil.DTag(11), Farm: farmRef, Name: "Greenhouse"})
	seed(t, mem, farmer, "plot3", codec.Plot{
		DTag: testutil.DTag(12),
		Farm: codec.FarmRef{Pubkey: farmer, DTag: otherFarm},
		Name: "Pasture",
	})
	seed(t, mem, farmer, "members", codec.ListSet{
		Kind:  codec.KindFollowSet,
		DTag:  testutil.DTag(20),
		Title: "Members",
		Entries: []codec.ListEntry{
			{Tag: "a", Values: []string{farmRef.Address()}},
			{Tag: "p", Values: []string{"m2"}},
			{Tag: "p", Values: []string{"m1"}},
			{Tag: "p", Values: []string{farmer}},
			{Tag: "p", Values: []string{"m3"}},
		},
	})
	seed(t, mem, farmer, "friends", codec.ListSet{
		Kind:    codec.KindFollowSet,
		DTag:    testutil.DTag(21),
		Entries: []codec.ListEntry{{Tag: "p", Values: []string{"outsider"}}},
	})

	seed(t, mem, farmer, "p-farmer", codec.Profile{Name: "Farmer"})
	seed(t, mem, "m1", "p-m1", codec.Profile{Name: "Member One"})
	seed(t, mem, "m2", "p-m2", codec.Profile{Name: "Member Two"})
	seed(t, mem, "outsider", "p-out", codec.Profile{Name: "Outsider"})
	return mem
}

func kinds(b SyncBundle) []uint32 {
	out := make([]uint32, len(b.Events))
	for i, ev := range b.Events {
		out[i] = ev.Kind
	}
	return out
}

func authors(b SyncBundle) []string {
	out := make([]string, len(b.Events))
	for i, ev := range b.Events {
		out[i] = ev.Author
	}
	return out
}
