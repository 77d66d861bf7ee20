package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/wire"
)

func TestDecide(t *testing.T) {
	cur := &Revision{EventID: "m", CreatedAt: 100, ContentHash: "h1"}

	tests := []struct {
		name string
		cur  *Revision
		next Revision
		want Reason
	}{
		{"absent", nil, Revision{EventID: "a", CreatedAt: 1}, ReasonNew},
		{"newer", cur, Revision{EventID: "a", CreatedAt: 101, ContentHash: "h1"}, ReasonNewer},
		{"tie, greater id", cur, Revision{EventID: "z", CreatedAt: 100, ContentHash: "h2"}, ReasonTieBreak},
		{"tie, same id", cur, Revision{EventID: "m", CreatedAt: 100, ContentHash: "h1"}, ReasonDuplicate},
		{"older, same hash", cur, Revision{EventID: "z", CreatedAt: 50, ContentHash: "h1"}, ReasonDuplicate},
		{"older", cur, Revision{EventID: "z", CreatedAt: 50, ContentHash: "h2"}, ReasonStale},
		{"tie, smaller id", cur, Revision{EventID: "a", CreatedAt: 100, ContentHash: "h2"}, ReasonStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.cur, tt.next)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got == ReasonNew || got == ReasonNewer || got == ReasonTieBreak, got.Applies())
		})
	}
}

func TestReason_Outcome(t *testing.T) {
	assert.Equal(t, Applied, ReasonNew.Outcome())
	assert.Equal(t, Applied, ReasonTieBreak.Outcome())
	assert.Equal(t, Skipped, ReasonDuplicate.Outcome())
	assert.Equal(t, Skipped, ReasonStale.Outcome())
	assert.Equal(t, Skipped, ReasonSeen.Outcome())
}

func TestNewRevision_CanonicalizesTags(t *testing.T) {
	ev := wire.RawEvent{
		ID:        "ev1",
		Author:    "alice",
		CreatedAt: 10,
		Kind:      30340,
		Content:   "{}",
		Tags:      wire.Tags{{"t", "b"}, {" d ", " x "}, {"t", "b"}},
	}
	rev, err := NewRevision(ev)
	require.NoError(t, err)

	assert.Equal(t, wire.Tags{{"d", "x"}, {"t", "b"}}, rev.Tags)
	assert.Equal(t, eventstate.MustContentHash("{}", ev.Tags), rev.ContentHash)
	assert.Equal(t, eventstate.NewKey(30340, "alice", "x"), rev.Key())

	// The input is untouched.
	assert.Equal(t, " d ", ev.Tags[1][0])

	back := rev.Event()
	assert.Equal(t, ev.ID, back.ID)
	assert.Equal(t, rev.Tags, back.Tags)
}

func TestRevisionFilter(t *testing.T) {
	r := Revision{Kind: 1, Author: "alice"}

	assert.True(t, RevisionFilter{}.Matches(r))
	assert.True(t, RevisionFilter{Kinds: []uint32{0, 1}}.Matches(r))
	assert.False(t, RevisionFilter{Kinds: []uint32{0}}.Matches(r))
	assert.True(t, RevisionFilter{Authors: []string{"alice"}}.Matches(r))
	assert.False(t, RevisionFilter{Kinds: []uint32{1}, Authors: []string{"bob"}}.Matches(r))
}
