package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/relaysync/internal/dtag"
	"github.com/roach88/relaysync/internal/wire"
)

func TestDTag_ValidAndDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for n := uint64(0); n < 100; n++ {
		d := DTag(n)
		assert.NoError(t, dtag.Validate(d), d)
		assert.False(t, seen[d], "duplicate %s", d)
		seen[d] = true
	}
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAA", DTag(0))
}

func TestEventBuilder(t *testing.T) {
	b := Event(7).ID("ev2").Author("bob").At(200).Content("+").Tag("e_root", "root1", "auth1", "1", "")
	ev := b.Build()

	assert.Equal(t, wire.RawEvent{
		ID:        "ev2",
		Author:    "bob",
		CreatedAt: 200,
		Kind:      7,
		Content:   "+",
		Tags:      wire.Tags{{"e_root", "root1", "auth1", "1", ""}},
	}, ev)

	// Builds are independent copies.
	ev.Tags[0][1] = "changed"
	assert.Equal(t, "root1", b.Build().Tags[0][1])
}

func TestFromParts(t *testing.T) {
	ev := FromParts(wire.Parts{Kind: 1, Content: "hi", Tags: wire.Tags{{"t", "farm"}}}).ID("p1").Build()
	assert.Equal(t, uint32(1), ev.Kind)
	assert.Equal(t, "hi", ev.Content)
	assert.Equal(t, DefaultCreatedAt, ev.CreatedAt)
	assert.Equal(t, "p1", ev.ID)
}
