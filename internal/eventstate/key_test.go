package eventstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/wire"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		kind uint32
		want Class
	}{
		{0, Replaceable},
		{1, Regular},
		{3, Replaceable},
		{7, Regular},
		{1111, Regular},
		{5000, Regular},
		{9999, Regular},
		{10000, Replaceable},
		{19999, Replaceable},
		{20000, Regular},
		{30000, Addressable},
		{30340, Addressable},
		{39999, Addressable},
		{40000, Regular},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassOf(tt.kind), "kind %d", tt.kind)
	}
}

func TestKeyFor(t *testing.T) {
	dtag := "AAAAAAAAAAAAAAAAAAAAAA"
	tags := wire.Tags{{"t", "x"}, {" d ", " " + dtag + " "}}

	assert.Equal(t, NewKey(30340, "alice", dtag), KeyFor(30340, "alice", "ev1", tags))
	assert.Equal(t, NewKey(0, "alice", ""), KeyFor(0, "alice", "ev1", tags))
	assert.Equal(t, NewKey(10000, "alice", ""), KeyFor(10000, "alice", "ev1", nil))
	assert.Equal(t, NewKey(1, "alice", "ev1"), KeyFor(1, "alice", "ev1", tags))
	assert.Equal(t, NewKey(30000, "alice", ""), KeyFor(30000, "alice", "ev1", nil))
}

func TestKeyOf(t *testing.T) {
	e := wire.RawEvent{ID: "ev1", Author: "bob", Kind: 7}
	assert.Equal(t, "7:bob:ev1", KeyOf(e).String())
}

func TestParseKey(t *testing.T) {
	for _, k := range []Key{
		NewKey(30340, "alice", "AAAAAAAAAAAAAAAAAAAAAA"),
		NewKey(0, "alice", ""),
		NewKey(1, "bob", "ev1"),
	} {
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	for _, bad := range []string{"", "1", "1:bob", "x:bob:ev", "-1:bob:ev", "1::ev", "4294967296:bob:ev"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrMalformedKey, bad)
	}
}
