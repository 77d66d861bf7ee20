package bundle

import (
	"context"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/wire"
)

func sampleBundle(t *testing.T) SyncBundle {
	t.Helper()
	b, err := newTestBuilder(seedFarm(t)).Build(context.Background(),
		Selector{Author: farmer, FarmDTag: farmDTag},
		Options{IncludeProfiles: true, IncludeListSets: true})
	require.NoError(t, err)
	return b
}

func TestJSON_RoundTrip(t *testing.T) {
	b := sampleBundle(t)
	data, err := Encode(b)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestEncode_EmptyEventsIsArray(t *testing.T) {
	data, err := Encode(SyncBundle{Version: Version})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"events":[]}`, string(data))
}

func TestDecode_Version(t *testing.T) {
	t.Run("unknown version", func(t *testing.T) {
		// Events are not looked at once the version is wrong.
		_, err := Decode([]byte(`{"version":2,"events":"not a list"}`))
		var ve *VersionError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, uint32(2), ve.Got)
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := Decode([]byte(`{"events":[]}`))
		assert.ErrorIs(t, err, ErrMissingVersion)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Decode([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestValidate_Events(t *testing.T) {
	t.Run("empty author", func(t *testing.T) {
		b := SyncBundle{Version: Version, Events: []wire.EventDraft{{Kind: 1, Content: "hi"}}}
		var ee *EventError
		require.ErrorAs(t, b.Validate(), &ee)
		assert.Equal(t, 0, ee.Index)
	})

	t.Run("undecodable event", func(t *testing.T) {
		b := sampleBundle(t)
		b.Events = append(b.Events, wire.EventDraft{Kind: 42, Author: farmer})
		var ee *EventError
		require.ErrorAs(t, b.Validate(), &ee)
		assert.Equal(t, len(b.Events)-1, ee.Index)
	})
}

func TestBinary_RoundTrip(t *testing.T) {
	b := sampleBundle(t)
	data, err := MarshalBinary(b)
	require.NoError(t, err)

	got, err := UnmarshalBinary(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	again, err := MarshalBinary(got)
	require.NoError(t, err)
	assert.Equal(t, data, again, "binary form is deterministic")
}

func TestBinary_Empty(t *testing.T) {
	data, err := MarshalBinary(SyncBundle{Version: Version})
	require.NoError(t, err)
	got, err := UnmarshalBinary(data)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
}

func TestBinary_DigestMismatch(t *testing.T) {
	data, err := MarshalBinary(sampleBundle(t))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, cbor.Unmarshal(data, &env))
	env.Digest[0] ^= 0xff
	tampered, err := cbor.Marshal(env)
	require.NoError(t, err)

	_, err = UnmarshalBinary(tampered)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestBinary_VersionCheckedFirst(t *testing.T) {
	tampered, err := cbor.Marshal(envelope{Version: 7, Payload: []byte("not zstd")})
	require.NoError(t, err)

	_, err = UnmarshalBinary(tampered)
	var ve *VersionError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, uint32(7), ve.Got)

	_, err = MarshalBinary(SyncBundle{Version: 7})
	require.ErrorAs(t, err, &ve)
}

func TestBinary_Garbage(t *testing.T) {
	_, err := UnmarshalBinary([]byte{0xff, 0x00})
	assert.Error(t, err)

	bad, err := cbor.Marshal(envelope{Version: Version, Size: 3, Payload: []byte("xyz")})
	require.NoError(t, err)
	_, err = UnmarshalBinary(bad)
	assert.Error(t, err)
}

func TestDigest_Keyed(t *testing.T) {
	a := Digest([]byte("payload"))
	assert.Len(t, a, 32)
	assert.Equal(t, a, Digest([]byte("payload")))
	assert.NotEqual(t, a, Digest([]byte("payload!")))
}
