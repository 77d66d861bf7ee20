package codec

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/wire"
)

func TestReaction_EndToEnd(t *testing.T) {
	r := Reaction{
		Root:    EventRef{ID: "root1", Author: "auth1", Kind: 1},
		Content: "+",
	}

	parts, err := EncodeReaction(r)
	require.NoError(t, err)
	assert.Equal(t, KindReaction, parts.Kind)
	assert.Equal(t, "+", parts.Content)
	assert.Equal(t, wire.Tags{{"e_root", "root1", "auth1", "1", ""}}, parts.Tags)

	data, err := json.Marshal(parts)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "reaction_root1", data)

	got, err := DecodeReaction(parts.Kind, parts.Content, parts.Tags)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestEncodeReaction_MissingRoot(t *testing.T) {
	_, err := EncodeReaction(Reaction{Content: "+"})
	require.Error(t, err)
	assert.True(t, IsEmptyField(err, "root.id"))

	_, err = EncodeReaction(Reaction{Root: EventRef{ID: "root1"}, Content: "+"})
	assert.True(t, IsEmptyField(err, "root.author"))
}

func TestEncodeReaction_EmptyContent(t *testing.T) {
	_, err := EncodeReaction(Reaction{Root: EventRef{ID: "root1", Author: "auth1"}, Content: "  "})
	assert.True(t, IsEmptyField(err, "content"))
}

func TestDecodeReaction_Errors(t *testing.T) {
	t.Run("wrong kind", func(t *testing.T) {
		_, err := DecodeReaction(1, "+", wire.Tags{{"e_root", "root1", "auth1", "1"}})
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ErrCodeInvalidKind, pe.Code)
		assert.Equal(t, "7", pe.Expected)
		assert.Equal(t, uint32(1), pe.Got)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := DecodeReaction(KindReaction, "+", wire.Tags{{"p", "auth1"}})
		assert.True(t, IsMissingTag(err, TagRootRef))
	})

	t.Run("short root", func(t *testing.T) {
		_, err := DecodeReaction(KindReaction, "+", wire.Tags{{"e_root", "root1"}})
		assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
	})

	t.Run("non-numeric kind", func(t *testing.T) {
		_, err := DecodeReaction(KindReaction, "+", wire.Tags{{"e_root", "root1", "auth1", "one"}})
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ErrCodeInvalidNumber, pe.Code)
		assert.Equal(t, TagRootRef, pe.Tag)
	})
}

func TestEncodeRef_RejectsRelayShapedDTag(t *testing.T) {
	for _, d := range []string{"wss://relay.example", "ws://relay.example", "WSS://relay.example"} {
		_, err := EncodeReaction(Reaction{
			Root:    EventRef{ID: "root1", Author: "auth1", Kind: 30023, DTag: d},
			Content: "+",
		})
		var ee *EncodeError
		require.ErrorAs(t, err, &ee, d)
		assert.Equal(t, ErrCodeInvalidField, ee.Code)
		assert.Equal(t, "root.d_tag", ee.Field)
	}

	_, err := EncodeComment(Comment{
		Root:    EventRef{ID: "root1", Author: "auth1", Kind: 1},
		Parent:  EventRef{ID: "c1", Author: "auth2", Kind: 30023, DTag: "wss://relay.example"},
		Content: "x",
	})
	assert.Equal(t, ErrCodeInvalidField, EncodeCode(err))

	// With a relay hint after it, an ordinary d-tag still round trips.
	r := Reaction{
		Root:    EventRef{ID: "root1", Author: "auth1", Kind: 30023, DTag: "notes", Relays: []string{"wss://relay.example"}},
		Content: "+",
	}
	parts, err := EncodeReaction(r)
	require.NoError(t, err)
	got, err := DecodeReaction(parts.Kind, parts.Content, parts.Tags)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestParseRefTag_ShortFormWithRelay(t *testing.T) {
	ref, err := ParseRefTag(wire.Tag{"e_root", "id1", "auth1", "1", "wss://relay.example"}, TagRootRef)
	require.NoError(t, err)
	assert.Equal(t, EventRef{ID: "id1", Author: "auth1", Kind: 1, Relays: []string{"wss://relay.example"}}, ref)
}

func TestDecodeComment_ParentDefaultsToRoot(t *testing.T) {
	root := EventRef{ID: "root1", Author: "auth1", Kind: 1}
	got, err := DecodeComment(KindComment, "nice", wire.Tags{BuildRefTag(TagRootRef, root)})
	require.NoError(t, err)
	assert.Equal(t, root, got.Parent)
}

func TestDecodePost_BlankContent(t *testing.T) {
	_, err := DecodePost(KindPost, " ", nil)
	assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
}

func TestEncodeProfile_Validation(t *testing.T) {
	_, err := EncodeProfile(Profile{})
	assert.True(t, IsEmptyField(err, "name"))

	_, err = EncodeProfile(Profile{Name: "x", Website: "greenacres.example"})
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeInvalidField, ee.Code)
	assert.Equal(t, "website", ee.Field)

	_, err = EncodeProfile(Profile{Name: "x", Type: "alien"})
	assert.Equal(t, ErrCodeInvalidField, EncodeCode(err))
}

func TestEncodeProfile_TypeTravelsAsTag(t *testing.T) {
	parts, err := EncodeProfile(Profile{Name: "x", Type: ProfileCoop})
	require.NoError(t, err)
	assert.Equal(t, wire.Tags{{"t", "radroots:type:coop"}}, parts.Tags)
	assert.NotContains(t, parts.Content, "profile_type")
}

func TestDecodeProfile_InvalidJSON(t *testing.T) {
	_, err := DecodeProfile(KindProfile, "{not json", nil)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeInvalidJSON, pe.Code)
	assert.Equal(t, "content", pe.Tag)
}
