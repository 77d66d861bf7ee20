package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/dtag"
	"github.com/roach88/relaysync/internal/wire"
)

func TestEncodeMessage_Tags(t *testing.T) {
	parts, err := EncodeMessage(Message{
		Recipients: []MessageRecipient{{PublicKey: "pk2"}, {PublicKey: "pk1", RelayURL: "wss://r.example"}},
		Content:    "hello",
		ReplyTo:    &MessageReply{ID: "m0"},
		Subject:    "greetings",
	})
	require.NoError(t, err)
	assert.Equal(t, KindMessage, parts.Kind)
	assert.Equal(t, wire.Tags{
		{"e", "m0"},
		{"p", "pk1", "wss://r.example"},
		{"p", "pk2"},
		{"subject", "greetings"},
	}, parts.Tags)
}

func TestEncodeMessage_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		msg   Message
		field string
	}{
		{"no recipients", Message{Content: "x"}, "recipients"},
		{"blank recipient", Message{Recipients: []MessageRecipient{{PublicKey: " "}}, Content: "x"}, "recipients.public_key"},
		{"blank content", Message{Recipients: []MessageRecipient{{PublicKey: "pk"}}, Content: " "}, "content"},
		{"blank reply id", Message{Recipients: []MessageRecipient{{PublicKey: "pk"}}, Content: "x", ReplyTo: &MessageReply{}}, "reply_to.id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeMessage(tt.msg)
			assert.True(t, IsEmptyField(err, tt.field), "got %v", err)
		})
	}
}

func TestDecodeMessage_Errors(t *testing.T) {
	t.Run("wrong kind", func(t *testing.T) {
		_, err := DecodeMessage(KindPost, "x", wire.Tags{{"p", "pk"}})
		assert.Equal(t, ErrCodeInvalidKind, ParseCode(err))
	})
	t.Run("no recipients", func(t *testing.T) {
		_, err := DecodeMessage(KindMessage, "x", nil)
		assert.True(t, IsMissingTag(err, TagP))
	})
	t.Run("blank relay", func(t *testing.T) {
		_, err := DecodeMessage(KindMessage, "x", wire.Tags{{"p", "pk", ""}})
		assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
	})
	t.Run("blank content", func(t *testing.T) {
		_, err := DecodeMessage(KindMessage, "  ", wire.Tags{{"p", "pk"}})
		assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
	})
}

func TestDecodeGeoChat(t *testing.T) {
	t.Run("teleport in any case", func(t *testing.T) {
		g, err := DecodeGeoChat(KindGeoChat, "hi", wire.Tags{{"g", "9q8"}, {"t", "market"}, {"t", "TELEPORT"}})
		require.NoError(t, err)
		assert.Equal(t, GeoChat{Geohash: "9q8", Content: "hi", Teleported: true}, g)
	})
	t.Run("missing geohash", func(t *testing.T) {
		_, err := DecodeGeoChat(KindGeoChat, "hi", nil)
		assert.True(t, IsMissingTag(err, TagG))
	})
	t.Run("blank nickname", func(t *testing.T) {
		_, err := DecodeGeoChat(KindGeoChat, "hi", wire.Tags{{"g", "9q8"}, {"n"}})
		assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
	})
	t.Run("ephemeral kind only", func(t *testing.T) {
		_, err := DecodeGeoChat(KindPost, "hi", wire.Tags{{"g", "9q8"}})
		assert.Equal(t, ErrCodeInvalidKind, ParseCode(err))
	})
}

func TestEncodeGeoChat_RequiredFields(t *testing.T) {
	_, err := EncodeGeoChat(GeoChat{Content: "hi"})
	assert.True(t, IsEmptyField(err, "geohash"))

	_, err = EncodeGeoChat(GeoChat{Geohash: "9q8"})
	assert.True(t, IsEmptyField(err, "content"))
}

func TestEncodeCoop_LocationNeedsGeohash(t *testing.T) {
	_, err := EncodeCoop(Coop{DTag: dtagQ, Name: "Valley", Location: &Location{Latitude: 1, Longitude: 2}})
	assert.True(t, IsEmptyField(err, "location.geohash"))

	parts, err := EncodeCoop(Coop{DTag: dtagQ, Name: "Valley", Tags: []string{"regional"}})
	require.NoError(t, err)
	assert.Equal(t, wire.Tags{{"d", dtagQ}, {"t", "regional"}}, parts.Tags)
}

func TestCoopRef_RefTags(t *testing.T) {
	tags, err := CoopRef{Pubkey: "coop_pk", DTag: dtagQ}.RefTags()
	require.NoError(t, err)
	assert.Equal(t, wire.Tags{
		{"a", "30360:coop_pk:" + dtagQ},
		{"p", "coop_pk"},
	}, tags)

	_, err = CoopRef{Pubkey: "coop_pk", DTag: "nope"}.RefTags()
	assert.Equal(t, ErrCodeInvalidField, EncodeCode(err))
}

func TestDecodeCoop_ConflictingDTag(t *testing.T) {
	content := `{"d_tag":"` + dtagQ + `","name":"Valley"}`
	_, err := DecodeCoop(KindCoop, content, wire.Tags{{"d", dtagA}})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeInvalidTag, pe.Code)
	assert.Equal(t, TagD, pe.Tag)
}

func TestEncodeResourceArea(t *testing.T) {
	t.Run("geohash required", func(t *testing.T) {
		_, err := EncodeResourceArea(ResourceArea{DTag: dtagG, Name: "Grove"})
		assert.True(t, IsEmptyField(err, "location.geohash"))
	})
	t.Run("tags", func(t *testing.T) {
		parts, err := EncodeResourceArea(ResourceArea{
			DTag:     dtagG,
			Name:     "Grove",
			Location: Location{Geohash: "pmb5v"},
			Tags:     []string{"nutmeg", " "},
		})
		require.NoError(t, err)
		assert.Equal(t, wire.Tags{{"d", dtagG}, {"g", "pmb5v"}, {"t", "nutmeg"}}, parts.Tags)
	})
}

func validCap() ResourceHarvestCap {
	return ResourceHarvestCap{
		DTag:         dtagA,
		ResourceArea: ResourceAreaRef{Pubkey: "steward", DTag: dtagG},
		Product:      HarvestProduct{Key: "nutmeg"},
		Start:        100,
		End:          200,
		CapQuantity:  Quantity{Amount: "5", Unit: "kg"},
	}
}

func TestEncodeResourceHarvestCap_Tags(t *testing.T) {
	c := validCap()
	c.Product.Category = "spice"
	parts, err := EncodeResourceHarvestCap(c)
	require.NoError(t, err)
	assert.Equal(t, wire.Tags{
		{"a", "30370:steward:" + dtagG},
		{"category", "spice"},
		{"d", dtagA},
		{"end", "200"},
		{"key", "nutmeg"},
		{"p", "steward"},
		{"start", "100"},
	}, parts.Tags)
}

func TestEncodeResourceHarvestCap_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ResourceHarvestCap)
		code   EncodeErrorCode
		field  string
	}{
		{"no product", func(c *ResourceHarvestCap) { c.Product.Key = "" }, ErrCodeEmptyField, "product.key"},
		{"no area owner", func(c *ResourceHarvestCap) { c.ResourceArea.Pubkey = "" }, ErrCodeEmptyField, "resource_area.pubkey"},
		{"bad area d-tag", func(c *ResourceHarvestCap) { c.ResourceArea.DTag = "x" }, ErrCodeInvalidField, "resource_area.d_tag"},
		{"window reversed", func(c *ResourceHarvestCap) { c.End = 50 }, ErrCodeInvalidField, "end"},
		{"bad amount", func(c *ResourceHarvestCap) { c.CapQuantity.Amount = "-5" }, ErrCodeInvalidField, "cap_quantity.amount"},
		{"no unit", func(c *ResourceHarvestCap) { c.CapQuantity.Unit = "" }, ErrCodeEmptyField, "cap_quantity.unit"},
		{"bad display amount", func(c *ResourceHarvestCap) { c.DisplayAmount = "lots" }, ErrCodeInvalidField, "display_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCap()
			tt.mutate(&c)
			_, err := EncodeResourceHarvestCap(c)
			var ee *EncodeError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.code, ee.Code)
			assert.Equal(t, tt.field, ee.Field)
		})
	}
}

func TestDecodeResourceHarvestCap_AreaMismatch(t *testing.T) {
	parts, err := EncodeResourceHarvestCap(validCap())
	require.NoError(t, err)

	tags := parts.Tags.Clone()
	for i, tag := range tags {
		if tag.Key() == TagA {
			tags[i] = wire.NewTag(TagA, "30370:other:"+dtagG)
		}
	}
	_, err = DecodeResourceHarvestCap(KindResourceHarvestCap, parts.Content, tags)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, TagA, pe.Tag)

	_, err = DecodeResourceHarvestCap(KindResourceHarvestCap, parts.Content, wire.Tags{{"d", dtagA}})
	assert.True(t, IsMissingTag(err, TagA))
}

func TestAppData(t *testing.T) {
	parts, err := EncodeAppData(AppData{DTag: "prefs", Content: ""})
	require.NoError(t, err)
	assert.Equal(t, wire.Tags{{"d", "prefs"}}, parts.Tags)

	_, err = EncodeAppData(AppData{Content: "x"})
	assert.True(t, IsEmptyField(err, "d_tag"))

	_, err = DecodeAppData(KindAppData, "x", nil)
	assert.True(t, IsMissingTag(err, TagD))
}

func TestMembershipListSets(t *testing.T) {
	farm := FarmRef{Pubkey: "farm_pk", DTag: dtagA}
	plot := PlotRef{Pubkey: "farm_pk", DTag: dtagG}

	tests := []struct {
		name    string
		build   func() (ListSet, error)
		dtag    string
		entries []ListEntry
	}{
		{"coop members", func() (ListSet, error) { return CoopMembersListSet(dtagQ, []string{"m1"}) },
			"coop:" + dtagQ + ":members", []ListEntry{{Tag: "p", Values: []string{"m1"}}}},
		{"coop farms", func() (ListSet, error) { return CoopMemberFarmsListSet(dtagQ, []FarmRef{farm}) },
			"coop:" + dtagQ + ":members.farms", []ListEntry{
				{Tag: "a", Values: []string{farm.Address()}},
				{Tag: "p", Values: []string{"farm_pk"}},
			}},
		{"coop owners", func() (ListSet, error) { return CoopOwnersListSet(dtagQ, []string{"o1"}) },
			"coop:" + dtagQ + ":members.owners", []ListEntry{{Tag: "p", Values: []string{"o1"}}}},
		{"coop admins", func() (ListSet, error) { return CoopAdminsListSet(dtagQ, []string{"a1"}) },
			"coop:" + dtagQ + ":members.admins", []ListEntry{{Tag: "p", Values: []string{"a1"}}}},
		{"coop items", func() (ListSet, error) { return CoopItemsListSet(dtagQ, []string{"30402:coop_pk:" + dtagG}) },
			"coop:" + dtagQ + ":items", []ListEntry{{Tag: "a", Values: []string{"30402:coop_pk:" + dtagG}}}},
		{"member of coops", func() (ListSet, error) { return MemberOfCoopsListSet([]string{"coop_pk"}) },
			MemberOfCoops, []ListEntry{{Tag: "p", Values: []string{"coop_pk"}}}},
		{"area farms", func() (ListSet, error) { return ResourceAreaMemberFarmsListSet(dtagG, []FarmRef{farm}) },
			"resource:" + dtagG + ":members.farms", []ListEntry{
				{Tag: "a", Values: []string{farm.Address()}},
				{Tag: "p", Values: []string{"farm_pk"}},
			}},
		{"area plots", func() (ListSet, error) { return ResourceAreaMemberPlotsListSet(dtagG, []PlotRef{plot}) },
			"resource:" + dtagG + ":members.plots", []ListEntry{
				{Tag: "a", Values: []string{"30350:farm_pk:" + dtagG}},
				{Tag: "p", Values: []string{"farm_pk"}},
			}},
		{"area stewards", func() (ListSet, error) { return ResourceAreaStewardsListSet(dtagG, []string{"s1"}) },
			"resource:" + dtagG + ":members.stewards", []ListEntry{{Tag: "p", Values: []string{"s1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, KindFollowSet, set.Kind)
			assert.Equal(t, tt.dtag, set.DTag)
			assert.Equal(t, tt.entries, set.Entries)

			parts, err := Encode(set)
			require.NoError(t, err)
			got, err := Decode(parts.Kind, parts.Content, parts.Tags)
			require.NoError(t, err)
			assert.Equal(t, set, got)
		})
	}
}

func TestMembershipListSets_Errors(t *testing.T) {
	_, err := CoopMembersListSet("not-a-dtag", []string{"m1"})
	assert.ErrorIs(t, err, dtag.ErrLength)

	_, err = CoopMembersListSet(dtagQ, []string{" "})
	assert.True(t, IsEmptyField(err, "entry.values"))

	_, err = ResourceAreaMemberPlotsListSet(dtagG, []PlotRef{{DTag: dtagG}})
	assert.True(t, IsEmptyField(err, "plot.pubkey"))
}

func TestListSet_IDRules(t *testing.T) {
	tests := []struct {
		name string
		id   string
		ok   bool
	}{
		{"plain d-tag", dtagA, true},
		{"scoped", "farm:" + dtagA + ":members", true},
		{"member of", MemberOfFarms, true},
		{"unknown scope", "guild:" + dtagA + ":members", false},
		{"scoped bad id", "coop:short:members", false},
		{"scoped no suffix", "coop:" + dtagA, false},
		{"free text", "my favourites", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeListSet(ListSet{Kind: KindFollowSet, DTag: tt.id})
			_, derr := DecodeListSet(KindFollowSet, "", wire.Tags{{"d", tt.id}})
			if tt.ok {
				assert.NoError(t, err)
				assert.NoError(t, derr)
				return
			}
			assert.Equal(t, ErrCodeInvalidField, EncodeCode(err))
			assert.Equal(t, ErrCodeInvalidTag, ParseCode(derr))
		})
	}
}
