package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Coop is the addressable record of a cooperative of farms.
type Coop struct {
	DTag     string    `json:"d_tag"`
	Name     string    `json:"name"`
	About    string    `json:"about,omitempty"`
	Website  string    `json:"website,omitempty"`
	Picture  string    `json:"picture,omitempty"`
	Banner   string    `json:"banner,omitempty"`
	Location *Location `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// CoopRef names a coop by owner and d-tag.
type CoopRef struct {
	Pubkey string `json:"pubkey"`
	DTag   string `json:"d_tag"`
}

// Address returns the "a" tag value "30360:<pubkey>:<d-tag>".
func (r CoopRef) Address() string {
	return fmt.Sprintf("%d:%s:%s", KindCoop, r.Pubkey, r.DTag)
}

// RefTags returns the ["p", pubkey] and ["a", address] tags other records
// use to point at the coop.
func (r CoopRef) RefTags() (wire.Tags, error) {
	if strings.TrimSpace(r.Pubkey) == "" {
		return nil, emptyField("coop.pubkey")
	}
	if err := requireDTag(r.DTag, "coop.d_tag"); err != nil {
		return nil, err
	}
	return wire.Canonicalize(wire.Tags{
		wire.NewTag(TagP, r.Pubkey),
		wire.NewTag(TagA, r.Address()),
	}), nil
}

func (c Coop) validate() error {
	if err := requireDTag(c.DTag, "d_tag"); err != nil {
		return err
	}
	if err := requireText(c.Name, "name"); err != nil {
		return err
	}
	for _, u := range []struct{ name, value string }{
		{"website", c.Website},
		{"picture", c.Picture},
		{"banner", c.Banner},
	} {
		if err := validateURL(u.value, u.name); err != nil {
			return err
		}
	}
	if c.Location != nil && strings.TrimSpace(c.Location.Geohash) == "" {
		return emptyField("location.geohash")
	}
	return c.Location.validate("location")
}

// EncodeCoop encodes a coop the way farms are encoded: canonical JSON
// content indexed by d, t and g tags. A coop location must carry a
// geohash.
func EncodeCoop(c Coop) (wire.Parts, error) {
	if err := c.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(c)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{wire.NewTag(TagD, c.DTag)}
	tags = appendValues(tags, TagT, c.Tags)
	tags = geoTags(tags, c.Location)
	return finish(KindCoop, content, tags), nil
}

// DecodeCoop decodes a coop. A d_tag missing from the content is taken
// from the d tag; a conflicting one is rejected.
func DecodeCoop(kind uint32, content string, tags wire.Tags) (Coop, error) {
	if kind != KindCoop {
		return Coop{}, invalidKind("30360", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return Coop{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Coop{}, invalidJSON(nil)
	}
	var c Coop
	if err := unmarshalContent(content, &c); err != nil {
		return Coop{}, err
	}
	if err := reconcileDTag(&c.DTag, d); err != nil {
		return Coop{}, err
	}
	if err := c.validate(); err != nil {
		return Coop{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return c, nil
}

// AppData is an addressable blob of application state. Content is opaque.
type AppData struct {
	DTag    string `json:"d_tag"`
	Content string `json:"content"`
}

// EncodeAppData encodes app data under a single d tag. The d tag is an
// application key, so only blankness is checked.
func EncodeAppData(a AppData) (wire.Parts, error) {
	if err := requireText(a.DTag, "d_tag"); err != nil {
		return wire.Parts{}, err
	}
	return finish(KindAppData, a.Content, wire.Tags{wire.NewTag(TagD, a.DTag)}), nil
}

// DecodeAppData decodes app data. Empty content is allowed.
func DecodeAppData(kind uint32, content string, tags wire.Tags) (AppData, error) {
	if kind != KindAppData {
		return AppData{}, invalidKind("30078", kind)
	}
	tags = wire.Canonicalize(tags)
	t, ok := tags.Find(TagD)
	if !ok {
		return AppData{}, missingTag(TagD)
	}
	if len(t) < 2 || t[1] == "" {
		return AppData{}, invalidTag(TagD, nil)
	}
	return AppData{DTag: t[1], Content: content}, nil
}
