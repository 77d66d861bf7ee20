package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Location is a point with an optional geohash. The geohash is also
// emitted as a "g" tag for relay-side geo queries.
type Location struct {
	Geohash   string  `json:"geohash,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Label     string  `json:"label,omitempty"`
}

func (l *Location) validate(field string) error {
	if l == nil {
		return nil
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return invalidField(field+".lat", fmt.Errorf("latitude %v out of range", l.Latitude))
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return invalidField(field+".lng", fmt.Errorf("longitude %v out of range", l.Longitude))
	}
	return nil
}

// Farm is the addressable farm record.
type Farm struct {
	DTag     string    `json:"d_tag"`
	Name     string    `json:"name"`
	About    string    `json:"about,omitempty"`
	Website  string    `json:"website,omitempty"`
	Picture  string    `json:"picture,omitempty"`
	Banner   string    `json:"banner,omitempty"`
	Location *Location `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// FarmRef names a farm by owner and d-tag.
type FarmRef struct {
	Pubkey string `json:"pubkey"`
	DTag   string `json:"d_tag"`
}

// Address returns the "a" tag value "30340:<pubkey>:<d-tag>".
func (r FarmRef) Address() string {
	return fmt.Sprintf("%d:%s:%s", KindFarm, r.Pubkey, r.DTag)
}

func (r FarmRef) validate(prefix string) error {
	if strings.TrimSpace(r.Pubkey) == "" {
		return emptyField(prefix + ".pubkey")
	}
	return requireDTag(r.DTag, prefix+".d_tag")
}

// ParseFarmAddress parses "30340:<pubkey>:<d-tag>".
func ParseFarmAddress(addr string) (FarmRef, error) {
	parts := strings.SplitN(addr, ":", 3)
	if len(parts) != 3 || parts[0] != fmt.Sprint(KindFarm) || parts[1] == "" {
		return FarmRef{}, invalidTag(TagA, fmt.Errorf("not a farm address: %q", addr))
	}
	if err := requireDTag(parts[2], "a"); err != nil {
		return FarmRef{}, invalidTag(TagA, err)
	}
	return FarmRef{Pubkey: parts[1], DTag: parts[2]}, nil
}

func (f Farm) validate() error {
	if err := requireDTag(f.DTag, "d_tag"); err != nil {
		return err
	}
	if err := requireText(f.Name, "name"); err != nil {
		return err
	}
	for _, u := range []struct{ name, value string }{
		{"website", f.Website},
		{"picture", f.Picture},
		{"banner", f.Banner},
	} {
		if err := validateURL(u.value, u.name); err != nil {
			return err
		}
	}
	return f.Location.validate("location")
}

func geoTags(tags wire.Tags, loc *Location) wire.Tags {
	if loc == nil {
		return tags
	}
	return optionalTag(tags, TagG, loc.Geohash)
}

// EncodeFarm encodes a farm. The whole record is the canonical JSON
// content; d, t and g tags index it.
func EncodeFarm(f Farm) (wire.Parts, error) {
	if err := f.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(f)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{wire.NewTag(TagD, f.DTag)}
	tags = appendValues(tags, TagT, f.Tags)
	tags = geoTags(tags, f.Location)
	return finish(KindFarm, content, tags), nil
}

// DecodeFarm decodes a farm. A d_tag missing from the content is taken
// from the d tag; a conflicting one is rejected.
func DecodeFarm(kind uint32, content string, tags wire.Tags) (Farm, error) {
	if kind != KindFarm {
		return Farm{}, invalidKind("30340", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return Farm{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Farm{}, invalidJSON(nil)
	}
	var f Farm
	if err := unmarshalContent(content, &f); err != nil {
		return Farm{}, err
	}
	if err := reconcileDTag(&f.DTag, d); err != nil {
		return Farm{}, err
	}
	if err := f.validate(); err != nil {
		return Farm{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return f, nil
}

func reconcileDTag(contentDTag *string, tagDTag string) error {
	switch {
	case strings.TrimSpace(*contentDTag) == "":
		*contentDTag = tagDTag
	case *contentDTag != tagDTag:
		return invalidTag(TagD, fmt.Errorf("content d_tag %q does not match tag %q", *contentDTag, tagDTag))
	}
	return nil
}

// Plot is a growing area belonging to a farm.
type Plot struct {
	DTag     string    `json:"d_tag"`
	Farm     FarmRef   `json:"farm"`
	Name     string    `json:"name"`
	About    string    `json:"about,omitempty"`
	Location *Location `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

func (p Plot) validate() error {
	if err := requireDTag(p.DTag, "d_tag"); err != nil {
		return err
	}
	if err := p.Farm.validate("farm"); err != nil {
		return err
	}
	if err := requireText(p.Name, "name"); err != nil {
		return err
	}
	return p.Location.validate("location")
}

// EncodePlot encodes a plot with its farm address ("a") and farm owner
// ("p") tags.
func EncodePlot(p Plot) (wire.Parts, error) {
	if err := p.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(p)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{
		wire.NewTag(TagD, p.DTag),
		wire.NewTag(TagA, p.Farm.Address()),
		wire.NewTag(TagP, p.Farm.Pubkey),
	}
	tags = appendValues(tags, TagT, p.Tags)
	tags = geoTags(tags, p.Location)
	return finish(KindPlot, content, tags), nil
}

// DecodePlot decodes a plot. The farm address tag is required and must
// agree with the farm named in the content.
func DecodePlot(kind uint32, content string, tags wire.Tags) (Plot, error) {
	if kind != KindPlot {
		return Plot{}, invalidKind("30350", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return Plot{}, err
	}
	addr, ok := tags.Value(TagA)
	if !ok {
		return Plot{}, missingTag(TagA)
	}
	farm, err := ParseFarmAddress(addr)
	if err != nil {
		return Plot{}, err
	}
	var p Plot
	if err := unmarshalContent(content, &p); err != nil {
		return Plot{}, err
	}
	if err := reconcileDTag(&p.DTag, d); err != nil {
		return Plot{}, err
	}
	if p.Farm == (FarmRef{}) {
		p.Farm = farm
	} else if p.Farm != farm {
		return Plot{}, invalidTag(TagA, fmt.Errorf("content farm %s does not match tag", p.Farm.Address()))
	}
	if err := p.validate(); err != nil {
		return Plot{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return p, nil
}
