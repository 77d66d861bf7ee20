package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Harvest cap tag keys.
const (
	TagKey      = "key"
	TagCategory = "category"
	TagStart    = "start"
	TagEnd      = "end"
)

// ResourceArea is a shared wild harvesting area, e.g. a grove tended by
// several farms. Unlike a farm its location and geohash are required.
type ResourceArea struct {
	DTag     string   `json:"d_tag"`
	Name     string   `json:"name"`
	About    string   `json:"about,omitempty"`
	Location Location `json:"location"`
	Tags     []string `json:"tags,omitempty"`
}

// ResourceAreaRef names a resource area by owner and d-tag.
type ResourceAreaRef struct {
	Pubkey string `json:"pubkey"`
	DTag   string `json:"d_tag"`
}

// Address returns the "a" tag value "30370:<pubkey>:<d-tag>".
func (r ResourceAreaRef) Address() string {
	return fmt.Sprintf("%d:%s:%s", KindResourceArea, r.Pubkey, r.DTag)
}

func (r ResourceAreaRef) validate(prefix string) error {
	if strings.TrimSpace(r.Pubkey) == "" {
		return emptyField(prefix + ".pubkey")
	}
	return requireDTag(r.DTag, prefix+".d_tag")
}

// RefTags returns the ["p", pubkey] and ["a", address] tags pointing at
// the area.
func (r ResourceAreaRef) RefTags() (wire.Tags, error) {
	if err := r.validate("resource_area"); err != nil {
		return nil, err
	}
	return wire.Canonicalize(wire.Tags{
		wire.NewTag(TagP, r.Pubkey),
		wire.NewTag(TagA, r.Address()),
	}), nil
}

// ParseResourceAreaAddress parses "30370:<pubkey>:<d-tag>".
func ParseResourceAreaAddress(addr string) (ResourceAreaRef, error) {
	parts := strings.SplitN(addr, ":", 3)
	if len(parts) != 3 || parts[0] != fmt.Sprint(KindResourceArea) || parts[1] == "" {
		return ResourceAreaRef{}, invalidTag(TagA, fmt.Errorf("not a resource area address: %q", addr))
	}
	if err := requireDTag(parts[2], "a"); err != nil {
		return ResourceAreaRef{}, invalidTag(TagA, err)
	}
	return ResourceAreaRef{Pubkey: parts[1], DTag: parts[2]}, nil
}

func (a ResourceArea) validate() error {
	if err := requireDTag(a.DTag, "d_tag"); err != nil {
		return err
	}
	if err := requireText(a.Name, "name"); err != nil {
		return err
	}
	if err := requireText(a.Location.Geohash, "location.geohash"); err != nil {
		return err
	}
	return a.Location.validate("location")
}

// EncodeResourceArea encodes a resource area with d, t and g tags.
func EncodeResourceArea(a ResourceArea) (wire.Parts, error) {
	if err := a.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(a)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{wire.NewTag(TagD, a.DTag)}
	tags = appendValues(tags, TagT, a.Tags)
	tags = append(tags, wire.NewTag(TagG, strings.TrimSpace(a.Location.Geohash)))
	return finish(KindResourceArea, content, tags), nil
}

// DecodeResourceArea decodes a resource area.
func DecodeResourceArea(kind uint32, content string, tags wire.Tags) (ResourceArea, error) {
	if kind != KindResourceArea {
		return ResourceArea{}, invalidKind("30370", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return ResourceArea{}, err
	}
	if strings.TrimSpace(content) == "" {
		return ResourceArea{}, invalidJSON(nil)
	}
	var a ResourceArea
	if err := unmarshalContent(content, &a); err != nil {
		return ResourceArea{}, err
	}
	if err := reconcileDTag(&a.DTag, d); err != nil {
		return ResourceArea{}, err
	}
	if err := a.validate(); err != nil {
		return ResourceArea{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return a, nil
}

// Quantity is an amount with its unit. Amount is an unsigned decimal
// string, checked for shape only.
type Quantity struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
	Label  string `json:"label,omitempty"`
}

func (q Quantity) validate(field string) error {
	if err := requireText(q.Amount, field+".amount"); err != nil {
		return err
	}
	if !isDecimal(q.Amount) {
		return invalidField(field+".amount", fmt.Errorf("not a decimal: %q", q.Amount))
	}
	return requireText(q.Unit, field+".unit")
}

// HarvestProduct is what a harvest cap limits.
type HarvestProduct struct {
	Key      string `json:"key"`
	Category string `json:"category,omitempty"`
}

// ResourceHarvestCap limits how much of a product may be taken from a
// resource area between Start and End (unix seconds).
type ResourceHarvestCap struct {
	DTag          string          `json:"d_tag"`
	ResourceArea  ResourceAreaRef `json:"resource_area"`
	Product       HarvestProduct  `json:"product"`
	Start         uint64          `json:"start"`
	End           uint64          `json:"end"`
	CapQuantity   Quantity        `json:"cap_quantity"`
	DisplayAmount string          `json:"display_amount,omitempty"`
	DisplayUnit   string          `json:"display_unit,omitempty"`
	DisplayLabel  string          `json:"display_label,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
}

func (c ResourceHarvestCap) validate() error {
	if err := requireDTag(c.DTag, "d_tag"); err != nil {
		return err
	}
	if err := c.ResourceArea.validate("resource_area"); err != nil {
		return err
	}
	if err := requireText(c.Product.Key, "product.key"); err != nil {
		return err
	}
	if c.End < c.Start {
		return invalidField("end", fmt.Errorf("end %d before start %d", c.End, c.Start))
	}
	if c.DisplayAmount != "" && !isDecimal(c.DisplayAmount) {
		return invalidField("display_amount", fmt.Errorf("not a decimal: %q", c.DisplayAmount))
	}
	return c.CapQuantity.validate("cap_quantity")
}

// EncodeResourceHarvestCap encodes a harvest cap. The area address and
// owner, the product key and category, and the window bounds are
// mirrored into tags for relay queries.
func EncodeResourceHarvestCap(c ResourceHarvestCap) (wire.Parts, error) {
	if err := c.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(c)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{
		wire.NewTag(TagD, c.DTag),
		wire.NewTag(TagA, c.ResourceArea.Address()),
		wire.NewTag(TagP, c.ResourceArea.Pubkey),
		wire.NewTag(TagKey, c.Product.Key),
		wire.NewTag(TagStart, strconv.FormatUint(c.Start, 10)),
		wire.NewTag(TagEnd, strconv.FormatUint(c.End, 10)),
	}
	tags = optionalTag(tags, TagCategory, c.Product.Category)
	tags = appendValues(tags, TagT, c.Tags)
	return finish(KindResourceHarvestCap, content, tags), nil
}

// DecodeResourceHarvestCap decodes a harvest cap. The area address tag is
// required and must agree with the area named in the content.
func DecodeResourceHarvestCap(kind uint32, content string, tags wire.Tags) (ResourceHarvestCap, error) {
	if kind != KindResourceHarvestCap {
		return ResourceHarvestCap{}, invalidKind("30371", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return ResourceHarvestCap{}, err
	}
	addr, ok := tags.Value(TagA)
	if !ok {
		return ResourceHarvestCap{}, missingTag(TagA)
	}
	area, err := ParseResourceAreaAddress(addr)
	if err != nil {
		return ResourceHarvestCap{}, err
	}
	if strings.TrimSpace(content) == "" {
		return ResourceHarvestCap{}, invalidJSON(nil)
	}
	var c ResourceHarvestCap
	if err := unmarshalContent(content, &c); err != nil {
		return ResourceHarvestCap{}, err
	}
	if err := reconcileDTag(&c.DTag, d); err != nil {
		return ResourceHarvestCap{}, err
	}
	if c.ResourceArea == (ResourceAreaRef{}) {
		c.ResourceArea = area
	} else if c.ResourceArea != area {
		return ResourceHarvestCap{}, invalidTag(TagA, fmt.Errorf("content area %s does not match tag", c.ResourceArea.Address()))
	}
	if err := c.validate(); err != nil {
		return ResourceHarvestCap{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return c, nil
}
