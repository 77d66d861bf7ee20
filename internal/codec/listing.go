package codec

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/roach88/relaysync/internal/wire"
)

// Listing tag keys.
const (
	TagPrice     = "price"
	TagInventory = "inventory"
	TagStatus    = "status"
)

// ListingStatus is the availability of a listing.
type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
)

// Price is a listing price. Amount is an opaque decimal string; this
// package checks its shape, never does arithmetic on it. Currency is an
// ISO 4217 code in any letter case.
type Price struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Frequency string `json:"frequency,omitempty"`
}

// Listing is a classified offer for farm produce.
type Listing struct {
	DTag        string        `json:"d_tag"`
	Title       string        `json:"title"`
	Summary     string        `json:"summary,omitempty"`
	Description string        `json:"description,omitempty"`
	Price       Price         `json:"price"`
	Inventory   string        `json:"inventory,omitempty"`
	Status      ListingStatus `json:"status,omitempty"`
	Farm        *FarmRef      `json:"farm,omitempty"`
	Geohash     string        `json:"geohash,omitempty"`
	Hashtags    []string      `json:"hashtags,omitempty"`
	Images      []string      `json:"images,omitempty"`
}

// isDecimal reports whether s is an unsigned decimal such as "12" or
// "3.50".
func isDecimal(s string) bool {
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && frac == "") {
		return false
	}
	for _, part := range []string{whole, frac} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}
	return true
}

func (l Listing) validate() error {
	if err := requireDTag(l.DTag, "d_tag"); err != nil {
		return err
	}
	if err := requireText(l.Title, "title"); err != nil {
		return err
	}
	if err := requireText(l.Price.Amount, "price.amount"); err != nil {
		return err
	}
	if !isDecimal(l.Price.Amount) {
		return invalidField("price.amount", fmt.Errorf("not a decimal: %q", l.Price.Amount))
	}
	if err := requireText(l.Price.Currency, "price.currency"); err != nil {
		return err
	}
	if _, err := currency.ParseISO(l.Price.Currency); err != nil {
		return invalidField("price.currency", fmt.Errorf("not an ISO 4217 code: %q", l.Price.Currency))
	}
	if l.Inventory != "" && !isDecimal(l.Inventory) {
		return invalidField("inventory", fmt.Errorf("not a decimal: %q", l.Inventory))
	}
	switch l.Status {
	case "", ListingActive, ListingSold:
	default:
		return invalidField("status", fmt.Errorf("unknown status %q", l.Status))
	}
	if l.Farm != nil {
		if err := l.Farm.validate("farm"); err != nil {
			return err
		}
	}
	for _, img := range l.Images {
		if err := validateURL(img, "images"); err != nil {
			return err
		}
	}
	return nil
}

// EncodeListing encodes a listing. The description travels as content;
// every other field is a tag.
func EncodeListing(l Listing) (wire.Parts, error) {
	if err := l.validate(); err != nil {
		return wire.Parts{}, err
	}
	price := wire.NewTag(TagPrice, l.Price.Amount, l.Price.Currency)
	if l.Price.Frequency != "" {
		price = append(price, l.Price.Frequency)
	}
	tags := wire.Tags{
		wire.NewTag(TagD, l.DTag),
		wire.NewTag(TagTitle, l.Title),
		price,
	}
	tags = optionalTag(tags, TagSummary, l.Summary)
	tags = optionalTag(tags, TagInventory, l.Inventory)
	tags = optionalTag(tags, TagStatus, string(l.Status))
	tags = optionalTag(tags, TagG, l.Geohash)
	if l.Farm != nil {
		tags = append(tags, wire.NewTag(TagA, l.Farm.Address()), wire.NewTag(TagP, l.Farm.Pubkey))
	}
	tags = appendValues(tags, TagT, l.Hashtags)
	tags = appendValues(tags, TagImage, l.Images)
	return finish(KindListing, l.Description, tags), nil
}

// DecodeListing decodes a listing.
func DecodeListing(kind uint32, content string, tags wire.Tags) (Listing, error) {
	if kind != KindListing {
		return Listing{}, invalidKind("30402", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return Listing{}, err
	}
	title, ok := tags.Value(TagTitle)
	if !ok {
		return Listing{}, missingTag(TagTitle)
	}
	pt, ok := tags.Find(TagPrice)
	if !ok {
		return Listing{}, missingTag(TagPrice)
	}
	if len(pt) < 3 {
		return Listing{}, invalidTag(TagPrice, nil)
	}
	l := Listing{
		DTag:        d,
		Title:       title,
		Description: content,
		Price:       Price{Amount: pt[1], Currency: pt[2], Frequency: pt.At(3)},
		Hashtags:    collectValues(tags, TagT),
		Images:      collectValues(tags, TagImage),
	}
	l.Summary, _ = tags.Value(TagSummary)
	l.Inventory, _ = tags.Value(TagInventory)
	l.Geohash, _ = tags.Value(TagG)
	if status, ok := tags.Value(TagStatus); ok {
		l.Status = ListingStatus(status)
	}
	if addr, ok := tags.Value(TagA); ok {
		farm, err := ParseFarmAddress(addr)
		if err != nil {
			return Listing{}, err
		}
		l.Farm = &farm
	}
	if err := l.validate(); err != nil {
		return Listing{}, invalidTag(fieldTag(err), err)
	}
	return l, nil
}

// fieldTag maps a listing validation failure back to the tag at fault.
func fieldTag(err error) string {
	ee, ok := err.(*EncodeError)
	if !ok {
		return ""
	}
	switch {
	case strings.HasPrefix(ee.Field, "price"):
		return TagPrice
	case ee.Field == "images":
		return TagImage
	case ee.Field == "d_tag":
		return TagD
	case strings.HasPrefix(ee.Field, "farm"):
		return TagA
	}
	return ee.Field
}
