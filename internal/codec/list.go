package codec

import (
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// List-set descriptive tag keys.
const (
	TagDescription = "description"
)

// ListEntry is one list item carried as a tag: Tag is the key, Values the
// positional values (at least one, the first non-blank).
type ListEntry struct {
	Tag    string   `json:"tag"`
	Values []string `json:"values"`
}

// List is a standard replaceable list (mutes, pins, bookmarks, ...).
// Content is opaque and usually holds encrypted private entries.
type List struct {
	Kind    uint32      `json:"kind"`
	Entries []ListEntry `json:"entries"`
	Content string      `json:"content,omitempty"`
}

// ListSet is an addressable, named list.
type ListSet struct {
	Kind        uint32      `json:"kind"`
	DTag        string      `json:"d_tag"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Entries     []ListEntry `json:"entries"`
	Content     string      `json:"content,omitempty"`
}

func entryTag(e ListEntry) (wire.Tag, error) {
	if strings.TrimSpace(e.Tag) == "" {
		return nil, emptyField("entry.tag")
	}
	if len(e.Values) == 0 || strings.TrimSpace(e.Values[0]) == "" {
		return nil, emptyField("entry.values")
	}
	return wire.NewTag(e.Tag, e.Values...), nil
}

func entriesToTags(tags wire.Tags, entries []ListEntry) (wire.Tags, error) {
	for _, e := range entries {
		t, err := entryTag(e)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// entriesFromTags turns every canonical tag with at least one value into an entry,
// skipping the keys in reserved.
func entriesFromTags(tags wire.Tags, reserved ...string) ([]ListEntry, error) {
	entries := []ListEntry{}
	for _, t := range tags {
		if len(t) < 2 || isReserved(t.Key(), reserved) {
			continue
		}
		if strings.TrimSpace(t[1]) == "" {
			return nil, invalidTag(t.Key(), nil)
		}
		entries = append(entries, ListEntry{Tag: t.Key(), Values: append([]string(nil), t[1:]...)})
	}
	return entries, nil
}

func isReserved(key string, reserved []string) bool {
	for _, r := range reserved {
		if key == r {
			return true
		}
	}
	return false
}

// EncodeList encodes a standard list under its own kind.
func EncodeList(l List) (wire.Parts, error) {
	if !IsListKind(l.Kind) {
		return wire.Parts{}, encodeInvalidKind(l.Kind)
	}
	tags, err := entriesToTags(nil, l.Entries)
	if err != nil {
		return wire.Parts{}, err
	}
	return finish(l.Kind, l.Content, tags), nil
}

// DecodeList decodes a standard list. Entries come back in canonical tag
// order.
func DecodeList(kind uint32, content string, tags wire.Tags) (List, error) {
	if !IsListKind(kind) {
		return List{}, invalidKind("standard list kind", kind)
	}
	tags = wire.Canonicalize(tags)
	entries, err := entriesFromTags(tags)
	if err != nil {
		return List{}, err
	}
	return List{Kind: kind, Entries: entries, Content: content}, nil
}

// EncodeListSet encodes an addressable list set. The d tag is a plain
// d-tag or a membership id such as "coop:<d-tag>:members".
func EncodeListSet(s ListSet) (wire.Parts, error) {
	if !IsListSetKind(s.Kind) {
		return wire.Parts{}, encodeInvalidKind(s.Kind)
	}
	if err := requireText(s.DTag, "d_tag"); err != nil {
		return wire.Parts{}, err
	}
	if err := validateListSetID(s.DTag); err != nil {
		return wire.Parts{}, invalidField("d_tag", err)
	}
	tags := wire.Tags{wire.NewTag(TagD, s.DTag)}
	tags = optionalTag(tags, TagTitle, s.Title)
	tags = optionalTag(tags, TagDescription, s.Description)
	tags = optionalTag(tags, TagImage, s.Image)
	tags, err := entriesToTags(tags, s.Entries)
	if err != nil {
		return wire.Parts{}, err
	}
	return finish(s.Kind, s.Content, tags), nil
}

// DecodeListSet decodes an addressable list set.
func DecodeListSet(kind uint32, content string, tags wire.Tags) (ListSet, error) {
	if !IsListSetKind(kind) {
		return ListSet{}, invalidKind("list set kind", kind)
	}
	tags = wire.Canonicalize(tags)
	dt, ok := tags.Find(TagD)
	if !ok {
		return ListSet{}, missingTag(TagD)
	}
	if len(dt) < 2 {
		return ListSet{}, invalidTag(TagD, nil)
	}
	d := dt[1]
	if err := validateListSetID(d); err != nil {
		return ListSet{}, invalidTag(TagD, err)
	}
	entries, err := entriesFromTags(tags, TagD, TagTitle, TagDescription, TagImage)
	if err != nil {
		return ListSet{}, err
	}
	s := ListSet{Kind: kind, DTag: d, Entries: entries, Content: content}
	s.Title, _ = tags.Value(TagTitle)
	s.Description, _ = tags.Value(TagDescription)
	s.Image, _ = tags.Value(TagImage)
	return s, nil
}

// EntryValues returns the first value of every entry with the given tag
// key, in entry order.
func (s ListSet) EntryValues(key string) []string {
	var out []string
	for _, e := range s.Entries {
		if e.Tag == key && len(e.Values) > 0 {
			out = append(out, e.Values[0])
		}
	}
	return out
}
