package wire

import (
	"slices"
	"sort"
	"strings"
)

// Tag is an ordered list of strings. The first element is the discriminator
// key; the rest are positional values.
type Tag []string

// Tags is an ordered list of tags as carried on the wire.
type Tags []Tag

// NewTag builds a tag from a key and its values.
func NewTag(key string, values ...string) Tag {
	t := make(Tag, 0, 1+len(values))
	t = append(t, key)
	return append(t, values...)
}

// Key returns the discriminator key, or "" for an empty tag.
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the first positional value, or "" if absent.
func (t Tag) Value() string {
	return t.At(1)
}

// At returns the element at position i, or "" if out of range.
func (t Tag) At(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

// Find returns the first tag with the given key.
func (ts Tags) Find(key string) (Tag, bool) {
	for _, t := range ts {
		if t.Key() == key {
			return t, true
		}
	}
	return nil, false
}

// FindAll returns every tag with the given key, in order.
func (ts Tags) FindAll(key string) Tags {
	var out Tags
	for _, t := range ts {
		if t.Key() == key {
			out = append(out, t)
		}
	}
	return out
}

// Value returns the first value of the first tag with the given key.
func (ts Tags) Value(key string) (string, bool) {
	t, ok := ts.Find(key)
	if !ok || len(t) < 2 {
		return "", false
	}
	return t[1], true
}

// Has reports whether any tag carries the given key.
func (ts Tags) Has(key string) bool {
	_, ok := ts.Find(key)
	return ok
}

// Clone returns a deep copy.
func (ts Tags) Clone() Tags {
	if ts == nil {
		return nil
	}
	out := make(Tags, len(ts))
	for i, t := range ts {
		out[i] = slices.Clone(t)
	}
	return out
}

// Canonicalize returns the canonical form of tags:
//
//  1. tags whose first element is empty after trimming are dropped
//  2. every string is trimmed of leading/trailing whitespace
//  3. tags are stable-sorted by key, then by full contents
//  4. exact duplicates are removed
//
// The input is not modified. Two logically equal tag sets canonicalize to
// identical sequences regardless of order or incidental whitespace.
func Canonicalize(tags Tags) Tags {
	out := make(Tags, 0, len(tags))
	for _, t := range tags {
		if len(t) == 0 || strings.TrimSpace(t[0]) == "" {
			continue
		}
		trimmed := make(Tag, len(t))
		for i, s := range t {
			trimmed[i] = strings.TrimSpace(s)
		}
		out = append(out, trimmed)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return CompareTags(out[i], out[j]) < 0
	})

	// Sorted, so duplicates are adjacent.
	return slices.CompactFunc(out, func(a, b Tag) bool {
		return slices.Equal(a, b)
	})
}

// CompareTags orders tags by key first, then element-wise, with a shorter
// tag sorting before any longer tag it prefixes.
func CompareTags(a, b Tag) int {
	if c := strings.Compare(a.Key(), b.Key()); c != 0 {
		return c
	}
	return slices.Compare(a, b)
}

// IsCanonical reports whether tags are already in canonical form.
func IsCanonical(tags Tags) bool {
	return slices.EqualFunc(tags, Canonicalize(tags), func(a, b Tag) bool {
		return slices.Equal(a, b)
	})
}
