package eventstate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Class describes how revisions of a kind relate to each other.
type Class int

const (
	// Regular events are their own object; the event id discriminates.
	Regular Class = iota

	// Replaceable events keep one object per (kind, author).
	Replaceable

	// Addressable events keep one object per (kind, author, d tag).
	Addressable
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case Replaceable:
		return "replaceable"
	case Addressable:
		return "addressable"
	default:
		return "regular"
	}
}

// ClassOf classifies kind.
func ClassOf(kind uint32) Class {
	switch {
	case kind == 0 || kind == 3:
		return Replaceable
	case kind >= 10000 && kind < 20000:
		return Replaceable
	case kind >= 30000 && kind < 40000:
		return Addressable
	default:
		return Regular
	}
}

// Key is the logical identity of a replaceable object.
type Key struct {
	Kind          uint32 `json:"kind"`
	Author        string `json:"author"`
	Discriminator string `json:"discriminator"`
}

// NewKey builds a key from its parts.
func NewKey(kind uint32, author, discriminator string) Key {
	return Key{Kind: kind, Author: author, Discriminator: discriminator}
}

// KeyFor derives the key of an event. The discriminator is the d tag for
// addressable kinds, empty for replaceable kinds and the event id otherwise.
// An addressable event without a d tag gets an empty discriminator.
func KeyFor(kind uint32, author, id string, tags wire.Tags) Key {
	return NewKey(kind, author, Discriminator(kind, id, tags))
}

// Discriminator returns the discriminator KeyFor would use.
func Discriminator(kind uint32, id string, tags wire.Tags) string {
	switch ClassOf(kind) {
	case Addressable:
		for _, t := range tags {
			if strings.TrimSpace(t.Key()) == "d" {
				return strings.TrimSpace(t.Value())
			}
		}
		return ""
	case Replaceable:
		return ""
	default:
		return id
	}
}

// KeyOf derives the key of a raw event. Tags are canonicalized first, so
// the key does not depend on tag order when an event carries several d tags.
func KeyOf(e wire.RawEvent) Key {
	return KeyFor(e.Kind, e.Author, e.ID, wire.Canonicalize(e.Tags))
}

// String returns "<kind>:<author>:<discriminator>".
func (k Key) String() string {
	return strconv.FormatUint(uint64(k.Kind), 10) + ":" + k.Author + ":" + k.Discriminator
}

// ErrMalformedKey is returned by ParseKey for strings not produced by
// Key.String.
var ErrMalformedKey = errors.New("malformed event state key")

// ParseKey parses the String form of a key.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	kind, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}
	if parts[1] == "" {
		return Key{}, fmt.Errorf("%w: %q: empty author", ErrMalformedKey, s)
	}
	return NewKey(uint32(kind), parts[1], parts[2]), nil
}
