package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Reference tag keys.
const (
	TagRootRef   = "e_root"
	TagParentRef = "e_prev"
)

// EventRef points at another event. DTag is set when the target is an
// addressable record; Relays are optional hints.
type EventRef struct {
	ID     string   `json:"id"`
	Author string   `json:"author"`
	Kind   uint32   `json:"kind"`
	DTag   string   `json:"d_tag,omitempty"`
	Relays []string `json:"relays,omitempty"`
}

// BuildRefTag encodes ref as [key, id, author, kind, d-tag, relays...].
// The d-tag slot is always present (empty when unset) so relay hints keep
// a fixed position.
func BuildRefTag(key string, ref EventRef) wire.Tag {
	t := make(wire.Tag, 0, 5+len(ref.Relays))
	t = append(t, key, ref.ID, ref.Author, strconv.FormatUint(uint64(ref.Kind), 10), ref.DTag)
	return append(t, ref.Relays...)
}

// ParseRefTag decodes a tag produced by BuildRefTag. A short form without
// the d-tag slot, where position 4 is a relay URL, is also accepted.
func ParseRefTag(t wire.Tag, key string) (EventRef, error) {
	if t.Key() != key || len(t) < 4 {
		return EventRef{}, invalidTag(key, nil)
	}
	kind, err := strconv.ParseUint(t[3], 10, 32)
	if err != nil {
		return EventRef{}, invalidNumber(key, err)
	}

	ref := EventRef{ID: t[1], Author: t[2], Kind: uint32(kind)}
	if ref.ID == "" || ref.Author == "" {
		return EventRef{}, invalidTag(key, nil)
	}

	relaysStart := 4
	if len(t) > 4 {
		switch {
		case len(t) == 5 && looksLikeRelay(t[4]):
		case t[4] == "":
			relaysStart = 5
		default:
			ref.DTag = t[4]
			relaysStart = 5
		}
	}
	if len(t) > relaysStart {
		ref.Relays = append([]string(nil), t[relaysStart:]...)
	}
	return ref, nil
}

func findRef(tags wire.Tags, key string) (EventRef, bool, error) {
	t, ok := tags.Find(key)
	if !ok {
		return EventRef{}, false, nil
	}
	ref, err := ParseRefTag(t, key)
	return ref, true, err
}

func validateRef(ref EventRef, prefix string) error {
	if strings.TrimSpace(ref.ID) == "" {
		return emptyField(prefix + ".id")
	}
	if strings.TrimSpace(ref.Author) == "" {
		return emptyField(prefix + ".author")
	}
	// A relay-shaped d-tag would decode as a relay hint.
	if looksLikeRelay(strings.TrimSpace(ref.DTag)) {
		return invalidField(prefix+".d_tag", fmt.Errorf("d-tag looks like a relay URL: %q", ref.DTag))
	}
	return nil
}

func looksLikeRelay(s string) bool {
	ls := strings.ToLower(s)
	return strings.HasPrefix(ls, "ws://") || strings.HasPrefix(ls, "wss://")
}
