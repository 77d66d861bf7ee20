package codec

import (
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// FollowEntry is one followed account.
type FollowEntry struct {
	PublicKey string `json:"public_key"`
	RelayURL  string `json:"relay_url,omitempty"`
	Petname   string `json:"petname,omitempty"`
}

// Follow is the replaceable contact list.
type Follow struct {
	Entries []FollowEntry `json:"entries"`
}

func followTag(e FollowEntry) (wire.Tag, error) {
	if strings.TrimSpace(e.PublicKey) == "" {
		return nil, emptyField("follow.public_key")
	}
	t := wire.NewTag(TagP, e.PublicKey)
	switch {
	case e.RelayURL != "" && e.Petname != "":
		t = append(t, e.RelayURL, e.Petname)
	case e.RelayURL != "":
		t = append(t, e.RelayURL)
	case e.Petname != "":
		t = append(t, "", e.Petname)
	}
	return t, nil
}

// EncodeFollow encodes a contact list. Content is always empty.
func EncodeFollow(f Follow) (wire.Parts, error) {
	tags := make(wire.Tags, 0, len(f.Entries))
	for _, e := range f.Entries {
		t, err := followTag(e)
		if err != nil {
			return wire.Parts{}, err
		}
		tags = append(tags, t)
	}
	return finish(KindFollow, "", tags), nil
}

// DecodeFollow decodes a contact list. Entries come back ordered by
// public key.
func DecodeFollow(kind uint32, _ string, tags wire.Tags) (Follow, error) {
	if kind != KindFollow {
		return Follow{}, invalidKind("3", kind)
	}
	tags = wire.Canonicalize(tags)
	f := Follow{Entries: []FollowEntry{}}
	for _, t := range tags.FindAll(TagP) {
		if len(t) < 2 || t[1] == "" {
			return Follow{}, invalidTag(TagP, nil)
		}
		e := FollowEntry{PublicKey: t[1]}
		second := t.At(2)
		switch {
		case second != "" && looksLikeRelay(second):
			e.RelayURL = second
			e.Petname = t.At(3)
		case second != "":
			e.Petname = second
		default:
			e.Petname = t.At(3)
		}
		f.Entries = append(f.Entries, e)
	}
	return f, nil
}

// FollowOp selects a follow-list mutation.
type FollowOp string

const (
	FollowAdd    FollowOp = "follow"
	FollowRemove FollowOp = "unfollow"
	FollowToggle FollowOp = "toggle"
)

// FollowMutation describes a change to a contact list. RelayURL and Petname
// are only used when adding; blank values leave existing ones untouched.
type FollowMutation struct {
	Op        FollowOp `json:"op"`
	PublicKey string   `json:"public_key"`
	RelayURL  string   `json:"relay_url,omitempty"`
	Petname   string   `json:"petname,omitempty"`
}

// ApplyFollow returns a new contact list with m applied. The input list is
// normalized first: keys and optional fields trimmed, later duplicates of a
// public key dropped.
func ApplyFollow(f Follow, m FollowMutation) (Follow, error) {
	list, err := normalizeFollows(f.Entries)
	if err != nil {
		return Follow{}, err
	}
	pk := strings.TrimSpace(m.PublicKey)
	if pk == "" {
		return Follow{}, emptyField("follow.public_key")
	}
	relay := strings.TrimSpace(m.RelayURL)
	petname := strings.TrimSpace(m.Petname)

	idx := -1
	for i, e := range list {
		if e.PublicKey == pk {
			idx = i
			break
		}
	}

	switch m.Op {
	case FollowAdd:
		if idx < 0 {
			list = append(list, FollowEntry{PublicKey: pk, RelayURL: relay, Petname: petname})
			break
		}
		if relay != "" {
			list[idx].RelayURL = relay
		}
		if petname != "" {
			list[idx].Petname = petname
		}
	case FollowRemove:
		if idx >= 0 {
			list = append(list[:idx], list[idx+1:]...)
		}
	case FollowToggle:
		if idx >= 0 {
			list = append(list[:idx], list[idx+1:]...)
		} else {
			list = append(list, FollowEntry{PublicKey: pk, RelayURL: relay, Petname: petname})
		}
	default:
		return Follow{}, invalidField("op", nil)
	}
	return Follow{Entries: list}, nil
}

func normalizeFollows(entries []FollowEntry) ([]FollowEntry, error) {
	out := make([]FollowEntry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		pk := strings.TrimSpace(e.PublicKey)
		if pk == "" {
			return nil, emptyField("follow.public_key")
		}
		if seen[pk] {
			continue
		}
		seen[pk] = true
		out = append(out, FollowEntry{
			PublicKey: pk,
			RelayURL:  strings.TrimSpace(e.RelayURL),
			Petname:   strings.TrimSpace(e.Petname),
		})
	}
	return out, nil
}
