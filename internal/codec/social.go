package codec

import (
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// Post is a short text note.
type Post struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// EncodePost encodes a post. Hashtags become "t" tags.
func EncodePost(p Post) (wire.Parts, error) {
	if err := requireText(p.Content, "content"); err != nil {
		return wire.Parts{}, err
	}
	tags := appendValues(nil, TagT, p.Hashtags)
	return finish(KindPost, p.Content, tags), nil
}

// DecodePost decodes a post. Hashtags come back in canonical order.
func DecodePost(kind uint32, content string, tags wire.Tags) (Post, error) {
	if kind != KindPost {
		return Post{}, invalidKind("1", kind)
	}
	tags = wire.Canonicalize(tags)
	if strings.TrimSpace(content) == "" {
		return Post{}, invalidTag("content", nil)
	}
	return Post{
		Content:  content,
		Hashtags: collectValues(tags, TagT),
	}, nil
}

// Reaction reacts to a root event, e.g. "+" or an emoji.
type Reaction struct {
	Root    EventRef `json:"root"`
	Content string   `json:"content"`
}

// EncodeReaction encodes a reaction with its root reference tag.
func EncodeReaction(r Reaction) (wire.Parts, error) {
	if err := validateRef(r.Root, "root"); err != nil {
		return wire.Parts{}, err
	}
	if err := requireText(r.Content, "content"); err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{BuildRefTag(TagRootRef, r.Root)}
	return finish(KindReaction, r.Content, tags), nil
}

// DecodeReaction decodes a reaction.
func DecodeReaction(kind uint32, content string, tags wire.Tags) (Reaction, error) {
	if kind != KindReaction {
		return Reaction{}, invalidKind("7", kind)
	}
	tags = wire.Canonicalize(tags)
	if strings.TrimSpace(content) == "" {
		return Reaction{}, invalidTag("content", nil)
	}
	root, ok, err := findRef(tags, TagRootRef)
	if err != nil {
		return Reaction{}, err
	}
	if !ok {
		return Reaction{}, missingTag(TagRootRef)
	}
	return Reaction{Root: root, Content: content}, nil
}

// Comment replies to a thread. Parent is the event replied to directly and
// defaults to Root when absent on the wire.
type Comment struct {
	Root    EventRef `json:"root"`
	Parent  EventRef `json:"parent"`
	Content string   `json:"content"`
}

// EncodeComment encodes a comment with root and parent reference tags.
func EncodeComment(c Comment) (wire.Parts, error) {
	if err := validateRef(c.Root, "root"); err != nil {
		return wire.Parts{}, err
	}
	if err := validateRef(c.Parent, "parent"); err != nil {
		return wire.Parts{}, err
	}
	if err := requireText(c.Content, "content"); err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{
		BuildRefTag(TagRootRef, c.Root),
		BuildRefTag(TagParentRef, c.Parent),
	}
	return finish(KindComment, c.Content, tags), nil
}

// DecodeComment decodes a comment.
func DecodeComment(kind uint32, content string, tags wire.Tags) (Comment, error) {
	if kind != KindComment {
		return Comment{}, invalidKind("1111", kind)
	}
	tags = wire.Canonicalize(tags)
	if strings.TrimSpace(content) == "" {
		return Comment{}, invalidTag("content", nil)
	}
	root, ok, err := findRef(tags, TagRootRef)
	if err != nil {
		return Comment{}, err
	}
	if !ok {
		return Comment{}, missingTag(TagRootRef)
	}
	parent, ok, err := findRef(tags, TagParentRef)
	if err != nil {
		return Comment{}, err
	}
	if !ok {
		parent = root
	}
	return Comment{Root: root, Parent: parent, Content: content}, nil
}
