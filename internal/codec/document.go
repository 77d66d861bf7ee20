package codec

import (
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/wire"
)

// DocumentSubject is the account (and optionally the addressable record)
// a document is about.
type DocumentSubject struct {
	Pubkey  string `json:"pubkey"`
	Address string `json:"address,omitempty"`
}

// Document is a versioned addressable document such as a farm charter.
type Document struct {
	DTag         string          `json:"d_tag"`
	DocType      string          `json:"doc_type"`
	Title        string          `json:"title"`
	Version      string          `json:"version"`
	Summary      string          `json:"summary,omitempty"`
	EffectiveAt  *uint32         `json:"effective_at,omitempty"`
	BodyMarkdown string          `json:"body_markdown,omitempty"`
	Subject      DocumentSubject `json:"subject"`
	Tags         []string        `json:"tags,omitempty"`
}

func (d Document) validate() error {
	if err := requireDTag(d.DTag, "d_tag"); err != nil {
		return err
	}
	for _, f := range []struct{ name, value string }{
		{"doc_type", d.DocType},
		{"title", d.Title},
		{"version", d.Version},
		{"subject.pubkey", d.Subject.Pubkey},
	} {
		if err := requireText(f.value, f.name); err != nil {
			return err
		}
	}
	if d.Subject.Address != "" && strings.TrimSpace(d.Subject.Address) == "" {
		return emptyField("subject.address")
	}
	return nil
}

// EncodeDocument encodes a document as canonical JSON content with d, p,
// optional a and t tags.
func EncodeDocument(d Document) (wire.Parts, error) {
	if err := d.validate(); err != nil {
		return wire.Parts{}, err
	}
	content, err := marshalContent(d)
	if err != nil {
		return wire.Parts{}, err
	}
	tags := wire.Tags{
		wire.NewTag(TagD, d.DTag),
		wire.NewTag(TagP, d.Subject.Pubkey),
	}
	tags = optionalTag(tags, TagA, d.Subject.Address)
	tags = appendValues(tags, TagT, d.Tags)
	return finish(KindDocument, content, tags), nil
}

// DecodeDocument decodes a document.
func DecodeDocument(kind uint32, content string, tags wire.Tags) (Document, error) {
	if kind != KindDocument {
		return Document{}, invalidKind("30361", kind)
	}
	tags = wire.Canonicalize(tags)
	d, err := parseDTag(tags)
	if err != nil {
		return Document{}, err
	}
	subject, ok := tags.Value(TagP)
	if !ok {
		return Document{}, missingTag(TagP)
	}
	var doc Document
	if err := unmarshalContent(content, &doc); err != nil {
		return Document{}, err
	}
	if err := reconcileDTag(&doc.DTag, d); err != nil {
		return Document{}, err
	}
	if doc.Subject.Pubkey == "" {
		doc.Subject.Pubkey = subject
	} else if doc.Subject.Pubkey != subject {
		return Document{}, invalidTag(TagP, fmt.Errorf("content subject %q does not match tag", doc.Subject.Pubkey))
	}
	if err := doc.validate(); err != nil {
		return Document{}, &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
	}
	return doc, nil
}
