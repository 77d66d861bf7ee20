package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/roach88/relaysync/internal/dtag"
	"github.com/roach88/relaysync/internal/wire"
)

// Common tag keys.
const (
	TagD       = "d"
	TagT       = "t"
	TagG       = "g"
	TagP       = "p"
	TagA       = "a"
	TagE       = "e"
	TagTitle   = "title"
	TagImage   = "image"
	TagSummary = "summary"
)

// marshalContent renders v as RFC 8785 canonical JSON so structured content
// is byte-stable across producers.
func marshalContent(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", &EncodeError{Code: ErrCodeJSON, Field: "content", Err: err}
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", &EncodeError{Code: ErrCodeJSON, Field: "content", Err: err}
	}
	return string(canonical), nil
}

func unmarshalContent(content string, v any) error {
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return invalidJSON(err)
	}
	return nil
}

// finish canonicalizes tags and assembles the wire parts.
func finish(kind uint32, content string, tags wire.Tags) wire.Parts {
	return wire.Parts{Kind: kind, Content: content, Tags: wire.Canonicalize(tags)}
}

func requireText(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return emptyField(field)
	}
	return nil
}

func requireDTag(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return emptyField(field)
	}
	if err := dtag.Validate(value); err != nil {
		return invalidField(field, err)
	}
	return nil
}

// parseDTag locates and validates the d tag.
func parseDTag(tags wire.Tags) (string, error) {
	t, ok := tags.Find(TagD)
	if !ok {
		return "", missingTag(TagD)
	}
	if len(t) < 2 {
		return "", invalidTag(TagD, nil)
	}
	if err := dtag.Validate(t[1]); err != nil {
		return "", invalidTag(TagD, err)
	}
	return t[1], nil
}

var errNotAbsoluteURL = errors.New("must be an absolute http(s) URL")

func validateURL(value, field string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return invalidField(field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalidField(field, fmt.Errorf("%q: %w", value, errNotAbsoluteURL))
	}
	return nil
}

// appendValues adds one [key, value] tag per non-blank value.
func appendValues(tags wire.Tags, key string, values []string) wire.Tags {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		tags = append(tags, wire.NewTag(key, v))
	}
	return tags
}

// collectValues returns the first value of every tag with key, in tag order.
func collectValues(tags wire.Tags, key string) []string {
	var out []string
	for _, t := range tags.FindAll(key) {
		if len(t) >= 2 && t[1] != "" {
			out = append(out, t[1])
		}
	}
	return out
}

func optionalTag(tags wire.Tags, key, value string) wire.Tags {
	if strings.TrimSpace(value) == "" {
		return tags
	}
	return append(tags, wire.NewTag(key, value))
}
