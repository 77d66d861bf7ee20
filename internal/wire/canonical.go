package wire

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a tag value is not valid UTF-8. Relay
// events are JSON, so such a value can never have come off the wire.
var ErrInvalidUTF8 = errors.New("tag value is not valid UTF-8")

// MarshalTagsCanonical produces the canonical JSON form of tags used for
// content hashing: an array of arrays of strings with no insignificant
// whitespace.
//
// The caller is responsible for canonicalizing the tags first; this function
// only fixes the byte encoding.
//
// Encoding rules:
//  1. String bytes are kept exactly; no Unicode normalization
//  2. No HTML escaping (< > & are NOT escaped)
//  3. U+2028 and U+2029 are emitted literally
//  4. Only control characters, backslash, and quote are escaped
func MarshalTagsCanonical(tags Tags) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, t := range tags {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j, s := range t {
			if j > 0 {
				buf.WriteByte(',')
			}
			if !utf8.ValidString(s) {
				return nil, fmt.Errorf("tag[%d][%d]: %w", i, j, ErrInvalidUTF8)
			}
			writeCanonicalString(&buf, s)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString writes s as a JSON string. Bytes at or above 0x20
// pass through untouched, so multi-byte sequences are copied as is.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
				continue
			}
			buf.WriteByte(c)
		}
	}
	buf.WriteByte('"')
}
