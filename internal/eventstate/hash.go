package eventstate

import (
	"encoding/hex"
	"fmt"

	sha256 "github.com/minio/sha256-simd"

	"github.com/roach88/relaysync/internal/wire"
)

// HashLength is the length of a hex content hash.
const HashLength = 64

// ContentHash computes the lowercase hex SHA-256 of
//
//	content || canonicalJSON(Canonicalize(tags))
//
// Content bytes are hashed as given. Tags are canonicalized first, so
// permutations and whitespace variants of the same tag set hash equally.
func ContentHash(content string, tags wire.Tags) (string, error) {
	canonical, err := wire.MarshalTagsCanonical(wire.Canonicalize(tags))
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(content))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(content string, tags wire.Tags) string {
	hash, err := ContentHash(content, tags)
	if err != nil {
		panic(err)
	}
	return hash
}
