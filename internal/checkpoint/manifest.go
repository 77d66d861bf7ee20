package checkpoint

import (
	"fmt"
	"strings"
)

// Manifest describes a published, sharded export of indexed events.
type Manifest struct {
	Country          string          `json:"country"`
	Total            uint32          `json:"total"`
	ShardSize        uint32          `json:"shard_size"`
	FirstPublishedAt EpochSeconds    `json:"first_published_at"`
	LastPublishedAt  EpochSeconds    `json:"last_published_at"`
	Shards           []ShardMetadata `json:"shards"`
}

// ShardMetadata describes one exported shard file.
type ShardMetadata struct {
	File             string       `json:"file"`
	Count            uint32       `json:"count"`
	FirstID          string       `json:"first_id"`
	LastID           string       `json:"last_id"`
	FirstPublishedAt EpochSeconds `json:"first_published_at"`
	LastPublishedAt  EpochSeconds `json:"last_published_at"`
	SHA256           string       `json:"sha256"`
}

// IDRange returns the event id range the shard covers.
func (s ShardMetadata) IDRange() IDRange {
	return IDRange{Start: s.FirstID, End: s.LastID}
}

// IDRange is an inclusive range of hex event ids.
type IDRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsValid reports whether both ends are non-empty hex strings of equal
// length with Start <= End.
func (r IDRange) IsValid() bool {
	if r.Start == "" || r.End == "" || len(r.Start) != len(r.End) {
		return false
	}
	if !isHex(r.Start) || !isHex(r.End) {
		return false
	}
	return r.Start <= r.End
}

// ManifestErrorCode classifies manifest validation failures.
type ManifestErrorCode string

const (
	ErrCodeEmptyCountry       ManifestErrorCode = "EMPTY_COUNTRY"
	ErrCodeEmptyShards        ManifestErrorCode = "EMPTY_SHARDS"
	ErrCodeEmptyFile          ManifestErrorCode = "EMPTY_FILE"
	ErrCodeInvalidSHA256      ManifestErrorCode = "INVALID_SHA256"
	ErrCodeInconsistentTotals ManifestErrorCode = "INCONSISTENT_TOTALS"
)

// ManifestError reports the first problem ValidateManifest found. Shard is
// the index of the offending shard, or -1 for manifest-level problems.
type ManifestError struct {
	Code  ManifestErrorCode
	Shard int
}

// Error implements the error interface.
func (e *ManifestError) Error() string {
	switch e.Code {
	case ErrCodeEmptyCountry:
		return "manifest: country is empty"
	case ErrCodeEmptyShards:
		return "manifest: no shards"
	case ErrCodeEmptyFile:
		return fmt.Sprintf("manifest: shard %d has empty file name", e.Shard)
	case ErrCodeInvalidSHA256:
		return fmt.Sprintf("manifest: shard %d has invalid sha256", e.Shard)
	default:
		return "manifest: total does not match sum of shard counts"
	}
}

// ValidateManifest checks a manifest for structural consistency.
func ValidateManifest(m Manifest) error {
	if strings.TrimSpace(m.Country) == "" {
		return &ManifestError{Code: ErrCodeEmptyCountry, Shard: -1}
	}
	if len(m.Shards) == 0 {
		return &ManifestError{Code: ErrCodeEmptyShards, Shard: -1}
	}
	var sum uint64
	for i, s := range m.Shards {
		if strings.TrimSpace(s.File) == "" {
			return &ManifestError{Code: ErrCodeEmptyFile, Shard: i}
		}
		if len(s.SHA256) != 64 || !isHex(s.SHA256) {
			return &ManifestError{Code: ErrCodeInvalidSHA256, Shard: i}
		}
		sum += uint64(s.Count)
	}
	if sum != uint64(m.Total) {
		return &ManifestError{Code: ErrCodeInconsistentTotals, Shard: -1}
	}
	return nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
