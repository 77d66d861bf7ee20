package checkpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSHA = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func baseManifest() Manifest {
	return Manifest{
		Country:   "us",
		Total:     1,
		ShardSize: 1,
		Shards: []ShardMetadata{{
			File:    "a.json",
			Count:   1,
			FirstID: "0a",
			LastID:  "0f",
			SHA256:  validSHA,
		}},
	}
}

func TestValidateManifest(t *testing.T) {
	require.NoError(t, ValidateManifest(baseManifest()))

	tests := []struct {
		name   string
		mutate func(*Manifest)
		code   ManifestErrorCode
		shard  int
	}{
		{"empty country", func(m *Manifest) { m.Country = " " }, ErrCodeEmptyCountry, -1},
		{"no shards", func(m *Manifest) { m.Shards = nil }, ErrCodeEmptyShards, -1},
		{"empty file", func(m *Manifest) { m.Shards[0].File = "" }, ErrCodeEmptyFile, 0},
		{"short sha", func(m *Manifest) { m.Shards[0].SHA256 = "zz" }, ErrCodeInvalidSHA256, 0},
		{"non-hex sha", func(m *Manifest) { m.Shards[0].SHA256 = "g" + validSHA[1:] }, ErrCodeInvalidSHA256, 0},
		{"wrong total", func(m *Manifest) { m.Total = 2 }, ErrCodeInconsistentTotals, -1},
		{"overflowing total", func(m *Manifest) {
			m.Shards[0].Count = math.MaxUint32
			m.Shards = append(m.Shards, ShardMetadata{File: "b.json", Count: 2, SHA256: validSHA})
		}, ErrCodeInconsistentTotals, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := baseManifest()
			m.Shards = append([]ShardMetadata(nil), m.Shards...)
			tt.mutate(&m)

			err := ValidateManifest(m)
			var me *ManifestError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.code, me.Code)
			assert.Equal(t, tt.shard, me.Shard)
		})
	}
}

func TestIDRange_IsValid(t *testing.T) {
	assert.True(t, IDRange{Start: "0a", End: "0f"}.IsValid())
	assert.True(t, IDRange{Start: "0a", End: "0a"}.IsValid())
	assert.False(t, IDRange{Start: "zz", End: "ff"}.IsValid())
	assert.False(t, IDRange{Start: "0a", End: "0aa"}.IsValid())
	assert.False(t, IDRange{Start: "0f", End: "0a"}.IsValid())
	assert.False(t, IDRange{}.IsValid())

	assert.True(t, baseManifest().Shards[0].IDRange().IsValid())
}
