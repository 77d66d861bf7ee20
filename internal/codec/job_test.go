package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/wire"
)

func TestParseMsat(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    uint32
		wantErr ParseErrorCode
	}{
		{"whole sats", "21000", 21, ""},
		{"zero", "0", 0, ""},
		{"max", "4294967295000", 4294967295, ""},
		{"not a number", "abc", 0, ErrCodeInvalidNumber},
		{"negative", "-1000", 0, ErrCodeInvalidNumber},
		{"sub-sat remainder", "1500", 0, ErrCodeNonWholeUnit},
		{"overflow", "4294967296000", 0, ErrCodeAmountOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMsat(TagAmount, tt.value)
			if tt.wantErr != "" {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.wantErr, pe.Code)
				assert.Equal(t, TagAmount, pe.Tag)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJobRequest_BidErrorsNameTag(t *testing.T) {
	_, err := DecodeJobRequest(5000, "", wire.Tags{{"bid", "999"}})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNonWholeUnit, pe.Code)
	assert.Equal(t, TagBid, pe.Tag)
}

func TestJobRequest_EncryptedNeedsProvider(t *testing.T) {
	_, err := EncodeJobRequest(JobRequest{Kind: 5000, Encrypted: true})
	assert.True(t, IsEmptyField(err, "providers"))

	_, err = DecodeJobRequest(5000, "ciphertext", wire.Tags{{"encrypted"}})
	assert.True(t, IsMissingTag(err, TagP))

	parts, err := EncodeJobRequest(JobRequest{Kind: 5000, Encrypted: true, Providers: []string{"p1"}, Content: "ciphertext"})
	require.NoError(t, err)
	got, err := DecodeJobRequest(parts.Kind, parts.Content, parts.Tags)
	require.NoError(t, err)
	assert.True(t, got.Encrypted)
}

func TestDecodeJobRequest_InputDefaults(t *testing.T) {
	got, err := DecodeJobRequest(5000, "", wire.Tags{
		{"i", "note1"},
		{"i", "abc", "event", "wss://relay.example", "source"},
	})
	require.NoError(t, err)
	assert.Equal(t, []JobInput{
		{Data: "abc", Type: JobInputEvent, Relay: "wss://relay.example", Marker: "source"},
		{Data: "note1", Type: JobInputText},
	}, got.Inputs)
}

func TestDecodeJobRequest_UnknownInputType(t *testing.T) {
	_, err := DecodeJobRequest(5000, "", wire.Tags{{"i", "x", "video"}})
	assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
}

func TestJobResult_ChainTagRequired(t *testing.T) {
	_, err := EncodeJobResult(JobResult{Kind: 6000})
	assert.True(t, IsEmptyField(err, "request.id"))

	_, err = DecodeJobResult(6000, "out", wire.Tags{{"p", "customer"}})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeMissingChainTag, pe.Code)
	assert.Equal(t, TagE, pe.Tag)
}

func TestJobResult_EncryptedRejectsInputs(t *testing.T) {
	_, err := EncodeJobResult(JobResult{
		Kind:      6000,
		Request:   JobChain{ID: "req"},
		Inputs:    []JobInput{{Data: "x"}},
		Encrypted: true,
	})
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeInvalidField, ee.Code)
	assert.Equal(t, "inputs", ee.Field)
}

func TestJobResult_AmountOverflow(t *testing.T) {
	_, err := DecodeJobResult(6000, "", wire.Tags{{"e", "req"}, {"amount", "99999999999000"}})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeAmountOverflow, pe.Code)
	assert.Equal(t, TagAmount, pe.Tag)
}

func TestJobFeedback_Errors(t *testing.T) {
	t.Run("missing status", func(t *testing.T) {
		_, err := DecodeJobFeedback(KindJobFeedback, "", wire.Tags{{"e", "req"}})
		assert.True(t, IsMissingTag(err, TagStatus))
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := DecodeJobFeedback(KindJobFeedback, "", wire.Tags{{"e", "req"}, {"status", "sleeping"}})
		assert.Equal(t, ErrCodeInvalidTag, ParseCode(err))
	})

	t.Run("missing chain", func(t *testing.T) {
		_, err := DecodeJobFeedback(KindJobFeedback, "", wire.Tags{{"status", "success"}})
		assert.Equal(t, ErrCodeMissingChainTag, ParseCode(err))
	})

	t.Run("encode without status", func(t *testing.T) {
		_, err := EncodeJobFeedback(JobFeedback{Request: JobChain{ID: "req"}})
		assert.True(t, IsEmptyField(err, "status"))
	})
}
