package bundle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/roach88/relaysync/internal/wire"
)

// envelope is the binary framing. Integer keys keep it compact and
// independent of Go field names.
type envelope struct {
	Version uint32 `cbor:"1,keyasint"`
	Size    uint64 `cbor:"2,keyasint"`
	Digest  []byte `cbor:"3,keyasint"`
	Payload []byte `cbor:"4,keyasint"`
}

// MaxPayloadSize bounds the uncompressed payload UnmarshalBinary accepts.
const MaxPayloadSize = 64 << 20

// ErrDigestMismatch is returned when a binary bundle's payload does not
// match its digest.
var ErrDigestMismatch = errors.New("bundle payload digest mismatch")

// payloadDomainKey separates bundle digests from any other BLAKE3 use of
// the same bytes. ASCII "relaysync.bundle.payload", zero-padded.
var payloadDomainKey = [32]byte{
	'r', 'e', 'l', 'a', 'y', 's', 'y', 'n', 'c', '.', 'b', 'u', 'n', 'd', 'l', 'e',
	'.', 'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0, 0,
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bundle: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("bundle: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("bundle: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadSize))
	if err != nil {
		panic("bundle: zstd decoder initialization failed: " + err.Error())
	}
}

// Digest returns the keyed BLAKE3 digest of an uncompressed payload.
func Digest(payload []byte) []byte {
	h, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		// Unreachable: the key is always 32 bytes.
		panic("bundle: blake3 keyed hasher: " + err.Error())
	}
	h.Write(payload)
	return h.Sum(nil)
}

// MarshalBinary returns the binary form of b.
func MarshalBinary(b SyncBundle) ([]byte, error) {
	if b.Version != Version {
		return nil, &VersionError{Got: b.Version}
	}
	events := b.Events
	if events == nil {
		events = []wire.EventDraft{}
	}
	payload, err := encMode.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle payload: %w", err)
	}
	env := envelope{
		Version: b.Version,
		Size:    uint64(len(payload)),
		Digest:  Digest(payload),
		Payload: zstdEncoder.EncodeAll(payload, nil),
	}
	data, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle envelope: %w", err)
	}
	return data, nil
}

// UnmarshalBinary parses, verifies and validates the binary form.
func UnmarshalBinary(data []byte) (SyncBundle, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return SyncBundle{}, fmt.Errorf("unmarshal bundle envelope: %w", err)
	}
	if env.Version != Version {
		return SyncBundle{}, &VersionError{Got: env.Version}
	}
	if env.Size > MaxPayloadSize {
		return SyncBundle{}, fmt.Errorf("bundle payload of %d bytes exceeds %d", env.Size, MaxPayloadSize)
	}

	payload, err := zstdDecoder.DecodeAll(env.Payload, make([]byte, 0, env.Size))
	if err != nil {
		return SyncBundle{}, fmt.Errorf("decompress bundle payload: %w", err)
	}
	if uint64(len(payload)) != env.Size {
		return SyncBundle{}, fmt.Errorf("decompress bundle payload: got %d bytes, expected %d", len(payload), env.Size)
	}
	if !bytes.Equal(Digest(payload), env.Digest) {
		return SyncBundle{}, ErrDigestMismatch
	}

	var events []wire.EventDraft
	if err := decMode.Unmarshal(payload, &events); err != nil {
		return SyncBundle{}, fmt.Errorf("unmarshal bundle payload: %w", err)
	}
	b := SyncBundle{Version: env.Version, Events: events}
	if err := b.Validate(); err != nil {
		return SyncBundle{}, err
	}
	return b, nil
}
