package dtag

import (
	"encoding/base64"
	"sync"

	"github.com/google/uuid"
)

// Factory mints new d-tags.
type Factory interface {
	New() string
}

// UUIDv7Factory mints d-tags from the 16 bytes of a UUIDv7.
//
// UUIDv7 embeds a millisecond timestamp in its leading bits, so d-tags from
// this factory sort roughly by creation time. The unpadded base64url form of
// 16 bytes is always exactly 22 characters and always passes Validate.
//
// Thread-safety: UUIDv7Factory is stateless and safe for concurrent use.
type UUIDv7Factory struct{}

// New returns a fresh d-tag. Panics if the system entropy source fails.
func (UUIDv7Factory) New() string {
	id := uuid.Must(uuid.NewV7())
	return FromBytes(id)
}

// FromBytes encodes 16 bytes as a d-tag.
func FromBytes(b [16]byte) string {
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// FixedFactory returns predetermined d-tags in order.
//
// Panics when all values have been consumed, to catch tests that mint more
// identifiers than they declared.
type FixedFactory struct {
	mu     sync.Mutex
	values []string
	idx    int
}

// NewFixedFactory creates a factory that yields values in order.
func NewFixedFactory(values ...string) *FixedFactory {
	return &FixedFactory{values: values}
}

// New returns the next predetermined value.
func (f *FixedFactory) New() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.idx >= len(f.values) {
		panic("FixedFactory: all values exhausted")
	}
	v := f.values[f.idx]
	f.idx++
	return v
}
