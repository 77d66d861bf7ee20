package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/wire"
)

// Version is the bundle framing version. It changes when the bundle's own
// shape changes, not when record grammars do.
const Version uint32 = 1

// SyncBundle is an ordered snapshot of event drafts.
type SyncBundle struct {
	Version uint32            `json:"version"`
	Events  []wire.EventDraft `json:"events"`
}

// VersionError reports a bundle with an unsupported version.
type VersionError struct {
	Got uint32
}

// Error implements the error interface.
func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported bundle version %d (want %d)", e.Got, Version)
}

// ErrMissingVersion is returned for JSON bundles without a version field.
var ErrMissingVersion = errors.New("bundle has no version")

// EventError reports an invalid event inside a bundle.
type EventError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *EventError) Error() string {
	return fmt.Sprintf("bundle event %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}

// Validate checks the version and that every event has an author and
// decodes through the codec.
func (b SyncBundle) Validate() error {
	if b.Version != Version {
		return &VersionError{Got: b.Version}
	}
	for i, ev := range b.Events {
		if strings.TrimSpace(ev.Author) == "" {
			return &EventError{Index: i, Err: errors.New("empty author")}
		}
		if _, err := codec.DecodeParts(ev.Parts()); err != nil {
			return &EventError{Index: i, Err: err}
		}
	}
	return nil
}

// Encode returns the JSON form of b.
func Encode(b SyncBundle) ([]byte, error) {
	if b.Events == nil {
		b.Events = []wire.EventDraft{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// Decode parses and validates the JSON form. The version is checked before
// the events are parsed.
func Decode(data []byte) (SyncBundle, error) {
	var head struct {
		Version *uint32 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return SyncBundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	if head.Version == nil {
		return SyncBundle{}, ErrMissingVersion
	}
	if *head.Version != Version {
		return SyncBundle{}, &VersionError{Got: *head.Version}
	}

	var b SyncBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return SyncBundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return SyncBundle{}, err
	}
	return b, nil
}
