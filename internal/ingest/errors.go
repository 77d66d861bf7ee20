package ingest

import (
	"errors"
	"fmt"

	"github.com/roach88/relaysync/internal/eventstate"
)

// RejectedError reports an event the codec could not decode or whose tags
// could not be hashed. The event was neither applied nor skipped. Err is
// the *codec.ParseError or the hashing error.
type RejectedError struct {
	EventID string
	Kind    uint32
	Err     error
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("event %s (kind %d) rejected: %v", e.EventID, e.Kind, e.Err)
}

// Unwrap returns the decode error.
func (e *RejectedError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a *RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// ContentionError reports a key whose compare-and-swap kept losing until
// the configured attempt limit ran out.
type ContentionError struct {
	Key      eventstate.Key
	Attempts int
}

// Error implements the error interface.
func (e *ContentionError) Error() string {
	return fmt.Sprintf("key %s: compare-and-swap lost %d times", e.Key, e.Attempts)
}
