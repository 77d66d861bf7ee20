package dtag

import (
	"errors"
	"fmt"
)

// Length is the exact length of a d-tag.
const Length = 22

var (
	// ErrLength indicates a value that is not exactly 22 characters.
	ErrLength = errors.New("d-tag must be 22 characters")

	// ErrAlphabet indicates a character outside the base64url alphabet.
	ErrAlphabet = errors.New("d-tag must use the base64url alphabet")

	// ErrTerminal indicates a last character that cannot end a 16-byte encoding.
	ErrTerminal = errors.New("d-tag must end in A, Q, g, or w")
)

// Validate checks value against the d-tag rules and returns a wrapped
// ErrLength, ErrAlphabet, or ErrTerminal on failure.
func Validate(value string) error {
	if len(value) != Length {
		return fmt.Errorf("%w: got %d", ErrLength, len(value))
	}
	for i := 0; i < len(value); i++ {
		if !isBase64URL(value[i]) {
			return fmt.Errorf("%w: %q at position %d", ErrAlphabet, value[i], i)
		}
	}
	switch value[Length-1] {
	case 'A', 'Q', 'g', 'w':
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrTerminal, value[Length-1])
	}
}

// IsValid reports whether value is a well-formed d-tag.
func IsValid(value string) bool {
	return Validate(value) == nil
}

func isBase64URL(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
