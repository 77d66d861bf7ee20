package codec

import (
	"errors"
	"fmt"
)

// EncodeError reports a record that cannot be encoded.
//
// Every EncodeError names the offending field so callers can build precise
// diagnostics without parsing messages. All encode errors are correctable
// by the caller and never retried internally.
type EncodeError struct {
	// Code identifies the error category.
	Code EncodeErrorCode

	// Field names the offending record field (e.g. "root.id", "d_tag").
	Field string

	// Kind carries the rejected kind for ErrCodeEncodeInvalidKind.
	Kind uint32

	// Err is the underlying cause, if any.
	Err error
}

// EncodeErrorCode categorizes encode errors.
type EncodeErrorCode string

const (
	// ErrCodeEmptyField indicates a required field is empty or missing.
	ErrCodeEmptyField EncodeErrorCode = "EMPTY_REQUIRED_FIELD"

	// ErrCodeInvalidField indicates a field with an invalid format.
	ErrCodeInvalidField EncodeErrorCode = "INVALID_FIELD"

	// ErrCodeEncodeInvalidKind indicates a kind outside the record's range.
	ErrCodeEncodeInvalidKind EncodeErrorCode = "INVALID_KIND"

	// ErrCodeJSON indicates content serialization failed.
	ErrCodeJSON EncodeErrorCode = "JSON"
)

// Error implements the error interface.
func (e *EncodeError) Error() string {
	switch e.Code {
	case ErrCodeEncodeInvalidKind:
		return fmt.Sprintf("%s: kind %d", e.Code, e.Kind)
	case ErrCodeEmptyField:
		return fmt.Sprintf("%s: %s", e.Code, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Field)
}

// Unwrap returns the underlying cause.
func (e *EncodeError) Unwrap() error {
	return e.Err
}

func emptyField(field string) *EncodeError {
	return &EncodeError{Code: ErrCodeEmptyField, Field: field}
}

func invalidField(field string, err error) *EncodeError {
	return &EncodeError{Code: ErrCodeInvalidField, Field: field, Err: err}
}

func encodeInvalidKind(kind uint32) *EncodeError {
	return &EncodeError{Code: ErrCodeEncodeInvalidKind, Field: "kind", Kind: kind}
}

// ParseError reports a wire event that cannot be decoded into a record.
//
// Parse errors name the tag (or pseudo-tag such as "content") at fault.
// A decode failure rejects the event outright; nothing is partially applied.
type ParseError struct {
	// Code identifies the error category.
	Code ParseErrorCode

	// Tag names the offending tag key, or "content".
	Tag string

	// Expected describes the accepted kind(s) for ErrCodeInvalidKind.
	Expected string

	// Got is the actual kind for ErrCodeInvalidKind and ErrCodeUnknownKind.
	Got uint32

	// Err is the underlying cause, if any.
	Err error
}

// ParseErrorCode categorizes parse errors.
type ParseErrorCode string

const (
	// ErrCodeMissingTag indicates a required tag is absent.
	ErrCodeMissingTag ParseErrorCode = "MISSING_TAG"

	// ErrCodeInvalidTag indicates a tag with the wrong arity or format.
	ErrCodeInvalidTag ParseErrorCode = "INVALID_TAG"

	// ErrCodeInvalidKind indicates the kind does not match the record type.
	ErrCodeInvalidKind ParseErrorCode = "INVALID_KIND"

	// ErrCodeUnknownKind indicates no record type is registered for the kind.
	ErrCodeUnknownKind ParseErrorCode = "UNKNOWN_KIND"

	// ErrCodeInvalidJSON indicates JSON content could not be decoded.
	ErrCodeInvalidJSON ParseErrorCode = "INVALID_JSON"

	// ErrCodeInvalidNumber indicates a numeric tag value failed to parse.
	ErrCodeInvalidNumber ParseErrorCode = "INVALID_NUMBER"

	// ErrCodeNonWholeUnit indicates a sub-unit amount that does not divide
	// into whole units (msat not a multiple of 1000).
	ErrCodeNonWholeUnit ParseErrorCode = "NON_WHOLE_UNIT"

	// ErrCodeAmountOverflow indicates an amount that does not fit u32 units.
	ErrCodeAmountOverflow ParseErrorCode = "AMOUNT_OVERFLOW"

	// ErrCodeMissingChainTag indicates a job record without the tag linking
	// it to the request it answers.
	ErrCodeMissingChainTag ParseErrorCode = "MISSING_CHAIN_TAG"
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch e.Code {
	case ErrCodeInvalidKind:
		return fmt.Sprintf("%s: expected %s, got %d", e.Code, e.Expected, e.Got)
	case ErrCodeUnknownKind:
		return fmt.Sprintf("%s: %d", e.Code, e.Got)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Tag, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Tag)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func missingTag(tag string) *ParseError {
	return &ParseError{Code: ErrCodeMissingTag, Tag: tag}
}

func invalidTag(tag string, err error) *ParseError {
	return &ParseError{Code: ErrCodeInvalidTag, Tag: tag, Err: err}
}

func invalidKind(expected string, got uint32) *ParseError {
	return &ParseError{Code: ErrCodeInvalidKind, Tag: "kind", Expected: expected, Got: got}
}

func invalidJSON(err error) *ParseError {
	return &ParseError{Code: ErrCodeInvalidJSON, Tag: "content", Err: err}
}

func invalidNumber(tag string, err error) *ParseError {
	return &ParseError{Code: ErrCodeInvalidNumber, Tag: tag, Err: err}
}

// IsMissingTag reports whether err is a ParseError for an absent tag.
// When name is non-empty the tag name must match too.
func IsMissingTag(err error, name string) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMissingTag && (name == "" || pe.Tag == name)
	}
	return false
}

// IsEmptyField reports whether err is an EncodeError for an empty field.
// When field is non-empty the field name must match too.
func IsEmptyField(err error, field string) bool {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeEmptyField && (field == "" || ee.Field == field)
	}
	return false
}

// ParseCode returns the ParseErrorCode carried by err, or "".
func ParseCode(err error) ParseErrorCode {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// EncodeCode returns the EncodeErrorCode carried by err, or "".
func EncodeCode(err error) EncodeErrorCode {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
