package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotSeconds is returned when a timestamp does not fit in 32-bit epoch
// seconds, which almost always means a millisecond value was supplied.
var ErrNotSeconds = errors.New("timestamp must be epoch seconds, not milliseconds")

// EpochSeconds is a Unix timestamp in seconds.
type EpochSeconds uint32

// FromTime converts t, clamping to the representable range.
func FromTime(t time.Time) EpochSeconds {
	s := t.Unix()
	switch {
	case s < 0:
		return 0
	case s > math.MaxUint32:
		return math.MaxUint32
	}
	return EpochSeconds(s)
}

// Time returns the timestamp as a UTC time.
func (e EpochSeconds) Time() time.Time {
	return time.Unix(int64(e), 0).UTC()
}

// ParseEpochSeconds parses a decimal timestamp.
func ParseEpochSeconds(s string) (EpochSeconds, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", ErrNotSeconds, s)
		}
		return 0, fmt.Errorf("epoch seconds %q: %w", s, err)
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrNotSeconds, v)
	}
	return EpochSeconds(v), nil
}

// UnmarshalJSON accepts a non-negative integer no larger than MaxUint32.
func (e *EpochSeconds) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		return nil
	}
	v, err := ParseEpochSeconds(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// UnmarshalYAML applies the same rule as UnmarshalJSON.
func (e *EpochSeconds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: epoch seconds must be a scalar", node.Line)
	}
	v, err := ParseEpochSeconds(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*e = v
	return nil
}
