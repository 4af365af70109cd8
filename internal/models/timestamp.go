package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// timestampPattern is the only accepted wire shape: date, time, optional
// fractional seconds and a mandatory zone designator.
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,9})?(Z|[+-]\d{2}:\d{2})$`)

// WireTimeLayout is how timestamps are written: UTC with microseconds, the
// precision the backend keeps.
const WireTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Timestamp is a point in time exchanged with the backend as ISO-8601.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns a Timestamp pointer for t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// ParseTimestamp parses s strictly. Timestamps without a zone designator or
// with any other layout are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	if !timestampPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: expected ISO-8601 with zone offset", s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// TimeOrMin returns the wrapped time, or the zero time when ts is nil.
// Entities without a timestamp therefore sort first.
func (ts *Timestamp) TimeOrMin() time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.Time
}

// MarshalJSON encodes the time in WireTimeLayout.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.UTC().Format(WireTimeLayout))
}

// UnmarshalJSON decodes a strict ISO-8601 string.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}
