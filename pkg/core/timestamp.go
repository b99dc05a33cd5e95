package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Canonical timestamps are epoch milliseconds, always. Platforms present
// time as epoch seconds, epoch milliseconds, or ISO-8601 strings; TimeCodec
// converts between a platform's native representation and the canonical one.

// TimestampSeconds converts canonical milliseconds to whole epoch seconds.
func TimestampSeconds(ms int64) int64 {
	return ms / 1000
}

// TimestampTime converts canonical milliseconds to a UTC time.Time.
func TimestampTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// TimestampISO converts canonical milliseconds to an ISO-8601 string with
// millisecond precision.
func TimestampISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// TimeCodec describes a platform's native time representation.
// Zero value means epoch seconds.
type TimeCodec struct {
	// SourceInMillis is set when the platform sends epoch milliseconds.
	SourceInMillis bool
	// SourceInTimestring is set when the platform sends ISO-8601 strings.
	// Takes precedence over SourceInMillis.
	SourceInTimestring bool
}

// ToCanonical converts a platform-native time value to canonical epoch
// milliseconds. Numeric input may arrive as json.Number, int64, or a numeric
// string depending on the decoder path.
func (c TimeCodec) ToCanonical(v any) (int64, error) {
	if c.SourceInTimestring {
		s, ok := v.(string)
		if !ok {
			return 0, fmt.Errorf("expected time string, got %T", v)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if c.SourceInMillis {
		return n, nil
	}
	return n * 1000, nil
}

// FromCanonical converts canonical epoch milliseconds back to the platform's
// native representation. Seconds-granularity platforms lose sub-second
// precision here.
func (c TimeCodec) FromCanonical(ms int64) any {
	if c.SourceInTimestring {
		return TimestampISO(ms)
	}
	if c.SourceInMillis {
		return ms
	}
	return ms / 1000
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case float64:
		return int64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot interpret %T as timestamp", v)
}
