package core

import (
	"fmt"
	"strconv"
)

// CandleInterval is the bucket width of a candle series, in the compact
// "<count><unit>" notation shared by most platforms ("1m", "4h", "1w").
type CandleInterval string

// Candle interval constants.
const (
	Interval1m  CandleInterval = "1m"
	Interval3m  CandleInterval = "3m"
	Interval5m  CandleInterval = "5m"
	Interval15m CandleInterval = "15m"
	Interval30m CandleInterval = "30m"
	Interval1h  CandleInterval = "1h"
	Interval2h  CandleInterval = "2h"
	Interval4h  CandleInterval = "4h"
	Interval6h  CandleInterval = "6h"
	Interval8h  CandleInterval = "8h"
	Interval12h CandleInterval = "12h"
	Interval1d  CandleInterval = "1d"
	Interval3d  CandleInterval = "3d"
	Interval1w  CandleInterval = "1w"
	Interval1M  CandleInterval = "1M"
)

// Intervals lists all supported intervals in ascending width order.
var Intervals = []CandleInterval{
	Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval2h, Interval4h, Interval6h, Interval8h, Interval12h,
	Interval1d, Interval3d, Interval1w, Interval1M,
}

// ParseInterval parses a compact interval string, accepting any count+unit
// combination, not only the predeclared constants.
func ParseInterval(s string) (CandleInterval, error) {
	iv := CandleInterval(s)
	if _, err := iv.Minutes(); err != nil {
		return "", err
	}
	return iv, nil
}

// Minutes returns the interval width in minutes. A month is counted as
// 30 days, matching platform bucketing conventions.
func (i CandleInterval) Minutes() (int, error) {
	if len(i) < 2 {
		return 0, fmt.Errorf("invalid candle interval %q", string(i))
	}
	count, err := strconv.Atoi(string(i[:len(i)-1]))
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("invalid candle interval %q", string(i))
	}
	switch i[len(i)-1] {
	case 'm':
		return count, nil
	case 'h':
		return count * 60, nil
	case 'd':
		return count * 60 * 24, nil
	case 'w':
		return count * 60 * 24 * 7, nil
	case 'M':
		return count * 60 * 24 * 30, nil
	}
	return 0, fmt.Errorf("invalid candle interval unit in %q", string(i))
}

// String returns the compact interval notation.
func (i CandleInterval) String() string {
	return string(i)
}
