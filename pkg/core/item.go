package core

import "time"

// Item is the shared base of every canonical value type. Timestamp is always
// epoch milliseconds; Symbol is always upper case in BASE_QUOTE form with "_"
// as the canonical delimiter. ItemID is empty for types without a platform
// identity (candles, tickers, quotes).
type Item struct {
	Platform  Platform `json:"platform_id"`
	Symbol    string   `json:"symbol"`
	Timestamp int64    `json:"timestamp,omitempty"`
	ItemID    string   `json:"item_id,omitempty"`

	// Subscription is the wire channel this item arrived on, set by the
	// stream parse path and used for routing. Not part of the value.
	Subscription string `json:"-"`
}

// Base returns the embedded Item, letting generic code reach the shared
// fields of any concrete item type.
func (i *Item) Base() *Item {
	return i
}

// TimestampSeconds returns the timestamp as whole epoch seconds.
func (i *Item) TimestampSeconds() int64 {
	return TimestampSeconds(i.Timestamp)
}

// Time returns the timestamp as a UTC time.Time.
func (i *Item) Time() time.Time {
	return TimestampTime(i.Timestamp)
}

// TimestampISO returns the timestamp as an ISO-8601 string.
func (i *Item) TimestampISO() string {
	return TimestampISO(i.Timestamp)
}

// sameIdentity implements the shared part of item equality: items are equal
// only when produced for the same platform, and by item_id when both carry
// one, falling back to (symbol, timestamp).
func (i *Item) sameIdentity(o *Item) bool {
	if i.Platform != o.Platform {
		return false
	}
	if i.ItemID != "" && o.ItemID != "" {
		return i.ItemID == o.ItemID
	}
	return i.Symbol == o.Symbol && i.Timestamp == o.Timestamp
}
