package core

// Platform identifies a supported exchange platform.
type Platform int

// Platform constants identify the exchanges this module can talk to.
const (
	// PlatformUnknown is the zero value for items not yet stamped with a platform.
	PlatformUnknown Platform = iota
	// PlatformBinance is the Binance spot exchange.
	PlatformBinance
	// PlatformBinanceFutures is the Binance USD-M futures exchange.
	PlatformBinanceFutures
	// PlatformBitMEX is the BitMEX derivatives exchange.
	PlatformBitMEX
)

// String returns the string representation of the platform.
func (p Platform) String() string {
	return [...]string{"UNKNOWN", "BINANCE", "BINANCE_FUTURES", "BITMEX"}[p]
}

// MarshalJSON implements json.Marshaler for Platform.
func (p Platform) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Platform.
// It accepts both uppercase and lowercase formats.
func (p *Platform) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"BINANCE"`, `"binance"`:
		*p = PlatformBinance
	case `"BINANCE_FUTURES"`, `"binance_futures"`:
		*p = PlatformBinanceFutures
	case `"BITMEX"`, `"bitmex"`:
		*p = PlatformBitMEX
	default:
		*p = PlatformUnknown
	}
	return nil
}
