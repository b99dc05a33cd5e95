package core

// Direction represents the side of a trade or order (sell or buy).
type Direction int

// Direction constants. The zero value means "unknown"; platforms that omit
// the side on some feeds leave it unset.
const (
	// DirectionUnknown indicates the platform did not report a side.
	DirectionUnknown Direction = iota
	// DirectionSell indicates a sell (ask side).
	DirectionSell
	// DirectionBuy indicates a buy (bid side).
	DirectionBuy
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	return [...]string{"UNKNOWN", "SELL", "BUY"}[d]
}

// Inverse returns the opposite direction. Unknown stays unknown.
func (d Direction) Inverse() Direction {
	switch d {
	case DirectionSell:
		return DirectionBuy
	case DirectionBuy:
		return DirectionSell
	}
	return DirectionUnknown
}

// MarshalJSON implements json.Marshaler for Direction.
func (d Direction) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Direction.
// It accepts both uppercase and lowercase formats.
func (d *Direction) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"SELL"`, `"sell"`:
		*d = DirectionSell
	case `"BUY"`, `"buy"`:
		*d = DirectionBuy
	default:
		*d = DirectionUnknown
	}
	return nil
}

// Sorting represents the requested chronological order of history results.
type Sorting int

// Sorting constants.
const (
	// SortingDefault defers to the platform's own default order.
	SortingDefault Sorting = iota
	// SortingAscending returns oldest items first.
	SortingAscending
	// SortingDescending returns newest items first.
	SortingDescending
)

// String returns the string representation of the sorting order.
func (s Sorting) String() string {
	return [...]string{"DEFAULT", "ASC", "DESC"}[s]
}

// MarshalJSON implements json.Marshaler for Sorting.
func (s Sorting) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Sorting.
func (s *Sorting) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"ASC"`, `"asc"`:
		*s = SortingAscending
	case `"DESC"`, `"desc"`:
		*s = SortingDescending
	default:
		*s = SortingDefault
	}
	return nil
}

// OrderType represents how an order executes.
type OrderType int

// Order type constants.
const (
	// OrderTypeUnknown indicates the platform reported an unmapped type.
	OrderTypeUnknown OrderType = iota
	// OrderTypeLimit executes at a specified price or better.
	OrderTypeLimit
	// OrderTypeMarket executes immediately at the best available price.
	OrderTypeMarket
	// OrderTypeStopMarket triggers a market order at the stop price.
	OrderTypeStopMarket
	// OrderTypeStopLimit triggers a limit order at the stop price.
	OrderTypeStopLimit
	// OrderTypeTakeProfitMarket triggers a market order at the target price.
	OrderTypeTakeProfitMarket
	// OrderTypeTakeProfitLimit triggers a limit order at the target price.
	OrderTypeTakeProfitLimit
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{
		"UNKNOWN", "LIMIT", "MARKET", "STOP_MARKET", "STOP_LIMIT",
		"TAKE_PROFIT_MARKET", "TAKE_PROFIT_LIMIT",
	}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
// It accepts both uppercase and lowercase formats.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"LIMIT"`, `"limit"`:
		*t = OrderTypeLimit
	case `"MARKET"`, `"market"`:
		*t = OrderTypeMarket
	case `"STOP_MARKET"`, `"stop_market"`:
		*t = OrderTypeStopMarket
	case `"STOP_LIMIT"`, `"stop_limit"`:
		*t = OrderTypeStopLimit
	case `"TAKE_PROFIT_MARKET"`, `"take_profit_market"`:
		*t = OrderTypeTakeProfitMarket
	case `"TAKE_PROFIT_LIMIT"`, `"take_profit_limit"`:
		*t = OrderTypeTakeProfitLimit
	default:
		*t = OrderTypeUnknown
	}
	return nil
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus int

// Order status constants. StatusOpen is used when a platform status cannot
// be mapped precisely to NEW or PARTIALLY_FILLED but the order is known to
// still be working.
const (
	// StatusUnknown indicates the platform reported an unmapped status.
	StatusUnknown OrderStatus = iota
	// StatusOpen indicates a working order of imprecise sub-state.
	StatusOpen
	// StatusNew indicates the order has been accepted by the platform.
	StatusNew
	// StatusPartiallyFilled indicates the order has been partially filled.
	StatusPartiallyFilled
	// StatusFilled indicates the order has been completely filled.
	StatusFilled
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
	// StatusRejected indicates the order was rejected by the platform.
	StatusRejected
	// StatusExpired indicates the order has expired.
	StatusExpired
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{
		"UNKNOWN", "OPEN", "NEW", "PARTIALLY_FILLED", "FILLED",
		"CANCELED", "REJECTED", "EXPIRED",
	}[s]
}

// IsOpen reports whether the order is still working on the platform.
func (s OrderStatus) IsOpen() bool {
	return s == StatusOpen || s == StatusNew || s == StatusPartiallyFilled
}

// IsClosed reports whether the order reached a terminal state.
func (s OrderStatus) IsClosed() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected || s == StatusExpired
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderStatus.
// It accepts both uppercase and lowercase formats.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"OPEN"`, `"open"`:
		*s = StatusOpen
	case `"NEW"`, `"new"`:
		*s = StatusNew
	case `"PARTIALLY_FILLED"`, `"partially_filled"`:
		*s = StatusPartiallyFilled
	case `"FILLED"`, `"filled"`:
		*s = StatusFilled
	case `"CANCELED"`, `"canceled"`:
		*s = StatusCanceled
	case `"REJECTED"`, `"rejected"`:
		*s = StatusRejected
	case `"EXPIRED"`, `"expired"`:
		*s = StatusExpired
	default:
		*s = StatusUnknown
	}
	return nil
}

// TimeInForce defines how long an order remains active.
type TimeInForce int

// Time in force constants.
const (
	// GTC (Good Till Canceled) keeps the order active until filled or canceled.
	GTC TimeInForce = iota
	// IOC (Immediate Or Cancel) cancels any unfilled portion immediately.
	IOC
	// FOK (Fill Or Kill) requires complete immediate execution.
	FOK
	// Day keeps the order active until the end of the trading day.
	Day
)

// String returns the string representation of time in force.
func (t TimeInForce) String() string {
	return [...]string{"GTC", "IOC", "FOK", "DAY"}[t]
}

// MarshalJSON implements json.Marshaler for TimeInForce.
func (t TimeInForce) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for TimeInForce.
func (t *TimeInForce) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"GTC"`, `"gtc"`:
		*t = GTC
	case `"IOC"`, `"ioc"`:
		*t = IOC
	case `"FOK"`, `"fok"`:
		*t = FOK
	case `"DAY"`, `"day"`:
		*t = Day
	}
	return nil
}

// TransactionType categorizes a balance transaction.
type TransactionType int

// Transaction type constants.
const (
	// TransactionUnknown indicates an unmapped platform transaction kind.
	TransactionUnknown TransactionType = iota
	// TransactionDeposit is a user-initiated deposit.
	TransactionDeposit
	// TransactionWithdrawal is a user-initiated withdrawal.
	TransactionWithdrawal
	// TransactionRealisedPNL is profit or loss realised by the platform.
	TransactionRealisedPNL
)

// String returns the string representation of the transaction type.
func (t TransactionType) String() string {
	return [...]string{"UNKNOWN", "DEPOSIT", "WITHDRAWAL", "REALISED_PNL"}[t]
}

// IsCreatedByUser reports whether the transaction was initiated by the
// account holder rather than generated by the platform.
func (t TransactionType) IsCreatedByUser() bool {
	return t == TransactionDeposit || t == TransactionWithdrawal
}

// MarshalJSON implements json.Marshaler for TransactionType.
func (t TransactionType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for TransactionType.
func (t *TransactionType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"DEPOSIT"`, `"deposit"`:
		*t = TransactionDeposit
	case `"WITHDRAWAL"`, `"withdrawal"`:
		*t = TransactionWithdrawal
	case `"REALISED_PNL"`, `"realised_pnl"`:
		*t = TransactionRealisedPNL
	default:
		*t = TransactionUnknown
	}
	return nil
}

// DepthLevel selects the order book depth for stream subscriptions.
type DepthLevel int

// Depth level constants. Each platform maps these to its own numeric depth
// or channel suffix.
const (
	// DepthLight requests the smallest book the platform offers.
	DepthLight DepthLevel = iota
	// DepthMedium requests a mid-sized book.
	DepthMedium
	// DepthDeep requests the full or deepest book.
	DepthDeep
)

// String returns the string representation of the depth level.
func (l DepthLevel) String() string {
	return [...]string{"light", "medium", "deep"}[l]
}

// MarshalJSON implements json.Marshaler for DepthLevel.
func (l DepthLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for DepthLevel.
func (l *DepthLevel) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"light"`, `"LIGHT"`:
		*l = DepthLight
	case `"medium"`, `"MEDIUM"`:
		*l = DepthMedium
	case `"deep"`, `"DEEP"`:
		*l = DepthDeep
	}
	return nil
}
