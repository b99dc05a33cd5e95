package core

// Trade represents a single public trade executed on a platform.
type Trade struct {
	Item
	Price     Decimal   `json:"price"`
	Amount    Decimal   `json:"amount"`
	Direction Direction `json:"direction,omitempty"`
}

// Equal reports value equality. Trades with platform identifiers compare by
// (platform, item_id); anonymous trades compare by all fields.
func (t *Trade) Equal(o *Trade) bool {
	if t.Platform != o.Platform {
		return false
	}
	if t.ItemID != "" && o.ItemID != "" {
		return t.ItemID == o.ItemID
	}
	return t.Symbol == o.Symbol && t.Timestamp == o.Timestamp &&
		t.Amount.Equal(o.Amount) && t.Price.Equal(o.Price) && t.Direction == o.Direction
}

// MyTrade is a trade executed by the authenticated account. Fee and Rebate
// default to zero on platforms that do not report them.
type MyTrade struct {
	Trade
	OrderID string  `json:"order_id"`
	Fee     Decimal `json:"fee"`
	Rebate  Decimal `json:"rebate"`
}

// Candle is one OHLCV bucket. TimestampClose is exclusive and only set for
// locally-assembled candles; platform-returned candles leave it zero.
type Candle struct {
	Item
	Interval       CandleInterval `json:"interval"`
	TimestampClose int64          `json:"timestamp_close,omitempty"`
	PriceOpen      Decimal        `json:"price_open"`
	PriceClose     Decimal        `json:"price_close"`
	PriceHigh      Decimal        `json:"price_high"`
	PriceLow       Decimal        `json:"price_low"`
	Volume         Decimal        `json:"volume"`
	TradesCount    int64          `json:"trades_count,omitempty"`
}

// IsFinished reports whether the candle's interval has closed.
func (c *Candle) IsFinished() bool {
	return c.TimestampClose != 0
}

// Equal reports value equality by (platform, symbol, interval, timestamp).
func (c *Candle) Equal(o *Candle) bool {
	return c.Platform == o.Platform && c.Symbol == o.Symbol &&
		c.Interval == o.Interval && c.Timestamp == o.Timestamp
}

// Ticker is the latest traded price for a symbol.
type Ticker struct {
	Item
	Price Decimal `json:"price"`
}

// Quote is the top of the book for a symbol.
type Quote struct {
	Item
	BestAsk Decimal `json:"bestask"`
	BestBid Decimal `json:"bestbid"`
}

// OrderBookLevel is a single price level. Platform and Symbol are stamped
// from the owning book when the book's sides are assigned.
type OrderBookLevel struct {
	Platform    Platform  `json:"platform_id,omitempty"`
	Symbol      string    `json:"symbol,omitempty"`
	Price       Decimal   `json:"price"`
	Amount      Decimal   `json:"amount"`
	Direction   Direction `json:"direction,omitempty"`
	OrdersCount int64     `json:"orders_count,omitempty"`
}

// OrderBook is a full snapshot of both sides of the book.
type OrderBook struct {
	Item
	Asks []OrderBookLevel `json:"asks"`
	Bids []OrderBookLevel `json:"bids"`
}

// SetAsks assigns the ask side, stamping platform and symbol onto each level.
func (b *OrderBook) SetAsks(levels []OrderBookLevel) {
	b.Asks = b.stampLevels(levels, DirectionSell)
}

// SetBids assigns the bid side, stamping platform and symbol onto each level.
func (b *OrderBook) SetBids(levels []OrderBookLevel) {
	b.Bids = b.stampLevels(levels, DirectionBuy)
}

func (b *OrderBook) stampLevels(levels []OrderBookLevel, dir Direction) []OrderBookLevel {
	for i := range levels {
		levels[i].Platform = b.Platform
		levels[i].Symbol = b.Symbol
		if levels[i].Direction == DirectionUnknown {
			levels[i].Direction = dir
		}
	}
	return levels
}

// OrderBookDiff is an incremental book update. Same shape as OrderBook but a
// distinct type so callers can subscribe to raw deltas explicitly.
type OrderBookDiff struct {
	OrderBook
}

// AggOrderBook is a book aggregated across several platforms.
type AggOrderBook struct {
	OrderBook
	Platforms []Platform `json:"platform_ids,omitempty"`
}

// Account is an account snapshot with its balances.
type Account struct {
	Item
	Balances []Balance `json:"balances,omitempty"`
}

// SetBalances assigns the balances, stamping the platform onto each.
func (a *Account) SetBalances(balances []Balance) {
	for i := range balances {
		if balances[i].Platform == PlatformUnknown {
			balances[i].Platform = a.Platform
		}
	}
	a.Balances = balances
}

// Balance is the account balance of one asset. Symbol holds the asset code.
type Balance struct {
	Item
	AmountAvailable Decimal `json:"amount_available"`
	AmountReserved  Decimal `json:"amount_reserved"`
	AmountBorrowed  Decimal `json:"amount_borrowed,omitempty"`
	PNL             Decimal `json:"pnl,omitempty"`
}

// AmountTotal returns available + reserved.
func (b *Balance) AmountTotal() Decimal {
	return b.AmountAvailable.Add(b.AmountReserved)
}

// AmountTotalResulted returns the total including unrealised PNL.
func (b *Balance) AmountTotalResulted() Decimal {
	return b.AmountTotal().Add(b.PNL)
}

// BalanceTransaction is one ledger entry of an account. Amount carries the
// sign of the movement.
type BalanceTransaction struct {
	Item
	TransactionType TransactionType `json:"transaction_type"`
	Amount          Decimal         `json:"amount"`
	Fee             Decimal         `json:"fee"`
}

// IsCreatedByUser reports whether the entry was initiated by the account
// holder (deposit or withdrawal).
func (t *BalanceTransaction) IsCreatedByUser() bool {
	return t.TransactionType.IsCreatedByUser()
}

// Order is an exchange order. ItemID holds the platform order id;
// UserOrderID holds the client-assigned id.
type Order struct {
	Item
	UserOrderID    string      `json:"user_order_id,omitempty"`
	OrderType      OrderType   `json:"order_type"`
	AmountOriginal Decimal     `json:"amount_original"`
	AmountExecuted Decimal     `json:"amount_executed"`
	Price          Decimal     `json:"price"`
	PriceStop      Decimal     `json:"price_stop,omitempty"`
	Direction      Direction   `json:"direction"`
	OrderStatus    OrderStatus `json:"order_status"`
}

// AmountLeft returns the unfilled remainder, so that
// AmountOriginal = AmountExecuted + AmountLeft always holds.
func (o *Order) AmountLeft() Decimal {
	return o.AmountOriginal.Sub(o.AmountExecuted)
}

// IsOpen reports whether the order is still working.
func (o *Order) IsOpen() bool {
	return o.OrderStatus.IsOpen()
}

// IsClosed reports whether the order reached a terminal state.
// Exactly one of IsOpen and IsClosed is true for any mapped status.
func (o *Order) IsClosed() bool {
	return !o.OrderStatus.IsOpen()
}

// IsNew reports whether the order is accepted but unfilled.
func (o *Order) IsNew() bool {
	return o.OrderStatus == StatusNew
}

// IsPartiallyFilled reports whether the order is partially executed.
func (o *Order) IsPartiallyFilled() bool {
	return o.OrderStatus == StatusPartiallyFilled
}

// IsFilled reports whether the order is fully executed.
func (o *Order) IsFilled() bool {
	return o.OrderStatus == StatusFilled
}

// Equal reports value equality by (platform, item_id).
func (o *Order) Equal(other *Order) bool {
	return o.sameIdentity(&other.Item)
}

// Position is an open derivatives position. Amount is always non-negative;
// Direction carries the side.
type Position struct {
	Item
	Amount          Decimal   `json:"amount"`
	Direction       Direction `json:"direction"`
	PriceAverage    Decimal   `json:"price_average,omitempty"`
	PriceMarginCall Decimal   `json:"margincall_price,omitempty"`
	ProfitNLoss     Decimal   `json:"profit_n_loss,omitempty"`

	// OpenOverride, when set, wins over the amount-derived openness.
	OpenOverride *bool `json:"is_open,omitempty"`
}

// IsOpen reports whether the position is open: the explicit override when
// present, otherwise amount > 0.
func (p *Position) IsOpen() bool {
	if p.OpenOverride != nil {
		return *p.OpenOverride
	}
	return p.Amount.Sign() > 0
}

// Transfer is a movement of funds between accounts or wallets.
type Transfer struct {
	Item
	Amount       Decimal `json:"amount"`
	FromTransfer string  `json:"from_transfer,omitempty"`
	ToTransfer   string  `json:"to_transfer,omitempty"`
}

// CurrencyPair describes a tradable instrument and its quantization rules.
type CurrencyPair struct {
	Item
	Base           string  `json:"base"`
	Quote          string  `json:"quote"`
	NameInPlatform string  `json:"name_in_platform"`
	LotSizeMin     Decimal `json:"lot_size_min"`
	LotSizeMax     Decimal `json:"lot_size_max,omitempty"`
	LotSizeStep    Decimal `json:"lot_size_step"`
	PriceStep      Decimal `json:"price_step"`
	MinNotional    Decimal `json:"min_notional,omitempty"`
}

// Name returns the canonical BASE_QUOTE pair name.
func (p *CurrencyPair) Name() string {
	if p.Symbol != "" {
		return p.Symbol
	}
	return p.Base + "_" + p.Quote
}

// QuantizeAmount rounds an order amount down to the pair's lot step and
// clamps it into [LotSizeMin, LotSizeMax].
func (p *CurrencyPair) QuantizeAmount(amount Decimal) Decimal {
	q := RoundToStep(amount, p.LotSizeStep, true)
	if !p.LotSizeMin.IsZero() && q.Cmp(&p.LotSizeMin.Decimal) < 0 {
		return Decimal{}
	}
	if !p.LotSizeMax.IsZero() && q.Cmp(&p.LotSizeMax.Decimal) > 0 {
		return p.LotSizeMax
	}
	return q
}

// QuantizePrice rounds a price to the pair's price step.
func (p *CurrencyPair) QuantizePrice(price Decimal) Decimal {
	return RoundToStep(price, p.PriceStep, false)
}
