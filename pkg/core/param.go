package core

// ParamName is a canonical parameter or field name. The same vocabulary is
// used for outbound request params and for the field keys of parsed items,
// so one bidirectional lookup table per platform covers both directions.
type ParamName string

// Canonical param/field names.
const (
	ParamID          ParamName = "id"
	ParamItemID      ParamName = "item_id"
	ParamTradeID     ParamName = "trade_id"
	ParamOrderID     ParamName = "order_id"
	ParamUserOrderID ParamName = "user_order_id"

	ParamSymbol        ParamName = "symbol"
	ParamSymbols       ParamName = "symbols"
	ParamLimit         ParamName = "limit"
	ParamIsUseMaxLimit ParamName = "is_use_max_limit"
	ParamLimitSkip     ParamName = "limit_skip"
	ParamSorting       ParamName = "sorting"
	ParamInterval      ParamName = "interval"
	ParamDirection     ParamName = "direction"
	ParamOrderType     ParamName = "order_type"
	ParamOrderStatus   ParamName = "order_status"
	ParamLevel         ParamName = "level"
	ParamTradesCount   ParamName = "trades_count"
	ParamOrdersCount   ParamName = "orders_count"
	ParamTimeInForce   ParamName = "time_in_force"

	ParamTimestamp      ParamName = "timestamp"
	ParamTimestampClose ParamName = "timestamp_close"
	ParamFromItem       ParamName = "from_item"
	ParamToItem         ParamName = "to_item"
	ParamFromTime       ParamName = "from_time"
	ParamToTime         ParamName = "to_time"
	ParamFromTransfer   ParamName = "from_transfer"
	ParamToTransfer     ParamName = "to_transfer"

	ParamAmount          ParamName = "amount"
	ParamAmountOriginal  ParamName = "amount_original"
	ParamAmountExecuted  ParamName = "amount_executed"
	ParamAmountAvailable ParamName = "amount_available"
	ParamAmountReserved  ParamName = "amount_reserved"
	ParamAmountBorrowed  ParamName = "amount_borrowed"
	ParamVolume          ParamName = "volume"
	ParamPrice           ParamName = "price"
	ParamPriceOpen       ParamName = "price_open"
	ParamPriceClose      ParamName = "price_close"
	ParamPriceHigh       ParamName = "price_high"
	ParamPriceLow        ParamName = "price_low"
	ParamPriceStop       ParamName = "price_stop"
	ParamPriceLimit      ParamName = "price_limit"
	ParamPriceAverage    ParamName = "price_average"
	ParamPriceMarginCall ParamName = "margincall_price"
	ParamProfitNLoss     ParamName = "profit_n_loss"
	ParamPNL             ParamName = "pnl"
	ParamFee             ParamName = "fee"
	ParamRebate          ParamName = "rebate"
	ParamLeverage        ParamName = "leverage"

	ParamBalances        ParamName = "balances"
	ParamAsks            ParamName = "asks"
	ParamBids            ParamName = "bids"
	ParamBestAsk         ParamName = "bestask"
	ParamBestBid         ParamName = "bestbid"
	ParamIsOpen          ParamName = "is_open"
	ParamAccountType     ParamName = "account_type"
	ParamTransactionType ParamName = "transaction_type"

	ParamLotSizeMin   ParamName = "lot_size_min"
	ParamLotSizeMax   ParamName = "lot_size_max"
	ParamLotSizeStep  ParamName = "lot_size_step"
	ParamPriceStep    ParamName = "price_step"
	ParamMinNotional  ParamName = "min_notional"
	ParamSymbolBase   ParamName = "base"
	ParamSymbolQuote  ParamName = "quote"
	ParamNameInPlatform ParamName = "name_in_platform"

	ParamPlatformID ParamName = "platform_id"
	ParamEndpoint   ParamName = "endpoint"
)

// timestampNames classifies fields carrying epoch time; values under these
// names pass through the converter's timestamp codec on both directions.
var timestampNames = map[ParamName]struct{}{
	ParamTimestamp:      {},
	ParamTimestampClose: {},
	ParamFromTime:       {},
	ParamToTime:         {},
}

// decimalNames classifies fields carrying money or quantity; values under
// these names must be parsed as exact decimals, never binary floats.
var decimalNames = map[ParamName]struct{}{
	ParamAmount: {}, ParamAmountOriginal: {}, ParamAmountExecuted: {},
	ParamAmountAvailable: {}, ParamAmountReserved: {}, ParamAmountBorrowed: {},
	ParamVolume: {}, ParamPrice: {}, ParamPriceOpen: {}, ParamPriceClose: {},
	ParamPriceHigh: {}, ParamPriceLow: {}, ParamPriceStop: {}, ParamPriceLimit: {},
	ParamPriceAverage: {}, ParamPriceMarginCall: {}, ParamProfitNLoss: {},
	ParamPNL: {}, ParamFee: {}, ParamRebate: {}, ParamLeverage: {},
	ParamBestAsk: {}, ParamBestBid: {}, ParamFromTransfer: {}, ParamToTransfer: {},
	ParamLotSizeMin: {}, ParamLotSizeMax: {}, ParamLotSizeStep: {},
	ParamPriceStep: {}, ParamMinNotional: {},
}

// IsTimestamp reports whether the param name carries an epoch time value.
func (p ParamName) IsTimestamp() bool {
	_, ok := timestampNames[p]
	return ok
}

// IsDecimal reports whether the param name carries an exact decimal value.
func (p ParamName) IsDecimal() bool {
	_, ok := decimalNames[p]
	return ok
}
