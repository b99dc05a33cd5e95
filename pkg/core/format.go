package core

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// FieldRef binds a canonical field name to a pointer into an item. The order
// of refs returned by ItemFormat fixes the positional (array) wire layout.
type FieldRef struct {
	Name ParamName
	Ptr  any
}

// Formattable is implemented by every canonical item type. ItemFormat
// returns the item's fields in wire order; the same refs serve both the
// compact array encoding and the verbose map encoding.
type Formattable interface {
	ItemFormat() []FieldRef
}

// MarshalItem serializes an item. With asList set the compact positional
// array form is produced, otherwise a field-name-keyed map. Nested order
// book levels and balances recursively use their own format.
func MarshalItem(it Formattable, asList bool) ([]byte, error) {
	refs := it.ItemFormat()
	if asList {
		values := make([]any, len(refs))
		for i, ref := range refs {
			values[i] = marshalValue(ref.Ptr, asList)
		}
		return sonic.Marshal(values)
	}
	m := make(map[ParamName]any, len(refs))
	for _, ref := range refs {
		m[ref.Name] = marshalValue(ref.Ptr, asList)
	}
	return sonic.Marshal(m)
}

func marshalValue(ptr any, asList bool) any {
	switch p := ptr.(type) {
	case *[]OrderBookLevel:
		nested := make([]any, len(*p))
		for i := range *p {
			refs := (*p)[i].ItemFormat()
			if asList {
				row := make([]any, len(refs))
				for j, ref := range refs {
					row[j] = ref.Ptr
				}
				nested[i] = row
			} else {
				row := make(map[ParamName]any, len(refs))
				for _, ref := range refs {
					row[ref.Name] = ref.Ptr
				}
				nested[i] = row
			}
		}
		return nested
	case *[]Balance:
		nested := make([]any, len(*p))
		for i := range *p {
			b := (*p)[i]
			raw, _ := MarshalItem(&b, asList)
			nested[i] = json.RawMessage(raw)
		}
		return nested
	}
	return ptr
}

// UnmarshalItem deserializes an item from either wire form, detected from
// the leading token. Null positions and absent keys leave fields zeroed.
func UnmarshalItem(data []byte, it Formattable) error {
	refs := it.ItemFormat()
	trimmed := trimLeadingSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty item payload")
	}
	if trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := sonic.Unmarshal(data, &raws); err != nil {
			return err
		}
		for i, ref := range refs {
			if i >= len(raws) {
				break
			}
			if err := unmarshalValue(raws[i], ref.Ptr); err != nil {
				return fmt.Errorf("field %s: %w", ref.Name, err)
			}
		}
		return nil
	}
	var raws map[ParamName]json.RawMessage
	if err := sonic.Unmarshal(data, &raws); err != nil {
		return err
	}
	for _, ref := range refs {
		raw, ok := raws[ref.Name]
		if !ok {
			continue
		}
		if err := unmarshalValue(raw, ref.Ptr); err != nil {
			return fmt.Errorf("field %s: %w", ref.Name, err)
		}
	}
	return nil
}

func unmarshalValue(raw json.RawMessage, ptr any) error {
	if string(raw) == "null" {
		return nil
	}
	switch p := ptr.(type) {
	case *[]OrderBookLevel:
		var rows []json.RawMessage
		if err := sonic.Unmarshal(raw, &rows); err != nil {
			return err
		}
		levels := make([]OrderBookLevel, len(rows))
		for i := range rows {
			if err := UnmarshalItem(rows[i], &levels[i]); err != nil {
				return err
			}
		}
		*p = levels
		return nil
	case *[]Balance:
		var rows []json.RawMessage
		if err := sonic.Unmarshal(raw, &rows); err != nil {
			return err
		}
		balances := make([]Balance, len(rows))
		for i := range rows {
			if err := UnmarshalItem(rows[i], &balances[i]); err != nil {
				return err
			}
		}
		*p = balances
		return nil
	}
	return sonic.Unmarshal(raw, ptr)
}

func trimLeadingSpace(data []byte) []byte {
	for len(data) > 0 {
		switch data[0] {
		case ' ', '\t', '\n', '\r':
			data = data[1:]
		default:
			return data
		}
	}
	return data
}

// ItemFormat returns the wire field order for Trade.
func (t *Trade) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &t.Platform},
		{ParamSymbol, &t.Symbol},
		{ParamTimestamp, &t.Timestamp},
		{ParamItemID, &t.ItemID},
		{ParamPrice, &t.Price},
		{ParamAmount, &t.Amount},
		{ParamDirection, &t.Direction},
	}
}

// ItemFormat returns the wire field order for MyTrade.
func (t *MyTrade) ItemFormat() []FieldRef {
	return append(t.Trade.ItemFormat(),
		FieldRef{ParamOrderID, &t.OrderID},
		FieldRef{ParamFee, &t.Fee},
		FieldRef{ParamRebate, &t.Rebate},
	)
}

// ItemFormat returns the wire field order for Candle.
func (c *Candle) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &c.Platform},
		{ParamSymbol, &c.Symbol},
		{ParamInterval, &c.Interval},
		{ParamTimestamp, &c.Timestamp},
		{ParamTimestampClose, &c.TimestampClose},
		{ParamPriceOpen, &c.PriceOpen},
		{ParamPriceClose, &c.PriceClose},
		{ParamPriceHigh, &c.PriceHigh},
		{ParamPriceLow, &c.PriceLow},
		{ParamVolume, &c.Volume},
		{ParamTradesCount, &c.TradesCount},
	}
}

// ItemFormat returns the wire field order for Ticker.
func (t *Ticker) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &t.Platform},
		{ParamSymbol, &t.Symbol},
		{ParamTimestamp, &t.Timestamp},
		{ParamPrice, &t.Price},
	}
}

// ItemFormat returns the wire field order for Quote.
func (q *Quote) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &q.Platform},
		{ParamSymbol, &q.Symbol},
		{ParamTimestamp, &q.Timestamp},
		{ParamBestAsk, &q.BestAsk},
		{ParamBestBid, &q.BestBid},
	}
}

// ItemFormat returns the wire field order for OrderBookLevel.
func (l *OrderBookLevel) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPrice, &l.Price},
		{ParamAmount, &l.Amount},
		{ParamDirection, &l.Direction},
	}
}

// ItemFormat returns the wire field order for OrderBook.
func (b *OrderBook) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &b.Platform},
		{ParamSymbol, &b.Symbol},
		{ParamTimestamp, &b.Timestamp},
		{ParamItemID, &b.ItemID},
		{ParamAsks, &b.Asks},
		{ParamBids, &b.Bids},
	}
}

// ItemFormat returns the wire field order for Account.
func (a *Account) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &a.Platform},
		{ParamTimestamp, &a.Timestamp},
		{ParamBalances, &a.Balances},
	}
}

// ItemFormat returns the wire field order for Balance.
func (b *Balance) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &b.Platform},
		{ParamSymbol, &b.Symbol},
		{ParamAmountAvailable, &b.AmountAvailable},
		{ParamAmountReserved, &b.AmountReserved},
		{ParamAmountBorrowed, &b.AmountBorrowed},
		{ParamPNL, &b.PNL},
	}
}

// ItemFormat returns the wire field order for BalanceTransaction.
func (t *BalanceTransaction) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &t.Platform},
		{ParamSymbol, &t.Symbol},
		{ParamTimestamp, &t.Timestamp},
		{ParamItemID, &t.ItemID},
		{ParamTransactionType, &t.TransactionType},
		{ParamAmount, &t.Amount},
		{ParamFee, &t.Fee},
	}
}

// ItemFormat returns the wire field order for Order.
func (o *Order) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &o.Platform},
		{ParamSymbol, &o.Symbol},
		{ParamTimestamp, &o.Timestamp},
		{ParamItemID, &o.ItemID},
		{ParamUserOrderID, &o.UserOrderID},
		{ParamOrderType, &o.OrderType},
		{ParamAmountOriginal, &o.AmountOriginal},
		{ParamAmountExecuted, &o.AmountExecuted},
		{ParamPrice, &o.Price},
		{ParamPriceStop, &o.PriceStop},
		{ParamDirection, &o.Direction},
		{ParamOrderStatus, &o.OrderStatus},
	}
}

// ItemFormat returns the wire field order for Position.
func (p *Position) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &p.Platform},
		{ParamSymbol, &p.Symbol},
		{ParamTimestamp, &p.Timestamp},
		{ParamAmount, &p.Amount},
		{ParamDirection, &p.Direction},
		{ParamPriceAverage, &p.PriceAverage},
		{ParamPriceMarginCall, &p.PriceMarginCall},
		{ParamProfitNLoss, &p.ProfitNLoss},
		{ParamIsOpen, &p.OpenOverride},
	}
}

// ItemFormat returns the wire field order for Transfer.
func (t *Transfer) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &t.Platform},
		{ParamSymbol, &t.Symbol},
		{ParamTimestamp, &t.Timestamp},
		{ParamItemID, &t.ItemID},
		{ParamAmount, &t.Amount},
		{ParamFromTransfer, &t.FromTransfer},
		{ParamToTransfer, &t.ToTransfer},
	}
}

// ItemFormat returns the wire field order for CurrencyPair.
func (p *CurrencyPair) ItemFormat() []FieldRef {
	return []FieldRef{
		{ParamPlatformID, &p.Platform},
		{ParamSymbol, &p.Symbol},
		{ParamSymbolBase, &p.Base},
		{ParamSymbolQuote, &p.Quote},
		{ParamNameInPlatform, &p.NameInPlatform},
		{ParamLotSizeMin, &p.LotSizeMin},
		{ParamLotSizeMax, &p.LotSizeMax},
		{ParamLotSizeStep, &p.LotSizeStep},
		{ParamPriceStep, &p.PriceStep},
		{ParamMinNotional, &p.MinNotional},
	}
}
