package bitmex

import (
	"sort"
	"strings"

	"omniex/pkg/core"
)

var satoshisPerCoin = core.NewDecimalInt64(100_000_000)

// preparePayload reshapes platform payloads before table parsing: index
// rows are dropped, L2 book rows become two-sided books, and margin rows
// are normalized out of satoshi units.
func preparePayload(endpoint core.Endpoint, payload any) (any, bool, error) {
	switch endpoint {
	case core.EndpointSymbols:
		symbols := make([]any, 0)
		for _, row := range instrumentRows(payload) {
			if symbol, ok := row["symbol"].(string); ok && !isIndexSymbol(symbol) {
				symbols = append(symbols, symbol)
			}
		}
		return symbols, true, nil

	case core.EndpointSymbolsActive, core.EndpointCurrencyPairs:
		rows := make([]any, 0)
		for _, row := range instrumentRows(payload) {
			if symbol, ok := row["symbol"].(string); ok && !isIndexSymbol(symbol) {
				rows = append(rows, row)
			}
		}
		return rows, false, nil

	case core.EndpointTicker, core.EndpointTickerAll:
		rows := make([]any, 0)
		for _, row := range instrumentRows(payload) {
			symbol, _ := row["symbol"].(string)
			if isIndexSymbol(symbol) || row["lastPrice"] == nil {
				continue
			}
			rows = append(rows, row)
		}
		return rows, false, nil

	case core.EndpointOrderBook:
		book, err := bookFromL2(payload)
		if err != nil {
			return nil, false, err
		}
		return book, false, nil

	case core.EndpointQuote:
		book, err := bookFromL2(payload)
		if err != nil {
			return nil, false, err
		}
		quote := map[string]any{"symbol": book["symbol"]}
		if asks := book["asks"].([]any); len(asks) > 0 {
			quote["askPrice"] = asks[0].([]any)[0]
		}
		if bids := book["bids"].([]any); len(bids) > 0 {
			quote["bidPrice"] = bids[0].([]any)[0]
		}
		return quote, false, nil

	case core.EndpointAccount:
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false, core.NewError(core.PlatformBitMEX, core.ErrCodeAppError, "margin payload is not an object")
		}
		margin := normalizeMargin(obj)
		return map[string]any{
			"timestamp": obj["timestamp"],
			"balances":  []any{margin},
		}, false, nil

	case core.EndpointBalance:
		if obj, ok := payload.(map[string]any); ok {
			return normalizeMargin(obj), false, nil
		}

	case core.EndpointBalanceTransaction:
		if list, ok := payload.([]any); ok {
			rows := make([]any, 0, len(list))
			for _, entry := range list {
				if row, ok := entry.(map[string]any); ok {
					rows = append(rows, normalizeSatoshiRow(row, "amount", "fee"))
				}
			}
			return rows, false, nil
		}
	}

	return payload, false, nil
}

// postItem fills fields the tables cannot derive from single columns.
func postItem(endpoint core.Endpoint, item any, raw any) any {
	obj, _ := raw.(map[string]any)
	switch it := item.(type) {
	case *core.Position:
		// The platform signs the quantity instead of carrying a side.
		if it.Amount.Negative && !it.Amount.IsZero() {
			it.Direction = core.DirectionSell
			it.Amount = absDecimal(it.Amount)
		} else if !it.Amount.IsZero() {
			it.Direction = core.DirectionBuy
		}
	case *core.MyTrade:
		if execType, ok := obj["execType"].(string); ok && execType != "Trade" {
			return nil
		}
		it.Fee = absDecimal(it.Fee)
	case *core.BalanceTransaction:
		it.Fee = absDecimal(it.Fee)
	case *core.CurrencyPair:
		if it.Base != "" && it.Quote != "" {
			it.Symbol = strings.ToUpper(it.Base) + "_" + strings.ToUpper(it.Quote)
		}
		if it.LotSizeStep.IsZero() {
			it.LotSizeStep = it.LotSizeMin
		}
	}
	return item
}

func isIndexSymbol(symbol string) bool {
	return strings.HasPrefix(symbol, ".")
}

func instrumentRows(payload any) []map[string]any {
	list, _ := payload.([]any)
	rows := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if row, ok := entry.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// bookFromL2 partitions flat L2 rows into a two-sided book object: asks
// ascending, bids descending.
func bookFromL2(payload any) (map[string]any, error) {
	list, ok := payload.([]any)
	if !ok {
		return nil, core.NewError(core.PlatformBitMEX, core.ErrCodeAppError, "order book payload is not a list")
	}

	type level struct {
		price core.Decimal
		raw   []any
	}
	var symbol any
	var asks, bids []level
	for _, entry := range list {
		row, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		price, err := core.ParseDecimal(stringifyNumber(row["price"]))
		if err != nil {
			continue
		}
		if symbol == nil {
			symbol = row["symbol"]
		}
		lv := level{price: price, raw: []any{row["price"], row["size"]}}
		if row["side"] == "Sell" {
			asks = append(asks, lv)
		} else {
			bids = append(bids, lv)
		}
	}
	sort.Slice(asks, func(i, j int) bool { return asks[i].price.Cmp(&asks[j].price.Decimal) < 0 })
	sort.Slice(bids, func(i, j int) bool { return bids[i].price.Cmp(&bids[j].price.Decimal) > 0 })

	askRows := make([]any, len(asks))
	for i, lv := range asks {
		askRows[i] = any(lv.raw)
	}
	bidRows := make([]any, len(bids))
	for i, lv := range bids {
		bidRows[i] = any(lv.raw)
	}
	return map[string]any{"symbol": symbol, "asks": askRows, "bids": bidRows}, nil
}

// normalizeMargin converts a satoshi-denominated margin row into coin
// units and derives the reserved amount the row only carries implicitly.
func normalizeMargin(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}

	available := decimalField(obj, "availableMargin")
	wallet := decimalField(obj, "walletBalance")
	pnl := decimalField(obj, "unrealisedPnl")
	reserved := wallet.Sub(available)

	if currency, ok := obj["currency"].(string); ok && currency == "XBt" {
		out["currency"] = "XBT"
		available = available.Div(satoshisPerCoin)
		reserved = reserved.Div(satoshisPerCoin)
		pnl = pnl.Div(satoshisPerCoin)
	}
	out["availableMargin"] = available.String()
	out["reservedAmount"] = reserved.String()
	out["unrealisedPnl"] = pnl.String()
	return out
}

// normalizeSatoshiRow scales the named fields out of satoshis for XBt rows.
func normalizeSatoshiRow(row map[string]any, fields ...string) map[string]any {
	currency, _ := row["currency"].(string)
	if currency != "XBt" {
		return row
	}
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	out["currency"] = "XBT"
	for _, field := range fields {
		if row[field] == nil {
			continue
		}
		out[field] = decimalField(row, field).Div(satoshisPerCoin).String()
	}
	return out
}

func decimalField(obj map[string]any, field string) core.Decimal {
	d, err := core.ParseDecimal(stringifyNumber(obj[field]))
	if err != nil {
		return core.Decimal{}
	}
	return d
}

func stringifyNumber(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case interface{ String() string }:
		return n.String()
	}
	return ""
}

func absDecimal(d core.Decimal) core.Decimal {
	var r core.Decimal
	r.Decimal.Abs(&d.Decimal)
	return r
}
