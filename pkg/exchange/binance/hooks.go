package binance

import (
	"encoding/json"

	"omniex/pkg/core"
)

// preparePayload reshapes platform envelopes before table-driven parsing.
// Ping and server time short-circuit: neither carries an item payload.
// Exchange info serves two endpoints from one response, so the symbol list
// is flattened here with the per-symbol filter blocks merged in.
func preparePayload(endpoint core.Endpoint, payload any) (any, bool, error) {
	switch endpoint {
	case core.EndpointPing:
		return nil, true, nil

	case core.EndpointServerTime:
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false, core.NewError(core.PlatformBinance, core.ErrCodeAppError, "server time payload is not an object")
		}
		ms, err := toInt64(obj["serverTime"])
		if err != nil {
			return nil, false, err
		}
		return []any{ms}, true, nil

	case core.EndpointSymbols:
		rows, err := symbolRows(payload)
		if err != nil {
			return nil, false, err
		}
		symbols := make([]any, 0, len(rows))
		for _, row := range rows {
			base, _ := row["baseAsset"].(string)
			quote, _ := row["quoteAsset"].(string)
			if base == "" || quote == "" {
				continue
			}
			symbols = append(symbols, base+"_"+quote)
		}
		return symbols, true, nil

	case core.EndpointCurrencyPairs:
		rows, err := symbolRows(payload)
		if err != nil {
			return nil, false, err
		}
		flat := make([]any, 0, len(rows))
		for _, row := range rows {
			flat = append(flat, mergeFilters(row))
		}
		return flat, false, nil

	case core.EndpointBalance:
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false, core.NewError(core.PlatformBinance, core.ErrCodeAppError, "account payload is not an object")
		}
		return obj["balances"], false, nil
	}

	return payload, false, nil
}

// postItem fills canonical fields the field tables cannot express.
func postItem(endpoint core.Endpoint, item any, raw any) any {
	obj, _ := raw.(map[string]any)
	switch it := item.(type) {
	case *core.MyTrade:
		// The side of an own trade is a boolean, not a side string.
		if isBuyer, ok := obj["isBuyer"].(bool); ok {
			if isBuyer {
				it.Direction = core.DirectionBuy
			} else {
				it.Direction = core.DirectionSell
			}
		}
	case *core.CurrencyPair:
		if it.Base != "" && it.Quote != "" {
			it.Symbol = it.Base + "_" + it.Quote
		}
	}
	return item
}

func symbolRows(payload any) ([]map[string]any, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, core.NewError(core.PlatformBinance, core.ErrCodeAppError, "exchange info payload is not an object")
	}
	list, ok := obj["symbols"].([]any)
	if !ok {
		return nil, core.NewError(core.PlatformBinance, core.ErrCodeAppError, "exchange info payload has no symbols list")
	}
	rows := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if row, ok := entry.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// mergeFilters lifts the filter blocks a symbol row nests under filterType
// keys up into the row itself, where the field table can see them.
func mergeFilters(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	filters, _ := row["filters"].([]any)
	for _, entry := range filters {
		filter, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		switch filter["filterType"] {
		case "LOT_SIZE":
			out["minQty"] = filter["minQty"]
			out["maxQty"] = filter["maxQty"]
			out["stepSize"] = filter["stepSize"]
		case "PRICE_FILTER":
			out["tickSize"] = filter["tickSize"]
		case "MIN_NOTIONAL", "NOTIONAL":
			out["minNotional"] = filter["minNotional"]
		}
	}
	return out
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, core.NewError(core.PlatformBinance, core.ErrCodeAppError, "server time is not a number")
}
