package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"omniex/pkg/core"
)

// numberAPI preserves numeric literals as json.Number during dynamic
// decoding, so decimal-classified fields never pass through a float64.
var numberAPI = sonic.Config{UseNumber: true}.Froze()

// Converter is the base translation engine shared by the REST and stream
// converters. All platform knowledge comes from the Config and Tables it is
// constructed with; the methods here are pure table-driven machinery.
type Converter struct {
	cfg    Config
	tables Tables
	log    zerolog.Logger
}

// New builds a converter after validating its configuration.
func New(cfg Config, tables Tables, log zerolog.Logger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Converter{
		cfg:    cfg,
		tables: tables,
		log:    log.With().Str("platform", cfg.Platform.String()).Logger(),
	}, nil
}

// Config returns the converter's immutable configuration.
func (c *Converter) Config() Config {
	return c.cfg
}

// Tables returns the converter's lookup tables.
func (c *Converter) Tables() *Tables {
	return &c.tables
}

// Platform returns the platform this converter serves.
func (c *Converter) Platform() core.Platform {
	return c.cfg.Platform
}

// PrepareParams translates canonical params into the platform vocabulary:
// nil values are dropped, names are translated (or dropped when the table
// says so), and values pass through the value lookup, the symbol delimiter
// rewrite, the timestamp codec, and decimal formatting.
func (c *Converter) PrepareParams(params core.Params) core.PlatformParams {
	out := make(core.PlatformParams, len(params))
	for name, value := range params {
		if value == nil {
			continue
		}
		platformName := string(name)
		if target, ok := c.tables.ParamNames[name]; ok {
			if target.Drop {
				continue
			}
			platformName = target.Name
		}
		out[platformName] = c.prepareValue(name, value)
	}
	return out
}

func (c *Converter) prepareValue(name core.ParamName, value any) any {
	if name.IsTimestamp() {
		if ms, ok := value.(int64); ok {
			return c.cfg.Time.FromCanonical(ms)
		}
		return value
	}
	value = c.tables.Values.ToPlatform(name, value)
	switch name {
	case core.ParamFromItem, core.ParamToItem:
		// Timestamp-valued bounds follow the platform's time representation;
		// id-valued bounds pass through as-is.
		if ms, ok := value.(int64); ok {
			return c.cfg.Time.FromCanonical(ms)
		}
	case core.ParamSymbol, core.ParamSymbols:
		if s, ok := value.(string); ok {
			return c.cfg.PlatformSymbol(s)
		}
	}
	if name.IsDecimal() {
		if d, ok := value.(core.Decimal); ok {
			return d.String()
		}
	}
	return value
}

// MakeRequest resolves the endpoint and builds the outbound request. A
// canceling endpoint rule returns core.ErrRequestCanceled; the caller
// treats that as "this request is impossible", not a failure.
func (c *Converter) MakeRequest(method string, endpoint core.Endpoint, params core.Params) (*core.Request, error) {
	platformParams := c.PrepareParams(params)
	path, ok := c.tables.EndpointRuleFor(endpoint).Resolve(platformParams)
	if !ok {
		return nil, core.ErrRequestCanceled
	}
	req := core.NewRequest(method, joinURL(c.cfg.ResolveBaseURL(), path))
	req.Endpoint = endpoint
	req.RequireAuth = c.tables.IsSecured(endpoint)
	req.SetQueryParams(platformParams)
	return req, nil
}

func joinURL(base, path string) string {
	if path == "" {
		return strings.TrimSuffix(base, "/")
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Parse maps a decoded payload for an endpoint into canonical items.
// Sequences map element-wise; nil or skipped elements are dropped rather
// than padded. The decoded payload must come from a number-preserving
// decoder (see DecodeJSON) so decimal fields stay exact.
func (c *Converter) Parse(endpoint core.Endpoint, data any) ([]any, error) {
	if data == nil {
		return nil, nil
	}
	if list, ok := data.([]any); ok {
		items := make([]any, 0, len(list))
		for _, element := range list {
			if element == nil {
				continue
			}
			item, err := c.ParseItem(endpoint, element)
			if err != nil {
				return nil, err
			}
			if item != nil {
				items = append(items, item)
			}
		}
		return items, nil
	}
	item, err := c.ParseItem(endpoint, data)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return []any{item}, nil
}

// ParseItem builds one canonical item from one payload element. An endpoint
// without an item mapping is a programming error in the platform tables and
// fails loudly.
func (c *Converter) ParseItem(endpoint core.Endpoint, data any) (any, error) {
	spec, ok := c.tables.Items[endpoint]
	if !ok {
		return nil, fmt.Errorf("no item mapping for endpoint %q on %s", endpoint, c.cfg.Platform)
	}
	item := spec.New()
	if err := c.buildInto(item, spec.Fields, data); err != nil {
		return nil, err
	}
	c.PostProcessItem(item)
	return item, nil
}

func (c *Converter) buildInto(item core.Formattable, fields FieldMap, data any) error {
	refs := item.ItemFormat()
	refByName := make(map[core.ParamName]any, len(refs))
	for _, ref := range refs {
		refByName[ref.Name] = ref.Ptr
	}
	switch {
	case fields.keyed != nil:
		obj, ok := data.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object payload, got %T", data)
		}
		for platformField, name := range fields.keyed {
			raw, present := obj[platformField]
			if !present || raw == nil {
				continue
			}
			ptr, known := refByName[name]
			if !known {
				continue
			}
			if err := c.assign(name, raw, ptr); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
		}
	case fields.positional != nil:
		list, ok := data.([]any)
		if !ok {
			return fmt.Errorf("expected array payload, got %T", data)
		}
		for i, name := range fields.positional {
			if name == "" || i >= len(list) || list[i] == nil {
				continue
			}
			ptr, known := refByName[name]
			if !known {
				continue
			}
			if err := c.assign(name, list[i], ptr); err != nil {
				return fmt.Errorf("position %d (%s): %w", i, name, err)
			}
		}
	default:
		return fmt.Errorf("no field map for %T on %s", item, c.cfg.Platform)
	}
	return nil
}

// assign converts one raw JSON value onto a typed item field, applying the
// decimal/timestamp classification and the reverse value lookup.
func (c *Converter) assign(name core.ParamName, raw any, ptr any) error {
	if name.IsTimestamp() {
		ms, err := c.cfg.Time.ToCanonical(raw)
		if err != nil {
			return err
		}
		if p, ok := ptr.(*int64); ok {
			*p = ms
		}
		return nil
	}
	if name.IsDecimal() {
		if p, ok := ptr.(*core.Decimal); ok {
			d, err := toDecimal(raw)
			if err != nil {
				return err
			}
			*p = d
			return nil
		}
	}
	value := c.tables.Values.ToCanonical(name, raw)
	return c.setField(ptr, value)
}

func (c *Converter) setField(ptr, value any) error {
	switch p := ptr.(type) {
	case *string:
		// Identifiers arrive as JSON numbers on some platforms and as
		// strings on others; stringify so ids compare reliably.
		*p = stringify(value)
	case *int64:
		n, err := toInt64Field(value)
		if err != nil {
			return err
		}
		*p = n
	case *core.Decimal:
		d, err := toDecimal(value)
		if err != nil {
			return err
		}
		*p = d
	case *core.Direction:
		if v, ok := value.(core.Direction); ok {
			*p = v
		}
	case *core.OrderType:
		if v, ok := value.(core.OrderType); ok {
			*p = v
		}
	case *core.OrderStatus:
		if v, ok := value.(core.OrderStatus); ok {
			*p = v
		}
	case *core.TimeInForce:
		if v, ok := value.(core.TimeInForce); ok {
			*p = v
		}
	case *core.TransactionType:
		if v, ok := value.(core.TransactionType); ok {
			*p = v
		}
	case *core.Sorting:
		if v, ok := value.(core.Sorting); ok {
			*p = v
		}
	case *core.CandleInterval:
		switch v := value.(type) {
		case core.CandleInterval:
			*p = v
		case string:
			*p = core.CandleInterval(v)
		}
	case *core.Platform:
		if v, ok := value.(core.Platform); ok {
			*p = v
		}
	case *bool:
		if v, ok := value.(bool); ok {
			*p = v
		}
	case **bool:
		if v, ok := value.(bool); ok {
			*p = &v
		}
	case *[]core.OrderBookLevel:
		levels, err := c.parseLevels(value)
		if err != nil {
			return err
		}
		*p = levels
	case *[]core.Balance:
		balances, err := c.parseBalances(value)
		if err != nil {
			return err
		}
		*p = balances
	default:
		return fmt.Errorf("unsupported field type %T", ptr)
	}
	return nil
}

func (c *Converter) parseLevels(value any) ([]core.OrderBookLevel, error) {
	rows, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected level list, got %T", value)
	}
	fields := c.tables.LevelFields
	if fields.IsZero() {
		fields = Positional(core.ParamPrice, core.ParamAmount)
	}
	levels := make([]core.OrderBookLevel, 0, len(rows))
	for _, row := range rows {
		var level core.OrderBookLevel
		if err := c.buildLevel(&level, fields, row); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// buildLevel mirrors buildInto for the non-Item OrderBookLevel type.
func (c *Converter) buildLevel(level *core.OrderBookLevel, fields FieldMap, data any) error {
	refs := level.ItemFormat()
	refByName := map[core.ParamName]any{
		core.ParamOrdersCount: &level.OrdersCount,
		core.ParamSymbol:      &level.Symbol,
	}
	for _, ref := range refs {
		refByName[ref.Name] = ref.Ptr
	}
	switch {
	case fields.keyed != nil:
		obj, ok := data.(map[string]any)
		if !ok {
			return fmt.Errorf("expected level object, got %T", data)
		}
		for platformField, name := range fields.keyed {
			raw, present := obj[platformField]
			if !present || raw == nil {
				continue
			}
			ptr, known := refByName[name]
			if !known {
				continue
			}
			if err := c.assign(name, raw, ptr); err != nil {
				return err
			}
		}
	case fields.positional != nil:
		list, ok := data.([]any)
		if !ok {
			return fmt.Errorf("expected level array, got %T", data)
		}
		for i, name := range fields.positional {
			if name == "" || i >= len(list) || list[i] == nil {
				continue
			}
			ptr, known := refByName[name]
			if !known {
				continue
			}
			if err := c.assign(name, list[i], ptr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Converter) parseBalances(value any) ([]core.Balance, error) {
	rows, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected balance list, got %T", value)
	}
	spec, ok := c.tables.Items[core.EndpointBalance]
	if !ok {
		return nil, fmt.Errorf("no balance mapping on %s", c.cfg.Platform)
	}
	balances := make([]core.Balance, 0, len(rows))
	for _, row := range rows {
		var balance core.Balance
		if err := c.buildInto(&balance, spec.Fields, row); err != nil {
			return nil, err
		}
		c.PostProcessItem(&balance)
		balances = append(balances, balance)
	}
	return balances, nil
}

// baseItem is satisfied by every type embedding core.Item.
type baseItem interface {
	Base() *core.Item
}

// PostProcessItem applies the converter-wide normalizations: stamp the
// platform, canonicalize the symbol, and stamp book levels and balances
// with their owner's identity.
func (c *Converter) PostProcessItem(item any) {
	b, ok := item.(baseItem)
	if !ok {
		return
	}
	base := b.Base()
	if base.Platform == core.PlatformUnknown {
		base.Platform = c.cfg.Platform
	}
	if base.Symbol != "" {
		base.Symbol = c.cfg.CanonicalSymbol(base.Symbol)
	}
	switch t := item.(type) {
	case *core.OrderBook:
		t.SetAsks(t.Asks)
		t.SetBids(t.Bids)
	case *core.OrderBookDiff:
		t.SetAsks(t.Asks)
		t.SetBids(t.Bids)
	case *core.Account:
		t.SetBalances(t.Balances)
	}
}

// ParseError builds a canonical error from a platform error payload. A nil
// payload with a successful status means no error and returns nil.
func (c *Converter) ParseError(statusCode int, data any) *core.Error {
	obj, _ := data.(map[string]any)
	if obj == nil && statusCode >= 200 && statusCode < 300 {
		return nil
	}
	spec := c.tables.Error
	if obj != nil && spec.Wrapper != "" {
		if inner, ok := obj[spec.Wrapper].(map[string]any); ok {
			obj = inner
		}
	}
	var platformCode, platformMessage string
	if obj != nil {
		if raw, ok := obj[spec.CodeField]; ok {
			platformCode = stringify(raw)
		}
		if raw, ok := obj[spec.MessageField]; ok {
			platformMessage = stringify(raw)
		}
	}

	code, mapped := spec.CodeLookup[platformCode]
	if !mapped {
		for needle, mc := range spec.MessageLookup {
			if strings.Contains(platformMessage, needle) {
				code, mapped = mc, true
				break
			}
		}
	}
	if !mapped {
		if code, mapped = spec.StatusLookup[statusCode]; !mapped {
			code, mapped = core.ErrorCodeByHTTPStatus[statusCode]
		}
	}
	if !mapped {
		code = core.ErrCodeAppError
	}

	err := core.NewError(c.cfg.Platform, code, "")
	err.HTTPStatus = statusCode
	err.PlatformCode = platformCode
	err.PlatformMessage = platformMessage
	err.Message = fmt.Sprintf("%s Platform: status=%d code=%s message=%s",
		core.MessageByCode[code], statusCode, platformCode, platformMessage)
	return err
}

// DecodeJSON decodes a payload preserving numeric exactness: numbers arrive
// as json.Number so decimal-classified fields never pass through a float64.
func DecodeJSON(data []byte) (any, error) {
	var v any
	if err := numberAPI.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func toDecimal(value any) (core.Decimal, error) {
	switch v := value.(type) {
	case core.Decimal:
		return v, nil
	case string:
		return core.ParseDecimal(v)
	case json.Number:
		return core.ParseDecimal(v.String())
	case int64:
		return core.NewDecimalInt64(v), nil
	case int:
		return core.NewDecimalInt64(int64(v)), nil
	}
	return core.Decimal{}, fmt.Errorf("cannot parse %T as decimal", value)
}

func toInt64Field(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case string:
		var n int64
		_, err := fmt.Sscan(v, &n)
		return n, err
	}
	return 0, fmt.Errorf("cannot parse %T as integer", value)
}
