package exchange

import (
	"omniex/pkg/core"
)

// Option customizes one fetch call.
type Option func(*Options)

// Options collects the per-call knobs shared by history and book fetches.
// FromItem and ToItem accept either a canonical item or a raw milliseconds
// timestamp; the converter reduces items to whatever scalar the platform
// pages by.
type Options struct {
	Limit       int
	UseMaxLimit bool
	Sorting     core.Sorting
	Depth       int
	FromTime    int64
	ToTime      int64
	FromItem    any
	ToItem      any
}

// WithLimit caps the number of returned items.
func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

// WithMaxLimit asks for the platform's maximum page size.
func WithMaxLimit() Option {
	return func(o *Options) {
		o.UseMaxLimit = true
	}
}

// WithSorting requests an explicit chronological order.
func WithSorting(s core.Sorting) Option {
	return func(o *Options) {
		o.Sorting = s
	}
}

// WithDepth limits the number of order book levels per side.
func WithDepth(depth int) Option {
	return func(o *Options) {
		o.Depth = depth
	}
}

// WithTimeRange bounds history by timestamps in canonical milliseconds.
// Zero leaves the corresponding bound open.
func WithTimeRange(from, to int64) Option {
	return func(o *Options) {
		o.FromTime = from
		o.ToTime = to
	}
}

// WithFromItem bounds history from a previously fetched item.
func WithFromItem(item any) Option {
	return func(o *Options) {
		o.FromItem = item
	}
}

// WithToItem bounds history up to a previously fetched item.
func WithToItem(item any) Option {
	return func(o *Options) {
		o.ToItem = item
	}
}

// ApplyOptions folds the option list into an Options value.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Params renders the options as canonical request params.
func (o *Options) Params() core.Params {
	p := make(core.Params)
	if o.Limit > 0 {
		p[core.ParamLimit] = o.Limit
	}
	if o.UseMaxLimit {
		p[core.ParamIsUseMaxLimit] = true
	}
	if o.Sorting != core.SortingDefault {
		p[core.ParamSorting] = o.Sorting
	}
	if o.Depth > 0 {
		p[core.ParamLevel] = o.Depth
	}
	if o.FromTime > 0 {
		p[core.ParamFromTime] = o.FromTime
	}
	if o.ToTime > 0 {
		p[core.ParamToTime] = o.ToTime
	}
	if o.FromItem != nil {
		p[core.ParamFromItem] = o.FromItem
	}
	if o.ToItem != nil {
		p[core.ParamToItem] = o.ToItem
	}
	return p
}
