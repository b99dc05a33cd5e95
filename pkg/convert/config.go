// Package convert implements the platform-agnostic translation engine:
// data-driven, bidirectional mapping between the canonical vocabulary and a
// platform's wire vocabulary. Platform specifics live entirely in lookup
// tables and small hooks; the machinery here is shared by every platform.
package convert

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"omniex/pkg/core"
)

// Config is the immutable per-platform converter configuration, built once
// at construction and never mutated afterwards.
type Config struct {
	Platform core.Platform `validate:"required"`
	Version  string        `validate:"required"`
	// BaseURL is the API root, with an optional {version} placeholder.
	BaseURL string `validate:"required"`

	// SymbolDelimiter is the platform's delimiter inside pair names. Empty
	// means the platform concatenates base and quote directly.
	SymbolDelimiter string

	// Time describes the platform's native time representation.
	Time core.TimeCodec

	// IsSortingEnabled is set when the platform accepts a sorting param.
	IsSortingEnabled bool
	// DefaultSorting is injected on sorting endpoints when the caller
	// passes core.SortingDefault.
	DefaultSorting core.Sorting
	// UseMaxLimit substitutes the endpoint's maximum page size when the
	// caller asks for it instead of passing an explicit limit.
	UseMaxLimit bool

	// SubscriptionCommandSupported is set when the platform accepts
	// subscribe/unsubscribe commands on an open socket. Platforms without
	// it bake subscriptions into the connection URL and need a reconnect
	// on every change.
	SubscriptionCommandSupported bool
	// SubscriptionParam is the message key echoing the originating
	// subscription, empty when the platform does not echo one.
	SubscriptionParam string
	// EventTypeParam is the payload key naming the event type, used as the
	// dispatch fallback when SubscriptionParam is absent.
	EventTypeParam string
}

var validate = validator.New()

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ResolveBaseURL returns the base URL with the version placeholder filled in.
func (c *Config) ResolveBaseURL() string {
	return strings.ReplaceAll(c.BaseURL, "{version}", c.Version)
}

// PlatformSymbol rewrites a canonical BASE_QUOTE symbol into the platform's
// own notation.
func (c *Config) PlatformSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "_", c.SymbolDelimiter)
}

// CanonicalSymbol rewrites a platform symbol back to canonical form: upper
// case, with the platform delimiter replaced by "_". Platforms without a
// delimiter return the symbol concatenated; splitting into base and quote
// then needs pair metadata and is left to the caller.
func (c *Config) CanonicalSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	if c.SymbolDelimiter != "" {
		s = strings.ReplaceAll(s, c.SymbolDelimiter, "_")
	}
	return s
}
