// Package session executes REST operations against a platform: rate
// limiting, circuit breaking, caching, signing, transport, and translation
// of responses into canonical items.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"omniex/internal/circuitbreaker"
	"omniex/internal/keyring"
	"omniex/internal/ratelimit"
	"omniex/internal/transport"
	"omniex/pkg/convert"
	"omniex/pkg/core"
)

// State represents the lifecycle state of a Session.
type State int

const (
	// StateActive indicates a session ready to process requests.
	StateActive State = iota
	// StateClosed indicates a session that has been shut down.
	StateClosed
)

func (s State) String() string {
	return [...]string{"ACTIVE", "CLOSED"}[s]
}

// Penalty windows applied when the platform reports throttling. The ban
// window is deliberately long: continuing to send requests while banned
// extends the ban on most platforms.
const (
	rateLimitPenalty = time.Minute
	ipBanPenalty     = 30 * time.Minute
)

// Session is a stateful REST connection to one platform. Safe for
// concurrent use.
type Session struct {
	config    *core.Config
	rest      *convert.RESTConverter
	transport *transport.Client
	limiter   *ratelimit.RateLimiter
	breaker   *circuitbreaker.Breaker
	cache     *Cache
	keys      *keyring.KeyRing
	log       zerolog.Logger

	mu       sync.RWMutex
	state    State
	lastUsed time.Time

	// timeSkew is platform server time minus local time, in milliseconds.
	timeSkew atomic.Int64
}

// New creates a Session from a validated config and a platform REST
// converter.
func New(config *core.Config, rest *convert.RESTConverter, log zerolog.Logger) (*Session, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if rest == nil {
		return nil, fmt.Errorf("converter is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	s := &Session{
		config:   config,
		rest:     rest,
		limiter:  ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod),
		log:      log.With().Str("platform", config.Platform.String()).Logger(),
		state:    StateActive,
		lastUsed: time.Now(),
	}
	s.transport = transport.NewClient(transport.Config{
		Timeout: config.Timeout,
	}, s.log)
	if config.CircuitBreakerEnabled {
		s.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}
	if config.CacheEnabled {
		s.cache = NewCache(config.CacheTTL)
	}
	if config.Credentials != nil {
		s.keys = keyring.New([]*keyring.APIKey{{
			ID:         "default",
			Key:        config.Credentials.APIKey,
			Secret:     config.Credentials.SecretKey,
			Passphrase: config.Credentials.Passphrase,
		}}, keyring.RotationOnRateLimit)
	}
	return s, nil
}

// WithKeyRing replaces the session's credential source, enabling rotation
// across several API keys.
func (s *Session) WithKeyRing(keys *keyring.KeyRing) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
	return s
}

// Converter exposes the underlying REST converter.
func (s *Session) Converter() *convert.RESTConverter {
	return s.rest
}

// Config returns the session configuration.
func (s *Session) Config() *core.Config {
	return s.config
}

// State returns the session lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close shuts the session down.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if s.cache != nil {
		s.cache.Clear()
	}
	return s.transport.Close()
}

// Fetch executes one operation and returns canonical items. Local range
// filtering is applied for platforms without native upper-bound support.
func (s *Session) Fetch(ctx context.Context, method string, endpoint core.Endpoint, params core.Params) ([]any, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil, core.ErrClientClosed
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()

	normalized := s.rest.PreprocessParams(endpoint, params)
	req, err := s.rest.MakeRequest(method, endpoint, normalized)
	if err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(req)
	if cacheKey != "" {
		if cached, _ := s.cache.Get(ctx, cacheKey); cached != nil {
			s.log.Debug().Str("cache_key", cacheKey).Msg("cache hit")
			return cached.([]any), nil
		}
	}

	if s.breaker != nil && !s.breaker.Allow() {
		return nil, core.ErrCircuitBreakerOpen
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if req.RequireAuth {
		if err := s.sign(req); err != nil {
			return nil, err
		}
	}

	resp, err := s.transport.Execute(ctx, req)
	success := err == nil && resp != nil && resp.IsSuccess()
	if s.breaker != nil {
		s.breaker.Record(success)
	}
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	payload, decodeErr := convert.DecodeJSON(resp.Bytes())
	if resp.IsError() || decodeErr != nil {
		perr := s.rest.ParseError(resp.StatusCode(), payload)
		s.applyPenalty(perr)
		return nil, perr
	}

	items, err := s.rest.Parse(endpoint, payload)
	if err != nil {
		return nil, err
	}
	items = s.rest.FilterResult(items, normalized)

	if cacheKey != "" && items != nil {
		_ = s.cache.Set(ctx, cacheKey, items, req.CacheTTL)
	}
	return items, nil
}

// FetchOne executes an operation expected to yield a single item.
func (s *Session) FetchOne(ctx context.Context, method string, endpoint core.Endpoint, params core.Params) (any, error) {
	items, err := s.Fetch(ctx, method, endpoint, params)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: empty response", endpoint)
	}
	return items[0], nil
}

// Ping checks platform reachability.
func (s *Session) Ping(ctx context.Context) error {
	_, err := s.Fetch(ctx, "GET", core.EndpointPing, nil)
	return err
}

// SyncTime measures the offset between platform server time and local time
// and records it for Now. Degraded clocks otherwise break signed requests
// whose timestamps the platform validates.
func (s *Session) SyncTime(ctx context.Context) error {
	before := time.Now().UnixMilli()
	serverTime, err := s.ServerTime(ctx)
	if err != nil {
		return err
	}
	after := time.Now().UnixMilli()
	local := before + (after-before)/2
	s.timeSkew.Store(serverTime - local)
	s.log.Debug().Int64("skew_ms", serverTime-local).Msg("server time synced")
	return nil
}

// ServerTime fetches the platform's current time in canonical milliseconds.
func (s *Session) ServerTime(ctx context.Context) (int64, error) {
	item, err := s.FetchOne(ctx, "GET", core.EndpointServerTime, nil)
	if err != nil {
		return 0, err
	}
	switch t := item.(type) {
	case int64:
		return t, nil
	case *core.Item:
		return t.Timestamp, nil
	}
	return 0, fmt.Errorf("unexpected server time payload %T", item)
}

// Now returns the current canonical timestamp adjusted by the measured
// server time skew.
func (s *Session) Now() int64 {
	return time.Now().UnixMilli() + s.timeSkew.Load()
}

func (s *Session) sign(req *core.Request) error {
	creds, err := s.credentials()
	if err != nil {
		return err
	}
	return s.rest.Sign(req, creds)
}

func (s *Session) credentials() (core.Credentials, error) {
	s.mu.RLock()
	keys := s.keys
	s.mu.RUnlock()
	if keys == nil {
		return core.Credentials{}, core.ErrNoCredentials
	}
	key := keys.Current()
	if key == nil {
		return core.Credentials{}, core.ErrNoCredentials
	}
	keys.MarkUsed()
	return core.Credentials{
		APIKey:     key.Key,
		SecretKey:  key.Secret,
		Passphrase: key.Passphrase,
	}, nil
}

// applyPenalty reacts to throttling errors: pause the limiter for the
// platform's implied window and rotate to the next API key when one is
// available.
func (s *Session) applyPenalty(perr *core.Error) {
	if perr == nil {
		return
	}
	switch {
	case core.IsRateLimit(perr):
		s.limiter.Penalize(rateLimitPenalty)
		s.rotateKey()
	case core.IsIPBan(perr):
		s.limiter.Penalize(ipBanPenalty)
	case core.IsUnauthorized(perr):
		s.rotateKey()
	}
}

func (s *Session) rotateKey() {
	s.mu.RLock()
	keys := s.keys
	s.mu.RUnlock()
	if keys == nil {
		return
	}
	keys.OnError()
}

// cacheKey derives the cache key for cacheable requests: public GETs when
// the cache is enabled. Private data is never cached.
func (s *Session) cacheKey(req *core.Request) string {
	if s.cache == nil || req.Method != "GET" || req.RequireAuth {
		return ""
	}
	if req.CacheKey != "" {
		return req.CacheKey
	}
	parts := make([]string, 0, len(req.Query))
	for k, v := range req.Query {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return req.URL + "?" + strings.Join(parts, "&")
}
