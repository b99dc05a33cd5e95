package core

import (
	"maps"
	"time"
)

// Params carries canonical request parameters keyed by canonical names.
// Values may be scalars, enums, items (reduced to their identifier or
// timestamp by the converter), or slices for cartesian stream expansion.
type Params map[ParamName]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	maps.Copy(c, p)
	return c
}

// PlatformParams carries already-translated parameters keyed by the
// platform's own field names.
type PlatformParams map[string]any

// Request is a fully translated outbound HTTP request, ready for signing
// and execution.
type Request struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Query       PlatformParams    `json:"query,omitempty"`
	Body        any               `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Endpoint    Endpoint          `json:"endpoint"`
	CacheKey    string            `json:"cache_key,omitempty"`
	CacheTTL    time.Duration     `json:"cache_ttl,omitempty"`
	RequireAuth bool              `json:"require_auth"`
}

// NewRequest creates a request for the given method and resolved URL.
func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Query:   make(PlatformParams),
		Headers: make(map[string]string),
	}
}

// SetQuery sets one query parameter and returns the request for chaining.
func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(PlatformParams)
	}
	r.Query[key] = value
	return r
}

// SetQueryParams merges the given params into the query.
func (r *Request) SetQueryParams(params PlatformParams) *Request {
	if r.Query == nil {
		r.Query = make(PlatformParams)
	}
	maps.Copy(r.Query, params)
	return r
}

// SetBody sets the request body and returns the request for chaining.
func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

// SetHeader sets one header and returns the request for chaining.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetCache marks the request response as cacheable under the key.
func (r *Request) SetCache(key string, ttl time.Duration) *Request {
	r.CacheKey = key
	r.CacheTTL = ttl
	return r
}

// SetRequireAuth marks the request as needing a signature.
func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}
