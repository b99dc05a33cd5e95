// Package transport provides the HTTP client under REST sessions: resty
// with sonic JSON codecs, retries, and request/response logging.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"omniex/pkg/core"
)

// Config holds transport options.
type Config struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Headers      map[string]string
}

// Client wraps a resty client. Safe for concurrent use.
type Client struct {
	client *resty.Client
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient builds the transport client.
func NewClient(config Config, log zerolog.Logger) *Client {
	client := resty.New()
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}
	client.SetRetryCount(config.MaxRetries)
	if config.RetryWaitMin > 0 {
		client.SetRetryWaitTime(config.RetryWaitMin)
	}
	if config.RetryWaitMax > 0 {
		client.SetRetryMaxWaitTime(config.RetryWaitMax)
	}
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})
	for k, v := range config.Headers {
		client.SetHeader(k, v)
	}

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Duration()).
			Msg("http response")
		return nil
	})

	return &Client{client: client, log: log}
}

// Execute sends a prepared request. The response body is read into memory
// and stays available through resp.Bytes for the converter's
// number-preserving decode.
func (c *Client) Execute(ctx context.Context, req *core.Request) (*resty.Response, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, core.ErrClientClosed
	}

	r := c.client.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if len(req.Query) > 0 {
		query := make(map[string]string, len(req.Query))
		for k, v := range req.Query {
			query[k] = fmt.Sprintf("%v", v)
		}
		r.SetQueryParams(query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
		r.SetHeader("Content-Type", "application/json")
	}

	switch req.Method {
	case "GET":
		return r.Get(req.URL)
	case "POST":
		return r.Post(req.URL)
	case "PUT":
		return r.Put(req.URL)
	case "DELETE":
		return r.Delete(req.URL)
	default:
		return nil, fmt.Errorf("unsupported method: %s", req.Method)
	}
}

// Close releases the underlying client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}
