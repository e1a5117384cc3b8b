package atlas

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atlashq/atlas-go/requestlog"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client for making requests.
// This is useful for testing, proxying, or custom transport configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP request timeout. Ignored when a custom
// http.Client is supplied. Defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCacheTTL enables the GET response cache with the given entry
// time-to-live. The cache is off by default.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

// WithCacheMaxSize sets the maximum number of cached responses.
// Defaults to 256. Only meaningful together with WithCacheTTL.
func WithCacheMaxSize(n int) Option {
	return func(c *Client) {
		c.cacheMaxSize = n
	}
}

// WithMetrics records request metrics into the given set. The caller
// owns registration; see NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRequestLog appends one record per completed call to the given log.
func WithRequestLog(l *requestlog.Log) Option {
	return func(c *Client) {
		c.reqlog = l
	}
}

// WithUserAgent overrides the User-Agent header sent on every call.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}
