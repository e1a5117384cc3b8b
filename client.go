package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlashq/atlas-go/requestlog"
)

// Client is the authenticated gateway to the Atlas API. Every call reads
// the credential from its CredentialSource at dispatch time, so a login
// or logout between two calls is always honored; a 401/403 response on
// any call force-terminates the session before the call returns.
//
// A Client is safe for concurrent use; any number of calls may be in
// flight at once.
type Client struct {
	baseURL   string
	creds     CredentialSource
	timeout   time.Duration
	userAgent string

	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
	reqlog     *requestlog.Log
	tracer     trace.Tracer

	cache        *responseCache
	cacheTTL     time.Duration
	cacheMaxSize int
}

// NewClient creates a gateway for the API rooted at baseURL. A nil
// CredentialSource makes the client anonymous: no authorization header
// is ever attached and a 401/403 terminates nothing.
func NewClient(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		creds:        creds,
		timeout:      15 * time.Second,
		userAgent:    "atlas-go",
		logger:       slog.Default(),
		cacheMaxSize: 256,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}
	if c.cacheTTL > 0 {
		c.cache = newResponseCache(c.cacheTTL, c.cacheMaxSize)
	}
	c.tracer = otel.Tracer("atlas")

	return c
}

// Request performs one call against the protected API and returns the
// raw response body. The endpoint path is relative to the API root.
// A nil options value means a plain GET.
//
// Every failure is classified: *AuthInvalidError (session already
// terminated), *APIError (server rejected the request), or
// *NetworkError (request never completed). No failure is ever silent.
func (c *Client) Request(ctx context.Context, path string, opts *RequestOptions) (json.RawMessage, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	credential := ""
	if c.creds != nil {
		credential = c.creds.Credential()
	}
	return c.do(ctx, path, opts, credential, true)
}

// Get performs a GET and unmarshals the response into result (skipped
// when result is nil).
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.call(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST with a JSON body and unmarshals the response
// into result (skipped when result is nil).
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, http.MethodPost, path, body, result)
}

// Put performs a PUT with a JSON body and unmarshals the response into
// result (skipped when result is nil).
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.call(ctx, http.MethodPut, path, body, result)
}

// Delete performs a DELETE, discarding any response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

// call wraps Request with JSON decoding of the response.
func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	raw, err := c.Request(ctx, path, &RequestOptions{Method: method, Body: body})
	if err != nil {
		return err
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// do performs the HTTP request and classifies the response.
// invalidateOnReject controls whether a 401/403 terminates the session;
// it is false only for the anonymous login call, where a rejection means
// bad credentials rather than an expired session.
func (c *Client) do(ctx context.Context, path string, opts *RequestOptions, credential string, invalidateOnReject bool) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "atlas.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("atlas.request_id", requestID),
		),
	)
	defer span.End()

	cacheable := c.cache != nil && method == http.MethodGet && opts.Body == nil
	var key uint64
	if cacheable {
		key = cacheKey(method, path, credential)
		if body, ok := c.cache.get(key); ok {
			if c.metrics != nil {
				c.metrics.CacheHitsTotal.Inc()
			}
			span.SetAttributes(attribute.Bool("atlas.cache_hit", true))
			span.SetStatus(codes.Ok, "")
			if c.reqlog != nil {
				c.reqlog.Append(requestlog.Record{
					Time:       start.UTC(),
					RequestID:  requestID,
					Method:     method,
					Path:       path,
					Status:     http.StatusOK,
					DurationMs: time.Since(start).Milliseconds(),
					Cached:     true,
				})
			}
			return body, nil
		}
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if opts.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+credential)
	}
	httpReq.Header.Set("X-Request-Id", requestID)
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		nerr := &NetworkError{Cause: err}
		c.finish(span, method, path, requestID, 0, start, nerr)
		return nil, nerr
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		nerr := &NetworkError{Cause: fmt.Errorf("read response body: %w", err)}
		c.finish(span, method, path, requestID, httpResp.StatusCode, start, nerr)
		return nil, nerr
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		if invalidateOnReject && c.creds != nil {
			// The one place the gateway mutates session state: it never
			// sets a credential, only clears one.
			c.creds.Invalidate()
			c.logger.Warn("authorization rejected, session terminated",
				"status", httpResp.StatusCode,
				"path", path,
			)
		}
		if c.metrics != nil {
			c.metrics.AuthFailuresTotal.Inc()
		}
		aerr := &AuthInvalidError{StatusCode: httpResp.StatusCode, RequestID: requestID}
		c.finish(span, method, path, requestID, httpResp.StatusCode, start, aerr)
		return nil, aerr

	case httpResp.StatusCode < 200 || httpResp.StatusCode >= 300:
		var errBody apiErrorBody
		message := ""
		if jsonErr := json.Unmarshal(respBody, &errBody); jsonErr == nil {
			message = errBody.Message
		}
		if message == "" {
			message = http.StatusText(httpResp.StatusCode)
		}
		aerr := &APIError{StatusCode: httpResp.StatusCode, Message: message, RequestID: requestID}
		c.finish(span, method, path, requestID, httpResp.StatusCode, start, aerr)
		return nil, aerr

	default:
		if cacheable {
			c.cache.put(key, append(json.RawMessage(nil), respBody...))
		}
		c.finish(span, method, path, requestID, httpResp.StatusCode, start, nil)
		return respBody, nil
	}
}

// finish records the outcome of a call: metrics, span status, request
// log, and a debug line.
func (c *Client) finish(span trace.Span, method, path, requestID string, status int, start time.Time, err error) {
	duration := time.Since(start)

	if c.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = errorKind(err)
		}
		c.metrics.RequestsTotal.WithLabelValues(method, outcome).Inc()
		c.metrics.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	}

	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorKind(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if c.reqlog != nil {
		c.reqlog.Append(requestlog.Record{
			Time:       start.UTC(),
			RequestID:  requestID,
			Method:     method,
			Path:       path,
			Status:     status,
			DurationMs: duration.Milliseconds(),
			Error:      errorKind(err),
		})
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)
}
