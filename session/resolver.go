package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotAuthorized is returned by a Resolver when the remote identity
// endpoint rejects the credential.
var ErrNotAuthorized = errors.New("credential not authorized")

// Resolver exchanges a credential for the identity it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}

// HTTPResolver resolves identities against the fixed profile endpoint of
// the remote API. Any non-success status is treated as "credential
// invalid"; transport failures are returned as wrapped errors.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ResolverOption is a functional option for configuring an HTTPResolver.
type ResolverOption func(*HTTPResolver)

// WithResolverHTTPClient sets a custom http.Client for profile requests.
func WithResolverHTTPClient(hc *http.Client) ResolverOption {
	return func(r *HTTPResolver) {
		r.httpClient = hc
	}
}

// WithResolverLogger sets the logger. Defaults to slog.Default().
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *HTTPResolver) {
		r.logger = logger
	}
}

// NewHTTPResolver creates a resolver for the API rooted at baseURL.
func NewHTTPResolver(baseURL string, opts ...ResolverOption) *HTTPResolver {
	r := &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return r
}

// Resolve fetches the profile for the given credential.
func (r *HTTPResolver) Resolve(ctx context.Context, credential string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		r.logger.Debug("profile request rejected", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: profile endpoint returned %d", ErrNotAuthorized, resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decode profile response: %w", err)
	}

	return &identity, nil
}

// Compile-time interface verification.
var _ Resolver = (*HTTPResolver)(nil)
