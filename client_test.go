package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeCreds is a controllable CredentialSource.
type fakeCreds struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (f *fakeCreds) Credential() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCreds) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.invalidated++
}

func (f *fakeCreds) set(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeCreds) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}

func TestRequest_AttachesBearerHeader(t *testing.T) {
	t.Parallel()

	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	creds := &fakeCreds{token: "tok-1"}
	client := NewClient(server.URL, creds, WithLogger(testLogger()))

	raw, err := client.Request(context.Background(), "/companies", nil)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-1")
	}
	if gotRequestID == "" {
		t.Error("expected an X-Request-Id header")
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("body = %s", raw)
	}
}

func TestRequest_NoCredentialNoAuthHeader(t *testing.T) {
	t.Parallel()

	var sawAuthHeader atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			sawAuthHeader.Store(true)
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	for _, creds := range []CredentialSource{nil, &fakeCreds{}} {
		client := NewClient(server.URL, creds, WithLogger(testLogger()))
		if _, err := client.Request(context.Background(), "/companies", nil); err != nil {
			t.Fatalf("Request() error: %v", err)
		}
	}
	if sawAuthHeader.Load() {
		t.Error("authorization header sent without a credential")
	}
}

func TestRequest_FreshCredentialPerCall(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	creds := &fakeCreds{token: "tok-a"}
	client := NewClient(server.URL, creds, WithLogger(testLogger()))

	if _, err := client.Request(context.Background(), "/companies", nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	creds.set("tok-b")
	if _, err := client.Request(context.Background(), "/companies", nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"Bearer tok-a", "Bearer tok-b"}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("call %d Authorization = %q, want %q", i, seen[i], w)
		}
	}
}

func TestRequest_AuthRejectionForcesLogout(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"token expired"}`, status)
			}))
			defer server.Close()

			creds := &fakeCreds{token: "tok-1"}
			client := NewClient(server.URL, creds, WithLogger(testLogger()))

			_, err := client.Request(context.Background(), "/companies", nil)
			if !errors.Is(err, ErrAuthInvalid) {
				t.Fatalf("Request() error = %v, want ErrAuthInvalid", err)
			}

			var aerr *AuthInvalidError
			if !errors.As(err, &aerr) {
				t.Fatalf("error type = %T, want *AuthInvalidError", err)
			}
			if aerr.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", aerr.StatusCode, status)
			}
			if creds.invalidations() != 1 {
				t.Errorf("Invalidate() called %d times, want 1", creds.invalidations())
			}
			if creds.Credential() != "" {
				t.Errorf("credential still held after rejection: %q", creds.Credential())
			}
		})
	}
}

func TestRequest_APIErrorCarriesServerMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"name is required"}`)
	}))
	defer server.Close()

	creds := &fakeCreds{token: "tok-1"}
	client := NewClient(server.URL, creds, WithLogger(testLogger()))

	_, err := client.Request(context.Background(), "/companies", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"industry": "rail"},
	})
	if !errors.Is(err, ErrAPIFailure) {
		t.Fatalf("Request() error = %v, want ErrAPIFailure", err)
	}

	var aerr *APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if aerr.Message != "name is required" {
		t.Errorf("Message = %q, want server message", aerr.Message)
	}
	if aerr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", aerr.StatusCode)
	}
	if creds.invalidations() != 0 {
		t.Error("non-authorization failure must not terminate the session")
	}
}

func TestRequest_APIErrorFallsBackToStatusText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>oops</html>", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, &fakeCreds{token: "tok-1"}, WithLogger(testLogger()))

	_, err := client.Request(context.Background(), "/companies", nil)
	var aerr *APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if aerr.Message != http.StatusText(http.StatusBadGateway) {
		t.Errorf("Message = %q, want status text fallback", aerr.Message)
	}
}

func TestRequest_NetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	creds := &fakeCreds{token: "tok-1"}
	client := NewClient(server.URL, creds, WithLogger(testLogger()))

	_, err := client.Request(context.Background(), "/companies", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Request() error = %v, want ErrNetwork", err)
	}
	if creds.invalidations() != 0 {
		t.Error("transport failure must not terminate the session")
	}
	if creds.Credential() != "tok-1" {
		t.Error("credential must survive a transport failure")
	}
}

func TestRequest_ContentTypeDefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var contentTypes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		contentTypes = append(contentTypes, r.Header.Get("Content-Type"))
		mu.Unlock()
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithLogger(testLogger()))

	// Body-carrying call gets the JSON content type by default.
	if _, err := client.Request(context.Background(), "/companies", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"name": "Acme"},
	}); err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	// A caller-supplied Content-Type wins.
	header := http.Header{}
	header.Set("Content-Type", "application/vnd.atlas+json")
	if _, err := client.Request(context.Background(), "/companies", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"name": "Acme"},
		Header: header,
	}); err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	// A bare GET gets no content type at all.
	if _, err := client.Request(context.Background(), "/companies", nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"application/json", "application/vnd.atlas+json", ""}
	for i, w := range want {
		if contentTypes[i] != w {
			t.Errorf("call %d Content-Type = %q, want %q", i, contentTypes[i], w)
		}
	}
}

func TestGet_DecodesResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1,"name":"Acme"},{"id":2,"name":"Initech"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithLogger(testLogger()))

	var companies []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := client.Get(context.Background(), "/companies", &companies); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(companies) != 2 || companies[1].Name != "Initech" {
		t.Errorf("companies = %+v", companies)
	}
}

func TestClient_CacheServesRepeatGET(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"n":1}`)
	}))
	defer server.Close()

	creds := &fakeCreds{token: "tok-1"}
	client := NewClient(server.URL, creds,
		WithLogger(testLogger()),
		WithCacheTTL(time.Minute),
	)

	for i := 0; i < 3; i++ {
		if _, err := client.Request(context.Background(), "/companies", nil); err != nil {
			t.Fatalf("Request() error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (cache)", hits.Load())
	}

	// A different credential is a different cache partition.
	creds.set("tok-2")
	if _, err := client.Request(context.Background(), "/companies", nil); err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times after credential change, want 2", hits.Load())
	}

	// Writes are never cached.
	if _, err := client.Request(context.Background(), "/companies", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"name": "Acme"},
	}); err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if _, err := client.Request(context.Background(), "/companies", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"name": "Acme"},
	}); err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if hits.Load() != 4 {
		t.Errorf("server hit %d times after two POSTs, want 4", hits.Load())
	}
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/secret" {
			http.Error(w, "no", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(server.URL, &fakeCreds{token: "tok-1"},
		WithLogger(testLogger()),
		WithMetrics(metrics),
	)

	_, _ = client.Request(context.Background(), "/companies", nil)
	_, _ = client.Request(context.Background(), "/secret", nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "atlas_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			outcome := labelValue(m, "outcome")
			counts[outcome] += m.GetCounter().GetValue()
		}
	}

	if counts["ok"] != 1 {
		t.Errorf("requests_total{outcome=ok} = %v, want 1", counts["ok"])
	}
	if counts["auth_invalid"] != 1 {
		t.Errorf("requests_total{outcome=auth_invalid} = %v, want 1", counts["auth_invalid"])
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestLogin_ReturnsToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("login call must be anonymous")
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode login body: %v", err)
		}
		if req.Username != "ada" || req.Password != "hunter2" {
			t.Errorf("credentials = %q/%q", req.Username, req.Password)
		}
		json.NewEncoder(w).Encode(loginResponse{Token: "tok-new"})
	}))
	defer server.Close()

	creds := &fakeCreds{token: "tok-old"}
	client := NewClient(server.URL, creds, WithLogger(testLogger()))

	token, err := client.Login(context.Background(), "ada", "hunter2")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if token != "tok-new" {
		t.Errorf("token = %q, want tok-new", token)
	}
}

func TestLogin_BadPasswordDoesNotTerminateSession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	creds := &fakeCreds{token: "tok-current"}
	client := NewClient(server.URL, creds, WithLogger(testLogger()))

	_, err := client.Login(context.Background(), "ada", "wrong")
	if !errors.Is(err, ErrAuthInvalid) {
		t.Fatalf("Login() error = %v, want ErrAuthInvalid", err)
	}
	if creds.invalidations() != 0 {
		t.Error("failed login must not invalidate the current session")
	}
	if creds.Credential() != "tok-current" {
		t.Error("current credential must survive a failed login")
	}
}

func TestLogin_EmptyToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithLogger(testLogger()))
	if _, err := client.Login(context.Background(), "ada", "hunter2"); err == nil {
		t.Fatal("expected an error for a tokenless response")
	}
}
