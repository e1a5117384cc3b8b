package atlas

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrAuthInvalid is returned when the server rejects the credential
	// (401 or 403). The session has already been terminated by the time
	// the caller sees it.
	ErrAuthInvalid = errors.New("authorization invalid")

	// ErrAPIFailure is returned when the request reached the server and
	// was rejected for a reason other than authorization.
	ErrAPIFailure = errors.New("api request failed")

	// ErrNetwork is returned when the request never completed.
	ErrNetwork = errors.New("network failure")
)

// AuthInvalidError is returned when the server answers 401 or 403.
// Receiving it means the client has already forced a logout: the session
// store holds no credential anymore and every later call fails the same
// way until a new login.
type AuthInvalidError struct {
	// StatusCode is 401 or 403.
	StatusCode int
	// RequestID is the X-Request-Id the rejected call carried.
	RequestID string
}

// Error returns a human-readable description of the rejection.
func (e *AuthInvalidError) Error() string {
	return fmt.Sprintf("authorization rejected (status %d)", e.StatusCode)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrAuthInvalid).
func (e *AuthInvalidError) Is(target error) bool {
	return target == ErrAuthInvalid
}

// APIError is returned for any non-success, non-authorization response.
type APIError struct {
	// StatusCode is the HTTP status the server answered with.
	StatusCode int
	// Message is the server's error message, or the status text when
	// the body did not carry the expected error shape.
	Message string
	// RequestID is the X-Request-Id the failed call carried.
	RequestID string
}

// Error returns a human-readable description of the failure.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrAPIFailure).
func (e *APIError) Is(target error) bool {
	return target == ErrAPIFailure
}

// NetworkError is returned when the request never completed: host
// unreachable, timeout, cancelled context. The session is untouched.
type NetworkError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error returns a human-readable description of the transport failure.
func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network failure: %v", e.Cause)
	}
	return "network failure"
}

// Unwrap returns the underlying error cause.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrNetwork).
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// errorKind names the error classification for logs and the request log.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthInvalid):
		return "auth_invalid"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrAPIFailure):
		return "api"
	default:
		return "other"
	}
}
