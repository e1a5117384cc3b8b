// Package session owns the client's authentication state: the bearer
// credential, the identity it resolves to, and the lifecycle between them.
package session

// Status is the session lifecycle state.
type Status string

const (
	// StatusInitializing holds from construction until the persisted
	// credential has been read.
	StatusInitializing Status = "initializing"

	// StatusUnauthenticated means no credential is held; waiting for Login.
	StatusUnauthenticated Status = "unauthenticated"

	// StatusResolving means a credential is held and its identity
	// resolution is in flight.
	StatusResolving Status = "resolving"

	// StatusAuthenticated means a credential and its resolved identity
	// are both held.
	StatusAuthenticated Status = "authenticated"

	// StatusInvalid is the transient trigger used by Invalidate. It
	// collapses into the logout transition before the store lock is
	// released and is never visible in a Snapshot.
	StatusInvalid Status = "invalid"
)

// Identity is the user profile resolved from a valid credential.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Session is the read-only aggregate exposed to consumers.
// Identity is non-nil if and only if Status is StatusAuthenticated.
type Session struct {
	// Credential is the current bearer token, "" when none is held.
	Credential string
	// Identity is the resolved profile, nil unless authenticated.
	Identity *Identity
	// Status is the current lifecycle state.
	Status Status
	// Err is the last login or resolution failure message, "" when clear.
	Err string
}

// Authenticated reports whether the session holds a resolved identity.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Settled reports whether the session has reached a stable state,
// i.e. it is neither initializing nor resolving.
func (s Session) Settled() bool {
	return s.Status != StatusInitializing && s.Status != StatusResolving
}
