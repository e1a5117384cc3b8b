package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atlashq/atlas-go/credstore"
)

// Messages surfaced through Session.Err.
const (
	msgExpired     = "your session has expired, please sign in again"
	msgInvalidated = "your session was rejected by the server, please sign in again"
)

// Store is the single source of truth for the current session. It owns
// the credential and the resolved identity, persists the credential
// through a credstore.Store, and notifies subscribers after every
// observable transition.
//
// All public operations are safe for concurrent use. Login and Logout
// never return errors; failures surface through the Err field of the
// snapshot and a transition to StatusUnauthenticated.
type Store struct {
	resolver Resolver
	creds    credstore.Store
	logger   *slog.Logger

	mu           sync.Mutex
	status       Status
	credential   string
	identity     *Identity
	lastErr      string
	persist      bool
	listeners    map[int]func(Session)
	nextListener int

	// Pending notifications, delivered outside the lock in transition
	// order by whichever goroutine observed the queue empty first.
	pending    []notification
	delivering bool

	wg sync.WaitGroup
}

// notification pairs a snapshot with the listeners registered at the
// time of the transition that produced it.
type notification struct {
	snap Session
	fns  []func(Session)
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store in StatusInitializing. Call Start to read the
// persisted credential and settle into the first real state.
func New(resolver Resolver, creds credstore.Store, opts ...Option) *Store {
	s := &Store{
		resolver:  resolver,
		creds:     creds,
		logger:    slog.Default(),
		status:    StatusInitializing,
		persist:   true,
		listeners: make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start reads the persisted credential. With none stored the store
// settles into StatusUnauthenticated; with one stored it enters
// StatusResolving and resolves the identity asynchronously.
//
// A storage read failure is not fatal: the store logs it, continues
// without a persisted credential, and stops persisting for the rest of
// the process lifetime.
func (s *Store) Start(ctx context.Context) {
	cred, err := s.creds.Load()

	s.mu.Lock()
	if err != nil {
		s.logger.Warn("credential storage unavailable, session will not survive a restart", "error", err)
		s.persist = false
		cred = ""
	}
	if cred == "" {
		s.status = StatusUnauthenticated
	} else {
		s.credential = cred
		s.status = StatusResolving
		s.startResolveLocked(ctx, cred)
	}
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Login installs a new credential, persists it, and starts identity
// resolution. Valid whether or not a previous session is active; a
// re-authentication overwrites the old credential and any resolution
// still pending for it is discarded when it completes.
func (s *Store) Login(ctx context.Context, credential string) {
	s.mu.Lock()
	s.credential = credential
	s.identity = nil
	s.lastErr = ""
	s.status = StatusResolving
	s.saveLocked(credential)
	s.startResolveLocked(ctx, credential)
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Logout discards the credential from memory and durable storage and
// settles into StatusUnauthenticated. Idempotent: a second call is a
// no-op beyond clearing any stale error.
func (s *Store) Logout() {
	s.mu.Lock()
	changed := s.clearLocked("")
	var notify func()
	if changed {
		notify = s.notifyLocked()
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Invalidate is the forced-logout trigger used by the request gateway
// when the server rejects the credential. It behaves like Logout but
// records why the session ended so consumers can tell the user.
//
// The intermediate StatusInvalid collapses into the logout transition
// inside the same critical section; no snapshot ever observes it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.status = StatusInvalid
	changed := s.clearLocked(msgInvalidated)
	var notify func()
	if changed {
		notify = s.notifyLocked()
	}
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Snapshot returns the current session aggregate. Synchronous and
// side-effect-free.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Credential returns the currently held bearer token, "" when none.
// Request gateways read this at dispatch time so every call carries the
// freshest credential.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Subscribe registers a listener invoked with the new snapshot after
// every observable transition. The returned function deregisters it and
// is safe to call more than once. Listeners are invoked outside the
// store lock and may call back into the Store.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Settle blocks until the session reaches a stable state (neither
// initializing nor resolving) or the context is cancelled, and returns
// the snapshot it observed.
func (s *Store) Settle(ctx context.Context) Session {
	ch := make(chan Session, 1)
	unsubscribe := s.Subscribe(func(snap Session) {
		if snap.Settled() {
			select {
			case ch <- snap:
			default:
			}
		}
	})
	defer unsubscribe()

	if snap := s.Snapshot(); snap.Settled() {
		return snap
	}

	select {
	case snap := <-ch:
		return snap
	case <-ctx.Done():
		return s.Snapshot()
	}
}

// Close waits for any in-flight identity resolution to finish.
func (s *Store) Close() {
	s.wg.Wait()
}

// startResolveLocked launches identity resolution for the given
// credential. Must be called with the lock held.
func (s *Store) startResolveLocked(ctx context.Context, credential string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		identity, err := s.resolver.Resolve(ctx, credential)
		s.finishResolve(credential, identity, err)
	}()
}

// finishResolve applies a completed resolution. Results are tagged with
// the credential they were resolved for: if the store has moved on to a
// different credential (or out of StatusResolving) in the meantime, the
// result is stale and dropped, so a slow resolution can never overwrite
// a newer login.
func (s *Store) finishResolve(credential string, identity *Identity, err error) {
	s.mu.Lock()
	if s.status != StatusResolving || s.credential != credential {
		s.mu.Unlock()
		s.logger.Debug("discarding stale identity resolution")
		return
	}

	if err != nil {
		s.logger.Warn("identity resolution failed", "error", err)
		s.clearLocked(msgExpired)
	} else {
		s.identity = identity
		s.lastErr = ""
		s.status = StatusAuthenticated
		s.logger.Debug("session authenticated", "identity_id", identity.ID)
	}

	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// clearLocked discards the credential from memory and durable storage,
// clears the identity, records errMsg, and settles into
// StatusUnauthenticated. Returns whether anything observable changed.
// Must be called with the lock held.
func (s *Store) clearLocked(errMsg string) bool {
	changed := s.status != StatusUnauthenticated ||
		s.credential != "" ||
		s.identity != nil ||
		s.lastErr != errMsg

	if s.credential != "" && s.persist {
		if err := s.creds.Delete(); err != nil {
			s.logger.Warn("failed to remove persisted credential", "error", err)
			s.persist = false
		}
	}

	s.credential = ""
	s.identity = nil
	s.lastErr = errMsg
	s.status = StatusUnauthenticated
	return changed
}

// saveLocked persists the credential, degrading to memory-only
// persistence on failure. Must be called with the lock held.
func (s *Store) saveLocked(credential string) {
	if !s.persist {
		return
	}
	if err := s.creds.Save(credential); err != nil {
		s.logger.Warn("failed to persist credential, session will not survive a restart", "error", err)
		s.persist = false
	}
}

// snapshotLocked builds a Session copy. Must be called with the lock held.
func (s *Store) snapshotLocked() Session {
	snap := Session{
		Credential: s.credential,
		Status:     s.status,
		Err:        s.lastErr,
	}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	return snap
}

// notifyLocked queues a notification for the transition just applied
// and returns the function that drains the queue. Call it after
// releasing the lock so listeners can safely call back into the Store.
// Queueing under the lock keeps delivery in transition order even when
// transitions race on different goroutines.
func (s *Store) notifyLocked() func() {
	fns := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.pending = append(s.pending, notification{snap: s.snapshotLocked(), fns: fns})

	if s.delivering {
		// Another goroutine is already draining the queue.
		return func() {}
	}
	s.delivering = true
	return s.deliver
}

// deliver drains the notification queue in order.
func (s *Store) deliver() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.delivering = false
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, fn := range n.fns {
			fn(n.snap)
		}
	}
}
