package credstore

import "sync"

// MemoryStore keeps the credential in process memory only.
// Thread-safe. Used in tests and by embedders that opt out of disk
// persistence; the session will not survive a restart.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored credential, or "" when nothing is stored.
func (s *MemoryStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save replaces the stored credential.
func (s *MemoryStore) Save(credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = credential
	return nil
}

// Delete removes the stored credential.
func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// Compile-time interface verification.
var _ Store = (*MemoryStore)(nil)
