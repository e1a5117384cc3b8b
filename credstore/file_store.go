package credstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// credentialRecord is the on-disk shape of the stored credential.
type credentialRecord struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// FileStore persists the credential in a single JSON file.
// Writes are atomic (write-tmp-then-rename) and guarded by a flock for
// cross-process safety plus a mutex for in-process safety. The file is
// kept at 0600 so no other local user can read the token.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a FileStore for the given file path.
// A nil logger defaults to slog.Default().
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Load reads and parses the credential file.
// A missing file is not an error: it returns "".
// Warns if the existing file has permissions more open than 0600.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &StorageError{Op: "read", Err: err}
	}

	// Check file permissions and warn if too open.
	// Skip on Windows where Unix file permission bits are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 { // group or other has access
				s.logger.Warn("credential file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", &StorageError{Op: "read", Err: fmt.Errorf("parse credential file: %w", err)}
	}

	return rec.Token, nil
}

// Save writes the credential to disk atomically.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Ensure the parent directory exists (0700)
//  3. Acquire flock on path+".lock"
//  4. Marshal the record as indented JSON
//  5. Write to path+".tmp" with 0600 permissions
//  6. Fsync the temp file
//  7. Rename path+".tmp" -> path
//  8. Release flock and mutex
func (s *FileStore) Save(credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &StorageError{Op: "write", Err: fmt.Errorf("create directory: %w", err)}
	}

	// Acquire cross-process file lock.
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "write", Err: fmt.Errorf("open lock file: %w", err)}
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return &StorageError{Op: "write", Err: fmt.Errorf("acquire file lock: %w", err)}
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	rec := credentialRecord{
		Token:   credential,
		SavedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &StorageError{Op: "write", Err: fmt.Errorf("marshal credential: %w", err)}
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	// Explicitly ensure 0600 permissions after rename as a safety net.
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on credential file", "error", err)
	}

	s.logger.Debug("credential saved", "path", s.path)
	return nil
}

// Delete removes the credential file. A missing file is not an error.
func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// cleanup closes and removes the temp file on error.
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to credential file: %w", err)
	}
	return nil
}

// Path returns the configured file path.
func (s *FileStore) Path() string {
	return s.path
}

// Compile-time interface verification.
var _ Store = (*FileStore)(nil)
