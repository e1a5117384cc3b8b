// Package requestlog appends one JSON Lines record per completed gateway
// call. The log is a local audit trail for debugging client traffic; it
// is best-effort and never fails the request that produced a record.
package requestlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultMaxBytes is the size at which the log rotates to <path>.1.
const DefaultMaxBytes = 10 * 1024 * 1024

// Record is one completed gateway call.
type Record struct {
	// Time is when the call was dispatched (UTC).
	Time time.Time `json:"time"`
	// RequestID is the X-Request-Id attached to the call.
	RequestID string `json:"request_id"`
	// Method is the HTTP method.
	Method string `json:"method"`
	// Path is the endpoint path relative to the API root.
	Path string `json:"path"`
	// Status is the HTTP status code, 0 when the call never completed.
	Status int `json:"status"`
	// DurationMs is the wall-clock duration in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// Error is the error kind for failed calls, empty on success.
	Error string `json:"error,omitempty"`
	// Cached marks responses served from the client cache.
	Cached bool `json:"cached,omitempty"`
}

// Log is an append-only JSON Lines file with single-level size rotation.
// Thread-safe.
type Log struct {
	mu       sync.Mutex
	path     string
	f        *os.File
	size     int64
	maxBytes int64
	logger   *slog.Logger
}

// Option is a functional option for configuring a Log.
type Option func(*Log)

// WithMaxBytes sets the rotation threshold. Defaults to DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(l *Log) {
		l.maxBytes = n
	}
}

// WithLogger sets the logger used for write failures. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// Open opens (or creates) the request log at path with 0600 permissions.
func Open(path string, opts ...Option) (*Log, error) {
	l := &Log{
		path:     path,
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open request log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat request log: %w", err)
	}

	l.f = f
	l.size = info.Size()
	return l, nil
}

// Append writes one record. Failures are logged and swallowed so a full
// disk never breaks the gateway.
func (l *Log) Append(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		l.logger.Warn("failed to encode request log record", "error", err)
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size+int64(len(data)) > l.maxBytes {
		l.rotateLocked()
	}

	n, err := l.f.Write(data)
	l.size += int64(n)
	if err != nil {
		l.logger.Warn("failed to write request log record", "path", l.path, "error", err)
	}
}

// rotateLocked renames the log to <path>.1 (replacing any previous one)
// and reopens a fresh file. Must be called with the lock held.
func (l *Log) rotateLocked() {
	_ = l.f.Close()
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		l.logger.Warn("failed to rotate request log", "path", l.path, "error", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		l.logger.Warn("failed to reopen request log", "path", l.path, "error", err)
		// Keep the closed handle; subsequent writes will fail and be logged.
		return
	}
	l.f = f
	l.size = 0
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Path returns the configured file path.
func (l *Log) Path() string {
	return l.path
}
