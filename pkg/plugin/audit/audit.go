// Package audit records plugin lifecycle and tool-invocation events
// to an append-only log, redacting well-known sensitive keys before
// they ever reach disk (spec §4.10).
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// EventKind identifies the kind of audited action.
type EventKind string

const (
	EventStart         EventKind = "start"
	EventStop          EventKind = "stop"
	EventRestart       EventKind = "restart"
	EventConfigUpdate  EventKind = "config_update"
	EventToolInvoke    EventKind = "tool_invoke"
	EventHealthCheck   EventKind = "health_check"
	EventSecretAccess  EventKind = "secret_access"
)

// sensitiveKeys is the well-known set of argument/metadata keys whose
// values are replaced with "[REDACTED]" before an event is written.
// Matching is a case-insensitive substring match on the key.
var sensitiveKeys = []string{
	"authorization", "token", "password", "passwd", "pwd",
	"secret", "api_key", "apikey", "cookie", "session", "private_key",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Redact returns a copy of fields with sensitive values replaced.
func Redact(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

// Event is a single audited action.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      EventKind      `json:"kind"`
	Plugin    string         `json:"plugin"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger writes audited events to an append-only destination,
// rotating the file once it exceeds maxSizeBytes or maxAge elapses
// since it was opened.
type Logger struct {
	mu      sync.Mutex
	writer  io.Writer
	path    string
	opened  time.Time
	size    int64
	maxSize int64
	maxAge  time.Duration
}

// defaultMaxSize and defaultMaxAge bound a single audit log file
// before it is rotated to "<path>.<timestamp>".
const (
	defaultMaxSize = 10 * 1024 * 1024
	defaultMaxAge  = 7 * 24 * time.Hour
)

// NewFileLogger opens (or creates) an append-only audit log at path.
func NewFileLogger(path string) (*Logger, error) {
	f, info, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %q: %w", path, err)
	}
	return &Logger{
		writer:  f,
		path:    path,
		opened:  time.Now(),
		size:    info.Size(),
		maxSize: defaultMaxSize,
		maxAge:  defaultMaxAge,
	}, nil
}

func openAppend(path string) (*os.File, os.FileInfo, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

// NewWriterLogger wraps an arbitrary writer (e.g. os.Stdout, a test
// buffer) without rotation.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{writer: w}
}

// Record writes an audit event, redacting its fields first.
func (l *Logger) Record(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.Fields = Redact(e.Fields)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshaling event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path != "" && l.shouldRotateLocked() {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	n, err := l.writer.Write(data)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("audit: writing event: %w", err)
	}
	return nil
}

func (l *Logger) shouldRotateLocked() bool {
	if l.maxSize > 0 && l.size >= l.maxSize {
		return true
	}
	if l.maxAge > 0 && !l.opened.IsZero() && time.Since(l.opened) >= l.maxAge {
		return true
	}
	return false
}

func (l *Logger) rotateLocked() error {
	if closer, ok := l.writer.(io.Closer); ok {
		_ = closer.Close()
	}
	rotated := fmt.Sprintf("%s.%s", l.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(l.path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("audit: rotating %q: %w", l.path, err)
	}
	f, info, err := openAppend(l.path)
	if err != nil {
		return fmt.Errorf("audit: reopening %q after rotation: %w", l.path, err)
	}
	l.writer = f
	l.opened = time.Now()
	l.size = info.Size()
	return nil
}

// Close closes the underlying writer if it is closeable.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
