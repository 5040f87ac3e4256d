// Package audit keeps a bounded in-memory trail of backup operations and
// forwards each event to a pluggable writer.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeExport represents a backup export.
	EventTypeExport EventType = "export"
	// EventTypeImport represents a backup import.
	EventTypeImport EventType = "import"
	// EventTypeWatch represents an auto-import triggered by the
	// filesystem watcher.
	EventTypeWatch EventType = "watch_import"
)

// Event represents a single audit log event.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	EventType EventType     `json:"event_type"`
	File      string        `json:"file,omitempty"`
	Encrypted bool          `json:"encrypted"`
	Records   int           `json:"records,omitempty"`
	Skipped   int           `json:"skipped,omitempty"`
	Failures  int           `json:"failures,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(event *Event) error

	// LogExport records one export.
	LogExport(file string, encrypted bool, records int, err error, duration time.Duration)

	// LogImport records one import.
	LogImport(eventType EventType, file string, encrypted bool, records, skipped, failures int, err error, duration time.Duration)

	// Events returns a copy of the retained events.
	Events() []*Event
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu        sync.Mutex
	events    []*Event
	maxEvents int
	writer    EventWriter
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *Event) error
}

// NewLogger creates a new audit logger. A nil writer falls back to JSON on
// stdout.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}

	return &auditLogger{
		events:    make([]*Event, 0, maxEvents),
		maxEvents: maxEvents,
		writer:    writer,
	}
}

// Log records an audit event.
func (l *auditLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The in-memory trail is the source of truth; a failing writer must
	// not block the operation being audited.
	if l.writer != nil {
		_ = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)

	// Maintain max events limit
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// LogExport records one export.
func (l *auditLogger) LogExport(file string, encrypted bool, records int, err error, duration time.Duration) {
	event := &Event{
		Timestamp: time.Now(),
		EventType: EventTypeExport,
		File:      file,
		Encrypted: encrypted,
		Records:   records,
		Success:   err == nil,
		Duration:  duration,
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogImport records one import, whether started manually or by the watcher.
func (l *auditLogger) LogImport(eventType EventType, file string, encrypted bool, records, skipped, failures int, err error, duration time.Duration) {
	event := &Event{
		Timestamp: time.Now(),
		EventType: eventType,
		File:      file,
		Encrypted: encrypted,
		Records:   records,
		Skipped:   skipped,
		Failures:  failures,
		Success:   err == nil && failures == 0,
		Duration:  duration,
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// Events returns a copy of the retained events.
func (l *auditLogger) Events() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*Event, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter writes events to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	fmt.Printf("%s\n", string(data))
	return nil
}
