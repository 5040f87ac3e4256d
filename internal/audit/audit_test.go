package audit

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAuditLogger_LogExport(t *testing.T) {
	logger := NewLogger(100, nil)

	logger.LogExport("lake.hvbackup", true, 42, nil, 100*time.Millisecond)

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.EventType != EventTypeExport {
		t.Fatalf("expected event type %s, got %s", EventTypeExport, event.EventType)
	}

	if event.File != "lake.hvbackup" {
		t.Fatalf("expected file lake.hvbackup, got %s", event.File)
	}

	if !event.Encrypted {
		t.Fatal("expected encrypted to be true")
	}

	if event.Records != 42 {
		t.Fatalf("expected 42 records, got %d", event.Records)
	}

	if !event.Success {
		t.Fatal("expected success to be true")
	}
}

func TestAuditLogger_LogImport(t *testing.T) {
	logger := NewLogger(100, nil)

	logger.LogImport(EventTypeImport, "lake.hvbackup.json", false, 10, 2, 0, nil, 50*time.Millisecond)

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.EventType != EventTypeImport {
		t.Fatalf("expected event type %s, got %s", EventTypeImport, event.EventType)
	}

	if event.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", event.Skipped)
	}
}

func TestAuditLogger_LogImportWithFailures(t *testing.T) {
	logger := NewLogger(100, nil)

	logger.LogImport(EventTypeWatch, "in.hvbackup", true, 9, 0, 3, nil, time.Millisecond)

	event := logger.Events()[0]
	if event.Success {
		t.Fatal("expected success false when records failed")
	}
	if event.Failures != 3 {
		t.Fatalf("expected 3 failures, got %d", event.Failures)
	}
}

func TestAuditLogger_LogExportError(t *testing.T) {
	logger := NewLogger(100, nil)

	logger.LogExport("", false, 0, errors.New("store unavailable"), time.Millisecond)

	event := logger.Events()[0]
	if event.Success {
		t.Fatal("expected success false")
	}
	if event.Error != "store unavailable" {
		t.Fatalf("unexpected error text: %s", event.Error)
	}
}

func TestAuditLogger_MaxEvents(t *testing.T) {
	logger := NewLogger(5, nil)

	for i := 0; i < 10; i++ {
		logger.LogExport(fmt.Sprintf("backup-%d.hvbackup", i), false, i, nil, time.Millisecond)
	}

	events := logger.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 retained events, got %d", len(events))
	}

	// Oldest events are dropped first.
	if events[0].File != "backup-5.hvbackup" {
		t.Fatalf("expected oldest retained event backup-5, got %s", events[0].File)
	}
}

type captureWriter struct {
	events []*Event
}

func (w *captureWriter) WriteEvent(event *Event) error {
	w.events = append(w.events, event)
	return nil
}

func TestAuditLogger_ForwardsToWriter(t *testing.T) {
	writer := &captureWriter{}
	logger := NewLogger(100, writer)

	logger.LogExport("a.hvbackup", false, 1, nil, time.Millisecond)
	logger.LogImport(EventTypeImport, "a.hvbackup", false, 1, 0, 0, nil, time.Millisecond)

	if len(writer.events) != 2 {
		t.Fatalf("expected writer to receive 2 events, got %d", len(writer.events))
	}
}

type failingWriter struct{}

func (w *failingWriter) WriteEvent(event *Event) error {
	return errors.New("sink down")
}

func TestAuditLogger_WriterFailureNotFatal(t *testing.T) {
	logger := NewLogger(100, &failingWriter{})

	logger.LogExport("a.hvbackup", false, 1, nil, time.Millisecond)

	if len(logger.Events()) != 1 {
		t.Fatal("event must be retained even when the writer fails")
	}
}
