// Package log provides structured event logging.
// This file appends JSON events to log.jsonl.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventIntentStarted        = "intent_started"
	EventIntentSucceeded      = "intent_succeeded"
	EventIntentFailed         = "intent_failed"
	EventValidationFailed     = "validation_failed"
	EventStaleResponseDropped = "stale_response_dropped"
	EventTelemetrySent        = "telemetry_sent"
	EventTelemetryFailed      = "telemetry_failed"
	EventTelemetryThrottled   = "telemetry_throttled"
	EventFeedbackFailed       = "feedback_failed"
	EventSessionReset         = "session_reset"
)

// LogEvent represents a single structured event written to the log.
type LogEvent struct {
	Time        time.Time `json:"time"`
	Event       string    `json:"event"`
	Intent      string    `json:"intent,omitempty"`
	RequestID   string    `json:"request,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Medications []string  `json:"medications,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Status      int       `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	Messages    int       `json:"messages,omitempty"`
	Total       int       `json:"total,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	DurationMs  int64     `json:"duration_ms,omitempty"`
}

// Logger writes append-only JSONL events to a log file. A nil *Logger
// discards every event.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to .medsplain/log.jsonl inside dir.
// Creates the .medsplain/ directory if it does not already exist.
// Does not truncate an existing log file.
func NewLogger(dir string) (*Logger, error) {
	logDir := filepath.Join(dir, ".medsplain")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create .medsplain directory: %w", err)
	}

	return &Logger{
		path: filepath.Join(logDir, "log.jsonl"),
	}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single LogEvent as one JSON line to the log file.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// Thread-safe via mutex.
func (l *Logger) Append(event LogEvent) error {
	if l == nil {
		return nil
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}

	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	if l == nil {
		return []LogEvent{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

// Filter returns the events named name, in log order.
func Filter(events []LogEvent, name string) []LogEvent {
	var out []LogEvent
	for _, e := range events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}
