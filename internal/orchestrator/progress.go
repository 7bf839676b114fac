package orchestrator

import (
	"fmt"
	"sync"
	"time"
)

// DefaultEventBuffer is the progress channel capacity.
const DefaultEventBuffer = 64

// EventKind identifies a progress event.
type EventKind string

const (
	EventRunStarted       EventKind = "run_started"
	EventSectionStarted   EventKind = "section_started"
	EventContextFetched   EventKind = "context_fetched"
	EventSectionRetried   EventKind = "section_retried"
	EventSectionSucceeded EventKind = "section_succeeded"
	EventSectionFailed    EventKind = "section_failed"
	EventRunCompleted     EventKind = "run_completed"
)

// ProgressEvent is emitted while a run executes.
type ProgressEvent struct {
	Kind    EventKind
	RunID   string
	Section string
	Attempt int
	Message string
	At      time.Time
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch   chan ProgressEvent
	once sync.Once
	mu   sync.RWMutex
	done bool
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of
// the given size (DefaultEventBuffer when size <= 0).
func NewProgressReporter(size int) *ProgressReporter {
	if size <= 0 {
		size = DefaultEventBuffer
	}
	return &ProgressReporter{
		ch: make(chan ProgressEvent, size),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full or closed, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.done {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. It is safe to call more than once.
func (pr *ProgressReporter) Close() {
	pr.once.Do(func() {
		pr.mu.Lock()
		pr.done = true
		close(pr.ch)
		pr.mu.Unlock()
	})
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Kind {
	case EventRunStarted:
		return fmt.Sprintf("[%s] run started", shortID(event.RunID))
	case EventSectionStarted:
		return fmt.Sprintf("  ○ %s (pending)", event.Section)
	case EventContextFetched:
		return fmt.Sprintf("  ● %s... (%s)", event.Section, event.Message)
	case EventSectionRetried:
		return fmt.Sprintf("  ↻ %s retry %d: %s", event.Section, event.Attempt, event.Message)
	case EventSectionSucceeded:
		return fmt.Sprintf("  ✓ %s complete", event.Section)
	case EventSectionFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Section, event.Message)
	case EventRunCompleted:
		return fmt.Sprintf("[%s] run completed: %s", shortID(event.RunID), event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown event)", event.Section)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
