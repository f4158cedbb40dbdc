package orchestration

import (
	"fmt"
	"io"

	"github.com/agentx-dev/modelgate/internal/spinner"
)

// progressEvery is how often, in completed queries, progress lines are printed.
const progressEvery = 10

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventModelStart    EventType = "model_start"
	EventQueryComplete EventType = "query_complete"
	EventModelComplete EventType = "model_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType EventType
	Model     string
	Done      int
	Total     int
	Cached    bool
	Failed    bool
	// Failures is only set on EventModelComplete.
	Failures int
}

// Line renders the event as a progress line, or "" when the event is not
// worth printing.
func (e ProgressEvent) Line() string {
	switch e.EventType {
	case EventQueryComplete:
		if e.Done%progressEvery != 0 && e.Done != e.Total {
			return ""
		}
		return fmt.Sprintf("[%s] %d/%d queries complete", e.Model, e.Done, e.Total)
	case EventModelComplete:
		if e.Failures > 0 {
			return fmt.Sprintf("[%s] done (%d failed)", e.Model, e.Failures)
		}
		return fmt.Sprintf("[%s] done", e.Model)
	default:
		return ""
	}
}

// PrintProgress writes one line per printable event to w.
func PrintProgress(w io.Writer) ProgressListener {
	return func(event ProgressEvent) {
		if line := event.Line(); line != "" {
			fmt.Fprintln(w, line) //nolint:errcheck
		}
	}
}

// SpinnerProgress shows printable events as the spinner message.
func SpinnerProgress(s *spinner.Spinner) ProgressListener {
	return func(event ProgressEvent) {
		if line := event.Line(); line != "" {
			s.Update(line)
		}
	}
}
