package execution

import (
	"context"
	"fmt"
	"time"

	copilot "github.com/github/copilot-sdk/go"
)

// Engine names accepted by [New].
const (
	EngineCopilot = "copilot-sdk"
	EngineMock    = "mock"
)

// Engine sends evaluation queries to a model.
type Engine interface {
	// Initialize sets up the engine
	Initialize(ctx context.Context) error

	// Query sends one prompt to one model
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// QueryRequest is a single prompt sent to a model.
type QueryRequest struct {
	// ModelID is the deployment to query. Engines fall back to their default when empty.
	ModelID      string
	SystemPrompt string
	Prompt       string
	Timeout      time.Duration
}

// QueryResponse is the outcome of a [QueryRequest]. Failures reported by the
// model or the session end up in ErrorMsg; a non-nil error from
// [Engine.Query] means the request never ran.
type QueryResponse struct {
	Output     string
	Events     []copilot.SessionEvent
	ModelID    string
	Duration   time.Duration
	TokensUsed int
	ErrorMsg   string
	Success    bool
	SessionID  string
}

// ExtractMessages gets all assistant messages from events
func (r *QueryResponse) ExtractMessages() []string {
	var messages []string
	for _, evt := range r.Events {
		if evt.Type == copilot.AssistantMessage {
			if evt.Data.Content != nil {
				messages = append(messages, *evt.Data.Content)
			}
		}
	}
	return messages
}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case EngineCopilot, "":
		return NewCopilotEngineBuilder("", nil).Build(), nil
	case EngineMock:
		return NewMockEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want %s or %s)", name, EngineCopilot, EngineMock)
	}
}
