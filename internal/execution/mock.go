package execution

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agentx-dev/modelgate/internal/tokens"
	copilot "github.com/github/copilot-sdk/go"
)

// MockResponder produces the mock answer for a request. A non-nil error is
// reported as a failed query.
type MockResponder func(req *QueryRequest) (string, error)

// MockEngine answers every query locally and deterministically.
type MockEngine struct {
	respond MockResponder
	calls   atomic.Int64
}

// NewMockEngine creates a new mock engine
func NewMockEngine() *MockEngine {
	return &MockEngine{respond: echoResponder}
}

// NewMockEngineWithResponder creates a mock engine that answers with respond.
func NewMockEngineWithResponder(respond MockResponder) *MockEngine {
	return &MockEngine{respond: respond}
}

func echoResponder(req *QueryRequest) (string, error) {
	return fmt.Sprintf("Mock response for: %s", req.Prompt), nil
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

// Calls is the number of queries answered so far.
func (m *MockEngine) Calls() int64 {
	return m.calls.Load()
}

func (m *MockEngine) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls.Add(1)
	start := time.Now()

	output, err := m.respond(req)
	resp := &QueryResponse{
		Events:   []copilot.SessionEvent{},
		ModelID:  req.ModelID,
		Duration: time.Since(start),
	}
	if err != nil {
		resp.ErrorMsg = err.Error()
		return resp, nil
	}

	resp.Output = output
	resp.TokensUsed = tokens.Exchange(nil, req.SystemPrompt, req.Prompt, output)
	resp.Success = true
	return resp, nil
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}
