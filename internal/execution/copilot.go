package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agentx-dev/modelgate/internal/utils"
	copilot "github.com/github/copilot-sdk/go"
)

// CopilotEngine sends queries through the GitHub Copilot SDK. Each query
// runs in its own session so answers never see earlier conversation turns.
type CopilotEngine struct {
	defaultModelID string

	client copilotClient

	startOnce sync.Once
	startErr  error
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
//   - defaultModelID - used if the request has no model ID. Can be blank, which means the copilot
//     CLI will choose its own fallback model.
func NewCopilotEngineBuilder(defaultModelID string, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	copilotOptions := &copilot.ClientOptions{
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	var client copilotClient
	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	return &CopilotEngineBuilder{
		engine: &CopilotEngine{
			defaultModelID: defaultModelID,
			client:         client,
		},
	}
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

// Initialize sets up the Copilot client
func (e *CopilotEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Query runs one prompt in a fresh Copilot session.
func (e *CopilotEngine) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if req == nil {
		return nil, errors.New("nil req was passed to CopilotEngine.Query")
	}
	if req.Timeout <= 0 {
		return nil, errors.New("positive Timeout is required")
	}

	e.startOnce.Do(func() {
		// the client's autostart runs into issues when started from separate goroutines
		e.startErr = e.client.Start(ctx)
	})
	if e.startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", e.startErr)
	}

	modelID := e.defaultModelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	start := time.Now()

	cfg := &copilot.SessionConfig{
		Model:               modelID,
		OnPermissionRequest: allowAllTools,
	}
	if req.SystemPrompt != "" {
		cfg.SystemMessage = &copilot.SystemMessageConfig{
			Mode:    "replace",
			Content: req.SystemPrompt,
		}
	}

	session, err := e.client.CreateSession(ctx, cfg)
	if err != nil {
		// a model that can't open a session still produces a failed outcome
		return &QueryResponse{
			ModelID:  modelID,
			Duration: time.Since(start),
			ErrorMsg: fmt.Sprintf("failed to create session: %v", err),
		}, nil
	}

	eventsCollector := NewSessionEventsCollector()

	unsubscribe := session.On(eventsCollector.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: req.Prompt,
	})

	var errMsg string
	switch {
	case err != nil:
		errMsg = err.Error()
	case eventsCollector.ErrorMessage() != "":
		errMsg = eventsCollector.ErrorMessage()
	}

	return &QueryResponse{
		Output:    joinStrings(eventsCollector.OutputParts()),
		Events:    eventsCollector.SessionEvents(),
		ModelID:   modelID,
		Duration:  time.Since(start),
		ErrorMsg:  errMsg,
		Success:   errMsg == "",
		SessionID: session.SessionID(),
	}, nil
}

// Shutdown cleans up resources
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue cleanup
		slog.Info("failed to stop client", "error", err)
	}
	return nil
}

func joinStrings(parts []string) string {
	var builder strings.Builder
	for _, p := range parts {
		builder.WriteString(p)
	}
	return builder.String()
}

func allowAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	// value for 'Kind' came from the permissions_test.go in the Copilot SDK.
	return copilot.PermissionRequestResult{Kind: "approved"}, nil
}
