package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/loocode/loo/internal/complete"
	"github.com/loocode/loo/internal/config"
	"github.com/loocode/loo/internal/editor"
	"github.com/loocode/loo/internal/llm/openrouter"
	"github.com/loocode/loo/internal/session"
	"github.com/loocode/loo/internal/testutil"
)

// fakeProvider returns canned responses and records requests.
type fakeProvider struct {
	requests []*openrouter.ChatRequest
	reply    string
	models   []openrouter.Model
	err      error
}

func (f *fakeProvider) ChatCompletions(ctx context.Context, req *openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &openrouter.ChatResponse{
		Choices: []openrouter.ChatChoice{
			{Message: openrouter.Message{Role: "assistant", Content: f.reply}, FinishReason: "stop"},
		},
		Usage: openrouter.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]openrouter.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

// newTestEngine wires an Engine to a fake provider and a temp store.
func newTestEngine(testingHandle *testing.T, provider *fakeProvider) (*Engine, *bytes.Buffer) {
	testingHandle.Helper()
	workspace := testingHandle.TempDir()
	output := &bytes.Buffer{}

	engine := &Engine{
		configuration: &config.Config{
			OpenRouter: config.OpenRouter{Model: config.DefaultModel, BaseURL: config.DefaultBaseURL, APIKey: "test-key"},
		},
		client:      provider,
		store:       &session.Store{BaseDir: testingHandle.TempDir()},
		files:       complete.NewEngine(workspace),
		out:         output,
		workingDir:  workspace,
		projectHash: session.ProjectHash(workspace),
		sessionID:   "session-test",
	}
	return engine, output
}

// TestChatRoundTrip verifies a user turn reaches the provider with the
// system prompt, updates history, and persists both sides.
func TestChatRoundTrip(testingHandle *testing.T) {
	provider := &fakeProvider{reply: "use a map here"}
	engine, output := newTestEngine(testingHandle, provider)

	done, err := engine.handleEvent(context.Background(), editor.InputEvent{
		Kind: editor.EventUserInput, Text: "review @main.go",
	})
	testutil.RequireNoError(testingHandle, err, "chat turn")
	testutil.RequireFalse(testingHandle, done, "chat keeps the loop running")

	testutil.RequireEqual(testingHandle, len(provider.requests), 1, "one provider call")
	sent := provider.requests[0]
	testutil.RequireEqual(testingHandle, sent.Messages[0].Role, "system", "system prompt first")
	testutil.RequireStringContains(testingHandle, sent.Messages[0].Content, "@path", "prompt explains file references")
	testutil.RequireEqual(testingHandle, sent.Messages[1].Content, "review @main.go", "user text forwarded")

	testutil.RequireEqual(testingHandle, len(engine.history), 2, "user and assistant turns recorded")
	testutil.RequireStringContains(testingHandle, output.String(), "use a map here", "reply rendered")

	records, err := engine.store.Load(engine.projectHash, engine.sessionID)
	testutil.RequireNoError(testingHandle, err, "load persisted session")
	testutil.RequireEqual(testingHandle, len(records), 2, "both sides persisted")
	testutil.RequireEqual(testingHandle, records[1].Role, "assistant", "assistant persisted second")
}

// TestChatHistoryCarried verifies earlier turns are replayed to the
// provider.
func TestChatHistoryCarried(testingHandle *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	engine, _ := newTestEngine(testingHandle, provider)

	for _, text := range []string{"first question", "second question"} {
		_, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventUserInput, Text: text})
		testutil.RequireNoError(testingHandle, err, "chat turn")
	}

	second := provider.requests[1]
	// system + first user + first reply + second user
	testutil.RequireEqual(testingHandle, len(second.Messages), 4, "history replayed")
	testutil.RequireEqual(testingHandle, second.Messages[1].Content, "first question", "earlier turn included")
}

// TestChatProviderError verifies API failures surface without touching
// history.
func TestChatProviderError(testingHandle *testing.T) {
	provider := &fakeProvider{err: &openrouter.APIError{StatusCode: 401, Body: "bad key"}}
	engine, _ := newTestEngine(testingHandle, provider)

	_, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventUserInput, Text: "hello"})
	testutil.RequireError(testingHandle, err, "provider failure propagates")
	testutil.RequireStringContains(testingHandle, err.Error(), "config validate", "error points at configuration")
	testutil.RequireEqual(testingHandle, len(engine.history), 0, "failed turn not recorded")
}

// TestClearCommand verifies /clear drops history and rotates the
// session id.
func TestClearCommand(testingHandle *testing.T) {
	engine, output := newTestEngine(testingHandle, &fakeProvider{reply: "ok"})
	engine.history = []openrouter.Message{{Role: "user", Content: "old"}}
	previousSession := engine.sessionID

	done, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "clear"})
	testutil.RequireNoError(testingHandle, err, "clear command")
	testutil.RequireFalse(testingHandle, done, "clear keeps the loop running")
	testutil.RequireEqual(testingHandle, len(engine.history), 0, "history dropped")
	testutil.RequireTrue(testingHandle, engine.sessionID != previousSession, "session id rotated")
	testutil.RequireStringContains(testingHandle, output.String(), "cleared", "confirmation printed")
}

// TestModelCommand verifies /model shows and switches the model.
func TestModelCommand(testingHandle *testing.T) {
	engine, output := newTestEngine(testingHandle, &fakeProvider{})

	_, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "model"})
	testutil.RequireNoError(testingHandle, err, "show model")
	testutil.RequireStringContains(testingHandle, output.String(), config.DefaultModel, "current model shown")

	_, err = engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "model qwen/qwen-2.5-72b"})
	testutil.RequireNoError(testingHandle, err, "switch model")
	testutil.RequireEqual(testingHandle, engine.configuration.OpenRouter.Model, "qwen/qwen-2.5-72b", "model switched")
}

// TestListModelsCommand verifies the catalog listing marks the active
// model.
func TestListModelsCommand(testingHandle *testing.T) {
	provider := &fakeProvider{models: []openrouter.Model{
		{ID: "qwen/qwen-2.5-72b", ContextLength: 32768},
		{ID: config.DefaultModel, ContextLength: 131072},
	}}
	engine, output := newTestEngine(testingHandle, provider)

	_, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "list-models"})
	testutil.RequireNoError(testingHandle, err, "list models")
	testutil.RequireStringContains(testingHandle, output.String(), "* "+config.DefaultModel, "active model marked")
	testutil.RequireStringContains(testingHandle, output.String(), "qwen/qwen-2.5-72b", "other models listed")
}

// TestPlanCommandTogglesPrompt verifies /plan changes the system
// prompt.
func TestPlanCommandTogglesPrompt(testingHandle *testing.T) {
	engine, _ := newTestEngine(testingHandle, &fakeProvider{})

	_, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "plan"})
	testutil.RequireNoError(testingHandle, err, "enable plan mode")
	testutil.RequireStringContains(testingHandle, engine.systemPrompt(), "plan", "prompt asks for a plan")

	_, err = engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "plan"})
	testutil.RequireNoError(testingHandle, err, "disable plan mode")
	testutil.RequireFalse(testingHandle, engine.planMode, "plan mode off again")
}

// TestUnknownEngineCommand verifies unrecognized commands error without
// stopping the loop.
func TestUnknownEngineCommand(testingHandle *testing.T) {
	engine, _ := newTestEngine(testingHandle, &fakeProvider{})

	done, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventEngineCommand, Text: "nope"})
	testutil.RequireError(testingHandle, err, "unknown command errors")
	testutil.RequireFalse(testingHandle, done, "loop keeps running")
}

// TestTerminalEvents verifies exit and interrupt stop the loop and
// command output does not.
func TestTerminalEvents(testingHandle *testing.T) {
	engine, output := newTestEngine(testingHandle, &fakeProvider{})

	done, err := engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventExitRequest, Count: 3})
	testutil.RequireNoError(testingHandle, err, "exit event")
	testutil.RequireTrue(testingHandle, done, "exit stops the loop")

	done, err = engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventInterrupt})
	testutil.RequireNoError(testingHandle, err, "interrupt event")
	testutil.RequireTrue(testingHandle, done, "interrupt stops the loop")

	done, err = engine.handleEvent(context.Background(), editor.InputEvent{Kind: editor.EventCommandOutput, Text: "help text"})
	testutil.RequireNoError(testingHandle, err, "command output event")
	testutil.RequireFalse(testingHandle, done, "command output keeps the loop running")
	testutil.RequireStringContains(testingHandle, output.String(), "help text", "output printed")
}
