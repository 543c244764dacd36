package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/loocode/loo/internal/commands"
	"github.com/loocode/loo/internal/complete"
	"github.com/loocode/loo/internal/config"
	"github.com/loocode/loo/internal/editor"
	"github.com/loocode/loo/internal/llm/openrouter"
	"github.com/loocode/loo/internal/session"
)

// requestTimeout bounds one provider round-trip.
const requestTimeout = 120 * time.Second

// Provider abstracts the OpenRouter client for tests.
type Provider interface {
	ChatCompletions(ctx context.Context, req *openrouter.ChatRequest) (*openrouter.ChatResponse, error)
	ListModels(ctx context.Context) ([]openrouter.Model, error)
}

// LineReader abstracts the interactive editor for tests.
type LineReader interface {
	ReadLine() (editor.InputEvent, error)
}

// Engine runs the interactive loop: it reads events from the line
// editor, talks to the provider, and persists the conversation.
type Engine struct {
	// configuration holds the merged settings for this run.
	configuration *config.Config
	// client executes provider requests.
	client Provider
	// store persists conversation records.
	store *session.Store
	// files lists the workspace for autocomplete and the system prompt.
	files *complete.Engine
	// registry holds the slash commands.
	registry *commands.Registry
	// reader yields input events.
	reader LineReader
	// out receives rendered output.
	out io.Writer
	// workingDir anchors the session to a workspace.
	workingDir string
	// projectHash identifies the workspace in the store.
	projectHash string
	// sessionID identifies this conversation.
	sessionID string
	// history is the in-memory conversation, without the system prompt.
	history []openrouter.Message
	// planMode asks the model for a plan before any answer.
	planMode bool
	// markdown renders assistant output. Nil falls back to plain text.
	markdown *glamour.TermRenderer
}

// Options configures a new Engine.
type Options struct {
	// Config is the merged application configuration.
	Config *config.Config
	// WorkingDir is the workspace directory.
	WorkingDir string
	// Out receives rendered output.
	Out io.Writer
	// ContinueLast resumes the most recent session for the workspace.
	ContinueLast bool
}

// New constructs an Engine and resumes or starts a session.
func New(options Options) (*Engine, error) {
	store, err := session.NewStore()
	if err != nil {
		return nil, err
	}

	files := complete.NewEngine(options.WorkingDir)
	registry := commands.NewDefaultRegistry()

	engine := &Engine{
		configuration: options.Config,
		client: openrouter.NewClient(
			options.Config.OpenRouter.BaseURL,
			options.Config.OpenRouter.APIKey,
			requestTimeout,
		),
		store:       store,
		files:       files,
		registry:    registry,
		out:         options.Out,
		workingDir:  options.WorkingDir,
		projectHash: session.ProjectHash(options.WorkingDir),
	}
	engine.reader = editor.NewReader("> ", files, registry)

	if renderer, renderErr := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	); renderErr == nil {
		engine.markdown = renderer
	}

	if options.ContinueLast {
		if err := engine.resumeLastSession(); err != nil {
			return nil, err
		}
	}
	if engine.sessionID == "" {
		engine.sessionID = uuid.NewString()
	}
	return engine, nil
}

// resumeLastSession loads the previous conversation for the workspace.
// A workspace with no history silently starts fresh.
func (e *Engine) resumeLastSession() error {
	sessionID, err := e.store.LastSession(e.projectHash)
	if err != nil {
		return nil
	}
	records, err := e.store.Load(e.projectHash, sessionID)
	if err != nil {
		return fmt.Errorf("resume session %s: %w", sessionID, err)
	}
	e.sessionID = sessionID
	for _, record := range records {
		e.history = append(e.history, openrouter.Message{Role: record.Role, Content: record.Content})
	}
	fmt.Fprintf(e.out, "Resumed session %s (%d messages)\n", sessionID, len(records))
	return nil
}

// Run drives the event loop until the user exits.
func (e *Engine) Run(ctx context.Context) error {
	fmt.Fprintf(e.out, "loo · %s · %s\n", e.configuration.OpenRouter.Model, e.workingDir)
	fmt.Fprintln(e.out, "Type a message, @ to reference files, / for commands.")

	for {
		event, err := e.reader.ReadLine()
		if err != nil {
			return err
		}
		done, err := e.handleEvent(ctx, event)
		if err != nil {
			fmt.Fprintf(e.out, "Error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// handleEvent processes one input event. done reports that the loop
// should stop.
func (e *Engine) handleEvent(ctx context.Context, event editor.InputEvent) (bool, error) {
	switch event.Kind {
	case editor.EventExitRequest:
		fmt.Fprintln(e.out, "Bye.")
		return true, nil

	case editor.EventInterrupt:
		fmt.Fprintln(e.out, "Input closed.")
		return true, nil

	case editor.EventCommandOutput:
		fmt.Fprintln(e.out, event.Text)
		return false, nil

	case editor.EventEngineCommand:
		return false, e.runEngineCommand(ctx, event.Text)

	case editor.EventUserInput:
		return false, e.chat(ctx, event.Text)
	}
	return false, nil
}

// runEngineCommand interprets commands that need conversation or
// provider context.
func (e *Engine) runEngineCommand(ctx context.Context, commandLine string) error {
	name, arguments, _ := strings.Cut(commandLine, " ")
	arguments = strings.TrimSpace(arguments)

	switch name {
	case "clear":
		e.history = nil
		e.sessionID = uuid.NewString()
		fmt.Fprintln(e.out, "Conversation cleared.")
		return nil

	case "model":
		if arguments == "" {
			fmt.Fprintf(e.out, "Current model: %s\n", e.configuration.OpenRouter.Model)
			return nil
		}
		e.configuration.OpenRouter.Model = arguments
		fmt.Fprintf(e.out, "Model set to %s\n", arguments)
		return nil

	case "list-models":
		return e.listModels(ctx)

	case "plan":
		e.planMode = !e.planMode
		if e.planMode {
			fmt.Fprintln(e.out, "Plan mode on: the next requests ask for a plan first.")
		} else {
			fmt.Fprintln(e.out, "Plan mode off.")
		}
		return nil
	}
	return fmt.Errorf("unknown engine command %q", name)
}

// listModels prints the provider catalog sorted by id.
func (e *Engine) listModels(ctx context.Context) error {
	requestCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	models, err := e.client.ListModels(requestCtx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	sort.Slice(models, func(left int, right int) bool {
		return models[left].ID < models[right].ID
	})
	for _, model := range models {
		marker := " "
		if model.ID == e.configuration.OpenRouter.Model {
			marker = "*"
		}
		fmt.Fprintf(e.out, "%s %-48s %8d ctx\n", marker, model.ID, model.ContextLength)
	}
	return nil
}

// chat sends one user turn to the provider and renders the reply.
func (e *Engine) chat(ctx context.Context, text string) error {
	userMessage := openrouter.Message{Role: "user", Content: text}
	messages := make([]openrouter.Message, 0, len(e.history)+2)
	messages = append(messages, openrouter.Message{Role: "system", Content: e.systemPrompt()})
	messages = append(messages, e.history...)
	messages = append(messages, userMessage)

	requestCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	response, err := e.client.ChatCompletions(requestCtx, &openrouter.ChatRequest{
		Model:    e.configuration.OpenRouter.Model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openrouter.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("provider rejected the request (status %d); check `loo config validate`", apiErr.StatusCode)
		}
		return err
	}

	reply := response.Choices[0].Message
	e.history = append(e.history, userMessage, reply)
	e.persist(userMessage)
	e.persist(reply)

	fmt.Fprint(e.out, e.renderMarkdown(reply.Content))
	if e.configuration.Preferences.Verbose {
		fmt.Fprintf(e.out, "[%d prompt + %d completion tokens]\n",
			response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}
	return nil
}

// persist appends one message to the session log. Persistence failures
// are reported but never abort the conversation.
func (e *Engine) persist(message openrouter.Message) {
	record := session.Record{Role: message.Role, Content: message.Content, Timestamp: time.Now().UTC()}
	if err := e.store.Append(e.projectHash, e.sessionID, record); err != nil {
		fmt.Fprintf(e.out, "Warning: could not save the conversation: %v\n", err)
		return
	}
	if err := e.store.SaveLastSession(e.projectHash, e.sessionID); err != nil {
		fmt.Fprintf(e.out, "Warning: could not update the session pointer: %v\n", err)
	}
}

// renderMarkdown renders assistant output, falling back to plain text
// when no terminal renderer is available.
func (e *Engine) renderMarkdown(content string) string {
	if e.markdown != nil {
		if rendered, err := e.markdown.Render(content); err == nil {
			return rendered
		}
	}
	return strings.TrimRight(content, "\n") + "\n"
}

// systemPrompt builds the per-request system prompt including a shallow
// workspace listing so the model knows what it is looking at.
func (e *Engine) systemPrompt() string {
	builder := strings.Builder{}
	builder.WriteString("You are Loo, a coding assistant running in a terminal.\n")
	builder.WriteString("The user references files with @path tokens; treat them as paths relative to the workspace.\n")
	fmt.Fprintf(&builder, "Workspace: %s\n", e.workingDir)

	if entries := e.files.FolderContents("."); len(entries) > 0 {
		builder.WriteString("Top-level entries: ")
		builder.WriteString(strings.Join(entries, ", "))
		builder.WriteString("\n")
	}
	if e.planMode {
		builder.WriteString("Before answering, outline a short step-by-step plan, then carry it out.\n")
	}
	builder.WriteString("Provide clear, concise responses.")
	return builder.String()
}
