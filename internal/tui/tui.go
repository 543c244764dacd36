package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/loocode/loo/internal/commands"
	"github.com/loocode/loo/internal/config"
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

// Options configures the full-screen session.
type Options struct {
	// Config is the merged application configuration.
	Config *config.Config
	// WorkingDir is the workspace directory.
	WorkingDir string
	// SessionID identifies the conversation.
	SessionID string
	// History seeds the conversation from a resumed session.
	History []openrouter.Message
	// Store persists conversation records. Nil disables persistence.
	Store *session.Store
}

// Run starts the full-screen terminal UI.
func Run(options Options) error {
	if !term.IsTerminal(0) || !term.IsTerminal(1) {
		return errors.New("full-screen mode requires a TTY")
	}
	client := openrouter.NewClient(
		options.Config.OpenRouter.BaseURL,
		options.Config.OpenRouter.APIKey,
		requestTimeout,
	)
	program := tea.NewProgram(newModel(options, client), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// chatEntry is a rendered conversation line.
type chatEntry struct {
	// Role labels the entry origin (user, assistant, system).
	Role string
	// Content is the entry text.
	Content string
}

// replyMsg delivers a completed provider response.
type replyMsg struct {
	// Text is the assistant reply.
	Text string
	// Usage reports token counts for the turn.
	Usage openrouter.Usage
}

// modelsMsg delivers the provider catalog for /list-models.
type modelsMsg struct {
	// Models is the catalog sorted by the provider.
	Models []openrouter.Model
}

// errMsg reports a failed provider call.
type errMsg struct {
	// Err is the underlying error.
	Err error
}

// model drives the full-screen chat UI.
type model struct {
	// configuration holds the merged settings for this run.
	configuration *config.Config
	// client executes provider requests.
	client Provider
	// registry resolves slash commands typed into the input.
	registry *commands.Registry
	// store persists conversation records.
	store *session.Store
	// workingDir anchors the session to a workspace.
	workingDir string
	// projectHash identifies the workspace in the store.
	projectHash string
	// sessionID identifies the conversation.
	sessionID string
	// history is the conversation sent to the provider.
	history []openrouter.Message
	// entries holds display-friendly conversation lines.
	entries []chatEntry
	// inputHistory stores prior inputs for Ctrl+P/N recall.
	inputHistory []string
	// historyIndex tracks the active position in inputHistory.
	historyIndex int
	// historyDraft preserves the in-progress input while browsing.
	historyDraft string
	// chatView renders the conversation.
	chatView viewport.Model
	// input collects the next message.
	input textarea.Model
	// markdown formats assistant output when available.
	markdown *glamour.TermRenderer
	// statusText is the bottom status line.
	statusText string
	// lastUsage tracks token usage for the most recent turn.
	lastUsage openrouter.Usage
	// autoScroll keeps the chat pinned to the bottom.
	autoScroll bool
	// width tracks the terminal width.
	width int
	// height tracks the terminal height.
	height int
	// running indicates an in-flight request.
	running bool
	// cancel aborts the current request when present.
	cancel context.CancelFunc
	// quitting indicates a user-requested exit.
	quitting bool
}

// newModel constructs the initial UI state.
func newModel(options Options, client Provider) *model {
	input := textarea.New()
	input.Placeholder = "Type a message, / for commands..."
	input.Focus()
	input.CharLimit = 0
	input.Prompt = "> "
	input.SetHeight(3)
	input.SetWidth(20)

	var renderer *glamour.TermRenderer
	if glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
		renderer = glam
	}

	state := &model{
		configuration: options.Config,
		client:        client,
		registry:      commands.NewDefaultRegistry(),
		store:         options.Store,
		workingDir:    options.WorkingDir,
		projectHash:   session.ProjectHash(options.WorkingDir),
		sessionID:     options.SessionID,
		history:       options.History,
		chatView:      viewport.New(20, 10),
		input:         input,
		markdown:      renderer,
		statusText:    "Enter: send | Ctrl+J: newline | Ctrl+P/N: history | Ctrl+Q: quit",
		autoScroll:    true,
	}
	state.historyIndex = 0
	state.seedEntries()
	return state
}

// Init starts the blinking cursor for the input field.
func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles UI events and provider responses.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.applyWindowSize(typed)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case replyMsg:
		m.finishReply(typed)
		return m, nil
	case modelsMsg:
		m.finishModels(typed.Models)
		return m, nil
	case errMsg:
		m.finishError(typed.Err)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the full UI layout.
func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderChat(),
		m.renderInput(),
		m.renderStatus(),
	)
}

// handleKey routes keyboard input and submission.
func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		if m.running {
			m.cancelRun("Cancelled.")
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	case "ctrl+q":
		m.quitting = true
		return m, tea.Quit
	case "ctrl+j":
		m.input.InsertString("\n")
		return m, nil
	case "ctrl+p":
		m.cycleInputHistory(-1)
		return m, nil
	case "ctrl+n":
		m.cycleInputHistory(1)
		return m, nil
	case "pgup":
		m.autoScroll = false
		m.chatView.LineUp(10)
		return m, nil
	case "pgdown":
		m.chatView.LineDown(10)
		if m.chatView.AtBottom() {
			m.autoScroll = true
		}
		return m, nil
	}

	if key.Type == tea.KeyEnter {
		if key.Alt {
			m.input.InsertString("\n")
			return m, nil
		}
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

// submitInput dispatches the current input as a command or a chat turn.
func (m *model) submitInput() (tea.Model, tea.Cmd) {
	if m.running {
		m.statusText = "Wait for the current response or cancel with Ctrl+C."
		return m, nil
	}
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	m.input.SetValue("")
	m.appendInputHistory(value)

	if strings.HasPrefix(value, "/") {
		return m, m.runCommand(strings.TrimPrefix(value, "/"))
	}

	m.appendEntry("user", value)
	m.history = append(m.history, openrouter.Message{Role: "user", Content: value})
	m.persist("user", value)
	m.refreshChat()

	m.running = true
	m.statusText = "Thinking..."
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	m.cancel = cancel

	request := &openrouter.ChatRequest{
		Model:    m.configuration.OpenRouter.Model,
		Messages: m.requestMessages(),
	}
	client := m.client
	return m, func() tea.Msg {
		response, err := client.ChatCompletions(ctx, request)
		if err != nil {
			return errMsg{Err: err}
		}
		return replyMsg{Text: response.Choices[0].Message.Content, Usage: response.Usage}
	}
}

// runCommand executes a slash command inside the UI.
func (m *model) runCommand(commandLine string) tea.Cmd {
	name, arguments, _ := strings.Cut(commandLine, " ")
	arguments = strings.TrimSpace(arguments)

	switch name {
	case "clear":
		m.history = nil
		m.entries = nil
		m.statusText = "Conversation cleared."
		m.refreshChat()
		return nil
	case "model":
		if arguments == "" {
			m.statusText = "Current model: " + m.configuration.OpenRouter.Model
			return nil
		}
		m.configuration.OpenRouter.Model = arguments
		m.statusText = "Model set to " + arguments
		return nil
	case "list-models":
		m.running = true
		m.statusText = "Fetching models..."
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		m.cancel = cancel
		client := m.client
		return func() tea.Msg {
			models, err := client.ListModels(ctx)
			if err != nil {
				return errMsg{Err: err}
			}
			return modelsMsg{Models: models}
		}
	case "plan":
		m.statusText = "Plan mode is only available in line mode."
		return nil
	}

	output, found, err := m.registry.Execute(commandLine)
	if !found {
		m.statusText = fmt.Sprintf("Unknown command /%s", name)
		return nil
	}
	if err != nil {
		m.statusText = "Error: " + err.Error()
		return nil
	}
	m.appendEntry("system", output)
	m.refreshChat()
	return nil
}

// requestMessages builds the provider payload with the system prompt
// first.
func (m *model) requestMessages() []openrouter.Message {
	messages := make([]openrouter.Message, 0, len(m.history)+1)
	messages = append(messages, openrouter.Message{
		Role: "system",
		Content: "You are Loo, a coding assistant running in a terminal.\nWorkspace: " +
			m.workingDir + "\nProvide clear, concise responses.",
	})
	return append(messages, m.history...)
}

// finishReply records a completed assistant turn.
func (m *model) finishReply(reply replyMsg) {
	m.running = false
	m.cancel = nil
	m.statusText = ""
	m.lastUsage = reply.Usage
	m.history = append(m.history, openrouter.Message{Role: "assistant", Content: reply.Text})
	m.appendEntry("assistant", reply.Text)
	m.persist("assistant", reply.Text)
	m.refreshChat()
}

// finishModels renders the provider catalog into the conversation.
func (m *model) finishModels(models []openrouter.Model) {
	m.running = false
	m.cancel = nil
	m.statusText = ""
	var builder strings.Builder
	for _, entry := range models {
		marker := "  "
		if entry.ID == m.configuration.OpenRouter.Model {
			marker = "* "
		}
		fmt.Fprintf(&builder, "%s%s (%d ctx)\n", marker, entry.ID, entry.ContextLength)
	}
	m.appendEntry("system", strings.TrimRight(builder.String(), "\n"))
	m.refreshChat()
}

// finishError reports a failed provider call.
func (m *model) finishError(err error) {
	m.running = false
	m.cancel = nil
	m.statusText = "Error: " + err.Error()
}

// cancelRun aborts an in-flight request and updates status.
func (m *model) cancelRun(reason string) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.running = false
	m.statusText = reason
}

// appendInputHistory records an input line for Ctrl+P/N recall.
func (m *model) appendInputHistory(value string) {
	m.inputHistory = append(m.inputHistory, value)
	if len(m.inputHistory) > 200 {
		m.inputHistory = m.inputHistory[len(m.inputHistory)-200:]
	}
	m.historyIndex = len(m.inputHistory)
	m.historyDraft = ""
}

// cycleInputHistory moves the input buffer through stored entries.
func (m *model) cycleInputHistory(delta int) {
	if len(m.inputHistory) == 0 {
		return
	}
	if m.historyIndex == len(m.inputHistory) {
		m.historyDraft = m.input.Value()
	}
	next := m.historyIndex + delta
	if next < 0 {
		next = 0
	}
	if next > len(m.inputHistory) {
		next = len(m.inputHistory)
	}
	m.historyIndex = next
	if m.historyIndex == len(m.inputHistory) {
		m.input.SetValue(m.historyDraft)
		return
	}
	m.input.SetValue(m.inputHistory[m.historyIndex])
}

// persist appends one record to the session log.
func (m *model) persist(role string, content string) {
	if m.store == nil || m.sessionID == "" {
		return
	}
	record := session.Record{Role: role, Content: content, Timestamp: time.Now().UTC()}
	if err := m.store.Append(m.projectHash, m.sessionID, record); err != nil {
		m.statusText = "Warning: could not save the conversation."
		return
	}
	_ = m.store.SaveLastSession(m.projectHash, m.sessionID)
}

// seedEntries fills the chat view from resumed history.
func (m *model) seedEntries() {
	for _, message := range m.history {
		if message.Role == "system" {
			continue
		}
		m.appendEntry(message.Role, message.Content)
	}
	m.refreshChat()
}

// appendEntry adds one line to the display list.
func (m *model) appendEntry(role string, content string) {
	m.entries = append(m.entries, chatEntry{Role: role, Content: content})
}

// refreshChat rebuilds the viewport content.
func (m *model) refreshChat() {
	var builder strings.Builder
	for _, entry := range m.entries {
		builder.WriteString(m.renderEntry(entry))
		builder.WriteString("\n\n")
	}
	m.chatView.SetContent(builder.String())
	if m.autoScroll {
		m.chatView.GotoBottom()
	}
}

// renderEntry formats one conversation line for display.
func (m *model) renderEntry(entry chatEntry) string {
	label := strings.ToUpper(entry.Role)
	style := lipgloss.NewStyle()
	switch entry.Role {
	case "user":
		style = style.Foreground(lipgloss.Color("39")).Bold(true)
		label = "YOU"
	case "assistant":
		style = style.Foreground(lipgloss.Color("10")).Bold(true)
		label = "LOO"
	case "system":
		style = style.Foreground(lipgloss.Color("3"))
	}
	content := entry.Content
	if entry.Role == "assistant" && m.markdown != nil {
		if rendered, err := m.markdown.Render(content); err == nil {
			content = rendered
		}
	}
	return fmt.Sprintf("%s\n%s", style.Render(label+":"), content)
}

// applyWindowSize recalculates the layout for a new window size.
func (m *model) applyWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 1
	statusHeight := 1
	inputHeight := m.input.Height() + 2
	chatHeight := m.height - headerHeight - statusHeight - inputHeight
	if chatHeight < 4 {
		chatHeight = 4
	}

	m.chatView.Width = m.width - 2
	m.chatView.Height = chatHeight
	m.input.SetWidth(m.width - 4)
	m.refreshChat()
}

// renderHeader builds the top status line.
func (m *model) renderHeader() string {
	style := lipgloss.NewStyle().Bold(true)
	header := fmt.Sprintf("loo | session %s | model %s", m.sessionID, m.configuration.OpenRouter.Model)
	if m.running {
		header += " | running"
	}
	return style.Render(padRight(header, m.width))
}

// renderChat returns the conversation viewport.
func (m *model) renderChat() string {
	return m.chatView.View()
}

// renderInput returns the bordered input box.
func (m *model) renderInput() string {
	style := lipgloss.NewStyle().Border(asciiBorder()).Padding(0, 1)
	return style.Render(m.input.View())
}

// renderStatus returns the bottom status line.
func (m *model) renderStatus() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	text := m.statusText
	if text == "" {
		text = "Ready"
	}
	if m.lastUsage.TotalTokens > 0 {
		text = fmt.Sprintf("%s | tokens:%d", text, m.lastUsage.TotalTokens)
	}
	return style.Render(padRight(text, m.width))
}

// asciiBorder avoids Unicode border dependencies.
func asciiBorder() lipgloss.Border {
	return lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}
}

// padRight pads a string with spaces to the target width.
func padRight(value string, width int) string {
	runes := []rune(value)
	if len(runes) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(runes))
}
