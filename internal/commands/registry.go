package commands

import (
	"fmt"
	"sort"
	"strings"
)

// HandlerFunc executes a locally-handled command with its argument
// string and returns the text to print.
type HandlerFunc func(arguments string) (string, error)

// Command is one registered slash command.
type Command struct {
	// Name is the command name without the leading slash.
	Name string
	// Description is the one-line summary shown in the suggestion list.
	Description string
	// Handler runs the command locally. Nil for engine commands.
	Handler HandlerFunc
	// NeedsEngine marks commands that must be routed to the engine loop
	// instead of executing inside the line editor.
	NeedsEngine bool
}

// Registry holds the slash commands available in a session.
type Registry struct {
	commands map[string]Command
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds or replaces a command by name.
func (r *Registry) Register(command Command) {
	r.commands[command.Name] = command
}

// All returns every registered command sorted by name.
func (r *Registry) All() []Command {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]Command, 0, len(names))
	for _, name := range names {
		all = append(all, r.commands[name])
	}
	return all
}

// MatchingCommands lists command names with the given prefix in
// ascending order.
func (r *Registry) MatchingCommands(prefix string) []string {
	var matches []string
	for name := range r.commands {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// CommandDescriptions maps command names to their descriptions.
func (r *Registry) CommandDescriptions() map[string]string {
	descriptions := make(map[string]string, len(r.commands))
	for name, command := range r.commands {
		descriptions[name] = command.Description
	}
	return descriptions
}

// NeedsEngine reports whether the named command must run with engine
// context. Unknown names report false.
func (r *Registry) NeedsEngine(name string) bool {
	command, exists := r.commands[name]
	return exists && command.NeedsEngine
}

// Execute runs a command line without its leading slash. found is false
// when the name is not registered; engine commands report found with an
// error since they cannot execute here.
func (r *Registry) Execute(line string) (string, bool, error) {
	name, arguments, _ := strings.Cut(strings.TrimSpace(line), " ")
	command, exists := r.commands[name]
	if !exists {
		return "", false, nil
	}
	if command.Handler == nil {
		return "", true, fmt.Errorf("command %q requires an active session", name)
	}
	output, err := command.Handler(strings.TrimSpace(arguments))
	return output, true, err
}

// NewDefaultRegistry builds the registry with the built-in commands.
// Engine commands carry no handler; the engine loop interprets them.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()

	registry.Register(Command{
		Name:        "clear",
		Description: "Clear the conversation history",
		NeedsEngine: true,
	})
	registry.Register(Command{
		Name:        "model",
		Description: "Show or switch the active model",
		NeedsEngine: true,
	})
	registry.Register(Command{
		Name:        "list-models",
		Description: "List models available on the provider",
		NeedsEngine: true,
	})
	registry.Register(Command{
		Name:        "plan",
		Description: "Toggle plan mode for the next request",
		NeedsEngine: true,
	})
	registry.Register(Command{
		Name:        "help",
		Description: "Show available commands",
		Handler: func(string) (string, error) {
			var builder strings.Builder
			builder.WriteString("Available commands:\n")
			for _, command := range registry.All() {
				fmt.Fprintf(&builder, "  /%-14s %s\n", command.Name, command.Description)
			}
			return strings.TrimRight(builder.String(), "\n"), nil
		},
	})

	return registry
}
