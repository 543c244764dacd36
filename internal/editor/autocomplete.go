package editor

import (
	"strings"
	"unicode"

	"github.com/loocode/loo/internal/complete"
)

// FileSuggester provides filesystem suggestions for '@' triggers.
type FileSuggester interface {
	// FileSuggestions lists entries matching a partial path prefix.
	FileSuggestions(prefix string) []complete.FileEntry
	// FolderContents lists the display names inside one folder.
	FolderContents(folder string) []string
}

// CommandSource exposes the slash-command registry to the editor.
type CommandSource interface {
	// MatchingCommands lists command names with the given prefix,
	// ascending.
	MatchingCommands(prefix string) []string
	// CommandDescriptions maps command names to one-line descriptions.
	CommandDescriptions() map[string]string
	// NeedsEngine reports whether a command must run with engine context.
	NeedsEngine(name string) bool
	// Execute runs a command line without the leading slash. found is
	// false when no such command is registered.
	Execute(line string) (output string, found bool, err error)
}

// overlayKind discriminates the autocomplete overlay variants.
type overlayKind int

const (
	// overlayNone means no suggestions are shown.
	overlayNone overlayKind = iota
	// overlayFiles shows filesystem entries for an '@' trigger.
	overlayFiles
	// overlayCommands shows registry commands for a '/' trigger.
	overlayCommands
)

// Overlay is the autocomplete controller: it owns the suggestion state
// between keystrokes and only reads the buffer to compute triggers. The
// state is recomputed after every content-mutating keystroke and never
// left partially stale.
type Overlay struct {
	// kind selects the active variant.
	kind overlayKind
	// files holds filesystem suggestions when kind is overlayFiles.
	files []complete.FileEntry
	// commands holds command suggestions when kind is overlayCommands.
	commands []string
	// selected indexes the highlighted suggestion.
	selected int
	// fileSource provides filesystem suggestions.
	fileSource FileSuggester
	// commandSource provides command suggestions.
	commandSource CommandSource
}

// newOverlay constructs an inactive overlay bound to its providers.
func newOverlay(fileSource FileSuggester, commandSource CommandSource) *Overlay {
	return &Overlay{fileSource: fileSource, commandSource: commandSource}
}

// Active reports whether suggestions are currently shown.
func (o *Overlay) Active() bool {
	return o.kind != overlayNone
}

// browsingFiles reports whether a filesystem overlay is open. Typing a
// second '@' is swallowed in that state.
func (o *Overlay) browsingFiles() bool {
	return o.kind == overlayFiles
}

// Close resets the overlay to the inactive state.
func (o *Overlay) Close() {
	o.kind = overlayNone
	o.files = nil
	o.commands = nil
	o.selected = 0
}

// suggestionCount returns the number of current suggestions.
func (o *Overlay) suggestionCount() int {
	switch o.kind {
	case overlayFiles:
		return len(o.files)
	case overlayCommands:
		return len(o.commands)
	}
	return 0
}

// MoveSelection moves the highlighted index by delta, clamped without
// wraparound. It reports whether the selection changed.
func (o *Overlay) MoveSelection(delta int) bool {
	count := o.suggestionCount()
	if count == 0 {
		return false
	}
	next := o.selected + delta
	if next < 0 {
		next = 0
	}
	if next > count-1 {
		next = count - 1
	}
	if next == o.selected {
		return false
	}
	o.selected = next
	return true
}

// trigger describes an autocomplete trigger found near the cursor: the
// trigger character, its codepoint offset, and the prefix typed between
// it and the cursor. It is derived on demand and never stored.
type trigger struct {
	char   rune
	start  int
	prefix string
}

// detectTrigger scans backward from the cursor for an '@' or '/' that
// sits at the start of the line or right after whitespace. The scan
// stops at the first whitespace codepoint.
func detectTrigger(content string, cursor int) (trigger, bool) {
	characters := []rune(content)
	if cursor > len(characters) {
		cursor = len(characters)
	}
	for position := cursor - 1; position >= 0; position-- {
		character := characters[position]
		if character == '@' || character == '/' {
			if position == 0 || unicode.IsSpace(characters[position-1]) {
				return trigger{
					char:   character,
					start:  position,
					prefix: string(characters[position+1 : cursor]),
				}, true
			}
		}
		if unicode.IsSpace(character) {
			break
		}
	}
	return trigger{}, false
}

// Update recomputes the overlay state from the buffer. '@' routes to the
// filesystem provider and '/' to the command provider. An empty command
// match list collapses the overlay, since '/' followed by unmatched text
// is more likely ordinary prose; an empty file listing stays visible
// because it may populate as the prefix changes.
func (o *Overlay) Update(buffer *TextBuffer) {
	found, ok := detectTrigger(buffer.Content(), buffer.Cursor())
	if !ok {
		o.Close()
		return
	}

	switch found.char {
	case '@':
		o.kind = overlayFiles
		o.files = o.lookupFiles(found.prefix)
		o.commands = nil
		o.selected = 0
	case '/':
		matches := o.commandSource.MatchingCommands(found.prefix)
		if len(matches) == 0 {
			o.Close()
			return
		}
		o.kind = overlayCommands
		o.commands = matches
		o.files = nil
		o.selected = 0
	}
}

// lookupFiles resolves filesystem suggestions for a prefix, handling
// the folder drill-down case: a prefix ending in a slash lists the
// contents of that exact folder so repeated completion reveals children
// without retyping the path.
func (o *Overlay) lookupFiles(prefix string) []complete.FileEntry {
	folder, drilled := strings.CutSuffix(prefix, "/")
	if drilled && folder != "" {
		if len(o.fileSource.FolderContents(folder)) == 0 {
			return nil
		}
	}
	return o.fileSource.FileSuggestions(prefix)
}

// selection returns the insertion text for the highlighted suggestion
// and whether it is a directory. Directory paths carry exactly one
// trailing slash.
func (o *Overlay) selection() (string, bool, bool) {
	switch o.kind {
	case overlayFiles:
		if o.selected >= len(o.files) {
			return "", false, false
		}
		entry := o.files[o.selected]
		text := entry.FullPath
		if entry.IsDirectory && !strings.HasSuffix(text, "/") {
			text += "/"
		}
		return text, entry.IsDirectory, true
	case overlayCommands:
		if o.selected >= len(o.commands) {
			return "", false, false
		}
		return o.commands[o.selected], false, true
	}
	return "", false, false
}

// Commit replaces the buffer span between the trigger character and the
// cursor with the highlighted suggestion. Selecting a directory keeps
// the overlay open and re-queries the provider for the longer prefix;
// selecting a file or command closes it. The return values report
// whether a commit happened and whether browsing continues.
func (o *Overlay) Commit(buffer *TextBuffer) (committed bool, browsing bool) {
	text, isDirectory, ok := o.selection()
	if !ok {
		return false, false
	}
	found, exists := detectTrigger(buffer.Content(), buffer.Cursor())
	if !exists {
		o.Close()
		return false, false
	}

	buffer.ReplaceRange(found.start+1, buffer.Cursor(), text)

	if isDirectory {
		o.Update(buffer)
		return true, o.Active()
	}
	o.Close()
	return true, false
}
