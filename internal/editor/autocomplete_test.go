package editor

import (
	"sort"
	"strings"
	"testing"

	"github.com/loocode/loo/internal/complete"
	"github.com/loocode/loo/internal/testutil"
)

// fakeFiles is a canned FileSuggester for controller tests.
type fakeFiles struct {
	suggestions map[string][]complete.FileEntry
	folders     map[string][]string
}

func (f *fakeFiles) FileSuggestions(prefix string) []complete.FileEntry {
	return f.suggestions[prefix]
}

func (f *fakeFiles) FolderContents(folder string) []string {
	return f.folders[folder]
}

// fakeCommands is a canned CommandSource for controller tests.
type fakeCommands struct {
	names        []string
	descriptions map[string]string
	engine       map[string]bool
	executed     []string
	output       string
}

func (f *fakeCommands) MatchingCommands(prefix string) []string {
	var matches []string
	for _, name := range f.names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

func (f *fakeCommands) CommandDescriptions() map[string]string {
	return f.descriptions
}

func (f *fakeCommands) NeedsEngine(name string) bool {
	return f.engine[name]
}

func (f *fakeCommands) Execute(line string) (string, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false, nil
	}
	for _, name := range f.names {
		if name == fields[0] {
			f.executed = append(f.executed, line)
			return f.output, true, nil
		}
	}
	return "", false, nil
}

// TestDetectTrigger verifies backward trigger scanning.
func TestDetectTrigger(testingHandle *testing.T) {
	found, ok := detectTrigger("edit @src/", 10)
	testutil.RequireTrue(testingHandle, ok, "trigger found")
	testutil.RequireEqual(testingHandle, found.char, '@', "trigger character")
	testutil.RequireEqual(testingHandle, found.start, 5, "trigger offset")
	testutil.RequireEqual(testingHandle, found.prefix, "src/", "trigger prefix")

	_, ok = detectTrigger("hello world", 11)
	testutil.RequireFalse(testingHandle, ok, "plain text has no trigger")

	found, ok = detectTrigger("/he", 3)
	testutil.RequireTrue(testingHandle, ok, "slash at line start triggers")
	testutil.RequireEqual(testingHandle, found.char, '/', "slash trigger character")
	testutil.RequireEqual(testingHandle, found.prefix, "he", "slash prefix")

	_, ok = detectTrigger("a@b", 3)
	testutil.RequireFalse(testingHandle, ok, "mid-word at sign is not a trigger")

	_, ok = detectTrigger("run @x now", 10)
	testutil.RequireFalse(testingHandle, ok, "scan stops at whitespace before the trigger")
}

// TestUpdateCommandCollapse verifies an empty command match list hides
// the overlay while an empty file listing stays visible.
func TestUpdateCommandCollapse(testingHandle *testing.T) {
	commands := &fakeCommands{names: []string{"list-models", "list", "clear"}}
	files := &fakeFiles{suggestions: map[string][]complete.FileEntry{}}
	overlay := newOverlay(files, commands)
	buffer := NewTextBuffer()

	buffer.InsertText("/list")
	overlay.Update(buffer)
	testutil.RequireTrue(testingHandle, overlay.Active(), "command overlay active")
	testutil.RequireEqual(testingHandle, overlay.commands, []string{"list", "list-models"}, "sorted prefix matches")

	buffer.Clear()
	buffer.InsertText("/zz")
	overlay.Update(buffer)
	testutil.RequireFalse(testingHandle, overlay.Active(), "unmatched command prefix collapses")

	buffer.Clear()
	buffer.InsertText("@nothing")
	overlay.Update(buffer)
	testutil.RequireTrue(testingHandle, overlay.Active(), "empty file listing stays visible")
	testutil.RequireEqual(testingHandle, overlay.suggestionCount(), 0, "no file suggestions")
}

// TestMoveSelectionClamps verifies navigation has no wraparound.
func TestMoveSelectionClamps(testingHandle *testing.T) {
	commands := &fakeCommands{names: []string{"alpha", "beta", "gamma"}}
	overlay := newOverlay(&fakeFiles{}, commands)
	buffer := NewTextBuffer()
	buffer.InsertText("/")
	overlay.Update(buffer)

	testutil.RequireFalse(testingHandle, overlay.MoveSelection(-1), "clamped at top")
	testutil.RequireTrue(testingHandle, overlay.MoveSelection(1), "move down")
	testutil.RequireTrue(testingHandle, overlay.MoveSelection(1), "move to last")
	testutil.RequireFalse(testingHandle, overlay.MoveSelection(1), "clamped at bottom")
	testutil.RequireEqual(testingHandle, overlay.selected, 2, "selection at last index")

	overlay.Close()
	testutil.RequireFalse(testingHandle, overlay.MoveSelection(1), "no-op when inactive")
}

// TestCommitDirectoryContinuesBrowsing verifies directory completion
// appends one slash, keeps the overlay open, and re-queries the
// provider for the longer prefix.
func TestCommitDirectoryContinuesBrowsing(testingHandle *testing.T) {
	files := &fakeFiles{
		suggestions: map[string][]complete.FileEntry{
			"sr": {{Name: "src", FullPath: "src", IsDirectory: true}},
			"src/": {
				{Name: "editor", FullPath: "src/editor", IsDirectory: true},
				{Name: "main.go", FullPath: "src/main.go", IsDirectory: false},
			},
		},
		folders: map[string][]string{"src": {"editor/", "main.go"}},
	}
	overlay := newOverlay(files, &fakeCommands{})
	buffer := NewTextBuffer()
	buffer.InsertText("@sr")
	overlay.Update(buffer)

	committed, browsing := overlay.Commit(buffer)
	testutil.RequireTrue(testingHandle, committed, "directory commit")
	testutil.RequireTrue(testingHandle, browsing, "browsing continues into the directory")
	testutil.RequireEqual(testingHandle, buffer.Content(), "@src/", "exactly one trailing slash")
	testutil.RequireEqual(testingHandle, overlay.suggestionCount(), 2, "children listed")
}

// TestCommitFileCloses verifies file completion replaces the prefix and
// closes the overlay.
func TestCommitFileCloses(testingHandle *testing.T) {
	files := &fakeFiles{
		suggestions: map[string][]complete.FileEntry{
			"ma": {{Name: "main.go", FullPath: "main.go", IsDirectory: false}},
		},
	}
	overlay := newOverlay(files, &fakeCommands{})
	buffer := NewTextBuffer()
	buffer.InsertText("open @ma")
	overlay.Update(buffer)

	committed, browsing := overlay.Commit(buffer)
	testutil.RequireTrue(testingHandle, committed, "file commit")
	testutil.RequireFalse(testingHandle, browsing, "overlay closed")
	testutil.RequireEqual(testingHandle, buffer.Content(), "open @main.go", "prefix replaced")
	testutil.RequireFalse(testingHandle, overlay.Active(), "state is none after commit")
}

// TestCommitDirectoryKeepsExistingSlash verifies an entry whose path
// already ends in a slash is not doubled.
func TestCommitDirectoryKeepsExistingSlash(testingHandle *testing.T) {
	files := &fakeFiles{
		suggestions: map[string][]complete.FileEntry{
			"sr":   {{Name: "src", FullPath: "src/", IsDirectory: true}},
			"src/": {},
		},
		folders: map[string][]string{"src": {"main.go"}},
	}
	overlay := newOverlay(files, &fakeCommands{})
	buffer := NewTextBuffer()
	buffer.InsertText("@sr")
	overlay.Update(buffer)

	committed, _ := overlay.Commit(buffer)
	testutil.RequireTrue(testingHandle, committed, "directory commit")
	testutil.RequireEqual(testingHandle, buffer.Content(), "@src/", "slash not doubled")
}

// TestCommitCommandReplacesPrefix verifies command completion.
func TestCommitCommandReplacesPrefix(testingHandle *testing.T) {
	commands := &fakeCommands{names: []string{"list-models"}}
	overlay := newOverlay(&fakeFiles{}, commands)
	buffer := NewTextBuffer()
	buffer.InsertText("/li")
	overlay.Update(buffer)

	committed, browsing := overlay.Commit(buffer)
	testutil.RequireTrue(testingHandle, committed, "command commit")
	testutil.RequireFalse(testingHandle, browsing, "command commit closes overlay")
	testutil.RequireEqual(testingHandle, buffer.Content(), "/list-models", "command inserted after slash")
}
