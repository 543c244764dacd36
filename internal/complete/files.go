package complete

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileEntry describes one filesystem suggestion.
type FileEntry struct {
	// Name is the display name of the entry.
	Name string
	// FullPath is the path to insert into the buffer, relative to the
	// working directory.
	FullPath string
	// IsDirectory marks entries that can be drilled into for further
	// completion.
	IsDirectory bool
}

// Engine lists directory entries for autocomplete prefixes. All lookups
// are anchored at a fixed working directory; I/O failures degrade to
// empty results so autocomplete never surfaces an error.
type Engine struct {
	// workingDir anchors all relative path lookups.
	workingDir string
}

// NewEngine constructs an Engine rooted at workingDir.
func NewEngine(workingDir string) *Engine {
	return &Engine{workingDir: workingDir}
}

// FileSuggestions lists entries for the directory portion of
// partialPath, filtered by the filename portion as a case-sensitive
// prefix. A trailing slash lists the named directory itself with no
// filename filter.
func (e *Engine) FileSuggestions(partialPath string) []FileEntry {
	if partialPath == "" {
		return e.listDirectory(".")
	}

	var directory, prefix string
	if strings.HasSuffix(partialPath, "/") {
		directory = strings.TrimRight(partialPath, "/")
		prefix = ""
	} else {
		directory, prefix = filepath.Split(partialPath)
		directory = strings.TrimRight(directory, "/")
	}
	if directory == "" {
		directory = "."
	}

	entries := e.listDirectory(directory)
	if prefix == "" {
		return entries
	}

	filtered := entries[:0]
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name, prefix) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// FolderContents lists the display names of a directory's entries,
// with directories suffixed by a slash. Used by the drill-down check
// and by callers that only need names.
func (e *Engine) FolderContents(folder string) []string {
	entries := e.listDirectory(folder)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDirectory {
			names = append(names, entry.Name+"/")
			continue
		}
		names = append(names, entry.Name)
	}
	return names
}

// listDirectory reads one directory under the working root. Entries
// whose name starts with a dot are excluded unless the requested path
// itself navigates into a dotted segment. Directories sort before
// files; within each group names sort by byte ordinal. Any read
// failure yields an empty list.
func (e *Engine) listDirectory(relativePath string) []FileEntry {
	fullPath := filepath.Join(e.workingDir, relativePath)
	dirEntries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil
	}

	showHidden := hasDotSegment(relativePath)
	cleanRelative := strings.TrimRight(relativePath, "/")

	var entries []FileEntry
	for _, item := range dirEntries {
		name := item.Name()
		if strings.HasPrefix(name, ".") && !showHidden {
			continue
		}

		entryPath := name
		if cleanRelative != "." {
			entryPath = cleanRelative + "/" + name
		}

		entries = append(entries, FileEntry{
			Name:        name,
			FullPath:    entryPath,
			IsDirectory: item.IsDir(),
		})
	}

	sort.Slice(entries, func(left int, right int) bool {
		if entries[left].IsDirectory != entries[right].IsDirectory {
			return entries[left].IsDirectory
		}
		return entries[left].Name < entries[right].Name
	})

	return entries
}

// hasDotSegment reports whether a relative path explicitly navigates
// into a dot-prefixed directory, which opts hidden entries in.
func hasDotSegment(relativePath string) bool {
	for _, segment := range strings.Split(relativePath, "/") {
		if segment == "." || segment == ".." {
			continue
		}
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
