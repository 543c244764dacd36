package editor

import "github.com/mattn/go-runewidth"

// Window is the visible portion of the buffer for a fixed-width
// terminal. Columns are display columns, not codepoint counts: wide
// glyphs occupy two columns and combining marks occupy zero.
type Window struct {
	// Text is the substring of the buffer to draw.
	Text string
	// CursorColumn is the cursor's display column inside Text.
	CursorColumn int
	// TruncatedLeft reports content hidden before the window.
	TruncatedLeft bool
	// TruncatedRight reports content hidden after the window.
	TruncatedRight bool
}

// VisibleWindow computes what portion of content fits into
// availableWidth display columns while keeping the cursor visible.
// When the full text fits it is returned unmodified. Otherwise a
// horizontally scrolled window is selected so the cursor stays in the
// middle third of the viewport, with one column reserved for each
// active truncation indicator. The result is recomputed from scratch on
// every call since both content and cursor may have changed.
func VisibleWindow(content string, cursor int, availableWidth int) Window {
	characters := []rune(content)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(characters) {
		cursor = len(characters)
	}
	cursorColumn := runewidth.StringWidth(string(characters[:cursor]))

	if availableWidth <= 0 || runewidth.StringWidth(content) <= availableWidth {
		return Window{Text: content, CursorColumn: cursorColumn}
	}

	centerStart := availableWidth / 3
	if cursorColumn < centerStart {
		return windowFromStart(characters, cursorColumn, availableWidth)
	}
	return windowAroundCursor(characters, cursorColumn, centerStart, availableWidth)
}

// windowFromStart fills the viewport from the first codepoint, leaving
// one column for the right truncation indicator.
func windowFromStart(characters []rune, cursorColumn int, availableWidth int) Window {
	usedWidth := 0
	end := 0
	for index, character := range characters {
		width := runewidth.RuneWidth(character)
		if usedWidth+width > availableWidth-1 {
			break
		}
		usedWidth += width
		end = index + 1
	}
	return Window{
		Text:           string(characters[:end]),
		CursorColumn:   cursorColumn,
		TruncatedRight: end < len(characters),
	}
}

// windowAroundCursor selects a window whose start sits roughly one
// third of the viewport before the cursor's display column.
func windowAroundCursor(characters []rune, cursorColumn int, centerStart int, availableWidth int) Window {
	targetStart := cursorColumn - centerStart

	startWidth := 0
	start := 0
	for index, character := range characters {
		if startWidth >= targetStart {
			start = index
			break
		}
		startWidth += runewidth.RuneWidth(character)
	}

	reserved := 1 // right indicator
	if start > 0 {
		reserved++ // left indicator
	}

	usedWidth := 0
	end := start
	for index := start; index < len(characters); index++ {
		width := runewidth.RuneWidth(characters[index])
		if usedWidth+width > availableWidth-reserved {
			break
		}
		usedWidth += width
		end = index + 1
	}

	return Window{
		Text:           string(characters[start:end]),
		CursorColumn:   cursorColumn - startWidth,
		TruncatedLeft:  start > 0,
		TruncatedRight: end < len(characters),
	}
}
