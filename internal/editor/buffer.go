package editor

import "unicode"

// TextBuffer owns the input line and cursor for a single ReadLine call.
// Every position it exposes is a codepoint offset; byte offsets into the
// underlying string are derived fresh at each mutation and never stored,
// so edits cannot leave a stale index behind.
type TextBuffer struct {
	// content is the current input text.
	content string
	// cursor is the codepoint offset of the insertion point.
	cursor int
	// killRing holds the most recently cut text for Paste.
	killRing string
}

// NewTextBuffer returns an empty buffer with the cursor at zero.
func NewTextBuffer() *TextBuffer {
	return &TextBuffer{}
}

// Content returns the full buffer text.
func (b *TextBuffer) Content() string {
	return b.content
}

// Cursor returns the cursor position as a codepoint offset.
func (b *TextBuffer) Cursor() int {
	return b.cursor
}

// Len returns the buffer length in codepoints.
func (b *TextBuffer) Len() int {
	count := 0
	for range b.content {
		count++
	}
	return count
}

// byteOffset converts a codepoint offset into a byte offset.
func (b *TextBuffer) byteOffset(position int) int {
	count := 0
	for index := range b.content {
		if count == position {
			return index
		}
		count++
	}
	return len(b.content)
}

// InsertRune inserts one codepoint at the cursor and advances it.
func (b *TextBuffer) InsertRune(character rune) {
	offset := b.byteOffset(b.cursor)
	b.content = b.content[:offset] + string(character) + b.content[offset:]
	b.cursor++
}

// InsertText inserts a string at the cursor, advancing the cursor by the
// inserted codepoint count. Used for kill-ring paste and completion text.
func (b *TextBuffer) InsertText(text string) {
	offset := b.byteOffset(b.cursor)
	b.content = b.content[:offset] + text + b.content[offset:]
	for range text {
		b.cursor++
	}
}

// DeleteBefore removes the codepoint before the cursor. It reports false
// when the cursor is already at the start of the buffer.
func (b *TextBuffer) DeleteBefore() bool {
	if b.cursor == 0 {
		return false
	}
	b.cursor--
	start := b.byteOffset(b.cursor)
	end := b.byteOffset(b.cursor + 1)
	b.content = b.content[:start] + b.content[end:]
	return true
}

// DeleteAt removes the codepoint under the cursor. It reports false when
// the cursor is at the end of the buffer.
func (b *TextBuffer) DeleteAt() bool {
	if b.cursor >= b.Len() {
		return false
	}
	start := b.byteOffset(b.cursor)
	end := b.byteOffset(b.cursor + 1)
	b.content = b.content[:start] + b.content[end:]
	return true
}

// MoveLeft moves the cursor one codepoint left, clamped at zero.
func (b *TextBuffer) MoveLeft() {
	if b.cursor > 0 {
		b.cursor--
	}
}

// MoveRight moves the cursor one codepoint right, clamped at the end.
func (b *TextBuffer) MoveRight() {
	if b.cursor < b.Len() {
		b.cursor++
	}
}

// MoveHome moves the cursor to the start of the buffer.
func (b *TextBuffer) MoveHome() {
	b.cursor = 0
}

// MoveEnd moves the cursor to the end of the buffer.
func (b *TextBuffer) MoveEnd() {
	b.cursor = b.Len()
}

// SetCursor clamps and assigns the cursor position. Used by the Ctrl+X
// position toggle.
func (b *TextBuffer) SetCursor(position int) {
	if position < 0 {
		position = 0
	}
	if limit := b.Len(); position > limit {
		position = limit
	}
	b.cursor = position
}

// wordStartBefore returns the codepoint offset of the word boundary to
// the left of position: trailing whitespace is skipped first, then a
// contiguous run of non-whitespace.
func wordStartBefore(characters []rune, position int) int {
	for position > 0 && unicode.IsSpace(characters[position-1]) {
		position--
	}
	for position > 0 && !unicode.IsSpace(characters[position-1]) {
		position--
	}
	return position
}

// wordEndAfter returns the codepoint offset of the word boundary to the
// right of position: a run of non-whitespace is skipped first, then the
// whitespace that follows it.
func wordEndAfter(characters []rune, position int) int {
	for position < len(characters) && !unicode.IsSpace(characters[position]) {
		position++
	}
	for position < len(characters) && unicode.IsSpace(characters[position]) {
		position++
	}
	return position
}

// MoveWordLeft moves the cursor to the start of the previous word.
func (b *TextBuffer) MoveWordLeft() {
	b.cursor = wordStartBefore([]rune(b.content), b.cursor)
}

// MoveWordRight moves the cursor past the end of the next word.
func (b *TextBuffer) MoveWordRight() {
	b.cursor = wordEndAfter([]rune(b.content), b.cursor)
}

// CutToLineStart removes the text before the cursor, stores it in the
// kill ring, and returns it. The cursor lands at the start of the line.
func (b *TextBuffer) CutToLineStart() string {
	offset := b.byteOffset(b.cursor)
	cut := b.content[:offset]
	b.content = b.content[offset:]
	b.cursor = 0
	if cut != "" {
		b.killRing = cut
	}
	return cut
}

// CutToLineEnd removes the text from the cursor to the end of the line,
// stores it in the kill ring, and returns it.
func (b *TextBuffer) CutToLineEnd() string {
	offset := b.byteOffset(b.cursor)
	cut := b.content[offset:]
	b.content = b.content[:offset]
	if cut != "" {
		b.killRing = cut
	}
	return cut
}

// CutWordBefore removes the word before the cursor using the same
// boundary rule as MoveWordLeft, stores it in the kill ring, and
// returns it.
func (b *TextBuffer) CutWordBefore() string {
	characters := []rune(b.content)
	start := wordStartBefore(characters, b.cursor)
	if start == b.cursor {
		return ""
	}
	startByte := b.byteOffset(start)
	endByte := b.byteOffset(b.cursor)
	cut := b.content[startByte:endByte]
	b.content = b.content[:startByte] + b.content[endByte:]
	b.cursor = start
	if cut != "" {
		b.killRing = cut
	}
	return cut
}

// DeleteWordAfter removes the word after the cursor using the same
// boundary rule as MoveWordRight. The kill ring is left untouched.
func (b *TextBuffer) DeleteWordAfter() {
	characters := []rune(b.content)
	end := wordEndAfter(characters, b.cursor)
	if end == b.cursor {
		return
	}
	startByte := b.byteOffset(b.cursor)
	endByte := b.byteOffset(end)
	b.content = b.content[:startByte] + b.content[endByte:]
}

// Paste inserts the kill-ring contents at the cursor. It reports false
// when the kill ring is empty.
func (b *TextBuffer) Paste() bool {
	if b.killRing == "" {
		return false
	}
	b.InsertText(b.killRing)
	return true
}

// ReplaceRange replaces the codepoint span [start, end) with text and
// places the cursor after the inserted text.
func (b *TextBuffer) ReplaceRange(start int, end int, text string) {
	startByte := b.byteOffset(start)
	endByte := b.byteOffset(end)
	b.content = b.content[:startByte] + text + b.content[endByte:]
	b.cursor = start
	for range text {
		b.cursor++
	}
}

// Clear resets the buffer to empty content with the cursor at zero.
func (b *TextBuffer) Clear() {
	b.content = ""
	b.cursor = 0
}
