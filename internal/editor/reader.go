package editor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
)

const (
	// pollInterval is the fixed terminal polling interval.
	pollInterval = 100 * time.Millisecond
	// exitStrikes is the number of Ctrl+C presses needed to exit.
	exitStrikes = 3
	// escStrikes is the number of Escape presses needed to clear input.
	escStrikes = 3
	// tabSpaces is the literal expansion of the Tab key.
	tabSpaces = 4
)

// errInputClosed marks EOF on the terminal input stream.
var errInputClosed = errors.New("terminal input closed")

// Reader reads one line of user input per ReadLine call, driving the
// text buffer, the autocomplete overlay, and the renderer from a
// single-threaded poll loop. It owns the terminal for the duration of a
// call: raw mode is entered on the way in and restored on every exit
// path.
type Reader struct {
	// prompt is rendered before the input text.
	prompt string
	// files provides filesystem suggestions for '@' triggers.
	files FileSuggester
	// commands provides slash-command lookup and suggestions.
	commands CommandSource
	// in is the terminal input stream.
	in *os.File
	// out receives rendered output.
	out io.Writer
	// exitCount tracks consecutive Ctrl+C presses.
	exitCount int
	// escCount tracks consecutive Escape presses.
	escCount int
	// width is the terminal width in columns.
	width int
	// height is the terminal height in rows.
	height int
	// pending buffers raw bytes awaiting key decoding.
	pending []byte
	// prevCursor remembers the cursor position for the Ctrl+X toggle.
	prevCursor int
	// hasPrevCursor reports whether prevCursor is set.
	hasPrevCursor bool
}

// NewReader constructs a Reader bound to the process terminal.
func NewReader(prompt string, files FileSuggester, commands CommandSource) *Reader {
	return &Reader{
		prompt:   prompt,
		files:    files,
		commands: commands,
		in:       os.Stdin,
		out:      os.Stdout,
		width:    80,
		height:   24,
	}
}

// ReadLine reads events until the user produces exactly one InputEvent.
// Without an attached terminal it yields an exit event immediately
// instead of attempting raw mode.
func (r *Reader) ReadLine() (InputEvent, error) {
	descriptor := int(r.in.Fd())
	if !term.IsTerminal(descriptor) {
		return InputEvent{Kind: EventExitRequest, Count: exitStrikes}, nil
	}

	previousState, err := term.MakeRaw(descriptor)
	if err != nil {
		return InputEvent{}, fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(descriptor, previousState)

	if width, height, sizeErr := term.GetSize(descriptor); sizeErr == nil {
		r.width = width
		r.height = height
	}

	buffer := NewTextBuffer()
	overlay := newOverlay(r.files, r.commands)
	painter := newRenderer(r.out, r.prompt, r.width)
	painter.renderLine(buffer)

	for {
		key, pollErr := r.pollKey()
		if pollErr != nil {
			if errors.Is(pollErr, errInputClosed) {
				fmt.Fprint(r.out, "\r\n")
				return InputEvent{Kind: EventInterrupt}, nil
			}
			return InputEvent{}, pollErr
		}
		if key.Kind == keyNone {
			continue
		}
		if event := r.handleKey(key, buffer, overlay, painter); event != nil {
			return *event, nil
		}
	}
}

// handleKey applies one key to the editing state and returns a non-nil
// event when the read call should finish.
func (r *Reader) handleKey(key Key, buffer *TextBuffer, overlay *Overlay, painter *renderer) *InputEvent {
	// Strike counters are independent and reset on any other keystroke.
	if key.Kind != keyCtrlC {
		r.exitCount = 0
	}
	if key.Kind != keyEsc {
		r.escCount = 0
	}

	switch key.Kind {
	case keyEnter:
		return r.handleEnter(buffer, overlay, painter)

	case keyCtrlC:
		r.exitCount++
		if r.exitCount >= exitStrikes {
			fmt.Fprint(r.out, "\r\n")
			return &InputEvent{Kind: EventExitRequest, Count: r.exitCount}
		}
		overlay.Close()
		painter.warnLine(fmt.Sprintf(
			"Exit request %d of %d (press %d more times to exit)",
			r.exitCount, exitStrikes, exitStrikes-r.exitCount,
		))
		painter.renderLine(buffer)

	case keyCtrlD:
		if buffer.Content() == "" {
			fmt.Fprint(r.out, "\r\n")
			return &InputEvent{Kind: EventExitRequest, Count: exitStrikes}
		}
		if buffer.DeleteAt() {
			r.refresh(buffer, overlay, painter)
		}

	case keyEsc:
		r.handleEscape(buffer, overlay, painter)

	case keyUp:
		if overlay.Active() && overlay.MoveSelection(-1) {
			painter.renderWithOverlay(buffer, overlay)
		}

	case keyDown:
		if overlay.Active() && overlay.MoveSelection(1) {
			painter.renderWithOverlay(buffer, overlay)
		}

	case keyLeft, keyCtrlB:
		buffer.MoveLeft()
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyRight, keyCtrlF:
		buffer.MoveRight()
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyHome, keyCtrlA:
		buffer.MoveHome()
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyEnd, keyCtrlE:
		buffer.MoveEnd()
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyWordLeft:
		buffer.MoveWordLeft()
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyWordRight:
		buffer.MoveWordRight()
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyBackspace:
		if buffer.DeleteBefore() {
			r.refresh(buffer, overlay, painter)
		}

	case keyDelete:
		if buffer.DeleteAt() {
			r.refresh(buffer, overlay, painter)
		}

	case keyCtrlU:
		buffer.CutToLineStart()
		r.refresh(buffer, overlay, painter)

	case keyCtrlK:
		buffer.CutToLineEnd()
		r.refresh(buffer, overlay, painter)

	case keyCtrlW:
		buffer.CutWordBefore()
		r.refresh(buffer, overlay, painter)

	case keyCtrlY:
		if buffer.Paste() {
			r.refresh(buffer, overlay, painter)
		}

	case keyDeleteWord:
		buffer.DeleteWordAfter()
		r.refresh(buffer, overlay, painter)

	case keyCtrlL:
		fmt.Fprint(r.out, "\x1b[2J\x1b[H")
		painter.renderLine(buffer)

	case keyCtrlX:
		if r.hasPrevCursor {
			current := buffer.Cursor()
			buffer.SetCursor(r.prevCursor)
			r.prevCursor = current
		} else {
			r.prevCursor = buffer.Cursor()
			r.hasPrevCursor = true
			buffer.MoveHome()
		}
		r.refreshAfterMotion(buffer, overlay, painter)

	case keyTab:
		for index := 0; index < tabSpaces; index++ {
			buffer.InsertRune(' ')
		}
		r.refresh(buffer, overlay, painter)

	case keyRune:
		r.handleRune(key.Rune, buffer, overlay, painter)
	}

	return nil
}

// handleRune inserts a printable character, honoring the overlay
// cancellation rules: a space always collapses the overlay, and a
// second '@' while browsing files is swallowed.
func (r *Reader) handleRune(character rune, buffer *TextBuffer, overlay *Overlay, painter *renderer) {
	if character == ' ' && overlay.Active() {
		overlay.Close()
		buffer.InsertRune(character)
		painter.clearBelow()
		painter.renderLine(buffer)
		return
	}
	if character == '@' && overlay.browsingFiles() {
		return
	}
	buffer.InsertRune(character)
	r.refresh(buffer, overlay, painter)
}

// handleEscape closes a visible overlay without counting a strike, or
// counts toward the clear-input threshold otherwise.
func (r *Reader) handleEscape(buffer *TextBuffer, overlay *Overlay, painter *renderer) {
	if overlay.Active() {
		overlay.Close()
		r.escCount = 0
		painter.clearBelow()
		painter.renderLine(buffer)
		return
	}
	r.escCount++
	if r.escCount >= escStrikes {
		buffer.Clear()
		r.escCount = 0
		painter.infoLine("Input cleared")
		painter.renderLine(buffer)
		return
	}
	painter.inlineTag(fmt.Sprintf(" [ESC: %d/%d]", r.escCount, escStrikes))
}

// handleEnter commits an active autocomplete selection, executes slash
// commands, or submits the line.
func (r *Reader) handleEnter(buffer *TextBuffer, overlay *Overlay, painter *renderer) *InputEvent {
	if overlay.Active() {
		committed, browsing := overlay.Commit(buffer)
		if committed {
			if browsing {
				painter.renderWithOverlay(buffer, overlay)
			} else {
				painter.clearBelow()
				painter.renderLine(buffer)
			}
			return nil
		}
	}

	line := strings.TrimSpace(buffer.Content())
	if strings.HasPrefix(line, "/") {
		if event := r.dispatchCommand(strings.TrimPrefix(line, "/"), buffer, painter); event != nil {
			return event
		}
		return nil
	}

	if line == "" {
		painter.renderLine(buffer)
		return nil
	}

	fmt.Fprint(r.out, "\r\n")
	r.exitCount = 0
	r.escCount = 0
	return &InputEvent{Kind: EventUserInput, Text: line}
}

// dispatchCommand routes a slash command line: engine commands are
// handed back to the caller as events, registry commands execute in
// place, and unknown commands leave the line editable.
func (r *Reader) dispatchCommand(commandLine string, buffer *TextBuffer, painter *renderer) *InputEvent {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		painter.renderLine(buffer)
		return nil
	}

	if r.commands.NeedsEngine(fields[0]) {
		fmt.Fprint(r.out, "\r\n")
		r.exitCount = 0
		r.escCount = 0
		return &InputEvent{Kind: EventEngineCommand, Text: commandLine}
	}

	output, found, err := r.commands.Execute(commandLine)
	if !found {
		// Not a registered command; keep the line for editing.
		painter.renderLine(buffer)
		return nil
	}
	fmt.Fprint(r.out, "\r\n")
	r.exitCount = 0
	r.escCount = 0
	if err != nil {
		output = "Error: " + err.Error()
	}
	return &InputEvent{Kind: EventCommandOutput, Text: output}
}

// refresh re-evaluates the overlay after a content mutation and
// repaints. The overlay variant is recomputed on every mutating
// keystroke so it is never partially stale.
func (r *Reader) refresh(buffer *TextBuffer, overlay *Overlay, painter *renderer) {
	overlay.Update(buffer)
	if overlay.Active() {
		painter.renderWithOverlay(buffer, overlay)
		return
	}
	painter.clearBelow()
	painter.renderLine(buffer)
}

// refreshAfterMotion repaints after a cursor move. An open overlay is
// recomputed since the trigger prefix may have changed under it.
func (r *Reader) refreshAfterMotion(buffer *TextBuffer, overlay *Overlay, painter *renderer) {
	if !overlay.Active() {
		painter.renderLine(buffer)
		return
	}
	r.refresh(buffer, overlay, painter)
}

// pollKey returns the next decoded key, blocking only on the fixed
// poll interval. A lone escape byte left pending after a quiet interval
// is reported as a bare Escape press.
func (r *Reader) pollKey() (Key, error) {
	for {
		if key, used := decodeKey(r.pending); used > 0 {
			r.pending = r.pending[used:]
			return key, nil
		}

		count, err := r.readWait()
		if err != nil {
			return Key{}, err
		}
		if count == 0 && len(r.pending) == 1 && r.pending[0] == asciiEsc {
			r.pending = r.pending[:0]
			return Key{Kind: keyEsc}, nil
		}
	}
}

// readWait performs one nonblocking read of the terminal, sleeping for
// the poll interval when no bytes are available. It returns the number
// of bytes added to the pending buffer.
func (r *Reader) readWait() (int, error) {
	descriptor := int(r.in.Fd())
	syscall.SetNonblock(descriptor, true)
	chunk := make([]byte, 64)
	count, err := syscall.Read(descriptor, chunk)
	syscall.SetNonblock(descriptor, false)

	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(pollInterval)
			return 0, nil
		}
		if err == syscall.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("read terminal: %w", err)
	}
	if count == 0 {
		return 0, errInputClosed
	}
	r.pending = append(r.pending, chunk[:count]...)
	return count, nil
}
