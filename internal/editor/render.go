package editor

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	// maxFileRows caps the filesystem overlay height.
	maxFileRows = 10
	// maxCommandRows caps the command overlay height.
	maxCommandRows = 8
	// descriptionColumn is where command descriptions start.
	descriptionColumn = 20
)

var (
	// dimStyle renders unselected suggestions and indicators.
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	// selectedStyle highlights the active suggestion row.
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	// warnStyle renders exit and escape strike messages.
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	// infoStyle renders informational notices.
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// renderer paints the prompt, the visible input window, and the
// suggestion overlay using plain ANSI positioning. It holds no state
// about the buffer; every call recomputes the window from scratch.
type renderer struct {
	// out receives the escape sequences and text.
	out io.Writer
	// prompt is drawn before the input text.
	prompt string
	// promptWidth is the prompt's display width.
	promptWidth int
	// width is the terminal width in columns.
	width int
}

// newRenderer constructs a renderer for one terminal width.
func newRenderer(out io.Writer, prompt string, width int) *renderer {
	return &renderer{
		out:         out,
		prompt:      prompt,
		promptWidth: runewidth.StringWidth(prompt),
		width:       width,
	}
}

// renderLine redraws the input line and positions the cursor. Long
// content is windowed with « and » truncation indicators.
func (r *renderer) renderLine(buffer *TextBuffer) {
	available := r.width - r.promptWidth
	window := VisibleWindow(buffer.Content(), buffer.Cursor(), available)

	fmt.Fprint(r.out, "\r\x1b[2K")
	fmt.Fprint(r.out, r.prompt)
	if window.TruncatedLeft {
		fmt.Fprint(r.out, dimStyle.Render("«"))
	}
	fmt.Fprint(r.out, window.Text)
	if window.TruncatedRight {
		fmt.Fprint(r.out, dimStyle.Render("»"))
	}

	column := r.promptWidth + window.CursorColumn
	if window.TruncatedLeft {
		column++
	}
	r.moveToColumn(column)
}

// renderWithOverlay redraws the input line plus the suggestion rows
// beneath it, then moves the cursor back into the input line.
func (r *renderer) renderWithOverlay(buffer *TextBuffer, overlay *Overlay) {
	fmt.Fprint(r.out, "\r\x1b[0J")
	r.renderLine(buffer)

	rows := 0
	switch overlay.kind {
	case overlayFiles:
		rows = r.renderFileRows(overlay)
	case overlayCommands:
		rows = r.renderCommandRows(overlay)
	}

	if rows > 0 {
		fmt.Fprintf(r.out, "\x1b[%dA", rows)
	}
	available := r.width - r.promptWidth
	window := VisibleWindow(buffer.Content(), buffer.Cursor(), available)
	column := r.promptWidth + window.CursorColumn
	if window.TruncatedLeft {
		column++
	}
	r.moveToColumn(column)
}

// renderFileRows draws filesystem suggestions and returns the number of
// rows written.
func (r *renderer) renderFileRows(overlay *Overlay) int {
	visible := len(overlay.files)
	if visible > maxFileRows {
		visible = maxFileRows
	}
	for index := 0; index < visible; index++ {
		entry := overlay.files[index]
		marker := "  "
		style := dimStyle
		if index == overlay.selected {
			marker = "> "
			style = selectedStyle
		}
		suffix := ""
		if entry.IsDirectory {
			suffix = "/"
		}
		fmt.Fprint(r.out, "\r\n", style.Render(marker+entry.Name+suffix))
	}
	if len(overlay.files) > visible {
		fmt.Fprint(r.out, "\r\n", dimStyle.Render(fmt.Sprintf("  ... and %d more", len(overlay.files)-visible)))
		return visible + 1
	}
	return visible
}

// renderCommandRows draws command suggestions with their descriptions
// padded into a second column, and returns the number of rows written.
func (r *renderer) renderCommandRows(overlay *Overlay) int {
	descriptions := overlay.commandSource.CommandDescriptions()
	visible := len(overlay.commands)
	if visible > maxCommandRows {
		visible = maxCommandRows
	}
	for index := 0; index < visible; index++ {
		name := overlay.commands[index]
		marker := "  "
		style := dimStyle
		if index == overlay.selected {
			marker = "> "
			style = selectedStyle
		}
		fmt.Fprint(r.out, "\r\n", style.Render(marker+"/"+name))
		if description := descriptions[name]; description != "" {
			padding := 4
			if used := len(name) + 3; used < descriptionColumn {
				padding = descriptionColumn - used
			}
			fmt.Fprint(r.out, dimStyle.Render(strings.Repeat(" ", padding)+description))
		}
	}
	return visible
}

// clearBelow erases everything from the cursor row downward.
func (r *renderer) clearBelow() {
	fmt.Fprint(r.out, "\r\x1b[0J")
}

// moveToColumn positions the cursor at a zero-based display column.
func (r *renderer) moveToColumn(column int) {
	fmt.Fprintf(r.out, "\x1b[%dG", column+1)
}

// warnLine prints a styled notice on its own line below the input.
func (r *renderer) warnLine(text string) {
	fmt.Fprint(r.out, "\r\n", warnStyle.Render(text), "\r\n")
}

// infoLine prints an informational notice on its own line.
func (r *renderer) infoLine(text string) {
	fmt.Fprint(r.out, "\r\n", infoStyle.Render(text), "\r\n")
}

// inlineTag appends a short styled tag at the cursor, used for escape
// strike feedback.
func (r *renderer) inlineTag(text string) {
	fmt.Fprint(r.out, warnStyle.Render(text))
}
