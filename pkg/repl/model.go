package repl

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/mwantia/vesta/pkg/runtime"
)

// Model is the Bubble Tea model for the TUI REPL.
type Model struct {
	// Interpreter
	interp *runtime.Interp

	// Input state
	textInput   textinput.Model
	inMultiline bool
	openCount   int
	inputBuffer strings.Builder // Accumulated multiline input

	// History
	history      []HistoryEntry
	historyIndex int // -1 = current input, 0+ = history position
	savedInput   string
	commandIndex int // Index of the most recent command [N]

	// Output
	output       []OutputLine
	scrollOffset int

	// Search mode
	searchMode    bool
	searchInput   textinput.Model
	searchResults []int // Indices into history
	searchCursor  int

	// UI state
	width     int
	height    int
	focus     Focus
	status    Status
	statusMsg string

	// Capture of PRINT output during execution
	outputCapture strings.Builder

	// Quit flag
	quitting bool
}

// pushOutput appends a line to the output buffer.
func (m *Model) pushOutput(text string, typ OutputType) {
	for _, line := range strings.Split(text, "\n") {
		m.output = append(m.output, OutputLine{
			Text:       line,
			Type:       typ,
			HistoryIdx: m.commandIndex,
		})
	}
}

// visibleOutput returns the slice of output lines that fit the viewport.
func (m *Model) visibleOutput(rows int) []OutputLine {
	if rows <= 0 || len(m.output) == 0 {
		return nil
	}
	end := len(m.output) - m.scrollOffset
	if end > len(m.output) {
		end = len(m.output)
	}
	if end < 0 {
		end = 0
	}
	start := end - rows
	if start < 0 {
		start = 0
	}
	return m.output[start:end]
}
