// TUI front end for the Vesta REPL, built on Bubble Tea.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mwantia/vesta/pkg/runtime"
)

// NewTUI creates a new TUI REPL model.
func NewTUI(in *runtime.Interp) Model {
	ti := textinput.New()
	ti.Prompt = "" // Remove default "> " prompt
	ti.Placeholder = ""
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 80

	si := textinput.New()
	si.Placeholder = "Search..."
	si.CharLimit = 100
	si.Width = 40

	return Model{
		interp:       in,
		textInput:    ti,
		searchInput:  si,
		history:      make([]HistoryEntry, 0),
		historyIndex: -1,
		commandIndex: 0,
		output:       make([]OutputLine, 0),
		focus:        FocusInput,
		status:       StatusReady,
		statusMsg:    "Ready",
		width:        80,
		height:       24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("Vesta REPL"),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - len(Prompt) - 2
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}
		return m.updateInput(msg)
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.inMultiline {
			m.inputBuffer.Reset()
			m.inMultiline = false
			m.openCount = 0
			m.textInput.SetValue("")
			m.statusMsg = "Cancelled"
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyCtrlD:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyCtrlL:
		m.output = nil
		m.scrollOffset = 0
		return m, nil

	case tea.KeyCtrlR:
		m.searchMode = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.searchResults = nil
		m.searchCursor = 0
		return m, nil

	case tea.KeyUp:
		m.recallHistory(-1)
		return m, nil

	case tea.KeyDown:
		m.recallHistory(1)
		return m, nil

	case tea.KeyPgUp:
		m.scrollOffset += 5
		if m.scrollOffset > len(m.output) {
			m.scrollOffset = len(m.output)
		}
		return m, nil

	case tea.KeyPgDown:
		m.scrollOffset -= 5
		if m.scrollOffset < 0 {
			m.scrollOffset = 0
		}
		return m, nil

	case tea.KeyEnter:
		return m.submit()
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) recallHistory(dir int) {
	if len(m.history) == 0 {
		return
	}
	if m.historyIndex == -1 {
		if dir > 0 {
			return
		}
		m.savedInput = m.textInput.Value()
		m.historyIndex = len(m.history) - 1
	} else {
		m.historyIndex += dir
		if m.historyIndex >= len(m.history) {
			m.historyIndex = -1
			m.textInput.SetValue(m.savedInput)
			return
		}
		if m.historyIndex < 0 {
			m.historyIndex = 0
		}
	}
	m.textInput.SetValue(m.history[m.historyIndex].Input)
	m.textInput.CursorEnd()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.textInput.Value()
	m.textInput.SetValue("")
	m.historyIndex = -1

	if !m.inMultiline && strings.TrimSpace(line) == "" {
		return m, nil
	}

	m.openCount += countOpen(line)
	if m.inMultiline {
		m.inputBuffer.WriteString("\n")
	}
	m.inputBuffer.WriteString(line)

	if m.openCount > 0 {
		m.inMultiline = true
		return m, nil
	}

	input := m.inputBuffer.String()
	m.inputBuffer.Reset()
	m.inMultiline = false
	m.openCount = 0

	m.execute(input)
	return m, nil
}

// execute runs one complete input through the interpreter.
func (m *Model) execute(input string) {
	m.commandIndex++
	m.history = append(m.history, HistoryEntry{
		Index: m.commandIndex,
		Input: input,
		Exec:  time.Now(),
	})
	m.pushOutput(fmt.Sprintf("[%d] %s", m.commandIndex, input), OutputCommand)

	m.status = StatusExecuting
	m.outputCapture.Reset()
	m.interp.SetStdout(&m.outputCapture)

	started := time.Now()
	out, err := m.interp.Do(input)
	elapsed := time.Since(started)

	if captured := m.outputCapture.String(); captured != "" {
		m.pushOutput(strings.TrimRight(captured, "\n"), OutputNormal)
	}

	switch {
	case err != nil && m.interp.IsQuit(err):
		m.quitting = true
	case err != nil && m.interp.IsHalt(err):
		m.pushOutput("(halted)", OutputInfo)
		m.status = StatusReady
		m.statusMsg = "Halted"
	case err != nil:
		m.pushOutput(err.Error(), OutputError)
		m.status = StatusError
		m.statusMsg = "Error"
	default:
		if out.Kind() != runtime.KindVoid {
			m.pushOutput("== "+runtime.Mold(out), OutputResult)
		}
		m.interp.Release(out)
		m.status = StatusReady
		m.statusMsg = fmt.Sprintf("Ready (%s)", elapsed.Round(time.Microsecond))
	}
	m.scrollOffset = 0
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searchMode = false
		m.textInput.Focus()
		return m, nil

	case tea.KeyEnter:
		if len(m.searchResults) > 0 {
			entry := m.history[m.searchResults[m.searchCursor]]
			m.textInput.SetValue(entry.Input)
			m.textInput.CursorEnd()
		}
		m.searchMode = false
		m.textInput.Focus()
		return m, nil

	case tea.KeyUp:
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case tea.KeyDown:
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	// Refresh matches, newest first.
	m.searchResults = m.searchResults[:0]
	needle := strings.ToLower(m.searchInput.Value())
	for i := len(m.history) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(m.history[i].Input), needle) {
			m.searchResults = append(m.searchResults, i)
		}
	}
	if m.searchCursor >= len(m.searchResults) {
		m.searchCursor = 0
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	outputRows := m.height - 3
	for _, line := range m.visibleOutput(outputRows) {
		switch line.Type {
		case OutputCommand:
			sb.WriteString(historyCommandStyle.Render(line.Text))
		case OutputResult:
			sb.WriteString(resultStyle.Render(line.Text))
		case OutputError:
			sb.WriteString(errorStyle.Render(line.Text))
		case OutputInfo:
			sb.WriteString(infoStyle.Render(line.Text))
		default:
			sb.WriteString(line.Text)
		}
		sb.WriteString("\n")
	}

	if m.searchMode {
		var search strings.Builder
		search.WriteString(m.searchInput.View())
		search.WriteString("\n")
		for i, idx := range m.searchResults {
			if i >= 5 {
				break
			}
			line := m.history[idx].Input
			if i == m.searchCursor {
				search.WriteString(searchSelectedStyle.Render(line))
			} else {
				search.WriteString(searchResultStyle.Render(line))
			}
			search.WriteString("\n")
		}
		sb.WriteString(searchBoxStyle.Render(search.String()))
		sb.WriteString("\n")
	} else {
		prompt := Prompt
		if m.inMultiline {
			prompt = ContinuePrompt
		}
		sb.WriteString(promptStyle.Render(prompt))
		sb.WriteString(m.textInput.View())
		sb.WriteString("\n")
	}

	gc := m.interp.LastGC()
	status := fmt.Sprintf("%s │ %s │ gc: %d live %d bytes",
		m.statusMsg, shortID(m.interp), gc.Live, gc.BytesUsed)
	sb.WriteString(statusBarStyle.Width(m.width).Render(status))

	return sb.String()
}

// shortID abbreviates the interpreter instance id for the status bar.
func shortID(in *runtime.Interp) string {
	id := in.ID().String()
	if len(id) > 8 {
		id = id[:8]
	}
	return indexStyle.Render(id)
}

var _ tea.Model = Model{}

// RunTUI starts the interactive TUI REPL over an interpreter.
func RunTUI(in *runtime.Interp) error {
	p := tea.NewProgram(NewTUI(in))
	_, err := p.Run()
	return err
}
