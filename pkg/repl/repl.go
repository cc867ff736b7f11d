// Package repl implements the Read-Eval-Print Loop for Vesta.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/vesta/pkg/runtime"
)

const (
	Prompt         = ">> "
	ContinuePrompt = "   "
)

// REPL is the plain line-based Read-Eval-Print Loop, selected with the
// CLI's --plain flag. The TUI in tui.go is the default front end.
type REPL struct {
	interp  *runtime.Interp
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	history []string
	running bool
}

// New creates a REPL over an existing interpreter.
func New(in *runtime.Interp, stdin io.Reader, stdout, stderr io.Writer) *REPL {
	in.SetStdout(stdout)

	return &REPL{
		interp:  in,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		history: make([]string, 0),
		running: true,
	}
}

// Run starts the REPL loop.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()

	scanner := bufio.NewScanner(r.stdin)
	var multilineBuffer strings.Builder
	inMultiline := false
	openCount := 0

	for r.running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if inMultiline {
			fmt.Fprint(r.stdout, ContinuePrompt)
		} else {
			fmt.Fprint(r.stdout, Prompt)
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			if inMultiline {
				// Empty line in multiline mode - execute what we have
				input := multilineBuffer.String()
				multilineBuffer.Reset()
				inMultiline = false
				openCount = 0
				r.execute(input)
			}
			continue
		}

		if !inMultiline {
			if r.handleCommand(line) {
				continue
			}
		}

		// Track brackets for multiline input
		openCount += countOpen(line)

		if inMultiline {
			multilineBuffer.WriteString("\n")
		}
		multilineBuffer.WriteString(line)

		if openCount > 0 {
			inMultiline = true
			continue
		}

		input := multilineBuffer.String()
		multilineBuffer.Reset()
		inMultiline = false
		openCount = 0

		r.execute(input)
	}

	return scanner.Err()
}

// countOpen tallies bracket nesting on a line, ignoring strings.
func countOpen(line string) int {
	open := 0
	inString := false
	for _, ch := range line {
		switch {
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '[' || ch == '(':
			open++
		case ch == ']' || ch == ')':
			open--
		}
	}
	return open
}

// handleCommand handles special REPL commands. Returns true if handled.
func (r *REPL) handleCommand(line string) bool {
	switch strings.TrimSpace(line) {
	case "quit", "exit":
		r.running = false
		fmt.Fprintln(r.stdout, "Goodbye!")
		return true

	case "help":
		r.printHelp()
		return true

	case "history":
		for i, entry := range r.history {
			fmt.Fprintf(r.stdout, "%3d  %s\n", i+1, entry)
		}
		return true

	case "clear":
		fmt.Fprint(r.stdout, "\033[2J\033[H")
		return true

	case "words":
		r.printWords()
		return true

	case "gc":
		stats := r.interp.Collect()
		fmt.Fprintf(r.stdout, "swept %d series, %d live, %d bytes in use\n",
			stats.Swept, stats.Live, stats.BytesUsed)
		return true
	}

	return false
}

// execute scans and evaluates one input.
func (r *REPL) execute(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	r.history = append(r.history, input)

	out, err := r.interp.Do(input)
	if err != nil {
		if r.interp.IsHalt(err) {
			fmt.Fprintln(r.stderr, "(halted)")
			return
		}
		if r.interp.IsQuit(err) {
			r.running = false
			return
		}
		fmt.Fprintln(r.stderr, err)
		return
	}

	if out.Kind() != runtime.KindVoid {
		fmt.Fprintf(r.stdout, "== %s\n", runtime.Mold(out))
	}
	r.interp.Release(out)
}

func (r *REPL) printWelcome() {
	fmt.Fprintf(r.stdout, "Vesta %s\n", r.interp.ID())
	fmt.Fprintln(r.stdout, "Type 'help' for commands, 'quit' to exit.")
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.stdout, "Commands:")
	fmt.Fprintln(r.stdout, "  help     show this help")
	fmt.Fprintln(r.stdout, "  history  show input history")
	fmt.Fprintln(r.stdout, "  words    list defined words")
	fmt.Fprintln(r.stdout, "  gc       force a garbage collection")
	fmt.Fprintln(r.stdout, "  clear    clear the screen")
	fmt.Fprintln(r.stdout, "  quit     exit the REPL")
}

func (r *REPL) printWords() {
	user := r.interp.User()
	for i := 1; i <= user.Len(); i++ {
		slot := user.Slot(i)
		if slot.GetFlag(runtime.FlagHidden) {
			continue
		}
		kind := "unset"
		if slot.Stable() {
			kind = slot.Kind().String()
		}
		fmt.Fprintf(r.stdout, "  %-20s %s\n", user.Key(i).Text(), kind)
	}
}
