package repl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mwantia/vesta/pkg/runtime"

	_ "github.com/mwantia/vesta/pkg/scan"
)

func newReplTest(stdin *strings.Reader, stdout, stderr *bytes.Buffer) (*REPL, *runtime.Interp) {
	in := runtime.New()
	return New(in, stdin, stdout, stderr), in
}

func TestREPLExecute(t *testing.T) {
	input := "x: 42\nprint x\nquit\n"
	reader := strings.NewReader(input)
	var output bytes.Buffer

	r, in := newReplTest(reader, &output, &output)
	defer in.Shutdown()

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("REPL error: %v", err)
	}

	outputStr := output.String()
	if !strings.Contains(outputStr, "42") {
		t.Errorf("expected output to contain '42', got: %s", outputStr)
	}
}

func TestREPLArithmetic(t *testing.T) {
	input := "1 + 2 * 3\nquit\n"
	reader := strings.NewReader(input)
	var output bytes.Buffer

	r, in := newReplTest(reader, &output, &output)
	defer in.Shutdown()

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("REPL error: %v", err)
	}

	if !strings.Contains(output.String(), "== 9") {
		t.Errorf("expected output to contain '== 9', got: %s", output.String())
	}
}

func TestREPLMultiline(t *testing.T) {
	input := "obj: make object! [\na: 1\nb: 2\n]\nobj.a + obj.b\nquit\n"
	reader := strings.NewReader(input)
	var output bytes.Buffer

	r, in := newReplTest(reader, &output, &output)
	defer in.Shutdown()

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("REPL error: %v", err)
	}

	if !strings.Contains(output.String(), "== 3") {
		t.Errorf("expected output to contain '== 3', got: %s", output.String())
	}
}

func TestREPLErrorRecovery(t *testing.T) {
	input := "1 / 0\n2 + 2\nquit\n"
	reader := strings.NewReader(input)
	var output bytes.Buffer

	r, in := newReplTest(reader, &output, &output)
	defer in.Shutdown()

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("REPL error: %v", err)
	}

	outputStr := output.String()
	if !strings.Contains(outputStr, "zero-divide") {
		t.Errorf("expected a zero-divide error, got: %s", outputStr)
	}
	if !strings.Contains(outputStr, "== 4") {
		t.Errorf("REPL must keep running after an error, got: %s", outputStr)
	}
}

func TestCountOpen(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"[a b]", 0},
		{"make object! [", 1},
		{"[(", 2},
		{"]", -1},
		{`"[not a bracket]"`, 0},
	}
	for _, tt := range tests {
		if got := countOpen(tt.line); got != tt.want {
			t.Errorf("countOpen(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}
