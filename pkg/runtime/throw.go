package runtime

import "fmt"

// Throw is a non-local exit in flight: a label naming what is looking for
// it and the value it carries. It travels as a Go error through the
// evaluator; frames that do not recognize the label pass it on.
type Throw struct {
	Label Cell
	Arg   Cell
}

// Error implements error for throws that reach the host uncaught.
func (t *Throw) Error() string {
	switch t.Label.kind {
	case KindError:
		return renderError(t.Label.Context())
	case KindWord:
		return fmt.Sprintf("no catch for throw with name '%s", t.Label.word.Text())
	case KindIssue:
		return fmt.Sprintf("no catch for #%s", t.Label.word.Text())
	case KindAction:
		return "no catch for unwind target (frame already exited?)"
	}
	return "no catch for throw"
}

// IsError reports whether the throw carries a raised error (FAIL).
func (t *Throw) IsError() bool {
	return t.Label.kind == KindError
}

// isSentinel matches the halt/quit sentinel labels, which only dedicated
// traps may catch.
func (t *Throw) isSentinel(sym *Symbol) bool {
	return t.Label.kind == KindIssue && t.Label.word.SameWord(sym)
}

// IsHalt reports a cancellation throw.
func (in *Interp) IsHalt(err error) bool {
	t, ok := err.(*Throw)
	return ok && t.isSentinel(in.symHalt)
}

// IsQuit reports an interpreter-exit throw.
func (in *Interp) IsQuit(err error) bool {
	t, ok := err.(*Throw)
	return ok && t.isSentinel(in.symQuit)
}

// throwNamed builds a named (or unnamed, sym == nil) THROW.
func throwNamed(sym *Symbol, arg *Cell) *Throw {
	t := &Throw{}
	if sym == nil {
		InitNone(&t.Label)
	} else {
		InitWord(&t.Label, sym)
	}
	t.Arg = *arg
	return t
}

// throwSentinel builds a halt/quit throw.
func throwSentinel(sym *Symbol, arg *Cell) *Throw {
	t := &Throw{}
	InitAnyWord(&t.Label, KindIssue, sym)
	if arg != nil {
		t.Arg = *arg
	} else {
		InitNone(&t.Arg)
	}
	return t
}

// throwReturn builds the definitional RETURN throw: the label is an
// action cell whose binding is the frame being returned from, matched by
// identity rather than by name.
func throwReturn(target *Context, arg *Cell) *Throw {
	t := &Throw{}
	t.Label.reset(KindAction)
	t.Label.binding = target
	t.Arg = *arg
	return t
}

// targetsFrame reports whether a throw is a RETURN/UNWIND aimed at the
// frame owning ctx.
func (t *Throw) targetsFrame(ctx *Context) bool {
	return t.Label.kind == KindAction && t.Label.binding == ctx
}

// matchesName reports whether a named throw matches a CATCH/NAME symbol.
func (t *Throw) matchesName(sym *Symbol) bool {
	return t.Label.kind == KindWord && t.Label.word.SameWord(sym)
}

// unnamed reports a plain THROW.
func (t *Throw) unnamed() bool {
	return t.Label.kind == KindNone
}
