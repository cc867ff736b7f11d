package runtime

import (
	"fmt"
	"strings"
)

// Error contexts follow a fixed prototype. The first slots are always
// present, in this order.
var errorProtoKeys = []string{
	"type", "id", "message", "arg1", "arg2", "arg3",
	"near", "where", "file", "line",
}

// errorSpec maps an error id to its category and message template.
// Templates substitute :arg1/:arg2/:arg3 with molded arguments.
type errorSpec struct {
	typ     string
	message string
}

var errorSpecs = map[string]errorSpec{
	"no-value":       {"script", ":arg1 word has no value"},
	"not-bound":      {"script", ":arg1 word is not bound to a context"},
	"protected-word": {"script", "the word :arg1 is protected, cannot modify"},
	"bad-refine":     {"script", "incompatible or duplicate refinement: :arg1"},
	"need-non-end":   {"script", ":arg1 is missing its argument"},
	"bad-parameter":  {"script", "invalid parameter spec: :arg1"},
	"expect-arg":     {"script", ":arg1 expects :arg3 for its :arg2 argument"},
	"invalid-arg":    {"script", "invalid argument: :arg1"},
	"bad-make":       {"script", "cannot MAKE :arg1 from: :arg2"},
	"out-of-range":   {"script", "value out of range: :arg1"},
	"bad-cast":       {"script", "cannot convert :arg1 to :arg2"},
	"expired-frame":  {"script", ":arg1 references a frame that has ended"},
	"bad-antiform":   {"script", "cannot store an unstable antiform in :arg1"},
	"no-catch":       {"script", "no catch for throw: :arg1"},
	"bad-path-pick":  {"script", "cannot pick :arg1 in path"},
	"zero-divide":    {"math", "attempt to divide by zero"},
	"overflow":       {"math", "math or number overflow"},
	"positive":       {"math", "positive number required"},
	"stack-overflow": {"internal", "stack overflow"},
	"no-memory":      {"internal", "not enough memory"},
	"invariant":      {"internal", "runtime invariant violated: :arg1"},
	"protected":      {"access", "protected value or series, cannot modify"},
	"user":           {"user", ":arg1"},
	"halted":         {"halt", "halted by user or script"},
}

// makeErrorCtx constructs an error context for id, capturing where/near
// from the live frame stack.
func (in *Interp) makeErrorCtx(id string, args ...*Cell) *Context {
	spec, ok := errorSpecs[id]
	if !ok {
		spec = errorSpec{typ: "script", message: "unknown error: " + id}
	}

	ctx := in.NewContext(KindError, len(errorProtoKeys))
	for _, key := range errorProtoKeys {
		ctx.AppendKey(in.syms.intern(key))
	}

	InitWord(ctx.Slot(1), in.syms.intern(spec.typ))
	InitWord(ctx.Slot(2), in.syms.intern(id))

	msg := in.NewBytes(len(spec.message), true)
	msg.AppendBytes([]byte(spec.message))
	in.Manage(msg)
	InitText(ctx.Slot(3), msg)

	for i, arg := range args {
		if i >= 3 {
			break
		}
		*ctx.Slot(4+i) = *arg
	}

	in.fillErrorLocation(ctx)
	return ctx
}

// fillErrorLocation records where (frame labels, innermost first) and
// near (the source in flight) from the current frame stack.
func (in *Interp) fillErrorLocation(ctx *Context) {
	where := in.NewArray(4)
	var near *Frame
	for f := in.top; f != nil; f = f.prior {
		if f.label != nil {
			var w Cell
			InitWord(&w, f.label)
			where.AppendCell(&w)
		}
		if near == nil && f.feed != nil {
			near = f
		}
	}
	in.Manage(where)
	InitBlock(ctx.Slot(8), where)

	if near != nil {
		from := near.feed.index - 1
		if from < 0 {
			from = 0
		}
		copied := in.CopyArray(near.feed.arr, from, false)
		in.Manage(copied)
		InitBlock(ctx.Slot(7), copied)

		if file, ok := near.feed.arr.link.(string); ok && file != "" {
			fs := in.NewBytes(len(file), true)
			fs.AppendBytes([]byte(file))
			in.Manage(fs)
			InitText(ctx.Slot(9), fs)
		}
		if line, ok := near.feed.arr.misc.(int); ok && line > 0 {
			InitInteger(ctx.Slot(10), int64(line))
		}
	}
}

// fail raises error id: it builds the context and throws it. The error
// cell itself is the throw label, so only error traps recognize it.
func (in *Interp) fail(id string, args ...*Cell) error {
	ctx := in.makeErrorCtx(id, args...)
	t := &Throw{}
	InitError(&t.Label, ctx)
	t.Arg = t.Label
	return t
}

// failCtx throws an already-built error context (FAIL on an error value).
func failCtx(ctx *Context) error {
	t := &Throw{}
	InitError(&t.Label, ctx)
	t.Arg = t.Label
	return t
}

// ErrorID returns the id word of an error context, or "".
func ErrorID(ctx *Context) string {
	if ctx.Len() < 2 {
		return ""
	}
	slot := ctx.Slot(2)
	if slot.kind != KindWord {
		return ""
	}
	return slot.word.Text()
}

// renderError produces the user-visible form of an uncaught error:
// type/id, the substituted message, where, near, and file/line.
func renderError(ctx *Context) string {
	var sb strings.Builder

	typ, id := "script", ""
	if ctx.Slot(1).kind == KindWord {
		typ = ctx.Slot(1).word.Text()
	}
	if ctx.Slot(2).kind == KindWord {
		id = ctx.Slot(2).word.Text()
	}
	title := strings.ToUpper(typ[:1]) + typ[1:]
	fmt.Fprintf(&sb, "** %s Error (%s): %s", title, id, substituteMessage(ctx))

	if where := ctx.Slot(8); where.kind == KindBlock && where.Series().Len() > 0 {
		fmt.Fprintf(&sb, "\n** Where: %s", formCell(where))
	}
	if near := ctx.Slot(7); near.kind == KindBlock {
		fmt.Fprintf(&sb, "\n** Near: %s", moldLimited(near, 60))
	}
	if file := ctx.Slot(9); file.kind == KindText {
		fmt.Fprintf(&sb, "\n** File: %s", string(file.Series().Bytes()))
		if line := ctx.Slot(10); line.kind == KindInteger {
			fmt.Fprintf(&sb, " line %d", line.Int())
		}
	}
	return sb.String()
}

// substituteMessage expands the message template with molded args.
func substituteMessage(ctx *Context) string {
	msg := ctx.Slot(3)
	if msg.kind != KindText {
		return "(no message)"
	}
	text := string(msg.Series().Bytes())

	for i, name := range []string{":arg1", ":arg2", ":arg3"} {
		if !strings.Contains(text, name) {
			continue
		}
		arg := ctx.Slot(4 + i)
		rep := "~unset~"
		if !arg.IsAntiform() {
			rep = formCell(arg)
		}
		text = strings.ReplaceAll(text, name, rep)
	}
	return text
}
