package runtime

// Feed is the evaluator's cursor: an array, a position, and the virtual
// binding specifier travelling with it.
type Feed struct {
	arr   *Series
	index int
	sp    *Specifier
}

// NewFeed starts a feed at the head of arr.
func NewFeed(arr *Series, sp *Specifier) *Feed {
	return &Feed{arr: arr, sp: sp}
}

// AtEnd reports feed exhaustion.
func (fd *Feed) AtEnd() bool {
	return fd.index >= fd.arr.Len()
}

// Current returns the cell under the cursor without advancing.
func (fd *Feed) Current() *Cell {
	return fd.arr.At(fd.index)
}

// Fetch returns the current cell and advances.
func (fd *Feed) Fetch() *Cell {
	c := fd.arr.At(fd.index)
	fd.index++
	return c
}

// Frame is one activation record. It doubles as the storage behind a
// first-class FRAME! once reified: the varlist context outlives the
// invocation only if a reference escaped, otherwise it is tombstoned on
// return.
type Frame struct {
	in    *Interp
	prior *Frame

	feed *Feed
	out  *Cell

	// Two scratch cells with frame lifetime. Cells living here must never
	// be stored into managed arrays.
	spare   Cell
	scratch Cell

	phase    *Action
	original *Action
	label    *Symbol
	varlist  *Context

	// binding came from the invoked cell; definitional RETURN reads its
	// jump target from here.
	binding *Context

	// state drives native continuations across suspensions.
	state byte

	baseline int // data stack height at entry
	manMark  int // manuals list height at entry
	escaped  bool
	depth    int
}

// maxFrameDepth bounds evaluator nesting before a stack-overflow error.
const maxFrameDepth = 4096

// pushFrame links a new frame above the current top.
func (in *Interp) pushFrame(feed *Feed, out *Cell) (*Frame, error) {
	depth := 0
	if in.top != nil {
		depth = in.top.depth + 1
	}
	if depth >= maxFrameDepth {
		return nil, in.fail("stack-overflow")
	}

	f := &Frame{
		in:       in,
		prior:    in.top,
		feed:     feed,
		out:      out,
		baseline: in.dstackLen(),
		manMark:  len(in.manuals),
		depth:    depth,
	}
	InitTrash(&f.spare)
	InitTrash(&f.scratch)
	in.top = f
	return f, nil
}

// popFrame unlinks the frame. On an unwinding exit the manuals allocated
// above the frame's mark are freed; they can no longer be reached.
func (in *Interp) popFrame(f *Frame, unwinding bool) {
	if unwinding {
		for len(in.manuals) > f.manMark {
			s := in.manuals[len(in.manuals)-1]
			in.manuals = in.manuals[:len(in.manuals)-1]
			in.decay(s)
		}
		in.dstackTrim(f.baseline)
	}
	in.top = f.prior

	// Handles exported with this frame's lifetime lose their root here.
	if len(in.apiPairs) > 0 && f.varlist != nil {
		kept := in.apiPairs[:0]
		for _, pair := range in.apiPairs {
			key := pair.PairingKey()
			if key.kind == KindFrame && key.node == f.varlist {
				continue
			}
			kept = append(kept, pair)
		}
		in.apiPairs = kept
	}

	if f.varlist != nil && !f.escaped {
		// No FRAME! reference escaped: tombstone the varlist so stale
		// references fail access but keep identity.
		in.decay(f.varlist.vars)
	}
}

// Out returns the frame's output cell.
func (f *Frame) Out() *Cell {
	return f.out
}

// Spare returns the frame-lifetime spare cell.
func (f *Frame) Spare() *Cell {
	return &f.spare
}

// Arg returns argument slot n (1-indexed, matching the paramlist).
func (f *Frame) Arg(n int) *Cell {
	return f.varlist.Slot(n)
}

// ArgNamed returns the argument slot for a parameter name, or nil.
func (f *Frame) ArgNamed(name string) *Cell {
	sym := f.in.syms.intern(name)
	if n := f.phase.FindParam(sym); n != 0 {
		return f.varlist.Slot(n)
	}
	return nil
}

// RefineActive reports whether a refinement argument was supplied (the
// slot holds anything but none).
func (f *Frame) RefineActive(name string) bool {
	slot := f.ArgNamed(name)
	return slot != nil && slot.kind != KindNone
}

// Reify hands out the frame's context as a first-class FRAME!, moving
// varlist ownership to the GC.
func (f *Frame) Reify() *Context {
	f.escaped = true
	return f.varlist
}

// Label returns the invocation label (word the action was reached by).
func (f *Frame) Label() *Symbol {
	return f.label
}

// keysFor derives (and caches) the keylist matching an action's
// paramlist. Every frame of the action shares it.
func (in *Interp) keysFor(act *Action) *Series {
	if act.keys != nil {
		return act.keys
	}
	keys := in.NewKeylist(act.NumParams())
	for i := 1; i <= act.NumParams(); i++ {
		keys.syms = append(keys.syms, act.Param(i).word)
	}
	keys.used = len(keys.syms)
	keys.flags |= SerShared
	in.Manage(keys)
	act.keys = keys
	return keys
}

// frameContextFor builds a varlist context shaped by the action's
// paramlist, all slots unset.
func (in *Interp) frameContextFor(act *Action) *Context {
	ctx := &Context{
		vars: in.NewArray(act.NumParams() + 1),
		keys: in.keysFor(act),
	}
	ctx.vars.flags |= SerVarlist
	ctx.vars.link = ctx.keys
	ctx.vars.misc = act

	archetype := ctx.vars.AppendCell(&Cell{})
	InitAnyContext(archetype, KindFrame, ctx)
	for i := 1; i <= act.NumParams(); i++ {
		slot := ctx.vars.AppendCell(&Cell{})
		InitTrash(slot)
	}
	in.Manage(ctx.vars)
	return ctx
}
