package runtime

// Specifier is a virtual-binding overlay: it maps words of selected kinds
// onto a context without touching the array's cells. Overlays chain; a
// feed carries the head of the chain and resolution walks it before
// consulting the cell's own binding.
type Specifier struct {
	ctx   *Context
	kinds TypeSet
	next  *Specifier
}

// Overlay prepends a virtual binding for ctx to the chain. A zero kinds
// mask overlays every word kind.
func Overlay(ctx *Context, kinds TypeSet, next *Specifier) *Specifier {
	if kinds == 0 {
		kinds = tsAnyWord
	}
	return &Specifier{ctx: ctx, kinds: kinds, next: next}
}

// Bind attaches words in arr (from index) to ctx where the context has a
// matching key. Deep binding descends into nested arrays. Cells already
// bound elsewhere are rebound; cells whose word the context lacks are
// left alone.
func (in *Interp) Bind(arr *Series, index int, ctx *Context, deep bool) {
	for i := index; i < arr.Len(); i++ {
		cell := arr.At(i)
		switch {
		case tsAnyWord.Has(cell.kind):
			if n := ctx.Find(cell.word, false); n != 0 {
				cell.binding = ctx
				cell.bindIdx = int32(n)
			}
		case deep && tsAnyArray.Has(cell.kind):
			in.Bind(cell.Series(), 0, ctx, true)
		}
	}
}

// internAll gives every word in arr (deeply) a home: words known to
// neither lib nor user get an unset user slot, the way loaded code is
// interned into the outermost context. Typos then read as no-value
// rather than not-bound, and SET on a quoted word has a slot to land in.
func (in *Interp) internAll(arr *Series) {
	for i := 0; i < arr.Len(); i++ {
		cell := arr.At(i)
		switch {
		case tsAnyWord.Has(cell.kind):
			sym := cell.word
			if in.lib.Find(sym, false) == 0 && in.user.Find(sym, false) == 0 {
				in.user.AppendKey(sym)
			}
		case tsAnyArray.Has(cell.kind):
			in.internAll(cell.Series())
		}
	}
}

// BindOne binds a single word cell to ctx if the key exists.
func BindOne(cell *Cell, ctx *Context) bool {
	n := ctx.Find(cell.word, false)
	if n == 0 {
		return false
	}
	cell.binding = ctx
	cell.bindIdx = int32(n)
	return true
}

// resolve finds the variable slot a word refers to. Resolution order:
//
//  1. Virtual-binding overlays on the specifier chain.
//  2. The cell's own binding, trusting the cached index when it still
//     names the same symbol; otherwise re-find and refresh the cache.
//  3. Outside the evaluator, unbound words fall back to the user context.
//
// Returns the slot plus its home so callers can check slot flags.
func (in *Interp) resolve(cell *Cell, sp *Specifier) (*Cell, *Context, int, error) {
	sym := cell.word

	for ov := sp; ov != nil; ov = ov.next {
		if !ov.kinds.Has(cell.kind) {
			continue
		}
		if n := ov.ctx.Find(sym, false); n != 0 {
			return ov.ctx.Slot(n), ov.ctx, n, nil
		}
	}

	if ctx := cell.binding; ctx != nil {
		if !ctx.vars.Accessible() {
			return nil, nil, 0, in.fail("expired-frame", wordArg(in, sym))
		}
		n := int(cell.bindIdx)
		if n >= 1 && n <= ctx.Len() && ctx.Key(n).SameWord(sym) {
			return ctx.Slot(n), ctx, n, nil
		}
		if n := ctx.Find(sym, false); n != 0 {
			cell.bindIdx = int32(n) // refresh the stale cache
			return ctx.Slot(n), ctx, n, nil
		}
		return nil, nil, 0, in.fail("not-bound", wordArg(in, sym))
	}

	if !in.inEval {
		if n := in.user.Find(sym, false); n != 0 {
			return in.user.Slot(n), in.user, n, nil
		}
	}

	return nil, nil, 0, in.fail("not-bound", wordArg(in, sym))
}

// getVar reads the value a word names. Reading an unset variable is an
// error; the antiform the slot holds never escapes.
func (in *Interp) getVar(cell *Cell, sp *Specifier) (*Cell, error) {
	slot, _, _, err := in.resolve(cell, sp)
	if err != nil {
		return nil, err
	}
	if slot.IsAntiform() && slot.kind == KindNone {
		return nil, in.fail("no-value", wordArg(in, cell.word))
	}
	return slot, nil
}

// setVar writes a value through a word. Protected slots refuse the write;
// unstable values must be decayed or meta-quoted before they land here.
func (in *Interp) setVar(cell *Cell, sp *Specifier, value *Cell) (*Cell, error) {
	slot, _, _, err := in.resolve(cell, sp)
	if err != nil {
		return nil, err
	}
	if slot.GetFlag(FlagProtected) {
		return nil, in.fail("protected-word", wordArg(in, cell.word))
	}

	flags := slot.flags & (FlagProtected | FlagHidden | FlagEnfix)
	*slot = *value
	slot.flags |= flags
	return slot, nil
}

// wordArg wraps a symbol as a word cell for error payloads.
func wordArg(in *Interp, sym *Symbol) *Cell {
	var c Cell
	InitWord(&c, sym)
	return &c
}
