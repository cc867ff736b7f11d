package runtime

// Context is a named-slot object: a varlist of cells whose slot 0 is the
// archetype, paired with a keylist of symbols. Slot i (1-indexed) holds
// the value for key i. Keylists may be shared across contexts; a shared
// keylist is made unique before any structural change. The varlist's link
// points at the keylist, the keylist's link at its ancestor.
type Context struct {
	vars *Series // SerVarlist array, slot 0 = archetype
	keys *Series // SerKeylist, shared or unique
}

// NewContext creates an empty context of the given archetype kind with
// room for capacity slots. The context is managed from birth; contexts
// are reachable through too many cells to track manually.
func (in *Interp) NewContext(kind Kind, capacity int) *Context {
	ctx := &Context{
		vars: in.NewArray(capacity + 1),
		keys: in.NewKeylist(capacity),
	}
	ctx.vars.flags |= SerVarlist
	ctx.vars.link = ctx.keys

	archetype := ctx.vars.AppendCell(&Cell{})
	InitAnyContext(archetype, kind, ctx)

	in.Manage(ctx.vars)
	in.Manage(ctx.keys)
	return ctx
}

// Kind returns the archetype kind (object!, frame!, error!).
func (c *Context) Kind() Kind {
	return c.vars.At(0).kind
}

// Len returns the number of slots, not counting the archetype.
func (c *Context) Len() int {
	return c.keys.Len()
}

// Key returns the symbol for slot index (1-indexed).
func (c *Context) Key(index int) *Symbol {
	return c.keys.Symbols()[index-1]
}

// Slot returns the value cell for slot index (1-indexed).
func (c *Context) Slot(index int) *Cell {
	return c.vars.At(index)
}

// Archetype returns the canonical cell for this context.
func (c *Context) Archetype() *Cell {
	return c.vars.At(0)
}

// Find locates a key by symbol and returns its 1-based index, or 0. The
// default comparison is case-insensitive; strict compares spellings.
func (c *Context) Find(sym *Symbol, strict bool) int {
	for i, key := range c.keys.Symbols() {
		if strict {
			if key == sym {
				return i + 1
			}
		} else if key.SameWord(sym) {
			return i + 1
		}
	}
	return 0
}

// ensureUniqueKeys copies a shared keylist before structural change. The
// copy keeps the original as its ancestor so subtype checks still pass.
func (c *Context) ensureUniqueKeys() {
	if c.keys.flags&SerShared == 0 {
		return
	}
	in := c.vars.in
	fresh := in.NewKeylist(c.keys.Len())
	fresh.syms = append(fresh.syms, c.keys.Symbols()...)
	fresh.used = len(fresh.syms)
	fresh.link = c.keys
	in.Manage(fresh)
	c.keys = fresh
	c.vars.link = fresh
}

// AppendKey adds a slot for sym and returns its value cell, initialized
// to trash (unset).
func (c *Context) AppendKey(sym *Symbol) *Cell {
	c.ensureUniqueKeys()
	c.keys.syms = append(c.keys.syms[:c.keys.bias+c.keys.used], sym)
	c.keys.used++

	slot := c.vars.AppendCell(&Cell{})
	InitTrash(slot)
	return slot
}

// Extend widens the context by extra slots taken from arr's top-level
// set-words, forcing a unique keylist.
func (c *Context) Extend(arr *Series, index int) {
	for i := index; i < arr.Len(); i++ {
		cell := arr.At(i)
		if cell.kind != KindSetWord {
			continue
		}
		if c.Find(cell.word, false) == 0 {
			c.AppendKey(cell.word)
		}
	}
}

// collectContext scans an array for top-level set-words and builds a
// context sized to hold them (the create-detect operation behind
// MAKE OBJECT!).
func (in *Interp) collectContext(kind Kind, arr *Series, index int) *Context {
	count := 0
	for i := index; i < arr.Len(); i++ {
		if arr.At(i).kind == KindSetWord {
			count++
		}
	}

	ctx := in.NewContext(kind, count)
	ctx.Extend(arr, index)
	return ctx
}

// Inherit creates a child context sharing this context's keylist. Values
// are copied shallowly; the keylist is flagged shared on both sides.
func (in *Interp) Inherit(parent *Context) *Context {
	ctx := &Context{
		vars: in.NewArray(parent.Len() + 1),
		keys: parent.keys,
	}
	ctx.vars.flags |= SerVarlist
	ctx.vars.link = ctx.keys
	parent.keys.flags |= SerShared

	archetype := ctx.vars.AppendCell(&Cell{})
	InitAnyContext(archetype, parent.Kind(), ctx)
	for i := 1; i <= parent.Len(); i++ {
		ctx.vars.AppendCell(parent.Slot(i))
	}

	in.Manage(ctx.vars)
	return ctx
}

// DerivesFrom reports whether the context's keylist descends from the
// ancestor keylist (the subtype check).
func (c *Context) DerivesFrom(ancestor *Series) bool {
	keys := c.keys
	for keys != nil {
		if keys == ancestor {
			return true
		}
		next, _ := keys.link.(*Series)
		keys = next
	}
	return false
}

// equalContexts compares positionally, skipping hidden slots on either
// side. Hidden-ness is a slot flag, so specializations can hide slots
// without disturbing shared keylists.
func equalContexts(a, b *Context, strict bool) bool {
	ia, ib := 1, 1
	for {
		for ia <= a.Len() && a.Slot(ia).GetFlag(FlagHidden) {
			ia++
		}
		for ib <= b.Len() && b.Slot(ib).GetFlag(FlagHidden) {
			ib++
		}
		doneA := ia > a.Len()
		doneB := ib > b.Len()
		if doneA || doneB {
			return doneA && doneB
		}
		if !a.Key(ia).SameWord(b.Key(ib)) {
			return false
		}
		if !Equal(a.Slot(ia), b.Slot(ib), strict) {
			return false
		}
		ia++
		ib++
	}
}
