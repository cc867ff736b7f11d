package runtime

// The evaluator is a stepwise machine over a feed. One step evaluates one
// expression; when the head of the expression is an action, a sub-frame
// gathers arguments from the same feed until the parameter list is
// satisfied, then dispatches. Evaluation is strictly left to right; enfix
// has no precedence and applies only when the left value is already
// produced.

// EvalArray evaluates every step of arr under the given specifier,
// leaving the last produced value (or void) in out.
func (in *Interp) EvalArray(arr *Series, sp *Specifier, out *Cell) error {
	return in.EvalFeed(NewFeed(arr, sp), out)
}

// EvalFeed runs a feed to exhaustion.
func (in *Interp) EvalFeed(feed *Feed, out *Cell) error {
	wasEval := in.inEval
	in.inEval = true
	defer func() { in.inEval = wasEval }()

	f, err := in.pushFrame(feed, out)
	if err != nil {
		return err
	}

	produced := false
	for !feed.AtEnd() {
		in.maybeGC()

		if feed.Current().kind == KindComma {
			feed.Fetch()
			continue
		}

		var step Cell
		InitVoid(&step)
		invisible, err := in.step(f, &step, false)
		if err != nil {
			in.popFrame(f, true)
			return err
		}
		if invisible || step.kind == KindVoid {
			// Voids vanish interstitially; the prior value stands.
			continue
		}
		*out = step
		produced = true
	}
	if !produced {
		InitVoid(out)
	}
	in.popFrame(f, false)
	return nil
}

// step evaluates one expression from f's feed into out, returning whether
// the expression was invisible. deferEnfix is set while gathering the
// trailing argument of an enfix action: a further enfix word then defers
// to the parent so chains associate left (1 + 2 * 3 is 9).
func (in *Interp) step(f *Frame, out *Cell, deferEnfix bool) (bool, error) {
	c := f.feed.Fetch()

	if in.log.IsTrace() {
		in.log.Trace("step", "kind", c.kind.String(), "index", f.feed.index)
	}

	switch {
	case c.IsQuoted():
		*out = *c
		_ = out.Unquote(1)
		out.SetFlag(FlagUnevaluated)

	case c.IsQuasi():
		// Quasiforms evaluate to their antiform.
		*out = *c
		_ = out.Unmeta()

	default:
		if invisible, err := in.stepKind(f, c, out); invisible || err != nil {
			return invisible, err
		}
	}

	return false, in.lookahead(f, out, deferEnfix)
}

// stepKind performs the per-kind behavior for an unquoted cell.
func (in *Interp) stepKind(f *Frame, c *Cell, out *Cell) (bool, error) {
	switch c.kind {
	case KindComma, KindVoid:
		InitVoid(out)

	case KindWord:
		slot, err := in.getVar(c, f.feed.sp)
		if err != nil {
			return false, err
		}
		if slot.kind == KindAction && !slot.IsQuoted() {
			if slot.GetFlag(FlagEnfix) {
				// Enfix reached in prefix position: no left value yet.
				return false, in.fail("need-non-end", wordArg(in, c.word))
			}
			return in.invoke(f, out, slot.Action(), slot.binding, c.word, nil, nil)
		}
		*out = *slot
		out.ClearFlag(FlagUnevaluated | FlagEnfix | FlagProtected | FlagHidden)

	case KindSetWord, KindMetaSetWord:
		return false, in.stepSetWord(f, c, out)

	case KindGetWord:
		slot, _, _, err := in.resolve(c, f.feed.sp)
		if err != nil {
			return false, err
		}
		*out = *slot
		out.ClearFlag(FlagEnfix | FlagProtected | FlagHidden)

	case KindMetaWord:
		slot, _, _, err := in.resolve(c, f.feed.sp)
		if err != nil {
			return false, err
		}
		*out = *slot
		out.ClearFlag(FlagEnfix | FlagProtected | FlagHidden)
		out.Meta()

	case KindGroup:
		var inner Cell
		InitVoid(&inner)
		if err := in.EvalArray(c.Series(), f.feed.sp, &inner); err != nil {
			return false, err
		}
		if inner.kind == KindVoid {
			// A group yielding pure absence vanishes.
			InitVoid(out)
			return false, nil
		}
		*out = inner

	case KindPath, KindTuple:
		return false, in.evalSequence(f, c, out, nil)

	case KindSetPath, KindSetTuple:
		var val Cell
		InitVoid(&val)
		if err := in.gatherRight(f, c, &val); err != nil {
			return false, err
		}
		if err := in.evalSequence(f, c, out, &val); err != nil {
			return false, err
		}
		*out = val

	case KindAction:
		return in.invoke(f, out, c.Action(), c.binding, c.word, nil, nil)

	case KindBlock:
		*out = *c
		out.SetFlag(FlagUnevaluated)
		if c.GetFlag(FlagConst) {
			out.SetFlag(FlagConst)
		}

	default:
		// Inert values evaluate to themselves.
		*out = *c
		out.SetFlag(FlagUnevaluated)
	}
	return false, nil
}

// stepSetWord evaluates the expression to the right, assigns it, and
// yields the assigned value.
func (in *Interp) stepSetWord(f *Frame, c *Cell, out *Cell) error {
	var val Cell
	InitVoid(&val)
	if err := in.gatherRight(f, c, &val); err != nil {
		return err
	}

	if c.kind == KindMetaSetWord {
		val.Meta()
	} else {
		if val.kind == KindVoid {
			return in.fail("need-non-end", wordArg(in, c.word))
		}
		if err := in.decayForStore(&val, c.word); err != nil {
			return err
		}
	}

	if _, err := in.setVar(c, f.feed.sp, &val); err != nil {
		return err
	}
	*out = val
	return nil
}

// gatherRight evaluates one expression for an assignment's right side.
func (in *Interp) gatherRight(f *Frame, c *Cell, val *Cell) error {
	if f.feed.AtEnd() || f.feed.Current().kind == KindComma {
		return in.fail("need-non-end", seqErrArg(in, c))
	}
	_, err := in.step(f, val, false)
	return err
}

// decayForStore enforces that only stable values land in variables: packs
// decay to their first item, definitional errors are raised, trash (the
// unset state) is allowed through.
func (in *Interp) decayForStore(val *Cell, at *Symbol) error {
	if val.Stable() {
		return nil
	}
	switch val.kind {
	case KindNone:
		return nil // storing trash unsets the variable
	case KindError:
		return failCtx(val.Context())
	case KindBlock:
		pack := val.Series()
		if pack.Len() == 0 {
			return in.fail("need-non-end", wordArg(in, at))
		}
		*val = *pack.At(0)
		return nil
	}
	return in.fail("bad-antiform", wordArg(in, at))
}

// lookahead checks whether the next cell is a word holding an enfix
// action; if so the just-produced value becomes the left argument.
func (in *Interp) lookahead(f *Frame, out *Cell, deferEnfix bool) error {
	for !f.feed.AtEnd() {
		n := f.feed.Current()
		if n.kind != KindWord || n.IsQuoted() {
			return nil
		}

		slot, _, _, err := in.resolve(n, f.feed.sp)
		if err != nil || slot.kind != KindAction || !slot.GetFlag(FlagEnfix) {
			return nil
		}
		if deferEnfix {
			// Finish the pending enfix operation first; the parent loop
			// resumes lookahead with its result.
			return nil
		}

		f.feed.Fetch()
		left := *out
		if _, err := in.invoke(f, out, slot.Action(), slot.binding, n.word, &left, nil); err != nil {
			return err
		}
	}
	return nil
}

// invoke runs an action: push a frame, fulfill arguments from the feed,
// typecheck, dispatch. left is the pre-produced value for an enfix
// invocation; refines are call-site refinements from a path.
func (in *Interp) invoke(f *Frame, out *Cell, act *Action, binding *Context, label *Symbol, left *Cell, refines []*Symbol) (bool, error) {
	sub, err := in.pushFrame(f.feed, out)
	if err != nil {
		return false, err
	}
	sub.phase = act
	sub.original = act
	sub.label = label
	sub.binding = binding
	sub.varlist = in.frameContextFor(act)

	enfixCall := left != nil

	// Call-site refinements, in the order the path gave them. The order
	// is kept on the data stack so argument gathering and partial
	// specialization agree on priority.
	var pendingRefines []int
	for _, sym := range refines {
		n := act.FindParam(sym)
		if n == 0 || ParamClassOf(act.Param(n)) != ParamRefine {
			in.popFrame(sub, true)
			return false, in.fail("bad-refine", wordArg(in, sym))
		}
		slot := sub.varlist.Slot(n)
		if slot.kind == KindLogic {
			in.popFrame(sub, true)
			return false, in.fail("bad-refine", wordArg(in, sym))
		}
		InitLogic(slot, true)
		if paramTakesArg(act.Param(n)) {
			pendingRefines = append(pendingRefines, n)
		}
	}

	if err := in.fulfill(sub, act, left, enfixCall, pendingRefines); err != nil {
		in.popFrame(sub, true)
		return false, err
	}

	bounce, err := in.dispatchWithRecovery(sub)
	if err != nil {
		in.popFrame(sub, true)
		return false, err
	}
	in.popFrame(sub, false)

	return bounce == BounceInvisible, nil
}

// fulfill gathers every argument for the frame per parameter class.
func (in *Interp) fulfill(sub *Frame, act *Action, left *Cell, enfixCall bool, pendingRefines []int) error {
	leftUsed := false

	for i := 1; i <= act.NumParams(); i++ {
		param := act.Param(i)
		slot := sub.varlist.Slot(i)
		class := ParamClassOf(param)

		switch class {
		case ParamReturn:
			// Definitional return: an action cell bound to this very
			// frame, so UNWIND targets precisely this invocation.
			InitAction(slot, in.returnAction)
			slot.binding = sub.varlist

		case ParamLocal:
			InitTrash(slot)

		case ParamOutput:
			InitNone(slot)

		case ParamRefine:
			if slot.kind != KindLogic {
				InitNone(slot) // not mentioned at the call site
			}

		default:
			if left != nil && !leftUsed {
				*slot = *left
				leftUsed = true
				if err := in.typecheck(sub, act, i, slot); err != nil {
					return err
				}
				continue
			}
			if err := in.gatherArg(sub, act, i, class, slot, enfixCall); err != nil {
				return err
			}
		}
	}

	// Refinement arguments come last, in call-site order.
	for _, n := range pendingRefines {
		slot := sub.varlist.Slot(n)
		if err := in.gatherArg(sub, act, n, ParamNormal, slot, false); err != nil {
			return err
		}
	}
	return nil
}

// gatherArg fulfills one argument slot from the feed.
func (in *Interp) gatherArg(sub *Frame, act *Action, i int, class ParamClass, slot *Cell, enfixCall bool) error {
	param := act.Param(i)
	mods := paramMods(param)

	atBarrier := func() bool {
		return sub.feed.AtEnd() || sub.feed.Current().kind == KindComma
	}

	if atBarrier() {
		if mods&pmEndable != 0 {
			InitNone(slot)
			return nil
		}
		return in.fail("need-non-end", actionErrArg(in, act))
	}

	switch class {
	case ParamHard:
		*slot = *sub.feed.Fetch()
		slot.SetFlag(FlagUnevaluated)

	case ParamSoft:
		c := sub.feed.Fetch()
		switch c.kind {
		case KindGroup:
			var inner Cell
			InitVoid(&inner)
			if err := in.EvalArray(c.Series(), sub.feed.sp, &inner); err != nil {
				return err
			}
			*slot = inner
		case KindGetWord:
			s, _, _, err := in.resolve(c, sub.feed.sp)
			if err != nil {
				return err
			}
			*slot = *s
		default:
			*slot = *c
			slot.SetFlag(FlagUnevaluated)
		}

	case ParamNormal, ParamMeta:
		if mods&pmVariadic != 0 {
			return in.gatherVariadic(sub, slot)
		}
		// Step until a non-void lands; voids between expressions vanish.
		for {
			var val Cell
			InitVoid(&val)
			deferE := enfixCall && i == act.NumParams()
			if _, err := in.step(sub, &val, deferE); err != nil {
				return err
			}
			if val.kind != KindVoid {
				*slot = val
				break
			}
			if atBarrier() {
				if mods&(pmEndable|pmMaybe) != 0 {
					InitNone(slot)
					break
				}
				return in.fail("need-non-end", actionErrArg(in, act))
			}
		}
		if class == ParamMeta {
			slot.Meta()
		}
	}

	if mods&pmConst != 0 {
		slot.SetFlag(FlagConst)
	}
	return in.typecheck(sub, act, i, slot)
}

// gatherVariadic collects the rest of the expression run into a block.
func (in *Interp) gatherVariadic(sub *Frame, slot *Cell) error {
	arr := in.NewArray(4)
	for !sub.feed.AtEnd() && sub.feed.Current().kind != KindComma {
		var val Cell
		InitVoid(&val)
		if _, err := in.step(sub, &val, false); err != nil {
			in.Free(arr)
			return err
		}
		if val.kind != KindVoid {
			arr.AppendCell(&val)
		}
	}
	in.Manage(arr)
	InitBlock(slot, arr)
	return nil
}

// typecheck validates a filled slot against the parameter's typeset.
func (in *Interp) typecheck(sub *Frame, act *Action, i int, slot *Cell) error {
	param := act.Param(i)
	class := ParamClassOf(param)
	mods := paramMods(param)

	if !slot.Stable() && class != ParamMeta {
		switch slot.kind {
		case KindError:
			return failCtx(slot.Context())
		case KindBlock:
			if err := in.decayForStore(slot, param.word); err != nil {
				return err
			}
		case KindNone:
			return in.fail("no-value", wordArg(in, param.word))
		}
	}

	ts := paramTypes(param)
	if ts == 0 {
		return nil
	}
	if slot.kind == KindNone && mods&(pmOpt|pmEndable) != 0 {
		return nil
	}
	if !ts.Has(slot.kind) {
		var name Cell
		if act.sym != nil {
			InitWord(&name, act.sym)
		} else {
			InitNone(&name)
		}
		return in.fail("expect-arg", &name, wordArg(in, param.word), datatypeArg(in, slot.kind))
	}
	return nil
}

// dispatchWithRecovery runs the dispatcher, catching throws aimed at this
// frame: definitional RETURN/UNWIND terminate it with the carried value;
// REDO re-enters dispatch without refulfilling from source.
func (in *Interp) dispatchWithRecovery(sub *Frame) (Bounce, error) {
	for {
		bounce, err := sub.phase.dispatch(sub)
		if err == nil {
			return bounce, nil
		}

		t, ok := err.(*Throw)
		if !ok {
			return BounceOut, err
		}

		if t.targetsFrame(sub.varlist) {
			*sub.out = t.Arg
			return BounceOut, nil
		}
		if t.Label.kind == KindFrame && t.Label.node == sub.varlist {
			// REDO: optionally swap in a paramlist-compatible sibling.
			if t.Arg.kind == KindAction {
				next := t.Arg.Action()
				if next.NumParams() != sub.phase.NumParams() {
					return BounceOut, in.fail("invalid-arg", &t.Arg)
				}
				sub.phase = next
			}
			sub.state = 0
			continue
		}
		return BounceOut, err
	}
}

// evalSequence walks a path or tuple by stepwise picking. The final step
// may invoke an action (paths collect the remaining segments as
// refinements) or assign setVal when non-nil.
func (in *Interp) evalSequence(f *Frame, c *Cell, out *Cell, setVal *Cell) error {
	segs := c.Series()
	if segs.Len() == 0 {
		return in.fail("invalid-arg", c)
	}

	isPath := c.kind == KindPath || c.kind == KindSetPath

	// Head resolves through binding; groups evaluate.
	var cur Cell
	head := segs.At(0)
	switch head.kind {
	case KindWord:
		slot, err := in.getVar(head, f.feed.sp)
		if err != nil {
			return err
		}
		cur = *slot
	case KindGroup:
		InitVoid(&cur)
		if err := in.EvalArray(head.Series(), f.feed.sp, &cur); err != nil {
			return err
		}
	default:
		cur = *head
	}

	for i := 1; i < segs.Len(); i++ {
		seg := segs.At(i)

		// An action midway through a path: the rest are refinements.
		if isPath && cur.kind == KindAction && setVal == nil {
			var refines []*Symbol
			for j := i; j < segs.Len(); j++ {
				r := segs.At(j)
				if !tsAnyWord.Has(r.kind) {
					return in.fail("bad-refine", r)
				}
				refines = append(refines, r.word)
			}
			_, err := in.invoke(f, out, cur.Action(), cur.binding, pathLabel(segs), nil, refines)
			return err
		}

		last := i == segs.Len()-1
		if last && setVal != nil {
			return in.pokeStep(&cur, seg, setVal, f.feed.sp)
		}
		if err := in.pickStep(&cur, seg, f.feed.sp); err != nil {
			return err
		}
	}

	if cur.kind == KindAction && isPath && setVal == nil {
		_, err := in.invoke(f, out, cur.Action(), cur.binding, pathLabel(segs), nil, nil)
		return err
	}
	if setVal != nil {
		return in.fail("invalid-arg", c)
	}
	*out = cur
	out.ClearFlag(FlagEnfix | FlagProtected | FlagHidden)
	return nil
}

// pickStep replaces cur with the picked element.
func (in *Interp) pickStep(cur *Cell, seg *Cell, sp *Specifier) error {
	switch cur.kind {
	case KindObject, KindError, KindFrame:
		if !tsAnyWord.Has(seg.kind) {
			return in.fail("bad-path-pick", seg)
		}
		ctx := cur.Context()
		if !ctx.vars.Accessible() {
			return in.fail("expired-frame", seg)
		}
		n := ctx.Find(seg.word, false)
		if n == 0 {
			return in.fail("bad-path-pick", seg)
		}
		slot := ctx.Slot(n)
		if slot.IsAntiform() && slot.kind == KindNone {
			return in.fail("no-value", seg)
		}
		wasConst := cur.GetFlag(FlagConst)
		*cur = *slot
		cur.ClearFlag(FlagProtected | FlagHidden | FlagEnfix)
		if wasConst {
			cur.SetFlag(FlagConst) // const propagates from container to reached values
		}
		return nil

	case KindBlock, KindGroup, KindPath, KindTuple:
		var idx int
		switch seg.kind {
		case KindInteger:
			idx = int(seg.Int())
		case KindGroup:
			var v Cell
			InitVoid(&v)
			if err := in.EvalArray(seg.Series(), sp, &v); err != nil {
				return err
			}
			if v.kind != KindInteger {
				return in.fail("bad-path-pick", seg)
			}
			idx = int(v.Int())
		default:
			return in.fail("bad-path-pick", seg)
		}
		s := cur.Series()
		at := cur.Index() + idx - 1
		if at < 0 || at >= s.Len() {
			return in.fail("out-of-range", seg)
		}
		wasConst := cur.GetFlag(FlagConst)
		*cur = *s.At(at)
		if wasConst {
			cur.SetFlag(FlagConst)
		}
		return nil
	}
	return in.fail("bad-path-pick", seg)
}

// pokeStep assigns through the final segment of a set-path/set-tuple.
func (in *Interp) pokeStep(cur *Cell, seg *Cell, val *Cell, sp *Specifier) error {
	if cur.GetFlag(FlagConst) {
		return in.fail("protected", seg)
	}
	switch cur.kind {
	case KindObject, KindError, KindFrame:
		ctx := cur.Context()
		n := ctx.Find(seg.word, false)
		if n == 0 {
			n0 := ctx.AppendKey(seg.word)
			*n0 = *val
			return nil
		}
		slot := ctx.Slot(n)
		if slot.GetFlag(FlagProtected) {
			return in.fail("protected-word", seg)
		}
		keep := slot.flags & (FlagProtected | FlagHidden)
		*slot = *val
		slot.flags |= keep
		return nil

	case KindBlock, KindGroup:
		if seg.kind != KindInteger {
			return in.fail("bad-path-pick", seg)
		}
		s := cur.Series()
		at := cur.Index() + int(seg.Int()) - 1
		if at < 0 || at >= s.Len() {
			return in.fail("out-of-range", seg)
		}
		if s.flags&SerFrozen != 0 {
			return in.fail("protected", seg)
		}
		*s.At(at) = *val
		return nil
	}
	return in.fail("bad-path-pick", seg)
}

// pathLabel picks a label symbol for an action invoked through a path.
func pathLabel(segs *Series) *Symbol {
	head := segs.At(0)
	if tsAnyWord.Has(head.kind) {
		return head.word
	}
	return nil
}

// seqErrArg wraps an offending cell for error payloads.
func seqErrArg(in *Interp, c *Cell) *Cell {
	cp := *c
	cp.flags = 0
	return &cp
}

// actionErrArg names an action for error payloads.
func actionErrArg(in *Interp, act *Action) *Cell {
	var c Cell
	if act.sym != nil {
		InitWord(&c, act.sym)
	} else {
		InitNone(&c)
	}
	return &c
}

// datatypeArg wraps a kind for error payloads.
func datatypeArg(in *Interp, k Kind) *Cell {
	var c Cell
	InitDatatype(&c, k)
	return &c
}

// maybeGC runs a collection if the ballast tripped; steps are the only
// safe points.
func (in *Interp) maybeGC() {
	if in.gcPending && !in.collecting {
		in.Collect()
	}
}
