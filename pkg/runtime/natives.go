package runtime

// Native registration and the control-flow natives. Arithmetic lives in
// natives_math.go, data and reflection in natives_data.go.

// Parameter spec shorthands for native construction.

func norm(name string, kinds ...Kind) paramSpec {
	return paramSpec{name: name, class: ParamNormal, types: MakeTypeSet(kinds...)}
}

func hard(name string, kinds ...Kind) paramSpec {
	return paramSpec{name: name, class: ParamHard, types: MakeTypeSet(kinds...)}
}

func soft(name string, kinds ...Kind) paramSpec {
	return paramSpec{name: name, class: ParamSoft, types: MakeTypeSet(kinds...)}
}

func metaP(name string) paramSpec {
	return paramSpec{name: name, class: ParamMeta}
}

func refine(name string, kinds ...Kind) paramSpec {
	return paramSpec{name: name, class: ParamRefine, types: MakeTypeSet(kinds...)}
}

func endable(p paramSpec) paramSpec {
	p.mods |= pmEndable
	return p
}

func opt(p paramSpec) paramSpec {
	p.mods |= pmOpt
	return p
}

var tsBranch = MakeTypeSet(KindBlock, KindGroup)

func (in *Interp) registerNatives() {
	in.registerControlNatives()
	in.registerMathNatives()
	in.registerDataNatives()
}

// seedLib binds the literal words and datatypes scripts expect.
func (in *Interp) seedLib() {
	InitLogic(in.libSlot("true"), true)
	InitLogic(in.libSlot("false"), false)
	InitLogic(in.libSlot("yes"), true)
	InitLogic(in.libSlot("no"), false)
	InitNone(in.libSlot("none"))

	for k := Kind(0); k < KindMax; k++ {
		switch k {
		case KindFree, KindEnd:
			continue
		}
		InitDatatype(in.libSlot(k.String()), k)
	}
}

func (in *Interp) registerControlNatives() {
	in.registerNative("if", []paramSpec{
		norm("condition"),
		hard("branch", KindBlock, KindGroup),
	}, func(f *Frame) (Bounce, error) {
		if !f.Arg(1).Truthy() {
			InitNone(f.Out())
			return BounceOut, nil
		}
		return BounceOut, f.runBranch(f.Arg(2))
	})

	in.registerNative("either", []paramSpec{
		norm("condition"),
		hard("true-branch", KindBlock, KindGroup),
		hard("false-branch", KindBlock, KindGroup),
	}, func(f *Frame) (Bounce, error) {
		branch := f.Arg(3)
		if f.Arg(1).Truthy() {
			branch = f.Arg(2)
		}
		return BounceOut, f.runBranch(branch)
	})

	in.registerNative("while", []paramSpec{
		hard("condition", KindBlock),
		hard("body", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		InitNone(f.Out())
		for {
			var cond Cell
			InitVoid(&cond)
			if err := in.EvalArray(f.Arg(1).Series(), f.feed.sp, &cond); err != nil {
				return BounceOut, err
			}
			if !cond.Truthy() {
				return BounceOut, nil
			}
			if stop, err := f.runLoopBody(f.Arg(2), f.feed.sp); stop || err != nil {
				return BounceOut, err
			}
		}
	})

	in.registerNative("repeat", []paramSpec{
		hard("word", KindWord),
		norm("count", KindInteger),
		hard("body", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		ctx := in.NewContext(KindObject, 1)
		counter := ctx.AppendKey(f.Arg(1).word)
		sp := Overlay(ctx, 0, f.feed.sp)

		InitNone(f.Out())
		count := f.Arg(2).Int()
		for i := int64(1); i <= count; i++ {
			InitInteger(counter, i)
			if stop, err := f.runLoopBody(f.Arg(3), sp); stop || err != nil {
				return BounceOut, err
			}
		}
		return BounceOut, nil
	})

	in.registerNative("loop", []paramSpec{
		norm("count", KindInteger),
		hard("body", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		InitNone(f.Out())
		count := f.Arg(1).Int()
		for i := int64(0); i < count; i++ {
			if stop, err := f.runLoopBody(f.Arg(2), f.feed.sp); stop || err != nil {
				return BounceOut, err
			}
		}
		return BounceOut, nil
	})

	in.breakAction = in.registerNative("break", nil, func(f *Frame) (Bounce, error) {
		t := &Throw{}
		InitAction(&t.Label, in.breakAction)
		InitNone(&t.Arg)
		return BounceOut, t
	})

	in.continueAction = in.registerNative("continue", nil, func(f *Frame) (Bounce, error) {
		t := &Throw{}
		InitAction(&t.Label, in.continueAction)
		InitNone(&t.Arg)
		return BounceOut, t
	})

	in.registerNative("do", []paramSpec{
		norm("source"),
	}, func(f *Frame) (Bounce, error) {
		src := f.Arg(1)
		switch src.kind {
		case KindBlock, KindGroup:
			return BounceOut, in.EvalArray(src.Series(), f.feed.sp, f.Out())
		case KindText:
			if Scanner == nil {
				return BounceOut, in.fail("invalid-arg", src)
			}
			arr, err := Scanner(in, string(src.Series().Bytes()[src.Index():]))
			if err != nil {
				return BounceOut, in.fail("invalid-arg", src)
			}
			in.Manage(arr)
			in.internAll(arr)
			in.Bind(arr, 0, in.lib, true)
			in.Bind(arr, 0, in.user, true)
			return BounceOut, in.EvalArray(arr, nil, f.Out())
		case KindError:
			return BounceOut, failCtx(src.Context())
		}
		*f.Out() = *src
		return BounceOut, nil
	})

	in.registerNative("reduce", []paramSpec{
		norm("block", KindBlock, KindGroup),
	}, func(f *Frame) (Bounce, error) {
		src := f.Arg(1)
		out := in.NewArray(src.Series().Len())
		feed := NewFeed(src.Series(), f.feed.sp)
		feed.index = src.Index()
		for !feed.AtEnd() {
			if feed.Current().kind == KindComma {
				feed.Fetch()
				continue
			}
			sub, err := in.pushFrame(feed, f.Spare())
			if err != nil {
				in.Free(out)
				return BounceOut, err
			}
			var val Cell
			InitVoid(&val)
			invisible, err := in.step(sub, &val, false)
			in.popFrame(sub, err != nil)
			if err != nil {
				in.Free(out)
				return BounceOut, err
			}
			if !invisible && val.kind != KindVoid {
				out.AppendCell(&val)
			}
		}
		in.Manage(out)
		InitBlock(f.Out(), out)
		return BounceOut, nil
	})

	in.registerNative("comment", []paramSpec{
		hard("discarded"),
	}, func(f *Frame) (Bounce, error) {
		// Invisible: the out cell's prior bits are never touched.
		return BounceInvisible, nil
	})

	in.registerNative("elide", []paramSpec{
		norm("discarded"),
	}, func(f *Frame) (Bounce, error) {
		return BounceInvisible, nil
	})

	in.registerNative("func", []paramSpec{
		hard("spec", KindBlock),
		hard("body", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		act, err := in.makeFunc(f.Arg(1), f.Arg(2))
		if err != nil {
			return BounceOut, err
		}
		InitAction(f.Out(), act)
		return BounceOut, nil
	})

	in.returnAction = in.registerNative("return", []paramSpec{
		endable(norm("value")),
	}, func(f *Frame) (Bounce, error) {
		if f.binding == nil {
			return BounceOut, in.fail("not-bound", wordArg(in, in.syms.intern("return")))
		}
		return BounceOut, throwReturn(f.binding, f.Arg(1))
	})

	in.registerNative("unwind", []paramSpec{
		norm("target", KindFrame, KindInteger),
		endable(norm("value")),
	}, func(f *Frame) (Bounce, error) {
		target := f.Arg(1)
		if target.kind == KindFrame {
			return BounceOut, throwReturn(target.Context(), f.Arg(2))
		}

		// Integer N: the Nth containing action frame.
		n := target.Int()
		for fr := f.prior; fr != nil; fr = fr.prior {
			if fr.varlist == nil {
				continue
			}
			n--
			if n <= 0 {
				return BounceOut, throwReturn(fr.varlist, f.Arg(2))
			}
		}
		return BounceOut, in.fail("out-of-range", target)
	})

	in.registerNative("redo", []paramSpec{
		norm("frame", KindFrame),
		refine("other", KindAction),
	}, func(f *Frame) (Bounce, error) {
		t := &Throw{}
		t.Label.reset(KindFrame)
		t.Label.node = f.Arg(1).Context()
		if f.RefineActive("other") {
			t.Arg = *f.ArgNamed("other")
		} else {
			InitNone(&t.Arg)
		}
		return BounceOut, t
	})

	in.registerNative("catch", []paramSpec{
		hard("block", KindBlock),
		refine("name", KindWord),
		refine("quit"),
		refine("any"),
	}, func(f *Frame) (Bounce, error) {
		err := in.EvalArray(f.Arg(1).Series(), f.feed.sp, f.Out())
		if err == nil {
			return BounceOut, nil
		}
		t, ok := err.(*Throw)
		if !ok {
			return BounceOut, err
		}

		catchQuit := f.RefineActive("quit")
		catchAny := f.RefineActive("any")

		switch {
		case t.IsError() || t.Label.kind == KindAction || t.Label.kind == KindFrame:
			// Errors, RETURN/BREAK/CONTINUE and REDO pass through.
			return BounceOut, err
		case t.isSentinel(in.symQuit):
			if !catchQuit {
				return BounceOut, err
			}
		case t.isSentinel(in.symHalt):
			return BounceOut, err
		case f.RefineActive("name"):
			if !t.matchesName(f.ArgNamed("name").word) {
				return BounceOut, err
			}
		case catchAny:
			// catches any non-sentinel throw
		default:
			if !t.unnamed() {
				return BounceOut, err
			}
		}

		*f.Out() = t.Arg
		return BounceOut, nil
	})

	in.registerNative("throw", []paramSpec{
		norm("value"),
		refine("name", KindWord),
	}, func(f *Frame) (Bounce, error) {
		var sym *Symbol
		if f.RefineActive("name") {
			sym = f.ArgNamed("name").word
		}
		return BounceOut, throwNamed(sym, f.Arg(1))
	})

	in.registerNative("fail", []paramSpec{
		norm("reason", KindText, KindWord, KindError),
	}, func(f *Frame) (Bounce, error) {
		reason := f.Arg(1)
		switch reason.kind {
		case KindError:
			return BounceOut, failCtx(reason.Context())
		case KindWord:
			return BounceOut, in.fail(reason.word.Text())
		}
		return BounceOut, in.fail("user", reason)
	})

	in.registerNative("trap", []paramSpec{
		hard("block", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		err := in.EvalArray(f.Arg(1).Series(), f.feed.sp, f.Out())
		if err == nil {
			InitNone(f.Out())
			return BounceOut, nil
		}
		t, ok := err.(*Throw)
		if !ok || !t.IsError() {
			return BounceOut, err
		}
		*f.Out() = t.Label
		return BounceOut, nil
	})

	in.registerNative("attempt", []paramSpec{
		hard("block", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		err := in.EvalArray(f.Arg(1).Series(), f.feed.sp, f.Out())
		if err != nil {
			if t, ok := err.(*Throw); ok && t.IsError() {
				InitNone(f.Out())
				return BounceOut, nil
			}
			return BounceOut, err
		}
		return BounceOut, nil
	})

	in.registerNative("halt", nil, func(f *Frame) (Bounce, error) {
		return BounceOut, throwSentinel(in.symHalt, nil)
	})

	in.registerNative("quit", []paramSpec{
		refine("return"),
	}, func(f *Frame) (Bounce, error) {
		var code Cell
		InitInteger(&code, 0)
		if f.RefineActive("return") {
			code = *f.ArgNamed("return")
		}
		return BounceOut, throwSentinel(in.symQuit, &code)
	})
}

// runBranch evaluates a branch argument: blocks run, groups run, anything
// else is the result as-is.
func (f *Frame) runBranch(branch *Cell) error {
	switch branch.kind {
	case KindBlock, KindGroup:
		return f.in.EvalArray(branch.Series(), f.feed.sp, f.Out())
	}
	*f.Out() = *branch
	return nil
}

// runLoopBody evaluates a loop body once, absorbing BREAK (stop=true) and
// CONTINUE throws. Other throws propagate.
func (f *Frame) runLoopBody(body *Cell, sp *Specifier) (stop bool, err error) {
	err = f.in.EvalArray(body.Series(), sp, f.Out())
	if err == nil {
		return false, nil
	}
	t, ok := err.(*Throw)
	if !ok {
		return false, err
	}
	if t.Label.kind == KindAction {
		switch t.Label.node {
		case f.in.breakAction:
			InitNone(f.Out())
			return true, nil
		case f.in.continueAction:
			return false, nil
		}
	}
	return false, err
}

// makeFunc builds an interpreted action from spec and body blocks. The
// body is copied before binding; the spec block is read, never mutated.
func (in *Interp) makeFunc(spec *Cell, body *Cell) (*Action, error) {
	params := []paramSpec{{name: "return", class: ParamReturn}}

	specArr := spec.Series()
	i := spec.Index()
	for i < specArr.Len() {
		cell := specArr.At(i)
		i++

		var p paramSpec
		switch {
		case cell.kind == KindText:
			continue // description strings
		case cell.kind == KindWord && cell.IsQuoted():
			p = paramSpec{name: cell.word.Text(), class: ParamHard}
		case cell.kind == KindWord:
			p = paramSpec{name: cell.word.Text(), class: ParamNormal}
		case cell.kind == KindGetWord:
			p = paramSpec{name: cell.word.Text(), class: ParamSoft}
		case cell.kind == KindMetaWord:
			p = paramSpec{name: cell.word.Text(), class: ParamMeta}
		case cell.kind == KindRefinement:
			if cell.word.Text() == "local" {
				// everything after /local is a local slot
				for i < specArr.Len() {
					loc := specArr.At(i)
					i++
					if loc.kind == KindWord {
						params = append(params, paramSpec{name: loc.word.Text(), class: ParamLocal})
					}
				}
				continue
			}
			p = paramSpec{name: cell.word.Text(), class: ParamRefine}
		case cell.kind == KindSetWord && cell.word.Text() == "return":
			// return: [types] annotation; skip the type block
			if i < specArr.Len() && specArr.At(i).kind == KindBlock {
				i++
			}
			continue
		default:
			return nil, in.fail("bad-parameter", cell)
		}

		// A following block names accepted types.
		if i < specArr.Len() && specArr.At(i).kind == KindBlock {
			ts, err := in.blockToTypeSet(specArr.At(i))
			if err != nil {
				return nil, err
			}
			p.types = ts
			i++
		}
		params = append(params, p)
	}

	bodyCopy := in.CopyArray(body.Series(), body.Index(), true)
	in.Manage(bodyCopy)

	details := in.NewArray(1)
	InitBlock(details.AppendCell(&Cell{}), bodyCopy)
	in.Manage(details)

	act := in.makeAction("", params, details, bodyDispatch)
	return act, nil
}

// blockToTypeSet reads a spec type block like [integer! block!].
func (in *Interp) blockToTypeSet(block *Cell) (TypeSet, error) {
	var ts TypeSet
	arr := block.Series()
	for i := 0; i < arr.Len(); i++ {
		w := arr.At(i)
		if w.kind != KindWord {
			return 0, in.fail("bad-parameter", w)
		}
		found := false
		for k := Kind(0); k < KindMax; k++ {
			if k.String() == w.word.canon.Text() {
				ts |= 1 << k
				found = true
				break
			}
		}
		if !found {
			switch w.word.canon.Text() {
			case "any-value!":
				ts |= tsAnyValue
			case "any-word!":
				ts |= tsAnyWord
			case "any-series!":
				ts |= tsAnySeries
			case "any-number!":
				ts |= tsAnyNumber
			default:
				return 0, in.fail("bad-parameter", w)
			}
		}
	}
	return ts, nil
}

// bodyDispatch runs an interpreted body over the frame: the body array is
// specified against the frame's varlist by a virtual-binding overlay, so
// the shared body sees each invocation's arguments without rebinding.
func bodyDispatch(f *Frame) (Bounce, error) {
	body := f.phase.details.At(0)
	sp := Overlay(f.varlist, 0, f.feed.sp)
	return BounceOut, f.in.EvalArray(body.Series(), sp, f.Out())
}
