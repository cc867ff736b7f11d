package runtime

import "fmt"

// Data construction, series operations and reflection natives.

func (in *Interp) registerDataNatives() {
	in.registerNative("make", []paramSpec{
		norm("type", KindDatatype, KindObject),
		norm("def"),
	}, in.makeDispatch)

	in.registerNative("copy", []paramSpec{
		norm("value"),
		refine("deep"),
		refine("part", KindInteger),
	}, func(f *Frame) (Bounce, error) {
		src := f.Arg(1)
		switch {
		case tsAnyArray.Has(src.kind):
			dst := in.CopyArray(src.Series(), src.Index(), f.RefineActive("deep"))
			if f.RefineActive("part") {
				limit := int(f.ArgNamed("part").Int())
				if limit < dst.Len() {
					dst.RemoveAt(limit, dst.Len()-limit)
				}
			}
			in.Manage(dst)
			InitAnySeries(f.Out(), src.kind, dst, 0)
		case src.kind == KindText || src.kind == KindBinary:
			raw := src.Series().Bytes()[src.Index():]
			if f.RefineActive("part") {
				limit := int(f.ArgNamed("part").Int())
				if limit < len(raw) {
					raw = raw[:limit]
				}
			}
			dst := in.NewBytes(len(raw)+1, src.kind == KindText)
			dst.AppendBytes(raw)
			in.Manage(dst)
			InitAnySeries(f.Out(), src.kind, dst, 0)
		default:
			*f.Out() = *src
		}
		return BounceOut, nil
	})

	in.registerNative("append", []paramSpec{
		norm("series", KindBlock, KindGroup, KindText, KindBinary),
		norm("value"),
		refine("only"),
		refine("dup", KindInteger),
		refine("part", KindInteger),
	}, func(f *Frame) (Bounce, error) {
		return in.appendInsert(f, true)
	})

	in.registerNative("insert", []paramSpec{
		norm("series", KindBlock, KindGroup, KindText, KindBinary),
		norm("value"),
		refine("only"),
		refine("dup", KindInteger),
		refine("part", KindInteger),
	}, func(f *Frame) (Bounce, error) {
		return in.appendInsert(f, false)
	})

	in.registerNative("length-of", []paramSpec{
		norm("series"),
	}, func(f *Frame) (Bounce, error) {
		v := f.Arg(1)
		switch {
		case tsAnyArray.Has(v.kind):
			InitInteger(f.Out(), int64(v.Series().Len()-v.Index()))
		case v.kind == KindText || v.kind == KindBinary:
			InitInteger(f.Out(), int64(len(v.Series().Bytes())-v.Index()))
		case tsAnyContext.Has(v.kind):
			InitInteger(f.Out(), int64(v.Context().Len()))
		default:
			return BounceOut, in.fail("invalid-arg", v)
		}
		return BounceOut, nil
	})

	in.registerNative("pick", []paramSpec{
		norm("series", KindBlock, KindGroup, KindText, KindBinary),
		norm("index", KindInteger),
	}, func(f *Frame) (Bounce, error) {
		return BounceOut, in.pickInto(f.Out(), f.Arg(1), int(f.Arg(2).Int()))
	})

	in.registerNative("first", []paramSpec{
		norm("series", KindBlock, KindGroup, KindText, KindBinary),
	}, func(f *Frame) (Bounce, error) {
		return BounceOut, in.pickInto(f.Out(), f.Arg(1), 1)
	})

	in.registerNative("poke", []paramSpec{
		norm("series", KindBlock, KindGroup),
		norm("index", KindInteger),
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		series := f.Arg(1)
		if series.GetFlag(FlagConst) || series.Series().GetFlag(SerFrozen) {
			return BounceOut, in.fail("protected", series)
		}
		at := series.Index() + int(f.Arg(2).Int()) - 1
		if at < 0 || at >= series.Series().Len() {
			return BounceOut, in.fail("out-of-range", f.Arg(2))
		}
		*series.Series().At(at) = *f.Arg(3)
		*f.Out() = *f.Arg(3)
		return BounceOut, nil
	})

	in.registerNative("set", []paramSpec{
		norm("target", KindWord, KindSetWord),
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		target := f.Arg(1)
		val := *f.Arg(2)
		if err := in.decayForStore(&val, target.word); err != nil {
			return BounceOut, err
		}
		if target.binding == nil {
			// Unbound target: define in the user context.
			slot := in.user.AppendKey(target.word)
			*slot = val
			*f.Out() = val
			return BounceOut, nil
		}
		if _, err := in.setVar(target, nil, &val); err != nil {
			return BounceOut, err
		}
		*f.Out() = val
		return BounceOut, nil
	})

	in.registerNative("get", []paramSpec{
		norm("source", KindWord, KindGetWord),
	}, func(f *Frame) (Bounce, error) {
		slot, err := in.getVar(f.Arg(1), nil)
		if err != nil {
			return BounceOut, err
		}
		*f.Out() = *slot
		f.Out().ClearFlag(FlagEnfix | FlagProtected | FlagHidden)
		return BounceOut, nil
	})

	in.registerNative("in", []paramSpec{
		norm("context", KindObject, KindFrame, KindError),
		norm("word", KindWord),
	}, func(f *Frame) (Bounce, error) {
		out := f.Out()
		*out = *f.Arg(2)
		if !BindOne(out, f.Arg(1).Context()) {
			InitNone(out)
		}
		return BounceOut, nil
	})

	in.registerNative("bind", []paramSpec{
		norm("words", KindBlock, KindWord),
		norm("context", KindObject, KindFrame, KindError),
	}, func(f *Frame) (Bounce, error) {
		words := f.Arg(1)
		ctx := f.Arg(2).Context()
		if words.kind == KindWord {
			*f.Out() = *words
			BindOne(f.Out(), ctx)
			return BounceOut, nil
		}
		in.Bind(words.Series(), words.Index(), ctx, true)
		*f.Out() = *words
		return BounceOut, nil
	})

	in.registerNative("protect", []paramSpec{
		norm("target", KindWord),
		refine("hide"),
	}, func(f *Frame) (Bounce, error) {
		slot, _, _, err := in.resolve(f.Arg(1), nil)
		if err != nil {
			return BounceOut, err
		}
		slot.SetFlag(FlagProtected)
		if f.RefineActive("hide") {
			slot.SetFlag(FlagHidden)
		}
		*f.Out() = *f.Arg(1)
		return BounceOut, nil
	})

	in.registerNative("unprotect", []paramSpec{
		norm("target", KindWord),
	}, func(f *Frame) (Bounce, error) {
		slot, _, _, err := in.resolve(f.Arg(1), nil)
		if err != nil {
			return BounceOut, err
		}
		slot.ClearFlag(FlagProtected)
		*f.Out() = *f.Arg(1)
		return BounceOut, nil
	})

	in.registerNative("mold", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		in.textResult(f.Out(), Mold(f.Arg(1)))
		return BounceOut, nil
	})

	in.registerNative("form", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		in.textResult(f.Out(), formCell(f.Arg(1)))
		return BounceOut, nil
	})

	in.registerNative("print", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		v := f.Arg(1)
		if v.kind == KindBlock {
			// print reduces its block argument
			reduced := in.NewArray(v.Series().Len())
			feed := NewFeed(v.Series(), f.feed.sp)
			feed.index = v.Index()
			sub, err := in.pushFrame(feed, f.Spare())
			if err != nil {
				in.Free(reduced)
				return BounceOut, err
			}
			for !feed.AtEnd() {
				var val Cell
				InitVoid(&val)
				if _, err := in.step(sub, &val, false); err != nil {
					in.popFrame(sub, true)
					in.Free(reduced)
					return BounceOut, err
				}
				if val.kind != KindVoid {
					reduced.AppendCell(&val)
				}
			}
			in.popFrame(sub, false)
			parts := ""
			for i := 0; i < reduced.Len(); i++ {
				if i > 0 {
					parts += " "
				}
				parts += formCell(reduced.At(i))
			}
			in.Free(reduced)
			fmt.Fprintln(in.stdout, parts)
		} else {
			fmt.Fprintln(in.stdout, formCell(v))
		}
		InitVoid(f.Out())
		return BounceVoid, nil
	})

	in.registerNative("probe", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		fmt.Fprintln(in.stdout, Mold(f.Arg(1)))
		*f.Out() = *f.Arg(1)
		return BounceOut, nil
	})

	in.registerNative("type-of", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		InitDatatype(f.Out(), f.Arg(1).kind)
		return BounceOut, nil
	})

	in.registerNative("quote", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		*f.Out() = *f.Arg(1)
		return BounceOut, f.Out().Quote(1)
	})

	in.registerNative("unquote", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		*f.Out() = *f.Arg(1)
		return BounceOut, f.Out().Unquote(1)
	})

	in.registerNative("meta", []paramSpec{
		metaP("value"),
	}, func(f *Frame) (Bounce, error) {
		*f.Out() = *f.Arg(1)
		return BounceOut, nil
	})

	in.registerNative("unmeta", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		*f.Out() = *f.Arg(1)
		return BounceOut, f.Out().Unmeta()
	})

	in.registerNative("specialize", []paramSpec{
		norm("action", KindAction),
		hard("fills", KindBlock),
	}, func(f *Frame) (Bounce, error) {
		fills := in.collectContext(KindObject, f.Arg(2).Series(), f.Arg(2).Index())
		sp := Overlay(fills, 0, f.feed.sp)
		var sink Cell
		if err := in.EvalArray(f.Arg(2).Series(), sp, &sink); err != nil {
			return BounceOut, err
		}
		act := in.Specialize(f.Arg(1).Action(), fills, nil)
		InitAction(f.Out(), act)
		return BounceOut, nil
	})

	// Typechecker intrinsics: one predicate per kind, each dispatcher
	// holding its kind.
	for k := Kind(0); k < KindMax; k++ {
		switch k {
		case KindFree, KindEnd, KindMax:
			continue
		}
		name := k.String()
		name = name[:len(name)-1] + "?"
		in.registerNative(name, []paramSpec{norm("value")}, in.makeTypechecker(k))
	}

	in.registerNative("any-value?", []paramSpec{norm("value")}, func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), f.Arg(1).Stable())
		return BounceOut, nil
	})
}

// makeTypechecker builds the intrinsic predicate dispatcher for a kind.
func (in *Interp) makeTypechecker(k Kind) Dispatcher {
	return func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), f.Arg(1).kind == k && f.Arg(1).Stable())
		return BounceOut, nil
	}
}

// textResult wraps a Go string as a managed text cell.
func (in *Interp) textResult(out *Cell, s string) {
	series := in.NewBytes(len(s)+1, true)
	series.AppendBytes([]byte(s))
	in.Manage(series)
	InitText(out, series)
}

// makeDispatch implements MAKE over datatypes and context prototypes.
func (in *Interp) makeDispatch(f *Frame) (Bounce, error) {
	typ := f.Arg(1)
	def := f.Arg(2)

	// make parent-object [...] inherits the parent's keylist.
	if typ.kind == KindObject {
		if def.kind != KindBlock {
			return BounceOut, in.fail("bad-make", typ, def)
		}
		child := in.Inherit(typ.Context())
		child.Extend(def.Series(), def.Index())
		sp := Overlay(child, 0, f.feed.sp)
		var sink Cell
		if err := in.EvalArray(def.Series(), sp, &sink); err != nil {
			return BounceOut, err
		}
		InitObject(f.Out(), child)
		return BounceOut, nil
	}

	switch typ.Datatype() {
	case KindObject:
		if def.kind != KindBlock {
			return BounceOut, in.fail("bad-make", typ, def)
		}
		ctx := in.collectContext(KindObject, def.Series(), def.Index())
		sp := Overlay(ctx, 0, f.feed.sp)
		var sink Cell
		if err := in.EvalArray(def.Series(), sp, &sink); err != nil {
			return BounceOut, err
		}
		InitObject(f.Out(), ctx)
		return BounceOut, nil

	case KindError:
		if def.kind == KindText {
			ctx := in.makeErrorCtx("user", def)
			InitError(f.Out(), ctx)
			return BounceOut, nil
		}
		if def.kind != KindBlock {
			return BounceOut, in.fail("bad-make", typ, def)
		}
		ctx := in.NewContext(KindError, len(errorProtoKeys))
		for _, key := range errorProtoKeys {
			ctx.AppendKey(in.syms.intern(key))
		}
		ctx.Extend(def.Series(), def.Index())
		sp := Overlay(ctx, 0, f.feed.sp)
		var sink Cell
		if err := in.EvalArray(def.Series(), sp, &sink); err != nil {
			return BounceOut, err
		}
		InitError(f.Out(), ctx)
		return BounceOut, nil

	case KindBlock, KindGroup:
		capacity := 4
		if def.kind == KindInteger {
			capacity = int(def.Int())
		}
		arr := in.NewArray(capacity)
		if tsAnyArray.Has(def.kind) {
			for i := def.Index(); i < def.Series().Len(); i++ {
				arr.AppendCell(def.Series().At(i))
			}
		}
		in.Manage(arr)
		InitAnySeries(f.Out(), typ.Datatype(), arr, 0)
		return BounceOut, nil

	case KindText, KindBinary:
		capacity := 8
		if def.kind == KindInteger {
			capacity = int(def.Int())
		}
		s := in.NewBytes(capacity, typ.Datatype() == KindText)
		if def.kind == KindText || def.kind == KindBinary {
			s.AppendBytes(def.Series().Bytes()[def.Index():])
		}
		in.Manage(s)
		InitAnySeries(f.Out(), typ.Datatype(), s, 0)
		return BounceOut, nil
	}

	return BounceOut, in.fail("bad-make", typ, def)
}

// appendInsert implements APPEND (tail) and INSERT (at position).
func (in *Interp) appendInsert(f *Frame, tail bool) (Bounce, error) {
	target := f.Arg(1)
	value := f.Arg(2)

	if target.GetFlag(FlagConst) {
		return BounceOut, in.fail("protected", target)
	}
	s := target.Series()
	if s.GetFlag(SerFrozen) || s.GetFlag(SerFixedSize) {
		return BounceOut, in.fail("protected", target)
	}

	dup := 1
	if f.RefineActive("dup") {
		dup = int(f.ArgNamed("dup").Int())
	}

	for n := 0; n < dup; n++ {
		at := target.Index()
		if tail {
			at = s.Len()
		}
		if s.IsArray() {
			cells := in.valueAsCells(value, f.RefineActive("only"))
			if f.RefineActive("part") {
				limit := int(f.ArgNamed("part").Int())
				if limit < len(cells) {
					cells = cells[:limit]
				}
			}
			s.Expand(at, len(cells))
			for i, c := range cells {
				*s.At(at+i) = c
			}
		} else {
			raw := in.valueAsBytes(value)
			if f.RefineActive("part") {
				limit := int(f.ArgNamed("part").Int())
				if limit < len(raw) {
					raw = raw[:limit]
				}
			}
			s.AppendBytes(raw)
		}
	}

	*f.Out() = *target
	return BounceOut, nil
}

// valueAsCells splices block contents unless only is set.
func (in *Interp) valueAsCells(value *Cell, only bool) []Cell {
	if !only && (value.kind == KindBlock || value.kind == KindGroup) {
		src := value.Series()
		cells := make([]Cell, 0, src.Len()-value.Index())
		for i := value.Index(); i < src.Len(); i++ {
			cells = append(cells, *src.At(i))
		}
		return cells
	}
	return []Cell{*value}
}

// valueAsBytes renders a value for byte-series append.
func (in *Interp) valueAsBytes(value *Cell) []byte {
	switch value.kind {
	case KindText, KindBinary:
		return value.Series().Bytes()[value.Index():]
	case KindChar:
		return []byte(string(rune(value.Int())))
	case KindInteger:
		if value.Int() >= 0 && value.Int() <= 255 {
			return []byte{byte(value.Int())}
		}
	}
	return []byte(formCell(value))
}

// pickInto reads element index (1-based) of a series into out; out of
// range picks none.
func (in *Interp) pickInto(out *Cell, series *Cell, index int) error {
	at := series.Index() + index - 1
	switch series.kind {
	case KindBlock, KindGroup, KindPath, KindTuple:
		s := series.Series()
		if at < 0 || at >= s.Len() {
			InitNone(out)
			return nil
		}
		*out = *s.At(at)
	case KindText, KindBinary:
		raw := series.Series().Bytes()
		if at < 0 || at >= len(raw) {
			InitNone(out)
			return nil
		}
		if series.kind == KindText {
			InitChar(out, rune(raw[at]))
		} else {
			InitInteger(out, int64(raw[at]))
		}
	default:
		return in.fail("invalid-arg", series)
	}
	return nil
}
