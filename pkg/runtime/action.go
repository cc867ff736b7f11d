package runtime

// ParamClass tells the evaluator how to fulfill one parameter.
type ParamClass uint8

const (
	ParamNormal ParamClass = iota // evaluate one expression
	ParamHard                     // consume the next cell literally
	ParamSoft                     // literal, but evaluate groups and get-words
	ParamMeta                     // evaluate, then meta-quote the result
	ParamRefine                   // named option at the call site
	ParamReturn                   // definitional return slot, not from input
	ParamOutput                   // output slot, not from input
	ParamLocal                    // local slot, not from input
)

// Parameter modifier bits, precomputed from the spec array's tags so the
// fulfillment loop never rescans it.
const (
	pmEndable  = 1 << iota // <end>: feed exhaustion yields none
	pmOpt                  // <opt>: accepts none
	pmSkip                 // <skip>: soft parameter that may be absent
	pmVariadic             // <variadic>: gathers to the next barrier
	pmMaybe                // <maybe>: a void argument arrives as none; the call still runs
	pmConst                // <const>: argument is forced const
	pmUnrun                // <unrun>: actions arrive inert
)

// Parameter cells pack class, modifiers and the typecheck bitset into the
// integer payload; the node payload holds the frozen spec array.
const (
	paramTypesMask = (1 << 40) - 1
	paramModShift  = 40
	paramClassShift = 56
)

// InitParam writes a parameter descriptor cell.
func InitParam(c *Cell, sym *Symbol, class ParamClass, mods int, types TypeSet, spec *Series) {
	c.reset(KindParameter)
	c.word = sym
	c.i = int64(uint64(types)&paramTypesMask |
		uint64(mods)<<paramModShift |
		uint64(class)<<paramClassShift)
	c.node = spec
}

// ParamClassOf reads the class of a parameter cell.
func ParamClassOf(c *Cell) ParamClass {
	return ParamClass(uint64(c.i) >> paramClassShift)
}

// paramMods reads the modifier bits.
func paramMods(c *Cell) int {
	return int(uint64(c.i)>>paramModShift) & 0xFFFF
}

// paramTypes reads the typecheck bitset. A zero set accepts any value.
func paramTypes(c *Cell) TypeSet {
	return TypeSet(uint64(c.i) & paramTypesMask)
}

// paramTakesArg reports whether a refinement parameter carries its own
// argument (a non-empty typeset) or is a plain switch.
func paramTakesArg(c *Cell) bool {
	return paramTypes(c) != 0
}

// Dispatcher runs an action over its filled frame. It writes the result
// through f.Out and reports invisibility through the bounce.
type Dispatcher func(f *Frame) (Bounce, error)

// Bounce is a dispatcher's non-error outcome.
type Bounce uint8

const (
	// BounceOut means f.Out holds the result.
	BounceOut Bounce = iota

	// BounceInvisible means the expression leaves no value; the evaluator
	// restores the previous output.
	BounceInvisible

	// BounceVoid means the result is a vanishing void.
	BounceVoid
)

// Action is an invocable. The paramlist is an immutable cell array whose
// slot 0 is the archetype and whose remaining slots are parameter
// descriptors; details carries dispatcher state; exemplar holds partial
// specialization values.
type Action struct {
	paramlist *Series
	details   *Series
	dispatch  Dispatcher
	exemplar  *Context
	adjunct   *Context
	sym       *Symbol
	keys      *Series // cached keylist derived from the paramlist
}

// Name returns the action's primary symbol, or nil for anonymous actions.
func (a *Action) Name() *Symbol {
	return a.sym
}

// NumParams returns the parameter count (paramlist minus archetype).
func (a *Action) NumParams() int {
	return a.paramlist.Len() - 1
}

// Param returns parameter descriptor n (1-indexed, aligned with frame
// slots).
func (a *Action) Param(n int) *Cell {
	return a.paramlist.At(n)
}

// FindParam locates a parameter by symbol, 0 if absent.
func (a *Action) FindParam(sym *Symbol) int {
	for i := 1; i <= a.NumParams(); i++ {
		if a.Param(i).word.SameWord(sym) {
			return i
		}
	}
	return 0
}

// paramSpec describes one parameter for programmatic action construction
// (natives are built this way; FUNC builds paramlists from spec blocks).
type paramSpec struct {
	name  string
	class ParamClass
	mods  int
	types TypeSet
}

// makeAction assembles an action from parameter specs and a dispatcher.
func (in *Interp) makeAction(name string, params []paramSpec, details *Series, d Dispatcher) *Action {
	list := in.NewArray(len(params) + 1)
	list.flags |= SerParamlist

	act := &Action{
		paramlist: list,
		details:   details,
		dispatch:  d,
	}
	if name != "" {
		act.sym = in.syms.intern(name)
	}

	archetype := list.AppendCell(&Cell{})
	archetype.reset(KindAction)
	archetype.node = act
	archetype.word = act.sym

	for _, p := range params {
		cell := list.AppendCell(&Cell{})
		InitParam(cell, in.syms.intern(p.name), p.class, p.mods, p.types, nil)
	}
	list.Term()
	list.flags |= SerFrozen
	in.Manage(list)
	return act
}

// registerNative builds a native action and binds it into lib.
func (in *Interp) registerNative(name string, params []paramSpec, d Dispatcher) *Action {
	act := in.makeAction(name, params, nil, d)
	slot := in.libSlot(name)
	InitAction(slot, act)
	return act
}

// registerEnfix is registerNative with the enfix bit set on the lib slot.
func (in *Interp) registerEnfix(name string, params []paramSpec, d Dispatcher) *Action {
	act := in.registerNative(name, params, d)
	in.libSlot(name).SetFlag(FlagEnfix)
	return act
}

// Specialize builds a new action with some arguments fixed. The exemplar
// context holds the fixed values; unfilled refinement slots keep ordering
// tokens naming their data-stack priority so foo/ref2/ref3 and
// foo/ref3/ref2 stay distinct through partial specialization.
func (in *Interp) Specialize(base *Action, fills *Context, refineOrder []*Symbol) *Action {
	exemplar := in.frameContextFor(base)

	for i := 1; i <= base.NumParams(); i++ {
		param := base.Param(i)
		if n := fills.Find(param.word, false); n != 0 {
			slot := exemplar.Slot(i)
			*slot = *fills.Slot(n)
			slot.SetFlag(FlagHidden) // specialized-out slots vanish from the interface
		}
	}

	// Ordering tokens: each partially-ordered refinement records its
	// priority position; dispatch pops them in order.
	for pri, sym := range refineOrder {
		if n := base.FindParam(sym); n != 0 {
			slot := exemplar.Slot(n)
			InitInteger(slot, int64(pri+1))
			slot.SetFlag(FlagStale) // token, not a value
		}
	}

	details := in.NewArray(1)
	InitAction(details.AppendCell(&Cell{}), base)
	in.Manage(details)

	act := &Action{
		paramlist: base.paramlist,
		details:   details,
		dispatch:  specializerDispatch,
		exemplar:  exemplar,
		sym:       base.sym,
	}
	return act
}

// specializerDispatch copies exemplar fills into the frame, consolidates
// refinement ordering tokens, then redispatches the underlying action.
func specializerDispatch(f *Frame) (Bounce, error) {
	base := f.phase.details.At(0).Action()
	exemplar := f.phase.exemplar

	type ordered struct {
		pri  int
		slot int
	}
	var pending []ordered

	for i := 1; i <= base.NumParams(); i++ {
		ex := exemplar.Slot(i)
		if ex.GetFlag(FlagStale) && ex.kind == KindInteger {
			pending = append(pending, ordered{pri: int(ex.Int()), slot: i})
			continue
		}
		if ex.GetFlag(FlagHidden) {
			slot := f.varlist.Slot(i)
			flags := slot.flags & (FlagProtected | FlagHidden)
			*slot = *ex
			slot.flags = ex.flags&^FlagHidden | flags
		}
	}

	// Pop ordering tokens in priority order: the next positional argument
	// from the data stack lands in the lowest-priority slot first.
	for i := 0; i < len(pending); i++ {
		for j := i + 1; j < len(pending); j++ {
			if pending[j].pri < pending[i].pri {
				pending[i], pending[j] = pending[j], pending[i]
			}
		}
	}
	for _, p := range pending {
		if f.in.dstackLen() > f.baseline {
			val := f.in.dstackPop()
			*f.varlist.Slot(p.slot) = val
		}
	}

	prior := f.phase
	f.phase = base
	defer func() { f.phase = prior }()
	return base.dispatch(f)
}
