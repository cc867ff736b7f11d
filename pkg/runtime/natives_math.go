package runtime

// Arithmetic and comparison natives. The operator spellings (+ - * / and
// friends) are bound enfix in lib; the word forms (add, multiply) are
// separate prefix actions sharing the same dispatchers.

type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opRem
)

func (in *Interp) arithDispatch(op arithOp) Dispatcher {
	return func(f *Frame) (Bounce, error) {
		a, b := f.Arg(1), f.Arg(2)

		if a.kind == KindInteger && b.kind == KindInteger {
			return in.intArith(f, op, a.Int(), b.Int())
		}
		return in.decArith(f, op, numValue(a), numValue(b))
	}
}

func (in *Interp) intArith(f *Frame, op arithOp, a, b int64) (Bounce, error) {
	var r int64
	switch op {
	case opAdd:
		r = a + b
		if (r > a) != (b > 0) {
			return BounceOut, in.fail("overflow")
		}
	case opSub:
		r = a - b
		if (r < a) != (b > 0) {
			return BounceOut, in.fail("overflow")
		}
	case opMul:
		r = a * b
		if a != 0 && r/a != b {
			return BounceOut, in.fail("overflow")
		}
	case opDiv:
		if b == 0 {
			return BounceOut, in.fail("zero-divide")
		}
		if a%b != 0 {
			InitDecimal(f.Out(), float64(a)/float64(b))
			return BounceOut, nil
		}
		r = a / b
	case opRem:
		if b == 0 {
			return BounceOut, in.fail("zero-divide")
		}
		r = a % b
	}
	InitInteger(f.Out(), r)
	return BounceOut, nil
}

func (in *Interp) decArith(f *Frame, op arithOp, a, b float64) (Bounce, error) {
	var r float64
	switch op {
	case opAdd:
		r = a + b
	case opSub:
		r = a - b
	case opMul:
		r = a * b
	case opDiv:
		if b == 0 {
			return BounceOut, in.fail("zero-divide")
		}
		r = a / b
	case opRem:
		if b == 0 {
			return BounceOut, in.fail("zero-divide")
		}
		r = float64(int64(a) % int64(b))
	}
	InitDecimal(f.Out(), r)
	return BounceOut, nil
}

type cmpOp int

const (
	cmpEq cmpOp = iota
	cmpNe
	cmpLt
	cmpGt
	cmpLe
	cmpGe
)

func (in *Interp) compareDispatch(op cmpOp) Dispatcher {
	return func(f *Frame) (Bounce, error) {
		a, b := f.Arg(1), f.Arg(2)

		if op == cmpEq || op == cmpNe {
			eq := Equal(a, b, false)
			InitLogic(f.Out(), eq == (op == cmpEq))
			return BounceOut, nil
		}

		var less, equal bool
		switch {
		case tsAnyNumber.Has(a.kind) && tsAnyNumber.Has(b.kind):
			va, vb := numValue(a), numValue(b)
			less, equal = va < vb, va == vb
		case a.kind == KindText && b.kind == KindText:
			sa := string(a.Series().Bytes()[a.Index():])
			sb := string(b.Series().Bytes()[b.Index():])
			less, equal = sa < sb, sa == sb
		case a.kind == KindChar && b.kind == KindChar:
			less, equal = a.Int() < b.Int(), a.Int() == b.Int()
		default:
			return BounceOut, in.fail("invalid-arg", b)
		}

		var r bool
		switch op {
		case cmpLt:
			r = less
		case cmpGt:
			r = !less && !equal
		case cmpLe:
			r = less || equal
		case cmpGe:
			r = !less
		}
		InitLogic(f.Out(), r)
		return BounceOut, nil
	}
}

func (in *Interp) registerMathNatives() {
	two := func() []paramSpec {
		return []paramSpec{norm("value1"), norm("value2")}
	}

	arith := map[string]arithOp{
		"add": opAdd, "subtract": opSub, "multiply": opMul,
		"divide": opDiv, "remainder": opRem,
	}
	for name, op := range arith {
		in.registerNative(name, two(), in.arithDispatch(op))
	}
	in.registerEnfix("+", two(), in.arithDispatch(opAdd))
	in.registerEnfix("-", two(), in.arithDispatch(opSub))
	in.registerEnfix("*", two(), in.arithDispatch(opMul))
	in.registerEnfix("/", two(), in.arithDispatch(opDiv))

	in.registerEnfix("=", two(), in.compareDispatch(cmpEq))
	in.registerEnfix("<>", two(), in.compareDispatch(cmpNe))
	in.registerEnfix("<", two(), in.compareDispatch(cmpLt))
	in.registerEnfix(">", two(), in.compareDispatch(cmpGt))
	in.registerEnfix("<=", two(), in.compareDispatch(cmpLe))
	in.registerEnfix(">=", two(), in.compareDispatch(cmpGe))
	in.registerNative("equal?", two(), in.compareDispatch(cmpEq))
	in.registerNative("lesser?", two(), in.compareDispatch(cmpLt))
	in.registerNative("greater?", two(), in.compareDispatch(cmpGt))

	in.registerNative("strict-equal?", two(), func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), Equal(f.Arg(1), f.Arg(2), true))
		return BounceOut, nil
	})

	in.registerNative("negate", []paramSpec{
		norm("value", KindInteger, KindDecimal),
	}, func(f *Frame) (Bounce, error) {
		v := f.Arg(1)
		if v.kind == KindInteger {
			InitInteger(f.Out(), -v.Int())
		} else {
			InitDecimal(f.Out(), -v.Dec())
		}
		return BounceOut, nil
	})

	in.registerNative("not", []paramSpec{
		norm("value"),
	}, func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), !f.Arg(1).Truthy())
		return BounceOut, nil
	})

	in.registerEnfix("and", two(), func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), f.Arg(1).Truthy() && f.Arg(2).Truthy())
		return BounceOut, nil
	})

	in.registerEnfix("or", two(), func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), f.Arg(1).Truthy() || f.Arg(2).Truthy())
		return BounceOut, nil
	})

	in.registerNative("odd?", []paramSpec{
		norm("value", KindInteger),
	}, func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), f.Arg(1).Int()%2 != 0)
		return BounceOut, nil
	})

	in.registerNative("even?", []paramSpec{
		norm("value", KindInteger),
	}, func(f *Frame) (Bounce, error) {
		InitLogic(f.Out(), f.Arg(1).Int()%2 == 0)
		return BounceOut, nil
	})
}
