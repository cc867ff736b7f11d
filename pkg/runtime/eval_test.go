package runtime_test

import (
	"testing"

	"github.com/mwantia/vesta/pkg/runtime"

	// Install the scanner behind runtime.Scanner.
	_ "github.com/mwantia/vesta/pkg/scan"
)

func evalValue(t *testing.T, in *runtime.Interp, src string) *runtime.Cell {
	t.Helper()

	out, err := in.Do(src)
	if err != nil {
		t.Fatalf("do %q: %v", src, err)
	}
	return out
}

func evalInt(t *testing.T, in *runtime.Interp, src string) int64 {
	t.Helper()

	out := evalValue(t, in, src)
	if out.Kind() != runtime.KindInteger {
		t.Fatalf("do %q: got %s, want integer!", src, out.Kind())
	}
	return out.Int()
}

func evalText(t *testing.T, in *runtime.Interp, src string) string {
	t.Helper()

	out := evalValue(t, in, src)
	if out.Kind() != runtime.KindText {
		t.Fatalf("do %q: got %s, want text!", src, out.Kind())
	}
	return string(out.Series().Bytes()[out.Index():])
}

func TestIntegerArithmetic(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	tests := []struct {
		input    string
		expected int64
	}{
		{"1 + 2", 3},
		{"add 1 2", 3},
		{"10 - 4", 6},
		{"6 * 7", 42},
		{"10 / 2", 5},
		{"remainder 10 3", 1},
		{"negate 5", -5},
		{"1 + 2 * 3", 9}, // strict left-to-right, no precedence
		{"(1 + 2) * 3", 9},
		{"1 + (2 * 3)", 7},
		{"add 1 + 2 3", 6},
	}

	for _, tt := range tests {
		if got := evalInt(t, in, tt.input); got != tt.expected {
			t.Errorf("%q = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestAssignmentAndLookup(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "x: 10  add x 5"); got != 15 {
		t.Fatalf("x: 10 add x 5 = %d, want 15", got)
	}
	// The assignment itself held: x still reads 10.
	if got := evalInt(t, in, "x"); got != 10 {
		t.Errorf("x = %d after call, want 10", got)
	}
}

func TestEitherBranches(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalText(t, in, `either 1 < 2 ["yes"] ["no"]`); got != "yes" {
		t.Errorf("either = %q, want yes", got)
	}
	if got := evalText(t, in, `either 2 < 1 ["yes"] ["no"]`); got != "no" {
		t.Errorf("either = %q, want no", got)
	}
}

func TestFuncInvocation(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "f: func [a b] [a * b + 1]  f 3 4"); got != 13 {
		t.Errorf("f 3 4 = %d, want 13", got)
	}
}

func TestMakeObject(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "obj: make object! [a: 1 b: 2]  obj.a + obj.b"); got != 3 {
		t.Errorf("obj.a + obj.b = %d, want 3", got)
	}
}

func TestObjectInheritance(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	src := "base: make object! [a: 1 b: 2]  kid: make base [b: 20 c: 3]  kid.a + kid.b + kid.c"
	if got := evalInt(t, in, src); got != 24 {
		t.Errorf("inherited object sum = %d, want 24", got)
	}
	// The parent is untouched.
	if got := evalInt(t, in, "base.b"); got != 2 {
		t.Errorf("base.b = %d, want 2", got)
	}
}

func TestCatchThrow(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "catch [throw 1]"); got != 1 {
		t.Errorf("catch [throw 1] = %d, want 1", got)
	}

	src := "catch [repeat i 10 [if i = 4 [throw i]]  -1]"
	if got := evalInt(t, in, src); got != 4 {
		t.Errorf("%q = %d, want 4", src, got)
	}

	// A named throw passes an unmatching catch/name.
	if _, err := in.Do("catch/name [throw/name 2 'foo] 'bar"); err == nil {
		t.Error("unmatched named throw must surface")
	}
	if got := evalInt(t, in, "catch/name [throw/name 2 'foo] 'foo"); got != 2 {
		t.Errorf("matched catch/name = %d, want 2", got)
	}
}

func TestDefinitionalReturn(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "f: func [] [return 1, 2]  f"); got != 1 {
		t.Errorf("return short-circuit = %d, want 1", got)
	}

	// RETURN in an inner call targets the function that injected it, not
	// the caller.
	src := "outer: func [] [inner: func [] [return 10]  inner  20]  outer"
	if got := evalInt(t, in, src); got != 20 {
		t.Errorf("definitional return = %d, want 20", got)
	}
}

func TestInvisibility(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, `x: 10 comment "hi" 20`); got != 20 {
		t.Errorf("result = %d, want 20", got)
	}
	if got := evalInt(t, in, "x"); got != 10 {
		t.Errorf("x = %d, want 10", got)
	}

	// elide evaluates its argument but leaves no value.
	if got := evalInt(t, in, "y: 1  5 elide (y: 2)"); got != 5 {
		t.Errorf("elide result = %d, want 5", got)
	}
	if got := evalInt(t, in, "y"); got != 2 {
		t.Errorf("y = %d, want 2 (elide still evaluates)", got)
	}
}

func TestVoidVanishes(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	// An empty group is a pure absence; the prior value stands.
	if got := evalInt(t, in, "10 ()"); got != 10 {
		t.Errorf("10 () = %d, want 10", got)
	}

	// Assigning a void is an error.
	if _, err := in.Do("x: ()"); err == nil {
		t.Error("assigning a void must error")
	}
}

func TestTrapZeroDivide(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	out := evalValue(t, in, "trap [1 / 0]")
	if out.Kind() != runtime.KindError {
		t.Fatalf("trap result = %s, want error!", out.Kind())
	}
	if id := runtime.ErrorID(out.Context()); id != "zero-divide" {
		t.Errorf("error id = %q, want zero-divide", id)
	}
}

func TestProtectedWordError(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	out := evalValue(t, in, "p: 10  protect 'p  trap [p: 20]")
	if out.Kind() != runtime.KindError {
		t.Fatalf("trap result = %s, want error!", out.Kind())
	}
	if id := runtime.ErrorID(out.Context()); id != "protected-word" {
		t.Errorf("error id = %q, want protected-word", id)
	}
	if got := evalInt(t, in, "unprotect 'p  p"); got != 10 {
		t.Errorf("p = %d, want 10 (write must not land)", got)
	}
}

func TestWhileLoop(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	src := "n: 0  total: 0  while [n < 5] [n: n + 1  total: total + n]  total"
	if got := evalInt(t, in, src); got != 15 {
		t.Errorf("while sum = %d, want 15", got)
	}
}

func TestBreakContinue(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	src := "total: 0  repeat i 10 [if i = 3 [continue]  if i = 6 [break]  total: total + i]  total"
	// 1+2+4+5 = 12
	if got := evalInt(t, in, src); got != 12 {
		t.Errorf("break/continue sum = %d, want 12", got)
	}
}

func TestRefinementCall(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	out := evalValue(t, in, "blk: copy [1 2]  append/dup blk 0 3  blk")
	if out.Kind() != runtime.KindBlock {
		t.Fatalf("got %s, want block!", out.Kind())
	}
	if n := out.Series().Len(); n != 5 {
		t.Errorf("block length = %d, want 5 after append/dup", n)
	}
}

func TestCommaBarrier(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "1 + 2, 5"); got != 5 {
		t.Errorf("result = %d, want 5", got)
	}
	// An argument cannot reach across the barrier.
	if _, err := in.Do("add 1,"); err == nil {
		t.Error("argument gathering across a comma must error")
	}
}

func TestUnwindByDepth(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	// unwind 2 skips the inner function and terminates the outer one.
	src := "outer: func [] [inner: func [] [unwind 2 99  1]  inner  2]  outer"
	if got := evalInt(t, in, src); got != 99 {
		t.Errorf("unwind 2 = %d, want 99", got)
	}
}

func TestGetAndSetWords(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	if got := evalInt(t, in, "v: 7  w: :v  w"); got != 7 {
		t.Errorf("get-word copy = %d, want 7", got)
	}
	if got := evalInt(t, in, "set 'z 11  z"); got != 11 {
		t.Errorf("set 'z = %d, want 11", got)
	}
	if got := evalInt(t, in, "get 'z"); got != 11 {
		t.Errorf("get 'z = %d, want 11", got)
	}
}

func TestQuoteSemantics(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	out := evalValue(t, in, "'foo")
	if out.Kind() != runtime.KindWord || out.IsQuoted() {
		t.Errorf("'foo must evaluate to the plain word foo")
	}

	out = evalValue(t, in, "''foo")
	if out.QuoteLevel() != 1 {
		t.Errorf("''foo must evaluate to 'foo (one quote level), got %d", out.QuoteLevel())
	}

	out = evalValue(t, in, "quote 5")
	if out.QuoteLevel() != 1 || out.Kind() != runtime.KindInteger {
		t.Error("quote 5 must yield '5")
	}
}

func TestTypePredicates(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	truthy := []string{
		"integer? 1",
		"block? [a b]",
		"word? 'foo",
		"object? make object! [a: 1]",
		"error? trap [1 / 0]",
		"action? :add",
		"none? none",
	}
	for _, src := range truthy {
		out := evalValue(t, in, src)
		if out.Kind() != runtime.KindLogic || !out.Logic() {
			t.Errorf("%q must be true", src)
		}
	}
}

func TestValueSplicingAPI(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	var five runtime.Cell
	runtime.InitInteger(&five, 5)

	out, err := in.Value("3 +", &five)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if out.Kind() != runtime.KindInteger || out.Int() != 8 {
		t.Errorf("Value spliced = %s, want integer 8", runtime.Mold(out))
	}

	if _, err := in.Value("1 +", nil); err == nil {
		t.Error("nil part must be rejected")
	}
}
