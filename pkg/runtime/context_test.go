package runtime

import "testing"

func TestContextBasics(t *testing.T) {
	in := New()
	defer in.Shutdown()

	ctx := in.NewContext(KindObject, 2)
	a := ctx.AppendKey(in.Intern("a"))
	InitInteger(a, 1)
	b := ctx.AppendKey(in.Intern("b"))
	InitInteger(b, 2)

	if ctx.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ctx.Len())
	}
	if ctx.Find(in.Intern("A"), false) != 1 {
		t.Error("Find must be case-insensitive by default")
	}
	if ctx.Find(in.Intern("A"), true) != 0 {
		t.Error("strict Find must respect casing")
	}
	if ctx.Slot(2).Int() != 2 {
		t.Error("slot 2 lost its value")
	}
	if ctx.Archetype().Kind() != KindObject {
		t.Error("archetype kind mismatch")
	}
}

func TestContextPositionalEquality(t *testing.T) {
	in := New()
	defer in.Shutdown()

	build := func(keys []string, vals []int64) *Context {
		ctx := in.NewContext(KindObject, len(keys))
		for i, k := range keys {
			InitInteger(ctx.AppendKey(in.Intern(k)), vals[i])
		}
		return ctx
	}

	a := build([]string{"x", "y"}, []int64{1, 2})
	b := build([]string{"x", "y"}, []int64{1, 2})
	c := build([]string{"y", "x"}, []int64{2, 1})
	d := build([]string{"x", "y"}, []int64{1, 3})

	if !equalContexts(a, b, true) {
		t.Error("same keys, same order, same values: must be equal")
	}
	if equalContexts(a, c, true) {
		t.Error("equality is positional; reordered keys must differ")
	}
	if equalContexts(a, d, true) {
		t.Error("differing values must not compare equal")
	}

	// Adding a hidden slot preserves equality.
	hidden := b.AppendKey(in.Intern("secret"))
	InitInteger(hidden, 999)
	hidden.SetFlag(FlagHidden)
	if !equalContexts(a, b, true) {
		t.Error("hidden slots must be skipped by equality")
	}
}

func TestSharedKeylistCopyOnExtend(t *testing.T) {
	in := New()
	defer in.Shutdown()

	parent := in.NewContext(KindObject, 2)
	InitInteger(parent.AppendKey(in.Intern("a")), 1)

	child := in.Inherit(parent)
	if child.keys != parent.keys {
		t.Fatal("inherited context must share the keylist")
	}
	if child.Slot(1).Int() != 1 {
		t.Fatal("inherited values must copy")
	}

	// Extending the child forces a unique keylist and leaves the parent
	// untouched.
	child.AppendKey(in.Intern("b"))
	if child.keys == parent.keys {
		t.Error("extension must make the keylist unique")
	}
	if parent.Len() != 1 {
		t.Errorf("parent grew to %d keys", parent.Len())
	}
	if !child.DerivesFrom(parent.keys) {
		t.Error("unique keylist must keep the ancestor link")
	}
}

func TestProtectedSlot(t *testing.T) {
	in := New()
	defer in.Shutdown()

	ctx := in.NewContext(KindObject, 1)
	slot := ctx.AppendKey(in.Intern("x"))
	InitInteger(slot, 10)
	slot.SetFlag(FlagProtected)

	var word Cell
	InitWord(&word, in.Intern("x"))
	BindOne(&word, ctx)

	var val Cell
	InitInteger(&val, 20)
	_, err := in.setVar(&word, nil, &val)
	if err == nil {
		t.Fatal("writing a protected slot must fail")
	}
	thrown, ok := err.(*Throw)
	if !ok || !thrown.IsError() {
		t.Fatalf("protected write raised %T, want error throw", err)
	}
	if id := ErrorID(thrown.Label.Context()); id != "protected-word" {
		t.Errorf("error id = %q, want protected-word", id)
	}
	if ctx.Slot(1).Int() != 10 {
		t.Error("protected slot was modified")
	}
}

func TestBindingCacheRefresh(t *testing.T) {
	in := New()
	defer in.Shutdown()

	ctx := in.NewContext(KindObject, 2)
	InitInteger(ctx.AppendKey(in.Intern("a")), 1)
	InitInteger(ctx.AppendKey(in.Intern("b")), 2)

	var word Cell
	InitWord(&word, in.Intern("b"))
	BindOne(&word, ctx)

	// Poison the cache: resolution must re-find by symbol and repair it.
	word.bindIdx = 1
	slot, _, idx, err := in.resolve(&word, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slot.Int() != 2 || idx != 2 {
		t.Errorf("resolved slot %d value %d, want slot 2 value 2", idx, slot.Int())
	}
	if word.bindIdx != 2 {
		t.Error("stale cache was not refreshed")
	}
}

func TestVirtualBindingOverlay(t *testing.T) {
	in := New()
	defer in.Shutdown()

	base := in.NewContext(KindObject, 1)
	InitInteger(base.AppendKey(in.Intern("x")), 1)

	shadow := in.NewContext(KindObject, 1)
	InitInteger(shadow.AppendKey(in.Intern("x")), 2)

	var word Cell
	InitWord(&word, in.Intern("x"))
	BindOne(&word, base)

	// The overlay wins over the cell's own binding without mutating it.
	sp := Overlay(shadow, 0, nil)
	slot, _, _, err := in.resolve(&word, sp)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slot.Int() != 2 {
		t.Errorf("overlay lookup = %d, want 2", slot.Int())
	}
	if word.binding != base {
		t.Error("overlay resolution must not rewrite the cell binding")
	}

	slot, _, _, err = in.resolve(&word, nil)
	if err != nil || slot.Int() != 1 {
		t.Error("without the overlay the cell binding must resolve")
	}
}
