package runtime

import "testing"

func intCell(i int64) *Cell {
	var c Cell
	InitInteger(&c, i)
	return &c
}

func TestArrayEndInvariant(t *testing.T) {
	in := New()
	defer in.Shutdown()

	arr := in.NewArray(4)
	defer in.Free(arr)

	if arr.Len() != 0 {
		t.Fatalf("new array length = %d, want 0", arr.Len())
	}
	for i := int64(1); i <= 10; i++ {
		arr.AppendCell(intCell(i))
	}
	if arr.Len() != 10 {
		t.Fatalf("length = %d, want 10", arr.Len())
	}
	if arr.At(arr.Len()).Kind() != KindEnd {
		t.Error("array must terminate with an end marker past the tail")
	}
}

func TestExpandPreservesContents(t *testing.T) {
	in := New()
	defer in.Shutdown()

	arr := in.NewArray(4)
	defer in.Free(arr)

	for i := int64(1); i <= 8; i++ {
		arr.AppendCell(intCell(i))
	}

	// Interior gap.
	arr.Expand(4, 3)
	for i := 0; i < 3; i++ {
		*arr.At(4 + i) = *intCell(100 + int64(i))
	}

	want := []int64{1, 2, 3, 4, 100, 101, 102, 5, 6, 7, 8}
	if arr.Len() != len(want) {
		t.Fatalf("length = %d, want %d", arr.Len(), len(want))
	}
	for i, w := range want {
		if got := arr.At(i).Int(); got != w {
			t.Errorf("slot %d = %d, want %d", i, got, w)
		}
	}
	if arr.At(arr.Len()).Kind() != KindEnd {
		t.Error("expansion must keep the end marker")
	}
}

func TestHeadInsertUsesBias(t *testing.T) {
	in := New()
	defer in.Shutdown()

	arr := in.NewArray(8)
	defer in.Free(arr)

	for i := int64(1); i <= 4; i++ {
		arr.AppendCell(intCell(i))
	}

	// Removal at the head reserves bias; a head insert then reuses it.
	arr.RemoveAt(0, 2)
	if arr.Len() != 2 || arr.At(0).Int() != 3 {
		t.Fatalf("after head removal: len %d head %d", arr.Len(), arr.At(0).Int())
	}

	arr.Expand(0, 1)
	*arr.At(0) = *intCell(99)

	want := []int64{99, 3, 4}
	for i, w := range want {
		if got := arr.At(i).Int(); got != w {
			t.Errorf("slot %d = %d, want %d", i, got, w)
		}
	}
}

func TestCopyDeep(t *testing.T) {
	in := New()
	defer in.Shutdown()

	inner := in.NewArray(2)
	inner.AppendCell(intCell(7))
	in.Manage(inner)

	outer := in.NewArray(2)
	var blk Cell
	InitBlock(&blk, inner)
	outer.AppendCell(&blk)
	in.Manage(outer)

	shallow := in.CopyArray(outer, 0, false)
	deep := in.CopyArray(outer, 0, true)
	defer in.Free(shallow)
	defer in.Free(deep)

	if shallow.At(0).Series() != inner {
		t.Error("shallow copy must share nested arrays")
	}
	if deep.At(0).Series() == inner {
		t.Error("deep copy must not share nested arrays")
	}
	if deep.At(0).Series().At(0).Int() != 7 {
		t.Error("deep copy lost nested contents")
	}
}

func TestInaccessibleSeries(t *testing.T) {
	in := New()
	defer in.Shutdown()

	arr := in.NewArray(2)
	arr.AppendCell(intCell(1))
	in.Free(arr)

	if arr.Accessible() {
		t.Fatal("freed series must be inaccessible")
	}

	defer func() {
		if recover() == nil {
			t.Error("data access to inaccessible series must panic")
		}
	}()
	arr.At(0)
}

func TestByteSeriesAppend(t *testing.T) {
	in := New()
	defer in.Shutdown()

	s := in.NewBytes(4, true)
	defer in.Free(s)

	s.AppendBytes([]byte("hello"))
	s.AppendBytes([]byte(" world"))
	if got := string(s.Bytes()); got != "hello world" {
		t.Errorf("Bytes = %q, want %q", got, "hello world")
	}
}

func TestPairing(t *testing.T) {
	in := New()
	defer in.Shutdown()

	pair := in.NewPairing()
	InitInteger(pair.PairingValue(), 42)
	InitNone(pair.PairingKey())

	if pair.PairingValue().Int() != 42 {
		t.Error("pairing value slot lost its cell")
	}
	if !pair.GetFlag(SerPairing) {
		t.Error("pairing must carry the pairing flag")
	}
}
