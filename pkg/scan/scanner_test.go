package scan_test

import (
	"testing"

	"github.com/mwantia/vesta/pkg/runtime"
	"github.com/mwantia/vesta/pkg/scan"
)

func scanOne(t *testing.T, in *runtime.Interp, src string) *runtime.Cell {
	t.Helper()

	arr, err := scan.New(in, src).Scan()
	if err != nil {
		t.Fatalf("scan %q: %v", src, err)
	}
	if arr.Len() != 1 {
		t.Fatalf("scan %q: %d values, want 1", src, arr.Len())
	}
	cell := arr.At(0)
	in.Manage(arr)
	return cell
}

func TestScanMoldRoundTrip(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	// scan(mold(v)) must equal v strictly for every stable value class.
	sources := []string{
		"0",
		"123",
		"-7",
		"1.5",
		"-0.25",
		"foo",
		"foo:",
		":foo",
		"/ref",
		"'quoted",
		"''twice",
		"#issue",
		"a/b/c",
		"obj.a.b",
		"[1 2 [3 4] \"five\"]",
		"(1 + 2)",
		"\"hello world\"",
		"\"esc ^\" and ^^ and ^/ done\"",
		"#{DEADBEEF}",
		"#{}",
		"~",
		"~word~",
	}

	for _, src := range sources {
		orig := scanOne(t, in, src)
		molded := runtime.Mold(orig)
		again := scanOne(t, in, molded)
		if !runtime.Equal(orig, again, true) {
			t.Errorf("round trip failed for %q: molded %q, rescanned %q",
				src, molded, runtime.Mold(again))
		}
	}
}

func TestScanNumbers(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	tests := []struct {
		src  string
		kind runtime.Kind
	}{
		{"42", runtime.KindInteger},
		{"-42", runtime.KindInteger},
		{"+3", runtime.KindInteger},
		{"3.25", runtime.KindDecimal},
		{"-0.5", runtime.KindDecimal},
	}
	for _, tt := range tests {
		cell := scanOne(t, in, tt.src)
		if cell.Kind() != tt.kind {
			t.Errorf("scan %q: kind %s, want %s", tt.src, cell.Kind(), tt.kind)
		}
	}

	if got := scanOne(t, in, "42").Int(); got != 42 {
		t.Errorf("42 scanned as %d", got)
	}
	if got := scanOne(t, in, "3.25").Dec(); got != 3.25 {
		t.Errorf("3.25 scanned as %v", got)
	}
}

func TestScanWords(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	tests := []struct {
		src  string
		kind runtime.Kind
	}{
		{"foo", runtime.KindWord},
		{"foo?", runtime.KindWord},
		{"length-of", runtime.KindWord},
		{"+", runtime.KindWord},
		{"<=", runtime.KindWord},
		{"foo:", runtime.KindSetWord},
		{":foo", runtime.KindGetWord},
		{"^foo", runtime.KindMetaWord},
		{"^foo:", runtime.KindMetaSetWord},
		{"/only", runtime.KindRefinement},
	}
	for _, tt := range tests {
		cell := scanOne(t, in, tt.src)
		if cell.Kind() != tt.kind {
			t.Errorf("scan %q: kind %s, want %s", tt.src, cell.Kind(), tt.kind)
		}
	}
}

func TestScanSequences(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	path := scanOne(t, in, "a/b/c")
	if path.Kind() != runtime.KindPath {
		t.Fatalf("a/b/c: kind %s", path.Kind())
	}
	if n := path.Series().Len(); n != 3 {
		t.Errorf("a/b/c: %d segments, want 3", n)
	}

	tuple := scanOne(t, in, "obj.field")
	if tuple.Kind() != runtime.KindTuple {
		t.Fatalf("obj.field: kind %s", tuple.Kind())
	}

	setPath := scanOne(t, in, "a/b:")
	if setPath.Kind() != runtime.KindSetPath {
		t.Errorf("a/b:: kind %s, want set-path!", setPath.Kind())
	}

	setTuple := scanOne(t, in, "obj.field:")
	if setTuple.Kind() != runtime.KindSetTuple {
		t.Errorf("obj.field:: kind %s, want set-tuple!", setTuple.Kind())
	}

	// A standalone slash is the division word, not a path.
	word := scanOne(t, in, "/")
	if word.Kind() != runtime.KindWord || word.Word().Text() != "/" {
		t.Errorf("standalone / scanned as %s %q", word.Kind(), runtime.Mold(word))
	}
}

func TestScanQuoted(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	q := scanOne(t, in, "'foo")
	if q.Kind() != runtime.KindWord || q.QuoteLevel() != 1 {
		t.Errorf("'foo: kind %s level %d", q.Kind(), q.QuoteLevel())
	}

	qqq := scanOne(t, in, "'''foo")
	if qqq.QuoteLevel() != 3 {
		t.Errorf("'''foo: level %d, want 3", qqq.QuoteLevel())
	}

	qb := scanOne(t, in, "'[a b]")
	if qb.Kind() != runtime.KindBlock || qb.QuoteLevel() != 1 {
		t.Errorf("'[a b]: kind %s level %d", qb.Kind(), qb.QuoteLevel())
	}
}

func TestScanErrors(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	bad := []string{
		"[1 2",
		"(1 2",
		"\"unterminated",
		"#{AB1}",
		"1 2 ]",
		"~open",
	}
	for _, src := range bad {
		if _, err := scan.New(in, src).Scan(); err == nil {
			t.Errorf("scan %q must fail", src)
		}
	}
}

func TestScanComments(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	arr, err := scan.New(in, "1 ; comment to end of line\n2").Scan()
	if err != nil {
		t.Fatal(err)
	}
	defer in.Manage(arr)
	if arr.Len() != 2 {
		t.Fatalf("length = %d, want 2", arr.Len())
	}
	if !arr.At(1).GetFlag(runtime.FlagNewline) {
		t.Error("the value after a newline must carry the newline flag")
	}
}

func TestErrorContextRoundTrip(t *testing.T) {
	in := runtime.New()
	defer in.Shutdown()

	out, err := in.Do("trap [1 / 0]")
	if err != nil {
		t.Fatal(err)
	}
	molded := runtime.Mold(out)

	again, err := in.Do(molded)
	if err != nil {
		t.Fatalf("do of molded error %q: %v", molded, err)
	}
	if again.Kind() != runtime.KindError {
		t.Fatalf("remade value is %s, want error!", again.Kind())
	}
	if runtime.ErrorID(again.Context()) != "zero-divide" {
		t.Errorf("remade error id = %q", runtime.ErrorID(again.Context()))
	}
}
