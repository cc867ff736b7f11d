package runtime

import "testing"

func TestQuoteRoundTrip(t *testing.T) {
	in := New()
	defer in.Shutdown()

	samples := []func(*Cell){
		func(c *Cell) { InitInteger(c, 42) },
		func(c *Cell) { InitDecimal(c, 1.5) },
		func(c *Cell) { InitLogic(c, true) },
		func(c *Cell) { InitNone(c) },
		func(c *Cell) { InitWord(c, in.Intern("foo")) },
	}

	for _, mk := range samples {
		var orig Cell
		mk(&orig)

		for n := 0; n <= 126; n++ {
			cell := orig
			if err := cell.Quote(n); err != nil {
				t.Fatalf("Quote(%d): %v", n, err)
			}
			if n > 0 && !cell.IsQuoted() {
				t.Fatalf("Quote(%d) left cell unquoted", n)
			}
			if err := cell.Unquote(n); err != nil {
				t.Fatalf("Unquote(%d): %v", n, err)
			}
			if !Equal(&cell, &orig, true) {
				t.Fatalf("quote round trip at level %d changed %s value", n, orig.Kind())
			}
		}
	}
}

func TestQuoteLimits(t *testing.T) {
	var c Cell
	InitInteger(&c, 1)

	if err := c.Quote(127); err == nil {
		t.Error("Quote(127) should exceed the maximum level")
	}
	if err := c.Quote(126); err != nil {
		t.Errorf("Quote(126): %v", err)
	}
	if c.QuoteLevel() != 126 {
		t.Errorf("QuoteLevel = %d, want 126", c.QuoteLevel())
	}
	if err := c.Unquote(127); err == nil {
		t.Error("Unquote past level 0 should fail")
	}
}

func TestMetaUnmeta(t *testing.T) {
	var c Cell
	InitTrash(&c)
	if !c.IsAntiform() {
		t.Fatal("trash must be an antiform")
	}
	if c.Stable() {
		t.Fatal("antiform must not be stable")
	}

	c.Meta()
	if !c.IsQuasi() || !c.Stable() {
		t.Fatal("meta of antiform must be a stable quasiform")
	}

	if err := c.Unmeta(); err != nil {
		t.Fatalf("Unmeta: %v", err)
	}
	if !c.IsAntiform() {
		t.Fatal("unmeta of quasiform must restore the antiform")
	}

	// Meta of a plain value is a quote.
	var p Cell
	InitInteger(&p, 7)
	p.Meta()
	if p.QuoteLevel() != 1 {
		t.Fatalf("meta of plain value: quote level %d, want 1", p.QuoteLevel())
	}
}

func TestAntiformCannotQuote(t *testing.T) {
	var c Cell
	InitTrash(&c)
	if err := c.Quote(1); err == nil {
		t.Error("quoting an antiform should fail")
	}
}

func TestLaxNumericEquality(t *testing.T) {
	var a, b Cell
	InitInteger(&a, 2)
	InitDecimal(&b, 2.0)

	if !Equal(&a, &b, false) {
		t.Error("2 and 2.0 must be lax-equal")
	}
	if Equal(&a, &b, true) {
		t.Error("2 and 2.0 must not be strict-equal")
	}
}

func TestWordEquality(t *testing.T) {
	in := New()
	defer in.Shutdown()

	var a, b Cell
	InitWord(&a, in.Intern("Foo"))
	InitWord(&b, in.Intern("foo"))

	if !Equal(&a, &b, false) {
		t.Error("word equality must be case-insensitive by default")
	}
	if Equal(&a, &b, true) {
		t.Error("strict word equality must distinguish casing")
	}
}
