package runtime

import (
	"fmt"
	"math"
)

// CellFlags are the per-cell flag bits.
type CellFlags uint16

const (
	// FlagProtected blocks writes through words and paths.
	FlagProtected CellFlags = 1 << iota

	// FlagConst propagates read-only-ness from containers to reached
	// values within a step.
	FlagConst

	// FlagUnevaluated marks a value that reached its position without
	// evaluation (inert literals, quoted material).
	FlagUnevaluated

	// FlagNewline records that a newline preceded this cell in source.
	FlagNewline

	// FlagStale marks an output cell whose bits are left over from a
	// previous step and must not be read.
	FlagStale

	// FlagEnfix on a variable slot makes word invocations of the held
	// action infix. The flag lives on the slot, not the action.
	FlagEnfix

	// FlagHidden hides a context slot from reflection and equality.
	FlagHidden

	// FlagQuasi marks the stable quasiform face of an antiform.
	FlagQuasi

	// flagMarked is the GC mark bit.
	flagMarked
)

// maxQuote is the deepest representable quote level.
const maxQuote = 126

// Cell is the fixed-size tagged value. The payload interpretation depends
// on the kind: i carries integers, decimal bits, characters, logic and
// series indexes; node carries the payload series, context, action or
// handle; word carries the symbol for word kinds and labels.
type Cell struct {
	kind    Kind
	quote   byte // 0 = antiform, 1 = plain, n >= 2 carries n-1 quote levels
	flags   CellFlags
	bindIdx int32
	binding *Context
	i       int64
	node    any // *Series | *Context | *Action | *Handle, per kind
	word    *Symbol
}

// reset clears the cell to a fresh unquoted state of the given kind. Every
// constructor goes through reset so no stale payload bits survive.
func (c *Cell) reset(kind Kind) {
	*c = Cell{kind: kind, quote: 1}
}

// Kind returns the cell's kind, ignoring quoting.
func (c *Cell) Kind() Kind {
	return c.kind
}

// Flags

func (c *Cell) GetFlag(f CellFlags) bool  { return c.flags&f != 0 }
func (c *Cell) SetFlag(f CellFlags)       { c.flags |= f }
func (c *Cell) ClearFlag(f CellFlags)     { c.flags &^= f }

// Constructors. Each takes a target cell so callers can build in place
// (frame slots, array elements) without intermediate copies.

func InitEnd(c *Cell)   { c.reset(KindEnd) }
func InitVoid(c *Cell)  { c.reset(KindVoid) }
func InitNone(c *Cell)  { c.reset(KindNone) }
func InitComma(c *Cell) { c.reset(KindComma) }

// InitTrash writes the antiform of none, used for unset variables.
func InitTrash(c *Cell) {
	c.reset(KindNone)
	c.quote = 0
}

func InitLogic(c *Cell, b bool) {
	c.reset(KindLogic)
	if b {
		c.i = 1
	}
}

func InitInteger(c *Cell, i int64) {
	c.reset(KindInteger)
	c.i = i
}

func InitDecimal(c *Cell, f float64) {
	c.reset(KindDecimal)
	c.i = int64(math.Float64bits(f))
}

func InitChar(c *Cell, r rune) {
	c.reset(KindChar)
	c.i = int64(r)
}

func InitDatatype(c *Cell, k Kind) {
	c.reset(KindDatatype)
	c.i = int64(k)
}

// InitAnyWord writes a word-family cell. The binding starts unbound.
func InitAnyWord(c *Cell, kind Kind, sym *Symbol) {
	c.reset(kind)
	c.word = sym
}

func InitWord(c *Cell, sym *Symbol)    { InitAnyWord(c, KindWord, sym) }
func InitSetWord(c *Cell, sym *Symbol) { InitAnyWord(c, KindSetWord, sym) }
func InitGetWord(c *Cell, sym *Symbol) { InitAnyWord(c, KindGetWord, sym) }

// InitAnySeries writes a series-backed cell positioned at index.
func InitAnySeries(c *Cell, kind Kind, s *Series, index int) {
	c.reset(kind)
	c.node = s
	c.i = int64(index)
}

func InitBlock(c *Cell, s *Series) { InitAnySeries(c, KindBlock, s, 0) }
func InitGroup(c *Cell, s *Series) { InitAnySeries(c, KindGroup, s, 0) }
func InitText(c *Cell, s *Series)  { InitAnySeries(c, KindText, s, 0) }
func InitBinary(c *Cell, s *Series) { InitAnySeries(c, KindBinary, s, 0) }

// InitAnyContext writes an object/frame/error cell sharing the context's
// archetype payload.
func InitAnyContext(c *Cell, kind Kind, ctx *Context) {
	c.reset(kind)
	c.node = ctx
}

func InitObject(c *Cell, ctx *Context) { InitAnyContext(c, KindObject, ctx) }
func InitError(c *Cell, ctx *Context)  { InitAnyContext(c, KindError, ctx) }

func InitAction(c *Cell, act *Action) {
	c.reset(KindAction)
	c.node = act
	c.word = act.sym
}

func InitHandle(c *Cell, h *Handle) {
	c.reset(KindHandle)
	c.node = h
}

// Payload accessors. Kind mismatches are programmer errors and panic.

func (c *Cell) Int() int64 {
	if c.kind != KindInteger && c.kind != KindChar && c.kind != KindLogic {
		panic(badPayload(c, "integer"))
	}
	return c.i
}

func (c *Cell) Dec() float64 {
	if c.kind != KindDecimal {
		panic(badPayload(c, "decimal"))
	}
	return math.Float64frombits(uint64(c.i))
}

func (c *Cell) Logic() bool {
	if c.kind != KindLogic {
		panic(badPayload(c, "logic"))
	}
	return c.i != 0
}

func (c *Cell) Datatype() Kind {
	if c.kind != KindDatatype {
		panic(badPayload(c, "datatype"))
	}
	return Kind(c.i)
}

func (c *Cell) Word() *Symbol {
	if c.word == nil {
		panic(badPayload(c, "word"))
	}
	return c.word
}

// Series returns the payload series of an any-series cell.
func (c *Cell) Series() *Series {
	s, ok := c.node.(*Series)
	if !ok {
		panic(badPayload(c, "series"))
	}
	return s
}

// Index returns the position of an any-series cell.
func (c *Cell) Index() int {
	return int(c.i)
}

// Context returns the payload context of an any-context cell.
func (c *Cell) Context() *Context {
	ctx, ok := c.node.(*Context)
	if !ok {
		panic(badPayload(c, "context"))
	}
	return ctx
}

// Action returns the payload action.
func (c *Cell) Action() *Action {
	act, ok := c.node.(*Action)
	if !ok {
		panic(badPayload(c, "action"))
	}
	return act
}

// Handle returns the payload handle.
func (c *Cell) Handle() *Handle {
	h, ok := c.node.(*Handle)
	if !ok {
		panic(badPayload(c, "handle"))
	}
	return h
}

func badPayload(c *Cell, want string) string {
	return fmt.Sprintf("runtime: %s payload read from %s cell", want, c.kind)
}

// Quoting. Levels are carried in the quote byte; quoting never allocates
// and preserves the kind.

// QuoteLevel returns the number of quote levels (0 for plain values).
func (c *Cell) QuoteLevel() int {
	if c.quote <= 1 {
		return 0
	}
	return int(c.quote) - 1
}

// IsQuoted reports whether the cell carries at least one quote level.
func (c *Cell) IsQuoted() bool {
	return c.quote >= 2
}

// IsAntiform reports whether the cell is in its unstable form.
func (c *Cell) IsAntiform() bool {
	return c.quote == 0
}

// IsQuasi reports whether the cell is a quasiform (the stable face that
// evaluates to an antiform).
func (c *Cell) IsQuasi() bool {
	return c.quote == 1 && c.GetFlag(FlagQuasi)
}

// Quote adds n quote levels.
func (c *Cell) Quote(n int) error {
	if c.quote == 0 {
		return fmt.Errorf("runtime: cannot quote an antiform")
	}
	if int(c.quote)+n > maxQuote+1 {
		return fmt.Errorf("runtime: quote level %d exceeds maximum %d", c.QuoteLevel()+n, maxQuote)
	}
	c.quote += byte(n)
	return nil
}

// Unquote removes n quote levels.
func (c *Cell) Unquote(n int) error {
	if int(c.quote)-n < 1 {
		return fmt.Errorf("runtime: unquote past level 0")
	}
	c.quote -= byte(n)
	return nil
}

// Meta converts the cell to its stable meta form: plain values gain one
// quote level; antiforms become quasiforms. The result is always storable
// in a variable.
func (c *Cell) Meta() {
	if c.quote == 0 {
		c.quote = 1
		c.SetFlag(FlagQuasi)
		return
	}
	c.quote++
}

// Unmeta reverses Meta: quasiforms become antiforms, quoted values lose
// one level.
func (c *Cell) Unmeta() error {
	if c.IsQuasi() {
		c.ClearFlag(FlagQuasi)
		c.quote = 0
		return nil
	}
	return c.Unquote(1)
}

// Stable reports whether the cell may be stored in a variable slot.
func (c *Cell) Stable() bool {
	return c.quote != 0
}

// Truthy reports the conditional truth of a value. None and false are the
// only falsey stable values; void is falsey; antiforms are not conditional
// values at all and the caller errors before asking.
func (c *Cell) Truthy() bool {
	switch c.kind {
	case KindNone, KindVoid:
		return false
	case KindLogic:
		return c.i != 0
	}
	return true
}

// Equal compares two cells. Strict equality compares quote levels and is
// case-sensitive for words; lax equality ignores both.
func Equal(a, b *Cell, strict bool) bool {
	if a.kind != b.kind {
		// Lax comparison unifies integer and decimal.
		if !strict && tsAnyNumber.Has(a.kind) && tsAnyNumber.Has(b.kind) {
			return numValue(a) == numValue(b)
		}
		return false
	}
	if strict && a.quote != b.quote {
		return false
	}

	if eq := kindTable[a.kind].equal; eq != nil {
		return eq(a, b, strict)
	}

	switch a.kind {
	case KindEnd, KindVoid, KindNone, KindComma:
		return true
	case KindLogic, KindInteger, KindChar, KindDatatype:
		return a.i == b.i
	case KindDecimal:
		return a.Dec() == b.Dec()
	case KindWord, KindSetWord, KindGetWord, KindMetaWord, KindMetaSetWord, KindRefinement, KindIssue:
		if strict {
			return a.word == b.word
		}
		return a.word.SameWord(b.word)
	case KindBlock, KindGroup, KindPath, KindSetPath, KindTuple, KindSetTuple:
		return equalArrays(a, b, strict)
	case KindText, KindBinary:
		return equalBytes(a, b, strict)
	case KindObject, KindError, KindFrame:
		return equalContexts(a.Context(), b.Context(), strict)
	case KindAction:
		return a.node == b.node
	case KindHandle:
		return a.node == b.node
	}
	return false
}

func numValue(c *Cell) float64 {
	if c.kind == KindDecimal {
		return c.Dec()
	}
	return float64(c.i)
}

func equalArrays(a, b *Cell, strict bool) bool {
	sa, sb := a.Series(), b.Series()
	la, lb := sa.Len()-a.Index(), sb.Len()-b.Index()
	if la != lb {
		return false
	}
	for i := 0; i < la; i++ {
		if !Equal(sa.At(a.Index()+i), sb.At(b.Index()+i), strict) {
			return false
		}
	}
	return true
}

func equalBytes(a, b *Cell, strict bool) bool {
	ba := a.Series().Bytes()[a.Index():]
	bb := b.Series().Bytes()[b.Index():]
	if len(ba) != len(bb) {
		return false
	}
	for i := range ba {
		ca, cb := ba[i], bb[i]
		if !strict && a.kind == KindText {
			ca, cb = lowerByte(ca), lowerByte(cb)
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
