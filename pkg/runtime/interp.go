package runtime

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/mwantia/vesta/pkg/alloc"
)

// defaultBallast is how many series bytes may be allocated between
// collections.
const defaultBallast = 1 << 20

// Scanner is installed by the scan package (imported for side effect by
// hosts). The runtime itself stays scanner-agnostic; Do and the variadic
// Value API need it to turn source text into arrays.
var Scanner func(in *Interp, src string) (*Series, error)

// Interp is one interpreter instance: symbol table, pools, contexts,
// frame stack and root set. Evaluation is single-threaded cooperative;
// an Interp must not be shared across goroutines.
type Interp struct {
	id   uuid.UUID
	log  hclog.Logger
	mem  *alloc.Allocator
	syms *symbolTable

	lib  *Context
	user *Context

	top       *Frame
	dstack    []Cell
	manuals   []*Series
	allSeries []*Series
	roots     []*Series
	apiPairs  []*Series

	inEval     bool
	collecting bool
	gcPending  bool
	ballast    int64

	symHalt *Symbol
	symQuit *Symbol

	// returnAction is the canonical RETURN; per-frame cells of it carry
	// the frame binding that makes return definitional.
	returnAction   *Action
	breakAction    *Action
	continueAction *Action

	lastGC GCStats

	stdout io.Writer
	down   bool
}

// Option configures an Interp.
type Option func(*Interp)

// WithLogger installs a structured logger; the evaluator logs on it
// directly and the collector through a child named gc.
func WithLogger(log hclog.Logger) Option {
	return func(in *Interp) { in.log = log }
}

// WithPoolScale multiplies the allocator's segment granularity.
func WithPoolScale(scale int) Option {
	return func(in *Interp) { in.mem = alloc.New(scale) }
}

// WithStdout redirects PRINT output.
func WithStdout(w io.Writer) Option {
	return func(in *Interp) { in.stdout = w }
}

// WithBallast sets the GC trigger headroom in bytes.
func WithBallast(n int64) Option {
	return func(in *Interp) { in.ballast = n }
}

// New starts an interpreter: pools, symbol table, lib and user contexts,
// and the native set.
func New(opts ...Option) *Interp {
	in := &Interp{
		id:      uuid.New(),
		log:     hclog.NewNullLogger(),
		syms:    newSymbolTable(),
		stdout:  os.Stdout,
		ballast: defaultBallast,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.mem == nil {
		in.mem = alloc.New(1)
	}
	in.mem.SetBallast(in.ballast)

	in.symHalt = in.syms.intern("halt")
	in.symQuit = in.syms.intern("quit")

	selfTestPartKinds()

	in.lib = in.NewContext(KindObject, 64)
	in.registerNatives()
	in.seedLib()

	in.user = in.NewContext(KindObject, 16)
	in.user.keys.link = in.lib.keys

	in.log.Debug("interpreter started", "id", in.id.String())
	return in
}

// ID returns the instance id.
func (in *Interp) ID() uuid.UUID {
	return in.id
}

// Logger returns the interpreter's logger.
func (in *Interp) Logger() hclog.Logger {
	return in.log
}

// Shutdown frees every pool segment. The interpreter must not be used
// afterwards; use panics.
func (in *Interp) Shutdown() {
	in.log.Debug("interpreter shutdown",
		"id", in.id.String(),
		"series", len(in.allSeries),
		"peak-bytes", in.mem.Peak())
	for _, s := range in.allSeries {
		s.flags |= SerInaccessible
		s.cells = nil
		s.data = nil
		s.syms = nil
	}
	in.allSeries = nil
	in.manuals = nil
	in.roots = nil
	in.mem.Shutdown()
	in.down = true
}

// SetStdout sets the writer PRINT output goes to.
func (in *Interp) SetStdout(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("failed: empty writer as 'stdout' is not allowed")
	}

	in.stdout = w
	return nil
}

// Lib returns the library context holding the natives.
func (in *Interp) Lib() *Context {
	return in.lib
}

// User returns the outermost user context.
func (in *Interp) User() *Context {
	return in.user
}

// libSlot returns (adding if needed) the lib slot for name.
func (in *Interp) libSlot(name string) *Cell {
	sym := in.syms.intern(name)
	if n := in.lib.Find(sym, false); n != 0 {
		return in.lib.Slot(n)
	}
	return in.lib.AppendKey(sym)
}

// Intern exposes symbol interning to collaborating packages (the
// scanner).
func (in *Interp) Intern(text string) *Symbol {
	return in.syms.intern(text)
}

// track/untrack maintain the manuals list.
func (in *Interp) track(s *Series) {
	in.allSeries = append(in.allSeries, s)
	in.manuals = append(in.manuals, s)
}

func (in *Interp) untrack(s *Series) {
	for i := len(in.manuals) - 1; i >= 0; i-- {
		if in.manuals[i] == s {
			in.manuals = append(in.manuals[:i], in.manuals[i+1:]...)
			return
		}
	}
}

// noteExpansion draws the ballast down by bytes without changing the byte
// count (the storage itself is accounted where it is allocated); when the
// ballast trips, a GC is signalled for the next safe point.
func (in *Interp) noteExpansion(bytes int64) {
	in.mem.Credit(bytes)
	in.mem.Charge(bytes)
	if in.mem.BallastTripped() {
		in.gcPending = true
	}
}

// Data stack.

func (in *Interp) dstackLen() int {
	return len(in.dstack)
}

func (in *Interp) dstackPush(c *Cell) {
	in.dstack = append(in.dstack, *c)
}

func (in *Interp) dstackPop() Cell {
	c := in.dstack[len(in.dstack)-1]
	in.dstack = in.dstack[:len(in.dstack)-1]
	return c
}

func (in *Interp) dstackTrim(n int) {
	if len(in.dstack) > n {
		in.dstack = in.dstack[:n]
	}
}

// Root set.

// PushRoot keeps a series reachable regardless of cell references.
func (in *Interp) PushRoot(s *Series) {
	in.roots = append(in.roots, s)
}

// PopRoot releases the most recent root.
func (in *Interp) PopRoot() {
	if len(in.roots) > 0 {
		in.roots = in.roots[:len(in.roots)-1]
	}
}

// Handle is an opaque host value carried in a handle! cell. The cleanup
// hook runs when the GC frees the owning pairing.
type Handle struct {
	Data     any
	Cleanup  func(any)
	singular *Series
}

// NewHandle wraps host data in a handle cell backed by a pairing.
func (in *Interp) NewHandle(data any, cleanup func(any)) *Cell {
	pair := in.NewPairing()
	h := &Handle{Data: data, Cleanup: cleanup, singular: pair}

	InitNone(pair.PairingKey())
	InitHandle(pair.PairingValue(), h)
	in.Manage(pair)
	return pair.PairingValue()
}

// Export copies a result into a pairing and returns the handed-out cell.
// By default the handle lives until the owning frame returns; with no
// frame live it belongs to the interpreter and must be Released.
func (in *Interp) Export(v *Cell) *Cell {
	pair := in.NewPairing()
	if in.top != nil && in.top.varlist != nil {
		InitAnyContext(pair.PairingKey(), KindFrame, in.top.varlist)
	} else {
		InitNone(pair.PairingKey())
	}
	*pair.PairingValue() = *v
	in.Manage(pair)
	in.apiPairs = append(in.apiPairs, pair)
	return pair.PairingValue()
}

// Release drops an exported handle cell from the root set, so the next
// collection can free it.
func (in *Interp) Release(c *Cell) {
	for i, pair := range in.apiPairs {
		if pair.Accessible() && c == pair.PairingValue() {
			in.apiPairs = append(in.apiPairs[:i], in.apiPairs[i+1:]...)
			return
		}
	}
}

// Do scans and evaluates source, returning an exported handle cell with
// the final value. Uncaught errors and throws surface as Go errors.
func (in *Interp) Do(source string) (*Cell, error) {
	if Scanner == nil {
		return nil, fmt.Errorf("runtime: no scanner installed (import the scan package)")
	}
	arr, err := Scanner(in, source)
	if err != nil {
		return nil, err
	}
	in.Manage(arr)
	return in.DoBlock(arr)
}

// DoBlock evaluates an already-scanned array.
func (in *Interp) DoBlock(arr *Series) (*Cell, error) {
	// Unknown words are interned into user, then lib binds first so user
	// definitions shadow natives.
	in.internAll(arr)
	in.Bind(arr, 0, in.lib, true)
	in.Bind(arr, 0, in.user, true)

	var out Cell
	InitVoid(&out)
	if err := in.EvalArray(arr, nil, &out); err != nil {
		if t, ok := err.(*Throw); ok && t.IsError() {
			return nil, fmt.Errorf("%s", renderError(t.Label.Context()))
		}
		return nil, err
	}
	return in.Export(&out), nil
}

// Value is the variadic splicing API: each part is classified as nil
// (hard error), UTF-8 source text (scanned and spliced) or a cell
// (spliced literally). The assembled array is evaluated as one feed.
func (in *Interp) Value(parts ...any) (*Cell, error) {
	if Scanner == nil {
		return nil, fmt.Errorf("runtime: no scanner installed (import the scan package)")
	}

	arr := in.NewArray(len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case nil:
			in.Free(arr)
			return nil, fmt.Errorf("runtime: nil passed to Value")
		case string:
			sub, err := Scanner(in, p)
			if err != nil {
				in.Free(arr)
				return nil, err
			}
			for i := 0; i < sub.Len(); i++ {
				arr.AppendCell(sub.At(i))
			}
			in.Manage(sub)
		case *Cell:
			spliced := arr.AppendCell(p)
			spliced.SetFlag(FlagUnevaluated)
		default:
			in.Free(arr)
			return nil, fmt.Errorf("runtime: Value cannot classify %T", part)
		}
	}
	in.Manage(arr)
	return in.DoBlock(arr)
}

// selfTestPartKinds validates at startup that the tri-state pointer
// classification behind Value holds: nil, text and cell pointers must be
// distinguishable.
func selfTestPartKinds() {
	var c Cell
	parts := []any{nil, "text", &c}
	for i, p := range parts {
		var class int
		switch p.(type) {
		case nil:
			class = 0
		case string:
			class = 1
		case *Cell:
			class = 2
		}
		if class != i {
			panic("runtime: pointer classification self-test failed")
		}
	}
}
