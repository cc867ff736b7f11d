package runtime

import "fmt"

// SeriesFlags are the per-series header bits.
type SeriesFlags uint32

const (
	// SerArray marks a series whose elements are cells.
	SerArray SeriesFlags = 1 << iota

	// SerManaged series belong to the GC; unmanaged series sit on the
	// manuals list until freed or managed.
	SerManaged

	// SerFixedSize series refuse expansion.
	SerFixedSize

	// SerPow2 rounds reallocation capacities up to powers of two.
	SerPow2

	// SerUTF8 marks byte series holding UTF-8 text.
	SerUTF8

	// SerKeylist, SerVarlist, SerParamlist identify the context flavors.
	SerKeylist
	SerVarlist
	SerParamlist

	// SerPairing marks the two-cell singular series used for handles.
	SerPairing

	// SerShared marks a keylist referenced by more than one context;
	// structural changes must make-unique first.
	SerShared

	// SerFrozen blocks all mutation permanently.
	SerFrozen

	// SerInaccessible series fail data access but keep their identity.
	SerInaccessible

	// serMarked is the GC mark bit.
	serMarked
)

// cellBytes approximates the accounting weight of one cell.
const cellBytes = 64

// Series is the variable-length, uniformly-widthed container. Arrays store
// cells; binaries and text store bytes; keylists store symbols. The link
// and misc slots are interpreted per flavor: a varlist's link points to
// its keylist, a keylist's link to its ancestor, a scanned array's link
// and misc hold file and line.
type Series struct {
	flags SeriesFlags
	cells []Cell
	data  []byte
	syms  []*Symbol
	bias  int
	used  int
	link  any
	misc  any
	in    *Interp
}

// Flavor and state queries.

func (s *Series) IsArray() bool      { return s.flags&SerArray != 0 }
func (s *Series) IsManaged() bool    { return s.flags&SerManaged != 0 }
func (s *Series) Accessible() bool   { return s.flags&SerInaccessible == 0 }
func (s *Series) GetFlag(f SeriesFlags) bool { return s.flags&f != 0 }
func (s *Series) SetFlag(f SeriesFlags)      { s.flags |= f }

// Len returns the logical length.
func (s *Series) Len() int {
	return s.used
}

// Cap returns the element capacity (arrays reserve one slot for the end).
func (s *Series) Cap() int {
	switch {
	case s.cells != nil:
		return cap(s.cells) - s.bias - 1
	case s.data != nil:
		return cap(s.data) - s.bias
	default:
		return len(s.syms) - s.bias
	}
}

func (s *Series) checkAccess() {
	if !s.Accessible() {
		panic("runtime: access to inaccessible series")
	}
}

// At returns the cell at index. Index Len addresses the end marker;
// indexing beyond it is a programmer error.
func (s *Series) At(i int) *Cell {
	s.checkAccess()
	if i < 0 || i > s.used {
		panic(fmt.Sprintf("runtime: series index %d out of range 0..%d", i, s.used))
	}
	return &s.cells[s.bias+i]
}

// Head returns the cell at index 0.
func (s *Series) Head() *Cell {
	return s.At(0)
}

// Bytes returns the byte storage of a binary or text series.
func (s *Series) Bytes() []byte {
	s.checkAccess()
	return s.data[s.bias : s.bias+s.used]
}

// Symbols returns the symbol storage of a keylist.
func (s *Series) Symbols() []*Symbol {
	s.checkAccess()
	return s.syms[s.bias : s.bias+s.used]
}

// SetSource records the origin file and line on the array's link and misc
// slots, the way scanned code tracks provenance.
func (s *Series) SetSource(file string, line int) {
	s.link = file
	s.misc = line
}

// Source reads back the file/line provenance, if tracked.
func (s *Series) Source() (string, int) {
	file, _ := s.link.(string)
	line, _ := s.misc.(int)
	return file, line
}

// Term writes the canonical end marker just past the tail. Array storage
// always reserves the slot, so Term cannot overflow.
func (s *Series) Term() {
	if s.cells != nil {
		InitEnd(&s.cells[s.bias+s.used])
	}
}

// NewArray creates a manually-tracked array with room for capacity cells.
// The caller must Free it or Manage it on every non-exceptional exit; an
// unwind frees manuals newer than its trap point automatically.
func (in *Interp) NewArray(capacity int) *Series {
	if capacity < 1 {
		capacity = 1
	}
	s := &Series{
		flags: SerArray,
		cells: make([]Cell, capacity+1),
		in:    in,
	}
	in.mem.Charge(int64((capacity + 1) * cellBytes))
	s.Term()
	in.track(s)
	return s
}

// NewBytes creates a manually-tracked byte series backed by pool storage.
func (in *Interp) NewBytes(capacity int, utf8 bool) *Series {
	if capacity < 1 {
		capacity = 1
	}
	s := &Series{
		data: in.mem.Alloc(capacity, false)[:0],
		in:   in,
	}
	if utf8 {
		s.flags |= SerUTF8
	}
	in.track(s)
	return s
}

// NewKeylist creates a keylist series.
func (in *Interp) NewKeylist(capacity int) *Series {
	s := &Series{
		flags: SerKeylist,
		syms:  make([]*Symbol, 0, capacity),
		in:    in,
	}
	in.mem.Charge(int64(capacity * 8))
	in.track(s)
	return s
}

// NewPairing creates the two-cell singular series backing API handles.
// The first cell is the key (ownership bookkeeping); the returned series
// hands out the second cell.
func (in *Interp) NewPairing() *Series {
	s := &Series{
		flags: SerArray | SerPairing | SerFixedSize,
		cells: make([]Cell, 2),
		used:  2,
		in:    in,
	}
	in.mem.Charge(2 * cellBytes)
	in.track(s)
	return s
}

// PairingKey and PairingValue address the two cells of a pairing.
func (s *Series) PairingKey() *Cell   { return &s.cells[0] }
func (s *Series) PairingValue() *Cell { return &s.cells[1] }

// Manage hands the series to the GC and removes it from the manuals list.
func (in *Interp) Manage(s *Series) {
	if s.IsManaged() {
		return
	}
	s.flags |= SerManaged
	in.untrack(s)
}

// AppendCell appends one cell to an array, expanding as needed.
func (s *Series) AppendCell(c *Cell) *Cell {
	at := s.used
	s.Expand(at, 1)
	slot := s.At(at)
	*slot = *c
	return slot
}

// AppendBytes appends raw bytes to a byte series.
func (s *Series) AppendBytes(b []byte) {
	s.checkAccess()
	s.mustMutate()
	need := s.used + len(b)
	if s.bias+need > cap(s.data) {
		s.reallocBytes(need)
	}
	s.data = s.data[:s.bias+need]
	copy(s.data[s.bias+s.used:], b)
	s.used = need
}

func (s *Series) mustMutate() {
	if s.flags&SerFrozen != 0 {
		panic("runtime: mutation of frozen series")
	}
	if s.flags&SerFixedSize != 0 {
		panic("runtime: expansion of fixed-size series")
	}
}

// Expand opens a gap of delta elements at index, growing storage when
// needed. Three paths, cheapest first: slide the bias when inserting at
// the head with reserved headroom; move the tail when capacity suffices;
// otherwise reallocate and copy around the gap. Every path charges the
// GC ballast.
func (s *Series) Expand(index, delta int) {
	s.checkAccess()
	if delta == 0 {
		return
	}
	s.mustMutate()

	defer s.in.noteExpansion(int64(delta * cellBytes))

	// Head insertion against the bias: O(1).
	if index == 0 && s.bias >= delta {
		s.bias -= delta
		s.used += delta
		s.Term()
		return
	}

	// Tail room: move the suffix right.
	if s.bias+s.used+delta+1 <= cap(s.cells) {
		s.cells = s.cells[:s.bias+s.used+delta+1]
		copy(s.cells[s.bias+index+delta:], s.cells[s.bias+index:s.bias+s.used])
		s.used += delta
		s.Term()
		return
	}

	// Reallocate: copy prefix and suffix around the gap.
	newCap := s.used + delta + 1
	if s.flags&SerPow2 != 0 {
		p := 1
		for p < newCap {
			p <<= 1
		}
		newCap = p
	} else {
		newCap += newCap / 2
	}

	fresh := make([]Cell, newCap)
	copy(fresh, s.cells[s.bias:s.bias+index])
	copy(fresh[index+delta:], s.cells[s.bias+index:s.bias+s.used])
	s.in.mem.Credit(int64(cap(s.cells) * cellBytes))
	s.in.mem.Charge(int64(newCap * cellBytes))
	s.cells = fresh
	s.bias = 0
	s.used += delta
	s.Term()
}

func (s *Series) reallocBytes(need int) {
	granted := need + need/2
	fresh := s.in.mem.Alloc(granted, s.flags&SerPow2 != 0)
	copy(fresh[:s.used], s.data[s.bias:s.bias+s.used])
	s.in.mem.Free(s.data)
	s.data = fresh[:s.used]
	s.bias = 0
	s.in.noteExpansion(int64(need - s.used))
}

// RemoveAt closes a gap of delta elements at index.
func (s *Series) RemoveAt(index, delta int) {
	s.checkAccess()
	if delta <= 0 {
		return
	}
	if index == 0 {
		// Removal at the head grows the bias; a later head insert reuses it.
		s.bias += delta
		s.used -= delta
		return
	}
	copy(s.cells[s.bias+index:], s.cells[s.bias+index+delta:s.bias+s.used])
	s.used -= delta
	s.Term()
}

// CopyArray copies an array from index to tail; with deep set, nested
// arrays are copied too. The copy is manually tracked.
func (in *Interp) CopyArray(src *Series, index int, deep bool) *Series {
	n := src.Len() - index
	if n < 0 {
		n = 0
	}
	dst := in.NewArray(n)
	for i := 0; i < n; i++ {
		cell := dst.AppendCell(src.At(index + i))
		if deep && cell.kind != KindFree && tsAnyArray.Has(cell.kind) {
			inner := in.CopyArray(cell.Series(), 0, true)
			in.Manage(inner)
			cell.node = inner
			cell.i = 0
		}
	}
	dst.Term()
	return dst
}

// Free releases a manually-tracked series. Freeing a managed series is the
// GC's job; doing it by hand is a programmer error.
func (in *Interp) Free(s *Series) {
	if s.IsManaged() {
		panic("runtime: manual free of managed series")
	}
	in.untrack(s)
	in.decay(s)
}

// decay releases storage and tombstones the series. Identity stays valid:
// cells pointing here see an inaccessible series, which is how a FRAME!
// outlives its frame.
func (in *Interp) decay(s *Series) {
	if s.cells != nil {
		in.mem.Credit(int64(cap(s.cells) * cellBytes))
		s.cells = nil
	}
	if s.data != nil {
		in.mem.Free(s.data[:s.bias+s.used])
		s.data = nil
	}
	if s.syms != nil {
		in.mem.Credit(int64(cap(s.syms) * 8))
		s.syms = nil
	}
	s.used = 0
	s.link = nil
	s.misc = nil
	s.flags |= SerInaccessible
}
