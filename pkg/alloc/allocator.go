// Package alloc implements the fixed-width node pools and the large-block
// allocator backing Vesta series storage.
package alloc

import "fmt"

// Debug enables poisoning of freed nodes. Freed nodes are filled with
// PoisonByte so use-after-free reads surface as recognizable garbage.
var Debug = false

const (
	// PoisonByte fills freed nodes in debug builds.
	PoisonByte = 0xDB

	// freeByte marks the first byte of a freed node so a node on a free
	// list can be told apart from a live one.
	freeByte = 0xF7
)

// Pool widths. Requests above the largest width go to the large allocator.
var poolWidths = []int{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// segmentUnits is how many nodes a pool acquires per segment, scaled at
// startup. Segments are never returned to the system until Shutdown.
const segmentUnits = 256

// pool is one fixed-width node pool.
type pool struct {
	width    int
	units    int      // nodes per segment
	segments [][]byte // backing storage, kept alive until Shutdown
	free     [][]byte // FIFO free list: new nodes appended, oldest reused first
}

// Allocator manages the pool table, the large-block allocator, and the
// byte accounting that drives the GC ballast.
type Allocator struct {
	pools   []pool
	used    int64 // bytes handed out and not yet freed
	peak    int64
	ballast int64
	down    bool
}

// New creates an Allocator. scale multiplies the per-segment node count;
// scale <= 0 selects the default.
func New(scale int) *Allocator {
	if scale <= 0 {
		scale = 1
	}

	a := &Allocator{
		pools: make([]pool, len(poolWidths)),
	}
	for i, w := range poolWidths {
		a.pools[i] = pool{
			width: w,
			units: segmentUnits * scale,
		}
	}
	return a
}

// Alloc returns a zeroed byte node of at least size bytes. The returned
// slice has length size; its capacity is the granted pool width, so the
// caller may grow into the full node without reallocating. Sizes above the
// largest pool width are served by the large allocator; pow2 requests the
// granted size be rounded up to a power of two.
func (a *Allocator) Alloc(size int, pow2 bool) []byte {
	if a.down {
		panic("alloc: allocator used after shutdown")
	}
	if size < 0 {
		panic(fmt.Sprintf("alloc: negative size %d", size))
	}

	for i := range a.pools {
		p := &a.pools[i]
		if p.width < size {
			continue
		}

		if len(p.free) == 0 {
			p.grow()
		}
		node := p.free[0]
		p.free = p.free[1:]
		for j := range node {
			node[j] = 0
		}
		a.account(int64(p.width))
		return node[:size]
	}

	return a.allocLarge(size, pow2)
}

// Free returns a node to its pool. The node must have come from Alloc; the
// pool is identified by the node's capacity. Large blocks are released to
// the Go allocator.
func (a *Allocator) Free(node []byte) {
	if node == nil {
		return
	}
	full := node[:cap(node)]

	for i := range a.pools {
		p := &a.pools[i]
		if p.width != cap(full) {
			continue
		}

		if Debug {
			for j := range full {
				full[j] = PoisonByte
			}
		}
		full[0] = freeByte
		p.free = append(p.free, full) // FIFO: reuse the oldest freed node first
		a.used -= int64(p.width)
		return
	}

	// Large block: no pool keeps it.
	a.used -= int64(cap(full))
}

// allocLarge serves requests above the largest pool width.
func (a *Allocator) allocLarge(size int, pow2 bool) []byte {
	granted := size
	if pow2 {
		granted = 1
		for granted < size {
			granted <<= 1
		}
	}

	block := make([]byte, granted)
	a.account(int64(granted))
	return block[:size]
}

// account records size bytes handed out and charges the ballast.
func (a *Allocator) account(size int64) {
	a.used += size
	if a.used > a.peak {
		a.peak = a.used
	}
	a.ballast -= size
}

// grow appends a fresh segment to the pool and threads its nodes onto the
// free list tail, so poisoned nodes stay on the list as long as possible.
func (p *pool) grow() {
	seg := make([]byte, p.width*p.units)
	p.segments = append(p.segments, seg)

	for off := 0; off < len(seg); off += p.width {
		node := seg[off : off+p.width : off+p.width]
		node[0] = freeByte
		p.free = append(p.free, node)
	}
}

// Charge records n bytes of externally-held storage (cell arrays live in
// Go slices, not pool nodes) so the ballast sees every expansion.
func (a *Allocator) Charge(n int64) {
	a.account(n)
}

// Credit releases n externally-held bytes from the accounting.
func (a *Allocator) Credit(n int64) {
	a.used -= n
}

// Used returns the bytes currently handed out.
func (a *Allocator) Used() int64 {
	return a.used
}

// Peak returns the high-water mark of handed-out bytes.
func (a *Allocator) Peak() int64 {
	return a.peak
}

// SetBallast arms the GC ballast with n bytes of headroom.
func (a *Allocator) SetBallast(n int64) {
	a.ballast = n
}

// BallastTripped reports whether allocations have drained the ballast. The
// caller (the GC) resets it with SetBallast after a sweep.
func (a *Allocator) BallastTripped() bool {
	return a.ballast <= 0
}

// Shutdown releases every segment. The allocator must not be used again.
func (a *Allocator) Shutdown() {
	for i := range a.pools {
		a.pools[i].segments = nil
		a.pools[i].free = nil
	}
	a.used = 0
	a.down = true
}
