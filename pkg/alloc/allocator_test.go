package alloc_test

import (
	"testing"

	"github.com/mwantia/vesta/pkg/alloc"
)

func TestPoolWidthSelection(t *testing.T) {
	a := alloc.New(1)
	defer a.Shutdown()

	tests := []struct {
		size int
		want int // granted capacity
	}{
		{1, 8},
		{8, 8},
		{9, 16},
		{33, 64},
		{2048, 2048},
	}

	for _, tt := range tests {
		node := a.Alloc(tt.size, false)
		if len(node) != tt.size {
			t.Errorf("Alloc(%d) len = %d, want %d", tt.size, len(node), tt.size)
		}
		if cap(node) != tt.want {
			t.Errorf("Alloc(%d) cap = %d, want %d", tt.size, cap(node), tt.want)
		}
	}
}

func TestLargeAllocPow2(t *testing.T) {
	a := alloc.New(1)
	defer a.Shutdown()

	node := a.Alloc(3000, true)
	if len(node) != 3000 {
		t.Errorf("len = %d, want 3000", len(node))
	}
	if cap(node) != 4096 {
		t.Errorf("cap = %d, want 4096 (power of two rounding)", cap(node))
	}

	plain := a.Alloc(3000, false)
	if cap(plain) != 3000 {
		t.Errorf("cap = %d, want 3000 (no rounding)", cap(plain))
	}
}

func TestFreeListFIFO(t *testing.T) {
	a := alloc.New(1)
	defer a.Shutdown()

	// Drain the whole first segment so the frees below are the only nodes
	// on the free list.
	nodes := make([][]byte, 256)
	for i := range nodes {
		nodes[i] = a.Alloc(8, false)
	}

	first := nodes[0]
	second := nodes[1]
	a.Free(first)
	a.Free(second)

	got1 := a.Alloc(8, false)
	got2 := a.Alloc(8, false)

	// FIFO: the node freed first comes back first.
	if &got1[0] != &first[0] {
		t.Error("free list did not return the oldest freed node first")
	}
	if &got2[0] != &second[0] {
		t.Error("free list did not return the second freed node second")
	}
}

func TestAccounting(t *testing.T) {
	a := alloc.New(1)
	defer a.Shutdown()

	if a.Used() != 0 {
		t.Fatalf("initial Used = %d, want 0", a.Used())
	}

	node := a.Alloc(100, false) // granted from the 128 pool
	if a.Used() != 128 {
		t.Errorf("Used = %d, want 128", a.Used())
	}

	a.Free(node)
	if a.Used() != 0 {
		t.Errorf("Used after free = %d, want 0", a.Used())
	}
	if a.Peak() != 128 {
		t.Errorf("Peak = %d, want 128", a.Peak())
	}
}

func TestBallast(t *testing.T) {
	a := alloc.New(1)
	defer a.Shutdown()

	a.SetBallast(100)
	if a.BallastTripped() {
		t.Fatal("ballast tripped before any allocation")
	}

	a.Alloc(64, false)
	if a.BallastTripped() {
		t.Fatal("ballast tripped at 64 of 100 bytes")
	}

	a.Alloc(64, false)
	if !a.BallastTripped() {
		t.Fatal("ballast not tripped after draining headroom")
	}

	a.SetBallast(1 << 20)
	if a.BallastTripped() {
		t.Fatal("ballast still tripped after reset")
	}
}

func TestPoisoning(t *testing.T) {
	alloc.Debug = true
	defer func() { alloc.Debug = false }()

	a := alloc.New(1)
	defer a.Shutdown()

	node := a.Alloc(16, false)
	for i := range node {
		node[i] = 0xAA
	}
	full := node[:cap(node)]
	a.Free(node)

	// First byte carries the free marker; the rest is poison.
	for i := 1; i < len(full); i++ {
		if full[i] != alloc.PoisonByte {
			t.Fatalf("byte %d = %#x after free, want poison %#x", i, full[i], alloc.PoisonByte)
		}
	}

	// Reallocation hands the node back zeroed.
	again := a.Alloc(16, false)
	for i, b := range again {
		if b != 0 {
			t.Fatalf("reallocated byte %d = %#x, want 0", i, b)
		}
	}
}
