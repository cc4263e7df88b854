package allocator

import (
	"testing"

	"github.com/orizon-lang/segalloc/internal/heap"
)

func TestSegregatedFitAllocator(t *testing.T) {
	engine := heap.New(heap.WithRegionCeiling(1 << 20))
	a := NewSegregatedFitAllocator(engine)

	if err := a.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	t.Run("BasicAllocation", func(t *testing.T) {
		ptr := a.Alloc(128)
		if ptr == nil {
			t.Fatal("allocation failed")
		}

		a.Free(ptr)
	})

	t.Run("Statistics", func(t *testing.T) {
		ptr := a.Alloc(256)
		if ptr == nil {
			t.Fatal("allocation failed")
		}

		stats := a.Stats()
		if stats.ActiveAllocations != 1 {
			t.Errorf("ActiveAllocations = %d, want 1", stats.ActiveAllocations)
		}

		if stats.RegionCeiling != 1<<20 {
			t.Errorf("RegionCeiling = %d, want %d", stats.RegionCeiling, 1<<20)
		}

		if stats.RegionUsed == 0 {
			t.Error("RegionUsed is 0 after an allocation")
		}

		a.Free(ptr)

		stats = a.Stats()
		if stats.ActiveAllocations != 0 {
			t.Errorf("ActiveAllocations = %d after Free, want 0", stats.ActiveAllocations)
		}
	})

	t.Run("Reallocation", func(t *testing.T) {
		ptr := a.Alloc(64)
		if ptr == nil {
			t.Fatal("allocation failed")
		}

		grown := a.Realloc(ptr, 512)
		if grown == nil {
			t.Fatal("realloc failed")
		}

		a.Free(grown)
	})
}

// TestSegregatedFitAllocatorSatisfiesInterface confirms SegregatedFitAllocator
// implements Allocator by assignment, catching any signature drift at
// compile time rather than only through reflection-based checks.
func TestSegregatedFitAllocatorSatisfiesInterface(t *testing.T) {
	var _ Allocator = NewSegregatedFitAllocator(heap.New())
}
