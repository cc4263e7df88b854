package allocator

import (
	"unsafe"

	"github.com/orizon-lang/segalloc/internal/heap"
)

// SegregatedFitAllocator adapts a *heap.Engine, segalloc's boundary-tag,
// segregated-free-list heap, to the common Allocator interface. It is
// the type segalloc.Heap holds behind that interface, so Allocate/
// Release/Resize/Stats on the public type flow through here rather than
// touching internal/heap directly.
type SegregatedFitAllocator struct {
	engine *heap.Engine
}

// NewSegregatedFitAllocator wraps an existing engine. Callers must still
// call Reset (which delegates to the engine's Init) before the first
// Alloc.
func NewSegregatedFitAllocator(engine *heap.Engine) *SegregatedFitAllocator {
	return &SegregatedFitAllocator{engine: engine}
}

// Alloc delegates to the engine, translating the uintptr size convention
// this interface uses into the engine's int-sized Allocate.
func (s *SegregatedFitAllocator) Alloc(size uintptr) unsafe.Pointer {
	return s.engine.Allocate(int(size))
}

// Free delegates to the engine's Release.
func (s *SegregatedFitAllocator) Free(ptr unsafe.Pointer) {
	s.engine.Release(ptr)
}

// Realloc delegates to the engine's Resize.
func (s *SegregatedFitAllocator) Realloc(ptr unsafe.Pointer, newSize uintptr) unsafe.Pointer {
	return s.engine.Resize(ptr, int(newSize))
}

// TotalAllocated reports cumulative bytes allocated.
func (s *SegregatedFitAllocator) TotalAllocated() uintptr {
	return uintptr(s.engine.Stats().TotalAllocated)
}

// TotalFreed reports cumulative bytes freed.
func (s *SegregatedFitAllocator) TotalFreed() uintptr {
	return uintptr(s.engine.Stats().TotalFreed)
}

// ActiveAllocations reports outstanding allocation count.
func (s *SegregatedFitAllocator) ActiveAllocations() int {
	stats := s.engine.Stats()

	return int(stats.AllocationCount - stats.FreeCount)
}

// Stats translates the engine's Stats into the common AllocatorStats
// shape, carrying the region's usage and ceiling along with it. The
// engine keeps no high-water mark of live allocations, so PeakAllocations
// holds the cumulative allocation count, an upper bound on the peak.
func (s *SegregatedFitAllocator) Stats() AllocatorStats {
	stats := s.engine.Stats()

	return AllocatorStats{
		TotalAllocated:    uintptr(stats.TotalAllocated),
		TotalFreed:        uintptr(stats.TotalFreed),
		ActiveAllocations: int(stats.AllocationCount - stats.FreeCount),
		PeakAllocations:   int(stats.AllocationCount),
		AllocationCount:   stats.AllocationCount,
		FreeCount:         stats.FreeCount,
		BytesInUse:        uintptr(stats.BytesInUse),
		RegionUsed:        stats.RegionUsed,
		RegionCeiling:     stats.RegionCeiling,
	}
}

// Reset re-initializes the underlying engine, invalidating every
// previously allocated pointer.
func (s *SegregatedFitAllocator) Reset() error {
	return s.engine.Init()
}
