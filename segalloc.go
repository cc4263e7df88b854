// Package segalloc implements a segregated-fit dynamic memory allocator
// over a single contiguous region obtained from the OS: boundary-tag
// blocks, 20 size-class free lists, and a single heap lock serializing
// every mutation. See internal/heap for the algorithm, internal/region
// for the backing memory, and internal/allocator for the Allocator
// interface Heap is built on.
package segalloc

import (
	"unsafe"

	"github.com/orizon-lang/segalloc/internal/allocator"
	"github.com/orizon-lang/segalloc/internal/heap"
)

// Option configures a Heap's backing region ceiling and growth
// granularity. See WithRegionCeiling and WithChunkSize.
type Option = heap.Option

// WithRegionCeiling overrides a Heap's maximum backing-region size.
func WithRegionCeiling(n uintptr) Option { return heap.WithRegionCeiling(n) }

// WithChunkSize overrides a Heap's default heap-extension granularity.
func WithChunkSize(n uintptr) Option { return heap.WithChunkSize(n) }

// Stats reports a Heap's allocation counters, including how much of its
// backing region is in use and its ceiling.
type Stats = allocator.AllocatorStats

// Heap is an independent segregated-fit heap. The zero value is not ready
// for use; construct one with New and call Init before the first
// Allocate. Multiple Heaps may coexist, each with its own backing region
// and lock, useful for tests that want isolation from the package-level
// singleton. Heap holds its strategy behind the allocator.Allocator
// interface rather than internal/heap.Engine directly, so New is the only
// place in this file that names the concrete strategy.
type Heap struct {
	alloc allocator.Allocator
}

// New constructs a Heap with the given options, not yet initialized.
func New(opts ...Option) *Heap {
	return &Heap{alloc: allocator.NewSegregatedFitAllocator(heap.New(opts...))}
}

// Init reserves the backing region and readies the heap for allocation.
// Re-initializing invalidates every pointer the heap has handed out.
func (h *Heap) Init() error {
	return h.alloc.Reset()
}

// Allocate returns a 16-byte aligned pointer to at least n writable
// bytes, or nil if n <= 0 or the heap cannot satisfy the request.
func (h *Heap) Allocate(n int) unsafe.Pointer {
	if n <= 0 {
		return nil
	}

	return h.alloc.Alloc(uintptr(n))
}

// Release returns ptr to the heap. A nil ptr is a no-op.
func (h *Heap) Release(ptr unsafe.Pointer) {
	h.alloc.Free(ptr)
}

// Resize returns a pointer to at least newSize writable bytes, preserving
// ptr's content up to the smaller of the old and new sizes. ptr == nil
// behaves like Allocate; newSize <= 0 releases ptr and returns nil.
func (h *Heap) Resize(ptr unsafe.Pointer, newSize int) unsafe.Pointer {
	if ptr == nil {
		return h.Allocate(newSize)
	}

	if newSize <= 0 {
		h.alloc.Free(ptr)

		return nil
	}

	return h.alloc.Realloc(ptr, uintptr(newSize))
}

// Stats reports the heap's allocation counters.
func (h *Heap) Stats() Stats {
	return h.alloc.Stats()
}

// global is the package-level singleton wrapped by Init/Allocate/Release/
// Resize/Stats, for callers that want a shared heap without plumbing a
// *Heap through their own code.
var global = New()

// Init reserves the package-level heap's backing region. Must be called
// before the first Allocate.
func Init() error {
	return global.Init()
}

// Allocate allocates n bytes on the package-level heap.
func Allocate(n int) unsafe.Pointer {
	return global.Allocate(n)
}

// Release returns ptr to the package-level heap.
func Release(ptr unsafe.Pointer) {
	global.Release(ptr)
}

// Resize resizes ptr on the package-level heap.
func Resize(ptr unsafe.Pointer, newSize int) unsafe.Pointer {
	return global.Resize(ptr, newSize)
}

// Stats reports the package-level heap's allocation counters.
func Stats() Stats {
	return global.Stats()
}
