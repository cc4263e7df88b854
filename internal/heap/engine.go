// Package heap implements the public allocator operations (init, allocate,
// release, resize) by orchestrating the block layout, the segregated
// free-list index, and the backing region under a single heap lock. It is
// the "engine" component of segalloc: everything the rest of the module
// needs from a working heap goes through an *Engine.
package heap

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/segalloc/internal/block"
	"github.com/orizon-lang/segalloc/internal/freelist"
	"github.com/orizon-lang/segalloc/internal/region"
)

// DefaultChunkSize is the default extension granularity used when the heap
// must grow to satisfy a request it cannot otherwise fit.
const DefaultChunkSize = 4096

// Config configures an Engine's backing region and growth granularity.
// Production callers should accept the defaults; the overrides exist for
// tests that want a small, fast-to-exhaust heap.
type Config struct {
	RegionCeiling uintptr
	ChunkSize     uintptr
}

// Option mutates a Config.
type Option func(*Config)

// WithRegionCeiling overrides the backing region's maximum size.
func WithRegionCeiling(n uintptr) Option {
	return func(c *Config) { c.RegionCeiling = n }
}

// WithChunkSize overrides the default heap-extension granularity.
func WithChunkSize(n uintptr) Option {
	return func(c *Config) { c.ChunkSize = n }
}

func defaultConfig() *Config {
	return &Config{
		RegionCeiling: region.DefaultCeiling,
		ChunkSize:     DefaultChunkSize,
	}
}

// Engine is a single heap: one backing region, one segregated free-list
// index, and one lock serializing every mutation and metadata read. Its
// zero value is not ready for use; construct one with New and ready it
// with Init.
type Engine struct {
	mu        sync.Mutex
	region    *region.Region
	idx       freelist.Index
	sentinel  unsafe.Pointer
	chunkSize uintptr

	allocCount     uint64
	freeCount      uint64
	totalAllocated uint64
	totalFreed     uint64
}

// New constructs an Engine. Call Init before the first Allocate.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Engine{
		region:    region.New(cfg.RegionCeiling),
		chunkSize: cfg.ChunkSize,
	}
}

// Init resets the backing region, clears the free-list index, lays down
// the prologue/epilogue sentinels, and seeds the heap with one chunk-sized
// free block. Re-initialization invalidates every pointer handed out by a
// prior Init.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.region.Reset(); err != nil {
		return err
	}

	e.idx.Reset()

	atomic.StoreUint64(&e.allocCount, 0)
	atomic.StoreUint64(&e.freeCount, 0)
	atomic.StoreUint64(&e.totalAllocated, 0)
	atomic.StoreUint64(&e.totalFreed, 0)

	base, err := e.region.Grow(4 * block.WordSize)
	if err != nil {
		return err
	}

	*(*uintptr)(base) = 0 // alignment pad

	prologueHeader := unsafe.Pointer(uintptr(base) + block.WordSize)
	prologueFooter := unsafe.Pointer(uintptr(base) + 2*block.WordSize)
	epilogueHeader := unsafe.Pointer(uintptr(base) + 3*block.WordSize)

	block.WritePrologueFooter(prologueHeader)
	block.WritePrologueFooter(prologueFooter)
	block.WriteEpilogueHeader(epilogueHeader)

	e.sentinel = prologueFooter

	if _, err := e.extendLocked(int(e.chunkSize / block.WordSize)); err != nil {
		return err
	}

	return nil
}

// Allocate returns a 16-byte aligned pointer to at least size writable
// bytes, or nil. size <= 0 always returns nil without acquiring the lock.
func (e *Engine) Allocate(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}

	asize := adjustedSize(size)

	e.mu.Lock()
	defer e.mu.Unlock()

	if p := e.idx.Find(asize); p != nil {
		return e.placeLocked(p, asize)
	}

	growBytes := asize
	if e.chunkSize > growBytes {
		growBytes = e.chunkSize
	}

	p, err := e.extendLocked(int(growBytes / block.WordSize))
	if err != nil {
		return nil
	}

	return e.placeLocked(p, asize)
}

// Release returns ptr to the heap, coalescing it with any free physical
// neighbor. A nil ptr is a no-op. ptr must have been returned by Allocate
// or Resize on this Engine and not already released; violating that is
// undefined behavior, not detected here.
func (e *Engine) Release(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	size := block.Size(ptr)
	block.SetHeaderFooter(ptr, size, false)
	e.coalesceLocked(ptr)

	atomic.AddUint64(&e.freeCount, 1)
	atomic.AddUint64(&e.totalFreed, uint64(size-block.DoubleWordSize))
}

// Resize returns a pointer to at least newSize writable bytes, preserving
// the first min(newSize, old payload capacity) bytes of ptr's content.
// ptr == nil behaves like Allocate(newSize); newSize <= 0 releases ptr and
// returns nil. The copy happens outside the heap lock: at that point the
// new pointer is not yet published and the old one is still exclusively
// owned by the caller, so the two owners cannot race.
func (e *Engine) Resize(ptr unsafe.Pointer, newSize int) unsafe.Pointer {
	if ptr == nil {
		return e.Allocate(newSize)
	}

	if newSize <= 0 {
		e.Release(ptr)

		return nil
	}

	newPtr := e.Allocate(newSize)
	if newPtr == nil {
		return nil
	}

	e.mu.Lock()
	oldBlockSize := block.Size(ptr)
	e.mu.Unlock()

	var oldPayload uintptr
	if oldBlockSize >= block.DoubleWordSize {
		oldPayload = oldBlockSize - block.DoubleWordSize
	}

	copySize := uintptr(newSize)
	if oldPayload < copySize {
		copySize = oldPayload
	}

	if copySize > 0 {
		copyMemory(newPtr, ptr, copySize)
	}

	e.Release(ptr)

	return newPtr
}

// Stats reports coarse allocation counters. The counters are maintained
// with atomics so a racing reader only ever sees a recent, consistent
// value for each individual field; only the region usage and ceiling are
// read under the heap lock.
type Stats struct {
	AllocationCount uint64
	FreeCount       uint64
	TotalAllocated  uint64
	TotalFreed      uint64
	BytesInUse      uint64
	RegionUsed      uintptr
	RegionCeiling   uintptr
}

// Stats returns the engine's current counters.
func (e *Engine) Stats() Stats {
	alloc := atomic.LoadUint64(&e.totalAllocated)
	freed := atomic.LoadUint64(&e.totalFreed)

	e.mu.Lock()
	used, ceiling := e.region.Used(), e.region.Ceiling()
	e.mu.Unlock()

	return Stats{
		AllocationCount: atomic.LoadUint64(&e.allocCount),
		FreeCount:       atomic.LoadUint64(&e.freeCount),
		TotalAllocated:  alloc,
		TotalFreed:      freed,
		BytesInUse:      alloc - freed,
		RegionUsed:      used,
		RegionCeiling:   ceiling,
	}
}

// adjustedSize computes the block size (including header and footer
// overhead) needed for a size-byte payload request, rounded up to a
// multiple of 16 and never smaller than the minimum block size.
func adjustedSize(size int) uintptr {
	if size <= 16 {
		return block.MinSize
	}

	n := uintptr(size)

	return block.DoubleWordSize * ((n + block.DoubleWordSize + block.DoubleWordSize - 1) / block.DoubleWordSize)
}

// extendLocked grows the heap by nWords (rounded up to an even count,
// preserving 16-byte alignment) and seeds a new free block covering it,
// reusing the slot of the old epilogue header as the new block's header.
// Callers must hold e.mu.
func (e *Engine) extendLocked(nWords int) (unsafe.Pointer, error) {
	if nWords%2 != 0 {
		nWords++
	}

	size := uintptr(nWords) * block.WordSize

	payload, err := e.region.Grow(int(size))
	if err != nil {
		return nil, err
	}

	block.SetHeaderFooter(payload, size, false)

	nextPayload := unsafe.Pointer(uintptr(payload) + size)
	block.WriteEpilogueHeader(block.HeaderAddr(nextPayload))

	return e.coalesceLocked(payload), nil
}

// placeLocked removes a free block from the index and either splits it
// into an allocated front portion plus a free remainder, or hands over
// the whole block, depending on whether the remainder would meet the
// minimum block size. Callers must hold e.mu.
func (e *Engine) placeLocked(p unsafe.Pointer, asize uintptr) unsafe.Pointer {
	csize := block.Size(p)
	e.idx.Remove(p)

	if csize-asize >= block.MinSize {
		block.SetHeaderFooter(p, asize, true)

		remainder := block.NextPhysical(p)
		block.SetHeaderFooter(remainder, csize-asize, false)
		e.idx.Insert(remainder)
	} else {
		block.SetHeaderFooter(p, csize, true)
	}

	atomic.AddUint64(&e.allocCount, 1)
	atomic.AddUint64(&e.totalAllocated, uint64(block.Size(p)-block.DoubleWordSize))

	return p
}

// coalesceLocked merges p with whichever of its physical neighbors are
// free, inserts the resulting free block into the index, and returns it.
// Callers must hold e.mu.
func (e *Engine) coalesceLocked(p unsafe.Pointer) unsafe.Pointer {
	prevAlloc := block.PrevAllocated(p)
	nextAlloc := block.NextAllocated(p)
	size := block.Size(p)

	switch {
	case prevAlloc && nextAlloc:
		// no merge.
	case prevAlloc && !nextAlloc:
		next := block.NextPhysical(p)
		e.idx.Remove(next)
		size += block.Size(next)
		block.SetHeaderFooter(p, size, false)
	case !prevAlloc && nextAlloc:
		prev := block.PrevPhysical(p)
		e.idx.Remove(prev)
		size += block.Size(prev)
		block.SetHeaderFooter(prev, size, false)
		p = prev
	default:
		prev := block.PrevPhysical(p)
		next := block.NextPhysical(p)
		e.idx.Remove(prev)
		e.idx.Remove(next)
		size += block.Size(prev) + block.Size(next)
		block.SetHeaderFooter(prev, size, false)
		p = prev
	}

	e.idx.Insert(p)

	return p
}

// copyMemory copies size bytes from src to dst via byte-slice views, the
// same technique the Orizon runtime's allocator package uses to move
// payloads between unsafe.Pointer addresses.
func copyMemory(dst, src unsafe.Pointer, size uintptr) {
	dstSlice := unsafe.Slice((*byte)(dst), size)
	srcSlice := unsafe.Slice((*byte)(src), size)
	copy(dstSlice, srcSlice)
}
