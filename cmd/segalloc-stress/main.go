// Command segalloc-stress drives a multicore allocate/free workload
// against one segalloc.Heap, the same shape as the thread-safety driver
// this allocator was validated against: a fixed number of workers, each
// running a fixed number of operations against a small local table of
// live pointers, freeing at random and allocating otherwise.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/segalloc"
)

const (
	maxAllocSize = 1024
	tableSize    = 100
)

func main() {
	workers := flag.Int("workers", 8, "number of concurrent workers")
	opsPerWorker := flag.Int("ops", 50000, "operations per worker")
	ceiling := flag.Uint64("ceiling", 64*1024*1024, "backing region ceiling in bytes")
	flag.Parse()

	log.Printf("--- Starting Thread-Safe Multicore Stress Test ---")

	h := segalloc.New(segalloc.WithRegionCeiling(uintptr(*ceiling)))
	if err := h.Init(); err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}

	start := time.Now()

	g, _ := errgroup.WithContext(context.Background())

	for w := 0; w < *workers; w++ {
		w := w

		g.Go(func() error {
			runWorker(h, w, *opsPerWorker)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("stress run failed: %v", err)
	}

	elapsed := time.Since(start)
	stats := h.Stats()

	log.Printf("Final Results:")
	log.Printf("- Total Workers:    %d", *workers)
	log.Printf("- Total Operations: %d", *workers * *opsPerWorker)
	log.Printf("- Time Elapsed:     %.4f seconds", elapsed.Seconds())
	log.Printf("- Allocations:      %d", stats.AllocationCount)
	log.Printf("- Frees:            %d", stats.FreeCount)
	log.Printf("- Region Used:      %d / %d bytes", stats.RegionUsed, stats.RegionCeiling)
	log.Printf("- Status:           SUCCESS (Thread-Safe & Stable)")
	log.Printf("--------------------------------------------------")
}

func runWorker(h *segalloc.Heap, id, ops int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(id)))

	var table [tableSize]unsafe.Pointer

	for i := 0; i < ops; i++ {
		idx := rng.Intn(tableSize)

		switch {
		case table[idx] != nil && rng.Intn(2) == 0:
			h.Release(table[idx])
			table[idx] = nil
		case table[idx] == nil:
			size := rng.Intn(maxAllocSize) + 1
			table[idx] = h.Allocate(size)
		}
	}

	for _, p := range table {
		if p != nil {
			h.Release(p)
		}
	}

	log.Printf("  [Worker %d] Finished %d operations.", id, ops)
}
