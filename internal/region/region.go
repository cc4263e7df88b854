// Package region implements the backing store for a segalloc heap: a
// linear, monotonically growing slab of memory reserved once from the host
// and handed out to the engine in contiguous chunks, each starting where
// the previous one ended.
//
// Region is the sole source of heap memory. It exposes a single primitive,
// Grow, a bump pointer over a preallocated mapping; it is treated as an
// external collaborator by the engine above it and knows nothing about
// blocks, headers, or free lists.
package region

import (
	"unsafe"

	"github.com/orizon-lang/segalloc/internal/errors"
)

// DefaultCeiling is the maximum size of the backing mapping: 50 MiB.
const DefaultCeiling = 50 * 1024 * 1024

// Region is a monotonically growing, contiguous byte range obtained from
// the OS. Its zero value is not ready for use; call Reset to reserve the
// mapping before the first Grow.
type Region struct {
	mem     []byte
	base    unsafe.Pointer
	brk     uintptr
	ceiling uintptr
}

// New returns a Region with the given ceiling, not yet backed by memory.
// Reset must be called before Grow.
func New(ceiling uintptr) *Region {
	return &Region{ceiling: ceiling}
}

// Reset reserves the backing mapping on first use and rewinds the break to
// the base of the mapping on every subsequent call. Previous pointers
// handed out by Grow are invalidated by a Reset.
func (r *Region) Reset() error {
	if r.mem == nil {
		mem, err := reserve(r.ceiling)
		if err != nil {
			return errors.MappingFailed(r.ceiling, err)
		}

		if len(mem) == 0 {
			return errors.MappingFailed(r.ceiling, errInvalidMapping)
		}

		r.mem = mem
		r.base = unsafe.Pointer(&mem[0])
	}

	r.brk = 0

	return nil
}

// Grow advances the break by n bytes and returns the start of the newly
// added range. n must be non-negative; a negative n, or an n that would
// push the break past the ceiling, fails without mutating the region.
func (r *Region) Grow(n int) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, errors.InvalidSize(n)
	}

	size := uintptr(n)
	if r.brk+size > r.ceiling {
		return nil, errors.OutOfHeap(size, r.brk, r.ceiling)
	}

	start := unsafe.Pointer(uintptr(r.base) + r.brk)
	r.brk += size

	return start, nil
}

// Used returns the number of bytes currently committed by Grow calls since
// the last Reset.
func (r *Region) Used() uintptr { return r.brk }

// Ceiling returns the region's maximum capacity.
func (r *Region) Ceiling() uintptr { return r.ceiling }

var errInvalidMapping = mappingEmptyError{}

type mappingEmptyError struct{}

func (mappingEmptyError) Error() string { return "OS returned an empty mapping" }
