// Package freelist implements the segregated free-list index: an array of
// doubly-linked lists of free blocks, bucketed by size class, with LIFO
// insertion and ascending-bucket first-fit search.
package freelist

import (
	"unsafe"

	"github.com/orizon-lang/segalloc/internal/block"
)

// NumBuckets is the number of independent segregated free lists.
const NumBuckets = 20

// Index holds the heads of the 20 segregated free lists. Its zero value,
// 20 nil heads, is a ready-to-use, empty index.
type Index struct {
	heads [NumBuckets]unsafe.Pointer
}

// BucketOf computes the bucket a block of the given total size belongs in:
// the largest k <= NumBuckets-1 such that size>>k > 0, equivalently
// floor(log2(size)) saturated at NumBuckets-1. It must be called with the
// same size at insert and remove time, which holds because a block's size
// never changes while it sits on a list.
func BucketOf(size uintptr) int {
	k := 0
	for size > 1 && k < NumBuckets-1 {
		size >>= 1
		k++
	}

	return k
}

// Insert splices p onto the head of its size class's list, LIFO.
func (idx *Index) Insert(p unsafe.Pointer) {
	k := BucketOf(block.Size(p))
	links := block.FreeLinks(p)
	head := idx.heads[k]

	links.SetNext(head)
	links.SetPrev(nil)

	if head != nil {
		block.FreeLinks(head).SetPrev(p)
	}

	idx.heads[k] = p
}

// Remove splices p out of whichever list it currently occupies, determined
// by its current size.
func (idx *Index) Remove(p unsafe.Pointer) {
	k := BucketOf(block.Size(p))
	links := block.FreeLinks(p)
	prev := links.Prev()
	next := links.Next()

	if prev == nil {
		idx.heads[k] = next
	} else {
		block.FreeLinks(prev).SetNext(next)
	}

	if next != nil {
		block.FreeLinks(next).SetPrev(prev)
	}
}

// Find searches buckets in ascending order starting from the bucket for
// minSize, walking each bucket's list head-first, and returns the first
// block whose size is >= minSize. This approximates best-fit for small
// requests and degrades to first-fit for large ones; it is not
// address-ordered. Returns nil if no block fits.
func (idx *Index) Find(minSize uintptr) unsafe.Pointer {
	for k := BucketOf(minSize); k < NumBuckets; k++ {
		for p := idx.heads[k]; p != nil; p = block.FreeLinks(p).Next() {
			if block.Size(p) >= minSize {
				return p
			}
		}
	}

	return nil
}

// Head returns the current head of bucket k, for tests and diagnostics.
func (idx *Index) Head(k int) unsafe.Pointer {
	return idx.heads[k]
}

// Reset clears every bucket head, returning the index to its zero state.
func (idx *Index) Reset() {
	idx.heads = [NumBuckets]unsafe.Pointer{}
}
