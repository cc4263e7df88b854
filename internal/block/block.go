// Package block defines the in-band boundary-tag encoding shared by every
// block in a segalloc heap: a header word, an optional footer word, and
// (while free) a pair of doubly-linked free-list pointers living inside the
// payload itself.
//
// Every function here takes or returns a payload pointer, the address a
// caller of the allocator would see, and projects it to the surrounding
// metadata via pointer arithmetic. Nothing outside this package reads or
// writes a header or footer word directly; the rest of segalloc treats a
// block as an opaque payload address.
package block

import "unsafe"

const (
	// WordSize is the width of a header, footer, or free-list link word.
	WordSize = 8
	// DoubleWordSize is the allocator's alignment granularity.
	DoubleWordSize = 16
	// MinSize is the smallest possible block: header + two link words + footer.
	MinSize = 2 * DoubleWordSize

	allocBit  = uintptr(0x1)
	sizeMask  = ^uintptr(0xF)
	prologueN = uintptr(DoubleWordSize)
)

// loadWord and storeWord read/write a uintptr-sized value at an arbitrary address. All
// header, footer, and free-list link slots are one word wide.
func loadWord(addr unsafe.Pointer) uintptr {
	return *(*uintptr)(addr)
}

func storeWord(addr unsafe.Pointer, v uintptr) {
	*(*uintptr)(addr) = v
}

// HeaderAddr returns the address of p's header word, one word below p.
func HeaderAddr(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) - WordSize)
}

// FooterAddr returns the address of p's footer word, computed from p's own
// header (footer sits at p + size - DoubleWordSize).
func FooterAddr(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + Size(p) - DoubleWordSize)
}

// pack combines a size and an allocation flag into a single tag word. size
// must already be a multiple of 16.
func pack(size uintptr, alloc bool) uintptr {
	if alloc {
		return size | allocBit
	}

	return size
}

// Size returns the total block size (header + payload + footer) recorded
// in p's header, including the header and footer bytes themselves.
func Size(p unsafe.Pointer) uintptr {
	return loadWord(HeaderAddr(p)) & sizeMask
}

// Allocated reports whether p's header marks the block allocated.
func Allocated(p unsafe.Pointer) bool {
	return loadWord(HeaderAddr(p))&allocBit != 0
}

// PayloadCapacity returns the usable payload size of a block: its total
// size minus the header and footer words.
func PayloadCapacity(p unsafe.Pointer) uintptr {
	return Size(p) - DoubleWordSize
}

// SetHeaderFooter writes size|alloc into both p's header and its footer,
// keeping the boundary-tag invariant (footer mirrors header) intact. size
// is the new total block size and must be used for both words; callers
// that change size must call this, not write the header alone.
func SetHeaderFooter(p unsafe.Pointer, size uintptr, alloc bool) {
	tag := pack(size, alloc)
	storeWord(HeaderAddr(p), tag)
	storeWord(footerAddrForSize(p, size), tag)
}

// footerAddrForSize computes the footer address for a size that has not
// yet been committed to the header; SetHeaderFooter uses it so the footer
// lands at the new size even while the header still holds the old one.
func footerAddrForSize(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + size - DoubleWordSize)
}

// NextPhysical returns the payload pointer of the block physically
// following p in the heap, regardless of that block's allocation state.
func NextPhysical(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + Size(p))
}

// PrevPhysical returns the payload pointer of the block physically
// preceding p, read via p's preceding footer word.
func PrevPhysical(p unsafe.Pointer) unsafe.Pointer {
	prevFooter := unsafe.Pointer(uintptr(p) - DoubleWordSize)
	prevSize := loadWord(prevFooter) & sizeMask

	return unsafe.Pointer(uintptr(p) - prevSize)
}

// PrevAllocated reports the allocation bit of the footer immediately
// preceding p, used by coalesce to learn the previous neighbor's state
// without first computing its payload pointer.
func PrevAllocated(p unsafe.Pointer) bool {
	prevFooter := unsafe.Pointer(uintptr(p) - DoubleWordSize)

	return loadWord(prevFooter)&allocBit != 0
}

// NextAllocated reports the allocation bit of the header of the block
// physically following p.
func NextAllocated(p unsafe.Pointer) bool {
	return loadWord(HeaderAddr(NextPhysical(p)))&allocBit != 0
}

// Links is the tagged link-pair view of a free block's payload: the first
// two words of a free block's payload hold its doubly-linked free-list
// pointers. It must never be read or written once the block is allocated:
// the allocated payload view and this view alias the same bytes and are
// mutually exclusive.
type Links struct {
	p unsafe.Pointer
}

// FreeLinks returns the link-pair view of free block p.
func FreeLinks(p unsafe.Pointer) Links { return Links{p: p} }

// Next returns the forward free-list pointer, or nil.
func (l Links) Next() unsafe.Pointer {
	return *(*unsafe.Pointer)(l.p)
}

// Prev returns the backward free-list pointer, or nil.
func (l Links) Prev() unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(l.p) + WordSize))
}

// SetNext writes the forward free-list pointer.
func (l Links) SetNext(next unsafe.Pointer) {
	*(*unsafe.Pointer)(l.p) = next
}

// SetPrev writes the backward free-list pointer.
func (l Links) SetPrev(prev unsafe.Pointer) {
	*(*unsafe.Pointer)(unsafe.Pointer(uintptr(l.p) + WordSize)) = prev
}

// WritePrologueFooter writes a permanently-allocated (size=16, alloc=1) tag
// at addr, used for both the prologue header and footer, which are
// identical words.
func WritePrologueFooter(addr unsafe.Pointer) {
	storeWord(addr, pack(prologueN, true))
}

// WriteEpilogueHeader writes the (size=0, alloc=1) sentinel header at addr.
func WriteEpilogueHeader(addr unsafe.Pointer) {
	storeWord(addr, pack(0, true))
}

// AlignUp rounds n up to the nearest multiple of align, a power of two.
func AlignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
