package freelist

import (
	"testing"
	"unsafe"

	"github.com/orizon-lang/segalloc/internal/block"
)

// newFreeBlock carves a free block of the given size out of a fresh,
// 16-byte-aligned buffer and returns its payload pointer.
func newFreeBlock(t *testing.T, size uintptr) unsafe.Pointer {
	t.Helper()

	raw := make([]byte, size+2*block.DoubleWordSize)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + block.DoubleWordSize - 1) &^ (block.DoubleWordSize - 1)
	aligned += block.DoubleWordSize
	p := unsafe.Pointer(aligned)

	block.SetHeaderFooter(p, size, false)

	return p
}

func TestBucketOf(t *testing.T) {
	cases := []struct {
		size uintptr
		want int
	}{
		{1, 0},
		{2, 1},
		{32, 5},
		{64, 6},
		{1 << 19, 19},
		{1 << 30, 19}, // saturates
	}

	for _, c := range cases {
		if got := BucketOf(c.size); got != c.want {
			t.Errorf("BucketOf(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestInsertRemoveSingle(t *testing.T) {
	var idx Index

	p := newFreeBlock(t, 32)
	idx.Insert(p)

	k := BucketOf(32)
	if idx.Head(k) != p {
		t.Fatalf("Head(%d) = %p, want %p", k, idx.Head(k), p)
	}

	idx.Remove(p)

	if idx.Head(k) != nil {
		t.Fatalf("Head(%d) = %p after remove, want nil", k, idx.Head(k))
	}
}

func TestInsertLIFOOrder(t *testing.T) {
	var idx Index

	a := newFreeBlock(t, 32)
	b := newFreeBlock(t, 32)
	c := newFreeBlock(t, 32)

	idx.Insert(a)
	idx.Insert(b)
	idx.Insert(c)

	k := BucketOf(32)

	got := []unsafe.Pointer{}
	for p := idx.Head(k); p != nil; p = block.FreeLinks(p).Next() {
		got = append(got, p)
	}

	want := []unsafe.Pointer{c, b, a}
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %p, want %p", i, got[i], want[i])
		}
	}
}

func TestRemoveMiddle(t *testing.T) {
	var idx Index

	a := newFreeBlock(t, 32)
	b := newFreeBlock(t, 32)
	c := newFreeBlock(t, 32)

	idx.Insert(a)
	idx.Insert(b)
	idx.Insert(c) // list: c -> b -> a

	idx.Remove(b)

	k := BucketOf(32)

	var got []unsafe.Pointer
	for p := idx.Head(k); p != nil; p = block.FreeLinks(p).Next() {
		got = append(got, p)
	}

	want := []unsafe.Pointer{c, a}
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %p, want %p", i, got[i], want[i])
		}
	}
}

func TestFindAscendingBuckets(t *testing.T) {
	var idx Index

	small := newFreeBlock(t, 32)
	big := newFreeBlock(t, 1024)

	idx.Insert(small)
	idx.Insert(big)

	got := idx.Find(100)
	if got != big {
		t.Fatalf("Find(100) = %p, want %p (the 1024-byte block)", got, big)
	}

	got = idx.Find(16)
	if got != small {
		t.Fatalf("Find(16) = %p, want %p (the 32-byte block)", got, small)
	}
}

func TestFindNoFit(t *testing.T) {
	var idx Index

	small := newFreeBlock(t, 32)
	idx.Insert(small)

	if got := idx.Find(4096); got != nil {
		t.Fatalf("Find(4096) = %p, want nil", got)
	}
}

func TestFindWithinBucketSkipsTooSmall(t *testing.T) {
	var idx Index

	// Two blocks that hash to the same bucket (both size-class 5, i.e.
	// 32 <= size < 64) but only one is big enough for the request.
	smaller := newFreeBlock(t, 32)
	larger := newFreeBlock(t, 48)

	idx.Insert(larger)
	idx.Insert(smaller) // head is now `smaller`, then `larger`

	if BucketOf(32) != BucketOf(48) {
		t.Fatalf("test assumption broken: 32 and 48 hash to different buckets")
	}

	got := idx.Find(40)
	if got != larger {
		t.Fatalf("Find(40) = %p, want %p", got, larger)
	}
}

func TestResetClearsAllBuckets(t *testing.T) {
	var idx Index

	idx.Insert(newFreeBlock(t, 32))
	idx.Insert(newFreeBlock(t, 1<<19))

	idx.Reset()

	for k := 0; k < NumBuckets; k++ {
		if idx.Head(k) != nil {
			t.Errorf("Head(%d) != nil after Reset", k)
		}
	}
}
