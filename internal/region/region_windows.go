//go:build windows

package region

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// reserve obtains a single committed, read/write virtual memory range of
// size bytes via VirtualAlloc. The mapping is never grown or shrunk after
// this call; Region.Grow only advances a bump pointer inside it.
func reserve(size uintptr) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}
