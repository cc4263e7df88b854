//go:build unix

package region

import "golang.org/x/sys/unix"

// reserve obtains a single anonymous, private, read/write mapping of size
// bytes from the kernel. The mapping is never grown or shrunk after this
// call; Region.Grow only advances a bump pointer inside it.
func reserve(size uintptr) ([]byte, error) {
	return unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}
