//go:build unix

package serialization

import (
	"os"
	"syscall"
)

// mmapFile maps a file read-only.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_PRIVATE) //nolint:gosec // G115: fd and size fit in int
}

// munmapFile releases a mapping made by mmapFile.
func munmapFile(data []byte) error {
	return syscall.Munmap(data)
}
