//go:build linux || darwin || freebsd || netbsd || openbsd

package fstfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mmapFile(fd *os.File, size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(fd.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to memory map file: %w", err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
