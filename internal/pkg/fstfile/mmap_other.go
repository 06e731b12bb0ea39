//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package fstfile

import (
	"errors"
	"os"
)

func mmapFile(*os.File, int) ([]byte, func() error, error) {
	return nil, nil, errors.New("memory mapping is not supported on this platform")
}
