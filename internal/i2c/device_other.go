//go:build !linux

package i2c

import (
	"errors"
	"fmt"
)

// OpenDevice is only implemented on Linux.
func OpenDevice(path string, addr uint16) (Transport, error) {
	return nil, fmt.Errorf("open %s: %w", path, errors.ErrUnsupported)
}

func isRetryableErrno(error) bool {
	return false
}
