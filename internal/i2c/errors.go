package i2c

import (
	"errors"
	"fmt"
)

// Error describes a failed bus operation.
type Error struct {
	Op   string
	Path string
	Addr uint16
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("i2c %s %s@0x%02X: %v", e.Op, e.Path, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err looks like transient bus trouble (a NAK,
// arbitration loss, contention or a short transfer) rather than a missing
// or misconfigured device. Callers decide what to do with the answer.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrShortRead) || errors.Is(err, ErrShortWrite) {
		return true
	}
	return isRetryableErrno(err)
}
