// Package gpio drives output pins through either the kernel GPIO stream
// device or, alternatively, periph.io's host drivers.
package gpio

import (
	"errors"
	"io"
)

// ErrShortWrite is returned when the stream device accepts fewer bytes than
// a full command.
var ErrShortWrite = errors.New("gpio: short write to stream device")

// PinWriter sets output pins by number. Both backends implement it.
type PinWriter interface {
	WritePin(pin uint8, value bool) error
	io.Closer
}

// StreamPorter defines the minimal interface needed for the stream device.
// This abstraction enables unit testing without the kernel module loaded.
type StreamPorter interface {
	io.Writer
	io.Closer
}

// StreamOpener is a function type for opening the stream device.
type StreamOpener func(path string) (StreamPorter, error)
