// Package i2c provides an explicit session on a Linux I2C character device,
// addressed to a single slave with ioctl(I2C_SLAVE).
package i2c

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

// DefaultDevice is the bus exposed on the Raspberry Pi header.
const DefaultDevice = "/dev/i2c-1"

var (
	// ErrNotOpen is returned for transfers on a closed session.
	ErrNotOpen = errors.New("i2c: session not open")
	// ErrShortWrite is returned when the bus accepts fewer bytes than sent.
	ErrShortWrite = errors.New("i2c: short write")
	// ErrShortRead is returned when the bus returns fewer bytes than asked.
	ErrShortRead = errors.New("i2c: short read")
)

// Transport is an opened device handle bound to one slave address.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Opener opens path and binds it to the 7-bit slave address.
type Opener func(path string, addr uint16) (Transport, error)

// Session owns at most one open handle on the bus. The zero value is not
// usable; create sessions with NewSession.
type Session struct {
	path string
	open Opener
	dev  Transport
	addr uint16
}

// NewSession returns a closed session for the device at path. A nil opener
// uses the platform device opener.
func NewSession(path string, open Opener) *Session {
	if open == nil {
		open = OpenDevice
	}
	return &Session{path: path, open: open}
}

// Open opens the device and binds addr. Opening an open session is a no-op,
// even for a different address.
func (s *Session) Open(addr uint16) error {
	if s.dev != nil {
		return nil
	}
	dev, err := s.open(s.path, addr)
	if err != nil {
		return &Error{Op: "open", Path: s.path, Addr: addr, Err: err}
	}
	s.dev = dev
	s.addr = addr
	monitoring.Debugf("I2C initialised on %s at address 0x%02X", s.path, addr)
	return nil
}

// Close releases the handle. Closing a closed session is a no-op.
func (s *Session) Close() error {
	if s.dev == nil {
		return nil
	}
	err := s.dev.Close()
	s.dev = nil
	if err != nil {
		return &Error{Op: "close", Path: s.path, Addr: s.addr, Err: err}
	}
	return nil
}

// IsOpen reports whether the session holds a handle.
func (s *Session) IsOpen() bool {
	return s.dev != nil
}

// Addr returns the bound slave address.
func (s *Session) Addr() uint16 {
	return s.addr
}

// Path returns the device path.
func (s *Session) Path() string {
	return s.path
}

// Write sends p in a single write call.
func (s *Session) Write(p []byte) error {
	if s.dev == nil {
		return ErrNotOpen
	}
	n, err := s.dev.Write(p)
	if err != nil {
		return &Error{Op: "write", Path: s.path, Addr: s.addr, Err: err}
	}
	if n != len(p) {
		return &Error{Op: "write", Path: s.path, Addr: s.addr,
			Err: fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(p))}
	}
	return nil
}

// Read fills p in a single read call.
func (s *Session) Read(p []byte) error {
	if s.dev == nil {
		return ErrNotOpen
	}
	n, err := s.dev.Read(p)
	if err != nil {
		return &Error{Op: "read", Path: s.path, Addr: s.addr, Err: err}
	}
	if n != len(p) {
		return &Error{Op: "read", Path: s.path, Addr: s.addr,
			Err: fmt.Errorf("%w: read %d of %d bytes", ErrShortRead, n, len(p))}
	}
	return nil
}
