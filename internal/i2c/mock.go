package i2c

import (
	"errors"
	"sync"
)

// RegisterDevice emulates a slave with a 16-bit register index, the framing
// used by ST's ToF sensors: a write is [index_hi, index_lo, data...] and a
// read is a 2-byte index write followed by a plain read that auto-increments.
type RegisterDevice struct {
	mu sync.Mutex

	regs map[uint16]byte
	ptr  uint16

	// Dynamic overrides the stored value of a register on read when it
	// returns ok.
	Dynamic func(index uint16) (value byte, ok bool)

	// ShortWrite and ShortRead drop the last byte of the next transfer.
	ShortWrite bool
	ShortRead  bool
	// WriteErr and ReadErr fail every transfer when set.
	WriteErr error
	ReadErr  error

	Closed bool
	Writes [][]byte
	Reads  int
}

// NewRegisterDevice returns an empty register file.
func NewRegisterDevice() *RegisterDevice {
	return &RegisterDevice{regs: make(map[uint16]byte)}
}

// Opener returns an Opener that hands out this device and records the
// requested address.
func (d *RegisterDevice) Opener(gotAddr *uint16) Opener {
	return func(path string, addr uint16) (Transport, error) {
		if gotAddr != nil {
			*gotAddr = addr
		}
		d.mu.Lock()
		d.Closed = false
		d.mu.Unlock()
		return d, nil
	}
}

// Set stores bytes starting at index.
func (d *RegisterDevice) Set(index uint16, data ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range data {
		d.regs[index+uint16(i)] = b
	}
}

// Get returns n stored bytes starting at index.
func (d *RegisterDevice) Get(index uint16, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = d.regs[index+uint16(i)]
	}
	return out
}

func (d *RegisterDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Closed {
		return 0, errors.New("device closed")
	}
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	d.Writes = append(d.Writes, append([]byte(nil), p...))
	if d.ShortWrite {
		d.ShortWrite = false
		return len(p) - 1, nil
	}
	if len(p) < 2 {
		return len(p), nil
	}
	d.ptr = uint16(p[0])<<8 | uint16(p[1])
	for i, b := range p[2:] {
		d.regs[d.ptr+uint16(i)] = b
	}
	return len(p), nil
}

func (d *RegisterDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	if d.Closed {
		d.mu.Unlock()
		return 0, errors.New("device closed")
	}
	if d.ReadErr != nil {
		d.mu.Unlock()
		return 0, d.ReadErr
	}
	d.Reads++
	n := len(p)
	if d.ShortRead {
		d.ShortRead = false
		n--
	}
	ptr := d.ptr
	dynamic := d.Dynamic
	for i := 0; i < n; i++ {
		p[i] = d.regs[ptr+uint16(i)]
	}
	d.mu.Unlock()

	if dynamic != nil {
		for i := 0; i < n; i++ {
			if v, ok := dynamic(ptr + uint16(i)); ok {
				p[i] = v
			}
		}
	}
	return n, nil
}

// Close marks the device closed.
func (d *RegisterDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}
