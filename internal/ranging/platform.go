// Package ranging implements the low-level platform layer that ST's
// time-of-flight ranging drivers expect: 16-bit indexed register access,
// waits, a millisecond tick and a masked register poll, all on top of an
// explicit I2C session.
package ranging

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/tofsweep/internal/i2c"
	"github.com/banshee-data/tofsweep/internal/monitoring"
	"github.com/banshee-data/tofsweep/internal/timeutil"
)

var (
	// ErrControlInterface wraps every bus failure.
	ErrControlInterface = errors.New("ranging: control interface error")
	// ErrTimeout is returned by WaitValueMask when the register never matched.
	ErrTimeout = errors.New("ranging: timed out")
)

// Platform is the register shim for one sensor on one session.
type Platform struct {
	session *i2c.Session
	clock   timeutil.Clock
	ticks   *timeutil.TickSource

	// lastPoll is the elapsed time of the most recent WaitValueMask.
	lastPoll uint32
}

// NewPlatform binds the shim to a session. A nil clock uses the real clock.
func NewPlatform(session *i2c.Session, clock timeutil.Clock) *Platform {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Platform{
		session: session,
		clock:   clock,
		ticks:   timeutil.NewTickSource(clock),
	}
}

// Initialize opens the session on the 7-bit address. It is a no-op when the
// session is already open.
func (p *Platform) Initialize(addr uint16) error {
	if err := p.session.Open(addr); err != nil {
		monitoring.Logf("Failed to open I2C device %s at 0x%02X: %v", p.session.Path(), addr, err)
		return controlErr(err)
	}
	return nil
}

// Close releases the session; closing twice is harmless.
func (p *Platform) Close() error {
	if err := p.session.Close(); err != nil {
		return controlErr(err)
	}
	return nil
}

// Session returns the underlying bus session.
func (p *Platform) Session() *i2c.Session {
	return p.session
}

func controlErr(err error) error {
	return fmt.Errorf("%w: %w", ErrControlInterface, err)
}

// WriteMulti writes data to consecutive registers from index in one bus
// write: [index_hi, index_lo, data...].
func (p *Platform) WriteMulti(index uint16, data []byte) error {
	buf := make([]byte, 2+len(data))
	buf[0] = byte(index >> 8)
	buf[1] = byte(index)
	copy(buf[2:], data)

	if err := p.session.Write(buf); err != nil {
		monitoring.Debugf("WriteMulti 0x%04X failed: %v", index, err)
		return controlErr(err)
	}
	return nil
}

// ReadMulti reads count consecutive registers from index: a 2-byte index
// write, then a separate read.
func (p *Platform) ReadMulti(index uint16, count int) ([]byte, error) {
	if count < 0 {
		return nil, fmt.Errorf("ranging: negative read count %d", count)
	}
	if err := p.session.Write([]byte{byte(index >> 8), byte(index)}); err != nil {
		monitoring.Debugf("ReadMulti 0x%04X: failed to write register address: %v", index, err)
		return nil, controlErr(err)
	}
	buf := make([]byte, count)
	if err := p.session.Read(buf); err != nil {
		monitoring.Debugf("ReadMulti 0x%04X: failed to read data: %v", index, err)
		return nil, controlErr(err)
	}
	return buf, nil
}

// WriteReg8 writes one register.
func (p *Platform) WriteReg8(index uint16, v uint8) error {
	return p.WriteMulti(index, []byte{v})
}

// WriteReg16 writes a big-endian 16-bit value.
func (p *Platform) WriteReg16(index uint16, v uint16) error {
	return p.WriteMulti(index, []byte{byte(v >> 8), byte(v)})
}

// WriteReg32 writes a big-endian 32-bit value.
func (p *Platform) WriteReg32(index uint16, v uint32) error {
	return p.WriteMulti(index, []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// ReadReg8 reads one register.
func (p *Platform) ReadReg8(index uint16) (uint8, error) {
	b, err := p.ReadMulti(index, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadReg16 reads a big-endian 16-bit value.
func (p *Platform) ReadReg16(index uint16) (uint16, error) {
	b, err := p.ReadMulti(index, 2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// ReadReg32 reads a big-endian 32-bit value.
func (p *Platform) ReadReg32(index uint16) (uint32, error) {
	b, err := p.ReadMulti(index, 4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// WaitUs blocks for us microseconds.
func (p *Platform) WaitUs(us int32) error {
	if us > 0 {
		p.clock.Sleep(time.Duration(us) * time.Microsecond)
	}
	return nil
}

// WaitMs blocks for ms milliseconds.
func (p *Platform) WaitMs(ms int32) error {
	if ms > 0 {
		p.clock.Sleep(time.Duration(ms) * time.Millisecond)
	}
	return nil
}

// TickCount returns monotonic milliseconds since an arbitrary epoch. It wraps
// at 2^32; compute elapsed time as now-start on uint32.
func (p *Platform) TickCount() uint32 {
	return p.ticks.Ticks()
}
