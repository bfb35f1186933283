package gpio

import (
	"fmt"
	"os"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

// DefaultStreamDevice is the character device exposed by the gpio_stream
// kernel module.
const DefaultStreamDevice = "/dev/gpio_stream"

// OpWrite is the only opcode understood by the stream device.
const OpWrite byte = 'w'

// CommandSize is the fixed length of every stream command.
const CommandSize = 3

// Command is a single stream device instruction.
type Command struct {
	Op    byte
	Pin   uint8
	Value bool
}

// WriteCommand returns the command that drives pin to value.
func WriteCommand(pin uint8, value bool) Command {
	return Command{Op: OpWrite, Pin: pin, Value: value}
}

// Bytes encodes the command as {op, pin, value}.
func (c Command) Bytes() [CommandSize]byte {
	var v byte
	if c.Value {
		v = 1
	}
	return [CommandSize]byte{c.Op, c.Pin, v}
}

// ParseCommand decodes a 3-byte stream command.
func ParseCommand(b []byte) (Command, error) {
	if len(b) != CommandSize {
		return Command{}, fmt.Errorf("gpio: command must be %d bytes, got %d", CommandSize, len(b))
	}
	if b[0] != OpWrite {
		return Command{}, fmt.Errorf("gpio: unknown opcode %q", b[0])
	}
	return Command{Op: b[0], Pin: b[1], Value: b[2] != 0}, nil
}

// StreamDevice writes pin commands to the GPIO stream device.
type StreamDevice struct {
	port StreamPorter
	path string
}

// OpenStreamDevice opens the stream device at path read/write.
func OpenStreamDevice(path string) (*StreamDevice, error) {
	return OpenStreamDeviceWith(path, openStreamFile)
}

// OpenStreamDeviceWith opens the stream device through the supplied opener.
func OpenStreamDeviceWith(path string, open StreamOpener) (*StreamDevice, error) {
	port, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO driver %s: %w", path, err)
	}
	return NewStreamDevice(port, path), nil
}

// NewStreamDevice wraps an already opened port.
func NewStreamDevice(port StreamPorter, path string) *StreamDevice {
	return &StreamDevice{port: port, path: path}
}

func openStreamFile(path string) (StreamPorter, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

// WritePin sends one command. Anything less than a full command written is an
// error; nothing is retried.
func (s *StreamDevice) WritePin(pin uint8, value bool) error {
	monitoring.Debugf("GPIO write: pin=%d value=%t", pin, value)
	pkt := WriteCommand(pin, value).Bytes()
	n, err := s.port.Write(pkt[:])
	if err != nil {
		return fmt.Errorf("failed to write to GPIO pin %d: %w", pin, err)
	}
	if n != CommandSize {
		return fmt.Errorf("%w: pin %d, wrote %d of %d bytes", ErrShortWrite, pin, n, CommandSize)
	}
	return nil
}

// Close releases the device.
func (s *StreamDevice) Close() error {
	return s.port.Close()
}

// String returns the device path.
func (s *StreamDevice) String() string {
	return s.path
}
