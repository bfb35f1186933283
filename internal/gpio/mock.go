package gpio

import (
	"bytes"
	"errors"
	"sync"
)

// TestableStreamPort implements StreamPorter with configurable behaviour for
// testing. It captures everything written and can simulate short writes.
type TestableStreamPort struct {
	mu sync.Mutex

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// WriteError is returned by every Write call if set
	WriteError error

	// ShortWriteAfter makes writes accept only ShortWriteBytes bytes once
	// this many full writes have succeeded. Negative disables it.
	ShortWriteAfter int
	ShortWriteBytes int

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// WriteCalls records the number of Write calls
	WriteCalls int
}

// NewTestableStreamPort creates a new TestableStreamPort for testing.
func NewTestableStreamPort() *TestableStreamPort {
	return &TestableStreamPort{
		WriteBuffer:     bytes.NewBuffer(nil),
		ShortWriteAfter: -1,
	}
}

// Write records p, or simulates a failure.
func (t *TestableStreamPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++
	if t.Closed {
		return 0, errors.New("stream device closed")
	}
	if t.WriteError != nil {
		return 0, t.WriteError
	}
	if t.ShortWriteAfter >= 0 && t.WriteCalls > t.ShortWriteAfter {
		n := t.ShortWriteBytes
		if n > len(p) {
			n = len(p)
		}
		t.WriteBuffer.Write(p[:n])
		return n, nil
	}
	return t.WriteBuffer.Write(p)
}

// Close marks the port closed.
func (t *TestableStreamPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseError
}

// Commands decodes every complete command written so far.
func (t *TestableStreamPort) Commands() []Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	raw := t.WriteBuffer.Bytes()
	cmds := make([]Command, 0, len(raw)/CommandSize)
	for i := 0; i+CommandSize <= len(raw); i += CommandSize {
		cmd, err := ParseCommand(raw[i : i+CommandSize])
		if err != nil {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// PinWrite is one call recorded by RecordingPins.
type PinWrite struct {
	Pin   uint8
	Value bool
}

// RecordingPins is an in-memory PinWriter that records every write.
type RecordingPins struct {
	mu     sync.Mutex
	Writes []PinWrite
	// FailAfter makes the write after this many successful writes fail with
	// ErrShortWrite. Zero or negative disables it.
	FailAfter int
	Closed    bool
}

// WritePin records the write.
func (r *RecordingPins) WritePin(pin uint8, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAfter > 0 && len(r.Writes) >= r.FailAfter {
		return ErrShortWrite
	}
	r.Writes = append(r.Writes, PinWrite{Pin: pin, Value: value})
	return nil
}

// Close marks the writer closed.
func (r *RecordingPins) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

// Levels returns the most recent value written to each pin.
func (r *RecordingPins) Levels() map[uint8]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	levels := make(map[uint8]bool)
	for _, w := range r.Writes {
		levels[w.Pin] = w.Value
	}
	return levels
}
