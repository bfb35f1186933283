// Package sensorproxy carries distance readings between the stepper node and
// the sensor node. The stepper node sends the three bytes "REQ" over UDP and
// the sensor node answers with exactly four bytes: the distance in
// millimetres as a uint32 in the host's native byte order.
package sensorproxy

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// DefaultPeerAddress is where the stepper node finds the sensor node.
	DefaultPeerAddress = "127.0.0.1:32501"
	// DefaultListenAddress is where the sensor node listens.
	DefaultListenAddress = "0.0.0.0:32501"
	// DistanceSize is the length of a reply datagram.
	DistanceSize = 4
)

// RequestPayload is the body of every request datagram.
var RequestPayload = []byte("REQ")

var (
	// ErrMalformedResponse is returned when a reply is not exactly
	// DistanceSize bytes.
	ErrMalformedResponse = errors.New("sensorproxy: malformed response")
	// ErrShortWrite is returned when a datagram went out truncated.
	ErrShortWrite = errors.New("sensorproxy: short write")
	// ErrTimeout is returned when no reply arrived within the receive
	// timeout.
	ErrTimeout = errors.New("sensorproxy: no response")
)

// EncodeDistance frames a reading for the wire. The byte order is the
// host's own, which only works while both nodes share an architecture.
func EncodeDistance(mm uint32) []byte {
	b := make([]byte, DistanceSize)
	binary.NativeEndian.PutUint32(b, mm)
	return b
}

// DecodeDistance parses a reply datagram.
func DecodeDistance(b []byte) (uint32, error) {
	if len(b) != DistanceSize {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedResponse, len(b), DistanceSize)
	}
	return binary.NativeEndian.Uint32(b), nil
}
