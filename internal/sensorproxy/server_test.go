package sensorproxy

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns values in turn; errs[i], when set, fails call i.
type fakeSource struct {
	mu     sync.Mutex
	values []uint32
	errs   []error
	calls  int
}

func (f *fakeSource) Distance(ctx context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return 0, f.errs[i]
	}
	if len(f.values) == 0 {
		return 0, nil
	}
	return f.values[i%len(f.values)], nil
}

func startServer(t *testing.T, src DistanceSource) (string, *Stats) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	stats := NewStats()
	srv := NewServer(ServerConfig{Source: src, Stats: stats})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, conn) }()

	t.Cleanup(func() {
		cancel()
		<-done
		conn.Close()
	})
	return conn.LocalAddr().String(), stats
}

func roundTrip(t *testing.T, conn net.Conn, payload []byte) []byte {
	t.Helper()
	_, err := conn.Write(payload)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestServerRepliesToEveryDatagram(t *testing.T) {
	addr, stats := startServer(t, &fakeSource{values: []uint32{100, 200}})

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, EncodeDistance(100), roundTrip(t, conn, RequestPayload))
	// the payload is not inspected
	assert.Equal(t, EncodeDistance(200), roundTrip(t, conn, []byte("anything")))

	requests, replies, failures, _ := stats.GetAndReset()
	assert.Equal(t, int64(2), requests)
	assert.Equal(t, int64(2), replies)
	assert.Zero(t, failures)
}

func TestServerDropsFailedReading(t *testing.T) {
	src := &fakeSource{values: []uint32{0, 777}, errs: []error{errors.New("sensor busy")}}
	addr, stats := startServer(t, src)

	client, err := Dial(ClientConfig{
		Address:        addr,
		ReceiveTimeout: 100 * time.Millisecond,
		InitialBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()

	mm, err := client.Measure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(777), mm)

	requests, replies, failures, _ := stats.GetAndReset()
	assert.Equal(t, int64(2), requests)
	assert.Equal(t, int64(1), replies)
	assert.Equal(t, int64(1), failures)
}

func TestServeStopsOnCancel(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(ServerConfig{Source: &fakeSource{}}).Serve(ctx, conn) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestStatsLogStats(t *testing.T) {
	s := NewStats()
	s.addRequest()
	s.addReply()
	s.LogStats()

	requests, replies, failures, _ := s.GetAndReset()
	assert.Zero(t, requests+replies+failures, "LogStats resets the counters")
}

func TestListenAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(ServerConfig{Address: "127.0.0.1:0", Source: &fakeSource{}}).ListenAndServe(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}

	err := NewServer(ServerConfig{Address: "not-an-address", Source: &fakeSource{}}).ListenAndServe(context.Background())
	assert.Error(t, err)
}
