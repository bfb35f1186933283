package main

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tofsweep/internal/config"
	"github.com/banshee-data/tofsweep/internal/i2c"
	"github.com/banshee-data/tofsweep/internal/sensorproxy"
	"github.com/banshee-data/tofsweep/internal/timeutil"
)

// VL53L1X registers the fake reports on.
const (
	regFirmwareStatus = 0x00E5
	regModelID        = 0x010F
	regGPIOStatus     = 0x0031
	regModeStart      = 0x0087
	regRangeMM        = 0x0096
)

// newFakeSensor returns a register file that boots immediately and reports
// data ready whenever ranging is on.
func newFakeSensor() *i2c.RegisterDevice {
	dev := i2c.NewRegisterDevice()
	dev.Set(regFirmwareStatus, 0x01)
	dev.Set(regModelID, 0xEA, 0xCC)
	dev.Dynamic = func(index uint16) (byte, bool) {
		if index != regGPIOStatus {
			return 0, false
		}
		if dev.Get(regModeStart, 1)[0] == 0x40 {
			return 0x03, true
		}
		return 0x02, true
	}
	return dev
}

func testDeps(dev *i2c.RegisterDevice, conns chan<- net.PacketConn, addr *uint16) deps {
	return deps{
		openI2C: dev.Opener(addr),
		listen: func(string) (net.PacketConn, error) {
			conn, err := net.ListenPacket("udp", "127.0.0.1:0")
			if err == nil {
				conns <- conn
			}
			return conn, err
		},
		clock: timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func TestRunServesDistances(t *testing.T) {
	dev := newFakeSensor()
	conns := make(chan net.PacketConn, 1)
	var addr uint16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, config.EmptySweepConfig(), testDeps(dev, conns, &addr)) }()

	var conn net.PacketConn
	select {
	case conn = <-conns:
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("sensor node never listened")
	}
	dev.Set(regRangeMM, 0x04, 0xD2)

	client, err := sensorproxy.Dial(sensorproxy.ClientConfig{Address: conn.LocalAddr().String()})
	require.NoError(t, err)
	defer client.Close()

	mm, err := client.Measure(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), mm)
	assert.Equal(t, uint16(0x29), addr)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	assert.Equal(t, byte(0x00), dev.Get(regModeStart, 1)[0], "ranging stopped on exit")
	assert.True(t, dev.Closed, "I2C session closed on exit")
}

func TestRunWrongSensor(t *testing.T) {
	dev := newFakeSensor()
	dev.Set(regModelID, 0xEE, 0xAA)

	err := run(context.Background(), config.EmptySweepConfig(), testDeps(dev, make(chan net.PacketConn, 1), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model id")
	assert.True(t, dev.Closed)
}

func TestRunI2COpenFailure(t *testing.T) {
	d := testDeps(newFakeSensor(), make(chan net.PacketConn, 1), nil)
	d.openI2C = func(string, uint16) (i2c.Transport, error) {
		return nil, errors.New("no such file or directory")
	}

	err := run(context.Background(), config.EmptySweepConfig(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control interface")
}
