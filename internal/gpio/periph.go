package gpio

import (
	"fmt"
	"strconv"

	periphgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

// PeriphPins drives header pins directly through periph.io, for boards where
// the gpio_stream module is not loaded.
type PeriphPins struct {
	pins map[uint8]periphgpio.PinIO
}

// PinLookup resolves a pin name to a periph pin; gpioreg.ByName in production.
type PinLookup func(name string) periphgpio.PinIO

// OpenPeriphPins initialises the periph host drivers and resolves each BCM
// pin number.
func OpenPeriphPins(pins []uint8) (*PeriphPins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}
	return NewPeriphPins(pins, gpioreg.ByName)
}

// NewPeriphPins resolves pins through lookup without touching host drivers.
func NewPeriphPins(pins []uint8, lookup PinLookup) (*PeriphPins, error) {
	p := &PeriphPins{pins: make(map[uint8]periphgpio.PinIO, len(pins))}
	for _, n := range pins {
		pin := lookup(strconv.Itoa(int(n)))
		if pin == nil {
			return nil, fmt.Errorf("gpio pin %d not found", n)
		}
		p.pins[n] = pin
	}
	return p, nil
}

// WritePin drives the pin high or low.
func (p *PeriphPins) WritePin(pin uint8, value bool) error {
	out, ok := p.pins[pin]
	if !ok {
		return fmt.Errorf("gpio pin %d was not opened", pin)
	}
	monitoring.Debugf("GPIO write: pin=%d value=%t", pin, value)
	if err := out.Out(periphgpio.Level(value)); err != nil {
		return fmt.Errorf("failed to write to GPIO pin %d: %w", pin, err)
	}
	return nil
}

// Close drives every opened pin low.
func (p *PeriphPins) Close() error {
	var firstErr error
	for n, out := range p.pins {
		if err := out.Out(periphgpio.Low); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release GPIO pin %d: %w", n, err)
		}
	}
	return firstErr
}
