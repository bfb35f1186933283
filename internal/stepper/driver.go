package stepper

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/tofsweep/internal/gpio"
	"github.com/banshee-data/tofsweep/internal/timeutil"
)

// DefaultPins are the BCM pins wired to coils A-D.
var DefaultPins = [Coils]uint8{17, 18, 22, 23}

// DefaultStepDelay is the pause after each row. Shorter delays stall the
// 28BYJ-48 under load.
const DefaultStepDelay = 70 * time.Millisecond

// Config configures a Driver.
type Config struct {
	Pins      [Coils]uint8
	StepDelay time.Duration
	Clock     timeutil.Clock
}

// Driver applies half-step rows to four coil pins.
type Driver struct {
	out      gpio.PinWriter
	pins     [Coils]uint8
	delay    time.Duration
	clock    timeutil.Clock
	row      int // last applied row
	position int64
}

// NewDriver creates a driver. The first forward half-step applies row 0.
func NewDriver(out gpio.PinWriter, cfg Config) *Driver {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Driver{
		out:   out,
		pins:  cfg.Pins,
		delay: cfg.StepDelay,
		clock: clock,
		row:   Rows - 1,
	}
}

// Advance moves the motor by halfSteps rows of the table, forward for
// positive values and backward for negative ones. Every row is four pin
// writes followed by the step delay. The first failing pin write aborts the
// move and is returned.
func (d *Driver) Advance(ctx context.Context, halfSteps int) error {
	dir := 1
	if halfSteps < 0 {
		dir = -1
		halfSteps = -halfSteps
	}

	for i := 0; i < halfSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := wrapRow(d.row + dir)
		if err := d.apply(HalfStepSequence[next]); err != nil {
			return fmt.Errorf("half-step %d of %d (row %d): %w", i+1, halfSteps, next, err)
		}
		d.row = next
		d.position += int64(dir)
		if d.delay > 0 {
			d.clock.Sleep(d.delay)
		}
	}
	return nil
}

func (d *Driver) apply(row [Coils]bool) error {
	for c, on := range row {
		if err := d.out.WritePin(d.pins[c], on); err != nil {
			return err
		}
	}
	return nil
}

// Release de-energises every coil. The row index is kept so the next
// Advance continues the sequence.
func (d *Driver) Release() error {
	return d.apply([Coils]bool{})
}

// Row returns the index of the last applied row.
func (d *Driver) Row() int {
	return d.row
}

// Position returns the signed number of half-steps applied since creation.
func (d *Driver) Position() int64 {
	return d.position
}
