// Package sweep builds a distance-vs-angle sweep by alternating between
// taking a distance reading and rotating the sensor one sample further.
package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

const (
	// DefaultSampleCount is the number of angle slots in a sweep.
	DefaultSampleCount = 100
	// DefaultHalfStepsPerSample is 20 passes through the 8-row half-step
	// table.
	DefaultHalfStepsPerSample = 160
)

// State is the controller's position in its two-state cycle.
type State int

const (
	// AwaitMeasurement waits for the distance at the current angle index.
	AwaitMeasurement State = iota
	// Rotate stores the pending distance and moves to the next angle.
	Rotate
)

func (s State) String() string {
	switch s {
	case AwaitMeasurement:
		return "AWAIT_MEASUREMENT"
	case Rotate:
		return "ROTATE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Ranger returns one distance in millimetres.
type Ranger interface {
	Measure(ctx context.Context) (uint32, error)
}

// Stepper moves the motor by a number of half-steps.
type Stepper interface {
	Advance(ctx context.Context, halfSteps int) error
}

// ControllerConfig holds the sweep geometry.
type ControllerConfig struct {
	SampleCount        int
	HalfStepsPerSample int
}

// Controller runs the measure/rotate loop.
type Controller struct {
	ranger    Ranger
	stepper   Stepper
	buf       *Buffer
	halfSteps int
	runID     string

	state   State
	pending uint32
	// remaining is the half-steps still owed by an interrupted rotation.
	remaining int
}

// NewController starts in AwaitMeasurement at angle index 0.
func NewController(r Ranger, s Stepper, cfg ControllerConfig) *Controller {
	halfSteps := cfg.HalfStepsPerSample
	if halfSteps == 0 {
		halfSteps = DefaultHalfStepsPerSample
	}
	return &Controller{
		ranger:    r,
		stepper:   s,
		buf:       NewBuffer(cfg.SampleCount),
		halfSteps: halfSteps,
		runID:     uuid.NewString(),
		state:     AwaitMeasurement,
	}
}

// State returns the state the next Step will act on.
func (c *Controller) State() State { return c.state }

// Buffer returns the sweep buffer the controller writes to.
func (c *Controller) Buffer() *Buffer { return c.buf }

// RunID identifies this sweep in logs and on the debug pages.
func (c *Controller) RunID() string { return c.runID }

// Step performs one state transition. On error the state is left unchanged.
// A rotation that fails part way keeps count of the half-steps already made,
// so calling Step again finishes the move instead of repeating it.
func (c *Controller) Step(ctx context.Context) error {
	switch c.state {
	case AwaitMeasurement:
		mm, err := c.ranger.Measure(ctx)
		if err != nil {
			return fmt.Errorf("measuring at index %d: %w", c.buf.Index(), err)
		}
		monitoring.Debugf("Index %d: %d mm", c.buf.Index(), mm)
		c.pending = mm
		c.state = Rotate

	case Rotate:
		if c.remaining == 0 {
			c.buf.Set(c.pending)
			c.remaining = abs(c.halfSteps)
		}
		dir := 1
		if c.halfSteps < 0 {
			dir = -1
		}
		for c.remaining > 0 {
			if err := c.stepper.Advance(ctx, dir); err != nil {
				return fmt.Errorf("rotating from index %d (%d of %d half-steps left): %w",
					c.buf.Index(), c.remaining, abs(c.halfSteps), err)
			}
			c.remaining--
		}
		if c.buf.Next() {
			c.logRevolution()
		}
		c.state = AwaitMeasurement

	default:
		return fmt.Errorf("invalid controller state %v", c.state)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Cycle takes one sample: a measurement followed by a rotation.
func (c *Controller) Cycle(ctx context.Context) error {
	for {
		if err := c.Step(ctx); err != nil {
			return err
		}
		if c.state == AwaitMeasurement {
			return nil
		}
	}
}

// Run cycles until ctx is cancelled or a step fails.
func (c *Controller) Run(ctx context.Context) error {
	monitoring.Logf("Sweep %s starting: %d samples, %d half-steps per sample",
		c.runID, c.buf.Len(), c.halfSteps)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
}

func (c *Controller) logRevolution() {
	snap := c.buf.Snapshot()
	s := Summarize(snap.Samples)
	monitoring.Logf("Sweep %s revolution %d: %d samples, min %.0f mm, max %.0f mm, mean %.1f mm, stddev %.1f mm",
		c.runID, snap.Revolutions, s.Count, s.Min, s.Max, s.Mean, s.StdDev)
}
