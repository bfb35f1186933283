package stepper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tofsweep/internal/gpio"
	"github.com/banshee-data/tofsweep/internal/timeutil"
)

func newTestDriver(t *testing.T, delay time.Duration) (*Driver, *gpio.RecordingPins, *timeutil.MockClock) {
	t.Helper()
	pins := &gpio.RecordingPins{}
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewDriver(pins, Config{Pins: DefaultPins, StepDelay: delay, Clock: clock})
	return d, pins, clock
}

// rowsFromWrites reassembles the coil rows from groups of four pin writes.
func rowsFromWrites(t *testing.T, writes []gpio.PinWrite) [][Coils]bool {
	t.Helper()
	require.Zero(t, len(writes)%Coils, "writes must come in groups of %d", Coils)
	rows := make([][Coils]bool, 0, len(writes)/Coils)
	for i := 0; i < len(writes); i += Coils {
		var row [Coils]bool
		for c := 0; c < Coils; c++ {
			require.Equal(t, DefaultPins[c], writes[i+c].Pin, "coil order")
			row[c] = writes[i+c].Value
		}
		rows = append(rows, row)
	}
	return rows
}

func TestHalfStepSequence_Invariants(t *testing.T) {
	for i, row := range HalfStepSequence {
		on := 0
		for _, v := range row {
			if v {
				on++
			}
		}
		assert.True(t, on == 1 || on == 2, "row %d has %d coils on", i, on)
		if on == 2 {
			adjacent := false
			for c := 0; c < Coils; c++ {
				if row[c] && row[(c+1)%Coils] {
					adjacent = true
				}
			}
			assert.True(t, adjacent, "row %d energises non-adjacent coils", i)
		}

		next := HalfStepSequence[(i+1)%Rows]
		diff := 0
		for c := 0; c < Coils; c++ {
			if row[c] != next[c] {
				diff++
			}
		}
		assert.Equal(t, 1, diff, "rows %d and %d differ by %d coils", i, (i+1)%Rows, diff)
	}
}

func TestAdvance_WriteCount(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 9, 20, 160} {
		d, pins, _ := newTestDriver(t, 0)
		require.NoError(t, d.Advance(context.Background(), n))
		assert.Len(t, pins.Writes, Coils*n, "half-steps=%d", n)
		assert.Equal(t, int64(n), d.Position())
	}
}

func TestAdvance_CyclesTableInOrder(t *testing.T) {
	d, pins, _ := newTestDriver(t, 0)

	// Split across calls to prove the row index carries over.
	require.NoError(t, d.Advance(context.Background(), 5))
	require.NoError(t, d.Advance(context.Background(), 14))

	got := rowsFromWrites(t, pins.Writes)
	want := make([][Coils]bool, 0, 19)
	for i := 0; i < 19; i++ {
		want = append(want, HalfStepSequence[i%Rows])
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("row sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 18%Rows, d.Row())
}

func TestAdvance_Reverse(t *testing.T) {
	d, pins, _ := newTestDriver(t, 0)
	require.NoError(t, d.Advance(context.Background(), 3)) // rows 0,1,2
	pins.Writes = nil

	require.NoError(t, d.Advance(context.Background(), -4)) // rows 1,0,7,6
	got := rowsFromWrites(t, pins.Writes)
	want := [][Coils]bool{HalfStepSequence[1], HalfStepSequence[0], HalfStepSequence[7], HalfStepSequence[6]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reverse sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(-1), d.Position())
}

func TestAdvance_StepDelay(t *testing.T) {
	d, _, clock := newTestDriver(t, DefaultStepDelay)
	require.NoError(t, d.Advance(context.Background(), 3))

	assert.Equal(t, []time.Duration{DefaultStepDelay, DefaultStepDelay, DefaultStepDelay}, clock.Sleeps())
}

func TestAdvance_PinFailureStops(t *testing.T) {
	d, pins, _ := newTestDriver(t, 0)
	pins.FailAfter = 6 // second row fails on its third coil

	err := d.Advance(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gpio.ErrShortWrite))
	assert.Len(t, pins.Writes, 6)
	assert.Equal(t, int64(1), d.Position(), "only the completed row counts")
}

func TestAdvance_Cancelled(t *testing.T) {
	d, pins, _ := newTestDriver(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Advance(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pins.Writes)
}

func TestRelease(t *testing.T) {
	d, pins, _ := newTestDriver(t, 0)
	require.NoError(t, d.Advance(context.Background(), 2))
	require.NoError(t, d.Release())

	for _, pin := range DefaultPins {
		assert.False(t, pins.Levels()[pin], "pin %d still energised", pin)
	}
	assert.Equal(t, 1, d.Row(), "release keeps the sequence position")
}
