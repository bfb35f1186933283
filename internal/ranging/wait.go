package ranging

import (
	"fmt"
	"math"
)

// WaitValueMask polls register index until (value & mask) == expected, with
// pollDelayMs between reads. It succeeds as soon as a match is read, even if
// the timeout has also elapsed by then, and returns ErrTimeout once the
// elapsed tick count reaches timeoutMs without a match. A read failure ends
// the wait with that error.
func (p *Platform) WaitValueMask(index uint16, expected, mask uint8, timeoutMs, pollDelayMs uint32) error {
	start := p.TickCount()
	p.lastPoll = 0

	// WaitMs takes an int32
	delay := int32(math.MaxInt32)
	if pollDelayMs < math.MaxInt32 {
		delay = int32(pollDelayMs)
	}

	for p.lastPoll < timeoutMs {
		v, err := p.ReadReg8(index)
		if err != nil {
			return err
		}
		if v&mask == expected {
			return nil
		}
		if delay > 0 {
			if err := p.WaitMs(delay); err != nil {
				return err
			}
		}
		p.lastPoll = p.TickCount() - start
	}

	return fmt.Errorf("%w: register 0x%04X & 0x%02X != 0x%02X after %d ms",
		ErrTimeout, index, mask, expected, p.lastPoll)
}

// LastPollDuration returns how long the most recent WaitValueMask polled, in
// milliseconds.
func (p *Platform) LastPollDuration() uint32 {
	return p.lastPoll
}
