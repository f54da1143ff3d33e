// Package cycle computes voting-cycle boundaries and freeze windows.
package cycle

import (
	"fmt"
	"time"
)

// Clock is a pure function of wall-clock time over two configured constants:
// the cycle length and the freeze window before each cycle boundary.
type Clock struct {
	cycleLength  time.Duration
	freezeWindow time.Duration
}

// New creates a cycle clock. The freeze window must be shorter than the
// cycle length and both must be whole positive seconds.
func New(cycleLength, freezeWindow time.Duration) (*Clock, error) {
	if cycleLength <= 0 || cycleLength%time.Second != 0 {
		return nil, fmt.Errorf("invalid cycle length %s", cycleLength)
	}
	if freezeWindow <= 0 || freezeWindow >= cycleLength {
		return nil, fmt.Errorf("invalid freeze window %s for cycle length %s", freezeWindow, cycleLength)
	}
	return &Clock{cycleLength: cycleLength, freezeWindow: freezeWindow}, nil
}

// CycleLength returns the configured cycle length
func (c *Clock) CycleLength() time.Duration {
	return c.cycleLength
}

// FreezeWindow returns the configured freeze window length
func (c *Clock) FreezeWindow() time.Duration {
	return c.freezeWindow
}

// CycleEnd returns the end of the cycle containing now, i.e. the smallest
// multiple of the cycle length that is >= now (unix time).
func (c *Clock) CycleEnd(now time.Time) time.Time {
	length := int64(c.cycleLength / time.Second)
	sec := now.Unix()
	end := time.Unix(((sec+length-1)/length)*length, 0).UTC()
	if end.Before(now) {
		// sub-second part of now pushed us past the computed boundary
		end = end.Add(c.cycleLength)
	}
	return end
}

// InFreezeWindow reports whether now falls inside the freeze window before
// the next cycle boundary. The boundary instant itself is frozen.
func (c *Clock) InFreezeWindow(now time.Time) bool {
	return c.CycleEnd(now).Sub(now) <= c.freezeWindow
}
