package gpio

import (
	"fmt"
	"time"

	"ubxrx/internal/ubx"
)

// DefaultHold is how long RESET_N is held low. The module datasheets ask
// for at least 10 ms.
const DefaultHold = 50 * time.Millisecond

// Line is one requested output line.
type Line interface {
	SetValue(v int) error
	Close() error
}

// Sleeper is the same clock the driver uses for setup.
type Sleeper = ubx.Sleeper

// Reset drives the receiver's active-low RESET_N pin.
type Reset struct {
	pin  int
	line Line
	hold time.Duration
}

// OpenReset requests BCM pin as an output idling high (receiver running).
func OpenReset(pin int, hold time.Duration) (*Reset, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("gpio: invalid reset pin %d", pin)
	}
	line, err := openLineFn(pin)
	if err != nil {
		return nil, err
	}
	return newReset(pin, line, hold), nil
}

func newReset(pin int, line Line, hold time.Duration) *Reset {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Reset{pin: pin, line: line, hold: hold}
}

func (r *Reset) Pin() int { return r.pin }

// Pulse holds RESET_N low for the hold time and releases it. The line is
// released even if driving it low failed half way.
func (r *Reset) Pulse(s Sleeper) error {
	if r == nil || r.line == nil {
		return fmt.Errorf("gpio: reset line not initialized")
	}
	if s == nil {
		return fmt.Errorf("gpio: sleeper is nil")
	}
	if err := r.line.SetValue(0); err != nil {
		_ = r.line.SetValue(1)
		return fmt.Errorf("gpio: assert reset on pin %d: %w", r.pin, err)
	}
	s.Sleep(r.hold)
	if err := r.line.SetValue(1); err != nil {
		return fmt.Errorf("gpio: release reset on pin %d: %w", r.pin, err)
	}
	return nil
}

// Close leaves the receiver running and frees the line.
func (r *Reset) Close() error {
	if r == nil || r.line == nil {
		return nil
	}
	_ = r.line.SetValue(1)
	err := r.line.Close()
	r.line = nil
	return err
}
