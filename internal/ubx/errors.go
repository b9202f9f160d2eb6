package ubx

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means the ring buffer is empty. It is never a failure; the
	// caller should simply try again on its next poll.
	ErrNoData = errors.New("ubx: no data buffered")

	// ErrWouldBlock is returned by a Port when no byte is pending right now.
	ErrWouldBlock = errors.New("ubx: no byte pending")

	// ErrOverrun and ErrFraming are transient receive faults. A Port may
	// return them (or wrap them) and Fill will tolerate a bounded run of them.
	ErrOverrun = errors.New("ubx: receiver overrun")
	ErrFraming = errors.New("ubx: framing error")

	// ErrUnresponsive is returned by Driver.Probe when the device produced
	// nothing within the allowed attempts. The framing core never raises it.
	ErrUnresponsive = errors.New("ubx: device unresponsive")
)

// TransportError wraps a fault from the underlying byte source.
type TransportError struct {
	// Op is the interface operation that failed ("fill", "read").
	Op string
	// Retries is the number of consecutive transient faults absorbed before
	// giving up. Zero for a fatal fault.
	Retries int
	Err     error
}

func (e *TransportError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("ubx: %s: transport error after %d retries: %v", e.Op, e.Retries, e.Err)
	}
	return fmt.Sprintf("ubx: %s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a receive fault worth retrying.
//
// Overrun and framing errors are transient, as is any error exposing
// Temporary() bool returning true (the convention used by syscall.Errno).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOverrun) || errors.Is(err, ErrFraming) {
		return true
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}
