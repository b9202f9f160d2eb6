package ubx

import (
	"errors"
	"io"
)

// maxConsecutiveTransient bounds how many back-to-back transient faults a
// single Fill absorbs before reporting a TransportError.
const maxConsecutiveTransient = 100

// Port is the physical byte source.
//
// ReadByte must not block. It returns ErrWouldBlock when nothing is pending,
// a transient error (see IsTransient) for recoverable receive faults, and any
// other error for a fatal fault.
type Port interface {
	io.ByteReader
}

// Interface is the buffered transport the Driver consumes.
type Interface interface {
	// Fill pulls pending bytes from the port into free buffer space and
	// returns the number of bytes now buffered.
	Fill() (int, error)
	// Read removes one buffered byte, or returns ErrNoData.
	Read() (byte, error)
	// ReadMany is all-or-nothing: it fills buf completely, or consumes
	// nothing and returns a short count.
	ReadMany(buf []byte) (int, error)
	// Discard drops exactly n buffered bytes, all-or-nothing like ReadMany.
	Discard(n int) (int, error)
	// Buffered returns the number of bytes available to read.
	Buffered() int
	// Peek returns the byte at offset i without consuming it.
	Peek(i int) (byte, error)
}

// Capacity is the number of bytes a SerialInterface can buffer.
const Capacity = ringSize

// SerialInterface buffers a non-blocking Port in a fixed ring.
type SerialInterface struct {
	port Port
	ring ringBuffer

	transientErrors uint64
}

func NewSerialInterface(port Port) *SerialInterface {
	return &SerialInterface{port: port}
}

// Fill reads until the port has nothing pending or the ring is full.
//
// Transient faults are counted and skipped; a run of
// maxConsecutiveTransient of them ends the fill with a TransportError.
// Any other port error ends the fill immediately. In both cases the bytes
// already buffered stay available.
func (s *SerialInterface) Fill() (int, error) {
	budget := s.ring.free()
	consecutive := 0
	for budget > 0 {
		b, err := s.port.ReadByte()
		if err == nil {
			consecutive = 0
			s.ring.push(b)
			budget--
			continue
		}
		if errors.Is(err, ErrWouldBlock) {
			break
		}
		if IsTransient(err) {
			s.transientErrors++
			consecutive++
			if consecutive >= maxConsecutiveTransient {
				return s.ring.len(), &TransportError{Op: "fill", Retries: consecutive, Err: err}
			}
			continue
		}
		return s.ring.len(), &TransportError{Op: "fill", Err: err}
	}
	return s.ring.len(), nil
}

func (s *SerialInterface) Read() (byte, error) {
	b, ok := s.ring.pop()
	if !ok {
		return 0, ErrNoData
	}
	return b, nil
}

func (s *SerialInterface) ReadMany(buf []byte) (int, error) {
	return s.ring.readMany(buf), nil
}

func (s *SerialInterface) Discard(n int) (int, error) {
	return s.ring.discard(n), nil
}

func (s *SerialInterface) Buffered() int { return s.ring.len() }

func (s *SerialInterface) Peek(i int) (byte, error) {
	b, ok := s.ring.peek(i)
	if !ok {
		return 0, ErrNoData
	}
	return b, nil
}

// TransientErrors returns how many transient port faults Fill has absorbed.
func (s *SerialInterface) TransientErrors() uint64 { return s.transientErrors }

// Reset drops everything buffered.
func (s *SerialInterface) Reset() { s.ring.reset() }
