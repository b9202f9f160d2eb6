package tty

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"ubxrx/internal/ubx"
)

// chunkSize bounds one read(2). Small enough that a 512 byte ring is
// never starved by a large stale chunk.
const chunkSize = 64

// ErrHangup reports that the device went away (USB unplug, modem hangup).
var ErrHangup = errors.New("hangup")

type rawReader interface {
	Read(p []byte) (int, error)
}

// hangupChecker is implemented by descriptors that can tell an idle line
// from a hung up one; both read 0 bytes with VMIN=0/VTIME=0.
type hangupChecker interface {
	HungUp() bool
}

// Port adapts a non-blocking descriptor to ubx.Port. It reads in small
// chunks and hands them out one byte at a time.
type Port struct {
	r      rawReader
	closer io.Closer
	path   string

	buf  [chunkSize]byte
	off  int
	fill int
}

func newPort(path string, r rawReader, c io.Closer) *Port {
	return &Port{r: r, closer: c, path: path}
}

// Path returns the device the port was opened on.
func (p *Port) Path() string { return p.path }

// ReadByte implements ubx.Port.
func (p *Port) ReadByte() (byte, error) {
	if p.off < p.fill {
		b := p.buf[p.off]
		p.off++
		return b, nil
	}
	n, err := p.r.Read(p.buf[:])
	if n > 0 {
		p.off, p.fill = 1, n
		return p.buf[0], nil
	}
	p.off, p.fill = 0, 0
	switch {
	case err == nil, errors.Is(err, io.EOF):
		if hc, ok := p.r.(hangupChecker); ok && hc.HungUp() {
			return 0, fmt.Errorf("tty: %s: %w", p.path, ErrHangup)
		}
		// VMIN=0/VTIME=0 returns 0 bytes with no error when idle.
		return 0, ubx.ErrWouldBlock
	case errors.Is(err, syscall.EAGAIN):
		return 0, ubx.ErrWouldBlock
	default:
		return 0, err
	}
}

func (p *Port) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
