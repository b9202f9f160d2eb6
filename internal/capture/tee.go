package capture

import (
	"errors"
	"time"

	"ubxrx/internal/ubx"
)

const teeChunk = 256

// Tee records every byte a port delivers. Bytes are grouped into one
// capture line per burst: a line is written when the source reports
// ErrWouldBlock or the chunk fills up.
type Tee struct {
	src ubx.Port
	w   *Writer
	now func() time.Time

	buf    []byte
	at     time.Time
	werr   error
	writes uint64
}

func NewTee(src ubx.Port, w *Writer) *Tee {
	return &Tee{src: src, w: w, now: time.Now, buf: make([]byte, 0, teeChunk)}
}

// ReadByte implements ubx.Port. Capture write failures never disturb the
// byte stream; the first one is kept for Err.
func (t *Tee) ReadByte() (byte, error) {
	b, err := t.src.ReadByte()
	if err != nil {
		if errors.Is(err, ubx.ErrWouldBlock) {
			t.flush()
		}
		return b, err
	}
	if len(t.buf) == 0 {
		t.at = t.now()
	}
	t.buf = append(t.buf, b)
	if len(t.buf) == teeChunk {
		t.flush()
	}
	return b, nil
}

func (t *Tee) flush() {
	if len(t.buf) == 0 {
		return
	}
	if err := t.w.WriteChunk(t.at, t.buf); err != nil && t.werr == nil {
		t.werr = err
	} else if err == nil {
		t.writes++
	}
	t.buf = t.buf[:0]
}

// Flush writes any pending partial burst.
func (t *Tee) Flush() error {
	t.flush()
	if t.werr != nil {
		return t.werr
	}
	return t.w.Flush()
}

// Err returns the first capture write failure.
func (t *Tee) Err() error { return t.werr }

// Chunks returns how many capture lines were written.
func (t *Tee) Chunks() uint64 { return t.writes }
