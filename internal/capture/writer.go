package capture

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("capture: writer is closed")

// Writer appends received bytes to a capture log. It is safe for use by
// one producer plus a concurrent Flush/Close.
type Writer struct {
	mu      sync.Mutex
	c       io.Closer
	w       *bufio.Writer
	start   time.Time
	session uuid.UUID
	closed  bool
}

// Create truncates path and starts a new capture session.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, time.Now())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter writes the START marker and a fresh session header to w.
// Record times are measured from start.
func NewWriter(w io.Writer, start time.Time) (*Writer, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	id := uuid.New()
	if _, err := fmt.Fprintf(bw, "START\n%s%s\n", sessionPrefix, id); err != nil {
		return nil, err
	}
	cw := &Writer{w: bw, start: start, session: id}
	if c, ok := w.(io.Closer); ok {
		cw.c = c
	}
	return cw, nil
}

func (cw *Writer) Session() uuid.UUID { return cw.session }

// WriteChunk records data as received at now. Empty chunks are skipped.
func (cw *Writer) WriteChunk(now time.Time, data []byte) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.closed {
		return ErrClosed
	}
	if len(data) == 0 {
		return nil
	}
	d := now.Sub(cw.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(cw.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(data))
	return err
}

func (cw *Writer) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.closed {
		return nil
	}
	return cw.w.Flush()
}

func (cw *Writer) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.closed {
		return nil
	}
	cw.closed = true
	err := cw.w.Flush()
	if cw.c != nil {
		if cerr := cw.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
