package capture

import (
	"time"

	"ubxrx/internal/ubx"
)

type chunk struct {
	due  time.Duration
	data []byte
}

// PortOption configures a replay Port.
type PortOption func(*Port)

// WithSpeed paces replay: 1.0 is real time, 2.0 twice as fast. Zero or
// less serves every byte immediately.
func WithSpeed(mult float64) PortOption {
	return func(p *Port) { p.speed = mult }
}

// WithLoop restarts from the first record after the last one.
func WithLoop(loop bool) PortOption {
	return func(p *Port) { p.loop = loop }
}

// WithClock replaces time.Now for pacing.
func WithClock(now func() time.Time) PortOption {
	return func(p *Port) {
		if now != nil {
			p.now = now
		}
	}
}

// Port serves recorded bytes as a ubx.Port. Bytes whose record time has
// not come yet read as ubx.ErrWouldBlock, so the driver sees the same
// bursts a live receiver produced. START markers restart the timeline
// where the previous segment ended.
type Port struct {
	chunks []chunk
	idx    int
	off    int

	speed float64
	loop  bool
	now   func() time.Time

	started bool
	t0      time.Time
	served  uint64
	passes  int
}

func NewPort(recs []Record, opts ...PortOption) *Port {
	p := &Port{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	var base, startAt, last time.Duration
	for _, r := range recs {
		if r.IsStart() {
			base, startAt = last, r.At
			continue
		}
		due := base + r.At - startAt
		if due < last {
			due = last
		}
		p.chunks = append(p.chunks, chunk{due: due, data: r.Data})
		last = due
	}
	return p
}

// ReadByte implements ubx.Port.
func (p *Port) ReadByte() (byte, error) {
	if !p.started {
		p.started = true
		p.t0 = p.now()
	}
	if p.idx >= len(p.chunks) {
		if !p.loop || len(p.chunks) == 0 {
			return 0, ubx.ErrWouldBlock
		}
		p.idx, p.off = 0, 0
		p.passes++
		p.t0 = p.now()
	}
	c := p.chunks[p.idx]
	if p.speed > 0 && p.off == 0 {
		wait := time.Duration(float64(c.due) / p.speed)
		if p.now().Sub(p.t0) < wait {
			return 0, ubx.ErrWouldBlock
		}
	}
	b := c.data[p.off]
	p.off++
	if p.off == len(c.data) {
		p.idx++
		p.off = 0
	}
	p.served++
	return b, nil
}

// Exhausted reports whether a non-looping port has served everything.
func (p *Port) Exhausted() bool {
	return !p.loop && p.idx >= len(p.chunks)
}

// Served returns how many bytes have been handed out.
func (p *Port) Served() uint64 { return p.served }

// Passes returns how many times a looping port wrapped around.
func (p *Port) Passes() int { return p.passes }
