package sim

import (
	"math/rand/v2"
	"time"

	"ubxrx/internal/ubx"
)

// maxBacklog caps how many missed epochs are emitted at once after a
// stall; older epochs are skipped like a real receiver's dropped output.
const maxBacklog = 2

// Faults injects line noise into the simulated byte stream.
type Faults struct {
	// GarbageProb is the chance per frame of 1..8 random bytes ahead of it.
	GarbageProb float64
	// CorruptProb is the chance per frame of one flipped byte inside it.
	CorruptProb float64
	// FalseSync ends every garbage burst with a stray sync byte, so the
	// frame that follows is lost to the resync.
	FalseSync bool
	// Seed makes the noise reproducible.
	Seed uint64
}

// PortStats counts what the simulated port produced.
type PortStats struct {
	Epochs    uint64
	Skipped   uint64
	Garbage   uint64
	Corrupted uint64
}

// Port serves a Receiver's output as a ubx.Port, one epoch per Interval.
type Port struct {
	rx       Receiver
	interval time.Duration
	faults   Faults
	now      func() time.Time
	rng      *rand.Rand

	start   time.Time
	started bool
	next    int

	pending []byte
	off     int
	scratch []byte

	stats PortStats
}

func NewPort(rx Receiver, interval time.Duration, faults Faults, now func() time.Time) *Port {
	if interval <= 0 {
		interval = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Port{
		rx:       rx,
		interval: interval,
		faults:   faults,
		now:      now,
		rng:      rand.New(rand.NewPCG(faults.Seed, faults.Seed^0x9E3779B97F4A7C15)),
	}
}

// ReadByte implements ubx.Port.
func (p *Port) ReadByte() (byte, error) {
	if p.off >= len(p.pending) && !p.produce() {
		return 0, ubx.ErrWouldBlock
	}
	b := p.pending[p.off]
	p.off++
	return b, nil
}

// produce queues every epoch that is due. The first epoch is due at once.
func (p *Port) produce() bool {
	now := p.now()
	if !p.started {
		p.started = true
		p.start = now
	}
	due := int(now.Sub(p.start)/p.interval) + 1
	if due <= p.next {
		return false
	}
	if due-p.next > maxBacklog {
		skip := due - maxBacklog - p.next
		p.stats.Skipped += uint64(skip)
		p.next += skip
	}

	p.pending = p.pending[:0]
	p.off = 0
	for ; p.next < due; p.next++ {
		elapsed := time.Duration(p.next) * p.interval
		t := p.start.Add(elapsed)
		p.scratch = p.rx.Epoch(p.scratch[:0], p.next, t, elapsed)
		p.pending = p.appendWithFaults(p.pending, p.scratch)
		p.stats.Epochs++
	}
	return len(p.pending) > 0
}

// appendWithFaults copies the frames in epoch to dst, adding garbage and
// corruption per frame.
func (p *Port) appendWithFaults(dst, epoch []byte) []byte {
	for len(epoch) >= ubx.MinFrameLen {
		n := ubx.MinFrameLen + (int(epoch[4]) | int(epoch[5])<<8)
		frame := epoch[:n]
		epoch = epoch[n:]

		if p.faults.GarbageProb > 0 && p.rng.Float64() < p.faults.GarbageProb {
			k := 1 + p.rng.IntN(8)
			for i := 0; i < k; i++ {
				b := byte(p.rng.UintN(256))
				if b == ubx.Sync1 && !p.faults.FalseSync {
					b = 0
				}
				dst = append(dst, b)
			}
			if p.faults.FalseSync {
				dst[len(dst)-1] = ubx.Sync1
			}
			p.stats.Garbage++
		}
		start := len(dst)
		dst = append(dst, frame...)
		if p.faults.CorruptProb > 0 && p.rng.Float64() < p.faults.CorruptProb {
			// Leave sync and header intact so the frame is consumed as a
			// checksum failure.
			i := 2 + ubx.HeaderLen + p.rng.IntN(n-2-ubx.HeaderLen)
			dst[start+i] ^= 0x5A
			p.stats.Corrupted++
		}
	}
	return dst
}

func (p *Port) Stats() PortStats { return p.stats }
