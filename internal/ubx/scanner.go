package ubx

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type scanState int

const (
	scanSync0 scanState = iota
	scanSync1
	readHeader
	dispatch
)

// ResyncPolicy decides what happens to a frame that has not fully arrived.
type ResyncPolicy int

const (
	// DiscardPartial consumes the bytes of an incomplete frame and restarts
	// the sync search on the next call.
	DiscardPartial ResyncPolicy = iota
	// HoldPartial leaves an incomplete frame buffered (from its sync bytes
	// on) until it is complete. Frames that can never fit in the ring fall
	// back to DiscardPartial.
	HoldPartial
)

func (p ResyncPolicy) String() string {
	if p == HoldPartial {
		return "hold"
	}
	return "discard"
}

// ParseResyncPolicy accepts the names String returns.
func ParseResyncPolicy(name string) (ResyncPolicy, error) {
	switch name {
	case "", "discard":
		return DiscardPartial, nil
	case "hold":
		return HoldPartial, nil
	}
	return DiscardPartial, fmt.Errorf("ubx: unknown resync policy %q", name)
}

// route is one dispatch table entry.
type route struct {
	length int
	store  func(d *Driver, payload []byte) error
}

var routes = map[MessageID]route{
	NavPVTID: {length: NavPVTLen, store: func(d *Driver, p []byte) error {
		m, err := DecodeNavPVT(p)
		if err != nil {
			return err
		}
		d.navPVT.put(m)
		d.stats.NavPVT++
		return nil
	}},
	NavDOPID: {length: NavDOPLen, store: func(d *Driver, p []byte) error {
		m, err := DecodeNavDOP(p)
		if err != nil {
			return err
		}
		d.navDOP.put(m)
		d.stats.NavDOP++
		return nil
	}},
	MonHWID: {length: MonHWLen, store: func(d *Driver, p []byte) error {
		m, err := DecodeMonHW(p)
		if err != nil {
			return err
		}
		d.monHW.put(m)
		d.stats.MonHW++
		return nil
	}},
}

// maxKnownPayload sizes the driver's scratch body buffer.
const maxKnownPayload = NavPVTLen

// scanOne runs one scan attempt from the sync search to a terminal outcome.
// It returns 1 when a frame was consumed (decoded, bad checksum or
// unknown) and 0 when no complete frame could be extracted.
func (d *Driver) scanOne() (int, error) {
	state := scanSync0
	for {
		switch state {
		case scanSync0, scanSync1:
			if state == scanSync0 && d.policy == HoldPartial && d.holdIncomplete() {
				return 0, nil
			}
			b, err := d.di.Read()
			if errors.Is(err, ErrNoData) {
				return 0, nil
			}
			if err != nil {
				return 0, err
			}
			want := byte(Sync1)
			if state == scanSync1 {
				want = Sync2
			}
			switch {
			case b != want:
				// A stray Sync1 while expecting Sync2 is dropped too; the
				// search restarts with the next byte.
				state = scanSync0
			case state == scanSync0:
				state = scanSync1
			default:
				state = readHeader
			}

		case readHeader:
			n, err := d.di.ReadMany(d.header[:])
			if err != nil {
				return 0, err
			}
			if n < HeaderLen {
				d.stats.Truncated++
				return 0, nil
			}
			state = dispatch

		case dispatch:
			return d.dispatch()
		}
	}
}

func (d *Driver) dispatch() (int, error) {
	class, id := d.header[0], d.header[1]
	length := int(d.header[2]) | int(d.header[3])<<8
	msgID := NewMessageID(class, id)

	r, ok := routes[msgID]
	if !ok || r.length != length {
		n, err := d.di.Discard(length + ChecksumLen)
		if err != nil {
			return 0, err
		}
		if n < length+ChecksumLen {
			d.stats.Truncated++
			return 0, nil
		}
		d.stats.Frames++
		d.stats.Unknown++
		if ok {
			d.log.Debug("ubx length mismatch, frame skipped",
				zap.Stringer("msg", msgID), zap.Int("len", length), zap.Int("want", r.length))
		}
		return 1, nil
	}

	body := d.body[:length+ChecksumLen]
	n, err := d.di.ReadMany(body)
	if err != nil {
		return 0, err
	}
	if n < len(body) {
		d.stats.Truncated++
		return 0, nil
	}
	d.stats.Frames++

	payload := body[:length]
	var ck checksum
	ck.add(d.header[:])
	ck.add(payload)
	if !ck.matches(body[length], body[length+1]) {
		d.stats.ChecksumErrors++
		d.logChecksum(msgID, ck, body[length], body[length+1])
		return 1, nil
	}

	if err := r.store(d, payload); err != nil {
		// The frame is consumed either way; treat it like an unknown one.
		d.stats.Unknown++
		d.log.Debug("ubx payload rejected", zap.Stringer("msg", msgID), zap.Error(err))
	}
	return 1, nil
}

// holdIncomplete reports whether the buffer starts with the sync pair of a
// frame that has not fully arrived yet and still could. Bytes ahead of a
// sync pair are left for the normal scan to drop.
func (d *Driver) holdIncomplete() bool {
	b0, err := d.di.Peek(0)
	if err != nil || b0 != Sync1 {
		return false
	}
	b1, err := d.di.Peek(1)
	if err != nil {
		// Lone Sync1 at the tail: its partner may be on the wire.
		return true
	}
	if b1 != Sync2 {
		return false
	}
	buffered := d.di.Buffered()
	if buffered < 2+HeaderLen {
		return true
	}
	lo, _ := d.di.Peek(4)
	hi, _ := d.di.Peek(5)
	total := MinFrameLen + (int(lo) | int(hi)<<8)
	if total > d.capacity {
		return false
	}
	return buffered < total
}

func (d *Driver) logChecksum(msgID MessageID, got checksum, ckA, ckB byte) {
	if !d.log.Core().Enabled(zap.WarnLevel) {
		return
	}
	fields := []zap.Field{
		zap.Stringer("msg", msgID),
		zap.Uint8("ck_a", got.a), zap.Uint8("ck_b", got.b),
		zap.Uint8("want_a", ckA), zap.Uint8("want_b", ckB),
		zap.Uint64("total", d.stats.ChecksumErrors),
	}
	if d.warnLimit.Allow() {
		d.log.Warn("ubx checksum mismatch, frame dropped", fields...)
		return
	}
	d.log.Debug("ubx checksum mismatch, frame dropped", fields...)
}
