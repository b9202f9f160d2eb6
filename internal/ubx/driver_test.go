package ubx

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func corrupt(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[HeaderLen+2+4] ^= 0xFF
	return out
}

func newTestDriver(opts ...Option) (*Driver, *scriptPort) {
	p := &scriptPort{}
	return NewSerialDriver(p, opts...), p
}

func TestDriver_RoundTripEachType(t *testing.T) {
	d, p := newTestDriver()

	p.feed(Encode(sampleNavPVT())...)
	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	pvt, ok := d.TakeLastNavPVT()
	require.True(t, ok)
	assert.Equal(t, sampleNavPVT(), pvt)

	p.feed(Encode(sampleNavDOP())...)
	n, err = d.HandleOneMessage()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	dop, ok := d.TakeLastNavDOP()
	require.True(t, ok)
	assert.Equal(t, sampleNavDOP(), dop)

	p.feed(Encode(sampleMonHW())...)
	n, err = d.HandleOneMessage()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	hw, ok := d.TakeLastMonHW()
	require.True(t, ok)
	assert.Equal(t, sampleMonHW(), hw)

	st := d.Stats()
	assert.Equal(t, uint64(3), st.Frames)
	assert.Equal(t, uint64(3), st.Decoded())
}

func TestDriver_TakeIsOnce(t *testing.T) {
	d, p := newTestDriver()
	p.feed(Encode(sampleNavPVT())...)
	_, err := d.HandleAllMessages()
	require.NoError(t, err)

	_, ok := d.TakeLastNavPVT()
	require.True(t, ok)
	_, ok = d.TakeLastNavPVT()
	assert.False(t, ok)
	_, ok = d.TakeLastNavDOP()
	assert.False(t, ok)
	_, ok = d.TakeLastMonHW()
	assert.False(t, ok)
}

func TestDriver_ChecksumMismatchConsumesFrame(t *testing.T) {
	d, p := newTestDriver()
	p.feed(corrupt(Encode(sampleNavPVT()))...)

	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := d.TakeLastNavPVT()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), d.Stats().ChecksumErrors)
	assert.Zero(t, d.Interface().Buffered())
}

func TestDriver_UnknownFrameThenNavDOP(t *testing.T) {
	cases := []struct {
		name    string
		dop     []byte
		wantDOP bool
	}{
		{"valid", Encode(sampleNavDOP()), true},
		{"bad checksum", corrupt(Encode(sampleNavDOP())), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, p := newTestDriver()
			p.feed(EncodeFrame(0x99, 0x99, []byte{1, 2, 3, 4})...)
			p.feed(tc.dop...)

			n, err := d.HandleAllMessages()
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			_, ok := d.TakeLastNavDOP()
			assert.Equal(t, tc.wantDOP, ok)
			assert.Equal(t, uint64(1), d.Stats().Unknown)
		})
	}
}

func TestDriver_KnownIDWrongLengthIsSkipped(t *testing.T) {
	d, p := newTestDriver()
	p.feed(EncodeFrame(ClassNAV, 0x07, make([]byte, 10))...)
	p.feed(Encode(sampleNavDOP())...)

	n, err := d.HandleAllMessages()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok := d.TakeLastNavPVT()
	assert.False(t, ok)
	_, ok = d.TakeLastNavDOP()
	assert.True(t, ok)
}

func TestDriver_ShortBufferIsLeftInPlace(t *testing.T) {
	d, p := newTestDriver()
	frame := Encode(sampleNavPVT())
	p.feed(frame[:MinFrameLen-1]...)

	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, MinFrameLen-1, d.Interface().Buffered())

	p.feed(frame[MinFrameLen-1:]...)
	n, err = d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := d.TakeLastNavPVT()
	assert.True(t, ok)
}

func TestDriver_SyncPlusOneHeaderByte(t *testing.T) {
	d, p := newTestDriver()
	frame := Encode(sampleNavDOP())
	p.feed(frame[:3]...)

	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 3, d.Interface().Buffered())
	assert.Zero(t, d.Stats().Truncated)

	p.feed(frame[3:]...)
	n, err = d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	dop, ok := d.TakeLastNavDOP()
	require.True(t, ok)
	assert.Equal(t, sampleNavDOP(), dop)
}

func TestRoutes_RejectWrongPayload(t *testing.T) {
	for id, r := range routes {
		t.Run(id.String(), func(t *testing.T) {
			d, _ := newTestDriver()
			err := r.store(d, make([]byte, r.length-1))
			assert.ErrorIs(t, err, ErrPayloadLength)
			assert.Zero(t, d.Stats().Decoded())
			_, ok := d.TakeLastNavPVT()
			assert.False(t, ok)
			_, ok = d.TakeLastNavDOP()
			assert.False(t, ok)
			_, ok = d.TakeLastMonHW()
			assert.False(t, ok)
		})
	}
}

func TestStats_Add(t *testing.T) {
	a := Stats{Frames: 3, NavDOP: 2, ChecksumErrors: 1, TransportErrors: 1}
	b := Stats{Frames: 4, NavPVT: 1, Unknown: 2, Truncated: 1}
	assert.Equal(t, Stats{Frames: 7, NavPVT: 1, NavDOP: 2, ChecksumErrors: 1, Unknown: 2, Truncated: 1, TransportErrors: 1}, a.Add(b))
}

func TestDriver_TruncatedHeaderLosesFrame(t *testing.T) {
	d, p := newTestDriver()
	frame := Encode(sampleNavPVT())
	// Garbage brings the buffer past the minimum frame size while only
	// one header byte has arrived.
	p.feed(0x00, 0x11, 0x22, 0x33, 0x44)
	p.feed(frame[:3]...)

	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, uint64(1), d.Stats().Truncated)

	p.feed(frame[3:]...)
	n, err = d.HandleAllMessages()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok := d.TakeLastNavPVT()
	assert.False(t, ok)
}

func TestDriver_DrainMixedStream(t *testing.T) {
	d, p := newTestDriver()
	p.feed(Encode(sampleNavPVT())...)
	p.feed(Encode(sampleNavPVT2())...)
	p.feed(corrupt(Encode(sampleNavDOP()))...)
	p.feed(EncodeFrame(0x99, 0x99, []byte{1, 2, 3, 4})...)

	n, err := d.HandleAllMessages()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	pvt, ok := d.TakeLastNavPVT()
	require.True(t, ok)
	assert.Equal(t, sampleNavPVT2(), pvt)
	_, ok = d.TakeLastNavDOP()
	assert.False(t, ok)

	assert.Equal(t, Stats{
		Frames:         4,
		NavPVT:         2,
		ChecksumErrors: 1,
		Unknown:        1,
	}, d.Stats())
}

func TestDriver_RepeatedSyncByteDoesNotResync(t *testing.T) {
	d, p := newTestDriver()
	p.feed(Sync1)
	p.feed(Encode(sampleNavPVT())...)

	n, err := d.HandleAllMessages()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok := d.TakeLastNavPVT()
	assert.False(t, ok)
	assert.Zero(t, d.Interface().Buffered())
}

func TestDriver_LeadingGarbageIsSkipped(t *testing.T) {
	d, p := newTestDriver()
	p.feed(0x00, 0x62, 0xFF, 0x10)
	p.feed(Encode(sampleNavDOP())...)

	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := d.TakeLastNavDOP()
	assert.True(t, ok)
}

func TestDriver_ResyncPolicies(t *testing.T) {
	frame := Encode(sampleNavPVT())
	split := 50

	t.Run("discard", func(t *testing.T) {
		d, p := newTestDriver()
		p.feed(frame[:split]...)
		n, err := d.HandleOneMessage()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, split-2-HeaderLen, d.Interface().Buffered())

		p.feed(frame[split:]...)
		n, err = d.HandleAllMessages()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		_, ok := d.TakeLastNavPVT()
		assert.False(t, ok)
	})

	t.Run("hold", func(t *testing.T) {
		d, p := newTestDriver(WithResyncPolicy(HoldPartial))
		p.feed(0x00, 0x01)
		p.feed(frame[:split]...)
		n, err := d.HandleOneMessage()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, split, d.Interface().Buffered(), "garbage dropped, partial frame held")
		assert.Zero(t, d.Stats().Truncated)

		p.feed(frame[split:]...)
		n, err = d.HandleOneMessage()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		pvt, ok := d.TakeLastNavPVT()
		require.True(t, ok)
		assert.Equal(t, sampleNavPVT(), pvt)
	})

	t.Run("hold oversized falls back", func(t *testing.T) {
		d, p := newTestDriver(WithResyncPolicy(HoldPartial), WithCapacity(64))
		p.feed(Sync1, Sync2, 0x99, 0x99, 0x80, 0x00)
		p.feed(make([]byte, 10)...)
		n, err := d.HandleOneMessage()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 10, d.Interface().Buffered())
		assert.Equal(t, uint64(1), d.Stats().Truncated)
	})
}

func TestDriver_TransportErrorPropagates(t *testing.T) {
	d, p := newTestDriver()
	p.feed(Encode(sampleNavDOP())...)
	p.fail(io.ErrUnexpectedEOF, 1)

	n, err := d.HandleOneMessage()
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, uint64(1), d.Stats().TransportErrors)

	// The buffered frame survives the fault.
	n, err = d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDriver_SetupAndProbe(t *testing.T) {
	d, p := newTestDriver()
	s := &fakeSleeper{}

	require.NoError(t, d.Setup(s))
	assert.Equal(t, []time.Duration{setupSettle}, s.slept)
	assert.Error(t, d.Setup(nil))

	s.slept = nil
	err := d.Probe(s, 3, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrUnresponsive)
	assert.Len(t, s.slept, 2)

	p.feed(Encode(sampleMonHW())...)
	require.NoError(t, d.Probe(s, 3, 50*time.Millisecond))
	assert.Equal(t, MinFrameLen+MonHWLen, d.Interface().Buffered())

	n, err := d.HandleOneMessage()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDriver_ChecksumWarningsAreRateLimited(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d, p := newTestDriver(WithLogger(zap.New(core)), WithWarnRate(time.Hour, 1))
	p.feed(corrupt(Encode(sampleNavDOP()))...)
	p.feed(corrupt(Encode(sampleNavDOP()))...)

	n, err := d.HandleAllMessages()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries := logs.FilterMessage("ubx checksum mismatch, frame dropped").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestResyncPolicyString(t *testing.T) {
	assert.Equal(t, "discard", DiscardPartial.String())
	assert.Equal(t, "hold", HoldPartial.String())
}

func TestParseResyncPolicy(t *testing.T) {
	p, err := ParseResyncPolicy("hold")
	require.NoError(t, err)
	assert.Equal(t, HoldPartial, p)
	p, err = ParseResyncPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DiscardPartial, p)
	_, err = ParseResyncPolicy("keep")
	assert.EqualError(t, err, `ubx: unknown resync policy "keep"`)
}
