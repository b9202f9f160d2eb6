package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ubxrx/internal/ubx"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func drain(p ubx.Port) []byte {
	var out []byte
	for {
		b, err := p.ReadByte()
		if err != nil {
			return out
		}
		out = append(out, b)
	}
}

func TestPort_UnpacedServesEverything(t *testing.T) {
	recs := []Record{
		{},
		{At: 0, Data: []byte{1, 2}},
		{At: time.Hour, Data: []byte{3}},
	}
	p := NewPort(recs)
	assert.Equal(t, []byte{1, 2, 3}, drain(p))
	assert.True(t, p.Exhausted())
	assert.Equal(t, uint64(3), p.Served())

	_, err := p.ReadByte()
	assert.ErrorIs(t, err, ubx.ErrWouldBlock)
}

func TestPort_PacedHonoursTimingAndStart(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	recs := []Record{
		{},
		{At: 0, Data: []byte{0xA1}},
		{At: 100 * time.Millisecond, Data: []byte{0xA2, 0xA3}},
		{At: 5 * time.Second}, // START of second segment
		{At: 5*time.Second + 50*time.Millisecond, Data: []byte{0xB1}},
	}
	p := NewPort(recs, WithSpeed(2), WithClock(clk.now))

	assert.Equal(t, []byte{0xA1}, drain(p))
	clk.advance(49 * time.Millisecond)
	assert.Empty(t, drain(p))
	clk.advance(time.Millisecond)
	assert.Equal(t, []byte{0xA2, 0xA3}, drain(p))

	// Second segment continues 50ms after the first one ended, at 2x.
	clk.advance(24 * time.Millisecond)
	assert.Empty(t, drain(p))
	clk.advance(time.Millisecond)
	assert.Equal(t, []byte{0xB1}, drain(p))
	assert.True(t, p.Exhausted())
}

func TestPort_Loop(t *testing.T) {
	p := NewPort([]Record{{Data: []byte{7, 8}}}, WithLoop(true))
	got := make([]byte, 0, 5)
	for i := 0; i < 5; i++ {
		b, err := p.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	assert.Equal(t, []byte{7, 8, 7, 8, 7}, got)
	assert.Equal(t, 2, p.Passes())
	assert.False(t, p.Exhausted())

	empty := NewPort(nil, WithLoop(true))
	_, err := empty.ReadByte()
	assert.True(t, errors.Is(err, ubx.ErrWouldBlock))
}

func TestPort_FeedsDriverAcrossSplitChunks(t *testing.T) {
	frame := ubx.Encode(ubx.NavDilutionOfPrecision{ITOW: 1000, GDOP: 150, PDOP: 120, HDOP: 90})
	recs := []Record{{}}
	for i := 0; i < len(frame); i += 5 {
		end := min(i+5, len(frame))
		recs = append(recs, Record{At: time.Duration(i), Data: frame[i:end]})
	}
	d := ubx.NewSerialDriver(NewPort(recs))
	n, err := d.HandleAllMessages()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	dop, ok := d.TakeLastNavDOP()
	require.True(t, ok)
	assert.Equal(t, uint16(90), dop.HDOP)
}
