package capture

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ubxrx/internal/ubx"
)

func TestTee_RecordsBursts(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out, time.Unix(0, 0))
	require.NoError(t, err)

	clk := &fakeClock{t: time.Unix(0, 0)}
	src := NewPort([]Record{
		{At: 0, Data: []byte{0xB5, 0x62}},
		{At: time.Second, Data: []byte{0x01}},
	}, WithSpeed(1), WithClock(clk.now))
	tee := NewTee(src, w)
	tee.now = clk.now

	assert.Equal(t, []byte{0xB5, 0x62}, drain(tee))
	clk.advance(time.Second)
	assert.Equal(t, []byte{0x01}, drain(tee))
	require.NoError(t, tee.Flush())
	assert.Equal(t, uint64(2), tee.Chunks())

	recs, err := NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []byte{0xB5, 0x62}, recs[1].Data)
	assert.Equal(t, time.Duration(0), recs[1].At)
	assert.Equal(t, time.Second, recs[2].At)
}

func TestTee_SplitsLongBursts(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out, time.Now())
	require.NoError(t, err)
	src := NewPort([]Record{{Data: make([]byte, teeChunk+10)}})
	tee := NewTee(src, w)

	assert.Len(t, drain(tee), teeChunk+10)
	assert.Equal(t, uint64(2), tee.Chunks())
}

func TestTee_ClosedWriter(t *testing.T) {
	var out bytes.Buffer
	w, err := NewWriter(&out, time.Now())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tee := NewTee(NewPort([]Record{{Data: []byte{1, 2, 3}}}), w)
	assert.Equal(t, []byte{1, 2, 3}, drain(tee))
	assert.ErrorIs(t, tee.Err(), ErrClosed)
	assert.ErrorIs(t, tee.Flush(), ErrClosed)

	var _ ubx.Port = tee
}
