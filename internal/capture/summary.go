package capture

import (
	"fmt"
	"io"
	"sort"
	"time"

	"ubxrx/internal/ubx"
)

// Summary describes a capture decoded offline through the ubx driver.
type Summary struct {
	Segments    int
	Chunks      int
	Bytes       int
	MaxDuration time.Duration
	Stats       ubx.Stats
	LastFix     *ubx.NavPositionVelocityTime
	LastHW      *ubx.HardwareStatus
}

// Summarize replays recs unpaced into a fresh driver and collects its
// statistics.
func Summarize(recs []Record, opts ...ubx.Option) (Summary, error) {
	s := Summary{}
	origin := time.Duration(0)
	for _, r := range recs {
		if r.IsStart() {
			s.Segments++
			origin = r.At
			continue
		}
		s.Chunks++
		s.Bytes += len(r.Data)
		if at := r.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}
	}
	if s.Segments == 0 && s.Chunks > 0 {
		s.Segments = 1
	}

	p := NewPort(recs)
	d := ubx.NewSerialDriver(p, opts...)
	for {
		n, err := d.HandleAllMessages()
		if err != nil {
			return s, err
		}
		if pvt, ok := d.TakeLastNavPVT(); ok {
			s.LastFix = &pvt
		}
		if hw, ok := d.TakeLastMonHW(); ok {
			s.LastHW = &hw
		}
		d.TakeLastNavDOP()
		if n == 0 && p.Exhausted() {
			break
		}
	}
	s.Stats = d.Stats()
	return s, nil
}

// Print writes s in the same key: value layout as the other summaries.
func (s Summary) Print(w io.Writer, path string) {
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "chunks: %d\n", s.Chunks)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "frames: %d\n", s.Stats.Frames)

	counts := map[string]uint64{
		ubx.NavPVTID.String(): s.Stats.NavPVT,
		ubx.NavDOPID.String(): s.Stats.NavDOP,
		ubx.MonHWID.String():  s.Stats.MonHW,
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "decoded:\n")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
	fmt.Fprintf(w, "checksum_errors: %d\n", s.Stats.ChecksumErrors)
	fmt.Fprintf(w, "unknown_frames: %d\n", s.Stats.Unknown)
	fmt.Fprintf(w, "truncated: %d\n", s.Stats.Truncated)
	if s.LastFix != nil {
		f := s.LastFix
		fmt.Fprintf(w, "last_fix: %04d-%02d-%02dT%02d:%02d:%02dZ %s sv=%d lat=%.7f lon=%.7f hmsl=%.1fm\n",
			f.Year, f.Month, f.Day, f.Hour, f.Min, f.Sec, f.FixType, f.NumSV,
			f.LatDeg(), f.LonDeg(), float64(f.HeightMSL)/1000)
	}
	if s.LastHW != nil {
		fmt.Fprintf(w, "antenna: %s power=%s jam_ind=%d\n", s.LastHW.AntStatus, s.LastHW.AntPower, s.LastHW.JamInd)
	}
}
