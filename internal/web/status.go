package web

import (
	"sync/atomic"
	"time"

	"ubxrx/internal/gnss"
)

// Status collects what the status endpoint reports besides the receiver
// snapshot itself.
type Status struct {
	startUnixNano int64
	datagramsSent uint64
	lastSendNano  int64
	source        atomic.Value // string
	udpDest       atomic.Value // string
	gnss          func() gnss.Snapshot
}

func NewStatus(snapshot func() gnss.Snapshot) *Status {
	if snapshot == nil {
		snapshot = func() gnss.Snapshot { return gnss.Snapshot{} }
	}
	s := &Status{gnss: snapshot}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.source.Store("")
	s.udpDest.Store("")
	return s
}

func (s *Status) SetStatic(source, udpDest string) {
	if source != "" {
		s.source.Store(source)
	}
	if udpDest != "" {
		s.udpDest.Store(udpDest)
	}
}

// MarkSent records datagrams handed to the UDP broadcaster.
func (s *Status) MarkSent(nowUTC time.Time, n int) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastSendNano, nowUTC.UnixNano())
	if n > 0 {
		atomic.AddUint64(&s.datagramsSent, uint64(n))
	}
}

type StatusSnapshot struct {
	Service       string        `json:"service"`
	NowUTC        string        `json:"now_utc"`
	UptimeSec     int64         `json:"uptime_sec"`
	Source        string        `json:"source"`
	UDPDest       string        `json:"udp_dest,omitempty"`
	DatagramsSent uint64        `json:"datagrams_sent_total"`
	LastSendUTC   string        `json:"last_send_utc,omitempty"`
	GNSS          gnss.Snapshot `json:"gnss"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastSend := atomic.LoadInt64(&s.lastSendNano)

	snap := StatusSnapshot{
		Service:       "ubxrx",
		NowUTC:        nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:     int64(nowUTC.Sub(start).Seconds()),
		Source:        s.source.Load().(string),
		UDPDest:       s.udpDest.Load().(string),
		DatagramsSent: atomic.LoadUint64(&s.datagramsSent),
		GNSS:          s.gnss(),
	}
	if lastSend != 0 {
		snap.LastSendUTC = time.Unix(0, lastSend).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
