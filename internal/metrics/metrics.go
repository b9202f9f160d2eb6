package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ubxrx/internal/gnss"
)

const namespace = "ubxrx"

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ReceiverCollector exports a gnss.Snapshot. Every scrape reads one
// snapshot so all values come from the same poll.
type ReceiverCollector struct {
	snapshot func() gnss.Snapshot

	frames    *prometheus.Desc
	decoded   *prometheus.Desc
	dropped   *prometheus.Desc
	transport *prometheus.Desc
	transient *prometheus.Desc
	reopens   *prometheus.Desc
	online    *prometheus.Desc
	fixValid  *prometheus.Desc
	fixAge    *prometheus.Desc
	numSV     *prometheus.Desc
	hAcc      *prometheus.Desc
	pdop      *prometheus.Desc
	jamInd    *prometheus.Desc
	antenna   *prometheus.Desc
}

func NewReceiverCollector(snapshot func() gnss.Snapshot) *ReceiverCollector {
	d := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &ReceiverCollector{
		snapshot:  snapshot,
		frames:    d("frames_total", "UBX frames fully consumed."),
		decoded:   d("messages_decoded_total", "Records decoded by message type.", "msg"),
		dropped:   d("frames_dropped_total", "Frames consumed without a record.", "reason"),
		transport: d("transport_errors_total", "Transport faults returned by the driver."),
		transient: d("transient_errors_total", "Transient port faults absorbed while filling."),
		reopens:   d("source_reopens_total", "Times the byte source was reopened after a fault."),
		online:    d("source_online", "1 while the byte source is open and polled."),
		fixValid:  d("fix_valid", "1 while a fresh GNSS fix is held."),
		fixAge:    d("fix_age_seconds", "Age of the last NAV-PVT."),
		numSV:     d("satellites_used", "Satellites used in the last solution."),
		hAcc:      d("horizontal_accuracy_meters", "Horizontal accuracy estimate of the last solution."),
		pdop:      d("pdop", "Position dilution of precision of the last solution."),
		jamInd:    d("jamming_indicator", "MON-HW CW jamming indicator (0..255)."),
		antenna:   d("antenna_status", "1 for the current antenna supervisor state.", "status"),
	}
}

func (c *ReceiverCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.frames, c.decoded, c.dropped, c.transport, c.transient, c.reopens,
		c.online, c.fixValid, c.fixAge, c.numSV, c.hAcc, c.pdop, c.jamInd, c.antenna,
	} {
		ch <- d
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *ReceiverCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	st := s.Stats
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.frames, st.Frames)
	counter(c.decoded, st.NavPVT, "NAV-PVT")
	counter(c.decoded, st.NavDOP, "NAV-DOP")
	counter(c.decoded, st.MonHW, "MON-HW")
	counter(c.dropped, st.ChecksumErrors, "checksum")
	counter(c.dropped, st.Unknown, "unknown")
	counter(c.transport, st.TransportErrors)
	counter(c.transient, s.TransientErrors)
	counter(c.reopens, s.Reopens)
	gauge(c.online, boolGauge(s.Online))
	gauge(c.fixValid, boolGauge(s.Valid))

	if s.Fix != nil {
		gauge(c.fixAge, s.FixAgeSec)
		gauge(c.numSV, float64(s.Fix.NumSV))
		gauge(c.hAcc, s.Fix.HAccM)
		gauge(c.pdop, s.Fix.PDOP)
	}
	if s.HW != nil {
		gauge(c.jamInd, float64(s.HW.JamInd))
		gauge(c.antenna, 1, s.HW.Antenna)
	}
}
