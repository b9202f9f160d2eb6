package ubx

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sleeper is the coarse delay used during setup. Protocol handling never
// depends on its precision.
type Sleeper interface {
	Sleep(d time.Duration)
}

// setupSettle is how long Setup waits for the receiver to start talking.
const setupSettle = 100 * time.Millisecond

// slot holds at most one undelivered value. put overwrites; take moves the
// value out and leaves the slot empty.
type slot[T any] struct {
	v  T
	ok bool
}

func (s *slot[T]) put(v T) {
	s.v = v
	s.ok = true
}

func (s *slot[T]) take() (T, bool) {
	v, ok := s.v, s.ok
	var zero T
	s.v = zero
	s.ok = false
	return v, ok
}

// Stats counts what the driver has seen since construction.
type Stats struct {
	Frames          uint64 `json:"frames"`           // frames fully consumed
	NavPVT          uint64 `json:"nav_pvt"`          // decoded NAV-PVT
	NavDOP          uint64 `json:"nav_dop"`          // decoded NAV-DOP
	MonHW           uint64 `json:"mon_hw"`           // decoded MON-HW
	ChecksumErrors  uint64 `json:"checksum_errors"`  // frames dropped on checksum
	Unknown         uint64 `json:"unknown"`          // frames skipped by length
	Truncated       uint64 `json:"truncated"`        // attempts aborted on a short read
	TransportErrors uint64 `json:"transport_errors"` // errors returned to the caller
}

// Decoded returns the number of records decoded across all types.
func (s Stats) Decoded() uint64 { return s.NavPVT + s.NavDOP + s.MonHW }

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Frames:          s.Frames + o.Frames,
		NavPVT:          s.NavPVT + o.NavPVT,
		NavDOP:          s.NavDOP + o.NavDOP,
		MonHW:           s.MonHW + o.MonHW,
		ChecksumErrors:  s.ChecksumErrors + o.ChecksumErrors,
		Unknown:         s.Unknown + o.Unknown,
		Truncated:       s.Truncated + o.Truncated,
		TransportErrors: s.TransportErrors + o.TransportErrors,
	}
}

// Driver frames and decodes UBX messages from an Interface and keeps the
// latest record of each supported type until it is taken.
type Driver struct {
	di       Interface
	policy   ResyncPolicy
	capacity int

	log       *zap.Logger
	warnLimit *rate.Limiter

	header [HeaderLen]byte
	body   [maxKnownPayload + ChecksumLen]byte

	navPVT slot[NavPositionVelocityTime]
	navDOP slot[NavDilutionOfPrecision]
	monHW  slot[HardwareStatus]

	stats Stats
}

type Option func(*Driver)

// WithLogger sets the logger for in-protocol anomalies.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithResyncPolicy selects how incomplete frames are handled.
func WithResyncPolicy(p ResyncPolicy) Option {
	return func(d *Driver) { d.policy = p }
}

// WithCapacity tells the driver how many bytes its Interface can hold.
// HoldPartial never waits for a frame larger than this.
func WithCapacity(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.capacity = n
		}
	}
}

// WithWarnRate allows one checksum warning per interval, with the given
// burst. Warnings beyond the limit are logged at debug level.
func WithWarnRate(every time.Duration, burst int) Option {
	return func(d *Driver) {
		d.warnLimit = rate.NewLimiter(rate.Every(every), burst)
	}
}

func NewDriver(di Interface, opts ...Option) *Driver {
	d := &Driver{
		di:        di,
		capacity:  Capacity,
		log:       zap.NewNop(),
		warnLimit: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewSerialDriver buffers port in a SerialInterface and wraps it in a Driver.
func NewSerialDriver(port Port, opts ...Option) *Driver {
	return NewDriver(NewSerialInterface(port), opts...)
}

// Interface returns the buffered transport the driver reads from.
func (d *Driver) Interface() Interface { return d.di }

// Setup gives the receiver time to start its output. The receiver is
// assumed to be preconfigured; no configuration messages are sent.
func (d *Driver) Setup(sleeper Sleeper) error {
	if sleeper == nil {
		return fmt.Errorf("ubx: setup: sleeper is nil")
	}
	sleeper.Sleep(setupSettle)
	return nil
}

// Probe fills up to attempts times, sleeping interval between attempts,
// and returns ErrUnresponsive if not a single byte arrived. Bytes received
// stay buffered for the normal handling path.
func (d *Driver) Probe(sleeper Sleeper, attempts int, interval time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		n, err := d.di.Fill()
		if err != nil {
			d.stats.TransportErrors++
			return err
		}
		if n > 0 {
			return nil
		}
		if sleeper != nil && i < attempts-1 {
			sleeper.Sleep(interval)
		}
	}
	return fmt.Errorf("%w: no bytes after %d attempts", ErrUnresponsive, attempts)
}

// HandleOneMessage fills from the transport and tries to consume one frame.
//
// It returns 1 if a frame was consumed, whether it decoded, failed its
// checksum or was of an unknown type, and 0 if no complete frame could be
// extracted. Only transport faults are returned as errors.
func (d *Driver) HandleOneMessage() (int, error) {
	avail, err := d.di.Fill()
	if err != nil {
		d.stats.TransportErrors++
		return 0, err
	}
	if avail < MinFrameLen {
		return 0, nil
	}
	n, err := d.scanOne()
	if err != nil {
		d.stats.TransportErrors++
	}
	return n, err
}

// HandleAllMessages calls HandleOneMessage until it returns 0 and reports
// how many frames were consumed.
func (d *Driver) HandleAllMessages() (int, error) {
	total := 0
	for {
		n, err := d.HandleOneMessage()
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// TakeLastNavPVT returns the latest undelivered NAV-PVT and clears it.
func (d *Driver) TakeLastNavPVT() (NavPositionVelocityTime, bool) { return d.navPVT.take() }

// TakeLastNavDOP returns the latest undelivered NAV-DOP and clears it.
func (d *Driver) TakeLastNavDOP() (NavDilutionOfPrecision, bool) { return d.navDOP.take() }

// TakeLastMonHW returns the latest undelivered MON-HW and clears it.
func (d *Driver) TakeLastMonHW() (HardwareStatus, bool) { return d.monHW.take() }

func (d *Driver) Stats() Stats { return d.stats }
