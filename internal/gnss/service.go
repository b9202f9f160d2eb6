package gnss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ubxrx/internal/ubx"
)

// Config controls the receiver service.
type Config struct {
	Enable bool

	// Source names where bytes come from ("serial", "replay", "sim"); it
	// is only reported, the OpenFunc decides.
	Source string

	PollInterval  time.Duration
	ProbeAttempts int
	ProbeInterval time.Duration
	// StaleAfter marks the fix stale when no NAV-PVT arrived for this long.
	StaleAfter time.Duration
	// ReopenBackoff is the first wait after a transport fault; it doubles up
	// to MaxReopenBackoff.
	ReopenBackoff    time.Duration
	MaxReopenBackoff time.Duration

	Resync ubx.ResyncPolicy
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.ProbeAttempts <= 0 {
		c.ProbeAttempts = 20
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 100 * time.Millisecond
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 3 * time.Second
	}
	if c.ReopenBackoff <= 0 {
		c.ReopenBackoff = 250 * time.Millisecond
	}
	if c.MaxReopenBackoff <= 0 {
		c.MaxReopenBackoff = 10 * time.Second
	}
	return c
}

// Resetter pulses the receiver's reset line.
type Resetter interface {
	Pulse(s ubx.Sleeper) error
}

// Source is an opened byte source.
type Source struct {
	Port   ubx.Port
	Device string
	// Closer, when set, is closed when the source is dropped.
	Closer io.Closer
	// Reset, when set, is pulsed before setup.
	Reset Resetter
}

// OpenFunc opens the byte source. It is called again after transport faults.
type OpenFunc func(ctx context.Context) (Source, error)

type Service struct {
	cfg  Config
	open OpenFunc
	log  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	last atomic.Value // Snapshot

	subMu sync.RWMutex
	subs  []func(Update)

	now func() time.Time
}

func New(cfg Config, open OpenFunc, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{cfg: cfg.withDefaults(), open: open, log: log, now: time.Now}
	s.last.Store(Snapshot{Enabled: cfg.Enable, Source: cfg.Source, Resync: cfg.Resync.String()})
	return s
}

// Subscribe registers fn to be called from the service goroutine with
// every non-empty poll result. fn must not block.
func (s *Service) Subscribe(fn func(Update)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

// Start opens the source once synchronously so configuration errors
// surface to the caller, then polls in the background.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gnss service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.open == nil {
		return fmt.Errorf("gnss: no source")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	src, err := s.open(ctx)
	if err != nil {
		s.setError(fmt.Sprintf("open failed: %v", err))
		return fmt.Errorf("gnss: open: %w", err)
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(childCtx, src)
	}()
	return nil
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Service) setError(msg string) {
	cur := s.Snapshot()
	cur.LastError = msg
	s.last.Store(cur)
}

// run owns the driver. It reopens the source after transport faults.
func (s *Service) run(ctx context.Context, src Source) {
	st := &state{base: s.Snapshot()}
	st.base.Enabled = true
	backoff := s.cfg.ReopenBackoff
	sleeper := ctxSleeper{ctx: ctx}

	for {
		err := s.session(ctx, src, st, sleeper)
		closeSource(src)
		st.base.Online = false
		if ctx.Err() != nil {
			s.last.Store(st.snapshot(s.now(), s.cfg.StaleAfter))
			return
		}
		st.base.LastError = err.Error()
		s.last.Store(st.snapshot(s.now(), s.cfg.StaleAfter))
		s.log.Warn("gnss source failed, reopening", zap.Error(err), zap.Duration("backoff", backoff))

		for {
			if !sleeper.wait(backoff) {
				return
			}
			if backoff < s.cfg.MaxReopenBackoff {
				backoff = min(backoff*2, s.cfg.MaxReopenBackoff)
			}
			src, err = s.open(ctx)
			if err == nil {
				st.base.Reopens++
				break
			}
			st.base.LastError = fmt.Sprintf("open failed: %v", err)
			s.last.Store(st.snapshot(s.now(), s.cfg.StaleAfter))
		}
		backoff = s.cfg.ReopenBackoff
	}
}

// session runs one opened source until a transport fault or cancellation.
func (s *Service) session(ctx context.Context, src Source, st *state, sleeper ctxSleeper) error {
	st.base.Device = src.Device
	if src.Reset != nil {
		if err := src.Reset.Pulse(sleeper); err != nil {
			// The receiver may still be running; carry on without reset.
			s.log.Warn("gnss reset failed", zap.Error(err))
		}
	}

	d := ubx.NewSerialDriver(src.Port,
		ubx.WithLogger(s.log.Named("ubx")),
		ubx.WithResyncPolicy(s.cfg.Resync),
	)
	defer st.retire(d)
	if err := d.Setup(sleeper); err != nil {
		return err
	}
	err := d.Probe(sleeper, s.cfg.ProbeAttempts, s.cfg.ProbeInterval)
	switch {
	case errors.Is(err, ubx.ErrUnresponsive):
		// Keep polling; receivers can take seconds to boot after reset.
		s.log.Warn("gnss receiver silent after setup", zap.String("device", src.Device), zap.Error(err))
		st.base.LastError = err.Error()
		st.silent = true
	case err != nil:
		return err
	default:
		st.base.LastError = ""
		st.silent = false
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.log.Info("gnss source online",
		zap.String("source", s.cfg.Source),
		zap.String("device", src.Device),
		zap.Stringer("resync", s.cfg.Resync))
	st.base.Online = true
	s.last.Store(st.snapshot(s.now(), s.cfg.StaleAfter))

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		err := s.poll(d, st)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) poll(d *ubx.Driver, st *state) error {
	_, err := d.HandleAllMessages()

	u := Update{At: s.now()}
	if m, ok := d.TakeLastNavPVT(); ok {
		u.NavPVT = &m
	}
	if m, ok := d.TakeLastNavDOP(); ok {
		u.NavDOP = &m
	}
	if m, ok := d.TakeLastMonHW(); ok {
		u.MonHW = &m
	}
	st.apply(u)
	st.track(d)
	if !u.Empty() && st.silent {
		st.base.LastError = ""
		st.silent = false
	}
	s.last.Store(st.snapshot(u.At, s.cfg.StaleAfter))

	if !u.Empty() {
		s.subMu.RLock()
		subs := s.subs
		s.subMu.RUnlock()
		for _, fn := range subs {
			fn(u)
		}
	}
	return err
}

func closeSource(src Source) {
	if src.Closer != nil {
		_ = src.Closer.Close()
	}
}

// ctxSleeper sleeps unless ctx is done first.
type ctxSleeper struct{ ctx context.Context }

func (c ctxSleeper) Sleep(d time.Duration) { c.wait(d) }

func (c ctxSleeper) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
