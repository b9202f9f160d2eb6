package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"ubxrx/internal/capture"
	"ubxrx/internal/config"
	"ubxrx/internal/gnss"
	"ubxrx/internal/sim"
	"ubxrx/internal/tty"
	"ubxrx/internal/ubx"
)

var (
	openSerial = func(path string, baud int) (ubx.Port, io.Closer, error) {
		p, err := tty.Open(path, baud)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	}
	detectDevice = tty.Detect
)

// sourceOpener builds the gnss.OpenFunc for the configured source. rec,
// when non-nil, records every byte the source produces. reset, when
// non-nil, is attached to every opened source.
func sourceOpener(cfg config.Config, rec *capture.Writer, reset gnss.Resetter, log *zap.Logger) (gnss.OpenFunc, error) {
	g := cfg.GNSS
	var open gnss.OpenFunc

	switch g.Source {
	case config.SourceSim:
		rx := sim.Receiver{
			Track: sim.Track{
				CenterLatDeg: cfg.Sim.CenterLatDeg,
				CenterLonDeg: cfg.Sim.CenterLonDeg,
				AltMSLm:      cfg.Sim.AltMSLm,
				RadiusM:      cfg.Sim.RadiusM,
				Period:       cfg.Sim.Period,
			},
			NumSV:   uint8(cfg.Sim.NumSV),
			HWEvery: cfg.Sim.HWEvery,
		}
		faults := sim.Faults{GarbageProb: cfg.Sim.GarbageProb, CorruptProb: cfg.Sim.CorruptProb, FalseSync: cfg.Sim.FalseSync, Seed: cfg.Sim.Seed}
		open = func(ctx context.Context) (gnss.Source, error) {
			return gnss.Source{Port: sim.NewPort(rx, cfg.Sim.Interval, faults, nil), Device: "sim"}, nil
		}

	case config.SourceReplay:
		recs, err := readCapture(g.Replay.Path)
		if err != nil {
			return nil, err
		}
		log.Info("replay loaded", zap.String("path", g.Replay.Path), zap.Int("records", len(recs)),
			zap.Float64("speed", g.Replay.Speed), zap.Bool("loop", g.Replay.Loop))
		open = func(ctx context.Context) (gnss.Source, error) {
			p := capture.NewPort(recs, capture.WithSpeed(g.Replay.Speed), capture.WithLoop(g.Replay.Loop))
			return gnss.Source{Port: p, Device: g.Replay.Path}, nil
		}

	case config.SourceSerial:
		open = func(ctx context.Context) (gnss.Source, error) {
			dev := strings.TrimSpace(g.Device)
			if dev == "" || strings.EqualFold(dev, "auto") {
				found, err := detectDevice()
				if err != nil {
					return gnss.Source{}, err
				}
				log.Info("serial device detected", zap.String("device", found))
				dev = found
			}
			p, c, err := openSerial(dev, g.Baud)
			if err != nil {
				return gnss.Source{}, err
			}
			return gnss.Source{Port: p, Device: dev, Closer: c}, nil
		}

	default:
		return nil, fmt.Errorf("unknown gnss source %q", g.Source)
	}

	return func(ctx context.Context) (gnss.Source, error) {
		src, err := open(ctx)
		if err != nil {
			return src, err
		}
		src.Reset = reset
		if rec != nil {
			tee := capture.NewTee(src.Port, rec)
			src.Closer = teeCloser{tee: tee, next: src.Closer}
			src.Port = tee
		}
		return src, nil
	}, nil
}

// teeCloser flushes the recording before the underlying source goes away.
type teeCloser struct {
	tee  *capture.Tee
	next io.Closer
}

func (c teeCloser) Close() error {
	err := c.tee.Flush()
	if c.next != nil {
		err = errors.Join(err, c.next.Close())
	}
	return err
}

func readCapture(path string) ([]capture.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()
	return capture.NewReader(f).ReadAll()
}
