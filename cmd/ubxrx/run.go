package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ubxrx/internal/capture"
	"ubxrx/internal/config"
	"ubxrx/internal/gnss"
	"ubxrx/internal/gpio"
	"ubxrx/internal/logging"
	"ubxrx/internal/metrics"
	"ubxrx/internal/ubx"
	"ubxrx/internal/udp"
	"ubxrx/internal/web"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the receiver service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./ubxrx.yaml", "Path to YAML config")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logs := web.NewLogBuffer(cfg.Log.BufferLines)
	log, err := logging.New(cfg.Log, logs)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = log.Sync() }()

	policy, err := ubx.ParseResyncPolicy(cfg.GNSS.Resync)
	if err != nil {
		return err
	}

	var rec *capture.Writer
	if cfg.GNSS.Record.Enable {
		rec, err = capture.Create(cfg.GNSS.Record.Path)
		if err != nil {
			return err
		}
		defer rec.Close()
		log.Info("recording", zap.String("path", cfg.GNSS.Record.Path), zap.String("session", rec.Session().String()))
	}

	var reset gnss.Resetter
	if cfg.GNSS.ResetGPIO > 0 {
		r, err := gpio.OpenReset(cfg.GNSS.ResetGPIO, gpio.DefaultHold)
		if err != nil {
			// The receiver still runs without a reset line.
			log.Warn("reset gpio unavailable", zap.Int("pin", cfg.GNSS.ResetGPIO), zap.Error(err))
		} else {
			defer r.Close()
			reset = r
		}
	}

	open, err := sourceOpener(cfg, rec, reset, log)
	if err != nil {
		return err
	}

	svc := gnss.New(gnss.Config{
		Enable:        cfg.GNSS.Enable,
		Source:        cfg.GNSS.Source,
		PollInterval:  cfg.GNSS.PollInterval,
		ProbeAttempts: cfg.GNSS.ProbeAttempts,
		StaleAfter:    cfg.GNSS.StaleAfter,
		Resync:        policy,
	}, open, log.Named("gnss"))

	status := web.NewStatus(svc.Snapshot)
	udpDest := ""
	if cfg.UDP.Enable {
		b, err := udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			return err
		}
		defer b.Close()
		udpDest = b.Dest()
		pub := udp.NewPublisher(b, log.Named("udp"), status.MarkSent)
		svc.Subscribe(pub.Publish)
	}
	status.SetStatic(cfg.GNSS.Source, udpDest)

	log.Info("ubxrx starting",
		zap.String("version", version),
		zap.String("source", cfg.GNSS.Source),
		zap.String("resync", policy.String()),
		zap.Bool("http", cfg.HTTP.Enable),
		zap.String("udp_dest", udpDest))

	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	errCh := make(chan error, 1)
	if cfg.HTTP.Enable {
		reg := metrics.NewRegistry()
		reg.MustRegister(metrics.NewReceiverCollector(svc.Snapshot))
		opts := web.Options{
			Status:  status,
			Logs:    logs,
			Metrics: metrics.Handler(reg),
			Ready:   func() bool { return svc.Snapshot().Online },
			Version: version,
			Log:     log.Named("http"),
		}
		go func() {
			errCh <- web.Serve(ctx, cfg.HTTP.Listen, opts)
		}()
		log.Info("http listening", zap.String("addr", cfg.HTTP.Listen))
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("http server stopped", zap.Error(err))
			return err
		}
	}
	log.Info("ubxrx stopping")
	return nil
}
