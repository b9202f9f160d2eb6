package web

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options wires the optional parts of the HTTP surface.
type Options struct {
	Status  *Status
	Logs    *LogBuffer
	Metrics http.Handler
	// Ready reports whether the receiver source is online.
	Ready   func() bool
	Version string
	Log     *zap.Logger
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Handler builds the router: health probes, JSON status, logs, metrics and
// a minimal landing page.
func Handler(opts Options) http.Handler {
	status := opts.Status
	if status == nil {
		status = NewStatus(nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Log != nil {
		r.Use(accessLog(opts.Log))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready == nil || opts.Ready() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})

	api := r.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, status.Snapshot(time.Now().UTC()))
	})
	api.GET("/gnss", func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, status.gnss())
	})
	api.GET("/about", aboutHandler(opts.Version))
	if opts.Logs != nil {
		api.GET("/logs", opts.Logs.handler)
	}

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	r.GET("/", func(c *gin.Context) {
		snap := status.Snapshot(time.Now().UTC())
		g := snap.GNSS
		fix := "none"
		if g.Fix != nil {
			fix = fmt.Sprintf("%s sv=%d lat=%.7f lon=%.7f", g.Fix.FixType, g.Fix.NumSV, g.Fix.LatDeg, g.Fix.LonDeg)
		}
		page := fmt.Sprintf("<!doctype html><html><head><meta charset=\"utf-8\"><title>ubxrx</title></head><body>"+
			"<h1>ubxrx</h1><p>See <a href=\"/api/status\">/api/status</a>.</p>"+
			"<pre>source=%s\ndevice=%s\nonline=%t\nvalid=%t\nfix=%s\nframes=%d\nchecksum_errors=%d</pre></body></html>",
			html.EscapeString(snap.Source), html.EscapeString(g.Device), g.Online, g.Valid,
			html.EscapeString(fix), g.Stats.Frames, g.Stats.ChecksumErrors)
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})

	return r
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// Serve runs the HTTP server until ctx is done.
func Serve(ctx context.Context, listenAddr string, opts Options) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
