package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/editorhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/editorhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/editorhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/editorhost/internal/rpc"
	"github.com/GriffinCanCode/editorhost/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "editorhost: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse flags
	path := flag.String("path", "", "Editor executable path (overrides name)")
	name := flag.String("name", "", "Editor executable name, resolved on PATH")
	profile := flag.String("profile", "", "Launch profile (.yaml, .yml or .toml)")
	codec := flag.String("codec", "", "Wire codec: cbor or json")
	metricsAddr := flag.String("metrics", "", "Address for the Prometheus /metrics endpoint")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *profile != "" {
		p, err := config.LoadProfile(*profile)
		if err != nil {
			return err
		}
		cfg.ApplyProfile(p)
	}
	if *path != "" {
		cfg.Editor.Path = *path
	}
	if *name != "" {
		cfg.Editor.Name = *name
	}
	if *codec != "" {
		cfg.Transport.Codec = *codec
	}
	if *metricsAddr != "" {
		cfg.Metrics.Address = *metricsAddr
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	if cfg.Metrics.Address != "" {
		srv := serveMetrics(cfg.Metrics.Address, reg, logger)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := session.New(cfg.Transport, newLogHandler(logger), session.WithLogger(logger), session.WithMetrics(metrics))
	if err != nil {
		return err
	}
	if err := s.Start(ctx, session.LaunchFromConfig(cfg.Editor)); err != nil {
		return fmt.Errorf("start editor: %w", err)
	}
	logger.Info("editor started",
		zap.String("session_id", s.ID().String()),
		zap.Int("pid", s.PID()),
		zap.String("codec", s.Codec().Name()),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-s.Done():
		if err := s.Err(); err != nil {
			logger.Error("transport failed", zap.Error(err))
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Transport.ShutdownGrace+time.Second)
	defer cancel()
	if err := s.Close(closeCtx); err != nil {
		logger.Warn("close failed", zap.Error(err))
	}
	status, err := s.Wait()
	if err != nil {
		return err
	}

	if snap, err := sonic.MarshalString(metrics.Snapshot()); err == nil {
		logger.Info("transport summary", zap.String("metrics", snap), zap.Stringer("status", status))
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	return srv
}

// newLogHandler logs every message received from the editor.
func newLogHandler(logger *logging.Logger) session.Handler {
	log := logger.Named("editor")
	return session.HandlerFunc(func(_ context.Context, batch []rpc.Message) {
		for _, m := range batch {
			switch m.Type {
			case rpc.Response:
				log.Debug("response",
					zap.Uint32("msgid", m.ID),
					zap.Bool("error", m.Error != nil),
					zap.Int("result_bytes", len(m.Params)),
				)
			default:
				log.Debug(m.Type.String(),
					zap.String("method", m.Method),
					zap.Uint32("msgid", m.ID),
					zap.Int("params_bytes", len(m.Params)),
				)
			}
		}
	})
}
