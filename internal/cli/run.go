package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/goasync/pkg/logging"
	"github.com/vnykmshr/goasync/pkg/metrics"
	"github.com/vnykmshr/goasync/pkg/scheduling/async"
	"github.com/vnykmshr/goasync/pkg/scheduling/scheduler"
)

const scheduledJobID = "workload"

func newRunCommand(configFile *string) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a synthetic workload and report how it was executed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(v, *configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, cmd, cfg)
		},
	}
	bindFlags(v, cmd.Flags())
	return cmd
}

// Run executes the workload described by cfg, once or on its schedule, and
// writes a report per run to the command's output.
func Run(ctx context.Context, cmd *cobra.Command, cfg Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logging.SetSink(logging.ZapSink(logger))

	opts := []async.Option{
		async.WithPriority(cfg.Pool.Priority),
		async.WithShutdownPolicy(cfg.Pool.ShutdownPolicy),
	}
	if cfg.Pool.Threads != nil {
		opts = append(opts, async.WithThreads(*cfg.Pool.Threads))
	}

	var metricsConfig metrics.Config
	if cfg.Metrics.Addr != "" {
		metricsConfig = metrics.Config{Enabled: true}
		opts = append(opts, async.WithMetrics(cfg.Pool.Prefix, metricsConfig))

		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	svc, err := async.New(cfg.Pool.Prefix, opts...)
	if err != nil {
		return err
	}
	defer svc.Dispose()

	if cfg.Schedule == "" {
		report, err := cfg.Workload.Run(ctx, svc)
		if err != nil {
			return err
		}
		report.Write(cmd.OutOrStdout())
		return nil
	}

	s, err := scheduler.NewWithConfig(scheduler.Config{
		Service: svc,
		Name:    cfg.Pool.Prefix,
		Metrics: metricsConfig,
	})
	if err != nil {
		return err
	}
	err = s.ScheduleCron(scheduledJobID, cfg.Schedule, func(ctx context.Context) error {
		report, err := cfg.Workload.Run(ctx, svc)
		if err != nil {
			return err
		}
		report.Write(cmd.OutOrStdout())
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	logger.Info("workload scheduled", zap.String("schedule", cfg.Schedule))

	<-ctx.Done()
	<-s.Stop()
	return nil
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
