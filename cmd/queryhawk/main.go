// Command queryhawk runs the PostgreSQL monitoring backend: per-user
// exporter orchestration, direct stats polling, query plan analysis, and
// the metrics exposition endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dockerclient "github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/queryhawk/queryhawk/internal/api"
	"github.com/queryhawk/queryhawk/internal/config"
	"github.com/queryhawk/queryhawk/internal/exporter"
	"github.com/queryhawk/queryhawk/internal/metrics"
	"github.com/queryhawk/queryhawk/internal/poller"
	"github.com/queryhawk/queryhawk/internal/queryplan"
	"github.com/queryhawk/queryhawk/internal/store"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("queryhawk version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("queryhawk version %s-dev", version)
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "queryhawk",
		Short:   "QueryHawk — PostgreSQL monitoring backend",
		Version: versionString(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry(log)
	reg.MustRegister(metrics.BaseDefinitions()...)

	docker, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("creating docker client: %w", err)
	}
	defer docker.Close()

	ports := exporter.NewPortAllocator(cfg.PortRangeStart, cfg.PortRangeEnd)
	if err := ports.Reconcile(ctx, docker); err != nil {
		return fmt.Errorf("reconciling port allocations: %w", err)
	}

	exporters := exporter.NewManager(log, docker, ports, exporter.Options{
		Image:         cfg.ExporterImage,
		Network:       cfg.ExporterNetwork,
		ScrapeHost:    cfg.ScrapeHost,
		TargetsDir:    cfg.TargetsDir,
		PrometheusURL: cfg.PrometheusURL,
	})

	pollers := poller.NewSupervisor(log, reg, cfg.PollInterval, cfg.ConnectTimeout, nil)
	plans := queryplan.NewRunner(log, reg, cfg.ConnectTimeout)

	router := api.NewRouter(&api.RouterDeps{
		Log:         log,
		Registry:    reg,
		Exporters:   exporters,
		Pollers:     pollers,
		Plans:       plans,
		QueryStore:  store.NewLogStore(log),
		CORSOrigins: cfg.CORSOrigins,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		// Exporter containers outlive the server; only the in-process loops
		// stop here.
		pollers.StopAll()

		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server exited with error")

		return err
	}

	log.Info("server stopped")

	return nil
}
