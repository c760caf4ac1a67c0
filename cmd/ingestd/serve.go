package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/econdata/tsengine/pkg/catalog"
	"github.com/econdata/tsengine/pkg/filingpipeline"
	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/metrics"
	"github.com/econdata/tsengine/pkg/queue"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics and health endpoints and reap expired queue leases as a long-running daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for /metrics, /healthz, /livez")
	serveCmd.Flags().Duration("lease-ttl", 10*time.Minute, "Lease TTL before a processing item is reaped back to pending")
	serveCmd.Flags().Duration("reap-interval", time.Minute, "How often to scan for expired leases")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	leaseTTL, _ := cmd.Flags().GetDuration("lease-ttl")
	reapInterval, _ := cmd.Flags().GetDuration("reap-interval")

	cat, err := catalog.Open(cfg.CatalogRoot)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	blobs, err := openBlobstore(cfg)
	if err != nil {
		return fmt.Errorf("open blobstore: %w", err)
	}
	defer blobs.Close()

	q, err := openQueue(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer q.Close()

	filings, err := filingpipeline.OpenFilingStore(cfg.DataRoot + "/filings")
	if err != nil {
		return fmt.Errorf("open filing store: %w", err)
	}
	defer filings.Close()

	collector := metrics.NewCollector(cat, blobs, q)
	collector.Start()
	defer collector.Stop()

	reaper := queue.NewReaper(q, leaseTTL, reapInterval)
	reaper.Start()
	defer reaper.Stop()

	metrics.RegisterComponent("catalog", true, "ready")
	metrics.RegisterComponent("blobstore", true, "ready")
	metrics.RegisterComponent("queue", true, "ready")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/livez", metrics.LivenessHandler())
	srv := &http.Server{Addr: metricsAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	log.WithComponent("ingestd").Info().Str("addr", metricsAddr).Msg("metrics server listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("ingestd").Info().Msg("shutting down")
	case err := <-errCh:
		log.WithComponent("ingestd").Error().Err(err).Msg("fatal error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
