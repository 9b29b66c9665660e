package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-catalog-sync/internal/ingest"
	"github.com/stacklok/toolhive-catalog-sync/internal/models"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ingest the repositories of every configured account",
		Long: `Run an ingestion pass for every configured account. Accounts are processed
concurrently; the pages of one account are fetched in sequence.

With --interval the pass is repeated until the process is interrupted and the
Prometheus endpoint stays available between passes.`,
		RunE: runSync,
	}
	cmd.Flags().Duration("interval", 0, "Repeat the pass at this interval (0 runs once)")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return fmt.Errorf("failed to get interval flag: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewIngestMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create ingest metrics: %w", err)
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	factory, err := newFactory(cfg)
	if err != nil {
		return err
	}
	accounts, err := loadAccounts(cfg)
	if err != nil {
		return err
	}

	ingestor := ingest.NewIngestor(factory, st,
		ingest.WithMetrics(metrics),
		ingest.WithTracer(tel.Tracer("github.com/stacklok/toolhive-catalog-sync/ingest")),
		ingest.WithConcurrency(cfg.GetConcurrency()),
	)

	if interval <= 0 {
		return runPass(ctx, ingestor, accounts)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tel.ServeMetrics(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := runPass(ctx, ingestor, accounts); err != nil {
				slog.Warn("Sync pass finished with failures", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return g.Wait()
}

// runPass ingests every account once. It fails when any account failed.
func runPass(ctx context.Context, ingestor ingest.Ingestor, accounts []*models.Account) error {
	started := time.Now()
	outcomes := ingestor.IngestAll(ctx, accounts)

	failed := 0
	repositories := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		repositories += o.Result.RepositoryCount
	}

	slog.Info("Sync pass completed",
		"accounts", len(outcomes),
		"failed", failed,
		"repositories", repositories,
		"duration", time.Since(started))

	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(outcomes))
	}
	return nil
}
