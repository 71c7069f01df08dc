package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tvio/ai/internal/config"
	"github.com/tvio/ai/internal/database"
	"github.com/tvio/ai/internal/database/migration"
	"github.com/tvio/ai/internal/ops"
	tracing "github.com/tvio/ai/internal/otel"
	"github.com/tvio/ai/internal/pipeline"
	"github.com/tvio/ai/internal/repository/postgres"
	"github.com/tvio/ai/internal/storage"
	"github.com/tvio/ai/internal/sukl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		period  string
		docType string
		limit   int
		workers int
	)

	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Ingest the SUKL drug registry catalog and documents into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment (plus .env autoload) provides the base
			// configuration; flags override per invocation.
			cfg := config.Load()
			if cmd.Flags().Changed("period") {
				cfg.Run.Period = period
			}
			if cmd.Flags().Changed("doc-type") {
				cfg.Run.DocType = docType
			}
			if cmd.Flags().Changed("limit") {
				cfg.Run.ItemLimit = limit
			}
			if cmd.Flags().Changed("workers") {
				cfg.Run.Workers = workers
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "reporting period to ingest, e.g. 2025.07")
	cmd.Flags().StringVar(&docType, "doc-type", "spc", "document type to download")
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most this many items (0 = all)")
	cmd.Flags().IntVar(&workers, "workers", 1, "number of concurrent item workers")

	return cmd
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("run_id", uuid.NewString())

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err.Error())
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		log.Error("failed to prepare schema", "error", err.Error())
		return err
	}

	promReg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(promReg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics),
	}

	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Error("failed to initialize object storage", "error", err.Error())
			return err
		}
		opts = append(opts, pipeline.WithStorage(store))
		log.Info("document archival enabled", "bucket", cfg.MinIO.Bucket)
	}

	if cfg.OpsAddr != "" {
		srv := ops.NewServer(cfg.OpsAddr, db, promReg, log)
		srv.Start()
		defer func() { _ = srv.Shutdown() }()
		log.Info("ops server listening", "addr", cfg.OpsAddr)
	}

	client := sukl.NewClient(cfg.SUKL, log)
	repo := postgres.NewDrugPostgres(db)

	p := pipeline.New(client, repo, cfg.Run, opts...)
	stats, err := p.Run(ctx)
	if err != nil {
		log.Error("run aborted",
			"error", err.Error(),
			"items_processed", stats.ItemsProcessed,
			"documents_persisted", stats.DocumentsPersisted,
		)
		return err
	}
	return nil
}
