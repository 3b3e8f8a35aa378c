package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"csvgrid/internal/config"
	"csvgrid/internal/metrics"
	"csvgrid/internal/storage"
	"csvgrid/internal/worker"
)

// Version is set by build flags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "csvgrid",
	Short: "Export query results as CSV files",
	Long: `csvgrid streams records from MySQL, PostgreSQL, SQLite or MongoDB into delimited
text files, splitting large exports over several files and archiving them.

Settings are read from the environment and an optional .env file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("csvgrid failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg     *config.Config
	metrics *metrics.Collector
	pool    *worker.Pool
}

func newApp() (*app, error) {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	return &app{
		cfg:     cfg,
		metrics: m,
		pool:    worker.NewPool(cfg.WorkerCount, cfg.MaxDBConcurrency, store, cfg.TempDir, m),
	}, nil
}

func newStorage(cfg *config.Config) (storage.Provider, error) {
	switch cfg.StorageType {
	case "", "local":
		return storage.NewLocalProvider(cfg.LocalStoragePath), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
		client := storage.NewS3Client(storage.S3Options{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		return storage.NewS3Provider(client, cfg.S3Bucket), nil
	}
	return nil, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.StorageType)
}

// runJobs pushes jobs through the pool, waits for all of them and reports failures.
func (a *app) runJobs(ctx context.Context, defs []config.Job) error {
	a.pool.Start()

	jobs := make([]*worker.ExportJob, 0, len(defs))
	var failed int
	for _, def := range defs {
		job := worker.NewExportJob(def, a.cfg.DefaultTimeout)
		if !a.pool.SubmitWait(ctx, job) {
			slog.Error("Job not queued, job skipped", "name", def.Name, "error", ctx.Err())
			job.Cancel()
			failed++
			continue
		}
		jobs = append(jobs, job)
	}
	a.pool.Wait()

	for _, job := range jobs {
		if job.Status != worker.StatusCompleted {
			failed++
			continue
		}
		fmt.Printf("%s\t%d rows\t%d files\t%s\n", job.Def.Name, job.Stats.Rows, job.Stats.Files, job.Location)
	}

	if a.cfg.MetricsTextfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			slog.Warn("Failed to write metrics", "path", a.cfg.MetricsTextfile, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(defs))
	}
	return nil
}
