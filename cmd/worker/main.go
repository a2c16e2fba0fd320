// The worker binary runs the extraction consumer on its own, without the API
// server. Useful when extraction load should scale independently.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rfogliato/statement-import/internal/config"
	"github.com/rfogliato/statement-import/internal/extract"
	"github.com/rfogliato/statement-import/internal/gcs"
	infraBQ "github.com/rfogliato/statement-import/internal/infra/bigquery"
	"github.com/rfogliato/statement-import/internal/importer"
	"github.com/rfogliato/statement-import/internal/jobs"
	jobsmem "github.com/rfogliato/statement-import/internal/jobs/inmemory"
	"github.com/rfogliato/statement-import/internal/logger"
	"github.com/rfogliato/statement-import/internal/recon"
	reconmem "github.com/rfogliato/statement-import/internal/recon/inmemory"
)

func main() {
	// Initialize logger
	log := logger.WithFields(logger.New(), map[string]interface{}{"component": "worker"})

	cfg := config.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store recon.Store
		runs  importer.RunRecorder
		repo  *infraBQ.Repository
	)
	if cfg.GCP.ProjectID != "" {
		var err error
		repo, err = infraBQ.New(ctx, cfg.GCP.ProjectID, cfg.GCP.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		store, runs = repo, repo
	} else {
		store = reconmem.NewStore()
		log.Warn().Msg("No GCP project configured - using in-memory stores")
	}

	extractor := extract.NewGeminiExtractor(cfg.Extraction.Model, time.Duration(cfg.Extraction.TimeoutSeconds)*time.Second)
	svc := importer.NewService(store, nil, extractor, runs, log)

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		extractJob, ok := job.(*jobs.ExtractStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("statement_id", extractJob.StatementID).
			Str("gcs_uri", extractJob.GCSURI).
			Msg("Processing extraction job")

		document, err := gcs.Fetch(ctx, extractJob.GCSURI)
		if err != nil {
			return fmt.Errorf("fetching document: %w", err)
		}

		result, err := svc.ImportDocument(ctx, extractJob.AccountID, document, gcs.FilenameFromURI(extractJob.GCSURI))
		if err != nil {
			if repo != nil {
				if markErr := repo.MarkStatementFailed(ctx, extractJob.StatementID); markErr != nil {
					log.Error().Err(markErr).Str("statement_id", extractJob.StatementID).Msg("Failed to mark statement failed")
				}
			}
			return err
		}

		if repo != nil {
			if markErr := repo.MarkStatementParsed(ctx, extractJob.StatementID); markErr != nil {
				log.Error().Err(markErr).Str("statement_id", extractJob.StatementID).Msg("Failed to mark statement parsed")
			}
		}

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("statement_id", extractJob.StatementID).
			Int("imported", result.Imported).
			Int("duplicates", result.Duplicates).
			Msg("Extraction job completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
