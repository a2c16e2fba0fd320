package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rfogliato/statement-import/internal/api/handlers"
	"github.com/rfogliato/statement-import/internal/api/middleware"
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
	var configPath = flag.String("config", "", "Path to YAML config file (optional; env vars override)")
	flag.Parse()

	// Initialize logger
	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.GCP.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement uploads will be disabled")
	}

	ctx := context.Background()

	// Select the persistence backend. A configured project means BigQuery;
	// otherwise everything runs on the in-memory stores (local development).
	var (
		store   recon.Store
		runs    importer.RunRecorder
		records handlers.StatementRecords
	)
	if cfg.GCP.ProjectID != "" {
		repo, err := infraBQ.New(ctx, cfg.GCP.ProjectID, cfg.GCP.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		store, runs, records = repo, repo, repo
		log.Info().Str("project", cfg.GCP.ProjectID).Str("dataset", cfg.GCP.Dataset).Msg("Using BigQuery persistence")
	} else {
		store = reconmem.NewStore()
		log.Warn().Msg("No GCP project configured - using in-memory stores")
	}

	extractor := extract.NewGeminiExtractor(cfg.Extraction.Model, time.Duration(cfg.Extraction.TimeoutSeconds)*time.Second)
	svc := importer.NewService(store, nil, extractor, runs, log)

	// Initialize job infrastructure
	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Job handler: fetch the document from GCS and run the extraction import.
	jobHandler := func(ctx context.Context, job jobs.Job) error {
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
			if repo, ok := records.(*infraBQ.Repository); ok && repo != nil {
				if markErr := repo.MarkStatementFailed(ctx, extractJob.StatementID); markErr != nil {
					log.Error().Err(markErr).Str("statement_id", extractJob.StatementID).Msg("Failed to mark statement failed")
				}
			}
			return err
		}

		if repo, ok := records.(*infraBQ.Repository); ok && repo != nil {
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

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	importsHandler := handlers.NewImportsHandler(svc, log)
	statementsHandler := handlers.NewStatementsHandler(records, jobQueue, cfg.GCP.Bucket, log)
	reconciliationHandler := handlers.NewReconciliationHandler(svc.Tracker(), log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/imports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			importsHandler.CreateImport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/upload-url", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.CreateUploadURL(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/upload/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			statementID := strings.TrimPrefix(r.URL.Path, "/api/statements/upload/")
			if statementID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Statement ID is required")
				return
			}
			statementsHandler.UploadStatement(w, r, statementID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.EnqueueExtraction(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reconciliation/pending", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reconciliationHandler.PendingByAccount(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reconciliation/lines", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reconciliationHandler.ListLines(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reconciliation/lines/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/reconciliation/lines/")
		switch {
		case strings.HasSuffix(rest, "/match"):
			lineID := strings.TrimSuffix(rest, "/match")
			if lineID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Line ID is required")
				return
			}
			reconciliationHandler.MatchLine(w, r, lineID)
		case strings.HasSuffix(rest, "/ignore"):
			lineID := strings.TrimSuffix(rest, "/ignore")
			if lineID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Line ID is required")
				return
			}
			reconciliationHandler.IgnoreLine(w, r, lineID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Unknown action")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware. RequestID runs ahead of Logger so the request-scoped
	// logger carries the id.
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
