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

	"github.com/dvloznov/credit-scoring/internal/api/handlers"
	"github.com/dvloznov/credit-scoring/internal/api/middleware"
	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/gcsuploader"
	infraBQ "github.com/dvloznov/credit-scoring/internal/infra/bigquery"
	"github.com/dvloznov/credit-scoring/internal/jobs"
	"github.com/dvloznov/credit-scoring/internal/jobs/inmemory"
	"github.com/dvloznov/credit-scoring/internal/logger"
	"github.com/dvloznov/credit-scoring/internal/pipeline"
)

func main() {
	// Parse command-line flags
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		persist = flag.Bool("persist", false, "write finished runs to BigQuery")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	ctx := context.Background()

	var repo infraBQ.FeatureRepository
	if *persist {
		bqRepo, err := infraBQ.NewBigQueryFeatureRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create feature repository")
		}
		defer bqRepo.Close()
		repo = bqRepo
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	pipelineOpts := pipeline.Options{
		Storage: gcsuploader.Service{},
		Log:     log,
	}

	// Create job handler for processing scoring jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		scoreJob, ok := job.(*jobs.ScoreDatasetJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", scoreJob.JobID).
			Str("source_uri", scoreJob.SourceURI).
			Msg("Processing scoring job")

		if err := runScoringJob(ctx, scoreJob, pipelineOpts, repo); err != nil {
			log.Error().
				Err(err).
				Str("job_id", scoreJob.JobID).
				Str("source_uri", scoreJob.SourceURI).
				Msg("Pipeline execution failed")
			return err
		}

		log.Info().
			Str("job_id", scoreJob.JobID).
			Str("run_id", scoreJob.RunID).
			Int("customers", scoreJob.CustomersScored).
			Msg("Pipeline execution completed successfully")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	scoringHandler := handlers.NewScoringHandler(jobQueue, jobStore, pipelineOpts, log)

	// Create router
	mux := http.NewServeMux()

	// Scoring endpoints
	mux.HandleFunc("/api/score", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			scoringHandler.Score(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			scoringHandler.EnqueueRun(w, r)
		case http.MethodGet:
			scoringHandler.ListRuns(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			scoringHandler.GetRun(w, r, jobID)
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

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// runScoringJob executes the pipeline for a queued job and records the run
// outcome on the job itself. When repo is non-nil the per-customer feature
// rows are also written to BigQuery.
func runScoringJob(ctx context.Context, job *jobs.ScoreDatasetJob, opts pipeline.Options, repo infraBQ.FeatureRepository) error {
	if job.Strategy != "" {
		strategy, err := features.ParseStrategy(job.Strategy)
		if err != nil {
			return err
		}
		opts.Strategy = strategy
	}
	opts.Clusters = job.Clusters
	opts.Seed = job.Seed

	result, err := pipeline.ProcessFile(ctx, job.SourceURI, opts)
	if err != nil {
		return err
	}

	var highRisk int
	for _, r := range result.RFM {
		highRisk += r.IsHighRisk
	}
	job.RunID = result.RunID
	job.CustomersScored = len(result.RFM)
	job.HighRiskCount = highRisk

	if repo != nil {
		rows := infraBQ.NewCustomerFeatureRows(result.RunID, result.Snapshot, result.RFM, result.Aggregates)
		if err := repo.InsertCustomerFeatures(ctx, rows); err != nil {
			return fmt.Errorf("persisting run %s: %w", result.RunID, err)
		}
	}

	return nil
}
