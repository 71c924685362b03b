package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/gcsuploader"
	infraBQ "github.com/dvloznov/credit-scoring/internal/infra/bigquery"
	"github.com/dvloznov/credit-scoring/internal/jobs"
	"github.com/dvloznov/credit-scoring/internal/jobs/inmemory"
	"github.com/dvloznov/credit-scoring/internal/logger"
	"github.com/dvloznov/credit-scoring/internal/pipeline"
)

func main() {
	persist := flag.Bool("persist", false, "write finished runs to BigQuery")
	flag.Parse()

	// Initialize logger
	log := logger.New()

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo infraBQ.FeatureRepository
	if *persist {
		bqRepo, err := infraBQ.NewBigQueryFeatureRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create feature repository")
		}
		defer bqRepo.Close()
		repo = bqRepo
	}

	pipelineOpts := pipeline.Options{
		Storage: gcsuploader.Service{},
		Log:     log,
	}

	// Create job handler that processes scoring jobs
	handler := func(ctx context.Context, job jobs.Job) error {
		scoreJob, ok := job.(*jobs.ScoreDatasetJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", scoreJob.JobID).
			Str("source_uri", scoreJob.SourceURI).
			Msg("Processing scoring job")

		opts := pipelineOpts
		if scoreJob.Strategy != "" {
			strategy, err := features.ParseStrategy(scoreJob.Strategy)
			if err != nil {
				return err
			}
			opts.Strategy = strategy
		}
		opts.Clusters = scoreJob.Clusters
		opts.Seed = scoreJob.Seed

		result, err := pipeline.ProcessFile(ctx, scoreJob.SourceURI, opts)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", scoreJob.JobID).
				Str("source_uri", scoreJob.SourceURI).
				Msg("Pipeline execution failed")
			return err
		}

		var highRisk int
		for _, r := range result.RFM {
			highRisk += r.IsHighRisk
		}
		scoreJob.RunID = result.RunID
		scoreJob.CustomersScored = len(result.RFM)
		scoreJob.HighRiskCount = highRisk

		if repo != nil {
			rows := infraBQ.NewCustomerFeatureRows(result.RunID, result.Snapshot, result.RFM, result.Aggregates)
			if err := repo.InsertCustomerFeatures(ctx, rows); err != nil {
				log.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to persist run")
				return err
			}
		}

		log.Info().
			Str("job_id", scoreJob.JobID).
			Str("run_id", scoreJob.RunID).
			Int("customers", scoreJob.CustomersScored).
			Int("high_risk", scoreJob.HighRiskCount).
			Msg("Pipeline execution completed successfully")

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
