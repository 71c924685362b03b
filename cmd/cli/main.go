package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/credit-scoring/internal/features"
	"github.com/dvloznov/credit-scoring/internal/gcsuploader"
	infraBQ "github.com/dvloznov/credit-scoring/internal/infra/bigquery"
	"github.com/dvloznov/credit-scoring/internal/logger"
	"github.com/dvloznov/credit-scoring/internal/pipeline"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "score":
		runScore(log)
	case "upload":
		runUpload(log)
	case "inspect":
		runInspect(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Credit Scoring CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  score     Score a transaction dataset and write feature tables")
	fmt.Println("  upload    Upload a CSV dataset to GCS")
	fmt.Println("  inspect   Inspect a persisted scoring run")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runScore(log zerolog.Logger) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	source := fs.String("source", "", "dataset to score: local path or gs:// URI")
	out := fs.String("out", ".", "directory for output CSV files")
	strategyStr := fs.String("strategy", "", "missing-value strategy: median, mean, mode, zero or drop")
	clusters := fs.Int("clusters", 0, "number of customer segments")
	seed := fs.Int64("seed", 0, "random seed for segmentation")
	persist := fs.Bool("persist", false, "also write the run to BigQuery")
	fs.Parse(os.Args[2:])

	if *source == "" {
		log.Fatal().Msg("Error: --source is required")
	}

	opts := pipeline.Options{
		Clusters: *clusters,
		Seed:     *seed,
		Storage:  gcsuploader.Service{},
		Log:      log,
	}
	if *strategyStr != "" {
		strategy, err := features.ParseStrategy(*strategyStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid strategy")
		}
		opts.Strategy = strategy
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("source", *source).Msg("Starting scoring run")

	result, err := pipeline.ProcessFile(ctx, *source, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Scoring failed")
	}

	processedPath := filepath.Join(*out, "processed_transactions.csv")
	rfmPath := filepath.Join(*out, "customer_rfm.csv")

	if err := pipeline.WriteProcessedFile(processedPath, result); err != nil {
		log.Fatal().Err(err).Msg("Failed to write processed table")
	}
	if err := pipeline.WriteRFMFile(rfmPath, result); err != nil {
		log.Fatal().Err(err).Msg("Failed to write RFM table")
	}

	if *persist {
		rows := infraBQ.NewCustomerFeatureRows(result.RunID, result.Snapshot, result.RFM, result.Aggregates)
		if err := infraBQ.InsertCustomerFeatures(ctx, rows); err != nil {
			log.Fatal().Err(err).Msg("Failed to persist run to BigQuery")
		}
	}

	var highRisk int
	for _, r := range result.RFM {
		highRisk += r.IsHighRisk
	}

	fmt.Printf("Run %s scored %d customers (%d high risk).\n", result.RunID, len(result.RFM), highRisk)
	fmt.Printf("Wrote %s and %s\n", processedPath, rfmPath)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local CSV file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := (gcsuploader.Service{}).UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	runID := fs.String("run-id", "", "Scoring run ID to inspect")
	highOnly := fs.Bool("high-risk", false, "show only high-risk customers")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	var (
		rows []*infraBQ.CustomerFeatureRow
		err  error
	)
	if *highOnly {
		rows, err = infraBQ.QueryHighRiskCustomers(ctx, *runID)
	} else {
		rows, err = infraBQ.QueryFeaturesByRun(ctx, *runID)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query run")
	}

	if len(rows) == 0 {
		fmt.Println("No rows found for this run.")
		return
	}

	fmt.Printf("\n=== Run %s (%d customers) ===\n", *runID, len(rows))
	fmt.Printf("Snapshot: %s\n", rows[0].SnapshotDate)
	for i, r := range rows {
		fmt.Printf("\n%d. %s\n", i+1, r.CustomerID)
		fmt.Printf("   Transactions: %d (total %.2f, avg %.2f)\n", r.TransactionCount, r.TotalAmount, r.AvgAmount)
		fmt.Printf("   RFM:          recency %d, frequency %d, monetary %.2f\n", r.Recency, r.Frequency, r.Monetary)
		fmt.Printf("   Segment:      %d", r.Cluster)
		if r.IsHighRisk == 1 {
			fmt.Print("  [HIGH RISK]")
		}
		fmt.Println()
	}
	fmt.Println()
}
