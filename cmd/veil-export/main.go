package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/export"
	"github.com/promptveil/veil/internal/logger"
)

func main() {
	var (
		inputFile  = flag.String("input", "logs/detections.jsonl", "Audit JSONL file to read")
		outputFile = flag.String("output", "", "Output file (.parquet or .csv)")
		batchSize  = flag.Int("batch-size", 1000, "Batch size for writing")
		logLevel   = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	if *outputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input logs/detections.jsonl --output detections.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input logs/detections.jsonl --output detections.csv --batch-size 500\n", os.Args[0])
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  *logLevel,
		Format: "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling export...")
		cancel()
	}()

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("input", *inputFile))
	}

	exportConfig := export.DefaultConfig()
	exportConfig.BatchSize = *batchSize

	pipeline := export.NewPipeline(exportConfig, log.Logger)

	result, err := pipeline.Export(ctx, *inputFile, *outputFile)
	if err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}

	log.Info("Export completed",
		zap.String("input", *inputFile),
		zap.String("output", *outputFile),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("exported", result.Exported),
		zap.Int64("skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	if len(result.Errors) > 0 {
		log.Warn("Export completed with errors", zap.Strings("errors", result.Errors))
	}
}
