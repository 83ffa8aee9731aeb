package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fakewire/fakewire/internal/config"
	"github.com/fakewire/fakewire/internal/delivery"
	"github.com/fakewire/fakewire/internal/domain"
	"github.com/fakewire/fakewire/internal/generator"
	"github.com/fakewire/fakewire/internal/logging"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		datasetDir = flag.String("dataset-dir", "./data", "Directory containing people.json")
		peoplePath = flag.String("people", "", "Path to people.json (overrides dataset-dir)")
		webhookURL = flag.String("url", "", "Webhook URL to deliver to (overrides WEBHOOK_URL)")
		batchSize  = flag.Int("batch-size", 0, "Records per POST request (overrides WEBHOOK_BATCH_SIZE)")
		workers    = flag.Int("workers", 0, "Number of concurrent delivery workers (overrides WEBHOOK_WORKERS)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "send")

	if *webhookURL != "" {
		cfg.Delivery.WebhookURL = *webhookURL
	}
	if *batchSize > 0 {
		cfg.Delivery.BatchSize = *batchSize
	}
	if *workers > 0 {
		cfg.Delivery.Workers = *workers
	}
	if cfg.Delivery.WebhookURL == "" {
		logger.Error("webhook URL is required: pass -url or set WEBHOOK_URL")
		os.Exit(1)
	}

	peopleFile, err := resolveDatasetPath(*datasetDir, *peoplePath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	people, err := loadPeople(peopleFile)
	if err != nil {
		logger.Error("failed to load people", "error", err, "path", peopleFile)
		os.Exit(1)
	}
	if len(people) == 0 {
		logger.Error("people dataset empty", "path", peopleFile)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := delivery.NewClient(delivery.Options{
		WebhookURL:     cfg.Delivery.WebhookURL,
		RequestTimeout: cfg.Delivery.RequestTimeout,
		MaxAttempts:    cfg.Delivery.MaxAttempts,
		InitialBackoff: cfg.Delivery.InitialBackoff,
	})
	if err != nil {
		logger.Error("failed to create webhook client", "error", err)
		os.Exit(1)
	}

	sender := delivery.NewBulkSender(client, cfg.Delivery.BatchSize, cfg.Delivery.Workers)

	start := time.Now()
	logger.Info("delivering dataset",
		"records", len(people),
		"batches", sender.Batches(len(people)),
		"url", cfg.Delivery.WebhookURL,
		"workers", cfg.Delivery.Workers,
	)

	if err := sender.SendPeople(ctx, people); err != nil {
		var taskErr *delivery.TaskError
		if errors.As(err, &taskErr) {
			logger.Error("delivery finished with failed batches", "failed", len(taskErr.Errors), "error", err)
		} else {
			logger.Error("delivery failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("delivery complete", "duration", time.Since(start).String(), "records", len(people))
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, generator.DatasetFileName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func loadPeople(path string) ([]domain.Person, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var people []domain.Person
	if err := json.NewDecoder(file).Decode(&people); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return people, nil
}
