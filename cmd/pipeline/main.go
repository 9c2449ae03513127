// Command pipeline runs a single ingest and/or export pass and exits.
// Useful for cron-style deployments and manual runs.
// Usage: pipeline [ingest|export|all]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fakturio/internal/config"
	"fakturio/internal/extractor/gemini"
	"fakturio/internal/ledger/superfaktura"
	"fakturio/internal/repository/postgres"
	"fakturio/internal/service"
	s3source "fakturio/internal/source/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	mode := "all"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	if mode != "ingest" && mode != "export" && mode != "all" {
		return fmt.Errorf("usage: pipeline [ingest|export|all]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	invoiceRepo := postgres.NewInvoiceRepo(db)
	logRepo := postgres.NewProcessingLogRepo(db)

	source, err := s3source.NewSource(&cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to initialize document source: %w", err)
	}

	events := service.NewEventLogger(logRepo)
	invoiceSvc := service.NewInvoiceService(
		invoiceRepo, source, service.NewDefaultChain(), gemini.New(&cfg.Extractor),
		superfaktura.New(&cfg.Ledger), events, cfg.Companies, cfg.Pipeline.ConfidenceThreshold,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mode == "ingest" || mode == "all" {
		if err := invoiceSvc.ProcessAll(ctx); err != nil {
			return fmt.Errorf("ingest pass: %w", err)
		}
	}
	if mode == "export" || mode == "all" {
		summary, err := invoiceSvc.ExportPending(ctx, cfg.Pipeline.ExportBatchSize)
		if err != nil {
			return fmt.Errorf("export pass: %w", err)
		}
		log.Printf("export: %d selected, %d exported, %d duplicates, %d errors",
			summary.Selected, summary.Exported, summary.Duplicates, len(summary.Errors))
	}
	return nil
}
