package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fakturio/internal/config"
	"fakturio/internal/email/noop"
	"fakturio/internal/email/ses"
	"fakturio/internal/extractor/gemini"
	"fakturio/internal/handler"
	"fakturio/internal/ledger/superfaktura"
	"fakturio/internal/port"
	"fakturio/internal/repository/postgres"
	"fakturio/internal/router"
	"fakturio/internal/service"
	s3source "fakturio/internal/source/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	logRepo := postgres.NewProcessingLogRepo(db)

	// Initialize external adapters
	source, err := s3source.NewSource(&cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to initialize document source: %w", err)
	}
	ledger := superfaktura.New(&cfg.Ledger)
	extractor := gemini.New(&cfg.Extractor)

	var mailer port.EmailSender
	switch cfg.Email.Provider {
	case "ses":
		mailer, err = ses.NewSender(&cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	default:
		mailer = noop.NewSender()
	}

	// Initialize services
	events := service.NewEventLogger(logRepo)
	invoiceSvc := service.NewInvoiceService(
		invoiceRepo, source, service.NewDefaultChain(), extractor, ledger,
		events, cfg.Companies, cfg.Pipeline.ConfidenceThreshold,
	)

	// Initialize handlers
	invoiceH := handler.NewInvoiceHandler(invoiceSvc, logRepo, cfg.Pipeline.ExportBatchSize)
	reportH := handler.NewReportHandler(invoiceRepo)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg.API.Key, invoiceH, reportH, healthH)

	// Background workers
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingestWorker := service.NewIngestWorker(invoiceSvc, service.IngestWorkerConfig{
		Interval: time.Duration(cfg.Pipeline.IngestIntervalSecs) * time.Second,
	})
	exportWorker := service.NewExportWorker(invoiceSvc, invoiceRepo, mailer, service.ExportWorkerConfig{
		Interval:     time.Duration(cfg.Pipeline.ExportIntervalSecs) * time.Second,
		BatchSize:    cfg.Pipeline.ExportBatchSize,
		RetryErrored: cfg.Pipeline.RetryErrored,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ingestWorker.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		exportWorker.Start(ctx)
	}()

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		stop()
		wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	}
	wg.Wait()
	return nil
}
