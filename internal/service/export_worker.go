package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"fakturio/internal/port"
)

// ExportWorkerConfig holds settings for the export worker.
type ExportWorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	// RetryErrored re-queues EXPORT_ERROR records older than one interval
	// before each pass. Off by default; errored records then wait for an
	// explicit retry.
	RetryErrored bool
}

// ExportWorker periodically pushes pending invoices to the ledger and emails
// a summary when a pass had failures.
type ExportWorker struct {
	service  InvoiceService
	invoices port.InvoiceRepository
	mailer   port.EmailSender
	cfg      ExportWorkerConfig
}

// NewExportWorker creates a new ExportWorker. mailer may be nil.
func NewExportWorker(service InvoiceService, invoices port.InvoiceRepository, mailer port.EmailSender, cfg ExportWorkerConfig) *ExportWorker {
	return &ExportWorker{service: service, invoices: invoices, mailer: mailer, cfg: cfg}
}

// Start runs the polling loop until ctx is canceled.
func (w *ExportWorker) Start(ctx context.Context) {
	log.Printf("exportWorker: started (interval=%s, batch=%d, retryErrored=%t)",
		w.cfg.Interval, w.cfg.BatchSize, w.cfg.RetryErrored)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("exportWorker: shutdown complete")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *ExportWorker) runPass(ctx context.Context) {
	if w.cfg.RetryErrored {
		cutoff := time.Now().Add(-w.cfg.Interval)
		if n, err := w.invoices.ResetErrored(ctx, cutoff); err != nil {
			log.Printf("exportWorker: resetting errored records: %v", err)
		} else if n > 0 {
			log.Printf("exportWorker: re-queued %d errored records", n)
		}
	}

	summary, err := w.service.ExportPending(ctx, w.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("exportWorker: pass failed: %v", err)
		return
	}
	if len(summary.Errors) > 0 {
		w.notifyFailures(ctx, summary)
	}
}

func (w *ExportWorker) notifyFailures(ctx context.Context, summary *ExportSummary) {
	if w.mailer == nil {
		return
	}
	subject := fmt.Sprintf("Invoice export: %d of %d failed", len(summary.Errors), summary.Selected)
	var body strings.Builder
	fmt.Fprintf(&body, "Export pass finished with failures.\n\n")
	fmt.Fprintf(&body, "Selected:   %d\n", summary.Selected)
	fmt.Fprintf(&body, "Exported:   %d\n", summary.Exported)
	fmt.Fprintf(&body, "Duplicates: %d\n", summary.Duplicates)
	fmt.Fprintf(&body, "Failures:\n")
	for _, e := range summary.Errors {
		fmt.Fprintf(&body, "  - %s\n", e)
	}
	if err := w.mailer.Send(ctx, subject, body.String()); err != nil {
		log.Printf("exportWorker: sending failure summary: %v", err)
	}
}
