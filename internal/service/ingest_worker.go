package service

import (
	"context"
	"log"
	"time"
)

// IngestWorkerConfig holds settings for the ingest worker.
type IngestWorkerConfig struct {
	Interval time.Duration
}

// IngestWorker periodically sweeps every configured company's source folder
// for new documents. Passes are strictly sequential; a pass that outlives the
// interval simply delays the next one.
type IngestWorker struct {
	service InvoiceService
	cfg     IngestWorkerConfig
}

// NewIngestWorker creates a new IngestWorker.
func NewIngestWorker(service InvoiceService, cfg IngestWorkerConfig) *IngestWorker {
	return &IngestWorker{service: service, cfg: cfg}
}

// Start runs the polling loop until ctx is canceled. An initial pass runs
// immediately on startup.
func (w *IngestWorker) Start(ctx context.Context) {
	log.Printf("ingestWorker: started (interval=%s)", w.cfg.Interval)

	w.runPass(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("ingestWorker: shutdown complete")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *IngestWorker) runPass(ctx context.Context) {
	if err := w.service.ProcessAll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("ingestWorker: pass failed: %v", err)
	}
}
