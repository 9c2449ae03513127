package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fakturio/internal/domain"
	"fakturio/internal/port"
)

type processingLogRepo struct {
	db *sqlx.DB
}

// NewProcessingLogRepo creates a new PostgreSQL-backed ProcessingLogRepository.
func NewProcessingLogRepo(db *sqlx.DB) port.ProcessingLogRepository {
	return &processingLogRepo{db: db}
}

func (r *processingLogRepo) Create(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_log (id, invoice_id, level, source, message, details, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.InvoiceID, entry.Level, entry.Source, entry.Message, entry.Details, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("processingLogRepo.Create: %w", err)
	}
	return nil
}

func (r *processingLogRepo) ListRecent(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error) {
	var entries []domain.ProcessingLogEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM processing_log ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("processingLogRepo.ListRecent: %w", err)
	}
	return entries, nil
}

func (r *processingLogRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	var entries []domain.ProcessingLogEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM processing_log WHERE invoice_id = $1 ORDER BY timestamp ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("processingLogRepo.ListByInvoice: %w", err)
	}
	return entries, nil
}
