package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fakturio/internal/domain"
)

// InvoiceRepository defines the contract for invoice record persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, rec *domain.InvoiceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	// FindBySourceDocument looks up the record ingested from the given source
	// document id. Returns domain.ErrInvoiceNotFound when none exists.
	FindBySourceDocument(ctx context.Context, sourceDocumentID string) (*domain.InvoiceRecord, error)
	// FindByNaturalKey looks up a record by (supplier tax id, invoice number).
	// Returns domain.ErrInvoiceNotFound when none exists.
	FindByNaturalKey(ctx context.Context, supplierTaxID, invoiceNumber string) (*domain.InvoiceRecord, error)
	ListPending(ctx context.Context, limit int) ([]domain.InvoiceRecord, error)
	List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.InvoiceRecord, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus, errorMessage string) error
	MarkExported(ctx context.Context, id uuid.UUID, externalID string, exportedAt time.Time) error
	// ResetErrored flips EXPORT_ERROR records updated before the cutoff back to
	// PENDING so a later export pass re-selects them. Returns the number reset.
	ResetErrored(ctx context.Context, updatedBefore time.Time) (int, error)
}

// ProcessingLogRepository defines the contract for the append-only event log.
type ProcessingLogRepository interface {
	Create(ctx context.Context, entry *domain.ProcessingLogEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.ProcessingLogEntry, error)
}
