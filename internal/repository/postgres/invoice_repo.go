package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fakturio/internal/domain"
	"fakturio/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, rec *domain.InvoiceRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `INSERT INTO invoices (
		id, company, status,
		supplier_name, supplier_tax_id, supplier_vat_id,
		invoice_number, variable_symbol, date_issued, date_due,
		total, currency,
		source_type, source_document_id, source_document_name,
		raw_json, confidence, external_id, error_message,
		created_at, updated_at, exported_at
	) VALUES (
		$1, $2, $3,
		$4, $5, $6,
		$7, $8, $9, $10,
		$11, $12,
		$13, $14, $15,
		$16, $17, $18, $19,
		$20, $21, $22
	)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Company, rec.Status,
		rec.SupplierName, rec.SupplierTaxID, rec.SupplierVATID,
		rec.InvoiceNumber, rec.VariableSymbol, rec.DateIssued, rec.DateDue,
		rec.Total, rec.Currency,
		rec.SourceType, rec.SourceDocumentID, rec.SourceDocumentName,
		rec.RawJSON, rec.Confidence, rec.ExternalID, rec.ErrorMessage,
		rec.CreatedAt, rec.UpdatedAt, rec.ExportedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") && strings.Contains(err.Error(), "source_document_id") {
			return domain.ErrDuplicateSourceDoc
		}
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	var rec domain.InvoiceRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *invoiceRepo) FindBySourceDocument(ctx context.Context, sourceDocumentID string) (*domain.InvoiceRecord, error) {
	var rec domain.InvoiceRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT * FROM invoices WHERE source_document_id = $1", sourceDocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.FindBySourceDocument: %w", err)
	}
	return &rec, nil
}

func (r *invoiceRepo) FindByNaturalKey(ctx context.Context, supplierTaxID, invoiceNumber string) (*domain.InvoiceRecord, error) {
	var rec domain.InvoiceRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT * FROM invoices
		 WHERE supplier_tax_id = $1 AND invoice_number = $2
		 ORDER BY created_at ASC LIMIT 1`,
		supplierTaxID, invoiceNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.FindByNaturalKey: %w", err)
	}
	return &rec, nil
}

func (r *invoiceRepo) ListPending(ctx context.Context, limit int) ([]domain.InvoiceRecord, error) {
	var recs []domain.InvoiceRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT * FROM invoices WHERE status = $1
		 ORDER BY created_at ASC LIMIT $2`,
		domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListPending: %w", err)
	}
	return recs, nil
}

func (r *invoiceRepo) List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int
	err := r.db.GetContext(ctx, &total,
		fmt.Sprintf("SELECT COUNT(*) FROM invoices %s", where), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List count: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT * FROM invoices %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var recs []domain.InvoiceRecord
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	return recs, total, nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus, errorMessage string) error {
	if !domain.ValidStatuses[status] {
		return domain.ErrInvalidStatus
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.UpdateStatus: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invoiceRepo.UpdateStatus rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) MarkExported(ctx context.Context, id uuid.UUID, externalID string, exportedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET
			status = $1, external_id = $2, exported_at = $3,
			error_message = '', updated_at = $4
		 WHERE id = $5`,
		domain.StatusExported, externalID, exportedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.MarkExported: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invoiceRepo.MarkExported rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) ResetErrored(ctx context.Context, updatedBefore time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $1, updated_at = $2
		 WHERE status = $3 AND updated_at < $4`,
		domain.StatusPending, time.Now().UTC(), domain.StatusExportError, updatedBefore)
	if err != nil {
		return 0, fmt.Errorf("invoiceRepo.ResetErrored: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("invoiceRepo.ResetErrored rows: %w", err)
	}
	return int(rows), nil
}
