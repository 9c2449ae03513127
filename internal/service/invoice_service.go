package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fakturio/internal/domain"
	"fakturio/internal/parser"
	"fakturio/internal/parser/packeta"
	"fakturio/internal/port"
)

// ExportSummary reports the outcome of one export pass.
type ExportSummary struct {
	Selected   int
	Exported   int
	Duplicates int
	Errors     []string
}

// InvoiceService defines the invoice pipeline contract.
type InvoiceService interface {
	// ProcessCompany ingests every new document from the company's source
	// folder. Failures are isolated per document; the pass itself only fails
	// when the source listing fails.
	ProcessCompany(ctx context.Context, company *domain.CompanyConfig) error
	// ProcessAll runs ProcessCompany for every configured company, sequentially.
	ProcessAll(ctx context.Context) error
	// ExportPending submits up to batchSize pending invoices to the ledger.
	ExportPending(ctx context.Context, batchSize int) (*ExportSummary, error)
	// RetryInvoice flips an EXPORT_ERROR invoice back to PENDING.
	RetryInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.InvoiceRecord, int, error)
}

type invoiceService struct {
	repo                port.InvoiceRepository
	source              port.DocumentSource
	chain               *parser.Chain
	extractor           port.InvoiceExtractor
	ledger              port.Ledger
	events              *EventLogger
	companies           []domain.CompanyConfig
	confidenceThreshold int
}

// NewInvoiceService creates the invoice pipeline service.
func NewInvoiceService(
	repo port.InvoiceRepository,
	source port.DocumentSource,
	chain *parser.Chain,
	extractor port.InvoiceExtractor,
	ledger port.Ledger,
	events *EventLogger,
	companies []domain.CompanyConfig,
	confidenceThreshold int,
) InvoiceService {
	return &invoiceService{
		repo:                repo,
		source:              source,
		chain:               chain,
		extractor:           extractor,
		ledger:              ledger,
		events:              events,
		companies:           companies,
		confidenceThreshold: confidenceThreshold,
	}
}

func (s *invoiceService) ProcessAll(ctx context.Context) error {
	for i := range s.companies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.ProcessCompany(ctx, &s.companies[i]); err != nil {
			s.events.Error(ctx, "ingest", fmt.Sprintf("company %s: listing documents", s.companies[i].ID), nil, err)
		}
	}
	return nil
}

func (s *invoiceService) ProcessCompany(ctx context.Context, company *domain.CompanyConfig) error {
	refs, err := s.source.ListDocuments(ctx, company.SourcePrefix)
	if err != nil {
		return fmt.Errorf("listing documents for company %s: %w", company.ID, err)
	}
	s.events.Info(ctx, "ingest", fmt.Sprintf("company %s: %d documents in source", company.ID, len(refs)), nil, nil)

	for i := range refs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ref := &refs[i]
		if err := s.processDocument(ctx, company, ref); err != nil {
			// One bad document must not stop the batch. Record a sentinel so
			// the failure is visible and the document is not retried forever.
			s.events.Error(ctx, "ingest", fmt.Sprintf("processing %s", ref.Name), nil, err)
			s.createErrorSentinel(ctx, company, ref, err)
		}
	}
	return nil
}

func (s *invoiceService) processDocument(ctx context.Context, company *domain.CompanyConfig, ref *port.DocumentRef) error {
	// Idempotency: a document that already produced a record is done,
	// whatever status that record ended in.
	if _, err := s.repo.FindBySourceDocument(ctx, ref.ID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrInvoiceNotFound) {
		return fmt.Errorf("idempotency lookup: %w", err)
	}

	doc, err := s.source.DownloadDocument(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}

	inv, parserName, err := s.extractInvoice(ctx, doc)
	if err != nil {
		return err
	}

	if len(company.TextPatterns) > 0 && parserName != "" {
		// Deterministic parsers see the raw text; warn when the document does
		// not look like it belongs to the company whose folder it came from.
		if rawText, textErr := extractedText(doc); textErr == nil && !company.MatchesText(rawText) {
			s.events.Warn(ctx, "ingest", fmt.Sprintf("%s: text does not match company %s patterns", ref.Name, company.ID), nil, nil)
		}
	}

	rec, err := s.buildRecord(ctx, company, ref, inv, parserName)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicateSourceDoc) {
			// Raced with another pass over the same document.
			return nil
		}
		return fmt.Errorf("persisting record: %w", err)
	}
	s.events.Info(ctx, "ingest", fmt.Sprintf("%s: %s (%s)", ref.Name, rec.Status, parserName), &rec.ID, rec.ErrorMessage)
	return nil
}

// extractInvoice obtains a canonical invoice from the document, preferring
// the deterministic layout parsers and falling back to the AI extractor.
// parserName is empty when the extractor produced the result.
func (s *invoiceService) extractInvoice(ctx context.Context, doc *port.Document) (*domain.CanonicalInvoice, string, error) {
	if rawText, err := extractedText(doc); err == nil && rawText != "" {
		if inv, name, ok := s.chain.Parse(rawText); ok {
			return inv, name, nil
		}
	}

	inv, err := s.extractor.Extract(ctx, doc.Bytes, doc.ContentType)
	if err != nil {
		return nil, "", fmt.Errorf("extracting: %w", err)
	}
	return inv, "", nil
}

// extractedText returns the document's text for deterministic parsing: PDFs
// via text extraction, plain text as-is. Other types carry no usable text.
func extractedText(doc *port.Document) (string, error) {
	switch doc.ContentType {
	case "application/pdf":
		return parser.ExtractText(doc.Bytes)
	case "text/plain":
		return string(doc.Bytes), nil
	}
	return "", domain.ErrUnsupportedSourceType
}

// buildRecord applies the ingest gates in order: invoice recognition,
// confidence, local natural-key duplicate, then remote ledger duplicate. The
// remote check fails open: an unreachable ledger must not block ingestion,
// the export path re-checks before submitting.
func (s *invoiceService) buildRecord(ctx context.Context, company *domain.CompanyConfig, ref *port.DocumentRef, inv *domain.CanonicalInvoice, parserName string) (*domain.InvoiceRecord, error) {
	rawJSON, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("marshaling canonical invoice: %w", err)
	}

	rec := &domain.InvoiceRecord{
		Company:            company.ID,
		SupplierName:       inv.Supplier.Name,
		SupplierTaxID:      inv.Supplier.TaxID,
		SupplierVATID:      inv.Supplier.VATID,
		InvoiceNumber:      inv.Invoice.Number,
		VariableSymbol:     inv.Invoice.VariableSymbol,
		DateIssued:         inv.Invoice.DateIssued,
		DateDue:            inv.Invoice.DateDue,
		Total:              inv.Totals.Total,
		Currency:           inv.Invoice.Currency,
		SourceType:         domain.SourceS3,
		SourceDocumentID:   ref.ID,
		SourceDocumentName: ref.Name,
		RawJSON:            rawJSON,
		Confidence:         inv.Confidence,
	}

	switch {
	case !inv.IsInvoice:
		rec.Status = domain.StatusSkipped
		rec.ErrorMessage = "Not recognized as invoice"
	case inv.Confidence < s.confidenceThreshold:
		rec.Status = domain.StatusSkipped
		rec.ErrorMessage = fmt.Sprintf("Low confidence: %d%%", inv.Confidence)
	default:
		rec.Status = domain.StatusPending
	}
	if rec.Status != domain.StatusPending {
		return rec, nil
	}

	// Local duplicate: same supplier and invoice number already ingested.
	if rec.SupplierTaxID != "" && rec.InvoiceNumber != "" {
		if _, err := s.repo.FindByNaturalKey(ctx, rec.SupplierTaxID, rec.InvoiceNumber); err == nil {
			rec.Status = domain.StatusDuplicate
			rec.ErrorMessage = "Duplicate of existing record"
			return rec, nil
		} else if !errors.Is(err, domain.ErrInvoiceNotFound) {
			return nil, fmt.Errorf("natural key lookup: %w", err)
		}
	}

	// Remote duplicate, fail open.
	if rec.VariableSymbol != "" {
		exists, err := s.ledger.HasExpenseWithVariable(ctx, rec.VariableSymbol)
		if err != nil {
			s.events.Warn(ctx, "ingest", fmt.Sprintf("%s: ledger duplicate check unavailable", ref.Name), nil, err)
		} else if exists {
			rec.Status = domain.StatusDuplicate
			rec.ErrorMessage = "Already present in ledger"
		}
	}
	return rec, nil
}

// createErrorSentinel persists a minimal EXPORT_ERROR record for a document
// that failed before a canonical invoice existed, so the failure shows up in
// listings and the document is not reprocessed on the next pass.
func (s *invoiceService) createErrorSentinel(ctx context.Context, company *domain.CompanyConfig, ref *port.DocumentRef, cause error) {
	rec := &domain.InvoiceRecord{
		Company:            company.ID,
		Status:             domain.StatusExportError,
		SupplierName:       "ERROR",
		InvoiceNumber:      fmt.Sprintf("ERR-%d", time.Now().Unix()),
		SourceType:         domain.SourceS3,
		SourceDocumentID:   ref.ID,
		SourceDocumentName: ref.Name,
		ErrorMessage:       cause.Error(),
	}
	if err := s.repo.Create(ctx, rec); err != nil && !errors.Is(err, domain.ErrDuplicateSourceDoc) {
		s.events.Error(ctx, "ingest", fmt.Sprintf("persisting error sentinel for %s", ref.Name), nil, err)
	}
}

func (s *invoiceService) ExportPending(ctx context.Context, batchSize int) (*ExportSummary, error) {
	recs, err := s.repo.ListPending(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("listing pending invoices: %w", err)
	}

	summary := &ExportSummary{Selected: len(recs)}
	for i := range recs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		rec := &recs[i]
		if err := s.exportOne(ctx, rec, summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", rec.SourceDocumentName, err))
			s.events.Error(ctx, "export", fmt.Sprintf("exporting %s", rec.SourceDocumentName), &rec.ID, err)
			if uerr := s.repo.UpdateStatus(ctx, rec.ID, domain.StatusExportError, err.Error()); uerr != nil {
				s.events.Error(ctx, "export", "recording export error", &rec.ID, uerr)
			}
		}
	}
	s.events.Info(ctx, "export",
		fmt.Sprintf("pass done: %d selected, %d exported, %d duplicates, %d errors",
			summary.Selected, summary.Exported, summary.Duplicates, len(summary.Errors)), nil, nil)
	return summary, nil
}

// exportOne submits a single pending invoice. The remote duplicate re-check
// fails closed here: an unreachable ledger marks the record EXPORT_ERROR
// rather than risking a double booking.
func (s *invoiceService) exportOne(ctx context.Context, rec *domain.InvoiceRecord, summary *ExportSummary) error {
	company := s.companyByID(rec.Company)
	if company == nil {
		return domain.ErrCompanyConfigMissing
	}

	// The submitted variable field falls back to the invoice number when the
	// symbol is empty, so the re-check has to key on the same value.
	dedupKey := rec.VariableSymbol
	if dedupKey == "" {
		dedupKey = rec.InvoiceNumber
	}
	if dedupKey != "" {
		exists, err := s.ledger.HasExpenseWithVariable(ctx, dedupKey)
		if err != nil {
			return fmt.Errorf("ledger duplicate check: %w", err)
		}
		if exists {
			summary.Duplicates++
			if err := s.repo.UpdateStatus(ctx, rec.ID, domain.StatusDuplicate, "Already present in ledger"); err != nil {
				return fmt.Errorf("recording duplicate: %w", err)
			}
			s.events.Info(ctx, "export", fmt.Sprintf("%s: duplicate in ledger, not submitted", rec.SourceDocumentName), &rec.ID, nil)
			return nil
		}
	}

	var inv domain.CanonicalInvoice
	if err := json.Unmarshal(rec.RawJSON, &inv); err != nil {
		return fmt.Errorf("decoding stored invoice: %w", err)
	}

	clientID := company.LedgerClientID
	if clientID == "" {
		var err error
		clientID, err = s.ledger.GetOrCreateClient(ctx, inv.Supplier.Name, inv.Supplier.TaxID)
		if err != nil {
			return fmt.Errorf("resolving ledger client: %w", err)
		}
	}

	externalID, err := s.ledger.CreateExpense(ctx, &inv, clientID, rec.SourceDocumentName)
	if err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}

	if err := s.repo.MarkExported(ctx, rec.ID, externalID, time.Now().UTC()); err != nil {
		return fmt.Errorf("marking exported: %w", err)
	}
	summary.Exported++
	s.events.Info(ctx, "export", fmt.Sprintf("%s: exported as %s", rec.SourceDocumentName, externalID), &rec.ID, nil)
	return nil
}

func (s *invoiceService) RetryInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusExportError {
		return nil, domain.ErrNotRetriable
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.StatusPending, ""); err != nil {
		return nil, err
	}
	s.events.Info(ctx, "export", "invoice queued for retry", &rec.ID, nil)
	return s.repo.GetByID(ctx, id)
}

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *invoiceService) List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	return s.repo.List(ctx, status, offset, limit)
}

func (s *invoiceService) companyByID(id string) *domain.CompanyConfig {
	for i := range s.companies {
		if s.companies[i].ID == id {
			return &s.companies[i]
		}
	}
	return nil
}

// NewDefaultChain builds the layout parser chain used in production.
func NewDefaultChain() *parser.Chain {
	return parser.NewChain(packeta.New())
}
