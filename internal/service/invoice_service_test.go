package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fakturio/internal/domain"
	"fakturio/internal/parser"
	"fakturio/internal/port"
	"fakturio/internal/service"
	"fakturio/mocks"
)

const confidenceThreshold = 60

type serviceFixture struct {
	repo      *mocks.MockInvoiceRepo
	source    *mocks.MockDocumentSource
	extractor *mocks.MockInvoiceExtractor
	ledger    *mocks.MockLedger
	svc       service.InvoiceService
	company   domain.CompanyConfig
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      &mocks.MockInvoiceRepo{},
		source:    &mocks.MockDocumentSource{},
		extractor: &mocks.MockInvoiceExtractor{},
		ledger:    &mocks.MockLedger{},
		company:   domain.CompanyConfig{ID: "acme", Name: "Acme s.r.o.", SourcePrefix: "inbox", TaxID: "99999999"},
	}
	f.svc = service.NewInvoiceService(
		f.repo, f.source, parser.NewChain(), f.extractor, f.ledger,
		service.NewEventLogger(nil), []domain.CompanyConfig{f.company}, confidenceThreshold,
	)
	return f
}

func docRef(id string) port.DocumentRef {
	return port.DocumentRef{ID: id, Name: id, ContentType: "application/octet-stream"}
}

func extracted(confidence int) *domain.CanonicalInvoice {
	return &domain.CanonicalInvoice{
		IsInvoice:  true,
		Confidence: confidence,
		Supplier:   domain.Party{Name: "Supplier s.r.o.", TaxID: "12345678"},
		Invoice: domain.InvoiceMeta{
			Number:         "INV-001",
			VariableSymbol: "20240001",
			Currency:       "CZK",
		},
		Totals: domain.Totals{Total: 100},
	}
}

func (f *serviceFixture) expectFreshDocument(ref port.DocumentRef, inv *domain.CanonicalInvoice) {
	f.source.On("ListDocuments", mock.Anything, "inbox").Return([]port.DocumentRef{ref}, nil)
	f.repo.On("FindBySourceDocument", mock.Anything, ref.ID).Return(nil, domain.ErrInvoiceNotFound)
	f.source.On("DownloadDocument", mock.Anything, ref.ID).
		Return(&port.Document{Bytes: []byte("raw"), ContentType: ref.ContentType}, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything, ref.ContentType).Return(inv, nil)
}

func TestProcessCompany_NewInvoiceGoesPending(t *testing.T) {
	f := newFixture(t)
	ref := docRef("inbox/a.bin")
	f.expectFreshDocument(ref, extracted(95))
	f.repo.On("FindByNaturalKey", mock.Anything, "12345678", "INV-001").Return(nil, domain.ErrInvoiceNotFound)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, "20240001").Return(false, nil)

	var created *domain.InvoiceRecord
	f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.InvoiceRecord)
	}).Return(nil)

	require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))

	require.NotNil(t, created)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, "acme", created.Company)
	assert.Equal(t, "inbox/a.bin", created.SourceDocumentID)
	assert.Equal(t, "12345678", created.SupplierTaxID)
	assert.NotEmpty(t, created.RawJSON)
}

func TestProcessCompany_IdempotentSkip(t *testing.T) {
	f := newFixture(t)
	ref := docRef("inbox/seen.bin")
	f.source.On("ListDocuments", mock.Anything, "inbox").Return([]port.DocumentRef{ref}, nil)
	f.repo.On("FindBySourceDocument", mock.Anything, ref.ID).
		Return(&domain.InvoiceRecord{ID: uuid.New(), Status: domain.StatusExported}, nil)

	require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))

	f.source.AssertNotCalled(t, "DownloadDocument", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessCompany_ConfidenceBoundary(t *testing.T) {
	cases := []struct {
		confidence int
		wantStatus domain.InvoiceStatus
	}{
		{confidence: 59, wantStatus: domain.StatusSkipped},
		{confidence: 60, wantStatus: domain.StatusPending},
	}
	for _, tc := range cases {
		f := newFixture(t)
		ref := docRef("inbox/c.bin")
		f.expectFreshDocument(ref, extracted(tc.confidence))
		f.repo.On("FindByNaturalKey", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrInvoiceNotFound)
		f.ledger.On("HasExpenseWithVariable", mock.Anything, mock.Anything).Return(false, nil)

		var created *domain.InvoiceRecord
		f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.InvoiceRecord)
		}).Return(nil)

		require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))
		require.NotNil(t, created, "confidence %d", tc.confidence)
		assert.Equal(t, tc.wantStatus, created.Status, "confidence %d", tc.confidence)
	}
}

func TestProcessCompany_NotAnInvoice(t *testing.T) {
	f := newFixture(t)
	ref := docRef("inbox/letter.bin")
	inv := extracted(90)
	inv.IsInvoice = false
	f.expectFreshDocument(ref, inv)

	var created *domain.InvoiceRecord
	f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.InvoiceRecord)
	}).Return(nil)

	require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusSkipped, created.Status)
	assert.Equal(t, "Not recognized as invoice", created.ErrorMessage)
	f.repo.AssertNotCalled(t, "FindByNaturalKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessCompany_LocalDuplicateWinsOverRemote(t *testing.T) {
	f := newFixture(t)
	ref := docRef("inbox/dup.bin")
	f.expectFreshDocument(ref, extracted(95))
	f.repo.On("FindByNaturalKey", mock.Anything, "12345678", "INV-001").
		Return(&domain.InvoiceRecord{ID: uuid.New()}, nil)

	var created *domain.InvoiceRecord
	f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.InvoiceRecord)
	}).Return(nil)

	require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusDuplicate, created.Status)
	f.ledger.AssertNotCalled(t, "HasExpenseWithVariable", mock.Anything, mock.Anything)
}

func TestProcessCompany_RemoteCheckFailsOpen(t *testing.T) {
	f := newFixture(t)
	ref := docRef("inbox/open.bin")
	f.expectFreshDocument(ref, extracted(95))
	f.repo.On("FindByNaturalKey", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrInvoiceNotFound)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, "20240001").
		Return(false, errors.New("ledger unreachable"))

	var created *domain.InvoiceRecord
	f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.InvoiceRecord)
	}).Return(nil)

	require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusPending, created.Status, "an unreachable ledger must not block ingestion")
}

func TestProcessCompany_DownloadFailureCreatesSentinel(t *testing.T) {
	f := newFixture(t)
	ref := docRef("inbox/broken.bin")
	f.source.On("ListDocuments", mock.Anything, "inbox").Return([]port.DocumentRef{ref}, nil)
	f.repo.On("FindBySourceDocument", mock.Anything, ref.ID).Return(nil, domain.ErrInvoiceNotFound)
	f.source.On("DownloadDocument", mock.Anything, ref.ID).Return(nil, errors.New("boom"))

	var created *domain.InvoiceRecord
	f.repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.InvoiceRecord)
	}).Return(nil)

	require.NoError(t, f.svc.ProcessCompany(context.Background(), &f.company))

	require.NotNil(t, created)
	assert.Equal(t, domain.StatusExportError, created.Status)
	assert.Equal(t, "ERROR", created.SupplierName)
	assert.Contains(t, created.InvoiceNumber, "ERR-")
	assert.Equal(t, ref.ID, created.SourceDocumentID, "sentinel still claims the source document")
	assert.Contains(t, created.ErrorMessage, "boom")
}

func pendingRecord(f *serviceFixture) domain.InvoiceRecord {
	inv := extracted(95)
	return domain.InvoiceRecord{
		ID:                 uuid.New(),
		Company:            f.company.ID,
		Status:             domain.StatusPending,
		SupplierName:       inv.Supplier.Name,
		SupplierTaxID:      inv.Supplier.TaxID,
		InvoiceNumber:      inv.Invoice.Number,
		VariableSymbol:     inv.Invoice.VariableSymbol,
		SourceDocumentName: "a.bin",
		RawJSON:            mustJSON(inv),
	}
}

func TestExportPending_Success(t *testing.T) {
	f := newFixture(t)
	rec := pendingRecord(f)
	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, rec.VariableSymbol).Return(false, nil)
	f.ledger.On("GetOrCreateClient", mock.Anything, "Supplier s.r.o.", "12345678").Return("cl-1", nil)
	f.ledger.On("CreateExpense", mock.Anything, mock.Anything, "cl-1", "a.bin").Return("exp-9", nil)
	f.repo.On("MarkExported", mock.Anything, rec.ID, "exp-9", mock.Anything).Return(nil)

	summary, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Selected)
	assert.Equal(t, 1, summary.Exported)
	assert.Empty(t, summary.Errors)
}

func TestExportPending_PreassignedClientSkipsLookup(t *testing.T) {
	f := newFixture(t)
	f.company.LedgerClientID = "cl-fixed"
	f.svc = service.NewInvoiceService(
		f.repo, f.source, parser.NewChain(), f.extractor, f.ledger,
		service.NewEventLogger(nil), []domain.CompanyConfig{f.company}, confidenceThreshold,
	)
	rec := pendingRecord(f)
	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, mock.Anything).Return(false, nil)
	f.ledger.On("CreateExpense", mock.Anything, mock.Anything, "cl-fixed", "a.bin").Return("exp-1", nil)
	f.repo.On("MarkExported", mock.Anything, rec.ID, "exp-1", mock.Anything).Return(nil)

	_, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	f.ledger.AssertNotCalled(t, "GetOrCreateClient", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportPending_RemoteDuplicateNotSubmitted(t *testing.T) {
	f := newFixture(t)
	rec := pendingRecord(f)
	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, rec.VariableSymbol).Return(true, nil)
	f.repo.On("UpdateStatus", mock.Anything, rec.ID, domain.StatusDuplicate, "Already present in ledger").Return(nil)

	summary, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 0, summary.Exported)
	f.ledger.AssertNotCalled(t, "CreateExpense", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportPending_EmptySymbolRecheckedByInvoiceNumber(t *testing.T) {
	f := newFixture(t)
	inv := extracted(95)
	inv.Invoice.VariableSymbol = ""
	rec := pendingRecord(f)
	rec.VariableSymbol = ""
	rec.RawJSON = mustJSON(inv)

	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	// The payload falls back to the invoice number for the variable field, so
	// the duplicate re-check must query the same key.
	f.ledger.On("HasExpenseWithVariable", mock.Anything, "INV-001").Return(true, nil)
	f.repo.On("UpdateStatus", mock.Anything, rec.ID, domain.StatusDuplicate, "Already present in ledger").Return(nil)

	summary, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 0, summary.Exported)
	f.ledger.AssertNotCalled(t, "CreateExpense", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertExpectations(t)
}

func TestExportPending_EmptySymbolNoDuplicateExports(t *testing.T) {
	f := newFixture(t)
	inv := extracted(95)
	inv.Invoice.VariableSymbol = ""
	rec := pendingRecord(f)
	rec.VariableSymbol = ""
	rec.RawJSON = mustJSON(inv)

	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, "INV-001").Return(false, nil)
	f.ledger.On("GetOrCreateClient", mock.Anything, "Supplier s.r.o.", "12345678").Return("cl-1", nil)
	f.ledger.On("CreateExpense", mock.Anything, mock.Anything, "cl-1", "a.bin").Return("exp-2", nil)
	f.repo.On("MarkExported", mock.Anything, rec.ID, "exp-2", mock.Anything).Return(nil)

	summary, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Exported)
	f.ledger.AssertExpectations(t)
}

func TestExportPending_RemoteCheckFailsClosed(t *testing.T) {
	f := newFixture(t)
	rec := pendingRecord(f)
	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	f.ledger.On("HasExpenseWithVariable", mock.Anything, rec.VariableSymbol).
		Return(false, errors.New("ledger down"))
	f.repo.On("UpdateStatus", mock.Anything, rec.ID, domain.StatusExportError, mock.Anything).Return(nil)

	summary, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 0, summary.Exported)
	f.ledger.AssertNotCalled(t, "CreateExpense", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportPending_MissingCompanyConfig(t *testing.T) {
	f := newFixture(t)
	rec := pendingRecord(f)
	rec.Company = "unknown"
	f.repo.On("ListPending", mock.Anything, 50).Return([]domain.InvoiceRecord{rec}, nil)
	f.repo.On("UpdateStatus", mock.Anything, rec.ID, domain.StatusExportError, mock.Anything).Return(nil)

	summary, err := f.svc.ExportPending(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "company configuration missing")
}

func TestRetryInvoice(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	errored := &domain.InvoiceRecord{ID: id, Status: domain.StatusExportError}
	reset := &domain.InvoiceRecord{ID: id, Status: domain.StatusPending}

	f.repo.On("GetByID", mock.Anything, id).Return(errored, nil).Once()
	f.repo.On("UpdateStatus", mock.Anything, id, domain.StatusPending, "").Return(nil)
	f.repo.On("GetByID", mock.Anything, id).Return(reset, nil).Once()

	rec, err := f.svc.RetryInvoice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rec.Status)
}

func TestRetryInvoice_NotRetriable(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, id).Return(&domain.InvoiceRecord{ID: id, Status: domain.StatusExported}, nil)

	_, err := f.svc.RetryInvoice(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotRetriable)
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
