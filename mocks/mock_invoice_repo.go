package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fakturio/internal/domain"
)

// MockInvoiceRepo is a mock implementation of port.InvoiceRepository.
type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Create(ctx context.Context, rec *domain.InvoiceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepo) FindBySourceDocument(ctx context.Context, sourceDocumentID string) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, sourceDocumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepo) FindByNaturalKey(ctx context.Context, supplierTaxID, invoiceNumber string) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, supplierTaxID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepo) ListPending(ctx context.Context, limit int) ([]domain.InvoiceRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceRepo) List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.InvoiceRecord), args.Int(1), args.Error(2)
}

func (m *MockInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus, errorMessage string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}

func (m *MockInvoiceRepo) MarkExported(ctx context.Context, id uuid.UUID, externalID string, exportedAt time.Time) error {
	args := m.Called(ctx, id, externalID, exportedAt)
	return args.Error(0)
}

func (m *MockInvoiceRepo) ResetErrored(ctx context.Context, updatedBefore time.Time) (int, error) {
	args := m.Called(ctx, updatedBefore)
	return args.Int(0), args.Error(1)
}
