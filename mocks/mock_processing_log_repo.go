package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fakturio/internal/domain"
)

// MockProcessingLogRepo is a mock implementation of port.ProcessingLogRepository.
type MockProcessingLogRepo struct {
	mock.Mock
}

func (m *MockProcessingLogRepo) Create(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockProcessingLogRepo) ListRecent(ctx context.Context, limit int) ([]domain.ProcessingLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingLogEntry), args.Error(1)
}

func (m *MockProcessingLogRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingLogEntry), args.Error(1)
}
