package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fakturio/internal/domain"
)

// MockInvoiceExtractor is a mock implementation of port.InvoiceExtractor.
type MockInvoiceExtractor struct {
	mock.Mock
}

func (m *MockInvoiceExtractor) Extract(ctx context.Context, data []byte, contentType string) (*domain.CanonicalInvoice, error) {
	args := m.Called(ctx, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CanonicalInvoice), args.Error(1)
}
