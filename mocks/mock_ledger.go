package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fakturio/internal/domain"
)

// MockLedger is a mock implementation of port.Ledger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) HasExpenseWithVariable(ctx context.Context, variableSymbol string) (bool, error) {
	args := m.Called(ctx, variableSymbol)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) GetOrCreateClient(ctx context.Context, name, taxID string) (string, error) {
	args := m.Called(ctx, name, taxID)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) CreateExpense(ctx context.Context, inv *domain.CanonicalInvoice, clientID, sourceName string) (string, error) {
	args := m.Called(ctx, inv, clientID, sourceName)
	return args.String(0), args.Error(1)
}
