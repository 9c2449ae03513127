package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fakturio/internal/port"
)

// MockDocumentSource is a mock implementation of port.DocumentSource.
type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) ListDocuments(ctx context.Context, folder string) ([]port.DocumentRef, error) {
	args := m.Called(ctx, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.DocumentRef), args.Error(1)
}

func (m *MockDocumentSource) DownloadDocument(ctx context.Context, id string) (*port.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Document), args.Error(1)
}
