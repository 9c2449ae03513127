package port

import (
	"context"

	"fakturio/internal/domain"
)

// InvoiceExtractor abstracts the external AI extraction service. It must
// return a schema-conformant CanonicalInvoice or a typed error when the
// service response contains no parseable JSON object.
type InvoiceExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*domain.CanonicalInvoice, error)
}
