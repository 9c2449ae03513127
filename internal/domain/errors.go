package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrDuplicateSourceDoc    = errors.New("invoice already exists for this source document")
	ErrInvalidStatus         = errors.New("invalid invoice status")
	ErrNotRetriable          = errors.New("invoice is not in a retriable state")
	ErrCompanyConfigMissing  = errors.New("company configuration missing")
	ErrUnsupportedSourceType = errors.New("unsupported source document type")
)
