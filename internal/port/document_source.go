package port

import (
	"context"
	"time"
)

// DocumentRef describes one document available from a source, without its content.
type DocumentRef struct {
	ID          string
	Name        string
	ContentType string
	CreatedAt   time.Time
}

// Document is a downloaded source document.
type Document struct {
	Bytes       []byte
	ContentType string
}

// DocumentSource abstracts where invoice documents come from (S3 inbox,
// mailbox export, manual upload area). Implementations return byte streams
// plus metadata; they never interpret document content.
type DocumentSource interface {
	ListDocuments(ctx context.Context, folder string) ([]DocumentRef, error)
	DownloadDocument(ctx context.Context, id string) (*Document, error)
}
