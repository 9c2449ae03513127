package domain

// InvoiceStatus represents the lifecycle state of an ingested invoice.
type InvoiceStatus string

const (
	// StatusPending means the invoice passed all ingest gates and awaits export.
	StatusPending InvoiceStatus = "PENDING"
	// StatusExported means the invoice was accepted by the ledger. Terminal.
	StatusExported InvoiceStatus = "EXPORTED"
	// StatusExportError means export (or ingest) failed; retriable via an explicit reset.
	StatusExportError InvoiceStatus = "EXPORT_ERROR"
	// StatusSkipped means the document was rejected softly (not an invoice, low confidence). Terminal.
	StatusSkipped InvoiceStatus = "SKIPPED"
	// StatusDuplicate means a local or remote duplicate was found. Terminal.
	StatusDuplicate InvoiceStatus = "DUPLICATE"
)

// ValidStatuses lists every InvoiceStatus accepted by the API filter.
var ValidStatuses = map[InvoiceStatus]bool{
	StatusPending:     true,
	StatusExported:    true,
	StatusExportError: true,
	StatusSkipped:     true,
	StatusDuplicate:   true,
}

// SourceType identifies where a document came from.
type SourceType string

const (
	SourceS3     SourceType = "S3"
	SourceEmail  SourceType = "EMAIL"
	SourceUpload SourceType = "UPLOAD"
	SourceURL    SourceType = "URL"
)

// LogLevel is the severity of a processing log entry.
type LogLevel string

const (
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
)
