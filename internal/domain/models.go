package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvoiceRecord is the persisted lifecycle state of one ingested document.
// SourceDocumentID is unique per record and acts as the ingestion idempotency
// key; (SupplierTaxID, InvoiceNumber) is the natural key used for duplicate
// detection.
type InvoiceRecord struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	Company            string          `db:"company" json:"company"`
	Status             InvoiceStatus   `db:"status" json:"status"`
	SupplierName       string          `db:"supplier_name" json:"supplier_name"`
	SupplierTaxID      string          `db:"supplier_tax_id" json:"supplier_tax_id"`
	SupplierVATID      string          `db:"supplier_vat_id" json:"supplier_vat_id"`
	InvoiceNumber      string          `db:"invoice_number" json:"invoice_number"`
	VariableSymbol     string          `db:"variable_symbol" json:"variable_symbol"`
	DateIssued         string          `db:"date_issued" json:"date_issued"`
	DateDue            string          `db:"date_due" json:"date_due"`
	Total              float64         `db:"total" json:"total"`
	Currency           string          `db:"currency" json:"currency"`
	SourceType         SourceType      `db:"source_type" json:"source_type"`
	SourceDocumentID   string          `db:"source_document_id" json:"source_document_id"`
	SourceDocumentName string          `db:"source_document_name" json:"source_document_name"`
	RawJSON            json.RawMessage `db:"raw_json" json:"-"`
	Confidence         int             `db:"confidence" json:"confidence"`
	ExternalID         string          `db:"external_id" json:"external_id"`
	ErrorMessage       string          `db:"error_message" json:"error_message"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
	ExportedAt         *time.Time      `db:"exported_at" json:"exported_at"`
}

// ProcessingLogEntry is one append-only event in the processing audit trail.
// Entries are never mutated or deleted.
type ProcessingLogEntry struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	InvoiceID *uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Level     LogLevel   `db:"level" json:"level"`
	Source    string     `db:"source" json:"source"`
	Message   string     `db:"message" json:"message"`
	Details   string     `db:"details" json:"details,omitempty"`
	Timestamp time.Time  `db:"timestamp" json:"timestamp"`
}

// CompanyConfig identifies one tenant company and how its documents are
// found and exported. Resolved once at startup from configuration and passed
// explicitly into the pipeline; no component reads the environment directly.
type CompanyConfig struct {
	ID             string
	Name           string
	TaxID          string
	SourcePrefix   string   // document source folder/prefix holding this company's inbox
	LedgerClientID string   // pre-assigned ledger client id, optional
	TextPatterns   []string // lowercase substrings identifying this company in document text
}

// MatchesText reports whether any of the company's text patterns occurs in
// the given document text. Used to verify that a document found under a
// company's source prefix actually belongs to that company.
func (c *CompanyConfig) MatchesText(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range c.TextPatterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
