package domain

// CanonicalInvoice is the normalized invoice representation shared by every
// producer: the deterministic layout parsers and the external AI extractor
// both emit it, and the export step replays it from the persisted raw JSON.
// The wire field names (ico, dic, variable_symbol, ...) are fixed by that
// shared contract and must not change.
type CanonicalInvoice struct {
	IsInvoice         bool        `json:"is_invoice"`
	Confidence        int         `json:"confidence"`
	CompanyIdentifier string      `json:"my_company_identifier,omitempty"`
	Supplier          Party       `json:"supplier"`
	Buyer             Party       `json:"buyer"`
	Invoice           InvoiceMeta `json:"invoice"`
	Items             []LineItem  `json:"items"`
	Totals            Totals      `json:"totals"`
}

// Party identifies one side of the invoice. TaxID carries the Czech IČO,
// VATID the DIČ.
type Party struct {
	Name    string `json:"name"`
	TaxID   string `json:"ico"`
	VATID   string `json:"dic"`
	Address string `json:"address,omitempty"`
}

// InvoiceMeta holds the header fields of the invoice. Dates are ISO
// YYYY-MM-DD strings, or empty when the source document did not yield a
// parseable value (downstream code treats empty as "unknown", never as a
// default date).
type InvoiceMeta struct {
	Number         string `json:"number"`
	VariableSymbol string `json:"variable_symbol"`
	DateIssued     string `json:"date_issued"`
	DateDue        string `json:"date_due"`
	Currency       string `json:"currency"`
}

// LineItem is one invoice row. UnitPrice is gross (VAT included).
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	VATRate   float64 `json:"vat_rate"`
}

// Totals holds the document-level amounts as declared by the invoice.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	VAT      float64 `json:"vat"`
	Total    float64 `json:"total"`
}
