package extractor

// BuildInvoicePrompt returns the instruction given to an AI extractor. The
// output contract matches domain.CanonicalInvoice exactly; amounts are gross
// and dates ISO so downstream code never has to special-case the provider.
func BuildInvoicePrompt() string {
	return `You are an invoice data extraction system. Analyze the attached document and return ONLY a JSON object with this exact structure, no prose:

{
  "is_invoice": true,
  "confidence": 0-100,
  "supplier": {"name": "", "ico": "", "dic": "", "address": ""},
  "buyer": {"name": "", "ico": "", "dic": "", "address": ""},
  "invoice": {
    "number": "",
    "variable_symbol": "",
    "date_issued": "YYYY-MM-DD",
    "date_due": "YYYY-MM-DD",
    "currency": "CZK"
  },
  "items": [{"name": "", "quantity": 1, "unit_price": 0, "vat_rate": 0}],
  "totals": {"subtotal": 0, "vat": 0, "total": 0}
}

Rules:
- Set "is_invoice" to false if the document is not an invoice (e.g. a delivery note, reminder, or marketing material); still fill in what you can.
- "confidence" reflects how certain you are about the extracted fields overall.
- "unit_price" is the gross price per unit including VAT.
- Dates must be ISO format YYYY-MM-DD. Omit a date field entirely if it cannot be read.
- "currency" is a three-letter ISO code; assume CZK for Czech documents when not stated.
- "ico" is the Czech company identification number, "dic" the VAT identifier.
- Return the JSON object only, with no markdown fences.`
}
