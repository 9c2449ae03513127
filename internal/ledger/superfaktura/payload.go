package superfaktura

import (
	"fmt"
	"strings"
	"time"

	"fakturio/internal/domain"
)

// ExpensePayload is the document submitted to the expenses endpoint,
// form-encoded as data=<json>.
type ExpensePayload struct {
	Expense     ExpenseBody       `json:"Expense"`
	ExpenseItem []ExpenseItemBody `json:"ExpenseItem"`
}

// ExpenseBody is the expense header.
type ExpenseBody struct {
	Name     string  `json:"name"`
	Variable string  `json:"variable"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Date     string  `json:"date"`
	Created  string  `json:"created"`
	Due      string  `json:"due"`
	ClientID string  `json:"client_id"`
	Comment  string  `json:"comment"`
	Type     string  `json:"type"`
}

// ExpenseItemBody is one expense line.
type ExpenseItemBody struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Tax         float64 `json:"tax"`
}

// fallbackItemDescription is used when the canonical invoice carries no line
// items; the ledger rejects expenses without at least one.
const fallbackItemDescription = "Fakturace služby/zboží"

// BuildExpensePayload maps a canonical invoice onto the deterministic ledger
// payload shape. The variable symbol falls back to the invoice number when
// empty; dates default to today when unparseable; currency tokens are
// normalized to ISO codes.
func BuildExpensePayload(inv *domain.CanonicalInvoice, clientID, sourceName string, now time.Time) *ExpensePayload {
	variable := inv.Invoice.VariableSymbol
	if variable == "" {
		variable = inv.Invoice.Number
	}

	payload := &ExpensePayload{
		Expense: ExpenseBody{
			Name:     inv.Supplier.Name,
			Variable: variable,
			Amount:   inv.Totals.Total,
			Currency: NormalizeCurrency(inv.Invoice.Currency),
			Date:     NormalizeDate(inv.Invoice.DateIssued, now),
			Created:  NormalizeDate(inv.Invoice.DateIssued, now),
			Due:      NormalizeDate(inv.Invoice.DateDue, now),
			ClientID: clientID,
			Comment:  fmt.Sprintf("Imported by fakturio (file: %s)", sourceName),
			Type:     "bill",
		},
	}

	for _, item := range inv.Items {
		payload.ExpenseItem = append(payload.ExpenseItem, ExpenseItemBody{
			Description: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Tax:         item.VATRate,
		})
	}
	if len(payload.ExpenseItem) == 0 {
		payload.ExpenseItem = []ExpenseItemBody{{
			Description: fallbackItemDescription,
			Quantity:    1,
			UnitPrice:   inv.Totals.Total,
			Tax:         0,
		}}
	}

	return payload
}

// NormalizeCurrency maps the currency tokens seen in upstream data to ISO
// codes. Unknown three-letter codes pass through uppercased; anything else
// defaults to CZK.
func NormalizeCurrency(token string) string {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "CZK", "KČ", "KC":
		return "CZK"
	case "EUR", "€":
		return "EUR"
	case "USD", "$":
		return "USD"
	}
	trimmed := strings.ToUpper(strings.TrimSpace(token))
	if len(trimmed) == 3 && isLetters(trimmed) {
		return trimmed
	}
	return "CZK"
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2006-01-02T15:04:05Z07:00",
}

// NormalizeDate converts a date in any of the accepted upstream formats to
// YYYY-MM-DD, defaulting to today when missing or unparseable.
func NormalizeDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return now.Format("2006-01-02")
}
