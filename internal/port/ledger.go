package port

import (
	"context"

	"fakturio/internal/domain"
)

// Ledger abstracts the external accounting service that records expenses and
// is queried for duplicate detection. Shape handling of its responses lives
// in the implementation; callers see typed results only.
type Ledger interface {
	// HasExpenseWithVariable reports whether an expense with exactly this
	// variable symbol already exists in the ledger. The search is wider than
	// exact (encoded fuzzy search over a date window); implementations must
	// re-verify candidates locally before reporting a match.
	HasExpenseWithVariable(ctx context.Context, variableSymbol string) (bool, error)
	// GetOrCreateClient resolves the ledger-side client id for a supplier,
	// searching by tax id and creating the client when absent.
	GetOrCreateClient(ctx context.Context, name, taxID string) (string, error)
	// CreateExpense submits the invoice as an expense and returns the
	// ledger-assigned id. A structured ledger rejection surfaces as a
	// *superfaktura.SubmissionError; transport problems as ordinary errors.
	CreateExpense(ctx context.Context, inv *domain.CanonicalInvoice, clientID, sourceName string) (string, error)
}
