package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturio/internal/domain"
	"fakturio/internal/parser"
)

type stubParser struct {
	name    string
	matches string
}

func (s *stubParser) Name() string { return s.name }

func (s *stubParser) Parse(rawText string) (*domain.CanonicalInvoice, bool) {
	if rawText != s.matches {
		return nil, false
	}
	return &domain.CanonicalInvoice{IsInvoice: true, Confidence: 100}, true
}

func TestChain_FirstMatchWins(t *testing.T) {
	chain := parser.NewChain(
		&stubParser{name: "alpha", matches: "alpha text"},
		&stubParser{name: "beta", matches: "shared text"},
		&stubParser{name: "gamma", matches: "shared text"},
	)

	inv, name, ok := chain.Parse("shared text")
	require.True(t, ok)
	assert.Equal(t, "beta", name)
	assert.True(t, inv.IsInvoice)
}

func TestChain_NoMatch(t *testing.T) {
	chain := parser.NewChain(&stubParser{name: "alpha", matches: "alpha text"})

	inv, name, ok := chain.Parse("something else entirely")
	assert.False(t, ok)
	assert.Nil(t, inv)
	assert.Empty(t, name)
}

func TestChain_Empty(t *testing.T) {
	chain := parser.NewChain()

	_, _, ok := chain.Parse("anything")
	assert.False(t, ok)
}
