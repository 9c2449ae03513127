package parser

import "fakturio/internal/domain"

// LayoutParser deterministically parses one known vendor invoice layout from
// raw document text. The boolean result distinguishes "not applicable" (the
// document is not this layout, or text extraction yielded nothing usable)
// from a successful parse; a layout parser never fails with an error, so the
// caller can always fall through to the next parser or to the external
// extractor.
type LayoutParser interface {
	Name() string
	Parse(rawText string) (*domain.CanonicalInvoice, bool)
}

// Chain tries layout parsers in registration order and returns the first
// applicable result along with the name of the parser that produced it.
type Chain struct {
	parsers []LayoutParser
}

// NewChain creates a Chain from an ordered list of layout parsers.
func NewChain(parsers ...LayoutParser) *Chain {
	return &Chain{parsers: parsers}
}

// Parse runs the chain. ok is false when no parser recognized the text.
func (c *Chain) Parse(rawText string) (inv *domain.CanonicalInvoice, parserName string, ok bool) {
	for _, p := range c.parsers {
		if inv, ok := p.Parse(rawText); ok {
			return inv, p.Name(), true
		}
	}
	return nil, "", false
}
