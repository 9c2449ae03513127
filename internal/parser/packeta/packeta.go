// Package packeta deterministically parses the Zásilkovna/Packeta carrier
// invoice layout from extracted document text, without calling any external
// model. The patterns are specific to this one layout; anything else is
// reported as not applicable.
package packeta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fakturio/internal/domain"
)

var (
	reVendor     = regexp.MustCompile(`(?i)(Zásilkovna|Packeta)`)
	reVarSymbol  = regexp.MustCompile(`(?i)Variabilní symbol\s+(\d+)`)
	reDateIssued = regexp.MustCompile(`(?i)Datum vystavení:\s*([\d. ]+)`)
	reDateDue    = regexp.MustCompile(`(?i)Datum splatnosti:\s*([\d. ]+)`)
	reDateTax    = regexp.MustCompile(`(?i)Datum uskutečnění plnění:\s*([\d. ]+)`)
	reDocNumber  = regexp.MustCompile(`(?i)doklad č\.?\s*(\d+)`)
	reConstSym   = regexp.MustCompile(`(?i)(?:Konstantní|Konstatní)\s*symbol\s*(\d+)`)
	reIBAN       = regexp.MustCompile(`(?i)IBAN:?\s*([CZ\d\s]{16,})`)
	reSWIFT      = regexp.MustCompile(`(?:BIC|SWIFT):?\s*([A-Z0-9]{8,11})`)
	reAccount    = regexp.MustCompile(`(?i)Číslo účtu:?\s*(\d+(?:-\d+)?)(?:/|\s+)(\d{4})`)

	reSupplierSection = regexp.MustCompile(`(?is)Dodavatel.*?Odběratel`)
	reSupplierTaxID   = regexp.MustCompile(`(?i)IČ:?\s*(\d+)`)

	reItemsSection = regexp.MustCompile(`(?is)Fakturujeme Vám služby Množství Cena/kus DPH % Celkem(.*?)Celkem bez DPH`)
	// Exchange-rate annotations ("123,45 EUR, 1 EUR = 25,5 CZK") collide with
	// the item row pattern and must be stripped before row matching.
	reExchangeRate = regexp.MustCompile(`(?i)\d+[.,]\d+\s*EUR,\s*1\s*EUR\s*=\s*[\d.,]+\s*CZK\s*`)
	reItemRow      = regexp.MustCompile(`(?m)([A-Za-zÁ-ž][A-Za-zÁ-ž0-9()/,&\s.-]*?)\s+(\d+(?:[.,]\d+)?)\s+([\d.,]+)\s+([\d.,]+)\s*%\s+([\d.,]+)\s+[A-Z]{3}`)
	reHasLetter    = regexp.MustCompile(`[A-Za-zÁ-ž]`)

	reDeclaredTotal = regexp.MustCompile(`(?i)Fakturovaná částka včetně DPH\s+([\d.,\s]+)`)

	reDateParts = regexp.MustCompile(`(\d{1,2})\.\s*(\d{1,2})\.\s*(\d{4})`)
)

// Known supplier identity for this layout. The tax id may still be overridden
// from the document's supplier section.
const (
	supplierName    = "Zásilkovna s.r.o."
	supplierTaxID   = "28408306"
	supplierVATID   = "CZ28408306"
	supplierAddress = "Českomoravská 2408/1a, 190 00 Praha 9"
)

// BankAccount is one account-number/bank-code pair found in the document.
type BankAccount struct {
	Number string
	Code   string
}

// Result is the full parse output: the canonical invoice plus the
// layout-specific fields that have no canonical slot (payment routing and
// secondary header symbols).
type Result struct {
	Invoice         domain.CanonicalInvoice
	SupplierAccount BankAccount
	IBAN            string
	SWIFT           string
	ConstantSymbol  string
	DateTax         string
}

// Option configures a Parser.
type Option func(*Parser)

// WithAccountSelector overrides how the supplier's bank account is chosen
// from the pairs found in the document. The default picks the second pair
// when two or more are present (the first belongs to the buyer in this
// layout) and the only pair otherwise. This is a layout heuristic, not a
// guaranteed rule; sub-layouts that order the sections differently can
// install their own selector.
func WithAccountSelector(fn func(accounts []BankAccount) int) Option {
	return func(p *Parser) { p.selectAccount = fn }
}

// Parser parses the Packeta invoice layout. Implements parser.LayoutParser.
type Parser struct {
	selectAccount func(accounts []BankAccount) int
}

// New creates a Packeta layout parser.
func New(opts ...Option) *Parser {
	p := &Parser{selectAccount: defaultAccountSelector}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func defaultAccountSelector(accounts []BankAccount) int {
	if len(accounts) >= 2 {
		return 1
	}
	return 0
}

// Name returns the layout name.
func (p *Parser) Name() string { return "packeta" }

// Parse implements parser.LayoutParser.
func (p *Parser) Parse(rawText string) (*domain.CanonicalInvoice, bool) {
	res, ok := p.ParseText(rawText)
	if !ok {
		return nil, false
	}
	return &res.Invoice, true
}

// ParseText parses the raw text of a Packeta invoice. ok is false when the
// text does not pass the detection gate: it must contain both a vendor
// marker and the labeled variable-symbol field, which keeps unrelated
// documents from being silently misparsed.
func (p *Parser) ParseText(rawText string) (*Result, bool) {
	if !reVendor.MatchString(rawText) || !strings.Contains(strings.ToLower(rawText), "variabilní symbol") {
		return nil, false
	}

	res := &Result{}
	res.Invoice = domain.CanonicalInvoice{
		// The detection gate already filtered non-matches, and a
		// deterministic parser carries no uncertainty signal.
		IsInvoice:  true,
		Confidence: 100,
		Supplier: domain.Party{
			Name:    supplierName,
			TaxID:   supplierTaxID,
			VATID:   supplierVATID,
			Address: supplierAddress,
		},
	}

	p.parseHeader(rawText, res)
	p.parseBankAccounts(rawText, res)
	p.parseSupplierOverride(rawText, res)
	p.parseItems(rawText, res)

	return res, true
}

// parseHeader extracts the labeled header fields. A date that does not match
// the expected DD.MM.YYYY pattern is omitted, not defaulted; incomplete
// output is the downstream signal.
func (p *Parser) parseHeader(text string, res *Result) {
	inv := &res.Invoice.Invoice

	inv.VariableSymbol = firstGroup(reVarSymbol, text)
	inv.Number = firstGroup(reDocNumber, text)
	inv.DateIssued = normalizeDate(firstGroup(reDateIssued, text))
	inv.DateDue = normalizeDate(firstGroup(reDateDue, text))
	res.DateTax = normalizeDate(firstGroup(reDateTax, text))
	res.ConstantSymbol = firstGroup(reConstSym, text)

	switch {
	case strings.Contains(text, "CZK"):
		inv.Currency = "CZK"
	case strings.Contains(text, "EUR"):
		inv.Currency = "EUR"
	default:
		inv.Currency = "CZK"
	}
}

func (p *Parser) parseBankAccounts(text string, res *Result) {
	res.IBAN = collapseSpaces(firstGroup(reIBAN, text))
	res.SWIFT = firstGroup(reSWIFT, text)

	var accounts []BankAccount
	for _, m := range reAccount.FindAllStringSubmatch(text, -1) {
		accounts = append(accounts, BankAccount{Number: m[1], Code: m[2]})
	}
	if len(accounts) == 0 {
		return
	}
	idx := p.selectAccount(accounts)
	if idx >= 0 && idx < len(accounts) {
		res.SupplierAccount = accounts[idx]
	}
}

// parseSupplierOverride isolates the segment between the supplier and buyer
// markers and, when it carries a labeled tax id, overrides the default
// supplier identity with it.
func (p *Parser) parseSupplierOverride(text string, res *Result) {
	section := reSupplierSection.FindString(text)
	if section == "" {
		return
	}
	if taxID := firstGroup(reSupplierTaxID, section); taxID != "" {
		res.Invoice.Supplier.TaxID = taxID
	}
}

func (p *Parser) parseItems(text string, res *Result) {
	section := firstGroup(reItemsSection, text)
	section = reExchangeRate.ReplaceAllString(section, "")

	var items []domain.LineItem
	var grosses []decimal.Decimal
	var quantities []decimal.Decimal
	calculated := decimal.Zero

	for _, m := range reItemRow.FindAllStringSubmatch(section, -1) {
		name := strings.Join(strings.Fields(m[1]), " ")
		if !reHasLetter.MatchString(name) || strings.Contains(name, "=") {
			// leftover exchange-rate fragment or numeric noise
			continue
		}

		quantity := toDecimal(m[2])
		unitNet := toDecimal(m[3])
		vatRate := toDecimal(m[4])

		// The table lists net unit prices; the canonical schema carries gross.
		gross := unitNet.Mul(decimal.NewFromInt(1).Add(vatRate.Div(decimal.NewFromInt(100)))).Round(2)

		items = append(items, domain.LineItem{
			Name:      name,
			Quantity:  quantity.InexactFloat64(),
			UnitPrice: gross.InexactFloat64(),
			VATRate:   vatRate.InexactFloat64(),
		})
		grosses = append(grosses, gross)
		quantities = append(quantities, quantity)
		calculated = calculated.Add(gross.Mul(quantity))
	}

	declared := toDecimal(firstGroup(reDeclaredTotal, text))

	// Converting each net price to gross independently accumulates rounding
	// drift against the declared total. Absorb the whole difference into the
	// line with the largest total so the exported sum matches the document.
	if declared.IsPositive() && len(items) > 0 {
		diff := declared.Sub(calculated).Round(2)
		if !diff.IsZero() {
			best := 0
			maxTotal := decimal.Zero
			for i := range items {
				lineTotal := grosses[i].Mul(quantities[i])
				if lineTotal.GreaterThan(maxTotal) {
					maxTotal = lineTotal
					best = i
				}
			}
			if !quantities[best].IsZero() {
				corrected := grosses[best].Add(diff.Div(quantities[best])).Round(2)
				items[best].UnitPrice = corrected.InexactFloat64()
			}
		}
	}

	res.Invoice.Items = items
	if declared.IsPositive() {
		res.Invoice.Totals.Total = declared.InexactFloat64()
	} else {
		res.Invoice.Totals.Total = calculated.Round(2).InexactFloat64()
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// normalizeDate converts "DD.MM.YYYY" (with optional spaces after the dots)
// to "YYYY-MM-DD". Returns "" for anything that does not match.
func normalizeDate(s string) string {
	m := reDateParts.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

var reNonNumeric = regexp.MustCompile(`[^\d,.\-]`)

// toDecimal parses a Czech-formatted amount ("1 234,56") into a decimal.
// Unparseable input yields zero, mirroring the tolerance of the original
// extraction rules.
func toDecimal(s string) decimal.Decimal {
	cleaned := reNonNumeric.ReplaceAllString(s, "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
