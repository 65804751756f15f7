package receipt

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
)

// Receipts come from a single geographic source that writes decimal commas,
// so all numeric parsing here uses explicit comma-decimal rules rather than
// whatever the host locale happens to be.
var (
	priceRe       = regexp.MustCompile(`\d+,\d{2}`)
	quantityRe    = regexp.MustCompile(`[\d,]+`)
	labelAmountRe = regexp.MustCompile(`\d+`)
)

// group is the shape of one purchase group: a product label spread over one
// or more lines, the amount/price line, and an optional discount line with
// the final price.
type group struct {
	label        string
	amountLine   string
	discountLine *string
}

// Extractor parses purchase groups produced by the Segmenter.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a purchase extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses one purchase group into a candidate. currencyCodes and
// unitSymbols come from the caller's catalog snapshot. Product matching is a
// separate concern; the returned candidate carries only the raw label.
func (e *Extractor) Extract(groupText string, currencyCodes, unitSymbols []string) (importing.PurchaseCandidate, error) {
	g, err := splitGroup(groupText)
	if err != nil {
		return importing.PurchaseCandidate{}, err
	}

	currency, err := findCurrency(g, currencyCodes)
	if err != nil {
		return importing.PurchaseCandidate{}, err
	}

	unitPrice, lineTotal, err := findPrices(g)
	if err != nil {
		return importing.PurchaseCandidate{}, err
	}

	quantity, unit, err := findQuantity(g, unitSymbols)
	if err != nil {
		return importing.PurchaseCandidate{}, err
	}

	candidate := importing.PurchaseCandidate{
		RawLabel:        g.label,
		CurrencyCode:    currency,
		UnitPrice:       unitPrice,
		Quantity:        quantity,
		UnitSymbol:      unit,
		LineTotal:       lineTotal,
		DiscountApplied: g.discountLine != nil,
	}

	e.logger.Debug("extracted purchase",
		"label", g.label, "price", lineTotal.String(), "quantity", quantity.String(), "currency", currency)
	return candidate, nil
}

// splitGroup assigns group lines to label, amount line and discount line.
// With exactly two lines there is no discount; with more, the last line is
// the amount line unless it carries a discount prefix, in which case the
// second-to-last is.
func splitGroup(groupText string) (group, error) {
	lines := strings.Split(groupText, "\n")
	switch {
	case len(lines) < 2:
		return group{}, importing.NewParseError("extract", "not enough lines to parse purchase", groupText)

	case len(lines) == 2:
		return group{label: lines[0], amountLine: lines[1]}, nil

	case !hasDiscountPrefix(lines[len(lines)-1]):
		return group{
			label:      strings.Join(lines[:len(lines)-1], " "),
			amountLine: lines[len(lines)-1],
		}, nil

	default:
		return group{
			label:        strings.Join(lines[:len(lines)-2], " "),
			amountLine:   lines[len(lines)-2],
			discountLine: &lines[len(lines)-1],
		}, nil
	}
}

// findCurrency returns the first configured code appearing in the amount line
// preceded by a space.
func findCurrency(g group, currencyCodes []string) (string, error) {
	upper := strings.ToUpper(g.amountLine)
	for _, code := range currencyCodes {
		if strings.Contains(upper, " "+strings.ToUpper(code)) {
			return strings.ToUpper(code), nil
		}
	}
	return "", importing.NewParseError("extract", "could not find currency", g.amountLine)
}

// findPrices extracts the unit price from the amount line and the final line
// total, which the discount line overrides when present.
func findPrices(g group) (unitPrice, lineTotal decimal.Decimal, err error) {
	amountMatches := priceRe.FindAllString(g.amountLine, -1)
	if len(amountMatches) == 0 {
		return decimal.Zero, decimal.Zero,
			importing.NewParseError("extract", "could not find price", g.amountLine)
	}

	unitPrice, err = parseCommaDecimal(amountMatches[0])
	if err != nil {
		return decimal.Zero, decimal.Zero, importing.NewParseError("extract", "invalid price", amountMatches[0])
	}

	totalText := amountMatches[len(amountMatches)-1]
	if g.discountLine != nil {
		discountMatches := priceRe.FindAllString(*g.discountLine, -1)
		if len(discountMatches) == 0 {
			return decimal.Zero, decimal.Zero,
				importing.NewParseError("extract", "could not find discounted price", *g.discountLine)
		}
		totalText = discountMatches[len(discountMatches)-1]
	}

	lineTotal, err = parseCommaDecimal(totalText)
	if err != nil {
		return decimal.Zero, decimal.Zero, importing.NewParseError("extract", "invalid price", totalText)
	}
	return unitPrice, lineTotal, nil
}

// findQuantity extracts the base quantity from the amount line. A label
// ending in digit+unit ("200g") is a per-unit multiplier: the label's last
// number scales the base quantity. Otherwise a standalone unit token directly
// after the quantity names the unit.
func findQuantity(g group, unitSymbols []string) (decimal.Decimal, *string, error) {
	loc := quantityRe.FindStringIndex(g.amountLine)
	if loc == nil {
		return decimal.Zero, nil, importing.NewParseError("extract", "could not find quantity", g.amountLine)
	}

	quantityText := strings.Trim(g.amountLine[loc[0]:loc[1]], ",")
	quantity, err := parseCommaDecimal(quantityText)
	if err != nil {
		return decimal.Zero, nil, importing.NewParseError("extract", "invalid quantity", quantityText)
	}

	if symbol := labelUnit(g.label, unitSymbols); symbol != nil {
		multiplierText := lastNumber(g.label)
		if multiplierText == "" {
			return quantity, symbol, nil
		}
		multiplier, err := parseCommaDecimal(multiplierText)
		if err != nil {
			return decimal.Zero, nil, importing.NewParseError("extract", "invalid unit multiplier", multiplierText)
		}
		return quantity.Mul(multiplier), symbol, nil
	}

	rest := strings.TrimSpace(g.amountLine[loc[1]:])
	if fields := strings.Fields(rest); len(fields) > 0 {
		for _, symbol := range unitSymbols {
			if strings.EqualFold(symbol, fields[0]) {
				s := symbol
				return quantity, &s, nil
			}
		}
	}
	return quantity, nil, nil
}

// labelUnit reports the unit abbreviation the label ends with, when the
// character before it is a digit. Longer symbols are tried first so "kg"
// wins over "g".
func labelUnit(label string, unitSymbols []string) *string {
	symbols := make([]string, len(unitSymbols))
	copy(symbols, unitSymbols)
	sort.Slice(symbols, func(i, j int) bool {
		if len(symbols[i]) != len(symbols[j]) {
			return len(symbols[i]) > len(symbols[j])
		}
		return symbols[i] < symbols[j]
	})

	upperLabel := strings.ToUpper(label)
	for _, symbol := range symbols {
		upperSymbol := strings.ToUpper(symbol)
		if !strings.HasSuffix(upperLabel, upperSymbol) {
			continue
		}
		prefix := []rune(label[:len(label)-len(symbol)])
		if len(prefix) == 0 || !unicode.IsDigit(prefix[len(prefix)-1]) {
			continue
		}
		s := symbol
		return &s
	}
	return nil
}

func lastNumber(s string) string {
	matches := labelAmountRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// parseCommaDecimal parses a number written with a decimal comma. Receipts
// never group thousands, so the only comma is the decimal separator.
func parseCommaDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}
