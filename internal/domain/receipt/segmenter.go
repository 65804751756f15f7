// Package receipt turns OCR-decoded retail receipt text into purchase
// candidates. The segmenter isolates per-purchase line groups; the extractor
// parses price, quantity, unit and currency out of one group.
package receipt

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
)

// artifactReplacements repairs OCR artifacts the upstream scanner is known to
// produce. Applied in order, as literal substring replacements.
var artifactReplacements = []struct{ from, to string }{
	{"_", " "},
	{"é", "ē"},
	{"°", ""},
	{"’", " "},
	{"'", " "},
	{"\"", ""},
	{"“", ""},
	{"|", ""},
}

// purchaseListAnchor marks the start of the purchase list: the receipt header
// ends in a run of blank lines. Some scans lose one of them, hence the
// shorter fallback anchor.
const purchaseListAnchor = "\n\n\n\n\n"

// footerMarkers end the purchase list, in priority order: the discount
// summary header (with its common OCR misreadings), the promotion summary,
// then the payment-card block.
var footerMarkers = []string{
	"ATLAIDES",
	"ATDALDES",
	"ATLALDES",
	"Citas akcijas",
	"Makeajanu karte",
	"Makeajamu karte",
	"Maksajumu karte",
}

// discountPrefixes start a discounted-final-price line that belongs to the
// preceding purchase ("Atl" plus its OCR misreadings).
var discountPrefixes = []string{"Atl", "At1", "AtI"}

const clientMarker = "KLIENT"

// Segmenter splits raw receipt text into per-purchase line groups.
type Segmenter struct {
	currencyCodes []string
	footer        *ahocorasick.Matcher
	logger        *slog.Logger
}

// NewSegmenter creates a segmenter that recognizes the given currency codes
// as purchase-line markers.
func NewSegmenter(currencyCodes []string, logger *slog.Logger) *Segmenter {
	codes := make([]string, len(currencyCodes))
	for i, code := range currencyCodes {
		codes[i] = strings.ToUpper(code)
	}

	markers := make([]string, len(footerMarkers))
	for i, marker := range footerMarkers {
		markers[i] = strings.ToUpper(marker)
	}

	return &Segmenter{
		currencyCodes: codes,
		footer:        ahocorasick.NewStringMatcher(markers),
		logger:        logger,
	}
}

// Segment returns one string per purchase, each holding the purchase's lines
// joined by newlines. It fails with a ParseError when the text does not match
// the expected receipt layout; no partial result is returned.
func (s *Segmenter) Segment(content string) ([]string, error) {
	for _, r := range artifactReplacements {
		content = strings.ReplaceAll(content, r.from, r.to)
	}
	upper := upperASCII(content)

	end, err := s.findEnd(upper)
	if err != nil {
		return nil, err
	}

	start, err := findStart(upper, purchaseListAnchor, end)
	if err != nil {
		return nil, err
	}

	block := strings.Trim(content[start:end], "\n")
	block = skipClientMarker(block)
	s.logger.Debug("extracted purchase block from receipt", "block", block)

	lines := noiseFilter(strings.Split(block, "\n"))

	var groups []string
	for len(lines) > 0 {
		idx := s.findCurrencyLine(lines)
		if idx == -1 {
			return nil, importing.NewParseError(
				"segment", "no currency marker in remaining lines", strings.Join(lines, "\n"))
		}

		// A discounted final price on the next line belongs to this purchase.
		if idx != len(lines)-1 && hasDiscountPrefix(lines[idx+1]) {
			idx++
		}

		groups = append(groups, strings.Join(lines[:idx+1], "\n"))
		lines = lines[idx+1:]
	}

	s.logger.Debug("segmented receipt", "groups", len(groups))
	return groups, nil
}

// findStart locates the purchase-list anchor, retrying with the shorter
// fallback anchor when the full anchor lands after the footer.
func findStart(upper, anchor string, end int) (int, error) {
	idx := strings.Index(upper, anchor)
	if idx != -1 && idx+len(anchor) <= end {
		return idx + len(anchor), nil
	}

	fallback := anchor[:len(anchor)-1]
	idx = strings.Index(upper, fallback)
	if idx == -1 || idx+len(fallback) > end {
		return 0, importing.NewParseError("segment", "could not identify the start of purchases", "")
	}
	return idx + len(fallback), nil
}

// findEnd picks the first footer marker present in the content, by marker
// priority, and returns the position of its last occurrence.
func (s *Segmenter) findEnd(upper string) (int, error) {
	hits := s.footer.Match([]byte(upper))
	present := make(map[int]bool, len(hits))
	for _, hit := range hits {
		present[hit] = true
	}

	for i, marker := range footerMarkers {
		if !present[i] {
			continue
		}
		if idx := strings.LastIndex(upper, strings.ToUpper(marker)); idx != -1 {
			return idx, nil
		}
	}
	return 0, importing.NewParseError("segment", "could not identify the end of purchases", "")
}

// skipClientMarker drops the optional loyalty-client line near the top of the
// purchase block, resuming after the first line break that follows it.
func skipClientMarker(block string) string {
	idx := strings.Index(upperASCII(block), clientMarker)
	if idx == -1 {
		return block
	}
	nl := strings.Index(block[idx:], "\n")
	if nl == -1 {
		return block
	}
	return strings.TrimLeft(block[idx+nl:], "\n")
}

// upperASCII uppercases ASCII letters only. Every marker it is matched
// against is ASCII, and unlike strings.ToUpper it preserves byte length, so
// marker positions stay valid as indices into the original text even when
// OCR noise contains multi-byte runes.
func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// noiseFilter trims lines and drops those without a single letter or digit -
// pure OCR noise.
func noiseFilter(lines []string) []string {
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.IndexFunc(line, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) == -1 {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func (s *Segmenter) findCurrencyLine(lines []string) int {
	for i, line := range lines {
		upper := strings.ToUpper(line)
		for _, code := range s.currencyCodes {
			if strings.Contains(upper, code) {
				return i
			}
		}
	}
	return -1
}

func hasDiscountPrefix(line string) bool {
	upper := strings.ToUpper(line)
	for _, prefix := range discountPrefixes {
		if strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			return true
		}
	}
	return false
}
