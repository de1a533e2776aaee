package services

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"realestate-comps/models"
)

// PriceKind says how a price found in free text should be read.
type PriceKind string

const (
	PricePerArea PriceKind = "per-area"
	PriceTotal   PriceKind = "total"
)

// AreaKind says which area figure a description stated.
type AreaKind string

const (
	AreaGross AreaKind = "bruto"
	AreaNet   AreaKind = "neto"
)

const (
	minTotalPrice    = 100
	maxAddressRunes  = 80
	rateDisagreement = 0.2
	minExtractedArea = 15.0
	maxExtractedArea = 300.0
)

var (
	// perAreaRegexp captures "900€/m2", "1 100 euro per m²"
	perAreaRegexp = regexp.MustCompile(`(\d+[\s,]*\d*)\s*(?:€|euro)\s*(?:/|per)\s*m(?:2|²)`)

	// totalPriceRegexp captures "€ 95,000", "euro 120000"
	totalPriceRegexp = regexp.MustCompile(`(?:€|euro)\s*(\d+[\s,]*\d*)`)

	// grossAreaRegexps capture "85 m2 bruto" and "bruto: 85 m2"
	grossAreaRegexps = []*regexp.Regexp{
		regexp.MustCompile(`(\d+[\s,]*\.?\d*)\s*m2?\s*bruto`),
		regexp.MustCompile(`bruto\s*[:\s]*(\d+[\s,]*\.?\d*)\s*m2?`),
	}

	// netAreaRegexp captures "72 m2 neto"
	netAreaRegexp = regexp.MustCompile(`(\d+[\s,]*\.?\d*)\s*m2?\s+neto`)

	// thousandsRegexp recognises "95,000" style grouping
	thousandsRegexp = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)

	// addressRegexps are tried in order; the first acceptable span wins.
	addressRegexps = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:address|adresa)\s*[:\-]\s*([^\n,;.]+)`),
		regexp.MustCompile(`(?i)\b(?:zone|zona)\s*[:\-]\s*([^\n,;.]+)`),
		regexp.MustCompile(`(?i)\b(?:location|lokacioni|vendndodhja)\s*[:\-]\s*([^\n,;.]+)`),
		regexp.MustCompile(`(?i)\blocated\s+(?:at|in|on)\s+([^\n,;.]+)`),
		regexp.MustCompile(`(?i)\b((?:rruga|rr\.|street|boulevard|bulevardi|blvd\.?)\s+[^\n,;.]+)`),
	}

	// addressStoplist rejects spans that describe the unit rather than where it is
	addressStoplist = regexp.MustCompile(`(?i)\b(floor|kat|kati|unit|apartment|apartamenti|building|pallat|pallati|elevator|ashensor)\b`)
	digitsOnly      = regexp.MustCompile(`^[\d\s/-]+$`)
)

// DefaultGazetteer lists Tirana zone keywords recognised when no labeled address is found.
var DefaultGazetteer = []string{
	"komuna e parisit", "ish blloku", "blloku", "tirana e re", "rruga e kavajes",
	"liqeni i thate", "21 dhjetori", "myslym shyri", "pazari i ri", "sheshi skenderbej",
	"don bosko", "ali demi", "selita", "astiri", "kombinat", "laprake", "fresku",
	"sauk", "yzberisht", "kinostudio", "porcelan", "lapraka", "farka", "kodra e diellit",
	"unaza e re", "qendra", "njesia 5", "brryli", "mine peza",
}

// PriceMatch is a price found in free text.
type PriceMatch struct {
	Value float64
	Kind  PriceKind
}

// AreaMatch is an area found in free text.
type AreaMatch struct {
	Value float64
	Kind  AreaKind
}

// TextExtractor recovers price, area and address from listing descriptions.
// It holds only compiled patterns and is safe for concurrent use.
type TextExtractor struct {
	gazetteer []gazetteerEntry
	title     cases.Caser
}

type gazetteerEntry struct {
	keyword string
	re      *regexp.Regexp
}

// NewTextExtractor builds an extractor over the default gazetteer plus extra keywords.
func NewTextExtractor(extra ...string) *TextExtractor {
	seen := make(map[string]struct{})
	var keywords []string
	for _, k := range append(append([]string{}, DefaultGazetteer...), extra...) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}
	// longer, more specific names first so "ish blloku" wins over "blloku"
	sort.SliceStable(keywords, func(i, j int) bool {
		return utf8.RuneCountInString(keywords[i]) > utf8.RuneCountInString(keywords[j])
	})

	entries := make([]gazetteerEntry, 0, len(keywords))
	for _, k := range keywords {
		entries = append(entries, gazetteerEntry{
			keyword: k,
			re:      regexp.MustCompile(`(?i)(^|[^\pL\pN])` + regexp.QuoteMeta(k) + `($|[^\pL\pN])`),
		})
	}
	return &TextExtractor{gazetteer: entries, title: cases.Title(language.Und)}
}

// Price looks for a per-area rate first, then for the last total amount.
// Totals of 100 or less are treated as noise such as floor numbers.
func (e *TextExtractor) Price(text string) (PriceMatch, bool) {
	if strings.TrimSpace(text) == "" {
		return PriceMatch{}, false
	}
	text = strings.ToLower(text)

	if m := perAreaRegexp.FindStringSubmatch(text); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			return PriceMatch{Value: v, Kind: PricePerArea}, true
		}
	}

	// descriptions often restate the negotiated figure at the end
	matches := totalPriceRegexp.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return PriceMatch{}, false
	}
	v, ok := parseAmount(matches[len(matches)-1][1])
	if !ok || v <= minTotalPrice {
		return PriceMatch{}, false
	}
	return PriceMatch{Value: v, Kind: PriceTotal}, true
}

// Area prefers gross ("bruto") figures over net ("neto") ones and returns the
// largest plausible value for the first pattern that matched.
func (e *TextExtractor) Area(text string) (AreaMatch, bool) {
	if strings.TrimSpace(text) == "" {
		return AreaMatch{}, false
	}
	text = strings.ToLower(text)

	for _, re := range grossAreaRegexps {
		if v, ok := maxPlausibleArea(re.FindAllStringSubmatch(text, -1)); ok {
			return AreaMatch{Value: v, Kind: AreaGross}, true
		}
	}
	if v, ok := maxPlausibleArea(netAreaRegexp.FindAllStringSubmatch(text, -1)); ok {
		return AreaMatch{Value: v, Kind: AreaNet}, true
	}
	return AreaMatch{}, false
}

// Address returns a labeled address span, a gazetteer zone, or models.NoAddress.
func (e *TextExtractor) Address(text string) string {
	if strings.TrimSpace(text) == "" {
		return models.NoAddress
	}

	for _, re := range addressRegexps {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.Trim(strings.TrimSpace(m[1]), `"'-:`)
			if candidate == "" || digitsOnly.MatchString(candidate) || addressStoplist.MatchString(candidate) {
				continue
			}
			return truncateRunes(normaliseText(candidate), maxAddressRunes)
		}
	}

	for _, g := range e.gazetteer {
		if g.re.MatchString(text) {
			return truncateRunes(e.title.String(g.keyword), maxAddressRunes)
		}
	}
	return models.NoAddress
}

// ReconcilePrice overwrites a structured price with rate x area when the
// description states a per-area rate that disagrees by more than 20%.
func (e *TextExtractor) ReconcilePrice(price, sqm float64, description string) (float64, bool) {
	if price <= 0 || sqm <= 0 {
		return price, false
	}
	m, ok := e.Price(description)
	if !ok || m.Kind != PricePerArea {
		return price, false
	}
	implied := m.Value * sqm
	if math.Abs(implied-price)/price > rateDisagreement {
		return implied, true
	}
	return price, false
}

func maxPlausibleArea(matches [][]string) (float64, bool) {
	best, found := 0.0, false
	for _, m := range matches {
		v, ok := parseAmount(m[1])
		if !ok || v <= minExtractedArea || v >= maxExtractedArea {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

// parseAmount reads "95 000", "95,000" and "85,5" style numbers.
func parseAmount(raw string) (float64, bool) {
	s := strings.Join(strings.Fields(raw), "")
	s = strings.TrimRight(s, ",")
	if s == "" {
		return 0, false
	}
	if thousandsRegexp.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
