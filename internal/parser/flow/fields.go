package flow

import (
	"regexp"
	"strings"
	"time"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// Field patterns. Validation is structural only: digit and letter counts,
// fixed decimal precision. Values are never normalized beyond type coercion,
// so the output carries exactly what the source document printed.
var (
	reAnchor      = regexp.MustCompile(`\d{6}-\d{3}`)
	reNineDigits  = regexp.MustCompile(`\d{9}`)
	reEightDigits = regexp.MustCompile(`\d{8}`)
	reDun         = regexp.MustCompile(`DUN#(\d{9})`)
	reDate        = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	reCurrency    = regexp.MustCompile(`[A-Z]{3}`)
	reWeight      = regexp.MustCompile(`\d+\.\d{3}`)
	reUnit        = regexp.MustCompile(`[A-Z]{2}`)
	reSize        = regexp.MustCompile(`[A-Z]{1,2}`)
	reTariff      = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{4}$`)

	reOriginPair    = regexp.MustCompile(`^([A-Z]{3})\s+([A-Z]{2})`)
	reOriginFamily  = regexp.MustCompile(`^[A-Z]{3}$`)
	reOriginCountry = regexp.MustCompile(`^[A-Z]{2}$`)
)

// findPattern extracts the first match of re in text. A non-match is an
// explicit absence, never an error; the caller decides whether absence is
// fatal for its field.
func findPattern(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindString(text)
	return m, m != ""
}

// blockAt addresses a block by position, reporting absence past either end.
func blockAt(blocks []string, i int) (string, bool) {
	if i < 0 || i >= len(blocks) {
		return "", false
	}
	return blocks[i], true
}

// joinRange concatenates blocks[from:to] with no separator, tolerating
// ranges that run past the end.
func joinRange(blocks []string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(blocks) {
		to = len(blocks)
	}
	if from >= to {
		return ""
	}
	return strings.Join(blocks[from:to], "")
}

// beforeLabel returns the text preceding the first occurrence of label, or
// the whole text when the label is missing.
func beforeLabel(text, label string) string {
	before, _, _ := strings.Cut(text, label)
	return before
}

// afterLastLabel returns the text following the last occurrence of label,
// or the whole text when the label is missing.
func afterLastLabel(text, label string) string {
	parts := strings.Split(text, label)
	return parts[len(parts)-1]
}

// parseTransactionDate finds an mm/dd/yyyy date and renders it as ISO. A
// match that fails calendar validation collapses to the sentinel date
// rather than an error, since callers expect the field to carry a value.
func parseTransactionDate(text string) (string, bool) {
	m, ok := findPattern(reDate, text)
	if !ok {
		return "", false
	}
	t, err := time.Parse("01/02/2006", m)
	if err != nil {
		return model.SentinelDate, true
	}
	return t.Format("2006-01-02"), true
}

// isDigits reports whether s is non-empty and all ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// OriginKind tags how the combined product-family/country block decomposed.
type OriginKind int

const (
	OriginNeither OriginKind = iota
	OriginBoth
	OriginFamilyOnly
	OriginCountryOnly
)

func (k OriginKind) String() string {
	switch k {
	case OriginBoth:
		return "both"
	case OriginFamilyOnly:
		return "family_only"
	case OriginCountryOnly:
		return "country_only"
	default:
		return "neither"
	}
}

// Origin is the decomposition of the product-family/country-of-origin
// block. The layout omits either token unpredictably when it does not apply
// to a product line, so all four shapes are legal.
type Origin struct {
	Kind    OriginKind
	Family  string
	Country string
}

// DecomposeOrigin splits an "HBG CN" style token pair into its parts.
func DecomposeOrigin(text string) Origin {
	if m := reOriginPair.FindStringSubmatch(text); m != nil {
		return Origin{Kind: OriginBoth, Family: m[1], Country: m[2]}
	}
	if reOriginFamily.MatchString(text) {
		return Origin{Kind: OriginFamilyOnly, Family: text}
	}
	if reOriginCountry.MatchString(text) {
		return Origin{Kind: OriginCountryOnly, Country: text}
	}
	return Origin{Kind: OriginNeither}
}
