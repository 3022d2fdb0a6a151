package flow

import "strings"

// Literal separators of the upstream text layout. Every page repeats an
// " Invoice #" banner near the top. The opening page carries the address
// and commercial-terms header after the banner, terminated by the currency
// marker; the closing page carries a remit-payment footer with the totals
// block before the returns notice.
const (
	invoiceMarker  = " Invoice #\n"
	currencyMarker = "Currency\n"
	remitMarker    = "REMIT PAYMENT  TO\n \n"
	returnsTrailer = "\n NO RETURNS ACCEPTED WITHOUT AUTHORIZATION."

	totalUnitsMarker = "Total Units "
	dateMarker       = " Date"
	deliveryMarker   = "Delivery #"
	deliveryLabel    = " Delivery #"
	tariffLabel      = " Tariff code"
	originLabel      = " Country of Origin"
	rdsMarker        = "RDS Certified"
)

// PageRole classifies one page of a document.
type PageRole int

const (
	RoleContinuation PageRole = iota
	RoleFirst
	RoleLast
)

func (r PageRole) String() string {
	switch r {
	case RoleFirst:
		return "first"
	case RoleLast:
		return "last"
	default:
		return "continuation"
	}
}

// Classification is the result of inspecting a single page's text. The raw
// marker flags are kept next to the role so the assembler can tell a clean
// match from an ambiguous one.
type Classification struct {
	Role     PageRole
	HasBand  bool // " Invoice #" banner present
	HasFirst bool // header section terminated by the currency marker present
	HasLast  bool // remit-payment footer present
}

// Classify assigns a role from one page's text alone; no page needs to see
// its neighbors. A page matching both first and last markers classifies as
// first, and the assembler decides what that means at its position.
func Classify(text string) Classification {
	_, after, hasBand := strings.Cut(text, invoiceMarker)
	hasFirst := hasBand && strings.Contains(after, currencyMarker)
	hasLast := strings.Contains(text, remitMarker)

	role := RoleContinuation
	switch {
	case hasFirst:
		role = RoleFirst
	case hasLast:
		role = RoleLast
	}
	return Classification{Role: role, HasBand: hasBand, HasFirst: hasFirst, HasLast: hasLast}
}

// bandRemainder returns the page text after the " Invoice #" banner, or the
// whole text when the banner is missing.
func bandRemainder(text string) string {
	if _, after, ok := strings.Cut(text, invoiceMarker); ok {
		return after
	}
	return text
}

// walkBlocks splits a page into the block sequence the line-item walker
// scans: everything after the header section on an opening page, otherwise
// every line after the banner.
func walkBlocks(text string) []string {
	remainder := bandRemainder(text)
	if _, rest, ok := strings.Cut(remainder, currencyMarker); ok {
		return strings.Split(rest, "\n")
	}
	return strings.Split(remainder, "\n")
}
