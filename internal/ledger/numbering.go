package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Sequence describes a document numbering scheme such as INV-001.
type Sequence struct {
	Name   string
	Prefix string
	Width  int
}

var (
	InvoiceSequence = Sequence{Name: "invoice", Prefix: "INV-", Width: 3}
	PaymentSequence = Sequence{Name: "payment", Prefix: "PYN-", Width: 4}
)

// Format renders n with the sequence prefix and zero padding.
func (s Sequence) Format(n int64) string { return FormatNumber(s.Prefix, s.Width, n) }

// Parse extracts the counter from a number of this sequence.
func (s Sequence) Parse(number string) (int64, bool) { return ParseNumber(number, s.Prefix) }

// Next returns the number following the highest one in existing.
func (s Sequence) Next(existing []string) string { return NextNumber(existing, s.Prefix, s.Width) }

// ParseNumber returns the numeric part of number when it carries prefix.
func ParseNumber(number, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(number), prefix)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatNumber pads n to width digits. Wider counters are not truncated.
func FormatNumber(prefix string, width int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// MaxNumber returns the highest counter found in existing, or 0.
func MaxNumber(existing []string, prefix string) int64 {
	var max int64
	for _, number := range existing {
		if n, ok := ParseNumber(number, prefix); ok && n > max {
			max = n
		}
	}
	return max
}

// NextNumber returns max+1 over the parseable numbers in existing, starting at 1.
func NextNumber(existing []string, prefix string, width int) string {
	return FormatNumber(prefix, width, MaxNumber(existing, prefix)+1)
}
