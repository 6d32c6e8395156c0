package extraction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CanonicalizeAmount converts a free-form decimal-like string into an exact
// integer count of cents. Cleaning keeps digits, the first decimal point and a
// leading minus sign; everything else is stripped. Rounding to the minor unit
// is half away from zero ("round half up" for both signs), deterministically:
// "0.005" canonicalizes to 1, "-0.005" to -1.
//
// Canonicalization is idempotent: formatting a cents value back to its decimal
// string and canonicalizing again reproduces the same integer.
func CanonicalizeAmount(raw string) (int64, error) {
	cleaned := cleanAmount(raw)
	if cleaned == "" || cleaned == "-" {
		return 0, fmt.Errorf("canonicalize amount: nothing numeric in %q", raw)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("canonicalize amount: parse %q: %w", cleaned, err)
	}

	// Shift into cents, then round half away from zero.
	return d.Shift(2).Round(0).IntPart(), nil
}

// FormatCents renders an integer cents value as its canonical decimal string,
// e.g. 5050 -> "50.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func cleanAmount(raw string) string {
	var b strings.Builder
	seenPoint := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenPoint:
			seenPoint = true
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
