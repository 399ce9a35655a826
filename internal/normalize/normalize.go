// Package normalize canonicalizes fiscal codes before lookup: digit-only
// extraction and fixed-width zero-padding. NCM codes normalize to 8 digits,
// CFOP codes to 4.
package normalize

import "strings"

// NCMWidth and CFOPWidth are the canonical digit counts for the two code
// families.
const (
	NCMWidth  = 8
	CFOPWidth = 4
)

// StripNonDigits removes every non-digit character from s.
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// PadCode left-pads digits with zeros to width. Inputs longer than width are
// returned unchanged so the caller's format-length check flags the anomaly
// instead of a silent truncation.
func PadCode(digits string, width int) string {
	if len(digits) >= width {
		return digits
	}
	return strings.Repeat("0", width-len(digits)) + digits
}

// Code composes StripNonDigits and PadCode. Empty input stays empty rather
// than padding to all zeros.
func Code(s string, width int) string {
	digits := StripNonDigits(s)
	if digits == "" {
		return ""
	}
	return PadCode(digits, width)
}
