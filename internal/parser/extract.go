package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the selection's text with all whitespace runs (including
// newlines) collapsed to single spaces. Empty selections yield "".
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// Integer strips every non-digit character and parses the rest as base-10.
// Returns 0 when no digits remain, so "1 200 шт" becomes 1200.
func Integer(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// Price keeps digits, commas and dots, normalizes the decimal comma and
// parses the result. Malformed upstream markup degrades to 0.0 instead of
// failing the batch.
func Price(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// NormalizeCode uppercases a part code and strips everything that is not a
// letter or digit. Used both to compare a requested code against a displayed
// one and to generate retry variants. Idempotent.
func NormalizeCode(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
