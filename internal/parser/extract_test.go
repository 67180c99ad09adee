package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		expected string
	}{
		{
			name:     "collapses whitespace runs and newlines",
			html:     "<div class=\"v\">  На складе:\n\t 12   шт </div>",
			selector: ".v",
			expected: "На складе: 12 шт",
		},
		{
			name:     "missing element yields empty string",
			html:     `<div class="v">x</div>`,
			selector: ".missing",
			expected: "",
		},
		{
			name:     "nested elements joined with single spaces",
			html:     `<div class="v"><span>1 234,50</span> <span>₽</span></div>`,
			selector: ".v",
			expected: "1 234,50 ₽",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Text(doc.Find(tt.selector)))
		})
	}
}

func TestTextNilSelection(t *testing.T) {
	assert.Equal(t, "", Text(nil))
}

func TestInteger(t *testing.T) {
	tests := []struct {
		in       string
		expected int
	}{
		{"1 200 шт", 1200},
		{"12", 12},
		{">10", 10},
		{"нет", 0},
		{"", 0},
		{"3 дня", 3},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Integer(tt.in))
		})
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
	}{
		{"1 234,50 ₽", 1234.5},
		{"841.20", 841.2},
		{"1 000 руб.", 1000},
		{"нет цены", 0},
		{"", 0},
		{"12,5", 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Price(tt.in), 1e-9)
		})
	}
}

func TestPriceMalformedDegradesToZero(t *testing.T) {
	// Two decimal separators survive cleaning but cannot parse; the batch
	// must keep going on junk markup.
	assert.Equal(t, 0.0, Price("1.234,50.99,"))
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"AT-HDR-08", "ATHDR08"},
		{"at hdr 08", "ATHDR08"},
		{"31311", "31311"},
		{"  0 986 452 041  ", "0986452041"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCode(tt.in))
		})
	}
}

func TestNormalizeCodeIdempotent(t *testing.T) {
	inputs := []string{"AT-HDR-08", "a-b c.d/e", "3RG 31311", "уже-норм"}
	for _, in := range inputs {
		once := NormalizeCode(in)
		assert.Equal(t, once, NormalizeCode(once), "normalize must be idempotent for %q", in)
	}
}
