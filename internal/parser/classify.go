package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// guestModePhrase is the portal's localized "you are browsing in guest mode"
// banner text. The same URL renders with or without it depending on whether
// the session cookies are still valid.
const guestModePhrase = "гостевом режиме"

// IsAccessDenied reports whether the visible body text indicates the portal
// degraded the session to guest mode.
func IsAccessDenied(bodyText string) bool {
	return strings.Contains(strings.ToLower(bodyText), guestModePhrase)
}

// SearchOutcome classifies a rendered /search response. Exactly one of
// DirectHit, ListHit or NoMatch is produced per page.
type SearchOutcome interface {
	searchOutcome()
}

// DirectHit means the search landed on a single matching product and the
// brand/number pair could be read off the page directly.
type DirectHit struct {
	Brand  string
	Number string
}

// ListHit means the search produced a disambiguation list; DetailPath is the
// relative link carried by the first selectable row.
type ListHit struct {
	DetailPath string
}

// NoMatch means none of the known layouts matched.
type NoMatch struct{}

func (DirectHit) searchOutcome() {}
func (ListHit) searchOutcome()   {}
func (NoMatch) searchOutcome()   {}

// ClassifySearch inspects a search response without assuming which of the
// portal's layouts was served. Layouts are tried in fixed priority order:
// product-title block, matching results-table row, first selectable list
// row, then NoMatch. Malformed markup classifies as NoMatch, never errors.
func ClassifySearch(html, requestedCode string) SearchOutcome {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return NoMatch{}
	}

	// Layout A: unambiguous code, page already shows the product title.
	if brand, number, ok := titleBlockRef(doc.Selection); ok {
		return DirectHit{Brand: brand, Number: number}
	}

	// Layout B: results table; the row whose displayed code matches the
	// request carries brand/number in its image's data attributes.
	wanted := NormalizeCode(requestedCode)
	var hit *DirectHit
	doc.Find("tr[class*='resultTr']").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		code := Text(tr.Find(".resultPartCode a").First())
		if code == "" || NormalizeCode(code) != wanted {
			return true
		}
		img := tr.Find("img.searchResultImg").First()
		brand, _ := img.Attr("data-brand")
		number, _ := img.Attr("data-number")
		brand = strings.TrimSpace(brand)
		number = strings.TrimSpace(number)
		if brand != "" && number != "" {
			hit = &DirectHit{Brand: brand, Number: number}
			return false
		}
		return true
	})
	if hit != nil {
		return *hit
	}

	// Layout C: brand disambiguation list; first row is treated as the
	// canonical match and followed as a second navigation step.
	row := doc.Find("table.globalCase tbody tr.startSearching").First()
	if link, ok := row.Attr("data-link"); ok && strings.TrimSpace(link) != "" {
		return ListHit{DetailPath: strings.TrimSpace(link)}
	}

	return NoMatch{}
}

// ParseDetailRef looks for the product-title block on a search-detail page
// and returns the brand/number pair it exposes.
func ParseDetailRef(html string) (brand, number string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", false
	}
	return titleBlockRef(doc.Selection)
}

// ExtractPartInfo pulls brand and number off a parts detail page. The detail
// page is the authoritative source and may disagree with search-page values,
// so callers re-extract even when the pair is already known.
func ExtractPartInfo(html string) (brand, number string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	brand = Text(doc.Find(".article-brand").First())
	number = Text(doc.Find(".article-number").First())
	return brand, number
}

func titleBlockRef(root *goquery.Selection) (brand, number string, ok bool) {
	title := root.Find("span.goodsInfoTitle").First()
	if title.Length() == 0 {
		return "", "", false
	}
	brand = Text(title.Find("span.article-brand").First())
	number = Text(title.Find("span.article-number").First())
	if brand == "" || number == "" {
		return "", "", false
	}
	return brand, number, true
}
