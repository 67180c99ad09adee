package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"partsync/internal/models"
)

// OfferBlockSelector matches one warehouse/availability block on a parts
// detail page. Also used as the element the resolver waits for after
// navigating there.
const OfferBlockSelector = ".distrInfoBlockWrapper"

// FirstOffer extracts the first warehouse block of a detail page in document
// order. Returns nil when the page shows no availability blocks at all.
func FirstOffer(html string) *models.Offer {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	block := doc.Find(OfferBlockSelector).First()
	if block.Length() == 0 {
		return nil
	}
	return offerFromBlock(block)
}

// Offers extracts every warehouse block of a detail page, in document order.
func Offers(html string) []models.Offer {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []models.Offer
	doc.Find(OfferBlockSelector).Each(func(_ int, block *goquery.Selection) {
		out = append(out, *offerFromBlock(block))
	})
	return out
}

func offerFromBlock(block *goquery.Selection) *models.Offer {
	return &models.Offer{
		Warehouse: Text(block.Find(".distrInfoRoute .fr-text-nowrap").First()),
		Qty:       Integer(Text(block.Find(".distrInfoAvailability .fr-text-nowrap").First())),
		PriceRub:  Price(Text(block.Find(".distrInfoPrice").First())),
		Deadline:  Text(block.Find(".distrInfoDeadline div:nth-of-type(2)").First()),
	}
}
