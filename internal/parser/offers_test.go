package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const partsPageHTML = `
<html><body>
	<span class="article-brand">3RG</span>
	<span class="article-number">31311</span>
	<div class="distrInfoBlockWrapper">
		<div class="distrInfoDeadline"><div>Срок</div><div>1 день</div></div>
		<div class="distrInfoAvailability"><span class="fr-text-nowrap">&gt;10 шт</span></div>
		<div class="distrInfoRoute"><span class="fr-text-nowrap">Москва (Юг)</span></div>
		<div class="distrInfoPrice">1 234,50 ₽</div>
	</div>
	<div class="distrInfoBlockWrapper">
		<div class="distrInfoDeadline"><div>Срок</div><div>3 дня</div></div>
		<div class="distrInfoAvailability"><span class="fr-text-nowrap">2 шт</span></div>
		<div class="distrInfoRoute"><span class="fr-text-nowrap">Казань</span></div>
		<div class="distrInfoPrice">1 100,00 ₽</div>
	</div>
</body></html>`

func TestFirstOffer(t *testing.T) {
	offer := FirstOffer(partsPageHTML)
	require.NotNil(t, offer)

	// First block in document order, even though the second one is cheaper.
	assert.Equal(t, "Москва (Юг)", offer.Warehouse)
	assert.Equal(t, 10, offer.Qty)
	assert.InDelta(t, 1234.5, offer.PriceRub, 1e-9)
	assert.Equal(t, "1 день", offer.Deadline)
}

func TestFirstOfferNoBlocks(t *testing.T) {
	html := `<html><body>
		<span class="article-brand">3RG</span>
		<span class="article-number">31311</span>
	</body></html>`

	assert.Nil(t, FirstOffer(html))
}

func TestFirstOfferMissingFieldsDegrade(t *testing.T) {
	html := `<div class="distrInfoBlockWrapper"><div class="distrInfoPrice">мусор</div></div>`

	offer := FirstOffer(html)
	require.NotNil(t, offer)
	assert.Empty(t, offer.Warehouse)
	assert.Zero(t, offer.Qty)
	assert.Zero(t, offer.PriceRub)
	assert.Empty(t, offer.Deadline)
}

func TestOffers(t *testing.T) {
	offers := Offers(partsPageHTML)
	require.Len(t, offers, 2)
	assert.Equal(t, "Казань", offers[1].Warehouse)
	assert.Equal(t, 2, offers[1].Qty)
}
