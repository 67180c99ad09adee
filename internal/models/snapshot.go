package models

import "time"

// PartRef is the canonical identity of a supplier part: the brand/number
// pair the portal organizes detail pages around, plus the detail page URL
// derived from them. Immutable once produced.
type PartRef struct {
	Brand     string `json:"brand"`
	Number    string `json:"number"`
	DetailURL string `json:"detail_url"`
}

// Offer is the first warehouse/availability block of a detail page, in
// document order. Not the cheapest and not the most available one.
type Offer struct {
	Warehouse string  `json:"warehouse"`
	Qty       int     `json:"qty"`
	PriceRub  float64 `json:"price_rub"`
	Deadline  string  `json:"deadline"`
}

// Snapshot is the end result of one resolution+extraction cycle.
// A nil Offer means the part resolved but showed no stock block, which is
// a valid terminal state and not an error.
type Snapshot struct {
	PartCode  string    `json:"part_code"`
	Brand     string    `json:"brand,omitempty"`
	Number    string    `json:"number,omitempty"`
	DetailURL string    `json:"detail_url,omitempty"`
	Offer     *Offer    `json:"offer,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}
