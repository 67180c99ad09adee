package ozon

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/time/rate"
)

const (
	priceBatchLimit = 1000
	stockBatchLimit = 100
)

// PriceUpdate sets a product's price. Values are whole rubles rendered as
// strings, the way the price endpoints expect them.
type PriceUpdate struct {
	OfferID  string
	PriceRub int
	OldPrice int
}

// StockUpdate sets the available quantity of a product on one warehouse.
type StockUpdate struct {
	OfferID     string
	WarehouseID int64
	Stock       int
}

// Pusher sends price and stock updates, batched at the endpoint ceilings and
// throttled to a fixed items-per-minute budget so bulk runs stay inside the
// seller API quota.
type Pusher struct {
	client  *Client
	limiter *rate.Limiter
}

// NewPusher wraps the client with an items-per-minute throttle. A zero or
// negative budget disables throttling.
func NewPusher(client *Client, itemsPerMinute int) *Pusher {
	limit := rate.Inf
	burst := priceBatchLimit
	if itemsPerMinute > 0 {
		limit = rate.Limit(float64(itemsPerMinute) / 60.0)
		burst = itemsPerMinute
	}
	return &Pusher{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// batchCeil caps a batch at the limiter's burst. WaitN rejects any request
// for more tokens than the burst outright, so a batch may never exceed it.
func (p *Pusher) batchCeil(endpointLimit int) int {
	if b := p.limiter.Burst(); b < endpointLimit {
		return b
	}
	return endpointLimit
}

type importPricesRequest struct {
	Prices []priceItem `json:"prices"`
}

type priceItem struct {
	OfferID  string `json:"offer_id"`
	Price    string `json:"price"`
	OldPrice string `json:"old_price"`
}

type importPricesResponse struct {
	Result []struct {
		OfferID string `json:"offer_id"`
		Updated bool   `json:"updated"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}

// ImportPrices pushes every update and returns how many items the API
// confirmed. Per-item rejections are logged and counted, not fatal.
func (p *Pusher) ImportPrices(ctx context.Context, updates []PriceUpdate) (updated int, err error) {
	batchLimit := p.batchCeil(priceBatchLimit)
	for start := 0; start < len(updates); start += batchLimit {
		end := min(start+batchLimit, len(updates))
		batch := updates[start:end]

		if err := p.limiter.WaitN(ctx, len(batch)); err != nil {
			return updated, err
		}

		req := importPricesRequest{Prices: make([]priceItem, 0, len(batch))}
		for _, u := range batch {
			req.Prices = append(req.Prices, priceItem{
				OfferID:  u.OfferID,
				Price:    strconv.Itoa(u.PriceRub),
				OldPrice: strconv.Itoa(u.OldPrice),
			})
		}

		var resp importPricesResponse
		if err := p.client.doPost(ctx, "/v1/product/import/prices", req, &resp); err != nil {
			return updated, fmt.Errorf("importing prices: %w", err)
		}

		for _, r := range resp.Result {
			if r.Updated {
				updated++
				continue
			}
			for _, e := range r.Errors {
				p.client.logger.Warn("price rejected",
					"offer_id", r.OfferID, "code", e.Code, "message", e.Message)
			}
		}
		p.client.logger.Info("price batch pushed", "batch", len(batch), "updated", updated)
	}
	return updated, nil
}

type updateStocksRequest struct {
	Stocks []stockItem `json:"stocks"`
}

type stockItem struct {
	OfferID     string `json:"offer_id"`
	Stock       int    `json:"stock"`
	WarehouseID int64  `json:"warehouse_id"`
}

type updateStocksResponse struct {
	Result []struct {
		OfferID string `json:"offer_id"`
		Updated bool   `json:"updated"`
		Errors  []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"result"`
}

// UpdateStocks pushes warehouse quantities. Negative stocks are clamped to
// zero before sending; the API rejects them outright otherwise.
func (p *Pusher) UpdateStocks(ctx context.Context, updates []StockUpdate) (updated int, err error) {
	batchLimit := p.batchCeil(stockBatchLimit)
	for start := 0; start < len(updates); start += batchLimit {
		end := min(start+batchLimit, len(updates))
		batch := updates[start:end]

		if err := p.limiter.WaitN(ctx, len(batch)); err != nil {
			return updated, err
		}

		req := updateStocksRequest{Stocks: make([]stockItem, 0, len(batch))}
		for _, u := range batch {
			req.Stocks = append(req.Stocks, stockItem{
				OfferID:     u.OfferID,
				Stock:       max(u.Stock, 0),
				WarehouseID: u.WarehouseID,
			})
		}

		var resp updateStocksResponse
		if err := p.client.doPost(ctx, "/v2/products/stocks", req, &resp); err != nil {
			return updated, fmt.Errorf("updating stocks: %w", err)
		}

		for _, r := range resp.Result {
			if r.Updated {
				updated++
				continue
			}
			for _, e := range r.Errors {
				p.client.logger.Warn("stock rejected",
					"offer_id", r.OfferID, "code", e.Code, "message", e.Message)
			}
		}
		p.client.logger.Info("stock batch pushed", "batch", len(batch), "updated", updated)
	}
	return updated, nil
}
