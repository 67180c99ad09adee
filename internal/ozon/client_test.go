package ozon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	c := NewClient(srv.URL, "client-123", "key-abc", logger)
	c.maxRetries = 3
	return c
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestClientSendsAuthHeaders(t *testing.T) {
	var gotClientID, gotAPIKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.Header.Get("Client-Id")
		gotAPIKey = r.Header.Get("Api-Key")
		w.Write([]byte(`{"result":[]}`))
	})

	_, err := c.WarehouseList(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "client-123", gotClientID)
	assert.Equal(t, "key-abc", gotAPIKey)
}

func TestClientRetriesServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"result":[{"warehouse_id":7,"name":"main","status":"created"}]}`))
	})

	whs, err := c.WarehouseList(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	require.Len(t, whs, 1)
	assert.Equal(t, int64(7), whs[0].WarehouseID)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid offer_id"}`))
	})

	_, err := c.WarehouseList(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "400")
}

func TestClientSurfacesErrorBody(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"error":{"code":"ACCESS_DENIED","message":"invalid Api-Key"}}`))
	})

	_, err := c.WarehouseList(context.Background())
	require.Error(t, err)

	// An API-level rejection in a 200 body is not transient.
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "ACCESS_DENIED")
}

func TestListProductsPaginates(t *testing.T) {
	pages := []string{
		`{"result":{"items":[{"product_id":1,"offer_id":"A"},{"product_id":2,"offer_id":"B"}],"total":3,"last_id":"cursor1"}}`,
		`{"result":{"items":[{"product_id":3,"offer_id":"C"}],"total":3,"last_id":"cursor2"}}`,
	}
	var lastIDs []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		lastIDs = append(lastIDs, req.LastID)
		assert.Equal(t, "ALL", req.Filter.Visibility)

		page := pages[0]
		if req.LastID != "" {
			page = pages[1]
		}
		w.Write([]byte(page))
	})

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 3)
	assert.Equal(t, "C", products[2].OfferID)
	assert.Equal(t, []string{"", "cursor1"}, lastIDs)
}

func TestProductInfoListFlattensFBSCommission(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{
			"id": 42, "offer_id": "A1", "price": "1500", "old_price": "1800",
			"commissions": [
				{"sale_schema": "fbo", "percent": 11.5},
				{"sale_schema": "fbs", "percent": 14.0}
			]}]}`))
	})

	infos, err := c.ProductInfoList(context.Background(), []string{"A1"})
	require.NoError(t, err)

	require.Len(t, infos, 1)
	assert.Equal(t, int64(42), infos[0].ProductID)
	assert.Equal(t, "1500", infos[0].Price)
	assert.InDelta(t, 14.0, infos[0].FBSCommission, 0.001)
}

func TestAttributesMapsDepthToLength(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[{"id":42,"offer_id":"A1","width":100,"height":50,"depth":200,"weight":750}]}`))
	})

	attrs, err := c.Attributes(context.Background(), []string{"A1"})
	require.NoError(t, err)

	require.Len(t, attrs, 1)
	assert.Equal(t, 200, attrs[0].LengthMM)
	assert.Equal(t, 100, attrs[0].WidthMM)
	assert.Equal(t, 750, attrs[0].WeightG)
}

func TestImportPricesCountsConfirmations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req importPricesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Prices, 2)
		assert.Equal(t, "1540", req.Prices[0].Price)

		w.Write([]byte(`{"result":[
			{"offer_id":"A1","updated":true},
			{"offer_id":"A2","updated":false,"errors":[{"code":"NOT_FOUND","message":"unknown offer"}]}
		]}`))
	})
	p := NewPusher(c, 0)

	updated, err := p.ImportPrices(context.Background(), []PriceUpdate{
		{OfferID: "A1", PriceRub: 1540, OldPrice: 1800},
		{OfferID: "A2", PriceRub: 990, OldPrice: 1200},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
}

func TestImportPricesClampsBatchesToThrottleBurst(t *testing.T) {
	var batchSizes []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req importPricesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Prices))

		results := make([]map[string]any, 0, len(req.Prices))
		for _, item := range req.Prices {
			results = append(results, map[string]any{"offer_id": item.OfferID, "updated": true})
		}
		json.NewEncoder(w).Encode(map[string]any{"result": results})
	})

	p := NewPusher(c, 600)
	// Refill instantly so the test does not sit out the per-minute budget;
	// the burst stays at the configured 600.
	p.limiter = rate.NewLimiter(rate.Limit(1_000_000), 600)

	updates := make([]PriceUpdate, 1000)
	for i := range updates {
		updates[i] = PriceUpdate{OfferID: "A", PriceRub: 100}
	}

	updated, err := p.ImportPrices(context.Background(), updates)
	require.NoError(t, err)

	assert.Equal(t, 1000, updated)
	assert.Equal(t, []int{600, 400}, batchSizes)
}

func TestPusherUnthrottledKeepsEndpointBatchLimits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[]}`))
	})
	p := NewPusher(c, 0)

	assert.Equal(t, priceBatchLimit, p.batchCeil(priceBatchLimit))
	assert.Equal(t, stockBatchLimit, p.batchCeil(stockBatchLimit))
}

func TestUpdateStocksClampsNegativeAndBatches(t *testing.T) {
	var batches [][]stockItem
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req updateStocksRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, req.Stocks)

		results := make([]map[string]any, 0, len(req.Stocks))
		for _, s := range req.Stocks {
			results = append(results, map[string]any{"offer_id": s.OfferID, "updated": true})
		}
		json.NewEncoder(w).Encode(map[string]any{"result": results})
	})
	p := NewPusher(c, 0)

	updates := make([]StockUpdate, 0, 150)
	for i := 0; i < 150; i++ {
		updates = append(updates, StockUpdate{OfferID: "A", WarehouseID: 7, Stock: 5})
	}
	updates[0].Stock = -3

	updated, err := p.UpdateStocks(context.Background(), updates)
	require.NoError(t, err)

	assert.Equal(t, 150, updated)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 50)
	assert.Equal(t, 0, batches[0][0].Stock)
}
