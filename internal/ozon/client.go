package ozon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api-seller.ozon.ru"

// Client is a thin seller-API client. Every endpoint is a POST with a JSON
// body and the Client-Id/Api-Key header pair; transient failures are retried
// with exponential backoff before the caller sees an error.
type Client struct {
	baseURL    string
	clientID   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
}

func NewClient(baseURL, clientID, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With("component", "ozon"),
		maxRetries: 5,
	}
}

// doPost sends one JSON request and decodes the response into out. Network
// errors and 5xx/429 responses are retried; 4xx responses are not, since
// resending the same payload cannot help.
func (c *Client) doPost(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request for %s: %w", path, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<uint(attempt-2)) * time.Second
			c.logger.Warn("retrying request", "path", path, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retryable, err := c.once(ctx, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("request to %s failed after %d attempts: %w", path, c.maxRetries, lastErr)
}

func (c *Client) once(ctx context.Context, path string, body []byte, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("sending request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("reading response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return retryable, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, truncate(data, 300))
	}

	// The API sometimes reports failures inside a 200 body.
	if apiErr := bodyError(data); apiErr != "" {
		return false, fmt.Errorf("%s returned error: %s", path, apiErr)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("decoding response from %s: %w", path, err)
		}
	}
	return false, nil
}

// bodyError extracts a non-empty top-level "error" field from a response
// body, or "" when the body carries none.
func bodyError(data []byte) string {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	switch s := string(probe.Error); s {
	case "", "null", "{}", `""`, "[]":
		return ""
	default:
		return truncate(probe.Error, 300)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Product is one entry of the seller's catalog listing.
type Product struct {
	ProductID int64  `json:"product_id"`
	OfferID   string `json:"offer_id"`
	Archived  bool   `json:"archived"`
}

type listRequest struct {
	Filter struct {
		Visibility string `json:"visibility"`
	} `json:"filter"`
	LastID string `json:"last_id"`
	Limit  int    `json:"limit"`
}

type listResponse struct {
	Result struct {
		Items  []Product `json:"items"`
		Total  int       `json:"total"`
		LastID string    `json:"last_id"`
	} `json:"result"`
}

// ListProducts walks the whole catalog via last_id pagination and returns
// every product regardless of visibility.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	lastID := ""
	for {
		req := listRequest{LastID: lastID, Limit: 1000}
		req.Filter.Visibility = "ALL"

		var resp listResponse
		if err := c.doPost(ctx, "/v3/product/list", req, &resp); err != nil {
			return nil, err
		}

		all = append(all, resp.Result.Items...)
		c.logger.Info("catalog page fetched", "got", len(resp.Result.Items), "total", len(all))

		if len(resp.Result.Items) == 0 || resp.Result.LastID == "" || len(all) >= resp.Result.Total {
			return all, nil
		}
		lastID = resp.Result.LastID
	}
}

// ProductInfo carries the pricing-relevant part of a product card.
type ProductInfo struct {
	ProductID     int64   `json:"product_id"`
	OfferID       string  `json:"offer_id"`
	Price         string  `json:"price"`
	OldPrice      string  `json:"old_price"`
	FBSCommission float64 // percent, picked from the sales schema list
}

type infoListRequest struct {
	OfferIDs []string `json:"offer_id"`
}

type infoListResponse struct {
	Items []struct {
		ProductID   int64  `json:"id"`
		OfferID     string `json:"offer_id"`
		Price       string `json:"price"`
		OldPrice    string `json:"old_price"`
		Commissions []struct {
			SaleSchema string  `json:"sale_schema"`
			Percent    float64 `json:"percent"`
		} `json:"commissions"`
	} `json:"items"`
}

const infoBatchLimit = 1000

// ProductInfoList fetches card info for the given offer IDs, batching at the
// API's documented ceiling. The FBS sales-schema commission is flattened out
// of the per-schema list.
func (c *Client) ProductInfoList(ctx context.Context, offerIDs []string) ([]ProductInfo, error) {
	var all []ProductInfo
	for start := 0; start < len(offerIDs); start += infoBatchLimit {
		end := min(start+infoBatchLimit, len(offerIDs))

		var resp infoListResponse
		if err := c.doPost(ctx, "/v3/product/info/list", infoListRequest{OfferIDs: offerIDs[start:end]}, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			info := ProductInfo{
				ProductID: item.ProductID,
				OfferID:   item.OfferID,
				Price:     item.Price,
				OldPrice:  item.OldPrice,
			}
			for _, com := range item.Commissions {
				if com.SaleSchema == "fbs" {
					info.FBSCommission = com.Percent
					break
				}
			}
			all = append(all, info)
		}
	}
	return all, nil
}

// ProductAttributes carries the physical dimensions of a product card.
// The API reports millimeters and grams; depth is the card's "length".
type ProductAttributes struct {
	ProductID int64
	OfferID   string
	WidthMM   int
	HeightMM  int
	LengthMM  int
	WeightG   int
}

type attributesRequest struct {
	Filter struct {
		OfferIDs   []string `json:"offer_id"`
		Visibility string   `json:"visibility"`
	} `json:"filter"`
	Limit int `json:"limit"`
}

type attributesResponse struct {
	Result []struct {
		ID     int64  `json:"id"`
		Offer  string `json:"offer_id"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Depth  int    `json:"depth"`
		Weight int    `json:"weight"`
	} `json:"result"`
}

// Attributes fetches dimensions for the given offer IDs, batched.
func (c *Client) Attributes(ctx context.Context, offerIDs []string) ([]ProductAttributes, error) {
	var all []ProductAttributes
	for start := 0; start < len(offerIDs); start += infoBatchLimit {
		end := min(start+infoBatchLimit, len(offerIDs))

		req := attributesRequest{Limit: infoBatchLimit}
		req.Filter.OfferIDs = offerIDs[start:end]
		req.Filter.Visibility = "ALL"

		var resp attributesResponse
		if err := c.doPost(ctx, "/v4/product/info/attributes", req, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Result {
			all = append(all, ProductAttributes{
				ProductID: item.ID,
				OfferID:   item.Offer,
				WidthMM:   item.Width,
				HeightMM:  item.Height,
				LengthMM:  item.Depth,
				WeightG:   item.Weight,
			})
		}
	}
	return all, nil
}

// Warehouse is one FBS warehouse of the seller account.
type Warehouse struct {
	WarehouseID int64  `json:"warehouse_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
}

type warehouseListResponse struct {
	Result []Warehouse `json:"result"`
}

func (c *Client) WarehouseList(ctx context.Context) ([]Warehouse, error) {
	var resp warehouseListResponse
	if err := c.doPost(ctx, "/v1/warehouse/list", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}
