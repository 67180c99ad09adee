package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"partsync/internal/models"
)

// OfferStream receives one event per completed portal snapshot.
const OfferStream = "stream:supplier_offers"

const (
	EventOfferUpdated = "SUPPLIER_OFFER_UPDATED"
	EventNoOffers     = "SUPPLIER_NO_OFFERS"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher emits snapshot events to a Redis stream so downstream consumers
// (repricing, alerting) see offer changes without polling the database.
type Publisher struct {
	redis  RedisClient
	logger *slog.Logger
}

func NewPublisher(client RedisClient, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.With("component", "events"),
	}
}

type offerPayload struct {
	OfferID   string  `json:"offer_id"`
	PartCode  string  `json:"part_code"`
	Brand     string  `json:"brand"`
	Number    string  `json:"number"`
	DetailURL string  `json:"detail_url"`
	Warehouse string  `json:"warehouse,omitempty"`
	Qty       int     `json:"qty"`
	PriceRub  float64 `json:"price_rub"`
	Deadline  string  `json:"deadline,omitempty"`
	FetchedAt string  `json:"fetched_at"`
}

// PublishSnapshot emits one event for a finished snapshot. Events are fire
// and forget: a publish failure is returned but carries no retry state.
func (p *Publisher) PublishSnapshot(ctx context.Context, offerID string, snap models.Snapshot) error {
	eventType := EventOfferUpdated
	payload := offerPayload{
		OfferID:   offerID,
		PartCode:  snap.PartCode,
		Brand:     snap.Brand,
		Number:    snap.Number,
		DetailURL: snap.DetailURL,
		FetchedAt: snap.FetchedAt.Format(time.RFC3339),
	}
	if snap.Offer != nil {
		payload.Warehouse = snap.Offer.Warehouse
		payload.Qty = snap.Offer.Qty
		payload.PriceRub = snap.Offer.PriceRub
		payload.Deadline = snap.Offer.Deadline
	} else {
		eventType = EventNoOffers
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	eventID := uuid.New()
	args := &redis.XAddArgs{
		Stream: OfferStream,
		Values: map[string]interface{}{
			"id":        eventID.String(),
			"type":      eventType,
			"offer_id":  offerID,
			"part_code": snap.PartCode,
			"timestamp": fmt.Sprintf("%d", snap.FetchedAt.UnixNano()),
			"data":      string(data),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"event_id", eventID,
		"type", eventType,
		"offer_id", offerID,
		"stream", OfferStream)
	return nil
}
