package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/models"
)

type fakeRedis struct {
	added []*redis.XAddArgs
	err   error
}

func (f *fakeRedis) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	f.added = append(f.added, args)
	cmd := redis.NewStringCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("1-0")
	}
	return cmd
}

func (f *fakeRedis) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func snapshotWithOffer() models.Snapshot {
	return models.Snapshot{
		PartCode:  "31311",
		Brand:     "3RG",
		Number:    "31311",
		DetailURL: "https://b2b.example.ru/parts/3RG/31311",
		Offer: &models.Offer{
			Warehouse: "Москва-Юг",
			Qty:       12,
			PriceRub:  1540.50,
			Deadline:  "1 день",
		},
		FetchedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishSnapshotWithOffer(t *testing.T) {
	fake := &fakeRedis{}
	p := NewPublisher(fake, testLogger())

	err := p.PublishSnapshot(context.Background(), "A-100", snapshotWithOffer())
	require.NoError(t, err)

	require.Len(t, fake.added, 1)
	args := fake.added[0]
	assert.Equal(t, OfferStream, args.Stream)
	assert.Equal(t, EventOfferUpdated, args.Values.(map[string]interface{})["type"])

	var payload offerPayload
	data := args.Values.(map[string]interface{})["data"].(string)
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.Equal(t, "A-100", payload.OfferID)
	assert.Equal(t, 12, payload.Qty)
	assert.InDelta(t, 1540.50, payload.PriceRub, 0.001)
}

func TestPublishSnapshotWithoutOffer(t *testing.T) {
	fake := &fakeRedis{}
	p := NewPublisher(fake, testLogger())

	snap := snapshotWithOffer()
	snap.Offer = nil

	require.NoError(t, p.PublishSnapshot(context.Background(), "A-100", snap))

	require.Len(t, fake.added, 1)
	assert.Equal(t, EventNoOffers, fake.added[0].Values.(map[string]interface{})["type"])
}

func TestPublishSnapshotRedisError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("connection refused")}
	p := NewPublisher(fake, testLogger())

	err := p.PublishSnapshot(context.Background(), "A-100", snapshotWithOffer())
	assert.ErrorContains(t, err, "failed to publish to redis")
}
