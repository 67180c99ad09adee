package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	// Skip until a dedicated test database is wired into CI.
	t.Skip("Test database not configured")
	return nil
}

func TestSupplierPartLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	require.NoError(t, db.InitSchema(ctx))

	product := &OzonProduct{OfferID: "A-100", ProductID: 42}
	require.NoError(t, db.UpsertProduct(ctx, product))
	require.NoError(t, db.UpsertSupplierPart(ctx, "A-100", "31311", 0))

	t.Run("pending part is listed for sync", func(t *testing.T) {
		parts, err := db.ListForSupplierSync(ctx, time.Hour, 100)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, SupplierStatusPending, parts[0].Status)
	})

	t.Run("snapshot with offer marks resolved", func(t *testing.T) {
		snap := models.Snapshot{
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
			FetchedAt: time.Now(),
		}
		require.NoError(t, db.SaveSnapshot(ctx, "A-100", snap))

		part, err := db.GetSupplierPart(ctx, "A-100")
		require.NoError(t, err)
		require.NotNil(t, part)
		assert.Equal(t, SupplierStatusResolved, part.Status)
		assert.Equal(t, 12, part.Qty)
		assert.InDelta(t, 1540.50, part.PurchasePrice, 0.001)
	})

	t.Run("snapshot without offer zeroes stock", func(t *testing.T) {
		snap := models.Snapshot{
			PartCode:  "31311",
			Brand:     "3RG",
			Number:    "31311",
			DetailURL: "https://b2b.example.ru/parts/3RG/31311",
			FetchedAt: time.Now(),
		}
		require.NoError(t, db.SaveSnapshot(ctx, "A-100", snap))

		updates, err := db.CollectStockUpdates(ctx)
		require.NoError(t, err)
		require.Len(t, updates, 1)
		assert.Zero(t, updates[0].Qty)
	})

	t.Run("re-upsert with same part code keeps resolved status", func(t *testing.T) {
		details := &OzonProductDetails{OfferID: "A-100", ProductID: 42, FBSCommission: 14.0,
			WidthMM: 100, HeightMM: 50, LengthMM: 200}
		require.NoError(t, db.UpsertDetailsAndCandidate(ctx, details, "A-100"))

		snap := models.Snapshot{
			PartCode:  "A-100",
			Brand:     "3RG",
			Number:    "31311",
			FetchedAt: time.Now(),
			Offer:     &models.Offer{Warehouse: "Москва-Юг", Qty: 3, PriceRub: 990},
		}
		require.NoError(t, db.SaveSnapshot(ctx, "A-100", snap))

		// A routine catalog refresh re-registers the same code.
		require.NoError(t, db.UpsertDetailsAndCandidate(ctx, details, "A-100"))
		part, err := db.GetSupplierPart(ctx, "A-100")
		require.NoError(t, err)
		assert.Equal(t, SupplierStatusResolved, part.Status)

		// A changed code restarts resolution from scratch.
		require.NoError(t, db.UpsertSupplierPart(ctx, "A-100", "31312", 0))
		part, err = db.GetSupplierPart(ctx, "A-100")
		require.NoError(t, err)
		assert.Equal(t, SupplierStatusPending, part.Status)
	})

	t.Run("failed part excluded from stock updates", func(t *testing.T) {
		require.NoError(t, db.MarkSupplierFailed(ctx, "A-100", "page timeout"))

		updates, err := db.CollectStockUpdates(ctx)
		require.NoError(t, err)
		assert.Empty(t, updates)

		counts, err := db.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[SupplierStatusFailed])
	})
}
