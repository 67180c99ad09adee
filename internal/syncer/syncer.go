package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"partsync/internal/database"
	"partsync/internal/models"
	"partsync/internal/ozon"
	"partsync/internal/pricing"
	"partsync/internal/supplier"
)

// SnapshotTaker is the resolver surface the syncer drives. Implemented by
// supplier.Resolver.
type SnapshotTaker interface {
	EnsureAuthenticated(ctx context.Context) error
	Snapshot(ctx context.Context, partCode, knownDetailURL string) (models.Snapshot, error)
}

// SupplierStore is the database surface of a supplier sweep.
type SupplierStore interface {
	ListForSupplierSync(ctx context.Context, maxAge time.Duration, limit int) ([]*database.SupplierPart, error)
	SaveSnapshot(ctx context.Context, offerID string, snap models.Snapshot) error
	MarkSupplierFailed(ctx context.Context, offerID, errorMsg string) error
	StartRun(ctx context.Context, kind string, total int) (uuid.UUID, error)
	FinishRun(ctx context.Context, id uuid.UUID, succeeded, failed int, runErr error) error
}

// SnapshotPublisher emits one event per finished snapshot. Implemented by
// events.Publisher.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, offerID string, snap models.Snapshot) error
}

// Options bound one supplier sweep.
type Options struct {
	MaxAge    time.Duration
	BatchSize int
}

func DefaultOptions() Options {
	return Options{
		MaxAge:    12 * time.Hour,
		BatchSize: 500,
	}
}

// Syncer ties the resolution engine to the database and the event stream.
// Runs are strictly sequential; the portal session supports one page.
type Syncer struct {
	store     SupplierStore
	resolver  SnapshotTaker
	publisher SnapshotPublisher
	logger    *slog.Logger
	opts      Options
}

func New(store SupplierStore, resolver SnapshotTaker, publisher SnapshotPublisher, logger *slog.Logger, opts Options) *Syncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultOptions().MaxAge
	}
	return &Syncer{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger.With("component", "syncer"),
		opts:      opts,
	}
}

// SyncSupplier sweeps every due part through the portal. Per-part failures
// are recorded and the sweep continues; an invalid session aborts the whole
// run since every further part would fail the same way.
func (s *Syncer) SyncSupplier(ctx context.Context) error {
	if err := s.resolver.EnsureAuthenticated(ctx); err != nil {
		return fmt.Errorf("session check failed: %w", err)
	}

	parts, err := s.store.ListForSupplierSync(ctx, s.opts.MaxAge, s.opts.BatchSize)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		s.logger.Info("nothing to sync")
		return nil
	}

	runID, err := s.store.StartRun(ctx, "supplier", len(parts))
	if err != nil {
		return err
	}
	s.logger.Info("supplier sweep started", "run_id", runID, "parts", len(parts))

	var succeeded, failed int
	var abortErr error
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			abortErr = err
			break
		}

		snap, err := s.resolver.Snapshot(ctx, part.PartCode, part.DetailURL)
		if err != nil {
			failed++
			if errors.Is(err, supplier.ErrAccessDenied) {
				abortErr = err
				break
			}
			s.logger.Error("part failed", "offer_id", part.OfferID, "pcode", part.PartCode, "error", err)
			if markErr := s.store.MarkSupplierFailed(ctx, part.OfferID, err.Error()); markErr != nil {
				s.logger.Error("failed to record failure", "offer_id", part.OfferID, "error", markErr)
			}
			continue
		}

		if err := s.store.SaveSnapshot(ctx, part.OfferID, snap); err != nil {
			failed++
			s.logger.Error("failed to save snapshot", "offer_id", part.OfferID, "error", err)
			continue
		}
		succeeded++

		if s.publisher != nil {
			if err := s.publisher.PublishSnapshot(ctx, part.OfferID, snap); err != nil {
				s.logger.Error("failed to publish event", "offer_id", part.OfferID, "error", err)
			}
		}
	}

	if err := s.store.FinishRun(ctx, runID, succeeded, failed, abortErr); err != nil {
		s.logger.Error("failed to finish run", "run_id", runID, "error", err)
	}
	s.logger.Info("supplier sweep finished",
		"run_id", runID, "succeeded", succeeded, "failed", failed)

	if abortErr != nil {
		return fmt.Errorf("sweep aborted after %d/%d parts: %w", succeeded+failed, len(parts), abortErr)
	}
	return nil
}

// Catalog refreshes the local mirror of the marketplace account and reprices
// everything with a resolved supplier purchase.
type Catalog struct {
	db     *database.DB
	client *ozon.Client
	logger *slog.Logger
}

func NewCatalog(db *database.DB, client *ozon.Client, logger *slog.Logger) *Catalog {
	return &Catalog{
		db:     db,
		client: client,
		logger: logger.With("component", "catalog"),
	}
}

// Refresh pulls the product list, card info and dimensions from the
// marketplace and mirrors them into the local tables.
func (c *Catalog) Refresh(ctx context.Context) error {
	products, err := c.client.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %w", err)
	}

	offerIDs := make([]string, 0, len(products))
	for _, p := range products {
		if err := c.db.UpsertProduct(ctx, &database.OzonProduct{
			OfferID:   p.OfferID,
			ProductID: p.ProductID,
			Archived:  p.Archived,
		}); err != nil {
			return err
		}
		offerIDs = append(offerIDs, p.OfferID)
	}
	c.logger.Info("catalog mirrored", "products", len(products))

	infos, err := c.client.ProductInfoList(ctx, offerIDs)
	if err != nil {
		return fmt.Errorf("fetching product info: %w", err)
	}
	attrs, err := c.client.Attributes(ctx, offerIDs)
	if err != nil {
		return fmt.Errorf("fetching attributes: %w", err)
	}

	dims := make(map[string]ozon.ProductAttributes, len(attrs))
	for _, a := range attrs {
		dims[a.OfferID] = a
	}

	var candidates int
	for _, info := range infos {
		d := &database.OzonProductDetails{
			OfferID:       info.OfferID,
			ProductID:     info.ProductID,
			CurrentPrice:  info.Price,
			OldPrice:      info.OldPrice,
			FBSCommission: info.FBSCommission,
		}
		if a, ok := dims[info.OfferID]; ok {
			d.WidthMM = a.WidthMM
			d.HeightMM = a.HeightMM
			d.LengthMM = a.LengthMM
			d.WeightG = a.WeightG
		}
		if sweepEligible(d) {
			// The offer ID doubles as the supplier part code.
			if err := c.db.UpsertDetailsAndCandidate(ctx, d, d.OfferID); err != nil {
				return err
			}
			candidates++
			continue
		}
		if err := c.db.UpsertDetails(ctx, d); err != nil {
			return err
		}
	}
	c.logger.Info("card details mirrored", "cards", len(infos), "candidates", candidates)
	return nil
}

// sweepEligible reports whether a card carries everything the pricing chain
// needs: an FBS commission and full dimensions. Cards missing either cannot
// be priced, so visiting the portal for them is wasted budget.
func sweepEligible(d *database.OzonProductDetails) bool {
	return d.FBSCommission > 0 && d.WidthMM > 0 && d.HeightMM > 0 && d.LengthMM > 0
}

// Reprice runs the pricing chain for every offer with a resolved supplier
// purchase and stores the result with its step trace.
func (c *Catalog) Reprice(ctx context.Context) (int, error) {
	inputs, err := c.db.ListPricingInputs(ctx)
	if err != nil {
		return 0, err
	}

	var priced int
	for _, in := range inputs {
		pin := pricing.Defaults(in.PurchasePrice)
		pin.MarkupPercent = in.MarkupPercent

		res := pricing.Calculate(pin, pricing.Dimensions{
			LengthMM: in.LengthMM,
			WidthMM:  in.WidthMM,
			HeightMM: in.HeightMM,
			WeightG:  in.WeightG,
		}, in.FBSCommission)

		steps, err := json.Marshal(res.Steps)
		if err != nil {
			return priced, fmt.Errorf("marshaling price steps: %w", err)
		}
		if err := c.db.UpdateCalculatedPrice(ctx, in.OfferID, res.FinalPriceRub, steps); err != nil {
			return priced, err
		}
		priced++
	}
	c.logger.Info("repricing finished", "priced", priced)
	return priced, nil
}

// PushPrices sends every pending calculated price to the marketplace.
func (c *Catalog) PushPrices(ctx context.Context, pusher *ozon.Pusher) (int, error) {
	pending, err := c.db.CollectPriceUpdates(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		c.logger.Info("prices already in sync")
		return 0, nil
	}

	updates := make([]ozon.PriceUpdate, 0, len(pending))
	for _, u := range pending {
		updates = append(updates, ozon.PriceUpdate{
			OfferID:  u.OfferID,
			PriceRub: u.CalculatedPrice,
		})
	}
	return pusher.ImportPrices(ctx, updates)
}

// PushStocks mirrors supplier quantities to one marketplace warehouse.
func (c *Catalog) PushStocks(ctx context.Context, pusher *ozon.Pusher, warehouseID int64) (int, error) {
	pending, err := c.db.CollectStockUpdates(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		c.logger.Info("no stock to push")
		return 0, nil
	}

	updates := make([]ozon.StockUpdate, 0, len(pending))
	for _, u := range pending {
		updates = append(updates, ozon.StockUpdate{
			OfferID:     u.OfferID,
			WarehouseID: warehouseID,
			Stock:       u.Qty,
		})
	}
	return pusher.UpdateStocks(ctx, updates)
}
