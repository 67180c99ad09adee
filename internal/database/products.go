package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// OzonProduct mirrors one catalog entry of the marketplace account.
type OzonProduct struct {
	OfferID   string    `db:"offer_id"`
	ProductID int64     `db:"product_id"`
	Archived  bool      `db:"archived"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OzonProductDetails carries the pricing-relevant card data: current prices,
// the FBS commission and the physical dimensions used for logistics tariffs.
type OzonProductDetails struct {
	OfferID         string          `db:"offer_id"`
	ProductID       int64           `db:"product_id"`
	CurrentPrice    string          `db:"current_price"`
	OldPrice        string          `db:"old_price"`
	FBSCommission   float64         `db:"fbs_commission"`
	WidthMM         int             `db:"width_mm"`
	HeightMM        int             `db:"height_mm"`
	LengthMM        int             `db:"length_mm"`
	WeightG         int             `db:"weight_g"`
	CalculatedPrice *int            `db:"calculated_price"`
	PriceSteps      json.RawMessage `db:"price_steps"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// UpsertProduct inserts a catalog entry or refreshes an existing one.
func (db *DB) UpsertProduct(ctx context.Context, p *OzonProduct) error {
	query := `
		INSERT INTO ozon_products (offer_id, product_id, archived)
		VALUES ($1, $2, $3)
		ON CONFLICT (offer_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			archived = EXCLUDED.archived,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at`

	err := db.pool.QueryRow(ctx, query, p.OfferID, p.ProductID, p.Archived).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

// upsertDetailsQuery writes the card info fetched from the marketplace.
// Calculated price and its step trace are left untouched; they belong to
// the pricing pass.
const upsertDetailsQuery = `
	INSERT INTO ozon_product_details
		(offer_id, product_id, current_price, old_price, fbs_commission,
		 width_mm, height_mm, length_mm, weight_g)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (offer_id) DO UPDATE SET
		product_id = EXCLUDED.product_id,
		current_price = EXCLUDED.current_price,
		old_price = EXCLUDED.old_price,
		fbs_commission = EXCLUDED.fbs_commission,
		width_mm = EXCLUDED.width_mm,
		height_mm = EXCLUDED.height_mm,
		length_mm = EXCLUDED.length_mm,
		weight_g = EXCLUDED.weight_g,
		updated_at = CURRENT_TIMESTAMP`

func (db *DB) UpsertDetails(ctx context.Context, d *OzonProductDetails) error {
	_, err := db.pool.Exec(ctx, upsertDetailsQuery,
		d.OfferID, d.ProductID, d.CurrentPrice, d.OldPrice, d.FBSCommission,
		d.WidthMM, d.HeightMM, d.LengthMM, d.WeightG,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product details: %w", err)
	}
	return nil
}

// UpsertDetailsAndCandidate writes card details and, in the same
// transaction, registers the offer as a supplier sweep candidate with its
// offer ID as the part code. A candidate must never exist without the card
// data the pricing pass needs.
func (db *DB) UpsertDetailsAndCandidate(ctx context.Context, d *OzonProductDetails, partCode string) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertDetailsQuery,
			d.OfferID, d.ProductID, d.CurrentPrice, d.OldPrice, d.FBSCommission,
			d.WidthMM, d.HeightMM, d.LengthMM, d.WeightG,
		); err != nil {
			return fmt.Errorf("failed to upsert product details: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertSupplierPartQuery, d.OfferID, partCode, 0.0); err != nil {
			return fmt.Errorf("failed to register supplier candidate: %w", err)
		}
		return nil
	})
}

// GetDetails retrieves the card details for one offer. Returns nil when the
// offer is unknown.
func (db *DB) GetDetails(ctx context.Context, offerID string) (*OzonProductDetails, error) {
	query := `
		SELECT offer_id, product_id, current_price, old_price, fbs_commission,
		       width_mm, height_mm, length_mm, weight_g,
		       calculated_price, price_steps, updated_at
		FROM ozon_product_details
		WHERE offer_id = $1`

	d := &OzonProductDetails{}
	err := db.pool.QueryRow(ctx, query, offerID).Scan(
		&d.OfferID, &d.ProductID, &d.CurrentPrice, &d.OldPrice, &d.FBSCommission,
		&d.WidthMM, &d.HeightMM, &d.LengthMM, &d.WeightG,
		&d.CalculatedPrice, &d.PriceSteps, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product details: %w", err)
	}
	return d, nil
}

// UpdateCalculatedPrice stores the pricing result and its step trace.
func (db *DB) UpdateCalculatedPrice(ctx context.Context, offerID string, priceRub int, steps json.RawMessage) error {
	query := `
		UPDATE ozon_product_details SET
			calculated_price = $2,
			price_steps = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE offer_id = $1`

	_, err := db.pool.Exec(ctx, query, offerID, priceRub, steps)
	if err != nil {
		return fmt.Errorf("failed to update calculated price: %w", err)
	}
	return nil
}

// PricingInput joins the supplier purchase data with the marketplace card
// data needed to run the pricing chain for one offer.
type PricingInput struct {
	OfferID       string
	PurchasePrice float64
	MarkupPercent float64
	FBSCommission float64
	WidthMM       int
	HeightMM      int
	LengthMM      int
	WeightG       int
}

// ListPricingInputs returns every offer ready for a pricing pass: a resolved
// supplier part with a positive purchase price and a known card.
func (db *DB) ListPricingInputs(ctx context.Context) ([]PricingInput, error) {
	query := `
		SELECT sp.offer_id, sp.purchase_price, sp.markup_percent,
		       d.fbs_commission, d.width_mm, d.height_mm, d.length_mm, d.weight_g
		FROM supplier_parts sp
		JOIN ozon_product_details d ON d.offer_id = sp.offer_id
		WHERE sp.status = 'resolved' AND sp.purchase_price > 0
		ORDER BY sp.offer_id`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing inputs: %w", err)
	}
	defer rows.Close()

	var inputs []PricingInput
	for rows.Next() {
		var in PricingInput
		err := rows.Scan(
			&in.OfferID, &in.PurchasePrice, &in.MarkupPercent,
			&in.FBSCommission, &in.WidthMM, &in.HeightMM, &in.LengthMM, &in.WeightG,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pricing input: %w", err)
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}

// PendingPriceUpdate is one offer whose stored calculated price differs from
// the price currently shown on the marketplace.
type PendingPriceUpdate struct {
	OfferID         string
	CalculatedPrice int
	CurrentPrice    string
}

// CollectPriceUpdates returns every offer with a calculated price that does
// not match the marketplace's current one, skipping offers never priced.
func (db *DB) CollectPriceUpdates(ctx context.Context) ([]PendingPriceUpdate, error) {
	query := `
		SELECT offer_id, calculated_price, current_price
		FROM ozon_product_details
		WHERE calculated_price IS NOT NULL
		  AND current_price IS DISTINCT FROM calculated_price::TEXT
		ORDER BY offer_id`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to collect price updates: %w", err)
	}
	defer rows.Close()

	var updates []PendingPriceUpdate
	for rows.Next() {
		var u PendingPriceUpdate
		if err := rows.Scan(&u.OfferID, &u.CalculatedPrice, &u.CurrentPrice); err != nil {
			return nil, fmt.Errorf("failed to scan price update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
