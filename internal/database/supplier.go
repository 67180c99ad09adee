package database

import (
	"context"
	"fmt"
	"time"

	"partsync/internal/models"
)

type SupplierStatus string

const (
	SupplierStatusPending  SupplierStatus = "pending"
	SupplierStatusResolved SupplierStatus = "resolved"
	SupplierStatusNoOffers SupplierStatus = "no_offers"
	SupplierStatusFailed   SupplierStatus = "failed"
)

// SupplierPart links one marketplace offer to its supplier-side identity and
// the most recent offer snapshot taken from the portal.
type SupplierPart struct {
	OfferID       string         `db:"offer_id"`
	PartCode      string         `db:"part_code"`
	Brand         string         `db:"brand"`
	Number        string         `db:"number"`
	DetailURL     string         `db:"detail_url"`
	Warehouse     string         `db:"warehouse"`
	Qty           int            `db:"qty"`
	PurchasePrice float64        `db:"purchase_price"`
	Deadline      string         `db:"deadline"`
	MarkupPercent float64        `db:"markup_percent"`
	Status        SupplierStatus `db:"status"`
	ErrorMessage  string         `db:"error_message"`
	FetchedAt     *time.Time     `db:"fetched_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// upsertSupplierPartQuery registers a part code for an offer. Resolution
// state resets to pending only when the part code actually changed, so a
// routine catalog refresh never re-pends already-resolved parts.
const upsertSupplierPartQuery = `
	INSERT INTO supplier_parts (offer_id, part_code, markup_percent)
	VALUES ($1, $2, $3)
	ON CONFLICT (offer_id) DO UPDATE SET
		part_code = EXCLUDED.part_code,
		markup_percent = EXCLUDED.markup_percent,
		status = CASE WHEN supplier_parts.part_code <> EXCLUDED.part_code
			THEN 'pending' ELSE supplier_parts.status END,
		error_message = CASE WHEN supplier_parts.part_code <> EXCLUDED.part_code
			THEN '' ELSE supplier_parts.error_message END,
		updated_at = CURRENT_TIMESTAMP`

// UpsertSupplierPart registers (or re-registers) a part code for an offer.
func (db *DB) UpsertSupplierPart(ctx context.Context, offerID, partCode string, markupPercent float64) error {
	_, err := db.pool.Exec(ctx, upsertSupplierPartQuery, offerID, partCode, markupPercent)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier part: %w", err)
	}
	return nil
}

// ListForSupplierSync returns the parts a supplier run should visit: pending
// ones first, then everything whose snapshot is older than maxAge.
func (db *DB) ListForSupplierSync(ctx context.Context, maxAge time.Duration, limit int) ([]*SupplierPart, error) {
	query := `
		SELECT offer_id, part_code, brand, number, detail_url, warehouse, qty,
		       purchase_price, deadline, markup_percent, status, error_message,
		       fetched_at, updated_at
		FROM supplier_parts
		WHERE status = 'pending'
		   OR fetched_at IS NULL
		   OR fetched_at < $1
		ORDER BY status = 'pending' DESC, fetched_at ASC NULLS FIRST
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, time.Now().Add(-maxAge), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list supplier parts: %w", err)
	}
	defer rows.Close()

	var parts []*SupplierPart
	for rows.Next() {
		p := &SupplierPart{}
		err := rows.Scan(
			&p.OfferID, &p.PartCode, &p.Brand, &p.Number, &p.DetailURL,
			&p.Warehouse, &p.Qty, &p.PurchasePrice, &p.Deadline,
			&p.MarkupPercent, &p.Status, &p.ErrorMessage,
			&p.FetchedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier part: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// SaveSnapshot records the outcome of one portal visit. A snapshot without
// an offer marks the part no_offers and zeroes the quantity so stale stock
// is never pushed.
func (db *DB) SaveSnapshot(ctx context.Context, offerID string, snap models.Snapshot) error {
	status := SupplierStatusResolved
	warehouse, deadline := "", ""
	qty := 0
	price := 0.0
	if snap.Offer != nil {
		warehouse = snap.Offer.Warehouse
		qty = snap.Offer.Qty
		price = snap.Offer.PriceRub
		deadline = snap.Offer.Deadline
	} else {
		status = SupplierStatusNoOffers
	}

	query := `
		UPDATE supplier_parts SET
			brand = $2,
			number = $3,
			detail_url = $4,
			warehouse = $5,
			qty = $6,
			purchase_price = $7,
			deadline = $8,
			status = $9,
			error_message = '',
			fetched_at = $10,
			updated_at = CURRENT_TIMESTAMP
		WHERE offer_id = $1`

	_, err := db.pool.Exec(ctx, query,
		offerID, snap.Brand, snap.Number, snap.DetailURL,
		warehouse, qty, price, deadline, status, snap.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// MarkSupplierFailed records a per-part failure without touching the last
// good snapshot fields.
func (db *DB) MarkSupplierFailed(ctx context.Context, offerID, errorMsg string) error {
	query := `
		UPDATE supplier_parts SET
			status = 'failed',
			error_message = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE offer_id = $1`

	_, err := db.pool.Exec(ctx, query, offerID, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to mark supplier part failed: %w", err)
	}
	return nil
}

// GetSupplierPart retrieves one part by its marketplace offer ID. Returns
// nil when unknown.
func (db *DB) GetSupplierPart(ctx context.Context, offerID string) (*SupplierPart, error) {
	parts, err := db.querySupplierParts(ctx, `WHERE offer_id = $1`, offerID)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return parts[0], nil
}

// FindByPartCode retrieves every offer mapped to a supplier part code.
func (db *DB) FindByPartCode(ctx context.Context, partCode string) ([]*SupplierPart, error) {
	return db.querySupplierParts(ctx, `WHERE part_code = $1 ORDER BY offer_id`, partCode)
}

func (db *DB) querySupplierParts(ctx context.Context, where string, args ...interface{}) ([]*SupplierPart, error) {
	query := `
		SELECT offer_id, part_code, brand, number, detail_url, warehouse, qty,
		       purchase_price, deadline, markup_percent, status, error_message,
		       fetched_at, updated_at
		FROM supplier_parts ` + where

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query supplier parts: %w", err)
	}
	defer rows.Close()

	var parts []*SupplierPart
	for rows.Next() {
		p := &SupplierPart{}
		err := rows.Scan(
			&p.OfferID, &p.PartCode, &p.Brand, &p.Number, &p.DetailURL,
			&p.Warehouse, &p.Qty, &p.PurchasePrice, &p.Deadline,
			&p.MarkupPercent, &p.Status, &p.ErrorMessage,
			&p.FetchedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier part: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// PendingStockUpdate is one offer whose current supplier quantity should be
// mirrored to a marketplace warehouse.
type PendingStockUpdate struct {
	OfferID string
	Qty     int
}

// CollectStockUpdates returns quantities for every part with a snapshot:
// resolved parts report their quantity, no_offers parts report zero. Parts
// never visited or currently failed are excluded.
func (db *DB) CollectStockUpdates(ctx context.Context) ([]PendingStockUpdate, error) {
	query := `
		SELECT offer_id, CASE WHEN status = 'resolved' THEN qty ELSE 0 END
		FROM supplier_parts
		WHERE status IN ('resolved', 'no_offers')
		ORDER BY offer_id`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stock updates: %w", err)
	}
	defer rows.Close()

	var updates []PendingStockUpdate
	for rows.Next() {
		var u PendingStockUpdate
		if err := rows.Scan(&u.OfferID, &u.Qty); err != nil {
			return nil, fmt.Errorf("failed to scan stock update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// CountByStatus returns how many supplier parts sit in each state.
func (db *DB) CountByStatus(ctx context.Context) (map[SupplierStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM supplier_parts
		GROUP BY status`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count supplier parts: %w", err)
	}
	defer rows.Close()

	counts := make(map[SupplierStatus]int)
	for rows.Next() {
		var status SupplierStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
