package store

import (
	"context"
	"fmt"
	"time"

	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// RecordMovement appends an immutable entry to the movement log. The
// ledger itself allows the derived level to go negative; callers that
// want the guard opt in with rejectNegative, which fails with
// ErrInsufficientStock instead of inserting.
func (s *Store) RecordMovement(ctx context.Context, productID int64, change int64, reason string, purchasePrice *decimal.Decimal, rejectNegative bool) (*models.StockMovement, error) {
	if change == 0 {
		return nil, fmt.Errorf("%w: movement change must be nonzero", ErrInvalidInput)
	}
	if !models.ValidReason(reason) {
		return nil, fmt.Errorf("%w: unknown movement reason %q", ErrInvalidInput, reason)
	}
	if purchasePrice != nil && reason != models.ReasonPurchase {
		return nil, fmt.Errorf("%w: purchase price only valid on PURCHASE movements", ErrInvalidInput)
	}

	movement := &models.StockMovement{
		ProductID: productID,
		Change:    change,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if purchasePrice != nil {
		movement.PurchasePrice = decimal.NewNullDecimal(*purchasePrice)
	}

	tx, err := s.DB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin movement: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)", productID); err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, ErrUnknownProduct
	}

	if rejectNegative && change < 0 {
		var level int64
		if err := tx.GetContext(ctx, &level,
			"SELECT COALESCE(SUM(change), 0) FROM stock_movements WHERE product_id = ?",
			productID); err != nil {
			return nil, fmt.Errorf("check stock level: %w", err)
		}
		if level+change < 0 {
			return nil, fmt.Errorf("%w: level=%d, requested=%d", ErrInsufficientStock, level, -change)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO stock_movements (product_id, change, reason, purchase_price, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		movement.ProductID, movement.Change, movement.Reason,
		movement.PurchasePrice, movement.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: insert movement: %v", ErrConstraint, err)
	}

	movement.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit movement: %v", ErrStorageUnavailable, err)
	}

	s.notifyCommit()
	return movement, nil
}

// MovementsForProduct retrieves a product's ledger entries in insertion order
func (s *Store) MovementsForProduct(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := s.DB().SelectContext(ctx, &movements,
		"SELECT * FROM stock_movements WHERE product_id = ? ORDER BY id", productID)
	return movements, err
}
