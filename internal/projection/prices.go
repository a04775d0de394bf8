package projection

import (
	"context"
	"fmt"

	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceHistory returns the recorded purchase prices for a product,
// most recent first. Only PURCHASE movements carrying a price qualify.
func (p *Projections) PriceHistory(ctx context.Context, productID int64) ([]models.PricePoint, error) {
	var history []models.PricePoint
	err := p.store.DB().SelectContext(ctx, &history, `
		SELECT created_at, purchase_price
		FROM stock_movements
		WHERE product_id = ? AND reason = ? AND purchase_price IS NOT NULL
		ORDER BY created_at DESC, id DESC`,
		productID, models.ReasonPurchase)
	if err != nil {
		return nil, fmt.Errorf("price history for product %d: %w", productID, err)
	}
	return history, nil
}

// PriceDeltas computes the per-entry change against the immediately
// older entry of a most-recent-first history. The oldest entry is
// marked FirstPurchase instead of carrying a delta. A zero prior price
// yields a zero percent change rather than dividing.
func PriceDeltas(history []models.PricePoint) []models.PriceDelta {
	deltas := make([]models.PriceDelta, 0, len(history))
	for i, point := range history {
		delta := models.PriceDelta{
			Timestamp: point.Timestamp,
			Price:     point.Price,
		}
		if i == len(history)-1 {
			delta.FirstPurchase = true
		} else {
			prior := history[i+1].Price
			delta.Change = point.Price.Sub(prior)
			if !prior.IsZero() {
				delta.PercentChange = delta.Change.Div(prior).Mul(hundred)
			}
		}
		deltas = append(deltas, delta)
	}
	return deltas
}
