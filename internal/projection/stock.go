package projection

import (
	"context"
	"fmt"
	"time"

	"inventory-ledger/internal/models"
	"inventory-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// Projections are read-only views recomputed on demand from the ledger.
// They hold no state of their own beyond the store reference.
type Projections struct {
	store *store.Store
}

// New creates the projection set over a store
func New(s *store.Store) *Projections {
	return &Projections{store: s}
}

// StockLevel derives the current level as the sum of all movement
// deltas. Zero for a product with no movements, including one created
// a moment ago.
func (p *Projections) StockLevel(ctx context.Context, productID int64) (int64, error) {
	var level int64
	err := p.store.DB().GetContext(ctx, &level,
		"SELECT COALESCE(SUM(change), 0) FROM stock_movements WHERE product_id = ?",
		productID)
	if err != nil {
		return 0, fmt.Errorf("stock level for product %d: %w", productID, err)
	}
	return level, nil
}

// Overview lists the catalog ordered by name with derived stock levels
func (p *Projections) Overview(ctx context.Context) ([]models.ProductOverview, error) {
	var rows []models.ProductOverview
	err := p.store.DB().SelectContext(ctx, &rows, `
		SELECT p.id, p.name, p.barcode, p.location, p.unit_price, p.initial_price,
		       COALESCE(SUM(m.change), 0) AS stock
		FROM products p
		LEFT JOIN stock_movements m ON m.product_id = p.id
		GROUP BY p.id
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("product overview: %w", err)
	}
	return rows, err
}

type dailySaleRow struct {
	ProductID int64           `db:"id"`
	Name      string          `db:"name"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	SoldQty   int64           `db:"sold_qty"`
}

// DailySales aggregates SALE movements within the current local day,
// grouped by product and ordered by quantity sold descending. Revenue
// is quantity times the product's current unit price.
func (p *Projections) DailySales(ctx context.Context) ([]models.DailySalesRow, error) {
	start, end := dayBounds(time.Now())

	var rows []dailySaleRow
	err := p.store.DB().SelectContext(ctx, &rows, `
		SELECT p.id, p.name, p.unit_price, SUM(-m.change) AS sold_qty
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		WHERE m.reason = ? AND m.change < 0 AND m.created_at >= ? AND m.created_at < ?
		GROUP BY p.id
		HAVING sold_qty > 0
		ORDER BY sold_qty DESC`,
		models.ReasonSale, start, end)
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}

	report := make([]models.DailySalesRow, 0, len(rows))
	for _, row := range rows {
		report = append(report, models.DailySalesRow{
			ProductID:   row.ProductID,
			ProductName: row.Name,
			SoldQty:     row.SoldQty,
			Revenue:     row.UnitPrice.Mul(decimal.NewFromInt(row.SoldQty)),
		})
	}
	return report, nil
}

// dayBounds returns the half-open [start, end) range of the local
// calendar day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}
