package service

import (
	"context"
	"errors"
	"fmt"

	"inventory-ledger/internal/durability"
	"inventory-ledger/internal/models"
	"inventory-ledger/internal/projection"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryService handles catalog and stock business logic on top of
// the ledger store and its projections
type InventoryService struct {
	store       *store.Store
	projections *projection.Projections
	durability  *durability.Manager
	logger      *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(s *store.Store, p *projection.Projections, d *durability.Manager) *InventoryService {
	return &InventoryService{
		store:       s,
		projections: p,
		durability:  d,
		logger:      util.GetLogger(),
	}
}

// AddProductRequest describes a new catalog entry. A positive
// InitialQty also records an opening PURCHASE movement at the unit
// price.
type AddProductRequest struct {
	Name       string          `json:"name"`
	Barcode    string          `json:"barcode,omitempty"`
	Location   string          `json:"location"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	InitialQty int64           `json:"initial_qty"`
}

// AddProduct creates a product and, when requested, its opening stock
func (s *InventoryService) AddProduct(ctx context.Context, req AddProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AddProduct")
	defer span.End()

	var barcode *string
	if req.Barcode != "" {
		barcode = &req.Barcode
	}

	product, err := s.store.CreateProduct(ctx, req.Name, barcode, req.Location, req.UnitPrice)
	if err != nil {
		return nil, err
	}
	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name))

	if req.InitialQty > 0 {
		price := req.UnitPrice
		_, err := s.store.RecordMovement(ctx, product.ID, req.InitialQty, models.ReasonPurchase, &price, false)
		if err != nil {
			return nil, fmt.Errorf("record opening stock: %w", err)
		}
		util.MovementsRecordedTotal.WithLabelValues(models.ReasonPurchase).Inc()
	}

	return product, nil
}

// Sell resolves a barcode and records a SALE movement, refusing to
// take the stock level negative
func (s *InventoryService) Sell(ctx context.Context, barcode string, qty int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Sell")
	defer span.End()

	if qty <= 0 {
		return nil, fmt.Errorf("%w: sale quantity must be positive", store.ErrInvalidInput)
	}

	product, err := s.store.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	_, err = s.store.RecordMovement(ctx, product.ID, -qty, models.ReasonSale, nil, true)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			util.MovementsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		}
		return nil, err
	}

	util.MovementsRecordedTotal.WithLabelValues(models.ReasonSale).Inc()
	s.logger.Info("Sale recorded",
		zap.Int64("product_id", product.ID),
		zap.Int64("qty", qty))
	return product, nil
}

// ReceiveStockRequest describes an incoming purchase. When
// UpdateUnitPrice is set, the product's unit price is replaced by the
// purchase price after the movement is recorded.
type ReceiveStockRequest struct {
	Barcode         string          `json:"barcode"`
	Qty             int64           `json:"qty"`
	PurchasePrice   decimal.Decimal `json:"purchase_price"`
	UpdateUnitPrice bool            `json:"update_unit_price"`
}

// ReceiveStock records a PURCHASE movement and optionally applies the
// new unit price
func (s *InventoryService) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReceiveStock")
	defer span.End()

	if req.Qty <= 0 {
		return nil, fmt.Errorf("%w: receive quantity must be positive", store.ErrInvalidInput)
	}

	product, err := s.store.FindByBarcode(ctx, req.Barcode)
	if err != nil {
		return nil, err
	}

	price := req.PurchasePrice
	_, err = s.store.RecordMovement(ctx, product.ID, req.Qty, models.ReasonPurchase, &price, false)
	if err != nil {
		return nil, err
	}
	util.MovementsRecordedTotal.WithLabelValues(models.ReasonPurchase).Inc()
	s.logger.Info("Stock received",
		zap.Int64("product_id", product.ID),
		zap.Int64("qty", req.Qty))

	if req.UpdateUnitPrice {
		if err := s.applyPriceUpdate(ctx, product.ID, req.PurchasePrice); err != nil {
			return nil, err
		}
	}

	return s.store.GetProduct(ctx, product.ID)
}

// applyPriceUpdate writes the new unit price and verifies it reads
// back as applied. On a silent write failure it refreshes the storage
// connection and retries exactly once.
func (s *InventoryService) applyPriceUpdate(ctx context.Context, productID int64, newPrice decimal.Decimal) error {
	if err := s.store.UpdateUnitPrice(ctx, productID, newPrice); err != nil {
		return err
	}
	util.PriceUpdatesTotal.Inc()

	applied, err := s.priceApplied(ctx, productID, newPrice)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	s.logger.Warn("Price update did not read back, refreshing connection",
		zap.Int64("product_id", productID))
	util.PriceUpdateRetriesTotal.Inc()
	if err := s.durability.RefreshConnection(); err != nil {
		return err
	}
	if err := s.store.UpdateUnitPrice(ctx, productID, newPrice); err != nil {
		return err
	}
	applied, err = s.priceApplied(ctx, productID, newPrice)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: price update for product %d not applied after retry",
			store.ErrStorageUnavailable, productID)
	}
	return nil
}

func (s *InventoryService) priceApplied(ctx context.Context, productID int64, expected decimal.Decimal) (bool, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return product.UnitPrice.Equal(expected), nil
}

// Adjust records a manual correction movement of either sign
func (s *InventoryService) Adjust(ctx context.Context, productID int64, change int64) (*models.StockMovement, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Adjust")
	defer span.End()

	movement, err := s.store.RecordMovement(ctx, productID, change, models.ReasonAdjust, nil, false)
	if err != nil {
		return nil, err
	}
	util.MovementsRecordedTotal.WithLabelValues(models.ReasonAdjust).Inc()
	return movement, nil
}

// RemoveProduct deletes a product and its whole movement history as
// one atomic unit. Returns false when the product did not exist.
func (s *InventoryService) RemoveProduct(ctx context.Context, productID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.RemoveProduct")
	defer span.End()

	deleted, err := s.store.DeleteProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	if deleted {
		util.ProductsDeletedTotal.Inc()
		s.logger.Info("Product removed", zap.Int64("product_id", productID))
	}
	return deleted, nil
}

// Overview lists the catalog with derived stock levels
func (s *InventoryService) Overview(ctx context.Context) ([]models.ProductOverview, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Overview")
	defer span.End()
	return s.projections.Overview(ctx)
}

// Search matches products by name or barcode substring
func (s *InventoryService) Search(ctx context.Context, query string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Search")
	defer span.End()
	return s.store.SearchProducts(ctx, query)
}

// StockLevel derives a product's current stock level
func (s *InventoryService) StockLevel(ctx context.Context, productID int64) (int64, error) {
	return s.projections.StockLevel(ctx, productID)
}

// DailyReport returns today's sales grouped by product
func (s *InventoryService) DailyReport(ctx context.Context) ([]models.DailySalesRow, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.DailyReport")
	defer span.End()
	return s.projections.DailySales(ctx)
}

// PriceHistory returns a product's purchase price history annotated
// with period-over-period deltas, most recent first
func (s *InventoryService) PriceHistory(ctx context.Context, productID int64) ([]models.PriceDelta, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.PriceHistory")
	defer span.End()

	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	history, err := s.projections.PriceHistory(ctx, productID)
	if err != nil {
		return nil, err
	}
	return projection.PriceDeltas(history), nil
}
