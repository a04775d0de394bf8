package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement reasons
const (
	ReasonSale     = "SALE"
	ReasonPurchase = "PURCHASE"
	ReasonAdjust   = "ADJUST"
)

// ValidReason reports whether reason is one of the known movement reasons
func ValidReason(reason string) bool {
	switch reason {
	case ReasonSale, ReasonPurchase, ReasonAdjust:
		return true
	}
	return false
}

// Product represents a catalog entry
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Barcode      *string         `db:"barcode" json:"barcode,omitempty"`
	Location     string          `db:"location" json:"location"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	InitialPrice decimal.Decimal `db:"initial_price" json:"initial_price"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// StockMovement is an immutable ledger entry; movements are the sole
// source of truth for stock levels and are never updated in place.
type StockMovement struct {
	ID            int64               `db:"id" json:"id"`
	ProductID     int64               `db:"product_id" json:"product_id"`
	Change        int64               `db:"change" json:"change"`
	Reason        string              `db:"reason" json:"reason"`
	PurchasePrice decimal.NullDecimal `db:"purchase_price" json:"purchase_price,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// ProductOverview is a catalog row with its derived stock level
type ProductOverview struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Barcode      *string         `db:"barcode" json:"barcode,omitempty"`
	Location     string          `db:"location" json:"location"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	InitialPrice decimal.Decimal `db:"initial_price" json:"initial_price"`
	Stock        int64           `db:"stock" json:"stock"`
}

// DailySalesRow is one product's sales within the current local day
type DailySalesRow struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	SoldQty     int64           `json:"sold_qty"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// PricePoint is one recorded purchase price, newest first in history
type PricePoint struct {
	Timestamp time.Time       `db:"created_at" json:"timestamp"`
	Price     decimal.Decimal `db:"purchase_price" json:"price"`
}

// PriceDelta annotates a price point with its change against the
// immediately older entry. FirstPurchase marks the oldest entry in the
// window, which has no prior reference to compare against.
type PriceDelta struct {
	Timestamp     time.Time       `json:"timestamp"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	FirstPurchase bool            `json:"first_purchase"`
}

// ScanEvent is emitted when a keystroke burst is classified as
// scanner-generated input rather than manual typing.
type ScanEvent struct {
	EventID string    `json:"event_id"`
	Code    string    `json:"code"`
	At      time.Time `json:"at"`
}
