package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// CreateProduct inserts a catalog entry. The initial price is frozen at
// the unit price in effect on creation and never changes afterwards.
func (s *Store) CreateProduct(ctx context.Context, name string, barcode *string, location string, unitPrice decimal.Decimal) (*models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if unitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price must not be negative", ErrInvalidInput)
	}
	barcode = normalizeBarcode(barcode)

	product := &models.Product{
		Name:         name,
		Barcode:      barcode,
		Location:     strings.TrimSpace(location),
		UnitPrice:    unitPrice,
		InitialPrice: unitPrice,
		CreatedAt:    time.Now(),
	}

	res, err := s.DB().ExecContext(ctx,
		`INSERT INTO products (name, barcode, location, unit_price, initial_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		product.Name, product.Barcode, product.Location,
		product.UnitPrice, product.InitialPrice, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBarcode
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}

	product.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	s.notifyCommit()
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.DB().GetContext(ctx, &product, "SELECT * FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}

// FindByBarcode retrieves a product by its barcode
func (s *Store) FindByBarcode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := s.DB().GetContext(ctx, &product, "SELECT * FROM products WHERE barcode = ?", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product by barcode %s: %w", code, err)
	}
	return &product, nil
}

// ListProducts retrieves the catalog ordered by name
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.DB().SelectContext(ctx, &products, "SELECT * FROM products ORDER BY name")
	return products, err
}

// SearchProducts matches products by name or barcode substring
func (s *Store) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	var products []models.Product
	err := s.DB().SelectContext(ctx, &products,
		"SELECT * FROM products WHERE name LIKE ? OR barcode LIKE ? ORDER BY name",
		pattern, pattern)
	return products, err
}

// UpdateUnitPrice replaces the mutable unit price. The initial price
// and the movement log are untouched.
func (s *Store) UpdateUnitPrice(ctx context.Context, productID int64, newPrice decimal.Decimal) error {
	if newPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidInput)
	}

	res, err := s.DB().ExecContext(ctx,
		"UPDATE products SET unit_price = ? WHERE id = ?", newPrice, productID)
	if err != nil {
		return fmt.Errorf("update unit price: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update unit price: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.notifyCommit()
	return nil
}

// DeleteProduct removes a product and all of its movements as one
// transaction. Returns false without error when the product does not
// exist. A failure mid-delete rolls back, leaving both tables as they
// were.
func (s *Store) DeleteProduct(ctx context.Context, productID int64) (bool, error) {
	tx, err := s.DB().BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin delete: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM stock_movements WHERE product_id = ?", productID); err != nil {
		return false, fmt.Errorf("%w: delete movements: %v", ErrConstraint, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", productID)
	if err != nil {
		return false, fmt.Errorf("%w: delete product: %v", ErrConstraint, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit delete: %v", ErrConstraint, err)
	}

	s.notifyCommit()
	return true, nil
}

func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	code := strings.TrimSpace(*barcode)
	if code == "" {
		return nil
	}
	return &code
}
