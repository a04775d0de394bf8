package store

import "errors"

// Typed failure outcomes surfaced to callers. None of the store
// operations panic; every failure path returns one of these, possibly
// wrapped with context.
var (
	ErrNotFound           = errors.New("product not found")
	ErrUnknownProduct     = errors.New("unknown product")
	ErrDuplicateBarcode   = errors.New("barcode already registered")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConstraint         = errors.New("constraint violation")
)
