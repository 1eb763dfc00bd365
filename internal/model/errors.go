package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvoiceConflict is returned after the bounded retry on invoice
	// number generation is exhausted.
	ErrInvoiceConflict = errors.New("could not allocate a unique invoice number")

	// ErrOrderNotPending guards the pending-only transitions (confirm, delete).
	ErrOrderNotPending = errors.New("sales order is not in pending status")

	// ErrLedgerQueryUnbounded rejects ledger reads with no filter and no limit.
	ErrLedgerQueryUnbounded = errors.New("ledger query must be filtered or bounded")

	// ErrValidation marks caller input the services refuse; wrap it with
	// %w so handlers can separate bad requests from internal failures.
	ErrValidation = errors.New("validation failed")

	ErrSKUExists        = errors.New("SKU already exists")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrSessionOpen      = errors.New("register session already open for this user")
	ErrNoOpenSession    = errors.New("no open register session for this user")
	ErrNotesRequired    = errors.New("adjustment requires explanatory notes")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAdjustmentNoop   = errors.New("adjustment matches current stock, nothing to do")
	ErrNotSellable      = errors.New("product is not available for sale")
)

// ProductNotFoundError aborts the whole operation; nothing is persisted.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError is returned for zero or negative quantities before
// any stock check runs.
type InvalidQuantityError struct {
	ProductID uuid.UUID
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

// InsufficientStockError carries requested/available so the caller can show
// an actionable message. The quantity is never silently clamped.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for '%s': requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}
