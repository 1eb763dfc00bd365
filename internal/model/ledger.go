package model

import "github.com/google/uuid"

type LedgerType string

const (
	LedgerStockIn    LedgerType = "stock_in"
	LedgerStockOut   LedgerType = "stock_out"
	LedgerAdjustment LedgerType = "adjustment"
	LedgerSale       LedgerType = "sale"
	LedgerReturn     LedgerType = "return"
	LedgerExpired    LedgerType = "expired"
)

// Reference types for the polymorphic reference on a ledger entry.
const (
	RefSalesOrder = "sales_order"
)

// LedgerEntry is one immutable stock-affecting event. Entries are written in
// the same transaction as the stock mutation they describe and are never
// updated or deleted; mistakes are corrected by a new adjustment entry.
type LedgerEntry struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product   *Product  `json:"product,omitempty" validate:"-"`

	Type LedgerType `gorm:"type:varchar(20);not null;index" json:"type" validate:"required,oneof=stock_in stock_out adjustment sale return expired"`

	// Quantity is always a positive magnitude; direction is implied by Type.
	Quantity int    `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	Notes    string `gorm:"type:text" json:"notes"`

	// Polymorphic reference to the originating business document, if any.
	ReferenceType *string    `gorm:"type:varchar(50);index:idx_ledger_ref" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index:idx_ledger_ref" json:"reference_id,omitempty"`
}

func (LedgerEntry) TableName() string {
	return "inventory_ledger_entries"
}

// Direction returns +1 for stock-increasing types, -1 for stock-decreasing
// types and 0 for adjustments (delta documented in Notes).
func (t LedgerType) Direction() int {
	switch t {
	case LedgerStockIn, LedgerReturn:
		return 1
	case LedgerStockOut, LedgerSale, LedgerExpired:
		return -1
	default:
		return 0
	}
}

// SignedQuantity applies the type direction to the stored magnitude.
func (e *LedgerEntry) SignedQuantity() int {
	return e.Type.Direction() * e.Quantity
}
