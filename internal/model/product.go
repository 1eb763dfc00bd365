package model

import "github.com/shopspring/decimal"

type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductDiscontinued ProductStatus = "discontinued"
)

// Category groups products (e.g. Obat Keras, OTC, Alkes)
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}

// DefaultCategories seeded on startup
var DefaultCategories = []Category{
	{Name: "Prescription"},
	{Name: "Over The Counter"},
	{Name: "Medical Supplies"},
	{Name: "Vitamins & Supplements"},
}

type Product struct {
	BaseModel
	SKU        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	// Stock may only be written through the repository stock operations
	// (IncrementStock / DecrementStock / SetStock).
	Stock int    `gorm:"default:0;check:stock >= 0" json:"stock"`
	Unit  string `gorm:"type:varchar(20)" json:"unit"`

	Price     decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	CostPrice *decimal.Decimal `gorm:"type:numeric(14,2)" json:"cost_price,omitempty"`

	Status               ProductStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	RequiresPrescription bool          `gorm:"default:false" json:"requires_prescription"`

	// User tracking
	CreatedByUserID *string `gorm:"type:varchar(255)" json:"created_by_user_id,omitempty"`
	UpdatedByUserID *string `gorm:"type:varchar(255)" json:"updated_by_user_id,omitempty"`
	CreatedByUser   *User   `gorm:"foreignKey:CreatedByUserID;references:ID" json:"created_by_user,omitempty"`
	UpdatedByUser   *User   `gorm:"foreignKey:UpdatedByUserID;references:ID" json:"updated_by_user,omitempty"`
}

// Sellable reports whether the product may appear on a new sales order.
func (p *Product) Sellable() bool {
	return p.Status == ProductActive
}

// PriceValid checks the non-negative price invariant.
func (p *Product) PriceValid() bool {
	if p.Price.IsNegative() {
		return false
	}
	if p.CostPrice != nil && p.CostPrice.IsNegative() {
		return false
	}
	return true
}

// LineTotal returns price * qty using the current price.
func (p *Product) LineTotal(qty int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(qty)))
}
