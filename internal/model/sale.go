package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"
	PaymentQRIS   PaymentMethod = "qris"
)

// SalesOrder is one sale: header plus line items. A completed order, its
// lines and the corresponding ledger entries are always written in a single
// transaction.
type SalesOrder struct {
	BaseModel
	InvoiceNumber string `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`

	CustomerID *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	// Snapshot at order time; independent of later customer edits.
	CustomerName  string `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(20)" json:"customer_phone"`

	Subtotal      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount"`
	AdditionalFee decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"additional_fee"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"grand_total"`

	PaymentMethod  PaymentMethod   `gorm:"type:varchar(10);not null" json:"payment_method" validate:"required,oneof=cash debit credit qris"`
	PaymentDetails json.RawMessage `gorm:"type:jsonb" json:"payment_details,omitempty"`

	Status OrderStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	Notes  string      `gorm:"type:text" json:"notes"`

	Lines []SalesOrderLine `gorm:"foreignKey:SalesOrderID" json:"lines"`

	CreatedByUserID *string `gorm:"type:varchar(255)" json:"created_by_user_id,omitempty"`
	CreatedByUser   *User   `gorm:"foreignKey:CreatedByUserID;references:ID" json:"created_by_user,omitempty"`
}

func (SalesOrder) TableName() string {
	return "sales_orders"
}

// SalesOrderLine references a product at its price at time of sale. Lines
// are immutable once the parent order is persisted.
type SalesOrderLine struct {
	BaseModel
	SalesOrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"sales_order_id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product      *Product  `json:"product,omitempty"`

	Quantity int `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	// UnitPrice is the snapshot of the product price when the line was staged.
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	// Subtotal is always recomputed as Quantity * UnitPrice, never trusted
	// from input.
	Subtotal decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
}

func (SalesOrderLine) TableName() string {
	return "sales_order_lines"
}

// GrandTotalOf computes subtotal - discount + additional fee.
func GrandTotalOf(subtotal, discount, fee decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(fee)
}

// TotalsConsistent verifies the order totals invariant.
func (o *SalesOrder) TotalsConsistent() bool {
	sum := decimal.Zero
	for _, line := range o.Lines {
		if !line.Subtotal.Equal(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))) {
			return false
		}
		sum = sum.Add(line.Subtotal)
	}
	if !o.Subtotal.Equal(sum) {
		return false
	}
	return o.GrandTotal.Equal(GrandTotalOf(o.Subtotal, o.Discount, o.AdditionalFee)) &&
		!o.GrandTotal.IsNegative() && !o.Subtotal.IsNegative()
}

const invoicePrefix = "INV"

// FormatInvoiceNumber builds INV/YYYYMMDD/NNNN. The sequence resets daily.
func FormatInvoiceNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s/%s/%04d", invoicePrefix, day.Format("20060102"), seq)
}

// InvoicePrefixFor returns the shared prefix of all invoice numbers on a day,
// used to look up the highest existing sequence.
func InvoicePrefixFor(day time.Time) string {
	return fmt.Sprintf("%s/%s/", invoicePrefix, day.Format("20060102"))
}

// ParseInvoiceSequence extracts the daily sequence from an invoice number.
// Returns 0 for an empty string so callers can start at sequence 1.
func ParseInvoiceSequence(invoiceNumber string) (int, error) {
	if invoiceNumber == "" {
		return 0, nil
	}
	parts := strings.Split(invoiceNumber, "/")
	if len(parts) != 3 || parts[0] != invoicePrefix {
		return 0, fmt.Errorf("malformed invoice number %q", invoiceNumber)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed invoice sequence in %q", invoiceNumber)
	}
	return seq, nil
}
