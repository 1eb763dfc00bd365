package repository

import (
	"errors"
	"time"

	"go-pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesFilter bounds order listings.
type SalesFilter struct {
	From   *time.Time
	To     *time.Time
	Status *model.OrderStatus
	Limit  int
}

type SalesRepository interface {
	// Create persists the header and its lines in the caller's tx.
	Create(tx *gorm.DB, order *model.SalesOrder) error

	// NextInvoiceSequence returns 1 + the highest sequence already used for
	// the given day. Uniqueness is ultimately enforced by the unique index
	// on invoice_number; callers retry on gorm.ErrDuplicatedKey.
	NextInvoiceSequence(tx *gorm.DB, day time.Time) (int, error)

	FindByID(id uuid.UUID) (*model.SalesOrder, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.SalesOrder, error)
	List(filter SalesFilter) ([]model.SalesOrder, error)

	UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, updatedBy string) error

	// DeletePending removes a pending order and its lines. Completed orders
	// are immutable history and cannot be deleted.
	DeletePending(id uuid.UUID, deletedBy string) error

	// CashSalesTotal sums grand totals of the given cashier's completed cash
	// orders in [from, to], used for register session reconciliation. Each
	// drawer only answers for its own takings.
	CashSalesTotal(userID string, from, to time.Time) (decimal.Decimal, error)

	// RevenueBetween returns total revenue and order count of completed
	// orders in [from, to].
	RevenueBetween(from, to time.Time) (decimal.Decimal, int64, error)
}

type salesRepo struct {
	db *gorm.DB
}

func NewSalesRepo(db *gorm.DB) SalesRepository {
	return &salesRepo{db}
}

func (r *salesRepo) Create(tx *gorm.DB, order *model.SalesOrder) error {
	// Lines ride along via the association; one INSERT chain, same tx.
	return tx.Create(order).Error
}

func (r *salesRepo) NextInvoiceSequence(tx *gorm.DB, day time.Time) (int, error) {
	// String MAX() compares lexicographically, and once the daily sequence
	// grows a digit INV/.../10000 sorts below INV/.../9999. Ordering by
	// length first keeps the numeric maximum on top. Unscoped: a deleted
	// pending order still owns its number through the unique index.
	var last []string
	err := tx.Unscoped().Model(&model.SalesOrder{}).
		Where("invoice_number LIKE ?", model.InvoicePrefixFor(day)+"%").
		Order("LENGTH(invoice_number) DESC, invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &last).Error
	if err != nil {
		return 0, err
	}
	if len(last) == 0 {
		return 1, nil
	}
	seq, err := model.ParseInvoiceSequence(last[0])
	if err != nil {
		return 0, err
	}
	return seq + 1, nil
}

func (r *salesRepo) FindByID(id uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := r.db.Preload("Lines").Preload("Lines.Product").Preload("CreatedByUser").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *salesRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := tx.Set("gorm:query_option", "FOR UPDATE").First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	// Lines are immutable, no lock needed.
	if err := tx.Where("sales_order_id = ?", id).Find(&order.Lines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *salesRepo) List(filter SalesFilter) ([]model.SalesOrder, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := r.db.Preload("Lines").Order("created_at DESC").Limit(limit)
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var orders []model.SalesOrder
	err := q.Find(&orders).Error
	return orders, err
}

func (r *salesRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, updatedBy string) error {
	res := tx.Model(&model.SalesOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *salesRepo) DeletePending(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var order model.SalesOrder
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&order, "id = ?", id).Error; err != nil {
			return err
		}
		if order.Status != model.OrderPending {
			return model.ErrOrderNotPending
		}
		if err := tx.Where("sales_order_id = ?", id).Delete(&model.SalesOrderLine{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&order).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
}

func (r *salesRepo) CashSalesTotal(userID string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Model(&model.SalesOrder{}).
		Where("status = ? AND payment_method = ? AND created_by_user_id = ? AND created_at BETWEEN ? AND ?",
			model.OrderCompleted, model.PaymentCash, userID, from, to).
		Select("COALESCE(SUM(grand_total), 0)").
		Scan(&total).Error
	return total, err
}

func (r *salesRepo) RevenueBetween(from, to time.Time) (decimal.Decimal, int64, error) {
	var total decimal.Decimal
	err := r.db.Model(&model.SalesOrder{}).
		Where("status = ? AND created_at BETWEEN ? AND ?", model.OrderCompleted, from, to).
		Select("COALESCE(SUM(grand_total), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, 0, err
	}

	var count int64
	err = r.db.Model(&model.SalesOrder{}).
		Where("status = ? AND created_at BETWEEN ? AND ?", model.OrderCompleted, from, to).
		Count(&count).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return total, count, nil
}

// IsNotFound reports whether err is the gorm record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
