package repository

import (
	"errors"

	"go-pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	FindBySKU(sku string) (*model.Product, error)
	FindLowStock(threshold int) ([]model.Product, error)
	Update(product *model.Product) error
	Deactivate(id uuid.UUID, updatedBy string) error

	// FindForUpdate locks the product row for the duration of tx.
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error)

	// The three sanctioned stock mutators. Nothing else writes the stock
	// column. All run against the caller's tx so the mutation commits or
	// rolls back together with its ledger entry.
	IncrementStock(tx *gorm.DB, id uuid.UUID, qty int) error
	DecrementStock(tx *gorm.DB, id uuid.UUID, qty int) error
	SetStock(tx *gorm.DB, id uuid.UUID, newLevel int) error

	CountAll() (int64, error)
	CountLowStock(threshold int) (int64, error)
	StockValuation() (decimal.Decimal, error)

	FindAllCategories() ([]model.Category, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Preload("Category").Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.Preload("Category").First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.ProductNotFoundError{ProductID: id}
	}
	return &product, err
}

func (r *productRepo) FindBySKU(sku string) (*model.Product, error) {
	var product model.Product
	err := r.db.First(&product, "sku = ?", sku).Error
	return &product, err
}

func (r *productRepo) FindLowStock(threshold int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.Where("stock < ? AND status = ?", threshold, model.ProductActive).
		Order("stock ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) Update(product *model.Product) error {
	// Stock is owned by the stock mutators below.
	return r.db.Omit("stock").Save(product).Error
}

func (r *productRepo) Deactivate(id uuid.UUID, updatedBy string) error {
	res := r.db.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.ProductInactive,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &model.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// FindForUpdate menggunakan Pessimistic Locking (FOR UPDATE)
func (r *productRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Set("gorm:query_option", "FOR UPDATE").First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) IncrementStock(tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return &model.InvalidQuantityError{ProductID: id, Quantity: qty}
	}
	res := tx.Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &model.ProductNotFoundError{ProductID: id}
	}
	return nil
}

// DecrementStock is a conditional atomic update: the WHERE clause guards
// stock >= qty so stock can never go negative, even under concurrent load.
func (r *productRepo) DecrementStock(tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return &model.InvalidQuantityError{ProductID: id, Quantity: qty}
	}
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the product is missing or stock ran short; re-read inside
		// the same tx to report which.
		var product model.Product
		if err := tx.First(&product, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &model.ProductNotFoundError{ProductID: id}
			}
			return err
		}
		return &model.InsufficientStockError{
			ProductID:   id,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Stock,
		}
	}
	return nil
}

func (r *productRepo) SetStock(tx *gorm.DB, id uuid.UUID, newLevel int) error {
	if newLevel < 0 {
		return &model.InvalidQuantityError{ProductID: id, Quantity: newLevel}
	}
	res := tx.Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", newLevel)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &model.ProductNotFoundError{ProductID: id}
	}
	return nil
}

func (r *productRepo) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&model.Product{}).Count(&count).Error
	return count, err
}

func (r *productRepo) CountLowStock(threshold int) (int64, error) {
	var count int64
	err := r.db.Model(&model.Product{}).Where("stock < ?", threshold).Count(&count).Error
	return count, err
}

func (r *productRepo) StockValuation() (decimal.Decimal, error) {
	var valuation decimal.Decimal
	err := r.db.Model(&model.Product{}).
		Select("COALESCE(SUM(stock * price), 0)").
		Scan(&valuation).Error
	return valuation, err
}

func (r *productRepo) FindAllCategories() ([]model.Category, error) {
	var categories []model.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}
