package service

import (
	"fmt"

	"go-pharmacy-pos/internal/event"
	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"
	"go-pharmacy-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryService interface {
	CreateProduct(req *model.Product, userID, userName, userEmail string) error
	UpdateProduct(id uuid.UUID, req *model.Product, userID, userName, userEmail string) (*model.Product, error)
	DeactivateProduct(id uuid.UUID, userID string) error
	GetAllProducts() ([]model.Product, error)
	GetProductByID(id uuid.UUID) (*model.Product, error)
	GetLowStockProducts() ([]model.Product, error)
	GetCategories() ([]model.Category, error)

	// Stock operations. Each mutates stock and appends the matching ledger
	// entry in a single transaction.
	ReceiveStock(productID uuid.UUID, qty int, notes, userID, userName, userEmail string) (*model.Product, error)
	IssueStock(productID uuid.UUID, qty int, entryType model.LedgerType, notes, userID, userName, userEmail string) (*model.Product, error)
	ReturnStock(productID uuid.UUID, qty int, notes, userID, userName, userEmail string) (*model.Product, error)
	AdjustStock(productID uuid.UUID, newLevel int, notes, userID, userName, userEmail string) (*model.Product, error)

	QueryLedger(filter repository.LedgerFilter) ([]model.LedgerEntry, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	ledgerRepo  repository.LedgerRepository
	txm         repository.TxManager
	events      *event.Publisher
}

func NewInventoryService(pRepo repository.ProductRepository, lRepo repository.LedgerRepository, txm repository.TxManager, events *event.Publisher) InventoryService {
	return &inventoryService{
		productRepo: pRepo,
		ledgerRepo:  lRepo,
		txm:         txm,
		events:      events,
	}
}

func (s *inventoryService) CreateProduct(req *model.Product, userID, userName, userEmail string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("%w: field '%s' failed on tag '%s'", model.ErrValidation, firstErr.FailedField, firstErr.Tag)
	}
	if !req.PriceValid() {
		return model.ErrNegativeAmount
	}
	if req.Stock < 0 {
		return &model.InvalidQuantityError{ProductID: req.ID, Quantity: req.Stock}
	}

	// Cek Duplikasi SKU
	existing, _ := s.productRepo.FindBySKU(req.SKU)
	if existing != nil && existing.ID != uuid.Nil {
		return model.ErrSKUExists
	}

	if req.Status == "" {
		req.Status = model.ProductActive
	}
	req.CreatedBy = userID
	req.UpdatedBy = userID
	req.CreatedByUserID = &userID
	req.UpdatedByUserID = &userID

	initialStock := req.Stock
	req.Stock = 0
	if err := s.productRepo.Create(req); err != nil {
		return err
	}

	// Opening stock goes through the sanctioned mutator so it gets its
	// ledger entry like any other receipt.
	if initialStock > 0 {
		if _, err := s.ReceiveStock(req.ID, initialStock, "opening stock", userID, userName, userEmail); err != nil {
			return err
		}
		req.Stock = initialStock
	}
	return nil
}

func (s *inventoryService) UpdateProduct(id uuid.UUID, req *model.Product, userID, userName, userEmail string) (*model.Product, error) {
	if !req.PriceValid() {
		return nil, model.ErrNegativeAmount
	}

	existing, err := s.productRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	// Stock is deliberately not copied here; the stock operations are the
	// only writers of that field, and the repository's Update omits it.
	existing.Name = req.Name
	existing.SKU = req.SKU
	existing.Unit = req.Unit
	existing.Price = req.Price
	existing.CostPrice = req.CostPrice
	existing.CategoryID = req.CategoryID
	existing.RequiresPrescription = req.RequiresPrescription
	if req.Status != "" {
		existing.Status = req.Status
	}
	existing.UpdatedBy = userID
	existing.UpdatedByUserID = &userID

	if err := s.productRepo.Update(existing); err != nil {
		return nil, err
	}
	updated := existing

	s.events.Publish(event.New(event.TypeStockAdjusted, event.ActorInfo{ID: userID, Name: userName, Email: userEmail}, map[string]interface{}{
		"action":     "product_updated",
		"product_id": updated.ID,
		"sku":        updated.SKU,
		"name":       updated.Name,
		"price":      updated.Price,
	}))
	return updated, nil
}

func (s *inventoryService) DeactivateProduct(id uuid.UUID, userID string) error {
	// Products referenced by orders or ledger entries are never hard
	// deleted; they are switched to inactive instead.
	return s.productRepo.Deactivate(id, userID)
}

func (s *inventoryService) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *inventoryService) GetProductByID(id uuid.UUID) (*model.Product, error) {
	return s.productRepo.FindByID(id)
}

func (s *inventoryService) GetLowStockProducts() ([]model.Product, error) {
	return s.productRepo.FindLowStock(lowStockThreshold)
}

func (s *inventoryService) GetCategories() ([]model.Category, error) {
	return s.productRepo.FindAllCategories()
}

// ReceiveStock adds quantity (stock_in). No upper bound.
func (s *inventoryService) ReceiveStock(productID uuid.UUID, qty int, notes, userID, userName, userEmail string) (*model.Product, error) {
	return s.mutateStock(productID, userID, userName, userEmail, func(tx *gorm.DB, product *model.Product) (*model.LedgerEntry, error) {
		if err := s.productRepo.IncrementStock(tx, productID, qty); err != nil {
			return nil, err
		}
		product.Stock += qty
		return &model.LedgerEntry{
			ProductID: productID,
			Type:      model.LedgerStockIn,
			Quantity:  qty,
			Notes:     notes,
		}, nil
	})
}

// IssueStock removes quantity with type stock_out or expired.
func (s *inventoryService) IssueStock(productID uuid.UUID, qty int, entryType model.LedgerType, notes, userID, userName, userEmail string) (*model.Product, error) {
	if entryType != model.LedgerStockOut && entryType != model.LedgerExpired {
		return nil, fmt.Errorf("%w: unsupported issue type %q", model.ErrValidation, entryType)
	}
	return s.mutateStock(productID, userID, userName, userEmail, func(tx *gorm.DB, product *model.Product) (*model.LedgerEntry, error) {
		if err := s.productRepo.DecrementStock(tx, productID, qty); err != nil {
			return nil, err
		}
		product.Stock -= qty
		return &model.LedgerEntry{
			ProductID: productID,
			Type:      entryType,
			Quantity:  qty,
			Notes:     notes,
		}, nil
	})
}

// ReturnStock adds quantity back as a customer return.
func (s *inventoryService) ReturnStock(productID uuid.UUID, qty int, notes, userID, userName, userEmail string) (*model.Product, error) {
	return s.mutateStock(productID, userID, userName, userEmail, func(tx *gorm.DB, product *model.Product) (*model.LedgerEntry, error) {
		if err := s.productRepo.IncrementStock(tx, productID, qty); err != nil {
			return nil, err
		}
		product.Stock += qty
		return &model.LedgerEntry{
			ProductID: productID,
			Type:      model.LedgerReturn,
			Quantity:  qty,
			Notes:     notes,
		}, nil
	})
}

// AdjustStock sets the level directly and logs the computed delta. Notes are
// mandatory: an adjustment without an explanation is not auditable.
func (s *inventoryService) AdjustStock(productID uuid.UUID, newLevel int, notes, userID, userName, userEmail string) (*model.Product, error) {
	if notes == "" {
		return nil, model.ErrNotesRequired
	}
	if newLevel < 0 {
		return nil, &model.InvalidQuantityError{ProductID: productID, Quantity: newLevel}
	}
	return s.mutateStock(productID, userID, userName, userEmail, func(tx *gorm.DB, product *model.Product) (*model.LedgerEntry, error) {
		delta := newLevel - product.Stock
		if delta == 0 {
			return nil, model.ErrAdjustmentNoop
		}
		if err := s.productRepo.SetStock(tx, productID, newLevel); err != nil {
			return nil, err
		}
		product.Stock = newLevel
		magnitude := delta
		if magnitude < 0 {
			magnitude = -magnitude
		}
		return &model.LedgerEntry{
			ProductID: productID,
			Type:      model.LedgerAdjustment,
			Quantity:  magnitude,
			Notes:     fmt.Sprintf("%s (delta %+d)", notes, delta),
		}, nil
	})
}

// mutateStock locks the product row, applies the mutation and appends its
// ledger entry in one transaction, then broadcasts the new level.
func (s *inventoryService) mutateStock(productID uuid.UUID, userID, userName, userEmail string, fn func(tx *gorm.DB, product *model.Product) (*model.LedgerEntry, error)) (*model.Product, error) {
	var product *model.Product
	err := s.txm.Do(func(tx *gorm.DB) error {
		var err error
		product, err = s.productRepo.FindForUpdate(tx, productID)
		if err != nil {
			return err
		}
		entry, err := fn(tx, product)
		if err != nil {
			return err
		}
		entry.CreatedBy = userID
		entry.UpdatedBy = userID
		return s.ledgerRepo.Append(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	actor := event.ActorInfo{ID: userID, Name: userName, Email: userEmail}
	events := []event.Event{event.New(event.TypeStockAdjusted, actor, map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"name":       product.Name,
		"new_stock":  product.Stock,
	})}
	if product.Stock < lowStockThreshold {
		events = append(events, event.New(event.TypeStockLow, actor, map[string]interface{}{
			"product_id": product.ID,
			"name":       product.Name,
			"stock":      product.Stock,
		}))
	}
	s.events.Publish(events...)
	return product, nil
}

func (s *inventoryService) QueryLedger(filter repository.LedgerFilter) ([]model.LedgerEntry, error) {
	return s.ledgerRepo.Find(filter)
}
