package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-pharmacy-pos/internal/event"
	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"
	"go-pharmacy-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxInvoiceAttempts bounds the retry on invoice number collisions. Two
// checkouts committing the same daily sequence trip the unique index; the
// loser re-runs the whole transaction with a fresh sequence lookup.
const maxInvoiceAttempts = 3

// lowStockThreshold triggers stock.low events after a sale.
const lowStockThreshold = 10

// CheckoutItem is one cart line. Duplicate product ids stay separate lines.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type CheckoutRequest struct {
	CustomerID    *uuid.UUID          `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	Items         []CheckoutItem      `json:"items" validate:"required,min=1,dive"`
	Discount      decimal.Decimal     `json:"discount"`
	AdditionalFee decimal.Decimal     `json:"additional_fee"`
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash debit credit qris"`
	// PaymentDetails is stored opaquely; this service never inspects it.
	PaymentDetails json.RawMessage `json:"payment_details"`
	Notes          string          `json:"notes"`
	// Hold saves the order as pending: header and lines are persisted with
	// price snapshots, but no stock is deducted and no ledger entry is
	// written until ConfirmOrder.
	Hold bool `json:"hold"`
}

type SalesService interface {
	CreateOrder(req *CheckoutRequest, userID, userName, userEmail string) (*model.SalesOrder, error)
	ConfirmOrder(orderID uuid.UUID, userID, userName, userEmail string) (*model.SalesOrder, error)
	DeletePendingOrder(orderID uuid.UUID, userID string) error
	GetOrderByID(orderID uuid.UUID) (*model.SalesOrder, error)
	ListOrders(filter repository.SalesFilter) ([]model.SalesOrder, error)
}

type salesService struct {
	productRepo  repository.ProductRepository
	ledgerRepo   repository.LedgerRepository
	salesRepo    repository.SalesRepository
	customerRepo repository.CustomerRepository
	txm          repository.TxManager
	events       *event.Publisher
}

func NewSalesService(
	pRepo repository.ProductRepository,
	lRepo repository.LedgerRepository,
	sRepo repository.SalesRepository,
	cRepo repository.CustomerRepository,
	txm repository.TxManager,
	events *event.Publisher,
) SalesService {
	return &salesService{
		productRepo:  pRepo,
		ledgerRepo:   lRepo,
		salesRepo:    sRepo,
		customerRepo: cRepo,
		txm:          txm,
		events:       events,
	}
}

func (s *salesService) CreateOrder(req *CheckoutRequest, userID, userName, userEmail string) (*model.SalesOrder, error) {
	// Zero/negative quantities are rejected before any stock check runs, with
	// the typed error rather than a generic validation failure.
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &model.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("%w: field '%s' failed on tag '%s'", model.ErrValidation, firstErr.FailedField, firstErr.Tag)
	}
	if req.Discount.IsNegative() || req.AdditionalFee.IsNegative() {
		return nil, model.ErrNegativeAmount
	}

	// Snapshot customer name/phone from the directory when only an id is given.
	if req.CustomerID != nil && req.CustomerName == "" {
		customer, err := s.customerRepo.FindByID(*req.CustomerID)
		if err != nil {
			return nil, model.ErrCustomerNotFound
		}
		req.CustomerName = customer.Name
		req.CustomerPhone = customer.Phone
	}

	actor := event.ActorInfo{ID: userID, Name: userName, Email: userEmail}

	var order *model.SalesOrder
	var pending []event.Event
	var err error
	for attempt := 0; attempt < maxInvoiceAttempts; attempt++ {
		order, pending, err = s.createOrderOnce(req, userID, actor)
		if err == nil {
			s.events.Publish(pending...)
			return order, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, model.ErrInvoiceConflict
}

// createOrderOnce runs the whole checkout as one atomic unit of work. Any
// error rolls everything back: no partial stock deduction, no orphaned
// order, no missing ledger entry is ever observable.
func (s *salesService) createOrderOnce(req *CheckoutRequest, userID string, actor event.ActorInfo) (*model.SalesOrder, []event.Event, error) {
	var order *model.SalesOrder
	var pending []event.Event

	err := s.txm.Do(func(tx *gorm.DB) error {
		pending = pending[:0]

		subtotal := decimal.Zero
		lines := make([]model.SalesOrderLine, 0, len(req.Items))
		for _, item := range req.Items {
			product, err := s.productRepo.FindForUpdate(tx, item.ProductID)
			if err != nil {
				return err
			}
			if !product.Sellable() {
				return fmt.Errorf("%w: '%s'", model.ErrNotSellable, product.Name)
			}
			if !req.Hold {
				if product.Stock < item.Quantity {
					return &model.InsufficientStockError{
						ProductID:   product.ID,
						ProductName: product.Name,
						Requested:   item.Quantity,
						Available:   product.Stock,
					}
				}
				if err := s.productRepo.DecrementStock(tx, product.ID, item.Quantity); err != nil {
					return err
				}
				if product.Stock-item.Quantity < lowStockThreshold {
					pending = append(pending, event.New(event.TypeStockLow, actor, map[string]interface{}{
						"product_id": product.ID,
						"name":       product.Name,
						"stock":      product.Stock - item.Quantity,
					}))
				}
			}

			// Price snapshot: the product's current price becomes immutable
			// on the line.
			lineSubtotal := product.LineTotal(item.Quantity)
			subtotal = subtotal.Add(lineSubtotal)
			line := model.SalesOrderLine{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
				Subtotal:  lineSubtotal,
			}
			line.CreatedBy = userID
			line.UpdatedBy = userID
			lines = append(lines, line)
		}

		grandTotal := model.GrandTotalOf(subtotal, req.Discount, req.AdditionalFee)
		if grandTotal.IsNegative() {
			return model.ErrNegativeAmount
		}

		now := time.Now()
		seq, err := s.salesRepo.NextInvoiceSequence(tx, now)
		if err != nil {
			return err
		}

		status := model.OrderCompleted
		if req.Hold {
			status = model.OrderPending
		}

		order = &model.SalesOrder{
			InvoiceNumber:  model.FormatInvoiceNumber(now, seq),
			CustomerID:     req.CustomerID,
			CustomerName:   req.CustomerName,
			CustomerPhone:  req.CustomerPhone,
			Subtotal:       subtotal,
			Discount:       req.Discount,
			AdditionalFee:  req.AdditionalFee,
			GrandTotal:     grandTotal,
			PaymentMethod:  req.PaymentMethod,
			PaymentDetails: req.PaymentDetails,
			Status:         status,
			Notes:          req.Notes,
			Lines:          lines,
		}
		order.CreatedBy = userID
		order.UpdatedBy = userID
		order.CreatedByUserID = &userID

		if err := s.salesRepo.Create(tx, order); err != nil {
			return err
		}

		if !req.Hold {
			if err := s.appendSaleLedger(tx, order, userID); err != nil {
				return err
			}
			pending = append(pending, saleCompletedEvent(order, actor))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, pending, nil
}

// ConfirmOrder turns a pending order into a completed one: stock is checked
// and deducted, ledger entries are written, all in one transaction. The
// invoice number assigned at creation is kept.
func (s *salesService) ConfirmOrder(orderID uuid.UUID, userID, userName, userEmail string) (*model.SalesOrder, error) {
	actor := event.ActorInfo{ID: userID, Name: userName, Email: userEmail}

	var order *model.SalesOrder
	var pending []event.Event
	err := s.txm.Do(func(tx *gorm.DB) error {
		pending = pending[:0]

		var err error
		order, err = s.salesRepo.FindForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderPending {
			return model.ErrOrderNotPending
		}

		for _, line := range order.Lines {
			product, err := s.productRepo.FindForUpdate(tx, line.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < line.Quantity {
				return &model.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   line.Quantity,
					Available:   product.Stock,
				}
			}
			if err := s.productRepo.DecrementStock(tx, product.ID, line.Quantity); err != nil {
				return err
			}
			if product.Stock-line.Quantity < lowStockThreshold {
				pending = append(pending, event.New(event.TypeStockLow, actor, map[string]interface{}{
					"product_id": product.ID,
					"name":       product.Name,
					"stock":      product.Stock - line.Quantity,
				}))
			}
		}

		if err := s.appendSaleLedger(tx, order, userID); err != nil {
			return err
		}
		if err := s.salesRepo.UpdateStatus(tx, order.ID, model.OrderCompleted, userID); err != nil {
			return err
		}
		order.Status = model.OrderCompleted
		pending = append(pending, saleCompletedEvent(order, actor))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(pending...)
	return order, nil
}

func (s *salesService) DeletePendingOrder(orderID uuid.UUID, userID string) error {
	// Pending orders never touched stock, so deletion reverses nothing.
	return s.salesRepo.DeletePending(orderID, userID)
}

func (s *salesService) GetOrderByID(orderID uuid.UUID) (*model.SalesOrder, error) {
	return s.salesRepo.FindByID(orderID)
}

func (s *salesService) ListOrders(filter repository.SalesFilter) ([]model.SalesOrder, error) {
	return s.salesRepo.List(filter)
}

// appendSaleLedger writes one sale entry per line, referencing the order.
// Runs inside the caller's transaction.
func (s *salesService) appendSaleLedger(tx *gorm.DB, order *model.SalesOrder, userID string) error {
	refType := model.RefSalesOrder
	for _, line := range order.Lines {
		refID := order.ID
		entry := &model.LedgerEntry{
			ProductID:     line.ProductID,
			Type:          model.LedgerSale,
			Quantity:      line.Quantity,
			Notes:         order.InvoiceNumber,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}
		entry.CreatedBy = userID
		entry.UpdatedBy = userID
		if err := s.ledgerRepo.Append(tx, entry); err != nil {
			return err
		}
	}
	return nil
}

func saleCompletedEvent(order *model.SalesOrder, actor event.ActorInfo) event.Event {
	items := make([]map[string]interface{}, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, map[string]interface{}{
			"product_id": line.ProductID,
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
			"subtotal":   line.Subtotal,
		})
	}
	return event.New(event.TypeSaleCompleted, actor, map[string]interface{}{
		"order_id":       order.ID,
		"invoice_number": order.InvoiceNumber,
		"grand_total":    order.GrandTotal,
		"lines":          items,
	})
}
