package handler

import (
	"time"

	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"
	"go-pharmacy-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	if err := h.service.CreateProduct(&product, getUserID(c), getUserName(c), getUserEmail(c)); err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid product ID"})
	}

	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	updated, err := h.service.UpdateProduct(productID, &product, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) DeactivateProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid product ID"})
	}

	if err := h.service.DeactivateProduct(productID, getUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deactivated"})
}

func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	if c.QueryBool("low_stock", false) {
		products, err := h.service.GetLowStockProducts()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
		}
		return c.JSON(products)
	}

	products, err := h.service.GetAllProducts()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid product ID"})
	}

	product, err := h.service.GetProductByID(productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// GetCategories lists product categories
// GET /api/v1/categories
func (h *InventoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.GetCategories()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	return c.JSON(categories)
}

// StockMutationRequest covers receive/issue/return bodies.
type StockMutationRequest struct {
	Quantity int    `json:"quantity"`
	Type     string `json:"type"` // issue only: stock_out | expired
	Notes    string `json:"notes"`
}

// ReceiveStock handles manual inventory receipt
// POST /api/v1/products/:id/stock-in
func (h *InventoryHandler) ReceiveStock(c *fiber.Ctx) error {
	productID, req, err := h.stockArgs(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": err.Error()})
	}

	product, err := h.service.ReceiveStock(productID, req.Quantity, req.Notes, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock received", "data": product})
}

// IssueStock handles manual inventory removal (stock_out or expired)
// POST /api/v1/products/:id/stock-out
func (h *InventoryHandler) IssueStock(c *fiber.Ctx) error {
	productID, req, err := h.stockArgs(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": err.Error()})
	}

	entryType := model.LedgerStockOut
	if req.Type != "" {
		entryType = model.LedgerType(req.Type)
	}

	product, err := h.service.IssueStock(productID, req.Quantity, entryType, req.Notes, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock issued", "data": product})
}

// ReturnStock handles customer returns
// POST /api/v1/products/:id/return
func (h *InventoryHandler) ReturnStock(c *fiber.Ctx) error {
	productID, req, err := h.stockArgs(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": err.Error()})
	}

	product, err := h.service.ReturnStock(productID, req.Quantity, req.Notes, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock returned", "data": product})
}

// AdjustStock sets the stock level directly, logging the delta
// POST /api/v1/products/:id/adjust
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid product ID"})
	}

	var req struct {
		NewLevel int    `json:"new_level"`
		Notes    string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	product, err := h.service.AdjustStock(productID, req.NewLevel, req.Notes, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock adjusted", "data": product})
}

// GetLedger queries the inventory ledger, newest first
// Query params: product_id, type, from, to, reference_type, reference_id, limit
func (h *InventoryHandler) GetLedger(c *fiber.Ctx) error {
	filter := repository.LedgerFilter{
		Limit: c.QueryInt("limit", 0),
	}

	if pid := c.Query("product_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"message": "Invalid product_id"})
		}
		filter.ProductID = &id
	}
	if t := c.Query("type"); t != "" {
		filter.Types = []model.LedgerType{model.LedgerType(t)}
	}
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"message": "Invalid 'from' date, use YYYY-MM-DD"})
		}
		filter.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"message": "Invalid 'to' date, use YYYY-MM-DD"})
		}
		end := parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}
	if rt := c.Query("reference_type"); rt != "" {
		filter.ReferenceType = &rt
	}
	if rid := c.Query("reference_id"); rid != "" {
		id, err := uuid.Parse(rid)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"message": "Invalid reference_id"})
		}
		filter.ReferenceID = &id
	}

	entries, err := h.service.QueryLedger(filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

func (h *InventoryHandler) stockArgs(c *fiber.Ctx) (uuid.UUID, *StockMutationRequest, error) {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return uuid.Nil, nil, fiber.NewError(400, "Invalid product ID")
	}
	var req StockMutationRequest
	if err := c.BodyParser(&req); err != nil {
		return uuid.Nil, nil, fiber.NewError(400, "Invalid JSON")
	}
	return productID, &req, nil
}
