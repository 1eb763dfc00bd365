package handler

import (
	"time"

	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"
	"go-pharmacy-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SalesHandler struct {
	service service.SalesService
}

func NewSalesHandler(s service.SalesService) *SalesHandler {
	return &SalesHandler{service: s}
}

// CreateOrder handles checkout
// POST /api/v1/sales
func (h *SalesHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	order, err := h.service.CreateOrder(&req, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Order created", "data": order})
}

// ConfirmOrder completes a pending order
// POST /api/v1/sales/:id/confirm
func (h *SalesHandler) ConfirmOrder(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid order ID"})
	}

	order, err := h.service.ConfirmOrder(orderID, getUserID(c), getUserName(c), getUserEmail(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Order confirmed", "data": order})
}

// DeleteOrder discards a pending order
// DELETE /api/v1/sales/:id
func (h *SalesHandler) DeleteOrder(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid order ID"})
	}

	if err := h.service.DeletePendingOrder(orderID, getUserID(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Order deleted"})
}

// GetOrder returns one order with its lines
// GET /api/v1/sales/:id
func (h *SalesHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid order ID"})
	}

	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// GetOrders lists orders, newest first
// Query params: from, to (YYYY-MM-DD), status, limit
func (h *SalesHandler) GetOrders(c *fiber.Ctx) error {
	filter := repository.SalesFilter{
		Limit: c.QueryInt("limit", 50),
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
		// Inclusive end of day
		end := parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}
	if status := c.Query("status"); status != "" {
		s := model.OrderStatus(status)
		if s != model.OrderPending && s != model.OrderCompleted {
			return c.Status(400).JSON(fiber.Map{"message": "Invalid status"})
		}
		filter.Status = &s
	}

	orders, err := h.service.ListOrders(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	return c.JSON(orders)
}
