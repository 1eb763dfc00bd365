package handler

import (
	"errors"
	"log"

	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system"
	}
	return userID.(string)
}

func getUserName(c *fiber.Ctx) string {
	userName := c.Locals("user_name")
	if userName == nil {
		return "Unknown"
	}
	return userName.(string)
}

func getUserEmail(c *fiber.Ctx) string {
	userEmail := c.Locals("user_email")
	if userEmail == nil {
		return ""
	}
	return userEmail.(string)
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// respondError maps domain errors to HTTP status codes with structured
// context, so callers can render actionable messages (e.g. show available
// stock instead of a bare failure). Only recognized caller/business errors
// get a 4xx; anything else is an internal failure and surfaces as 500.
func respondError(c *fiber.Ctx, err error) error {
	var notFound *model.ProductNotFoundError
	var invalidQty *model.InvalidQuantityError
	var insufficient *model.InsufficientStockError

	switch {
	case errors.As(err, &notFound):
		return c.Status(404).JSON(fiber.Map{
			"message":    err.Error(),
			"product_id": notFound.ProductID,
		})
	case errors.As(err, &invalidQty):
		return c.Status(400).JSON(fiber.Map{
			"message":    err.Error(),
			"product_id": invalidQty.ProductID,
			"quantity":   invalidQty.Quantity,
		})
	case errors.As(err, &insufficient):
		return c.Status(409).JSON(fiber.Map{
			"message":      err.Error(),
			"product_id":   insufficient.ProductID,
			"product_name": insufficient.ProductName,
			"requested":    insufficient.Requested,
			"available":    insufficient.Available,
		})
	case errors.Is(err, model.ErrOrderNotPending),
		errors.Is(err, model.ErrSessionOpen),
		errors.Is(err, model.ErrSKUExists):
		return c.Status(409).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, model.ErrNoOpenSession),
		errors.Is(err, model.ErrCustomerNotFound):
		return c.Status(404).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrNegativeAmount),
		errors.Is(err, model.ErrNotesRequired),
		errors.Is(err, model.ErrNotSellable),
		errors.Is(err, model.ErrAdjustmentNoop),
		errors.Is(err, model.ErrLedgerQueryUnbounded):
		return c.Status(400).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, model.ErrInvoiceConflict):
		return c.Status(500).JSON(fiber.Map{"message": err.Error()})
	case repository.IsNotFound(err):
		return c.Status(404).JSON(fiber.Map{"message": "not found"})
	default:
		// Unrecognized errors are persistence or infrastructure failures,
		// not caller mistakes. The detail goes to the log, not the client.
		log.Printf("[http] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
	}
}
