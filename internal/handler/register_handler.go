package handler

import (
	"go-pharmacy-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RegisterHandler struct {
	service service.RegisterService
}

func NewRegisterHandler(s service.RegisterService) *RegisterHandler {
	return &RegisterHandler{service: s}
}

type registerSessionRequest struct {
	Cash  decimal.Decimal `json:"cash"`
	Notes string          `json:"notes"`
}

// OpenSession opens the cash drawer for the authenticated user
// POST /api/v1/register/open
func (h *RegisterHandler) OpenSession(c *fiber.Ctx) error {
	userID, err := parseUUID(getUserID(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"message": "Unauthorized"})
	}

	var req registerSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	session, err := h.service.OpenSession(userID, req.Cash, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Register session opened", "data": session})
}

// CloseSession counts the drawer and reconciles against cash sales
// POST /api/v1/register/close
func (h *RegisterHandler) CloseSession(c *fiber.Ctx) error {
	userID, err := parseUUID(getUserID(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"message": "Unauthorized"})
	}

	var req registerSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	session, err := h.service.CloseSession(userID, req.Cash, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Register session closed", "data": session})
}

// CurrentSession returns the caller's open session, if any
// GET /api/v1/register/current
func (h *RegisterHandler) CurrentSession(c *fiber.Ctx) error {
	userID, err := parseUUID(getUserID(c))
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"message": "Unauthorized"})
	}

	session, err := h.service.CurrentSession(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

// GetSessions lists recent sessions
// GET /api/v1/register/sessions
func (h *RegisterHandler) GetSessions(c *fiber.Ctx) error {
	sessions, err := h.service.RecentSessions(c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	return c.JSON(sessions)
}
