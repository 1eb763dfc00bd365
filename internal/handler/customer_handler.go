package handler

import (
	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"
	"go-pharmacy-pos/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

type CustomerHandler struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerHandler(customerRepo repository.CustomerRepository) *CustomerHandler {
	return &CustomerHandler{customerRepo: customerRepo}
}

// GetCustomers lists customers, optionally filtered by ?q= on name/phone
// GET /api/v1/customers
func (h *CustomerHandler) GetCustomers(c *fiber.Ctx) error {
	if q := c.Query("q"); q != "" {
		customers, err := h.customerRepo.Search(q)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
		}
		return c.JSON(customers)
	}

	customers, err := h.customerRepo.FindAll()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Internal Server Error"})
	}
	return c.JSON(customers)
}

// GetCustomer returns one customer
// GET /api/v1/customers/:id
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	customerID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid customer ID"})
	}

	customer, err := h.customerRepo.FindByID(customerID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"message": "Customer not found"})
	}
	return c.JSON(customer)
}

// CreateCustomer adds a directory entry
// POST /api/v1/customers
func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	var customer model.Customer
	if err := c.BodyParser(&customer); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	if errs := validator.ValidateStruct(&customer); len(errs) > 0 {
		return c.Status(400).JSON(fiber.Map{"message": "Validation failed on field '" + errs[0].FailedField + "'"})
	}

	customer.CreatedBy = getUserID(c)
	customer.UpdatedBy = getUserID(c)
	if err := h.customerRepo.Create(&customer); err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Failed to create customer"})
	}
	return c.Status(201).JSON(fiber.Map{"message": "Customer created", "data": customer})
}

// UpdateCustomer edits a directory entry. Past orders keep their snapshot.
// PUT /api/v1/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	customerID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid customer ID"})
	}

	existing, err := h.customerRepo.FindByID(customerID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"message": "Customer not found"})
	}

	var req model.Customer
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid JSON"})
	}

	existing.Name = req.Name
	existing.Phone = req.Phone
	existing.Email = req.Email
	existing.Address = req.Address
	existing.Notes = req.Notes
	existing.UpdatedBy = getUserID(c)

	if errs := validator.ValidateStruct(existing); len(errs) > 0 {
		return c.Status(400).JSON(fiber.Map{"message": "Validation failed on field '" + errs[0].FailedField + "'"})
	}

	if err := h.customerRepo.Update(existing); err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Failed to update customer"})
	}
	return c.JSON(fiber.Map{"message": "Customer updated", "data": existing})
}

// DeleteCustomer soft-deletes a directory entry
// DELETE /api/v1/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *fiber.Ctx) error {
	customerID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"message": "Invalid customer ID"})
	}

	if err := h.customerRepo.Delete(customerID, getUserID(c)); err != nil {
		return c.Status(500).JSON(fiber.Map{"message": "Failed to delete customer"})
	}
	return c.JSON(fiber.Map{"message": "Customer deleted"})
}
