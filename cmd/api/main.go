package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go-pharmacy-pos/internal/event"
	"go-pharmacy-pos/internal/handler"
	"go-pharmacy-pos/internal/middleware"
	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"
	"go-pharmacy-pos/internal/service"
	"go-pharmacy-pos/internal/ws"
	"go-pharmacy-pos/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.Customer{},
		&model.LedgerEntry{},
		&model.SalesOrder{},
		&model.SalesOrderLine{},
		&model.RegisterSession{},
		&model.User{},
		&model.Privilege{},
		&model.Role{},
	)

	// 3. Seed default privileges, roles, categories, and admin user
	seedDefaults(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Domain events fan out to the process log and connected clients
	events := event.NewPublisher(
		event.LogSubscriber{},
		event.WSSubscriber{Hub: wsHub},
	)

	// 6. Dependency Injection (Wiring Layers)
	txm := repository.NewTxManager(db)
	productRepo := repository.NewProductRepo(db)
	ledgerRepo := repository.NewLedgerRepo(db)
	salesRepo := repository.NewSalesRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	registerRepo := repository.NewRegisterRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	invService := service.NewInventoryService(productRepo, ledgerRepo, txm, events)
	salesService := service.NewSalesService(productRepo, ledgerRepo, salesRepo, customerRepo, txm, events)
	registerService := service.NewRegisterService(registerRepo, salesRepo)
	dashService := service.NewDashboardService(ledgerRepo, productRepo, salesRepo)
	authService := service.NewAuthService(userRepo, events)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)

	invHandler := handler.NewInventoryHandler(invService)
	salesHandler := handler.NewSalesHandler(salesService)
	customerHandler := handler.NewCustomerHandler(customerRepo)
	registerHandler := handler.NewRegisterHandler(registerService)
	dashHandler := handler.NewDashboardHandler(dashService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleRepo)

	policy := middleware.NewAccessPolicy(middleware.DefaultAccessRules())

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Pharmacy POS v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	// Auth Routes (No authentication required)
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", middleware.RequireAuth(userRepo), authHandler.Heartbeat) // Heartbeat uses Auth but available to all authenticated

	// ============ PROTECTED ROUTES ============
	// All routes below require authentication
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard Routes
	protected.Get("/dashboard/stats", policy.Require("dashboard", "view"), dashHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", policy.Require("dashboard", "view"), dashHandler.GetStockMovement)

	// Product Catalog Routes
	protected.Get("/products", policy.Require("product", "view"), invHandler.GetProducts)
	protected.Get("/products/:id", policy.Require("product", "view"), invHandler.GetProduct)
	protected.Post("/products", policy.Require("product", "create"), invHandler.CreateProduct)
	protected.Put("/products/:id", policy.Require("product", "update"), invHandler.UpdateProduct)
	protected.Delete("/products/:id", policy.Require("product", "deactivate"), invHandler.DeactivateProduct)
	protected.Get("/categories", policy.Require("product", "view"), invHandler.GetCategories)

	// Stock Operation Routes
	protected.Post("/products/:id/stock-in", policy.Require("stock", "receive"), invHandler.ReceiveStock)
	protected.Post("/products/:id/stock-out", policy.Require("stock", "issue"), invHandler.IssueStock)
	protected.Post("/products/:id/return", policy.Require("stock", "receive"), invHandler.ReturnStock)
	protected.Post("/products/:id/adjust", policy.Require("stock", "adjust"), invHandler.AdjustStock)

	// Inventory Ledger Routes
	protected.Get("/ledger", policy.Require("ledger", "view"), invHandler.GetLedger)

	// Sales Routes
	protected.Get("/sales", policy.Require("sale", "view"), salesHandler.GetOrders)
	protected.Get("/sales/:id", policy.Require("sale", "view"), salesHandler.GetOrder)
	protected.Post("/sales", policy.Require("sale", "create"), salesHandler.CreateOrder)
	protected.Post("/sales/:id/confirm", policy.Require("sale", "confirm"), salesHandler.ConfirmOrder)
	protected.Delete("/sales/:id", policy.Require("sale", "delete"), salesHandler.DeleteOrder)

	// Customer Routes
	protected.Get("/customers", policy.Require("customer", "view"), customerHandler.GetCustomers)
	protected.Get("/customers/:id", policy.Require("customer", "view"), customerHandler.GetCustomer)
	protected.Post("/customers", policy.Require("customer", "create"), customerHandler.CreateCustomer)
	protected.Put("/customers/:id", policy.Require("customer", "update"), customerHandler.UpdateCustomer)
	protected.Delete("/customers/:id", policy.Require("customer", "delete"), customerHandler.DeleteCustomer)

	// Cash Register Routes
	protected.Post("/register/open", policy.Require("register", "open"), registerHandler.OpenSession)
	protected.Post("/register/close", policy.Require("register", "close"), registerHandler.CloseSession)
	protected.Get("/register/current", policy.Require("register", "view"), registerHandler.CurrentSession)
	protected.Get("/register/sessions", policy.Require("register", "view"), registerHandler.GetSessions)

	// User Management Routes
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", policy.Require("user", "create"), userHandler.CreateUser)
	protected.Put("/users/:id", policy.Require("user", "update"), userHandler.UpdateUser)
	protected.Delete("/users/:id", policy.Require("user", "delete"), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", policy.Require("user", "update_privilege"), userHandler.UpdateUserPrivileges)

	// Role Routes
	protected.Get("/roles", roleHandler.GetRoles)

	// Privileges Route (list all available privileges)
	protected.Get("/privileges", func(c *fiber.Ctx) error {
		privileges, err := privilegeRepo.FindAll()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch privileges"})
		}
		return c.JSON(privileges)
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// pharmacistDomains are the privilege prefixes a PHARMACIST role receives.
var pharmacistDomains = map[string]bool{
	"product":   true,
	"stock":     true,
	"ledger":    true,
	"sale":      true,
	"customer":  true,
	"dashboard": true,
}

// cashierPrivileges are the exact codes a CASHIER role receives.
var cashierPrivileges = map[string]bool{
	"product:view":    true,
	"sale:view":       true,
	"sale:create":     true,
	"sale:confirm":    true,
	"customer:view":   true,
	"customer:create": true,
	"register:open":   true,
	"register:close":  true,
	"register:view":   true,
}

// seedDefaults creates default privileges, roles, categories, and the admin
// user if they don't exist
func seedDefaults(db *gorm.DB) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Seed categories
	for _, category := range model.DefaultCategories {
		db.Where(model.Category{Name: category.Name}).FirstOrCreate(&category)
	}

	// 4. Assign privileges to roles
	allPrivileges, _ := privilegeRepo.FindAll()

	// MASTER_ADMIN gets ALL privileges
	masterRole, err := roleRepo.FindByCode(model.RoleMasterAdmin)
	if err == nil && len(masterRole.Privileges) == 0 {
		db.Model(&masterRole).Association("Privileges").Replace(allPrivileges)
		log.Println("MASTER_ADMIN role assigned all privileges")
	}

	// PHARMACIST gets catalog, stock, sales, customer and dashboard privileges
	pharmacistRole, err := roleRepo.FindByCode(model.RolePharmacist)
	if err == nil && len(pharmacistRole.Privileges) == 0 {
		subset := []model.Privilege{}
		for _, p := range allPrivileges {
			if domain, _, found := strings.Cut(p.Code, ":"); found && pharmacistDomains[domain] {
				subset = append(subset, p)
			}
		}
		db.Model(&pharmacistRole).Association("Privileges").Replace(subset)
		log.Println("PHARMACIST role assigned catalog/stock/sales privileges")
	}

	// CASHIER gets checkout and register privileges only
	cashierRole, err := roleRepo.FindByCode(model.RoleCashier)
	if err == nil && len(cashierRole.Privileges) == 0 {
		subset := []model.Privilege{}
		for _, p := range allPrivileges {
			if cashierPrivileges[p.Code] {
				subset = append(subset, p)
			}
		}
		db.Model(&cashierRole).Association("Privileges").Replace(subset)
		log.Println("CASHIER role assigned checkout privileges")
	}

	// 5. Create default admin user with MASTER_ADMIN role
	_, err = userRepo.FindByEmail("admin@example.com")
	if err != nil {
		masterRole, _ := roleRepo.FindByCode(model.RoleMasterAdmin)

		admin := &model.User{
			Email:       "admin@example.com",
			FullName:    "Master Administrator",
			PhoneNumber: "",
			RoleID:      &masterRole.ID,
			IsActive:    true,
			Privileges:  masterRole.Privileges,
		}
		admin.CreatedBy = "system"
		admin.UpdatedBy = "system"

		if err := admin.SetPassword("admin123"); err != nil {
			log.Printf("Warning: Failed to hash admin password: %v", err)
			return
		}

		if err := userRepo.Create(admin); err != nil {
			log.Printf("Warning: Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created: admin@example.com / admin123 (MASTER_ADMIN)")
		}
	}
}
