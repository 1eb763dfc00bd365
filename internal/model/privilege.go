package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "product:create"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Product"
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Product catalog
	{Code: "product:view", Name: "View Product"},
	{Code: "product:create", Name: "Create Product"},
	{Code: "product:update", Name: "Update Product"},
	{Code: "product:deactivate", Name: "Deactivate Product"},
	// Stock operations
	{Code: "stock:receive", Name: "Receive Stock"},
	{Code: "stock:issue", Name: "Issue Stock"},
	{Code: "stock:adjust", Name: "Adjust Stock"},
	// Inventory ledger
	{Code: "ledger:view", Name: "View Inventory Ledger"},
	// Sales
	{Code: "sale:view", Name: "View Sales"},
	{Code: "sale:create", Name: "Create Sale"},
	{Code: "sale:confirm", Name: "Confirm Pending Sale"},
	{Code: "sale:delete", Name: "Delete Pending Sale"},
	// Customers
	{Code: "customer:view", Name: "View Customer"},
	{Code: "customer:create", Name: "Create Customer"},
	{Code: "customer:update", Name: "Update Customer"},
	{Code: "customer:delete", Name: "Delete Customer"},
	// Cash register
	{Code: "register:open", Name: "Open Register Session"},
	{Code: "register:close", Name: "Close Register Session"},
	{Code: "register:view", Name: "View Register Sessions"},
	// Dashboard
	{Code: "dashboard:view", Name: "View Dashboard"},
}
