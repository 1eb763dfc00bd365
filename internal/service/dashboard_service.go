package service

import (
	"time"

	"github.com/shopspring/decimal"

	"go-pharmacy-pos/internal/repository"
)

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	TodayRevenue   decimal.Decimal `json:"today_revenue"`
	TodayOrders    int64           `json:"today_orders"`
}

type DashboardService interface {
	GetStockMovement(days int) ([]repository.StockMovementData, error)
	GetDashboardStats() (*DashboardStats, error)
}

type dashboardService struct {
	ledgerRepo  repository.LedgerRepository
	productRepo repository.ProductRepository
	salesRepo   repository.SalesRepository
}

func NewDashboardService(lRepo repository.LedgerRepository, pRepo repository.ProductRepository, sRepo repository.SalesRepository) DashboardService {
	return &dashboardService{
		ledgerRepo:  lRepo,
		productRepo: pRepo,
		salesRepo:   sRepo,
	}
}

func (s *dashboardService) GetStockMovement(days int) ([]repository.StockMovementData, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.ledgerRepo.GetDailyMovement(startDate, endDate)
}

func (s *dashboardService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	var err error
	if stats.TotalProducts, err = s.productRepo.CountAll(); err != nil {
		return nil, err
	}
	if stats.LowStockCount, err = s.productRepo.CountLowStock(lowStockThreshold); err != nil {
		return nil, err
	}
	if stats.TotalValuation, err = s.productRepo.StockValuation(); err != nil {
		return nil, err
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.TodayRevenue, stats.TodayOrders, err = s.salesRepo.RevenueBetween(startOfDay, now); err != nil {
		return nil, err
	}
	return stats, nil
}
