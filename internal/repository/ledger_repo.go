package repository

import (
	"time"

	"go-pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerFilter narrows a ledger read. At least one filter or a positive
// Limit is required; unbounded full scans are rejected.
type LedgerFilter struct {
	ProductID     *uuid.UUID
	Types         []model.LedgerType
	From          *time.Time // inclusive
	To            *time.Time // inclusive
	ReferenceType *string
	ReferenceID   *uuid.UUID
	Limit         int
}

func (f LedgerFilter) bounded() bool {
	return f.ProductID != nil || len(f.Types) > 0 || f.From != nil || f.To != nil ||
		f.ReferenceType != nil || f.ReferenceID != nil || f.Limit > 0
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// LedgerRepository is append-only: no update or delete exists by design.
// Corrections are new compensating (adjustment) entries.
type LedgerRepository interface {
	Append(tx *gorm.DB, entry *model.LedgerEntry) error
	Find(filter LedgerFilter) ([]model.LedgerEntry, error)
	CountByReference(referenceType string, referenceID uuid.UUID) (int64, error)
	GetDailyMovement(startDate, endDate time.Time) ([]StockMovementData, error)
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db}
}

func (r *ledgerRepo) Append(tx *gorm.DB, entry *model.LedgerEntry) error {
	if entry.Quantity <= 0 {
		return &model.InvalidQuantityError{ProductID: entry.ProductID, Quantity: entry.Quantity}
	}
	return tx.Create(entry).Error
}

func (r *ledgerRepo) Find(filter LedgerFilter) ([]model.LedgerEntry, error) {
	if !filter.bounded() {
		return nil, model.ErrLedgerQueryUnbounded
	}

	q := r.db.Model(&model.LedgerEntry{}).Preload("Product").Order("created_at DESC")
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}
	if filter.ReferenceType != nil {
		q = q.Where("reference_type = ?", *filter.ReferenceType)
	}
	if filter.ReferenceID != nil {
		q = q.Where("reference_id = ?", *filter.ReferenceID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var entries []model.LedgerEntry
	err := q.Find(&entries).Error
	return entries, err
}

func (r *ledgerRepo) CountByReference(referenceType string, referenceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.LedgerEntry{}).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Count(&count).Error
	return count, err
}

func (r *ledgerRepo) GetDailyMovement(startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Aggregate signed movement per day; adjustments are excluded because
	// their direction lives in the notes, not the type.
	rows, err := r.db.Model(&model.LedgerEntry{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type IN ('stock_in', 'return') THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type IN ('stock_out', 'sale', 'expired') THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, nil
}
