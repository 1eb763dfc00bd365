package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// RegisterSession is one cash drawer session for a cashier: opened with a
// float, closed with a count. ExpectedCash = OpeningCash + cash sales taken
// during the session; OverShort = ClosingCash - ExpectedCash.
type RegisterSession struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	OpenedAt time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`

	OpeningCash  decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"opening_cash"`
	ClosingCash  *decimal.Decimal `gorm:"type:numeric(14,2)" json:"closing_cash,omitempty"`
	ExpectedCash *decimal.Decimal `gorm:"type:numeric(14,2)" json:"expected_cash,omitempty"`
	OverShort    *decimal.Decimal `gorm:"type:numeric(14,2)" json:"over_short,omitempty"`

	Status SessionStatus `gorm:"type:varchar(10);not null;default:'open';index" json:"status"`
	Notes  string        `gorm:"type:text" json:"notes"`
}

func (RegisterSession) TableName() string {
	return "register_sessions"
}
