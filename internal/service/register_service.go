package service

import (
	"time"

	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RegisterService interface {
	OpenSession(userID uuid.UUID, openingCash decimal.Decimal, notes string) (*model.RegisterSession, error)
	CloseSession(userID uuid.UUID, closingCash decimal.Decimal, notes string) (*model.RegisterSession, error)
	CurrentSession(userID uuid.UUID) (*model.RegisterSession, error)
	RecentSessions(limit int) ([]model.RegisterSession, error)
}

type registerService struct {
	registerRepo repository.RegisterRepository
	salesRepo    repository.SalesRepository
}

func NewRegisterService(rRepo repository.RegisterRepository, sRepo repository.SalesRepository) RegisterService {
	return &registerService{
		registerRepo: rRepo,
		salesRepo:    sRepo,
	}
}

func (s *registerService) OpenSession(userID uuid.UUID, openingCash decimal.Decimal, notes string) (*model.RegisterSession, error) {
	if openingCash.IsNegative() {
		return nil, model.ErrNegativeAmount
	}

	open, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, model.ErrSessionOpen
	}

	session := &model.RegisterSession{
		UserID:      userID,
		OpenedAt:    time.Now(),
		OpeningCash: openingCash,
		Status:      model.SessionOpen,
		Notes:       notes,
	}
	session.CreatedBy = userID.String()
	session.UpdatedBy = userID.String()
	if err := s.registerRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// CloseSession reconciles the drawer: expected cash is the opening float
// plus the session owner's completed cash sales while the session was open.
// Another cashier's takings never count against this drawer.
func (s *registerService) CloseSession(userID uuid.UUID, closingCash decimal.Decimal, notes string) (*model.RegisterSession, error) {
	if closingCash.IsNegative() {
		return nil, model.ErrNegativeAmount
	}

	session, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.ErrNoOpenSession
	}

	now := time.Now()
	cashSales, err := s.salesRepo.CashSalesTotal(userID.String(), session.OpenedAt, now)
	if err != nil {
		return nil, err
	}

	expected := session.OpeningCash.Add(cashSales)
	overShort := closingCash.Sub(expected)

	session.ClosedAt = &now
	session.ClosingCash = &closingCash
	session.ExpectedCash = &expected
	session.OverShort = &overShort
	session.Status = model.SessionClosed
	if notes != "" {
		session.Notes = notes
	}
	session.UpdatedBy = userID.String()

	if err := s.registerRepo.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *registerService) CurrentSession(userID uuid.UUID) (*model.RegisterSession, error) {
	session, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.ErrNoOpenSession
	}
	return session, nil
}

func (s *registerService) RecentSessions(limit int) ([]model.RegisterSession, error) {
	return s.registerRepo.FindRecent(limit)
}
