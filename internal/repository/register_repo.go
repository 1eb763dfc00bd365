package repository

import (
	"errors"

	"go-pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterRepository interface {
	Create(session *model.RegisterSession) error
	Update(session *model.RegisterSession) error
	FindByID(id uuid.UUID) (*model.RegisterSession, error)
	// FindOpenByUser returns nil, nil when the user has no open session.
	FindOpenByUser(userID uuid.UUID) (*model.RegisterSession, error)
	FindRecent(limit int) ([]model.RegisterSession, error)
}

type registerRepo struct {
	db *gorm.DB
}

func NewRegisterRepo(db *gorm.DB) RegisterRepository {
	return &registerRepo{db}
}

func (r *registerRepo) Create(session *model.RegisterSession) error {
	return r.db.Create(session).Error
}

func (r *registerRepo) Update(session *model.RegisterSession) error {
	return r.db.Save(session).Error
}

func (r *registerRepo) FindByID(id uuid.UUID) (*model.RegisterSession, error) {
	var session model.RegisterSession
	if err := r.db.Preload("User").First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *registerRepo) FindOpenByUser(userID uuid.UUID) (*model.RegisterSession, error) {
	var session model.RegisterSession
	err := r.db.Where("user_id = ? AND status = ?", userID, model.SessionOpen).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *registerRepo) FindRecent(limit int) ([]model.RegisterSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var sessions []model.RegisterSession
	err := r.db.Preload("User").Order("opened_at DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}
