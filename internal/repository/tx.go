package repository

import "gorm.io/gorm"

// TxManager runs a function inside one atomic unit of work. Every write the
// function performs through the repositories must go through the supplied
// tx handle; if the function returns an error the whole unit rolls back.
type TxManager interface {
	Do(fn func(tx *gorm.DB) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) Do(fn func(tx *gorm.DB) error) error {
	return m.db.Transaction(fn)
}
