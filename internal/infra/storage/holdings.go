package storage

import (
	"errors"

	"trade_go/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateHolding creates an active holding for a completed buy.
func (s *Storage) CreateHolding(tx *gorm.DB, accountID uint, symbol string, quantity, purchasePrice decimal.Decimal) (*domain.Holding, error) {
	holding := domain.NewHolding(accountID, symbol, quantity, purchasePrice)
	if err := s.conn(tx).Create(holding).Error; err != nil {
		return nil, domain.NewPersistenceError("create holding", err)
	}
	return holding, nil
}

// GetHolding retrieves a holding by ID.
func (s *Storage) GetHolding(tx *gorm.DB, id uint) (*domain.Holding, error) {
	var holding domain.Holding
	err := s.conn(tx).First(&holding, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get holding", err)
	}
	return &holding, nil
}

// MarkHoldingPendingSale claims a lot for an in-flight sell order. Only an
// active holding can be claimed; a holding already claimed or gone reports
// ErrNotFound so a racing sell resolves as a no-op.
func (s *Storage) MarkHoldingPendingSale(tx *gorm.DB, id uint) error {
	res := s.conn(tx).Model(&domain.Holding{}).
		Where("id = ? AND status = ?", id, domain.HoldingStatusActive).
		Update("status", domain.HoldingStatusPendingSale)
	if res.Error != nil {
		return domain.NewPersistenceError("mark holding pending sale", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RemoveHolding deletes a holding (a completed sell).
func (s *Storage) RemoveHolding(tx *gorm.DB, id uint) error {
	res := s.conn(tx).Delete(&domain.Holding{}, id)
	if res.Error != nil {
		return domain.NewPersistenceError("remove holding", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetHoldingsForUser returns all open positions for a user.
func (s *Storage) GetHoldingsForUser(userID string) ([]domain.Holding, error) {
	account, err := s.GetAccount(nil, userID)
	if err != nil {
		return nil, err
	}
	var holdings []domain.Holding
	if err := s.db.Where("account_id = ?", account.ID).Order("symbol").Find(&holdings).Error; err != nil {
		return nil, domain.NewPersistenceError("list holdings", err)
	}
	return holdings, nil
}
