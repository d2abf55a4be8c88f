package storage

import (
	"errors"
	"time"

	"trade_go/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Register creates a profile and its account with the given opening balance.
func (s *Storage) Register(profile *domain.AccountProfile, openBalance decimal.Decimal) (*domain.Account, error) {
	account := domain.NewAccount(profile.UserID, openBalance)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if profile.CreatedAt.IsZero() {
			profile.CreatedAt = time.Now()
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return tx.Create(account).Error
	})
	if err != nil {
		return nil, domain.NewPersistenceError("register", err)
	}
	return account, nil
}

// GetAccount retrieves the account owned by userID.
func (s *Storage) GetAccount(tx *gorm.DB, userID string) (*domain.Account, error) {
	var account domain.Account
	err := s.conn(tx).First(&account, "profile_user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get account", err)
	}
	return &account, nil
}

// GetAccountByID retrieves an account by its ID.
func (s *Storage) GetAccountByID(tx *gorm.DB, id uint) (*domain.Account, error) {
	var account domain.Account
	err := s.conn(tx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get account by id", err)
	}
	return &account, nil
}

// CreditBalance adjusts an account balance by delta, which may be negative
// (a debit). No overdraft check is enforced at this layer; the balance may
// go negative. The caller must hold the account's lock.
func (s *Storage) CreditBalance(tx *gorm.DB, accountID uint, delta decimal.Decimal) error {
	account, err := s.GetAccountByID(tx, accountID)
	if err != nil {
		return err
	}
	newBalance := account.Balance.Add(delta)
	res := s.conn(tx).Model(&domain.Account{}).Where("id = ?", accountID).Update("balance", newBalance)
	if res.Error != nil {
		return domain.NewPersistenceError("credit balance", res.Error)
	}
	return nil
}

// RecordLogin bumps the login counter and stamps the last login time.
func (s *Storage) RecordLogin(userID string) (*domain.Account, error) {
	account, err := s.GetAccount(nil, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	account.LoginCount++
	account.LastLogin = &now
	if err := s.db.Save(account).Error; err != nil {
		return nil, domain.NewPersistenceError("record login", err)
	}
	return account, nil
}

// RecordLogout bumps the logout counter.
func (s *Storage) RecordLogout(userID string) (*domain.Account, error) {
	account, err := s.GetAccount(nil, userID)
	if err != nil {
		return nil, err
	}
	account.LogoutCount++
	if err := s.db.Save(account).Error; err != nil {
		return nil, domain.NewPersistenceError("record logout", err)
	}
	return account, nil
}

// GetProfile retrieves a user profile.
func (s *Storage) GetProfile(userID string) (*domain.AccountProfile, error) {
	var profile domain.AccountProfile
	err := s.db.First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get profile", err)
	}
	return &profile, nil
}
