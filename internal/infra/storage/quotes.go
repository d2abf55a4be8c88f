package storage

import (
	"errors"

	"trade_go/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateQuote initializes a quote with open = high = low = price and zero
// volume. Creating an existing symbol fails.
func (s *Storage) CreateQuote(symbol, companyName string, price decimal.Decimal) (*domain.Quote, error) {
	quote := domain.NewQuote(symbol, companyName, price)
	if err := s.db.Create(quote).Error; err != nil {
		return nil, domain.NewPersistenceError("create quote", err)
	}
	return quote, nil
}

// GetQuote retrieves the quote for a symbol.
func (s *Storage) GetQuote(tx *gorm.DB, symbol string) (*domain.Quote, error) {
	var quote domain.Quote
	err := s.conn(tx).First(&quote, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get quote", err)
	}
	return &quote, nil
}

// GetQuoteForUpdate is the locked-read path for callers that will mutate
// price/volume. The caller must hold LockSymbol(symbol) for the duration of
// the enclosing transaction; that lock is what prevents lost updates.
func (s *Storage) GetQuoteForUpdate(tx *gorm.DB, symbol string) (*domain.Quote, error) {
	return s.GetQuote(tx, symbol)
}

// UpdateQuotePriceVolume persists a new price/volume snapshot. The caller
// must already hold the symbol's update lock.
func (s *Storage) UpdateQuotePriceVolume(tx *gorm.DB, symbol string, newPrice, newVolume, change decimal.Decimal) error {
	res := s.conn(tx).Model(&domain.Quote{}).Where("symbol = ?", symbol).Updates(map[string]interface{}{
		"price":  newPrice,
		"volume": newVolume,
		"change": change,
	})
	if res.Error != nil {
		return domain.NewPersistenceError("update quote", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AllQuotes returns every quote, sorted by symbol.
func (s *Storage) AllQuotes() ([]domain.Quote, error) {
	var quotes []domain.Quote
	if err := s.db.Order("symbol").Find(&quotes).Error; err != nil {
		return nil, domain.NewPersistenceError("list quotes", err)
	}
	return quotes, nil
}
