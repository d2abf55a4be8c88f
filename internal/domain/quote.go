package domain

import "github.com/shopspring/decimal"

// Quote is the current tradable price/volume state of one stock symbol.
// Price and volume are mutated exclusively through the price update service,
// which serializes concurrent updates to the same symbol.
type Quote struct {
	Symbol      string          `gorm:"primaryKey" json:"symbol"`
	CompanyName string          `json:"company_name"`
	Price       decimal.Decimal `gorm:"type:decimal(14,2)" json:"price"`
	Open        decimal.Decimal `gorm:"type:decimal(14,2)" json:"open"`
	High        decimal.Decimal `gorm:"type:decimal(14,2)" json:"high"`
	Low         decimal.Decimal `gorm:"type:decimal(14,2)" json:"low"`
	Volume      decimal.Decimal `gorm:"type:decimal(18,4)" json:"volume"`
	Change      decimal.Decimal `gorm:"type:decimal(14,2)" json:"change"`
}

// NewQuote initializes a quote with open = high = low = price and zero volume.
func NewQuote(symbol, companyName string, price decimal.Decimal) *Quote {
	return &Quote{
		Symbol:      symbol,
		CompanyName: companyName,
		Price:       price,
		Open:        price,
		High:        price,
		Low:         price,
		Volume:      decimal.Zero,
		Change:      decimal.Zero,
	}
}

// ChangePercent returns the percentage move since open, or zero when the
// opening price is zero.
func (q *Quote) ChangePercent() decimal.Decimal {
	if q.Open.IsZero() {
		return decimal.Zero
	}
	return q.Change.Div(q.Open).Mul(decimal.NewFromInt(100))
}
