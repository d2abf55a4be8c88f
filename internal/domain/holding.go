package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingStatus marks whether a lot is tradable or already claimed by an
// in-flight sell order. The original system encoded pending-sale by zeroing
// the purchase date; an explicit status removes that implicit encoding.
type HoldingStatus string

const (
	HoldingStatusActive      HoldingStatus = "active"
	HoldingStatusPendingSale HoldingStatus = "pending_sale"
)

// Holding is a lot of shares owned by an account. It exists only between a
// completed buy and a completed sell of the same lot.
type Holding struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AccountID     uint            `gorm:"index" json:"account_id"`
	Symbol        string          `gorm:"index" json:"symbol"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4)" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(14,2)" json:"purchase_price"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Status        HoldingStatus   `gorm:"index" json:"status"`
}

// NewHolding creates an active holding for a completed buy.
func NewHolding(accountID uint, symbol string, quantity, purchasePrice decimal.Decimal) *Holding {
	return &Holding{
		AccountID:     accountID,
		Symbol:        symbol,
		Quantity:      quantity,
		PurchasePrice: purchasePrice,
		PurchaseDate:  time.Now(),
		Status:        HoldingStatusActive,
	}
}

// IsPendingSale reports whether a sell order already claimed this lot.
func (h *Holding) IsPendingSale() bool {
	return h.Status == HoldingStatusPendingSale
}
