package event

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is anything that can travel over the Bus.
type Event interface {
	Kind() string
}

// PriceChange is published after every quote price/volume update. Delivery
// is best-effort; subscribers must tolerate gaps.
type PriceChange struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	ChangeFactor decimal.Decimal `json:"change_factor"`
	Volume       decimal.Decimal `json:"volume"`
	SharesTraded decimal.Decimal `json:"shares_traded"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Kind implements Event.
func (PriceChange) Kind() string { return "price_change" }

// OrderClosed is published when the completion worker finishes an order.
// Fire-and-forget: by the time it is published the transition has committed.
type OrderClosed struct {
	OrderID     uint      `json:"order_id"`
	AccountID   uint      `json:"account_id"`
	OrderType   string    `json:"order_type"`
	Symbol      string    `json:"symbol"`
	CompletedAt time.Time `json:"completed_at"`
}

// Kind implements Event.
func (OrderClosed) Kind() string { return "order_closed" }
