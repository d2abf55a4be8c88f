package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes buy from sell requests.
type OrderType string

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"

	OrderStatusOpen       OrderStatus = "open"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"

	// OrderStatusClosed is a legacy synonym for completed. It is never written
	// by this code but is normalized to completed when read.
	OrderStatusClosed OrderStatus = "closed"
)

// Order represents a single buy/sell request and its lifecycle state.
// Created with status open; mutated only through Complete and Cancel.
type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderType      OrderType       `gorm:"index" json:"order_type"`
	Status         OrderStatus     `gorm:"index" json:"status"`
	OpenDate       time.Time       `json:"open_date"`
	CompletionDate *time.Time      `json:"completion_date,omitempty"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4)" json:"quantity"`
	Price          decimal.Decimal `gorm:"type:decimal(14,2)" json:"price"`
	OrderFee       decimal.Decimal `gorm:"type:decimal(14,2)" json:"order_fee"`
	AccountID      uint            `gorm:"index" json:"account_id"`
	Symbol         string          `gorm:"index" json:"symbol"`
	HoldingID      *uint           `json:"holding_id,omitempty"`
}

// NewOrder creates an open order priced at the quoted price.
func NewOrder(orderType OrderType, accountID uint, symbol string, quantity, price, fee decimal.Decimal) *Order {
	return &Order{
		OrderType: orderType,
		Status:    OrderStatusOpen,
		OpenDate:  time.Now(),
		Quantity:  quantity,
		Price:     price,
		OrderFee:  fee,
		AccountID: accountID,
		Symbol:    symbol,
	}
}

// IsBuy reports whether this is a buy order.
func (o *Order) IsBuy() bool { return o.OrderType == OrderTypeBuy }

// IsSell reports whether this is a sell order.
func (o *Order) IsSell() bool { return o.OrderType == OrderTypeSell }

// IsOpen reports whether the order has not reached a terminal state yet.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusProcessing
}

// IsCompleted reports whether the order finished normally.
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusClosed
}

// IsCancelled reports whether the order was cancelled.
func (o *Order) IsCancelled() bool { return o.Status == OrderStatusCancelled }

// IsTerminal reports whether no further transition is permitted.
func (o *Order) IsTerminal() bool { return o.IsCompleted() || o.IsCancelled() }

// Complete transitions the order to completed and stamps the completion time.
// Completing an already-terminal order is a programming error.
func (o *Order) Complete(now time.Time) error {
	if o.IsTerminal() {
		return &StateTransitionError{OrderID: o.ID, From: o.Status, To: OrderStatusCompleted}
	}
	o.Status = OrderStatusCompleted
	o.CompletionDate = &now
	return nil
}

// Cancel transitions the order to cancelled (the failure/compensation path).
func (o *Order) Cancel(now time.Time) error {
	if o.IsTerminal() {
		return &StateTransitionError{OrderID: o.ID, From: o.Status, To: OrderStatusCancelled}
	}
	o.Status = OrderStatusCancelled
	o.CompletionDate = &now
	return nil
}

// Total returns quantity * price (before fee).
func (o *Order) Total() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}
