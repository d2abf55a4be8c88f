package storage

import (
	"errors"

	"trade_go/internal/domain"

	"gorm.io/gorm"
)

// CreateOrder persists a new order record.
func (s *Storage) CreateOrder(tx *gorm.DB, order *domain.Order) error {
	if err := s.conn(tx).Create(order).Error; err != nil {
		return domain.NewPersistenceError("create order", err)
	}
	return nil
}

// GetOrder retrieves an order by ID. A legacy "closed" status is normalized
// to completed on read.
func (s *Storage) GetOrder(tx *gorm.DB, id uint) (*domain.Order, error) {
	var order domain.Order
	err := s.conn(tx).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewPersistenceError("get order", err)
	}
	if order.Status == domain.OrderStatusClosed {
		order.Status = domain.OrderStatusCompleted
	}
	return &order, nil
}

// SaveOrder persists order mutations (status transitions, holding links).
func (s *Storage) SaveOrder(tx *gorm.DB, order *domain.Order) error {
	if err := s.conn(tx).Save(order).Error; err != nil {
		return domain.NewPersistenceError("save order", err)
	}
	return nil
}

// OrdersForAccount returns all orders for an account, newest first.
func (s *Storage) OrdersForAccount(accountID uint) ([]domain.Order, error) {
	var orders []domain.Order
	if err := s.db.Where("account_id = ?", accountID).Order("id DESC").Find(&orders).Error; err != nil {
		return nil, domain.NewPersistenceError("list orders", err)
	}
	normalizeClosed(orders)
	return orders, nil
}

// CompletedOrdersForAccount returns the account's finished orders. Any rows
// still carrying the legacy "closed" label are relabeled completed in place,
// matching the historical read-side relabeling.
func (s *Storage) CompletedOrdersForAccount(accountID uint) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.Where("account_id = ? AND status IN ?", accountID,
		[]domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusClosed}).
		Order("id DESC").Find(&orders).Error
	if err != nil {
		return nil, domain.NewPersistenceError("list completed orders", err)
	}

	res := s.db.Model(&domain.Order{}).
		Where("account_id = ? AND status = ?", accountID, domain.OrderStatusClosed).
		Update("status", domain.OrderStatusCompleted)
	if res.Error != nil {
		return nil, domain.NewPersistenceError("relabel closed orders", res.Error)
	}

	normalizeClosed(orders)
	return orders, nil
}

func normalizeClosed(orders []domain.Order) {
	for i := range orders {
		if orders[i].Status == domain.OrderStatusClosed {
			orders[i].Status = domain.OrderStatusCompleted
		}
	}
}
