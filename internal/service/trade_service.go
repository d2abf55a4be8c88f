package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trade_go/internal/domain"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"
	"trade_go/internal/queue"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderMode selects how an order reaches completion.
type OrderMode string

const (
	// ModeSync completes the order inline, in the same unit of work that
	// created it.
	ModeSync OrderMode = "sync"
	// ModeAsync commits the order and debit first, then hands the order ID to
	// the completion queue.
	ModeAsync OrderMode = "async"
)

// TradeService orchestrates buy and sell: it validates input, moves the cash,
// creates the order record and triggers completion. The secondary
// price-volume update runs after the financial mutation commits and can never
// roll it back.
type TradeService struct {
	store   *storage.Storage
	queue   *queue.CompletionQueue
	worker  *CompletionWorker
	prices  *PriceUpdateService
	metrics *infra.Metrics

	orderFee         decimal.Decimal
	maxChangePercent float64
}

// NewTradeService wires the order service.
func NewTradeService(store *storage.Storage, q *queue.CompletionQueue, worker *CompletionWorker, prices *PriceUpdateService, metrics *infra.Metrics, cfg *infra.Config) *TradeService {
	return &TradeService{
		store:            store,
		queue:            q,
		worker:           worker,
		prices:           prices,
		metrics:          metrics,
		orderFee:         cfg.Trading.OrderFee,
		maxChangePercent: cfg.Trading.MaxChangePercent,
	}
}

// Buy creates a buy order for quantity shares of symbol at the current quote
// price, debits the account by quantity*price+fee and completes the order
// per mode. No overdraft check is performed; the balance may go negative.
func (t *TradeService) Buy(ctx context.Context, userID, symbol string, quantity decimal.Decimal, mode OrderMode) (*domain.Order, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidOrder)
	}

	unlock := t.store.LockAccount(userID)
	var order *domain.Order
	err := t.store.Transaction(func(tx *gorm.DB) error {
		account, err := t.store.GetAccount(tx, userID)
		if err != nil {
			return err
		}
		quote, err := t.store.GetQuote(tx, symbol)
		if err != nil {
			return err
		}

		order = domain.NewOrder(domain.OrderTypeBuy, account.ID, symbol, quantity, quote.Price.Round(2), t.orderFee)
		if err := t.store.CreateOrder(tx, order); err != nil {
			return err
		}

		cost := order.Total().Add(order.OrderFee)
		if err := t.store.CreditBalance(tx, account.ID, cost.Neg()); err != nil {
			return err
		}

		if mode == ModeSync {
			return t.worker.CompleteInline(tx, order)
		}
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	t.metrics.RecordOrderPlaced()
	if mode == ModeSync {
		t.worker.NotifyClosed(order)
	} else if err := t.enqueueCompletion(ctx, order); err != nil {
		return order, err
	}

	t.applyPriceUpdate(ctx, symbol, quantity)
	return order, nil
}

// Sell creates a sell order for the given holding at the current quote price,
// credits the account by quantity*price-fee and completes the order per mode.
// A holding already sold (or claimed) by a concurrent sell is a defined
// no-op: the caller gets back a cancelled order, not an error.
func (t *TradeService) Sell(ctx context.Context, userID string, holdingID uint, mode OrderMode) (*domain.Order, error) {
	unlock := t.store.LockAccount(userID)
	var order *domain.Order
	var symbol string
	var vanished bool
	err := t.store.Transaction(func(tx *gorm.DB) error {
		account, err := t.store.GetAccount(tx, userID)
		if err != nil {
			return err
		}

		holding, err := t.store.GetHolding(tx, holdingID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			vanished = true
		case err != nil:
			return err
		case holding.AccountID != account.ID:
			return domain.ErrNotFound
		case holding.IsPendingSale():
			vanished = true
		}

		if vanished {
			order = noOpSellOrder(account.ID)
			return t.store.CreateOrder(tx, order)
		}

		quote, err := t.store.GetQuote(tx, holding.Symbol)
		if err != nil {
			return err
		}
		symbol = holding.Symbol

		if err := t.store.MarkHoldingPendingSale(tx, holding.ID); err != nil {
			return err
		}

		order = domain.NewOrder(domain.OrderTypeSell, account.ID, holding.Symbol, holding.Quantity, quote.Price.Round(2), t.orderFee)
		order.HoldingID = &holding.ID
		if err := t.store.CreateOrder(tx, order); err != nil {
			return err
		}

		proceeds := order.Total().Sub(order.OrderFee)
		if err := t.store.CreditBalance(tx, account.ID, proceeds); err != nil {
			return err
		}

		if mode == ModeSync {
			return t.worker.CompleteInline(tx, order)
		}
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	if vanished {
		t.metrics.RecordOrderCancelled()
		slog.Warn("sell raced with a concurrent sale, returning cancelled order",
			slog.String("user_id", userID),
			slog.Uint64("holding_id", uint64(holdingID)))
		return order, nil
	}

	t.metrics.RecordOrderPlaced()
	if mode == ModeSync {
		t.worker.NotifyClosed(order)
	} else if err := t.enqueueCompletion(ctx, order); err != nil {
		return order, err
	}

	t.applyPriceUpdate(ctx, symbol, order.Quantity)
	return order, nil
}

// enqueueCompletion hands the order to the async completion path. If the
// hand-off itself fails the order is cancelled as compensation; if that
// cancel also fails the caller gets a CompensationError.
func (t *TradeService) enqueueCompletion(ctx context.Context, order *domain.Order) error {
	err := t.queue.Enqueue(queue.Message{OrderID: order.ID})
	if err == nil {
		t.metrics.SetQueueDepth(int32(t.queue.Depth()))
		return nil
	}

	slog.Error("completion hand-off failed, cancelling order",
		slog.Uint64("order_id", uint64(order.ID)),
		slog.Any("error", err))

	cancelled, cErr := t.worker.CancelOrder(ctx, order.ID)
	if cErr != nil {
		t.metrics.RecordError()
		return &domain.CompensationError{OrderID: order.ID, Primary: err, Compensation: cErr}
	}
	*order = *cancelled
	t.metrics.RecordOrderCancelled()
	return fmt.Errorf("order %d cancelled: %w", order.ID, err)
}

// applyPriceUpdate is the secondary side effect of a trade: a random-walk
// price move plus the traded volume. Failures are logged, never propagated;
// money has already moved.
func (t *TradeService) applyPriceUpdate(ctx context.Context, symbol string, sharesTraded decimal.Decimal) {
	if symbol == "" {
		return
	}
	factor := domain.RandomChangeFactor(t.maxChangePercent)
	if _, err := t.prices.UpdatePriceVolume(ctx, symbol, factor, sharesTraded); err != nil {
		slog.Warn("price update after trade failed",
			slog.String("symbol", symbol),
			slog.Any("error", err))
	}
}

// noOpSellOrder records the audit trail for a sell that lost a race: already
// cancelled, no money moved, no lot touched.
func noOpSellOrder(accountID uint) *domain.Order {
	order := domain.NewOrder(domain.OrderTypeSell, accountID, "", decimal.Zero, decimal.Zero, decimal.Zero)
	now := time.Now()
	order.Status = domain.OrderStatusCancelled
	order.CompletionDate = &now
	return order
}
