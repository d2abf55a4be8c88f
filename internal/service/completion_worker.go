package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"trade_go/internal/domain"
	"trade_go/internal/event"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"
	"trade_go/internal/queue"

	"gorm.io/gorm"
)

// CompletionWorker consumes queued order-completion messages and performs the
// open -> completed transition plus the holding mutation it implies. The same
// routine also runs inline for synchronous orders.
//
// Delivery is at-least-once; the terminal-state check on load is what turns
// redelivery into a safe no-op and upholds the exactly-once-effect contract.
type CompletionWorker struct {
	store           *storage.Storage
	queue           *queue.CompletionQueue
	bus             *event.Bus
	metrics         *infra.Metrics
	maxRedeliveries int
	wg              sync.WaitGroup
}

// NewCompletionWorker creates a completion worker pool (not yet started).
func NewCompletionWorker(store *storage.Storage, q *queue.CompletionQueue, bus *event.Bus, metrics *infra.Metrics, maxRedeliveries int) *CompletionWorker {
	return &CompletionWorker{
		store:           store,
		queue:           q,
		bus:             bus,
		metrics:         metrics,
		maxRedeliveries: maxRedeliveries,
	}
}

// Start launches the consumer goroutines.
func (w *CompletionWorker) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	slog.Info("completion workers started", slog.Int("workers", workers))
}

// Wait blocks until all consumer goroutines have stopped.
func (w *CompletionWorker) Wait() {
	w.wg.Wait()
}

func (w *CompletionWorker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("completion worker stopping", slog.Int("worker", id))
			return
		case msg := <-w.queue.Messages():
			w.metrics.SetQueueDepth(int32(w.queue.Depth()))
			w.handle(ctx, msg)
		}
	}
}

func (w *CompletionWorker) handle(ctx context.Context, msg queue.Message) {
	_, err := w.CompleteOrder(ctx, msg.OrderID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidStateTransition):
		// Redelivered message for an already-terminal order: safe no-op.
		slog.Debug("skipping terminal order", slog.Uint64("order_id", uint64(msg.OrderID)))
	case errors.Is(err, domain.ErrNotFound):
		slog.Warn("dropping completion message for unknown order",
			slog.Uint64("order_id", uint64(msg.OrderID)))
	default:
		w.metrics.RecordError()
		w.redeliver(ctx, msg, err)
	}
}

// redeliver retries a failed completion up to maxRedeliveries, then
// dead-letters the order by cancelling it.
func (w *CompletionWorker) redeliver(ctx context.Context, msg queue.Message, cause error) {
	if msg.Attempts < w.maxRedeliveries {
		retry := queue.Message{OrderID: msg.OrderID, Attempts: msg.Attempts + 1}
		if qErr := w.queue.Enqueue(retry); qErr == nil {
			slog.Warn("order completion failed, redelivering",
				slog.Uint64("order_id", uint64(msg.OrderID)),
				slog.Int("attempt", retry.Attempts),
				slog.Any("error", cause))
			return
		}
	}

	if _, cErr := w.CancelOrder(ctx, msg.OrderID); cErr != nil {
		slog.Error("order completion and compensating cancel both failed",
			slog.Uint64("order_id", uint64(msg.OrderID)),
			slog.Any("completion_error", cause),
			slog.Any("cancel_error", cErr))
		return
	}
	slog.Error("order cancelled after exhausting redeliveries",
		slog.Uint64("order_id", uint64(msg.OrderID)),
		slog.Any("error", cause))
	w.metrics.RecordOrderCancelled()
}

// CompleteOrder loads an order and finalizes it in its own transaction.
// Fails with ErrNotFound if the order is absent and ErrInvalidStateTransition
// if it is already terminal (no side effects in either case).
func (w *CompletionWorker) CompleteOrder(ctx context.Context, orderID uint) (*domain.Order, error) {
	var order *domain.Order
	err := w.store.Transaction(func(tx *gorm.DB) error {
		o, err := w.store.GetOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := w.CompleteInline(tx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.NotifyClosed(order)
	return order, nil
}

// CompleteInline performs the completion state transition within the caller's
// transaction. Synchronous orders run through here inside the same unit of
// work that created them; the caller publishes the closed-order notification
// after commit.
func (w *CompletionWorker) CompleteInline(tx *gorm.DB, order *domain.Order) error {
	if order.IsTerminal() {
		return &domain.StateTransitionError{
			OrderID: order.ID, From: order.Status, To: domain.OrderStatusCompleted,
		}
	}

	if order.IsBuy() {
		holding, err := w.store.CreateHolding(tx, order.AccountID, order.Symbol, order.Quantity, order.Price)
		if err != nil {
			return err
		}
		order.HoldingID = &holding.ID
	} else if order.HoldingID != nil {
		err := w.store.RemoveHolding(tx, *order.HoldingID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// Already gone means a concurrent path released the lot first;
		// treat as success, not an error.
		order.HoldingID = nil
	}

	if err := order.Complete(time.Now()); err != nil {
		return err
	}
	return w.store.SaveOrder(tx, order)
}

// CancelOrder transitions an order to cancelled (the failure path). A sell's
// holding claim is released so the lot can be sold again.
func (w *CompletionWorker) CancelOrder(ctx context.Context, orderID uint) (*domain.Order, error) {
	var order *domain.Order
	err := w.store.Transaction(func(tx *gorm.DB) error {
		o, err := w.store.GetOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.IsSell() && o.HoldingID != nil {
			if err := w.releaseHoldingClaim(tx, *o.HoldingID); err != nil {
				return err
			}
		}
		if err := o.Cancel(time.Now()); err != nil {
			return err
		}
		if err := w.store.SaveOrder(tx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (w *CompletionWorker) releaseHoldingClaim(tx *gorm.DB, holdingID uint) error {
	holding, err := w.store.GetHolding(tx, holdingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if holding.IsPendingSale() {
		holding.Status = domain.HoldingStatusActive
		return tx.Save(holding).Error
	}
	return nil
}

// NotifyClosed records the completion and publishes the closed-order event.
// Best-effort: the transition has already committed, so nothing here can fail
// the order.
func (w *CompletionWorker) NotifyClosed(order *domain.Order) {
	latency := int64(0)
	if order.CompletionDate != nil {
		latency = order.CompletionDate.Sub(order.OpenDate).Nanoseconds()
	}
	w.metrics.RecordOrderCompleted(latency)

	completedAt := order.OpenDate
	if order.CompletionDate != nil {
		completedAt = *order.CompletionDate
	}
	w.bus.Publish(event.OrderClosed{
		OrderID:     order.ID,
		AccountID:   order.AccountID,
		OrderType:   string(order.OrderType),
		Symbol:      order.Symbol,
		CompletedAt: completedAt,
	})
}
