package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trade_go/internal/domain"
	"trade_go/internal/queue"

	"github.com/shopspring/decimal"
)

func TestBuySync(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 10000)
	env.createQuote(t, "s:0", 10.00)

	order, err := env.trade.Buy(context.Background(), "uid:1", "s:0", decimal.NewFromInt(5), ModeSync)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}

	if !order.IsCompleted() {
		t.Errorf("sync buy should complete inline, got %s", order.Status)
	}
	if !order.Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected order priced at the quote, got %v", order.Price)
	}

	// 10000 - 5*10.00 - 24.95 fee
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromFloat(9925.05)) {
		t.Errorf("expected balance 9925.05, got %v", got)
	}

	holdings, err := env.store.GetHoldingsForUser("uid:1")
	if err != nil {
		t.Fatalf("GetHoldingsForUser failed: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	if !holdings[0].Quantity.Equal(decimal.NewFromInt(5)) ||
		!holdings[0].PurchasePrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("unexpected holding %+v", holdings[0])
	}
	if holdings[0].Status != domain.HoldingStatusActive {
		t.Errorf("new holding should be active, got %s", holdings[0].Status)
	}
}

func TestBuyRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 10000)
	env.createQuote(t, "s:0", 10.00)

	for _, qty := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-3)} {
		if _, err := env.trade.Buy(context.Background(), "uid:1", "s:0", qty, ModeSync); !errors.Is(err, domain.ErrInvalidOrder) {
			t.Errorf("quantity %v: expected ErrInvalidOrder, got %v", qty, err)
		}
	}
}

func TestBuyUnknownSymbol(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 10000)

	_, err := env.trade.Buy(context.Background(), "uid:1", "s:missing", decimal.NewFromInt(1), ModeSync)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("failed buy must not move money, balance %v", got)
	}
}

func TestBuyAllowsOverdraft(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 10)
	env.createQuote(t, "s:0", 100.00)

	order, err := env.trade.Buy(context.Background(), "uid:1", "s:0", decimal.NewFromInt(2), ModeSync)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if !order.IsCompleted() {
		t.Errorf("expected completed order, got %s", order.Status)
	}

	// 10 - 200 - 24.95: the balance goes negative, unchecked.
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromFloat(-214.95)) {
		t.Errorf("expected balance -214.95, got %v", got)
	}
}

func TestBuyAsyncCompletesThroughWorker(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 10000)
	env.createQuote(t, "s:0", 10.00)

	order, err := env.trade.Buy(context.Background(), "uid:1", "s:0", decimal.NewFromInt(5), ModeAsync)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if !order.IsOpen() {
		t.Errorf("async buy should return an open order, got %s", order.Status)
	}

	// The debit is committed before completion.
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromFloat(9925.05)) {
		t.Errorf("expected balance 9925.05, got %v", got)
	}
	holdings, _ := env.store.GetHoldingsForUser("uid:1")
	if len(holdings) != 0 {
		t.Fatalf("holding must not exist before completion, got %d", len(holdings))
	}

	completed, err := env.worker.CompleteOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CompleteOrder failed: %v", err)
	}
	if !completed.IsCompleted() {
		t.Errorf("expected completed order, got %s", completed.Status)
	}

	holdings, err = env.store.GetHoldingsForUser("uid:1")
	if err != nil {
		t.Fatalf("GetHoldingsForUser failed: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding after completion, got %d", len(holdings))
	}
}

func TestSellSync(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerUser(t, "uid:1", 1000)
	env.createQuote(t, "s:0", 12.00)
	holding, err := env.store.CreateHolding(nil, account.ID, "s:0", decimal.NewFromInt(5), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("CreateHolding failed: %v", err)
	}

	order, err := env.trade.Sell(context.Background(), "uid:1", holding.ID, ModeSync)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	if !order.IsCompleted() {
		t.Errorf("sync sell should complete inline, got %s", order.Status)
	}
	if !order.Price.Equal(decimal.NewFromInt(12)) {
		t.Errorf("sell must price at the current quote, got %v", order.Price)
	}

	// 1000 + 5*12.00 - 24.95 fee
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromFloat(1035.05)) {
		t.Errorf("expected balance 1035.05, got %v", got)
	}

	holdings, err := env.store.GetHoldingsForUser("uid:1")
	if err != nil {
		t.Fatalf("GetHoldingsForUser failed: %v", err)
	}
	if len(holdings) != 0 {
		t.Errorf("holding should be removed by the sale, got %d", len(holdings))
	}
}

func TestSellUnknownHolding(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 1000)

	order, err := env.trade.Sell(context.Background(), "uid:1", 9999, ModeSync)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if !order.IsCancelled() {
		t.Errorf("sell of a missing holding resolves to a cancelled order, got %s", order.Status)
	}
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("no-op sell must not move money, balance %v", got)
	}
}

func TestSellForeignHoldingRejected(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 1000)
	other := env.registerUser(t, "uid:2", 1000)
	env.createQuote(t, "s:0", 10.00)
	holding, err := env.store.CreateHolding(nil, other.ID, "s:0", decimal.NewFromInt(5), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("CreateHolding failed: %v", err)
	}

	if _, err := env.trade.Sell(context.Background(), "uid:1", holding.ID, ModeSync); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign holding, got %v", err)
	}
}

func TestSellPendingSaleHoldingIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerUser(t, "uid:1", 1000)
	env.createQuote(t, "s:0", 10.00)
	holding, err := env.store.CreateHolding(nil, account.ID, "s:0", decimal.NewFromInt(5), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("CreateHolding failed: %v", err)
	}
	if err := env.store.MarkHoldingPendingSale(nil, holding.ID); err != nil {
		t.Fatalf("MarkHoldingPendingSale failed: %v", err)
	}

	order, err := env.trade.Sell(context.Background(), "uid:1", holding.ID, ModeSync)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if !order.IsCancelled() {
		t.Errorf("expected cancelled no-op order, got %s", order.Status)
	}
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("no-op sell must not move money, balance %v", got)
	}
}

func TestConcurrentSellsSameHolding(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerUser(t, "uid:1", 1000)
	env.createQuote(t, "s:0", 10.00)
	holding, err := env.store.CreateHolding(nil, account.ID, "s:0", decimal.NewFromInt(5), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("CreateHolding failed: %v", err)
	}

	var wg sync.WaitGroup
	orders := make([]*domain.Order, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := env.trade.Sell(context.Background(), "uid:1", holding.ID, ModeSync)
			if err != nil {
				t.Errorf("Sell %d failed: %v", i, err)
				return
			}
			orders[i] = order
		}(i)
	}
	wg.Wait()

	var completed, cancelled int
	for _, order := range orders {
		if order == nil {
			t.Fatal("missing order")
		}
		switch {
		case order.IsCompleted():
			completed++
		case order.IsCancelled():
			cancelled++
		}
	}
	if completed != 1 || cancelled != 1 {
		t.Errorf("expected exactly one sale and one no-op, got %d completed, %d cancelled", completed, cancelled)
	}

	// Money moved exactly once: 1000 + 5*10.00 - 24.95.
	if got := env.balance(t, "uid:1"); !got.Equal(decimal.NewFromFloat(1025.05)) {
		t.Errorf("expected balance 1025.05, got %v", got)
	}
	holdings, _ := env.store.GetHoldingsForUser("uid:1")
	if len(holdings) != 0 {
		t.Errorf("the lot must be sold exactly once, %d holdings remain", len(holdings))
	}
}

func TestBuyAsyncQueueFullCancelsOrder(t *testing.T) {
	env := newTestEnvWithQueue(t, 1)
	env.registerUser(t, "uid:1", 10000)
	env.createQuote(t, "s:0", 10.00)

	// Occupy the only slot so the hand-off fails.
	if err := env.queue.Enqueue(queue.Message{OrderID: 9999}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	order, err := env.trade.Buy(context.Background(), "uid:1", "s:0", decimal.NewFromInt(5), ModeAsync)
	if !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if order == nil || !order.IsCancelled() {
		t.Fatalf("compensation must cancel the order, got %+v", order)
	}

	stored, getErr := env.store.GetOrder(nil, order.ID)
	if getErr != nil {
		t.Fatalf("GetOrder failed: %v", getErr)
	}
	if !stored.IsCancelled() {
		t.Errorf("cancellation must be persisted, got %s", stored.Status)
	}
	holdings, _ := env.store.GetHoldingsForUser("uid:1")
	if len(holdings) != 0 {
		t.Errorf("a cancelled buy must not create a holding, got %d", len(holdings))
	}
}

func TestRoundTripBalanceConservation(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "uid:1", 10000)
	env.createQuote(t, "s:0", 10.00)

	buy, err := env.trade.Buy(context.Background(), "uid:1", "s:0", decimal.NewFromInt(3), ModeSync)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	holdings, err := env.store.GetHoldingsForUser("uid:1")
	if err != nil || len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d (err %v)", len(holdings), err)
	}
	sell, err := env.trade.Sell(context.Background(), "uid:1", holdings[0].ID, ModeSync)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}

	// The random walk moves the quote between trades, so derive the expected
	// balance from the executed orders rather than fixed prices.
	want := decimal.NewFromInt(10000).
		Sub(buy.Total()).Sub(buy.OrderFee).
		Add(sell.Total()).Sub(sell.OrderFee)
	if got := env.balance(t, "uid:1"); !got.Equal(want) {
		t.Errorf("expected balance %v, got %v", want, got)
	}
}
