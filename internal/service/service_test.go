package service

import (
	"path/filepath"
	"testing"

	"trade_go/internal/domain"
	"trade_go/internal/event"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"
	"trade_go/internal/queue"

	"github.com/shopspring/decimal"
)

type testEnv struct {
	cfg     *infra.Config
	store   *storage.Storage
	bus     *event.Bus
	queue   *queue.CompletionQueue
	worker  *CompletionWorker
	prices  *PriceUpdateService
	trade   *TradeService
	metrics *infra.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithQueue(t, 64)
}

func newTestEnvWithQueue(t *testing.T, buffer int) *testEnv {
	t.Helper()

	cfg := infra.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")

	store, err := storage.NewStorage(cfg.Database.Path)
	if err != nil {
		t.Fatalf("failed to open test storage: %v", err)
	}

	metrics := &infra.Metrics{}
	bus := event.NewBus(metrics.RecordEventDropped)
	t.Cleanup(bus.Close)
	q := queue.New(buffer)
	worker := NewCompletionWorker(store, q, bus, metrics, cfg.Queue.MaxRedeliveries)
	prices := NewPriceUpdateService(store, bus, metrics, cfg)
	trade := NewTradeService(store, q, worker, prices, metrics, cfg)

	return &testEnv{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		queue:   q,
		worker:  worker,
		prices:  prices,
		trade:   trade,
		metrics: metrics,
	}
}

func (e *testEnv) registerUser(t *testing.T, userID string, balance float64) *domain.Account {
	t.Helper()
	account, err := e.store.Register(&domain.AccountProfile{
		UserID:   userID,
		FullName: "Test User",
		Email:    userID + "@example.com",
	}, decimal.NewFromFloat(balance))
	if err != nil {
		t.Fatalf("failed to register %s: %v", userID, err)
	}
	return account
}

func (e *testEnv) createQuote(t *testing.T, symbol string, price float64) *domain.Quote {
	t.Helper()
	quote, err := e.store.CreateQuote(symbol, symbol+" Inc.", decimal.NewFromFloat(price))
	if err != nil {
		t.Fatalf("failed to create quote %s: %v", symbol, err)
	}
	return quote
}

func (e *testEnv) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	account, err := e.store.GetAccount(nil, userID)
	if err != nil {
		t.Fatalf("failed to read account %s: %v", userID, err)
	}
	return account.Balance
}
