package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"trade_go/internal/domain"
	"trade_go/internal/event"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"
	"trade_go/internal/queue"
	"trade_go/internal/service"

	"github.com/shopspring/decimal"
)

func setupTestServer(t *testing.T) (*Server, *storage.Storage) {
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
	q := queue.New(cfg.Queue.BufferSize)
	worker := service.NewCompletionWorker(store, q, bus, metrics, cfg.Queue.MaxRedeliveries)
	prices := service.NewPriceUpdateService(store, bus, metrics, cfg)
	trade := service.NewTradeService(store, q, worker, prices, metrics, cfg)
	summary := service.NewMarketSummaryService(store, metrics, 0)
	hub := NewTickerHub(bus)

	return NewServer(cfg, store, trade, summary, hub), store
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)
	return w
}

func TestErrStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("ctx: %w", domain.ErrNotFound), http.StatusNotFound},
		{"invalid order", domain.ErrInvalidOrder, http.StatusBadRequest},
		{"state transition", &domain.StateTransitionError{OrderID: 1}, http.StatusConflict},
		{"queue full", queue.ErrQueueFull, http.StatusServiceUnavailable},
		{"compensation", &domain.CompensationError{OrderID: 1}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errStatus(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	w := doJSON(t, server, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/register", RegisterRequest{
		UserID:      "uid:1",
		FullName:    "Test User",
		Email:       "uid:1@example.com",
		OpenBalance: 10000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, server, http.MethodPost, "/api/login", UserRequest{UserID: "uid:1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var account domain.Account
	if err := json.Unmarshal(w.Body.Bytes(), &account); err != nil {
		t.Fatalf("failed to decode account: %v", err)
	}
	if account.LoginCount != 1 {
		t.Errorf("expected login count 1, got %d", account.LoginCount)
	}

	w = doJSON(t, server, http.MethodPost, "/api/logout", UserRequest{UserID: "uid:1"})
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/register", RegisterRequest{
		UserID: "uid:1", // missing open balance
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	server, _ := setupTestServer(t)
	w := doJSON(t, server, http.MethodPost, "/api/login", UserRequest{UserID: "uid:missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestBuyAndPortfolio(t *testing.T) {
	server, store := setupTestServer(t)
	if _, err := store.Register(&domain.AccountProfile{UserID: "uid:1"}, decimal.NewFromInt(10000)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := store.CreateQuote("s:0", "s:0 Inc.", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("create quote failed: %v", err)
	}

	w := doJSON(t, server, http.MethodPost, "/api/trades/buy", TradeRequest{
		UserID:   "uid:1",
		Symbol:   "s:0",
		Quantity: 5,
		Mode:     "sync",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("buy: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var order domain.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected completed order, got %s", order.Status)
	}

	w = doJSON(t, server, http.MethodGet, "/api/portfolio/uid:1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("portfolio: expected 200, got %d", w.Code)
	}
	var portfolio PortfolioResponse
	if err := json.Unmarshal(w.Body.Bytes(), &portfolio); err != nil {
		t.Fatalf("failed to decode portfolio: %v", err)
	}
	if len(portfolio.Holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(portfolio.Holdings))
	}
	if !portfolio.CashBalance.Equal(decimal.NewFromFloat(9925.05)) {
		t.Errorf("expected cash 9925.05, got %v", portfolio.CashBalance)
	}
}

func TestBuyUnknownSymbolReturns404(t *testing.T) {
	server, store := setupTestServer(t)
	if _, err := store.Register(&domain.AccountProfile{UserID: "uid:1"}, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	w := doJSON(t, server, http.MethodPost, "/api/trades/buy", TradeRequest{
		UserID:   "uid:1",
		Symbol:   "s:missing",
		Quantity: 1,
		Mode:     "sync",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQuotesAndSummaryEndpoints(t *testing.T) {
	server, store := setupTestServer(t)
	if _, err := store.CreateQuote("s:0", "s:0 Inc.", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("create quote failed: %v", err)
	}

	w := doJSON(t, server, http.MethodGet, "/api/quotes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("quotes: expected 200, got %d", w.Code)
	}
	var quotes []domain.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &quotes); err != nil {
		t.Fatalf("failed to decode quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Symbol != "s:0" {
		t.Errorf("unexpected quotes %+v", quotes)
	}

	w = doJSON(t, server, http.MethodGet, "/api/quotes/s:0", nil)
	if w.Code != http.StatusOK {
		t.Errorf("quote: expected 200, got %d", w.Code)
	}
	w = doJSON(t, server, http.MethodGet, "/api/quotes/s:missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing quote: expected 404, got %d", w.Code)
	}

	w = doJSON(t, server, http.MethodGet, "/api/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", w.Code)
	}
	var summary map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	for _, key := range []string{"tsia", "open_tsia", "volume", "gain_percent", "top_gainers", "top_losers"} {
		if _, ok := summary[key]; !ok {
			t.Errorf("summary missing %q", key)
		}
	}
}
