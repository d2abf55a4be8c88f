package web

import (
	"errors"
	"net/http"

	"trade_go/internal/domain"
	"trade_go/internal/queue"
	"trade_go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RegisterRequest creates a profile and account with an opening balance.
type RegisterRequest struct {
	UserID      string  `json:"user_id" binding:"required"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	OpenBalance float64 `json:"open_balance" binding:"required,gt=0"`
}

// TradeRequest is the payload for buy orders.
type TradeRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	Symbol   string  `json:"symbol" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Mode     string  `json:"mode"`
}

// SellRequest is the payload for sell orders.
type SellRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	HoldingID uint   `json:"holding_id" binding:"required"`
	Mode      string `json:"mode"`
}

// UserRequest identifies a user for login/logout.
type UserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// PortfolioResponse is the holdings view plus cash.
type PortfolioResponse struct {
	Holdings    []domain.Holding `json:"holdings"`
	CashBalance decimal.Decimal  `json:"cash_balance"`
	TotalValue  decimal.Decimal  `json:"total_value"`
}

func orderMode(mode string) service.OrderMode {
	if mode == string(service.ModeSync) {
		return service.ModeSync
	}
	return service.ModeAsync
}

// errStatus maps the core error taxonomy onto HTTP status codes.
func errStatus(err error) int {
	var compErr *domain.CompensationError
	switch {
	case errors.As(err, &compErr):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := &domain.AccountProfile{
		UserID:   req.UserID,
		FullName: req.FullName,
		Email:    req.Email,
	}
	account, err := s.store.Register(profile, decimal.NewFromFloat(req.OpenBalance))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) login(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := s.store.RecordLogin(req.UserID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) logout(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := s.store.RecordLogout(req.UserID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) buy(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.trade.Buy(c.Request.Context(), req.UserID, req.Symbol,
		decimal.NewFromFloat(req.Quantity), orderMode(req.Mode))
	if err != nil {
		// A cancelled order alongside the error means the request was
		// compensated, not silently lost.
		c.JSON(errStatus(err), gin.H{"error": err.Error(), "order": order})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) sell(c *gin.Context) {
	var req SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.trade.Sell(c.Request.Context(), req.UserID, req.HoldingID, orderMode(req.Mode))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error(), "order": order})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) portfolio(c *gin.Context) {
	userID := c.Param("userId")

	account, err := s.store.GetAccount(nil, userID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	holdings, err := s.store.GetHoldingsForUser(userID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	total := account.Balance
	for _, h := range holdings {
		quote, err := s.store.GetQuote(nil, h.Symbol)
		if err != nil {
			// Value the position at cost when the quote is unavailable.
			total = total.Add(h.Quantity.Mul(h.PurchasePrice))
			continue
		}
		total = total.Add(h.Quantity.Mul(quote.Price))
	}

	c.JSON(http.StatusOK, PortfolioResponse{
		Holdings:    holdings,
		CashBalance: account.Balance,
		TotalValue:  total.Round(2),
	})
}

func (s *Server) closedOrders(c *gin.Context) {
	userID := c.Param("userId")

	account, err := s.store.GetAccount(nil, userID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	orders, err := s.store.CompletedOrdersForAccount(account.ID)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) quotes(c *gin.Context) {
	quotes, err := s.store.AllQuotes()
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quotes)
}

func (s *Server) quote(c *gin.Context) {
	quote, err := s.store.GetQuote(nil, c.Param("symbol"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (s *Server) marketSummary(c *gin.Context) {
	summary := s.summary.GetSummary(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"tsia":         summary.TSIA,
		"open_tsia":    summary.OpenTSIA,
		"volume":       summary.Volume,
		"gain_percent": summary.GainPercent(),
		"top_gainers":  summary.TopGainers,
		"top_losers":   summary.TopLosers,
		"summary_date": summary.SummaryDate,
	})
}
