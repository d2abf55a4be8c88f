package web

import (
	"context"
	"net/http"
	"time"

	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"
	"trade_go/internal/service"

	"github.com/gin-gonic/gin"
)

// Server exposes the trading core over HTTP. It is a thin presentation
// boundary: no sessions, no cookies; callers identify themselves explicitly.
type Server struct {
	addr    string
	engine  *gin.Engine
	store   *storage.Storage
	trade   *service.TradeService
	summary *service.MarketSummaryService
	hub     *TickerHub
}

// NewServer builds the router over the core services.
func NewServer(cfg *infra.Config, store *storage.Storage, trade *service.TradeService, summary *service.MarketSummaryService, hub *TickerHub) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.HTTP.Addr,
		engine:  engine,
		store:   store,
		trade:   trade,
		summary: summary,
		hub:     hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	{
		api.POST("/register", s.register)
		api.POST("/login", s.login)
		api.POST("/logout", s.logout)

		api.POST("/trades/buy", s.buy)
		api.POST("/trades/sell", s.sell)

		api.GET("/portfolio/:userId", s.portfolio)
		api.GET("/orders/closed/:userId", s.closedOrders)
		api.GET("/quotes", s.quotes)
		api.GET("/quotes/:symbol", s.quote)
		api.GET("/summary", s.marketSummary)
	}

	s.engine.GET("/ws/ticker", s.hub.Handle)

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
