package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trade_go/internal/domain"
	"trade_go/internal/event"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"
	"trade_go/internal/queue"
	"trade_go/internal/service"
)

// Bootstrap orchestrates the application startup sequence. All process-wide
// state (storage, bus, queue, caches) is constructed here once and passed by
// reference into the components that need it.
type Bootstrap struct {
	Config  *infra.Config
	Metrics *infra.Metrics
	Storage *storage.Storage
	Bus     *event.Bus
	Queue   *queue.CompletionQueue
	Worker  *service.CompletionWorker
	Prices  *service.PriceUpdateService
	Trade   *service.TradeService
	Summary *service.MarketSummaryService
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, services).
func (b *Bootstrap) Initialize() error {
	slog.Info("bootstrapping TradeGo...")

	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	b.Metrics = &infra.Metrics{}

	store, err := storage.NewStorage(cfg.Database.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized", slog.String("path", cfg.Database.Path))

	b.Bus = event.NewBus(b.Metrics.RecordEventDropped)
	b.Queue = queue.New(cfg.Queue.BufferSize)
	b.Worker = service.NewCompletionWorker(store, b.Queue, b.Bus, b.Metrics, cfg.Queue.MaxRedeliveries)
	b.Prices = service.NewPriceUpdateService(store, b.Bus, b.Metrics, cfg)
	b.Trade = service.NewTradeService(store, b.Queue, b.Worker, b.Prices, b.Metrics, cfg)
	b.Summary = service.NewMarketSummaryService(store, b.Metrics,
		time.Duration(cfg.Summary.RefreshIntervalSec)*time.Second)

	return nil
}

// SeedQuotes creates quotes for the configured symbols if missing, so a fresh
// database is tradable immediately.
func (b *Bootstrap) SeedQuotes(ctx context.Context) {
	for _, symbol := range b.Config.Trading.SeedSymbols {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, err := b.Storage.GetQuote(nil, symbol)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("failed to check quote", slog.String("symbol", symbol), slog.Any("error", err))
			continue
		}

		if _, err := b.Storage.CreateQuote(symbol, symbol+" Inc.", b.Config.Trading.SeedPrice); err != nil {
			slog.Error("failed to seed quote", slog.String("symbol", symbol), slog.Any("error", err))
			continue
		}
		slog.Info("seeded quote", slog.String("symbol", symbol))
	}
}
