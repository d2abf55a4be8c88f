package service

import (
	"context"
	"time"

	"trade_go/internal/domain"
	"trade_go/internal/event"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceUpdateService recomputes a symbol's price after a trade. Updates to
// the same symbol are serialized through the store's per-symbol lock; this is
// the one place where many concurrent trades funnel through a single lock per
// symbol, and it is what prevents lost price updates.
type PriceUpdateService struct {
	store   *storage.Storage
	bus     *event.Bus
	metrics *infra.Metrics

	pennyFloor     decimal.Decimal
	recoveryFactor decimal.Decimal
	priceCeiling   decimal.Decimal
	splitFactor    decimal.Decimal
}

// NewPriceUpdateService creates the price update service from config policy.
func NewPriceUpdateService(store *storage.Storage, bus *event.Bus, metrics *infra.Metrics, cfg *infra.Config) *PriceUpdateService {
	return &PriceUpdateService{
		store:          store,
		bus:            bus,
		metrics:        metrics,
		pennyFloor:     cfg.Trading.PennyFloor,
		recoveryFactor: cfg.Trading.RecoveryFactor,
		priceCeiling:   cfg.Trading.PriceCeiling,
		splitFactor:    cfg.Trading.SplitFactor,
	}
}

// UpdatePriceVolume applies changeFactor to the symbol's price, adds the
// traded shares to its volume and publishes a price-change event. The
// penny-stock and ceiling overrides take precedence over the caller's factor;
// they model corporate-action-like corrections rather than organic drift.
// Event publication is best-effort and never fails the update.
func (p *PriceUpdateService) UpdatePriceVolume(ctx context.Context, symbol string, changeFactor, sharesTraded decimal.Decimal) (*domain.Quote, error) {
	unlock := p.store.LockSymbol(symbol)
	defer unlock()

	var updated *domain.Quote
	var oldPrice, effectiveFactor decimal.Decimal
	err := p.store.Transaction(func(tx *gorm.DB) error {
		quote, err := p.store.GetQuoteForUpdate(tx, symbol)
		if err != nil {
			return err
		}

		oldPrice = quote.Price
		effectiveFactor = changeFactor
		switch {
		case oldPrice.Equal(p.pennyFloor):
			effectiveFactor = p.recoveryFactor
		case oldPrice.GreaterThan(p.priceCeiling):
			effectiveFactor = p.splitFactor
		}

		newPrice := effectiveFactor.Mul(oldPrice).Round(2)
		change := newPrice.Sub(quote.Open)
		newVolume := quote.Volume.Add(sharesTraded)

		if err := p.store.UpdateQuotePriceVolume(tx, symbol, newPrice, newVolume, change); err != nil {
			return err
		}

		quote.Price = newPrice
		quote.Change = change
		quote.Volume = newVolume
		updated = quote
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.metrics.RecordPriceUpdate()
	p.bus.Publish(event.PriceChange{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		OldPrice:     oldPrice,
		NewPrice:     updated.Price,
		ChangeFactor: effectiveFactor,
		Volume:       updated.Volume,
		SharesTraded: sharesTraded,
		Timestamp:    time.Now(),
	})
	return updated, nil
}
