package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"trade_go/internal/domain"
	"trade_go/internal/infra"
	"trade_go/internal/infra/storage"

	"github.com/shopspring/decimal"
)

const topMoverCount = 5

var errNoQuotes = errors.New("no quotes to summarize")

// MarketSummaryService maintains a stale-tolerant cache of index-level
// statistics over all quotes. Recomputation is a full scan, so within a
// refresh window exactly one caller performs it: the winner of a
// compare-and-swap on the next-refresh timestamp. Everyone else immediately
// gets the previous cached value without blocking.
type MarketSummaryService struct {
	store    *storage.Storage
	metrics  *infra.Metrics
	interval time.Duration // 0 = recompute every call, negative = never refresh

	mu          sync.RWMutex
	cached      *domain.MarketSummary
	nextRefresh atomic.Int64 // unix nanos of the next scheduled refresh
}

// NewMarketSummaryService creates the aggregator. The cache starts with a
// randomly seeded placeholder so early callers always receive a valid value.
func NewMarketSummaryService(store *storage.Storage, metrics *infra.Metrics, refreshInterval time.Duration) *MarketSummaryService {
	return &MarketSummaryService{
		store:    store,
		metrics:  metrics,
		interval: refreshInterval,
		cached:   placeholderSummary(),
	}
}

// GetSummary returns the market summary, refreshing it according to the
// configured interval. Computation failures are logged and the previous
// cached value is returned unchanged; callers never see the failure.
func (m *MarketSummaryService) GetSummary(ctx context.Context) *domain.MarketSummary {
	switch {
	case m.interval == 0:
		m.refresh()
		return m.current()
	case m.interval < 0:
		return m.current()
	}

	now := time.Now().UnixNano()
	next := m.nextRefresh.Load()
	if now >= next && m.nextRefresh.CompareAndSwap(next, now+int64(m.interval)) {
		// This caller won the refresh race; all others keep the cached value.
		m.refresh()
	}
	return m.current()
}

func (m *MarketSummaryService) current() *domain.MarketSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cached
}

func (m *MarketSummaryService) refresh() {
	summary, err := m.compute()
	if err != nil {
		slog.Warn("market summary refresh failed, keeping cached value", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	m.cached = summary
	m.mu.Unlock()
	m.metrics.RecordSummaryRefresh()
}

// compute scans all quotes, sorts by change descending and derives the index
// values and top movers.
func (m *MarketSummaryService) compute() (*domain.MarketSummary, error) {
	quotes, err := m.store.AllQuotes()
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, errNoQuotes
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Change.GreaterThan(quotes[j].Change)
	})

	gainers := topMoverCount
	if gainers > len(quotes) {
		gainers = len(quotes)
	}
	topGainers := append([]domain.Quote(nil), quotes[:gainers]...)

	topLosers := make([]domain.Quote, 0, gainers)
	for i := len(quotes) - 1; i >= 0 && len(topLosers) < topMoverCount; i-- {
		topLosers = append(topLosers, quotes[i])
	}

	priceSum, openSum, volumeSum := decimal.Zero, decimal.Zero, decimal.Zero
	for _, q := range quotes {
		priceSum = priceSum.Add(q.Price)
		openSum = openSum.Add(q.Open)
		volumeSum = volumeSum.Add(q.Volume)
	}
	count := decimal.NewFromInt(int64(len(quotes)))

	return &domain.MarketSummary{
		TSIA:        priceSum.Div(count).Round(2),
		OpenTSIA:    openSum.Div(count).Round(2),
		Volume:      volumeSum,
		TopGainers:  topGainers,
		TopLosers:   topLosers,
		SummaryDate: time.Now(),
	}, nil
}

// placeholderSummary seeds the cache before the first real computation.
func placeholderSummary() *domain.MarketSummary {
	base := decimal.NewFromFloat(50 + rand.Float64()*50).Round(2)
	return &domain.MarketSummary{
		TSIA:        base,
		OpenTSIA:    base,
		Volume:      decimal.Zero,
		SummaryDate: time.Now(),
	}
}
