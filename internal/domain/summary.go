package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSummary is a derived, periodically refreshed snapshot over all
// quotes. It is never persisted.
type MarketSummary struct {
	TSIA        decimal.Decimal `json:"tsia"`      // aggregate price index (average quote price)
	OpenTSIA    decimal.Decimal `json:"open_tsia"` // index at market open
	Volume      decimal.Decimal `json:"volume"`    // total traded volume across all symbols
	TopGainers  []Quote         `json:"top_gainers"`
	TopLosers   []Quote         `json:"top_losers"`
	SummaryDate time.Time       `json:"summary_date"`
}

// GainPercent returns the index move since open as a percentage,
// or zero when the opening index is zero.
func (m *MarketSummary) GainPercent() decimal.Decimal {
	if m.OpenTSIA.IsZero() {
		return decimal.Zero
	}
	return m.TSIA.Sub(m.OpenTSIA).Div(m.OpenTSIA).Mul(decimal.NewFromInt(100)).Round(2)
}
