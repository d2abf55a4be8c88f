package domain

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

var neutralFactor = decimal.NewFromInt(1)

// RandomChangeFactor samples a multiplicative price adjustment for a trade:
// a uniform magnitude in [0, maxChangePercent] percent with a coin-flip sign,
// added to 1. The result is floored at a neutral 1.0 if it would be <= 0, so
// the random walk alone can never drive a price to zero or negative. The
// penny-floor/ceiling policy in the price update service handles the boundary
// cases that slip past this guard.
func RandomChangeFactor(maxChangePercent float64) decimal.Decimal {
	magnitude := rand.Float64() * maxChangePercent / 100
	if rand.Intn(2) == 0 {
		magnitude = -magnitude
	}
	factor := decimal.NewFromFloat(1 + magnitude)
	if factor.LessThanOrEqual(decimal.Zero) {
		return neutralFactor
	}
	return factor
}
