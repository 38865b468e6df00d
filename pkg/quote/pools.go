package quote

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"afri-swap/pkg/types"
)

// PoolPrice is the output of one unit of Pair.In
type PoolPrice struct {
	Pair  types.Pair
	Price decimal.Decimal
	Err   error
}

// String formats the price with 2 decimals, or "Error"
func (p PoolPrice) String() string {
	if p.Err != nil {
		return "Error"
	}
	return p.Price.StringFixed(2)
}

// PoolPrices estimates one unit of the first token of every pool. A failing
// pool is reported on its own entry and does not affect the others.
func (e *Engine) PoolPrices(ctx context.Context, pools []types.Pair) []PoolPrice {
	prices := make([]PoolPrice, 0, len(pools))
	for _, pair := range pools {
		raw, err := e.ledger.EstimateSwap(ctx, pair.In.LedgerAddress(), pair.Out.LedgerAddress(), pair.In.OneUnit())
		if err != nil {
			e.logger.Warn("pool price unavailable", zap.String("pool", pair.String()), zap.Error(err))
			prices = append(prices, PoolPrice{Pair: pair, Err: err})
			continue
		}
		prices = append(prices, PoolPrice{Pair: pair, Price: pair.Out.FromMinor(raw)})
	}
	return prices
}
