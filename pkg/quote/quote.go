package quote

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"afri-swap/pkg/types"
)

// DisplayPrecision is the number of decimals kept on net output amounts
const DisplayPrecision = 9

// feeBasis is the protocol fee in thousandths (20/1000)
const feeBasis = 20

// FeeRate is the protocol fee applied to every estimate
func FeeRate() decimal.Decimal {
	return decimal.New(feeBasis, -3)
}

// Estimator is the ledger operation the engine depends on
type Estimator interface {
	EstimateSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
}

// Quote is an off-chain estimate for a pair and input amount
type Quote struct {
	Pair            types.Pair
	InputAmount     decimal.Decimal
	AmountInMinor   *big.Int
	RawOutput       decimal.Decimal
	Fee             decimal.Decimal
	NetOutput       decimal.Decimal
	MinimumReceived decimal.Decimal
	ReverseUnitRate decimal.NullDecimal // 1 Out = ReverseUnitRate In
}

// Engine computes quotes and keeps the latest one for the current inputs
type Engine struct {
	ledger   Estimator
	slippage decimal.Decimal
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	current    State
}

// NewEngine creates a quote engine. slippage is a fraction (0.005 = 0.5%).
func NewEngine(ledger Estimator, slippage float64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger:   ledger,
		slippage: decimal.NewFromFloat(slippage),
		logger:   logger.Named("quote"),
		current:  State{Status: StatusNoEstimate},
	}
}

// ParseAmount validates user input. Absent, non-numeric or non-positive
// amounts are rejected with ErrInvalidInput.
func ParseAmount(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Zero, types.ErrInvalidInput
	}
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", types.ErrInvalidInput, input)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be greater than 0", types.ErrInvalidInput, input)
	}
	return amount, nil
}

// Estimate computes a quote for the given pair and input text. Invalid
// input never reaches the ledger.
func (e *Engine) Estimate(ctx context.Context, pair types.Pair, input string) (*Quote, error) {
	amount, err := ParseAmount(input)
	if err != nil {
		return nil, err
	}
	if !pair.Valid() {
		return nil, fmt.Errorf("%w: %s", types.ErrNoLiquidityPath, pair)
	}

	amountIn := pair.In.ToMinor(amount)
	if amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s is below the smallest %s unit", types.ErrInvalidInput, amount, pair.In.Symbol)
	}

	raw, err := e.ledger.EstimateSwap(ctx, pair.In.LedgerAddress(), pair.Out.LedgerAddress(), amountIn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrQuoteUnavailable, pair, err)
	}

	q := e.build(pair, amount, amountIn, pair.Out.FromMinor(raw))

	// The reverse rate is informational; its failure leaves the forward quote intact
	reverse, err := e.ledger.EstimateSwap(ctx, pair.Out.LedgerAddress(), pair.In.LedgerAddress(), pair.Out.OneUnit())
	if err != nil {
		e.logger.Warn("reverse rate unavailable", zap.String("pair", pair.Reverse().String()), zap.Error(err))
	} else {
		q.ReverseUnitRate = decimal.NewNullDecimal(pair.In.FromMinor(reverse))
	}

	return q, nil
}

func (e *Engine) build(pair types.Pair, amount decimal.Decimal, amountIn *big.Int, raw decimal.Decimal) *Quote {
	fee := raw.Mul(FeeRate())
	net := raw.Sub(fee).Round(DisplayPrecision)
	minimum := net.Mul(decimal.NewFromInt(1).Sub(e.slippage)).Round(DisplayPrecision)

	return &Quote{
		Pair:            pair,
		InputAmount:     amount,
		AmountInMinor:   amountIn,
		RawOutput:       raw,
		Fee:             fee,
		NetOutput:       net,
		MinimumReceived: minimum,
	}
}
