package quote

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"afri-swap/pkg/types"
)

var (
	tokenA = types.Token{Symbol: "AFR", Address: common.HexToAddress("0xa"), Decimals: 18, Pools: []string{"USDC"}}
	tokenB = types.Token{Symbol: "USDC", Address: common.HexToAddress("0xb"), Decimals: 6, Pools: []string{"AFR"}}
	lone   = types.Token{Symbol: "LONE", Address: common.HexToAddress("0xc"), Decimals: 18}
	pairAB = types.Pair{In: tokenA, Out: tokenB}
)

type estimateFunc func(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)

type mockEstimator struct {
	mu    sync.Mutex
	calls int
	fn    estimateFunc
}

func (m *mockEstimator) EstimateSwap(_ context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(tokenIn, tokenOut, amountIn)
}

func (m *mockEstimator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fixedRates returns forward output in display units of Out, and the reverse
// rate for one unit of Out.
func fixedRates(forward, reverse string, forwardErr, reverseErr error) estimateFunc {
	return func(tokenIn, _ common.Address, _ *big.Int) (*big.Int, error) {
		if tokenIn == tokenA.Address {
			if forwardErr != nil {
				return nil, forwardErr
			}
			return tokenB.ToMinor(decimal.RequireFromString(forward)), nil
		}
		if reverseErr != nil {
			return nil, reverseErr
		}
		return tokenA.ToMinor(decimal.RequireFromString(reverse)), nil
	}
}

func TestEstimate(t *testing.T) {
	ledger := &mockEstimator{fn: fixedRates("100", "0.1", nil, nil)}
	engine := NewEngine(ledger, 0.005, nil)

	q, err := engine.Estimate(context.Background(), pairAB, "10")
	require.NoError(t, err)

	require.Equal(t, "10", q.InputAmount.String())
	require.Equal(t, "10000000000000000000", q.AmountInMinor.String())
	require.Equal(t, "100", q.RawOutput.String())
	require.Equal(t, "2", q.Fee.String())
	require.Equal(t, "98.000000000", q.NetOutput.StringFixed(DisplayPrecision))
	require.True(t, q.NetOutput.Equal(q.RawOutput.Sub(q.Fee)))
	require.Equal(t, "97.51", q.MinimumReceived.String())
	require.True(t, q.ReverseUnitRate.Valid)
	require.Equal(t, "0.1", q.ReverseUnitRate.Decimal.String())
	require.Equal(t, 2, ledger.callCount())
}

func TestEstimateFeeProperty(t *testing.T) {
	for _, raw := range []string{"1", "0.5", "123.456", "999999.999999", "0.000001"} {
		t.Run(raw, func(t *testing.T) {
			ledger := &mockEstimator{fn: fixedRates(raw, "1", nil, nil)}
			engine := NewEngine(ledger, 0, nil)

			q, err := engine.Estimate(context.Background(), pairAB, "1")
			require.NoError(t, err)
			require.True(t, q.NetOutput.Equal(q.RawOutput.Mul(decimal.RequireFromString("0.98"))))
			require.True(t, q.NetOutput.LessThanOrEqual(q.RawOutput))
		})
	}
}

func TestFeeRate(t *testing.T) {
	require.Equal(t, "0.02", FeeRate().String())
	require.True(t, FeeRate().Equal(decimal.New(2, -2)))

	ledger := &mockEstimator{fn: fixedRates("50", "1", nil, nil)}
	q, err := NewEngine(ledger, 0, nil).Estimate(context.Background(), pairAB, "1")
	require.NoError(t, err)
	require.Equal(t, "1", q.Fee.String())
}

func TestEstimateInvalidInput(t *testing.T) {
	for _, input := range []string{"", "  ", "abc", "0", "-1", "1e-30"} {
		t.Run(input, func(t *testing.T) {
			ledger := &mockEstimator{fn: fixedRates("1", "1", nil, nil)}
			engine := NewEngine(ledger, 0, nil)

			q, err := engine.Estimate(context.Background(), pairAB, input)
			require.Nil(t, q)
			require.True(t, errors.Is(err, types.ErrInvalidInput))
			require.Zero(t, ledger.callCount())
		})
	}
}

func TestEstimateNoLiquidityPath(t *testing.T) {
	ledger := &mockEstimator{fn: fixedRates("1", "1", nil, nil)}
	engine := NewEngine(ledger, 0, nil)

	_, err := engine.Estimate(context.Background(), types.Pair{In: lone, Out: tokenA}, "1")
	require.True(t, errors.Is(err, types.ErrNoLiquidityPath))
	require.Zero(t, ledger.callCount())
}

func TestEstimateForwardFailure(t *testing.T) {
	rpcErr := errors.New("connection refused")
	ledger := &mockEstimator{fn: fixedRates("", "1", rpcErr, nil)}
	engine := NewEngine(ledger, 0, nil)

	q, err := engine.Estimate(context.Background(), pairAB, "1")
	require.Nil(t, q)
	require.True(t, errors.Is(err, types.ErrQuoteUnavailable))
	require.True(t, errors.Is(err, rpcErr))
}

func TestEstimateReverseFailureKeepsForward(t *testing.T) {
	ledger := &mockEstimator{fn: fixedRates("50", "", nil, errors.New("reverted"))}
	engine := NewEngine(ledger, 0, nil)

	q, err := engine.Estimate(context.Background(), pairAB, "1")
	require.NoError(t, err)
	require.Equal(t, "49", q.NetOutput.String())
	require.False(t, q.ReverseUnitRate.Valid)
}

func TestOnInputsChanged(t *testing.T) {
	ledger := &mockEstimator{fn: fixedRates("100", "0.1", nil, nil)}
	engine := NewEngine(ledger, 0, nil)
	ctx := context.Background()

	require.Equal(t, StatusNoEstimate, engine.Current().Status)

	state := engine.OnInputsChanged(ctx, pairAB, "10")
	require.Equal(t, StatusReady, state.Status)
	require.Equal(t, state, engine.Current())

	state = engine.OnInputsChanged(ctx, pairAB, "")
	require.Equal(t, StatusNoEstimate, state.Status)
	require.Nil(t, state.Quote)
	require.NoError(t, state.Err)

	failing := NewEngine(&mockEstimator{fn: fixedRates("", "", errors.New("down"), nil)}, 0, nil)
	state = failing.OnInputsChanged(ctx, pairAB, "1")
	require.Equal(t, StatusUnavailable, state.Status)
	require.True(t, errors.Is(state.Err, types.ErrQuoteUnavailable))
}

func TestOnInputsChangedLastInputWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slowAmount := tokenA.ToMinor(decimal.NewFromInt(1))

	ledger := &mockEstimator{fn: func(tokenIn, _ common.Address, amountIn *big.Int) (*big.Int, error) {
		if tokenIn == tokenA.Address && amountIn.Cmp(slowAmount) == 0 {
			close(started)
			<-release
			return tokenB.ToMinor(decimal.NewFromInt(111)), nil
		}
		return tokenB.ToMinor(decimal.NewFromInt(222)), nil
	}}
	engine := NewEngine(ledger, 0, nil)
	ctx := context.Background()

	done := make(chan State)
	go func() {
		done <- engine.OnInputsChanged(ctx, pairAB, "1")
	}()
	<-started

	latest := engine.OnInputsChanged(ctx, pairAB, "2")
	require.Equal(t, StatusReady, latest.Status)

	close(release)
	stale := <-done

	require.Equal(t, "2", stale.Quote.InputAmount.String())
	require.Equal(t, "2", engine.Current().Quote.InputAmount.String())
	require.Equal(t, "222", engine.Current().Quote.RawOutput.String())
}

func TestPoolPrices(t *testing.T) {
	ledger := &mockEstimator{fn: func(tokenIn, _ common.Address, amountIn *big.Int) (*big.Int, error) {
		if tokenIn == tokenB.Address {
			return nil, errors.New("no pool")
		}
		require.Equal(t, tokenA.OneUnit().String(), amountIn.String())
		return tokenB.ToMinor(decimal.RequireFromString("2150.456")), nil
	}}
	engine := NewEngine(ledger, 0, nil)

	prices := engine.PoolPrices(context.Background(), []types.Pair{pairAB, pairAB.Reverse()})
	require.Len(t, prices, 2)
	require.Equal(t, "2150.46", prices[0].String())
	require.NoError(t, prices[0].Err)
	require.Equal(t, "Error", prices[1].String())
}
