package swap

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"afri-swap/pkg/types"
)

var (
	eth  = types.Token{Symbol: "ETH", Decimals: 18, Native: true, Pools: []string{"AFR"}}
	afr  = types.Token{Symbol: "AFR", Address: common.HexToAddress("0xaf"), Decimals: 18, Pools: []string{"ETH", "USDC"}}
	usdc = types.Token{Symbol: "USDC", Address: common.HexToAddress("0x05"), Decimals: 6, Pools: []string{"AFR"}}

	nativePair = types.Pair{In: eth, Out: afr}
	tokenPair  = types.Pair{In: afr, Out: usdc}
)

func idle(pair types.Pair, amount int64) State {
	return Transition(State{}, InputsChanged{Pair: pair, Amount: big.NewInt(amount)})
}

func run(s State, events ...Event) State {
	for _, e := range events {
		s = Transition(s, e)
	}
	return s
}

func TestTransitionNativePath(t *testing.T) {
	s := idle(nativePair, 100)
	require.Equal(t, StatusIdle, s.Status)
	require.True(t, CanSwap(s))
	require.False(t, CanApprove(s))

	// approval is unreachable for the native asset
	require.Equal(t, s, Transition(s, ApprovalRequested{AttemptID: uuid.New()}))

	s = Transition(s, SwapRequested{AttemptID: uuid.New()})
	require.Equal(t, StatusAwaitingSwap, s.Status)
	require.False(t, CanSwap(s))

	s = run(s, SwapSubmitted{TxHash: common.HexToHash("0x1")}, SwapConfirmed{})
	require.Equal(t, StatusSucceeded, s.Status)
	require.Nil(t, s.Amount)
	require.Equal(t, AllowanceNone, s.Allowance)
	require.Equal(t, common.HexToHash("0x1"), s.TxHash)
}

func TestTransitionTokenPath(t *testing.T) {
	s := idle(tokenPair, 5)
	require.False(t, CanSwap(s))
	require.True(t, CanApprove(s))

	// swap is unreachable before approval
	require.Equal(t, s, Transition(s, SwapRequested{AttemptID: uuid.New()}))

	s = Transition(s, ApprovalRequested{AttemptID: uuid.New()})
	require.Equal(t, StatusAwaitingApproval, s.Status)
	require.Equal(t, AllowancePending, s.Allowance)
	require.False(t, CanSwap(s))

	s = run(s, ApprovalSubmitted{TxHash: common.HexToHash("0xa")}, ApprovalConfirmed{})
	require.Equal(t, StatusApproved, s.Status)
	require.Equal(t, AllowanceApproved, s.Allowance)
	require.True(t, CanSwap(s))
	require.False(t, CanApprove(s))

	s = run(s, SwapRequested{AttemptID: uuid.New()}, SwapConfirmed{})
	require.Equal(t, StatusSucceeded, s.Status)
	require.Nil(t, s.Amount)
	require.Equal(t, AllowanceNone, s.Allowance)
}

func TestTransitionApprovalFailureKeepsAmount(t *testing.T) {
	cause := errors.New("user rejected")
	s := run(idle(tokenPair, 5), ApprovalRequested{AttemptID: uuid.New()}, ApprovalFailed{Err: cause})

	require.Equal(t, StatusIdle, s.Status)
	require.Equal(t, AllowanceNone, s.Allowance)
	require.Equal(t, int64(5), s.Amount.Int64())
	require.Equal(t, cause, s.Err)
	require.False(t, CanSwap(s))
	require.True(t, CanApprove(s))
}

func TestTransitionSwapFailureClearsEverything(t *testing.T) {
	cause := errors.New("reverted")
	s := run(idle(tokenPair, 5),
		ApprovalRequested{AttemptID: uuid.New()},
		ApprovalConfirmed{},
		SwapRequested{AttemptID: uuid.New()},
		SwapFailed{Err: cause},
	)

	require.Equal(t, StatusFailed, s.Status)
	require.Nil(t, s.Amount)
	require.Equal(t, AllowanceNone, s.Allowance)
	require.Equal(t, cause, s.Err)
	require.False(t, CanSwap(s))
	require.False(t, CanApprove(s))

	s = Transition(s, Reset{})
	require.Equal(t, StatusIdle, s.Status)
	require.Nil(t, s.Err)
	require.Equal(t, tokenPair, s.Pair)
}

func TestTransitionInputsChanged(t *testing.T) {
	approved := run(idle(tokenPair, 5), ApprovalRequested{AttemptID: uuid.New()}, ApprovalConfirmed{})

	// same inputs keep the approval
	same := Transition(approved, InputsChanged{Pair: tokenPair, Amount: big.NewInt(5)})
	require.Equal(t, StatusApproved, same.Status)
	require.Equal(t, AllowanceApproved, same.Allowance)

	// a new amount resets the allowance
	changed := Transition(approved, InputsChanged{Pair: tokenPair, Amount: big.NewInt(6)})
	require.Equal(t, StatusIdle, changed.Status)
	require.Equal(t, AllowanceNone, changed.Allowance)
	require.Equal(t, int64(6), changed.Amount.Int64())

	// a new input token resets it too
	flipped := Transition(approved, InputsChanged{Pair: tokenPair.Reverse(), Amount: big.NewInt(5)})
	require.Equal(t, AllowanceNone, flipped.Allowance)

	// ignored while a transaction is pending
	pending := run(idle(tokenPair, 5), ApprovalRequested{AttemptID: uuid.New()})
	require.Equal(t, pending, Transition(pending, InputsChanged{Pair: tokenPair, Amount: big.NewInt(9)}))

	// a finished attempt returns to Idle on the next input
	done := run(idle(nativePair, 1), SwapRequested{AttemptID: uuid.New()}, SwapConfirmed{})
	next := Transition(done, InputsChanged{Pair: nativePair, Amount: nil})
	require.Equal(t, StatusIdle, next.Status)
	require.False(t, CanSwap(next))
}

func TestTransitionGuards(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		canSwap    bool
		canApprove bool
	}{
		{"zero amount native", idle(nativePair, 0), false, false},
		{"no amount token", Transition(State{}, InputsChanged{Pair: tokenPair}), false, false},
		{"native with amount", idle(nativePair, 1), true, false},
		{"token not approved", idle(tokenPair, 1), false, true},
		{"awaiting swap", run(idle(nativePair, 1), SwapRequested{}), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.canSwap, CanSwap(tt.state))
			require.Equal(t, tt.canApprove, CanApprove(tt.state))
		})
	}
}

func TestTransitionIgnoresOutOfOrderEvents(t *testing.T) {
	s := idle(tokenPair, 5)
	for _, e := range []Event{ApprovalSubmitted{}, ApprovalConfirmed{}, ApprovalFailed{}, SwapSubmitted{}, SwapConfirmed{}, SwapFailed{}} {
		require.Equal(t, s, Transition(s, e))
	}

	pending := run(s, ApprovalRequested{AttemptID: uuid.New()})
	require.Equal(t, pending, Transition(pending, Reset{}))
}
