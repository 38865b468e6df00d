package swap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"afri-swap/pkg/types"
)

// Status of the current swap attempt
type Status string

const (
	StatusIdle             Status = "idle"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusAwaitingSwap     Status = "awaiting_swap"
	StatusSucceeded        Status = "succeeded"
	StatusFailed           Status = "failed"
)

// AllowanceStatus tracks the allowance granted to the swap contract
type AllowanceStatus string

const (
	AllowanceNone     AllowanceStatus = "none"
	AllowancePending  AllowanceStatus = "pending"
	AllowanceApproved AllowanceStatus = "approved"
)

// State is the whole state owned by the machine
type State struct {
	AttemptID uuid.UUID
	Status    Status
	Pair      types.Pair
	Amount    *big.Int // input amount in minor units, nil when cleared
	Allowance AllowanceStatus
	TxHash    common.Hash
	Err       error
}

// Active reports whether a transaction is awaiting confirmation
func (s State) Active() bool {
	return s.Status == StatusAwaitingApproval || s.Status == StatusAwaitingSwap
}

func (s State) hasAmount() bool {
	return s.Amount != nil && s.Amount.Sign() > 0
}

// CanApprove is the guard for starting an approval
func CanApprove(s State) bool {
	return s.Status == StatusIdle && s.hasAmount() && s.Pair.NeedsApproval() && s.Allowance != AllowanceApproved
}

// CanSwap is the guard for starting a swap
func CanSwap(s State) bool {
	if !s.hasAmount() || s.Active() {
		return false
	}
	return !s.Pair.NeedsApproval() || s.Allowance == AllowanceApproved
}

// Event drives a transition
type Event interface {
	event()
}

type (
	// InputsChanged carries a new pair or amount from the user
	InputsChanged struct {
		Pair   types.Pair
		Amount *big.Int
	}
	// ApprovalRequested starts an approval for the current amount
	ApprovalRequested struct{ AttemptID uuid.UUID }
	// ApprovalSubmitted records the approval transaction hash
	ApprovalSubmitted struct{ TxHash common.Hash }
	// ApprovalConfirmed is emitted once the approval receipt succeeded
	ApprovalConfirmed struct{}
	// ApprovalFailed covers submission and confirmation failures
	ApprovalFailed struct{ Err error }
	// SwapRequested starts the swap transaction
	SwapRequested struct{ AttemptID uuid.UUID }
	// SwapSubmitted records the swap transaction hash
	SwapSubmitted struct{ TxHash common.Hash }
	// SwapConfirmed is emitted once the swap receipt succeeded
	SwapConfirmed struct{}
	// SwapFailed covers submission and confirmation failures
	SwapFailed struct{ Err error }
	// Reset returns a finished attempt to Idle
	Reset struct{}
)

func (InputsChanged) event()     {}
func (ApprovalRequested) event() {}
func (ApprovalSubmitted) event() {}
func (ApprovalConfirmed) event() {}
func (ApprovalFailed) event()    {}
func (SwapRequested) event()     {}
func (SwapSubmitted) event()     {}
func (SwapConfirmed) event()     {}
func (SwapFailed) event()        {}
func (Reset) event()             {}

// Transition is the pure state transition function. Events that are not
// valid in the current state leave it unchanged.
func Transition(s State, e Event) State {
	switch ev := e.(type) {
	case InputsChanged:
		if s.Active() {
			return s
		}
		changed := s.Pair.In.Symbol != ev.Pair.In.Symbol ||
			s.Pair.Out.Symbol != ev.Pair.Out.Symbol ||
			!sameAmount(s.Amount, ev.Amount)
		if !changed && s.Status != StatusSucceeded && s.Status != StatusFailed {
			return s
		}
		return State{
			Status:    StatusIdle,
			Pair:      ev.Pair,
			Amount:    copyAmount(ev.Amount),
			Allowance: AllowanceNone,
		}

	case ApprovalRequested:
		if !CanApprove(s) {
			return s
		}
		s.AttemptID = ev.AttemptID
		s.Status = StatusAwaitingApproval
		s.Allowance = AllowancePending
		s.TxHash = common.Hash{}
		s.Err = nil
		return s

	case ApprovalSubmitted:
		if s.Status != StatusAwaitingApproval {
			return s
		}
		s.TxHash = ev.TxHash
		return s

	case ApprovalConfirmed:
		if s.Status != StatusAwaitingApproval {
			return s
		}
		s.Status = StatusApproved
		s.Allowance = AllowanceApproved
		return s

	case ApprovalFailed:
		if s.Status != StatusAwaitingApproval {
			return s
		}
		// The amount survives a failed approval so the user can retry
		s.Status = StatusIdle
		s.Allowance = AllowanceNone
		s.Err = ev.Err
		return s

	case SwapRequested:
		if !CanSwap(s) {
			return s
		}
		s.AttemptID = ev.AttemptID
		s.Status = StatusAwaitingSwap
		s.TxHash = common.Hash{}
		s.Err = nil
		return s

	case SwapSubmitted:
		if s.Status != StatusAwaitingSwap {
			return s
		}
		s.TxHash = ev.TxHash
		return s

	case SwapConfirmed:
		if s.Status != StatusAwaitingSwap {
			return s
		}
		return finished(s, StatusSucceeded, nil)

	case SwapFailed:
		if s.Status != StatusAwaitingSwap {
			return s
		}
		return finished(s, StatusFailed, ev.Err)

	case Reset:
		if s.Active() {
			return s
		}
		return State{Status: StatusIdle, Pair: s.Pair, Allowance: AllowanceNone}
	}

	return s
}

// finished clears amount and allowance whatever the outcome
func finished(s State, status Status, err error) State {
	return State{
		AttemptID: s.AttemptID,
		Status:    status,
		Pair:      s.Pair,
		Allowance: AllowanceNone,
		TxHash:    s.TxHash,
		Err:       err,
	}
}

func sameAmount(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func copyAmount(a *big.Int) *big.Int {
	if a == nil {
		return nil
	}
	return new(big.Int).Set(a)
}
