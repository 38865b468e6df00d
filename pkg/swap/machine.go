package swap

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"afri-swap/pkg/ledger"
	"afri-swap/pkg/types"
)

// Submitter is the ledger write surface used by the machine
type Submitter interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (ledger.PendingTx, error)
	SubmitSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, value *big.Int) (ledger.PendingTx, error)
	AwaitConfirmation(ctx context.Context, tx ledger.PendingTx) error
}

// Machine sequences approve and swap transactions. It is the only writer of
// its State.
type Machine struct {
	ledger  Submitter
	spender common.Address
	logger  *zap.Logger

	mu    sync.Mutex
	state State
}

// NewMachine creates a machine that approves spender (the swap contract)
func NewMachine(submitter Submitter, spender common.Address, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		ledger:  submitter,
		spender: spender,
		logger:  logger.Named("swap"),
		state:   State{Status: StatusIdle, Allowance: AllowanceNone},
	}
}

// State returns a snapshot of the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Amount = copyAmount(s.Amount)
	return s
}

// CanApprove reports whether Approve would start a transaction
func (m *Machine) CanApprove() bool {
	return CanApprove(m.State())
}

// CanSwap reports whether Swap would start a transaction
func (m *Machine) CanSwap() bool {
	return CanSwap(m.State())
}

// OnInputsChanged feeds a new pair and amount (in minor units, nil when
// there is none). Ignored while a transaction is awaiting confirmation.
func (m *Machine) OnInputsChanged(pair types.Pair, amount *big.Int) State {
	return m.apply(InputsChanged{Pair: pair, Amount: amount})
}

// Reset returns a finished attempt to Idle
func (m *Machine) Reset() State {
	return m.apply(Reset{})
}

// Approve submits the allowance transaction for the current amount and
// waits for its confirmation.
func (m *Machine) Approve(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Active() {
		m.mu.Unlock()
		return types.ErrAttemptInFlight
	}
	if !CanApprove(m.state) {
		m.mu.Unlock()
		return fmt.Errorf("%w: approval not needed or no amount", types.ErrSwapNotReady)
	}
	attemptID := uuid.New()
	m.state = Transition(m.state, ApprovalRequested{AttemptID: attemptID})
	token := m.state.Pair.In
	amount := copyAmount(m.state.Amount)
	m.mu.Unlock()

	log := m.logger.With(
		zap.String("attempt_id", attemptID.String()),
		zap.String("token", token.Symbol),
		zap.String("amount", amount.String()))
	log.Info("submitting approval", zap.String("spender", m.spender.Hex()))

	tx, err := m.ledger.Approve(ctx, token.Address, m.spender, amount)
	if err != nil {
		log.Warn("approval submission failed", zap.Error(err))
		m.apply(ApprovalFailed{Err: err})
		return fmt.Errorf("%w: approve %s: %w", types.ErrTransactionRejected, token.Symbol, err)
	}
	m.apply(ApprovalSubmitted{TxHash: tx.Hash})

	if err := m.ledger.AwaitConfirmation(ctx, tx); err != nil {
		log.Warn("approval not confirmed", zap.String("tx_hash", tx.Hash.Hex()), zap.Error(err))
		m.apply(ApprovalFailed{Err: err})
		return fmt.Errorf("%w: approve %s: %w", types.ErrTransactionRejected, token.Symbol, err)
	}

	m.apply(ApprovalConfirmed{})
	log.Info("approval confirmed", zap.String("tx_hash", tx.Hash.Hex()))
	return nil
}

// Swap submits the swap transaction and waits for its confirmation. The
// amount is attached as value only for the native asset.
func (m *Machine) Swap(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Active() {
		m.mu.Unlock()
		return types.ErrAttemptInFlight
	}
	if !CanSwap(m.state) {
		m.mu.Unlock()
		return fmt.Errorf("%w: approval or amount missing", types.ErrSwapNotReady)
	}
	attemptID := m.state.AttemptID
	if attemptID == uuid.Nil {
		attemptID = uuid.New()
	}
	m.state = Transition(m.state, SwapRequested{AttemptID: attemptID})
	pair := m.state.Pair
	amount := copyAmount(m.state.Amount)
	m.mu.Unlock()

	var value *big.Int
	if pair.In.Native {
		value = amount
	}

	log := m.logger.With(
		zap.String("attempt_id", attemptID.String()),
		zap.String("pair", pair.String()),
		zap.String("amount", amount.String()))
	log.Info("submitting swap")

	tx, err := m.ledger.SubmitSwap(ctx, pair.In.LedgerAddress(), pair.Out.LedgerAddress(), amount, value)
	if err != nil {
		log.Warn("swap submission failed", zap.Error(err))
		m.apply(SwapFailed{Err: err})
		return fmt.Errorf("%w: swap %s: %w", types.ErrTransactionRejected, pair, err)
	}
	m.apply(SwapSubmitted{TxHash: tx.Hash})

	if err := m.ledger.AwaitConfirmation(ctx, tx); err != nil {
		log.Warn("swap not confirmed", zap.String("tx_hash", tx.Hash.Hex()), zap.Error(err))
		m.apply(SwapFailed{Err: err})
		return fmt.Errorf("%w: swap %s: %w", types.ErrTransactionRejected, pair, err)
	}

	m.apply(SwapConfirmed{})
	log.Info("swap confirmed", zap.String("tx_hash", tx.Hash.Hex()))
	return nil
}

func (m *Machine) apply(e Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Transition(m.state, e)
	s := m.state
	s.Amount = copyAmount(s.Amount)
	return s
}
