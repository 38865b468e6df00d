// Package session holds the user's current swap selection and is the single
// place where input changes are pushed to the quote engine and the approve
// and swap state machine.
package session

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"afri-swap/pkg/catalog"
	"afri-swap/pkg/quote"
	"afri-swap/pkg/swap"
	"afri-swap/pkg/types"
)

// Selection is what the user picked
type Selection struct {
	From   string
	To     string
	Amount string
}

// Session ties the catalog, the quote engine and the swap machine together
type Session struct {
	catalog *catalog.Catalog
	quotes  *quote.Engine
	machine *swap.Machine
	logger  *zap.Logger

	mu  sync.Mutex
	sel Selection
}

// New creates an empty session
func New(cat *catalog.Catalog, quotes *quote.Engine, machine *swap.Machine, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		catalog: cat,
		quotes:  quotes,
		machine: machine,
		logger:  logger.Named("session"),
	}
}

// Selection returns the current selection
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// SelectFrom changes the input token. The output token is kept when it is
// still pairable, otherwise the first pairable token is picked.
func (s *Session) SelectFrom(ctx context.Context, symbol string) (quote.State, error) {
	token, ok := s.catalog.FindBySymbol(symbol)
	if !ok {
		return s.quotes.Current(), fmt.Errorf("%w: %s", types.ErrUnknownToken, symbol)
	}

	return s.update(ctx, func(sel *Selection) error {
		sel.To = s.catalog.SelectFrom(token.Symbol, sel.To)
		sel.From = token.Symbol
		return nil
	})
}

// SelectTo changes the output token, which must share a pool with the
// input token.
func (s *Session) SelectTo(ctx context.Context, symbol string) (quote.State, error) {
	token, ok := s.catalog.FindBySymbol(symbol)
	if !ok {
		return s.quotes.Current(), fmt.Errorf("%w: %s", types.ErrUnknownToken, symbol)
	}

	return s.update(ctx, func(sel *Selection) error {
		if _, err := s.catalog.Pair(sel.From, token.Symbol); err != nil {
			return err
		}
		sel.To = token.Symbol
		return nil
	})
}

// SetAmount changes the input amount text
func (s *Session) SetAmount(ctx context.Context, amount string) (quote.State, error) {
	return s.update(ctx, func(sel *Selection) error {
		sel.Amount = amount
		return nil
	})
}

// Flip swaps input and output tokens. When the reversed pair has no pool
// the previous input is replaced by the first pairable token.
func (s *Session) Flip(ctx context.Context) (quote.State, error) {
	return s.update(ctx, func(sel *Selection) error {
		if sel.To == "" {
			return fmt.Errorf("%w: no output token selected", types.ErrNoLiquidityPath)
		}
		sel.From, sel.To = sel.To, s.catalog.SelectFrom(sel.To, sel.From)
		return nil
	})
}

// Quote returns the quote for the current selection
func (s *Session) Quote() quote.State {
	return s.quotes.Current()
}

// SwapState returns the state machine snapshot
func (s *Session) SwapState() swap.State {
	return s.machine.State()
}

// CanApprove reports whether an approval is required and possible
func (s *Session) CanApprove() bool {
	return s.machine.CanApprove()
}

// CanSwap reports whether the swap can be submitted
func (s *Session) CanSwap() bool {
	return s.machine.CanSwap()
}

// Approve grants the swap contract an allowance for the current amount.
// Inputs changed while the approval was pending are applied once it is
// done, so an allowance for a stale amount is dropped.
func (s *Session) Approve(ctx context.Context) error {
	err := s.machine.Approve(ctx)

	s.mu.Lock()
	pair, amount, _ := s.inputs(s.sel)
	s.machine.OnInputsChanged(pair, amount)
	s.mu.Unlock()

	return err
}

// Swap submits the swap for the current selection. Once the attempt is
// finished the amount is cleared so the next swap starts from a fresh
// quote. The returned state is the finished attempt.
func (s *Session) Swap(ctx context.Context) (swap.State, error) {
	err := s.machine.Swap(ctx)
	final := s.machine.State()

	if final.Status == swap.StatusSucceeded || final.Status == swap.StatusFailed {
		s.mu.Lock()
		s.sel.Amount = ""
		pair, _ := s.catalog.Pair(s.sel.From, s.sel.To)
		s.mu.Unlock()
		s.quotes.OnInputsChanged(ctx, pair, "")
	}
	return final, err
}

// update applies change to the selection then pushes the new inputs to the
// state machine and the quote engine.
func (s *Session) update(ctx context.Context, change func(*Selection) error) (quote.State, error) {
	s.mu.Lock()
	next := s.sel
	if err := change(&next); err != nil {
		s.mu.Unlock()
		return s.quotes.Current(), err
	}
	s.sel = next

	pair, amount, input := s.inputs(next)
	s.machine.OnInputsChanged(pair, amount)
	s.mu.Unlock()

	s.logger.Debug("inputs changed",
		zap.String("from", next.From),
		zap.String("to", next.To),
		zap.String("amount", next.Amount))

	return s.quotes.OnInputsChanged(ctx, pair, input), nil
}

// inputs resolves the selection. An incomplete pair yields no amount and an
// empty input so no estimate is requested.
func (s *Session) inputs(sel Selection) (types.Pair, *big.Int, string) {
	pair, err := s.catalog.Pair(sel.From, sel.To)
	if err != nil {
		from, _ := s.catalog.FindBySymbol(sel.From)
		return types.Pair{In: from}, nil, ""
	}

	amount, err := quote.ParseAmount(sel.Amount)
	if err != nil {
		return pair, nil, sel.Amount
	}
	return pair, pair.In.ToMinor(amount), sel.Amount
}
