package quote

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"afri-swap/pkg/types"
)

// Status of the engine's current estimate
type Status string

const (
	StatusNoEstimate  Status = "no_estimate"
	StatusEstimating  Status = "estimating"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// State is what a consumer displays for the current inputs
type State struct {
	Status Status
	Quote  *Quote
	Err    error
}

// OnInputsChanged recomputes the quote for new inputs. Only the result of
// the latest call is kept; a result that resolves after newer inputs
// arrived is dropped.
func (e *Engine) OnInputsChanged(ctx context.Context, pair types.Pair, input string) State {
	e.mu.Lock()
	e.generation++
	generation := e.generation
	e.current = State{Status: StatusEstimating}
	e.mu.Unlock()

	q, err := e.Estimate(ctx, pair, input)

	next := State{Status: StatusReady, Quote: q}
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		next = State{Status: StatusNoEstimate}
	case err != nil:
		next = State{Status: StatusUnavailable, Err: err}
		e.logger.Warn("estimate failed", zap.String("pair", pair.String()), zap.Error(err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		e.logger.Debug("discarding stale estimate", zap.Uint64("generation", generation))
		return e.current
	}
	e.current = next
	return next
}

// Current returns the state for the latest inputs
func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}
