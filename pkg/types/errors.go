package types

import "errors"

var (
	// ErrInvalidInput is returned for absent, non-numeric or non-positive amounts
	ErrInvalidInput = errors.New("invalid input amount")

	// ErrUnknownToken is returned when a symbol is not in the catalog
	ErrUnknownToken = errors.New("unknown token")

	// ErrNoLiquidityPath is returned when the selected pair has no pool
	ErrNoLiquidityPath = errors.New("no liquidity path for pair")

	// ErrQuoteUnavailable is returned when the ledger estimate call failed
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrTransactionRejected is returned when an approval or swap was rejected
	// by the user, the node or the contract
	ErrTransactionRejected = errors.New("transaction rejected")

	// ErrHistoryUnavailable is returned when any stage of history aggregation failed
	ErrHistoryUnavailable = errors.New("history unavailable")

	// ErrAttemptInFlight is returned when a new attempt is requested while
	// another one awaits approval or swap confirmation
	ErrAttemptInFlight = errors.New("another swap attempt is in flight")

	// ErrSwapNotReady is returned when the requested action is disabled
	ErrSwapNotReady = errors.New("swap action not available")
)
