package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when the node has no data for the request
	// (unknown block, receipt not yet available)
	ErrNotFound = errors.New("not found")

	// ErrReverted is returned when a mined transaction has a failed status
	ErrReverted = errors.New("transaction reverted")

	// ErrNoSigner is returned by write operations on a read-only client
	ErrNoSigner = errors.New("signing key not configured")
)

// TransferFilter narrows a Transfer log query. Nil fields match anything.
type TransferFilter struct {
	From *common.Address
	To   *common.Address
}

// TransferLog is a decoded ERC-20 Transfer event
type TransferLog struct {
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
	From        common.Address
	To          common.Address
	Value       *big.Int
}

// PendingTx is a handle on a submitted transaction
type PendingTx struct {
	Hash common.Hash
}

// Reader groups the read operations the core consumes
type Reader interface {
	CurrentBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	TransferLogs(ctx context.Context, token common.Address, fromBlock, toBlock uint64, filter TransferFilter) ([]TransferLog, error)
	EstimateSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	LatestPrice(ctx context.Context, token common.Address) (*big.Int, error)
}

// Writer groups the write operations the core consumes
type Writer interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (PendingTx, error)
	SubmitSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, value *big.Int) (PendingTx, error)
	AwaitConfirmation(ctx context.Context, tx PendingTx) error
}

// Client is the full ledger surface
type Client interface {
	Reader
	Writer
}
