package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Direction of a transfer relative to the connected account
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// TransferEvent is one leg of a token transfer touching the account
type TransferEvent struct {
	Hash         common.Hash     `json:"hash"`
	BlockNumber  uint64          `json:"block_number"`
	Direction    Direction       `json:"direction"`
	Counterparty common.Address  `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	TokenSymbol  string          `json:"token"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
}

// TransferKey identifies a single leg of a transaction
type TransferKey struct {
	Hash        common.Hash
	Direction   Direction
	TokenSymbol string
}

// Key returns the uniqueness key of the event
func (e TransferEvent) Key() TransferKey {
	return TransferKey{Hash: e.Hash, Direction: e.Direction, TokenSymbol: e.TokenSymbol}
}
