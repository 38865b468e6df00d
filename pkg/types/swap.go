package types

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeAssetAddress is the sentinel address used for the chain's native asset.
var NativeAssetAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// Token describes a cataloged asset
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
	Native   bool
	Pools    []string // symbols this token can be swapped against
}

// HasAddress reports whether the token has a known contract address.
func (t Token) HasAddress() bool {
	return t.Native || t.Address != (common.Address{})
}

// LedgerAddress is the address handed to the swap contract for this token.
func (t Token) LedgerAddress() common.Address {
	if t.Native {
		return NativeAssetAddress
	}
	return t.Address
}

// CanPairWith returns true if symbol is part of one of the token's pools
func (t Token) CanPairWith(symbol string) bool {
	for _, s := range t.Pools {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// ToMinor converts a display amount to the token's minor units, truncating
// any precision the token cannot represent.
func (t Token) ToMinor(amount decimal.Decimal) *big.Int {
	return amount.Shift(int32(t.Decimals)).Truncate(0).BigInt()
}

// FromMinor converts minor units back to a display amount.
func (t Token) FromMinor(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(t.Decimals))
}

// OneUnit returns 1 display unit expressed in minor units.
func (t Token) OneUnit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
}

// Pair is an ordered (In, Out) token pair
type Pair struct {
	In  Token
	Out Token
}

// Valid returns true if Out belongs to one of In's pools
func (p Pair) Valid() bool {
	return len(p.In.Pools) > 0 && p.In.CanPairWith(p.Out.Symbol)
}

// Reverse flips the swap direction
func (p Pair) Reverse() Pair {
	return Pair{In: p.Out, Out: p.In}
}

// NeedsApproval is true whenever the input token is not the native asset
func (p Pair) NeedsApproval() bool {
	return !p.In.Native
}

func (p Pair) String() string {
	return p.In.Symbol + "/" + p.Out.Symbol
}
