package catalog

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"afri-swap/pkg/types"
)

// maxDecimals bounds token precision; larger values make minor-unit math meaningless
const maxDecimals = 36

// Catalog is the static token table loaded once at start
type Catalog struct {
	tokens []types.Token
	index  map[string]int
}

// New builds a catalog, preserving the given order
func New(tokens []types.Token) (*Catalog, error) {
	c := &Catalog{
		tokens: make([]types.Token, 0, len(tokens)),
		index:  make(map[string]int, len(tokens)),
	}

	for _, token := range tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("token symbol is required")
		}
		if _, exists := c.index[symbol]; exists {
			return nil, fmt.Errorf("duplicate token symbol: %s", symbol)
		}
		if token.Decimals > maxDecimals {
			return nil, fmt.Errorf("token %s: decimals %d out of range", symbol, token.Decimals)
		}

		pools := make([]string, 0, len(token.Pools))
		for _, p := range token.Pools {
			pools = append(pools, strings.ToUpper(strings.TrimSpace(p)))
		}

		token.Symbol = symbol
		token.Pools = pools
		c.index[symbol] = len(c.tokens)
		c.tokens = append(c.tokens, token)
	}

	return c, nil
}

// Default returns the built-in token table. Contract addresses are left
// unset and are expected to come from configuration.
func Default() *Catalog {
	c, _ := New([]types.Token{
		{Symbol: "ETH", Decimals: 18, Native: true, Pools: []string{"AFR", "USDC"}},
		{Symbol: "AFR", Decimals: 18, Pools: []string{"ETH", "USDC", "AFX"}},
		{Symbol: "AFX", Decimals: 18, Pools: []string{"AFR"}},
		{Symbol: "USDC", Decimals: 18, Pools: []string{"ETH", "AFR"}},
	})
	return c
}

// List returns every token in catalog order
func (c *Catalog) List() []types.Token {
	out := make([]types.Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// FindBySymbol looks a token up case-insensitively
func (c *Catalog) FindBySymbol(symbol string) (types.Token, bool) {
	i, ok := c.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return types.Token{}, false
	}
	return c.tokens[i], true
}

// FindByAddress looks a token up by contract address
func (c *Catalog) FindByAddress(address common.Address) (types.Token, bool) {
	for _, t := range c.tokens {
		if t.LedgerAddress() == address {
			return t, true
		}
	}
	return types.Token{}, false
}

// PairableWith returns the symbols the token can be swapped against
func (c *Catalog) PairableWith(symbol string) []string {
	token, ok := c.FindBySymbol(symbol)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(token.Pools))
	for _, s := range token.Pools {
		if _, known := c.index[s]; known {
			out = append(out, s)
		}
	}
	return out
}

// Pair resolves an ordered pair and checks pool membership
func (c *Catalog) Pair(in, out string) (types.Pair, error) {
	tokenIn, ok := c.FindBySymbol(in)
	if !ok {
		return types.Pair{}, fmt.Errorf("%w: %s", types.ErrUnknownToken, in)
	}
	tokenOut, ok := c.FindBySymbol(out)
	if !ok {
		return types.Pair{}, fmt.Errorf("%w: %s", types.ErrUnknownToken, out)
	}

	pair := types.Pair{In: tokenIn, Out: tokenOut}
	if !pair.Valid() {
		return types.Pair{}, fmt.Errorf("%w: %s", types.ErrNoLiquidityPath, pair)
	}
	return pair, nil
}
