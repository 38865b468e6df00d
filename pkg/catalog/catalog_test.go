package catalog

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"afri-swap/pkg/types"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]types.Token{
		{Symbol: "eth", Decimals: 18, Native: true, Pools: []string{"afr", "usdc"}},
		{Symbol: "AFR", Address: common.HexToAddress("0x01"), Decimals: 18, Pools: []string{"ETH", "USDC"}},
		{Symbol: "USDC", Address: common.HexToAddress("0x02"), Decimals: 6, Pools: []string{"ETH", "AFR"}},
		{Symbol: "LONE", Address: common.HexToAddress("0x03"), Decimals: 18},
	})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		tokens []types.Token
	}{
		{"empty symbol", []types.Token{{Symbol: " "}}},
		{"duplicate symbol", []types.Token{{Symbol: "AFR"}, {Symbol: "afr"}}},
		{"decimals out of range", []types.Token{{Symbol: "BIG", Decimals: 40}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tokens)
			require.Error(t, err)
		})
	}
}

func TestFindBySymbol(t *testing.T) {
	c := testCatalog(t)

	token, ok := c.FindBySymbol("usdc")
	require.True(t, ok)
	require.Equal(t, "USDC", token.Symbol)
	require.Equal(t, uint8(6), token.Decimals)

	_, ok = c.FindBySymbol("DOGE")
	require.False(t, ok)

	require.Equal(t, []string{"ETH", "AFR", "USDC", "LONE"}, symbols(c.List()))
}

func TestFindByAddress(t *testing.T) {
	c := testCatalog(t)

	token, ok := c.FindByAddress(common.HexToAddress("0x02"))
	require.True(t, ok)
	require.Equal(t, "USDC", token.Symbol)

	token, ok = c.FindByAddress(types.NativeAssetAddress)
	require.True(t, ok)
	require.Equal(t, "ETH", token.Symbol)
}

func TestPairableWith(t *testing.T) {
	c := testCatalog(t)

	require.Equal(t, []string{"AFR", "USDC"}, c.PairableWith("eth"))
	require.Empty(t, c.PairableWith("LONE"))
	require.Empty(t, c.PairableWith("DOGE"))
}

func TestPair(t *testing.T) {
	c := testCatalog(t)

	pair, err := c.Pair("ETH", "AFR")
	require.NoError(t, err)
	require.False(t, pair.NeedsApproval())
	require.Equal(t, "ETH/AFR", pair.String())

	_, err = c.Pair("LONE", "AFR")
	require.True(t, errors.Is(err, types.ErrNoLiquidityPath))

	_, err = c.Pair("DOGE", "AFR")
	require.True(t, errors.Is(err, types.ErrUnknownToken))
}

func TestSelection(t *testing.T) {
	c := testCatalog(t)

	require.Equal(t, []string{"AFR", "USDC", "LONE"}, symbols(c.FromChoices("ETH")))
	require.Equal(t, []string{"ETH", "AFR"}, symbols(c.ToChoices("USDC")))
	require.Empty(t, c.ToChoices("LONE"))

	// current output still pairable
	require.Equal(t, "USDC", c.SelectFrom("AFR", "usdc"))
	// current output not pairable, first choice wins
	require.Equal(t, "ETH", c.SelectFrom("USDC", "USDC"))
	// no pools at all
	require.Equal(t, "", c.SelectFrom("LONE", "ETH"))
}

func TestPools(t *testing.T) {
	c := testCatalog(t)

	pools := c.Pools()
	names := make([]string, 0, len(pools))
	for _, p := range pools {
		names = append(names, p.String())
	}
	require.Equal(t, []string{"ETH/AFR", "ETH/USDC", "AFR/USDC"}, names)
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.List())

	eth, ok := c.FindBySymbol("ETH")
	require.True(t, ok)
	require.True(t, eth.Native)
}

func symbols(tokens []types.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Symbol)
	}
	return out
}
