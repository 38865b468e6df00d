package catalog

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"afri-swap/config"
	"afri-swap/pkg/types"
)

// FromConfig builds the catalog from the configured token list, falling
// back to the built-in table when none is configured.
func FromConfig(tokens []config.TokenConfig) (*Catalog, error) {
	if len(tokens) == 0 {
		return Default(), nil
	}

	out := make([]types.Token, 0, len(tokens))
	for _, tc := range tokens {
		token := types.Token{
			Symbol:   tc.Symbol,
			Decimals: tc.Decimals,
			Native:   tc.Native,
			Pools:    tc.Pools,
		}
		if tc.Address != "" && !tc.Native {
			if !common.IsHexAddress(tc.Address) {
				return nil, fmt.Errorf("token %s: invalid address %q", tc.Symbol, tc.Address)
			}
			token.Address = common.HexToAddress(tc.Address)
		}
		out = append(out, token)
	}

	return New(out)
}
