package catalog

import "afri-swap/pkg/types"

// FromChoices lists every token that can be picked as input, excluding the
// currently selected one.
func (c *Catalog) FromChoices(selected string) []types.Token {
	selectedToken, _ := c.FindBySymbol(selected)

	out := make([]types.Token, 0, len(c.tokens))
	for _, t := range c.tokens {
		if t.Symbol != selectedToken.Symbol {
			out = append(out, t)
		}
	}
	return out
}

// ToChoices lists the tokens that share a pool with from
func (c *Catalog) ToChoices(from string) []types.Token {
	symbols := c.PairableWith(from)

	out := make([]types.Token, 0, len(symbols))
	for _, t := range c.tokens {
		for _, s := range symbols {
			if t.Symbol == s {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// SelectFrom returns the output symbol to keep after the input selection
// changed to newFrom: the current one if still pairable, otherwise the first
// pairable token, otherwise "".
func (c *Catalog) SelectFrom(newFrom, currentTo string) string {
	choices := c.ToChoices(newFrom)
	if len(choices) == 0 {
		return ""
	}

	current, _ := c.FindBySymbol(currentTo)
	for _, t := range choices {
		if t.Symbol == current.Symbol {
			return t.Symbol
		}
	}
	return choices[0].Symbol
}

// Pools lists every pool once. A/B and B/A are the same pool; the first
// direction seen in catalog order wins.
func (c *Catalog) Pools() []types.Pair {
	seen := make(map[[2]string]bool)
	pools := make([]types.Pair, 0)

	for _, t := range c.tokens {
		for _, s := range t.Pools {
			other, ok := c.FindBySymbol(s)
			if !ok {
				continue
			}
			if seen[[2]string{t.Symbol, other.Symbol}] || seen[[2]string{other.Symbol, t.Symbol}] {
				continue
			}
			seen[[2]string{t.Symbol, other.Symbol}] = true
			pools = append(pools, types.Pair{In: t, Out: other})
		}
	}
	return pools
}
