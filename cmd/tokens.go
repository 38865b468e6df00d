package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"afri-swap/pkg/quote"
	"afri-swap/pkg/types"
)

var (
	filterSymbol string
	showPools    bool
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List all supported tokens",
	Long: `List the tokens of the catalog and the tokens each one can be swapped to.

With --pools, the current price of every pool is fetched from the swap contract.

Examples:
  afri-swap list-tokens
  afri-swap list-tokens --symbol AFR
  afri-swap list-tokens --pools`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensCmd.Flags().BoolVar(&showPools, "pools", false, "Show pool prices")
}

type tokenView struct {
	Symbol   string   `json:"symbol"`
	Address  string   `json:"address,omitempty"`
	Decimals uint8    `json:"decimals"`
	Native   bool     `json:"native"`
	Pools    []string `json:"pools"`
}

type poolView struct {
	Pair  string `json:"pair"`
	Price string `json:"price"`
}

func runListTokens(cmd *cobra.Command, args []string) {
	rt, err := setup(cmd, showPools)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	var filtered []types.Token
	for _, token := range rt.catalog.List() {
		if filterSymbol == "" || strings.Contains(token.Symbol, strings.ToUpper(filterSymbol)) {
			filtered = append(filtered, token)
		}
	}

	var prices []quote.PoolPrice
	if showPools {
		stop := rt.startSpinner("Fetching pool prices...")
		engine := quote.NewEngine(rt.ledger, rt.cfg.Slippage, rt.logger)
		prices = engine.PoolPrices(context.Background(), rt.catalog.Pools())
		stop()
	}

	// Output
	if rt.json {
		output := map[string]interface{}{"tokens": tokenViews(filtered, rt.catalog.PairableWith)}
		if showPools {
			pools := make([]poolView, 0, len(prices))
			for _, p := range prices {
				pools = append(pools, poolView{Pair: p.Pair.String(), Price: p.String()})
			}
			output["pools"] = pools
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayTokens(filtered, rt.catalog.PairableWith)
	if showPools {
		displayPools(prices)
	}
}

func tokenViews(tokens []types.Token, pairable func(string) []string) []tokenView {
	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		v := tokenView{
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			Native:   t.Native,
			Pools:    pairable(t.Symbol),
		}
		if t.HasAddress() {
			v.Address = t.LedgerAddress().Hex()
		}
		views = append(views, v)
	}
	return views
}

func displayTokens(tokens []types.Token, pairable func(string) []string) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	for _, token := range tokens {
		address := "unknown address"
		switch {
		case token.Native:
			address = "native"
		case token.HasAddress():
			address = token.Address.Hex()
		}

		pools := pairable(token.Symbol)
		poolList := "no pools"
		if len(pools) > 0 {
			poolList = "-> " + strings.Join(pools, ", ")
		}

		fmt.Printf("  %-10s  %2d decimals  %-42s  %s\n",
			color.YellowString(token.Symbol),
			token.Decimals,
			color.HiBlackString(address),
			poolList)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}

func displayPools(prices []quote.PoolPrice) {
	color.Cyan("POOL PRICES")
	fmt.Println(strings.Repeat("-", 90))
	for _, p := range prices {
		price := p.String()
		if p.Err != nil {
			price = color.RedString(price)
		}
		fmt.Printf("  1 %-8s = %s %s\n", p.Pair.In.Symbol, price, p.Pair.Out.Symbol)
	}
	fmt.Println()
}
