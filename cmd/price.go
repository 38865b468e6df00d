package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"afri-swap/pkg/price"
	"afri-swap/pkg/types"
)

var priceCmd = &cobra.Command{
	Use:   "price <symbol>",
	Short: "Show the oracle price of a token",
	Long: `Read the latest reference price of a token from the price oracle.

Requires AFRI_SWAP_PRICE_ORACLE to be set.

Examples:
  afri-swap price AFR
  afri-swap price ETH --json`,
	Args: cobra.ExactArgs(1),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, args []string) {
	rt, err := setup(cmd, true)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	token, ok := rt.catalog.FindBySymbol(args[0])
	if !ok {
		printError(fmt.Errorf("%w: %s", types.ErrUnknownToken, args[0]))
		os.Exit(1)
	}

	stop := rt.startSpinner("Fetching price...")
	p := price.NewService(rt.ledger, rt.logger).LatestPrice(context.Background(), token)
	stop()

	if rt.json {
		output := map[string]interface{}{
			"token":     token.Symbol,
			"available": p.Valid,
		}
		if p.Valid {
			output["price"] = p.Decimal.String()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if !p.Valid {
		color.Yellow("\nPrice of %s is currently unavailable\n\n", token.Symbol)
		return
	}
	fmt.Printf("\n  1 %s = %s\n\n", color.YellowString(token.Symbol), color.GreenString(p.Decimal.StringFixed(4)))
}
