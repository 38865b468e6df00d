package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"afri-swap/pkg/types"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [account] [symbol...]",
	Short: "Show token balances of an account",
	Long: `Show the balances of an account for the given tokens, or for every
cataloged token with a known address.

Examples:
  afri-swap balance 0x1234...
  afri-swap balance 0x1234... ETH AFR`,
	Run: runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

type balanceView struct {
	Token   string `json:"token"`
	Balance string `json:"balance,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runBalance(cmd *cobra.Command, args []string) {
	rt, err := setup(cmd, true)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	var accountArgs []string
	if len(args) > 0 && common.IsHexAddress(args[0]) {
		accountArgs, args = args[:1], args[1:]
	}
	account, err := rt.accountArg(accountArgs)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var tokens []types.Token
	if len(args) == 0 {
		for _, t := range rt.catalog.List() {
			if t.HasAddress() {
				tokens = append(tokens, t)
			}
		}
	}
	for _, symbol := range args {
		token, ok := rt.catalog.FindBySymbol(symbol)
		if !ok {
			printError(fmt.Errorf("%w: %s", types.ErrUnknownToken, symbol))
			os.Exit(1)
		}
		if !token.HasAddress() {
			printError(fmt.Errorf("token %s has no configured address", token.Symbol))
			os.Exit(1)
		}
		tokens = append(tokens, token)
	}

	stop := rt.startSpinner("Fetching balances...")
	balances := make([]balanceView, 0, len(tokens))
	for _, token := range tokens {
		raw, err := rt.ledger.BalanceOf(context.Background(), token.LedgerAddress(), account)
		if err != nil {
			balances = append(balances, balanceView{Token: token.Symbol, Error: err.Error()})
			continue
		}
		balances = append(balances, balanceView{Token: token.Symbol, Balance: token.FromMinor(raw).String()})
	}
	stop()

	if rt.json {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{
			"account":  account.Hex(),
			"balances": balances,
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                       BALANCES")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("  Account: %s\n\n", color.CyanString(account.Hex()))
	for _, b := range balances {
		if b.Error != "" {
			fmt.Printf("  %-10s  %s\n", color.YellowString(b.Token), color.RedString("error: %s", b.Error))
			continue
		}
		fmt.Printf("  %-10s  %s\n", color.YellowString(b.Token), b.Balance)
	}
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
