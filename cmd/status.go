package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"afri-swap/pkg/ledger"
)

var statusTimeout time.Duration

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Wait for a transaction and show its outcome",
	Long: `Wait until a submitted approval or swap transaction is mined and report
whether it succeeded.

Examples:
  afri-swap status 0xabc...123
  afri-swap status 0xabc...123 --timeout 5m`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 2*time.Minute, "How long to wait for the transaction to be mined")
}

func runStatus(cmd *cobra.Command, args []string) {
	hash := strings.TrimSpace(args[0])
	if !strings.HasPrefix(hash, "0x") || len(hash) != 66 {
		printError(fmt.Errorf("invalid transaction hash: %s", hash))
		os.Exit(1)
	}
	txHash := common.HexToHash(hash)

	rt, err := setup(cmd, true)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	stop := rt.startSpinner("Waiting for confirmation...")
	err = rt.ledger.AwaitConfirmation(ctx, ledger.PendingTx{Hash: txHash})
	stop()

	status := "SUCCESS"
	switch {
	case errors.Is(err, ledger.ErrReverted):
		status = "REVERTED"
	case errors.Is(err, context.DeadlineExceeded):
		status = "PENDING"
	case err != nil:
		printError(err)
		os.Exit(1)
	}

	if rt.json {
		jsonData, _ := json.MarshalIndent(map[string]string{
			"tx_hash": txHash.Hex(),
			"status":  strings.ToLower(status),
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Transaction: %s\n", color.CyanString(txHash.Hex()))
	fmt.Printf("  Status:      %s\n", getColoredStatus(status))
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	switch status {
	case "SUCCESS":
		return color.GreenString(status)
	case "PENDING":
		return color.YellowString(status)
	case "REVERTED":
		return color.RedString(status)
	default:
		return status
	}
}
