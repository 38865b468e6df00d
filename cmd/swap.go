package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"afri-swap/pkg/parser"
	"afri-swap/pkg/swap"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap tokens through the swap contract",
	Long: `Quote and execute a swap through the on-chain swap contract.

When the source token is not the native asset, an approval transaction for
the exact amount is submitted and confirmed first.

IMPORTANT:
  - AFRI_SWAP_PRIVATE_KEY must be set (the account that signs the transactions)
  - AFRI_SWAP_SWAP_CONTRACT must be set

Examples:
  afri-swap swap 1 ETH to AFR
  afri-swap swap 100 AFR to USDC

  # Skip the confirmation prompt
  afri-swap swap 100 AFR to USDC --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	swapReq, err := parser.ParseSwapArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	rt, err := setup(cmd, true)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	if rt.ledger.Account() == (common.Address{}) {
		printError(fmt.Errorf("private key not configured. Please set AFRI_SWAP_PRIVATE_KEY"))
		os.Exit(1)
	}

	ctx := context.Background()
	sess := newSession(rt)

	q, err := fetchQuote(ctx, rt, sess, swapReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !rt.json {
		displayQuote(q, rt.cfg.Slippage)
		fmt.Printf("  Account:           %s\n", color.CyanString(rt.ledger.Account().Hex()))
	}

	// Ask for confirmation
	if !noConfirm && !rt.json {
		if !confirm("Proceed with swap?") {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	if sess.CanApprove() {
		stop := rt.startSpinner(fmt.Sprintf("Approving %s %s...", q.InputAmount, q.Pair.In.Symbol))
		err := sess.Approve(ctx)
		stop()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if !rt.json {
			color.Green("\n✓ Approval confirmed (tx %s)", sess.SwapState().TxHash.Hex())
		}
	}

	stop := rt.startSpinner("Submitting swap...")
	final, err := sess.Swap(ctx)
	stop()

	if rt.json {
		output := map[string]interface{}{
			"attempt_id": final.AttemptID.String(),
			"quote":      newQuoteView(q, string(final.Status)),
			"tx_hash":    final.TxHash.Hex(),
		}
		if err != nil {
			output["error"] = err.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if err != nil {
		displayFailure(final)
		printError(err)
		os.Exit(1)
	}

	printSuccess(color.GreenString("✓ Swapped %s %s to ~%s %s",
		q.InputAmount, q.Pair.In.Symbol, q.NetOutput.StringFixed(2), q.Pair.Out.Symbol))
	fmt.Printf("  Transaction:  %s\n", color.CyanString(final.TxHash.Hex()))
	if rt.verbose {
		fmt.Printf("  Attempt ID:   %s\n", final.AttemptID)
	}
	fmt.Println("\nYou can check your recent transfers using:")
	color.Cyan("  afri-swap history %s\n", rt.ledger.Account().Hex())
}

func displayFailure(final swap.State) {
	color.Red("\n✗ Swap %s", final.Status)
	if final.TxHash != (common.Hash{}) {
		fmt.Printf("  Transaction:  %s\n", color.CyanString(final.TxHash.Hex()))
	}
}
