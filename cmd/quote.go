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

	"afri-swap/pkg/parser"
	"afri-swap/pkg/quote"
	"afri-swap/pkg/session"
	"afri-swap/pkg/swap"
	"afri-swap/pkg/types"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Estimate the output of a swap",
	Long: `Estimate the output of a swap without submitting anything.

The quote shows the estimated output after the 2% protocol fee, the minimum
received after slippage, and the reverse rate of one output token.

Examples:
  afri-swap quote 1 ETH to AFR
  afri-swap quote 250.5 AFR to USDC --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

type quoteView struct {
	Pair            string `json:"pair"`
	AmountIn        string `json:"amount_in"`
	AmountInMinor   string `json:"amount_in_minor"`
	EstimatedOutput string `json:"estimated_output"`
	Fee             string `json:"fee"`
	NetOutput       string `json:"net_output"`
	MinimumReceived string `json:"minimum_received"`
	ReverseRate     string `json:"reverse_rate,omitempty"`
	Status          string `json:"status"`
}

func newQuoteView(q *quote.Quote, status string) quoteView {
	v := quoteView{
		Pair:            q.Pair.String(),
		AmountIn:        q.InputAmount.String(),
		AmountInMinor:   q.AmountInMinor.String(),
		EstimatedOutput: q.RawOutput.String(),
		Fee:             q.Fee.String(),
		NetOutput:       q.NetOutput.StringFixed(quote.DisplayPrecision),
		MinimumReceived: q.MinimumReceived.StringFixed(quote.DisplayPrecision),
		Status:          status,
	}
	if q.ReverseUnitRate.Valid {
		v.ReverseRate = q.ReverseUnitRate.Decimal.String()
	}
	return v
}

func runQuote(cmd *cobra.Command, args []string) {
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

	q, err := fetchQuote(context.Background(), rt, newSession(rt), swapReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if rt.json {
		jsonData, _ := json.MarshalIndent(newQuoteView(q, "quote_generated"), "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayQuote(q, rt.cfg.Slippage)
}

// newSession wires a session on the runtime's ledger
func newSession(rt *runtime) *session.Session {
	engine := quote.NewEngine(rt.ledger, rt.cfg.Slippage, rt.logger)
	machine := swap.NewMachine(rt.ledger, rt.ledger.SwapContract(), rt.logger)
	return session.New(rt.catalog, engine, machine, rt.logger)
}

// fetchQuote pushes the parsed request into the session and returns the
// resulting quote
func fetchQuote(ctx context.Context, rt *runtime, sess *session.Session, req *types.SwapRequest) (*quote.Quote, error) {
	if rt.ledger.SwapContract() == (common.Address{}) {
		return nil, fmt.Errorf("swap contract not configured. Please set AFRI_SWAP_SWAP_CONTRACT")
	}

	if _, err := sess.SelectFrom(ctx, req.SourceToken); err != nil {
		return nil, err
	}
	if _, err := sess.SelectTo(ctx, req.DestToken); err != nil {
		return nil, err
	}

	stop := rt.startSpinner("Fetching quote...")
	state, err := sess.SetAmount(ctx, req.Amount)
	stop()
	if err != nil {
		return nil, err
	}

	switch state.Status {
	case quote.StatusReady:
		return state.Quote, nil
	case quote.StatusUnavailable:
		return nil, state.Err
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidInput, req.Amount)
	}
}

func displayQuote(q *quote.Quote, slippage float64) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", q.InputAmount.String(), color.YellowString(q.Pair.In.Symbol))
	fmt.Printf("  To:                ~%s %s\n", q.NetOutput.StringFixed(quote.DisplayPrecision), color.YellowString(q.Pair.Out.Symbol))
	fmt.Printf("  Fee:               %s %s\n", q.Fee.String(), q.Pair.Out.Symbol)
	fmt.Printf("  Minimum Received:  %s %s (%.2f%% slippage)\n",
		q.MinimumReceived.StringFixed(quote.DisplayPrecision), q.Pair.Out.Symbol, slippage*100)

	if q.ReverseUnitRate.Valid {
		fmt.Printf("  Rate:              1 %s = %s %s\n", q.Pair.Out.Symbol, q.ReverseUnitRate.Decimal.String(), q.Pair.In.Symbol)
	} else {
		fmt.Printf("  Rate:              %s\n", color.HiBlackString("unavailable"))
	}

	if q.Pair.NeedsApproval() {
		fmt.Printf("  Approval:          %s must be approved before the swap\n", q.Pair.In.Symbol)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
