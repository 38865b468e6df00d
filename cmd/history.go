package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"afri-swap/pkg/history"
	"afri-swap/pkg/types"
)

var (
	watchHistory    bool
	historyInterval time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [account]",
	Short: "Show the recent transfers of an account",
	Long: `Show the most recent token transfers sent or received by an account.

Transfers are read from the Transfer logs of every cataloged token over the
latest blocks. The account defaults to the one of the configured private key.

Examples:
  afri-swap history 0x1234...
  afri-swap history --watch
  afri-swap history 0x1234... --watch --interval 30s`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVarP(&watchHistory, "watch", "w", false, "Keep refreshing the feed")
	historyCmd.Flags().DurationVar(&historyInterval, "interval", 0, "Refresh interval in watch mode (default from config)")
}

func runHistory(cmd *cobra.Command, args []string) {
	rt, err := setup(cmd, true)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer rt.Close()

	account, err := rt.accountArg(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	aggregator := history.NewAggregator(rt.ledger, rt.catalog.List(), rt.cfg.History, rt.logger)

	if !watchHistory {
		stop := rt.startSpinner("Fetching transfer history...")
		feed, err := aggregator.Build(context.Background(), account)
		stop()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		outputFeed(rt, account.Hex(), feed)
		return
	}

	interval := rt.cfg.History.Interval
	if historyInterval > 0 {
		interval = historyInterval
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	poller := history.NewPoller(aggregator, interval, rt.logger)
	poller.Connect(account)
	defer poller.Disconnect()

	if !rt.json {
		color.Yellow("\nWatching %s every %s (Ctrl+C to stop)", account.Hex(), interval)
	}

	for {
		select {
		case <-ctx.Done():
			if !rt.json {
				fmt.Println("\nStopped watching.")
			}
			return
		case u := <-poller.Updates():
			if u.Err != nil {
				outputFailure(rt, account.Hex(), u.Err)
				continue
			}
			outputFeed(rt, account.Hex(), u.Feed)
			poller.MarkSeen()
		}
	}
}

func outputFeed(rt *runtime, account string, feed history.Feed) {
	if rt.json {
		jsonData, _ := json.MarshalIndent(feed, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayFeed(account, feed)
}

func outputFailure(rt *runtime, account string, err error) {
	if rt.json {
		jsonData, _ := json.MarshalIndent(map[string]string{
			"account": account,
			"error":   err.Error(),
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	color.Red("\nHistory unavailable for %s: %v", account, err)
}

func displayFeed(account string, feed history.Feed) {
	fmt.Println("\n" + strings.Repeat("=", 90))
	title := "                          RECENT ACTIVITY"
	if feed.HasUnseen {
		title += "  •"
	}
	color.Green(title)
	fmt.Println(strings.Repeat("=", 90))
	fmt.Printf("  Account: %s\n\n", color.CyanString(account))

	if len(feed.Events) == 0 {
		fmt.Println("  No recent transfers.")
	}

	for _, e := range feed.Events {
		direction := color.RedString("SENT    ")
		preposition := "to  "
		if e.Direction == types.Received {
			direction = color.GreenString("RECEIVED")
			preposition = "from"
		}

		when := "unknown time"
		if e.Timestamp != nil {
			when = e.Timestamp.Local().Format("2006-01-02 15:04:05")
		}

		fmt.Printf("  %s  %s %s  %s %s\n",
			direction,
			e.Amount.String(),
			color.YellowString(e.TokenSymbol),
			preposition,
			shortAddress(e.Counterparty.Hex()))
		fmt.Printf("            block %d, %s, tx %s\n",
			e.BlockNumber,
			when,
			color.HiBlackString(e.Hash.Hex()))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nShowing %d of %d transfers\n\n", len(feed.Events), feed.Total)
}

func shortAddress(address string) string {
	if len(address) <= 13 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
