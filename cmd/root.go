package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "afri-swap",
	Short: "A CLI for token swaps and transfer history on an EVM chain",
	Long: `afri-swap quotes and executes token swaps against the on-chain swap
contract, and shows the recent transfer activity of an account.

Examples:
  afri-swap list-tokens --pools
  afri-swap quote 1 ETH to AFR
  afri-swap swap 100 AFR to USDC
  afri-swap history 0x1234... --watch
  afri-swap price AFR
  afri-swap balance 0x1234... ETH AFR`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
