package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "odos-swap",
	Short: "A CLI for token swaps using the Odos Smart Order Routing API",
	Long: `odos-swap is a command-line tool for swapping tokens on EVM chains through
the Odos Smart Order Routing V2 API. It fetches the best route for a swap,
assembles the executable transaction and can broadcast it with a configured
account.

Examples:
  odos-swap quote 1 WETH to USDC --chain 1
  odos-swap swap 0.5 WETH to DAI --chain 8453 --receiver 0x123...
  odos-swap list-tokens --chain 137
  odos-swap order create eth-dip 1 WETH to USDC --chain 1 --below 3000`,
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
