package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"odos-swap/config"
	"odos-swap/pkg/client"
	"odos-swap/pkg/parser"
	"odos-swap/pkg/types"
)

var (
	quoteChainID int64
	quoteUser    string
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Fetch a swap quote",
	Long: `Fetch the best route for a token swap from the Odos API without executing
anything on-chain.

Examples:
  odos-swap quote 1 WETH to USDC --chain 1
  odos-swap quote 250 USDC to WETH --chain 8453
  odos-swap quote 0.5 WETH to DAI --chain 1 --user 0x123...`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Int64Var(&quoteChainID, "chain", 1, "Chain ID to quote on")
	quoteCmd.Flags().StringVar(&quoteUser, "user", "", "Address the quote is priced for (defaults to the zero address)")
}

func runQuote(cmd *cobra.Command, args []string) {
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	swapReq.ChainID = quoteChainID

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient, err := newAPIClient(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quote, display, err := fetchQuote(ctx, apiClient, cfg, swapReq, quoteUser)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if verbose {
		fmt.Printf("\nQuote received:\n")
		quoteJSON, _ := json.MarshalIndent(quote, "", "  ")
		fmt.Println(string(quoteJSON))
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{
			"path_id":       quote.PathID,
			"source_amount": display.SourceAmount,
			"source_token":  display.SourceToken,
			"dest_amount":   display.DestAmount,
			"dest_token":    display.DestToken,
			"rate":          display.Rate,
			"gas_estimate":  display.GasEstimate,
			"price_impact":  display.PriceImpact,
		}, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayQuote(display)
	}
}

// newAPIClient builds the API client from the loaded configuration
func newAPIClient(cfg *config.Config) (*client.SorV2, error) {
	return client.NewWithConfig(client.ClientConfig{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout(),
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval(),
	})
}

// fetchQuote resolves both token symbols, converts the amount into base
// units and fetches a quote
func fetchQuote(ctx context.Context, apiClient *client.SorV2, cfg *config.Config, swapReq *types.SwapRequest, userAddr string) (*client.SingleQuoteResponse, *types.QuoteDisplay, error) {
	sourceToken, err := apiClient.FindToken(ctx, swapReq.ChainID, swapReq.SourceToken)
	if err != nil {
		return nil, nil, fmt.Errorf("source token error: %w", err)
	}
	destToken, err := apiClient.FindToken(ctx, swapReq.ChainID, swapReq.DestToken)
	if err != nil {
		return nil, nil, fmt.Errorf("destination token error: %w", err)
	}

	amount, err := decimal.NewFromString(swapReq.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, nil, fmt.Errorf("invalid amount: %s", swapReq.Amount)
	}
	amountBaseUnits := amount.Shift(sourceToken.Decimals).BigInt().String()

	if userAddr == "" {
		userAddr = client.NativeTokenAddress
	}

	quote, err := apiClient.GetSwapQuote(ctx, &client.QuoteRequest{
		ChainID:              swapReq.ChainID,
		InputTokens:          []client.InputToken{{TokenAddress: sourceToken.Address, Amount: amountBaseUnits}},
		OutputTokens:         []client.OutputToken{{TokenAddress: destToken.Address, Proportion: 1}},
		UserAddr:             userAddr,
		SlippageLimitPercent: cfg.SlippagePercent,
	})
	if err != nil {
		return nil, nil, err
	}

	if len(quote.OutAmounts) == 0 {
		return nil, nil, fmt.Errorf("quote has no output amounts")
	}
	outBaseUnits, err := decimal.NewFromString(quote.OutAmounts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid output amount in quote: %w", err)
	}
	outAmount := outBaseUnits.Shift(-destToken.Decimals)

	display := &types.QuoteDisplay{
		SourceAmount: amount.String(),
		SourceToken:  sourceToken.Symbol,
		DestAmount:   outAmount.String(),
		DestToken:    destToken.Symbol,
		Rate:         outAmount.Div(amount).StringFixed(6),
		GasEstimate:  fmt.Sprintf("%.0f", quote.GasEstimate),
		PriceImpact:  fmt.Sprintf("%.4f%%", quote.PriceImpact),
		PathID:       quote.PathID,
	}
	return quote, display, nil
}

func displayQuote(display *types.QuoteDisplay) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  You pay:     %s %s\n", color.YellowString(display.SourceAmount), display.SourceToken)
	fmt.Printf("  You receive: %s %s\n", color.YellowString(display.DestAmount), display.DestToken)
	fmt.Printf("  Rate:        1 %s = %s %s\n", display.SourceToken, display.Rate, display.DestToken)
	fmt.Printf("  Gas:         ~%s units\n", display.GasEstimate)
	fmt.Printf("  Impact:      %s\n", display.PriceImpact)
	fmt.Printf("  Path ID:     %s\n", color.HiBlackString(display.PathID))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
