package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"odos-swap/config"
	"odos-swap/pkg/execute"
	"odos-swap/pkg/order"
	"odos-swap/pkg/parser"
)

var (
	orderChainID  int64
	orderAbove    string
	orderBelow    string
	orderReceiver string
	orderFile     string
	watchInterval int
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage limit orders",
	Long: `Create, list, cancel and watch limit orders. An order executes a swap once
the pair price crosses its target. Orders are stored locally; the watch
command must be running for them to execute.`,
}

var orderCreateCmd = &cobra.Command{
	Use:   "create <name> <amount> <source-token> to <dest-token>",
	Short: "Create a limit order",
	Long: `Create a limit order that swaps when the price of the source token,
measured in destination tokens, crosses the target.

Examples:
  # Sell 1 WETH for USDC once WETH is worth at least 4000 USDC
  odos-swap order create eth-high 1 WETH to USDC --chain 1 --above 4000

  # Buy the dip: swap 5000 USDC to WETH once WETH costs 2500 USDC or less
  odos-swap order create eth-dip 5000 USDC to WETH --chain 1 --below 0.0004`,
	Args: cobra.MinimumNArgs(2),
	Run:  runOrderCreate,
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List limit orders",
	Run:   runOrderList,
}

var orderCancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Cancel an active limit order",
	Args:  cobra.ExactArgs(1),
	Run:   runOrderCancel,
}

var orderWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch active orders and execute them when triggered",
	Long: `Poll prices for all active orders and execute any whose trigger condition
is met. Runs until interrupted.

Examples:
  odos-swap order watch
  odos-swap order watch --interval 60`,
	Run: runOrderWatch,
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderCreateCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderCancelCmd)
	orderCmd.AddCommand(orderWatchCmd)

	orderCmd.PersistentFlags().StringVar(&orderFile, "file", "", "Order storage file (defaults to ~/"+order.DefaultStorageFileName+")")

	orderCreateCmd.Flags().Int64Var(&orderChainID, "chain", 1, "Chain ID to swap on")
	orderCreateCmd.Flags().StringVar(&orderAbove, "above", "", "Trigger when the price reaches this value or more")
	orderCreateCmd.Flags().StringVar(&orderBelow, "below", "", "Trigger when the price reaches this value or less")
	orderCreateCmd.Flags().StringVar(&orderReceiver, "receiver", "", "Output recipient address (defaults to the signer)")

	orderWatchCmd.Flags().IntVar(&watchInterval, "interval", 30, "Polling interval in seconds")
}

func runOrderCreate(cmd *cobra.Command, args []string) {
	name := args[0]

	swapReq, err := parser.ParseSwapCommand(strings.Join(args[1:], " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if (orderAbove == "") == (orderBelow == "") {
		printError(fmt.Errorf("exactly one of --above or --below is required"))
		os.Exit(1)
	}

	condition := order.PriceAbove
	trigger := orderAbove
	if orderBelow != "" {
		condition = order.PriceBelow
		trigger = orderBelow
	}

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

	// Resolve token symbols once, at creation time
	sourceToken, err := apiClient.FindToken(ctx, orderChainID, swapReq.SourceToken)
	if err != nil {
		printError(fmt.Errorf("source token error: %w", err))
		os.Exit(1)
	}
	destToken, err := apiClient.FindToken(ctx, orderChainID, swapReq.DestToken)
	if err != nil {
		printError(fmt.Errorf("destination token error: %w", err))
		os.Exit(1)
	}

	storage, err := order.NewStorage(orderFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	newOrder := &order.LimitOrder{
		Name:           name,
		ChainID:        orderChainID,
		SourceToken:    sourceToken.Symbol,
		SourceAddress:  sourceToken.Address,
		SourceDecimals: sourceToken.Decimals,
		DestToken:      destToken.Symbol,
		DestAddress:    destToken.Address,
		DestDecimals:   destToken.Decimals,
		Amount:         swapReq.Amount,
		Receiver:       orderReceiver,
		TriggerPrice:   trigger,
		Condition:      condition,
		Status:         order.StatusActive,
	}

	if err := storage.Add(newOrder); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Order '%s' created: swap %s %s to %s when price is %s %s",
		name, newOrder.Amount, newOrder.SourceToken, newOrder.DestToken, newOrder.Condition, newOrder.TriggerPrice))
}

func runOrderList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	storage, err := order.NewStorage(orderFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	orders := storage.List()

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(orders, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(orders) == 0 {
		fmt.Println("\nNo orders. Create one with 'odos-swap order create'.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                              LIMIT ORDERS")
	fmt.Println(strings.Repeat("=", 90))

	for _, o := range orders {
		fmt.Printf("\n  %s  [%s]\n", color.YellowString(o.Name), statusColor(o.Status))
		fmt.Printf("    %s %s -> %s on chain %d, trigger: price %s %s\n",
			o.Amount, o.SourceToken, o.DestToken, o.ChainID, o.Condition, o.TriggerPrice)
		if o.LastPrice != "" {
			fmt.Printf("    last price: %s\n", o.LastPrice)
		}
		if o.TxHash != "" {
			fmt.Printf("    tx: %s\n", color.CyanString(o.TxHash))
		}
		if o.ErrorMessage != "" {
			fmt.Printf("    error: %s\n", color.RedString(o.ErrorMessage))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90) + "\n")
}

func statusColor(status order.Status) string {
	switch status {
	case order.StatusActive:
		return color.GreenString(string(status))
	case order.StatusExecuted:
		return color.CyanString(string(status))
	case order.StatusFailed:
		return color.RedString(string(status))
	default:
		return color.HiBlackString(string(status))
	}
}

func runOrderCancel(cmd *cobra.Command, args []string) {
	storage, err := order.NewStorage(orderFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if err := storage.Cancel(args[0]); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Order '%s' cancelled", args[0]))
}

func runOrderWatch(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	storage, err := order.NewStorage(orderFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	active := storage.Active()
	if len(active) == 0 {
		fmt.Println("\nNo active orders to watch.")
		return
	}

	// All active orders must share a chain with a configured network; one
	// executor per chain
	executors := make(map[int64]*execute.Executor)
	for _, o := range active {
		if _, ok := executors[o.ChainID]; ok {
			continue
		}
		network, err := cfg.NetworkForChain(o.ChainID)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		executor, err := execute.NewExecutor(network)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		defer executor.Close()
		executors[o.ChainID] = executor
	}

	apiClient, err := newAPIClient(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fmt.Printf("\nWatching %d active order(s), checking every %d seconds. Press Ctrl+C to stop.\n\n",
		len(active), watchInterval)

	onEvent := func(o *order.LimitOrder, message string) {
		fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), color.YellowString(o.Name), message)
	}

	// One watcher per chain, each with that chain's signer
	done := make(chan error, len(executors))
	for chainID, executor := range executors {
		watcher := order.NewWatcher(storage, apiClient, executor, chainID, cfg.SlippagePercent)
		watcher.SetCheckInterval(time.Duration(watchInterval) * time.Second)
		go func(w *order.Watcher) {
			done <- w.Start(context.Background(), onEvent)
		}(watcher)
	}

	if err := <-done; err != nil {
		printError(err)
		os.Exit(1)
	}
}
