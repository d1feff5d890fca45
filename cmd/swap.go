package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"odos-swap/config"
	"odos-swap/pkg/client"
	"odos-swap/pkg/execute"
	"odos-swap/pkg/parser"
)

var (
	swapChainID  int64
	receiverAddr string
	noConfirm    bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Execute a token swap on-chain",
	Long: `Swap tokens through the Odos router. The command fetches a quote, assembles
the transaction, completes the gas parameters and broadcasts it with the
account configured for the chain.

IMPORTANT:
  - The chain must have a networks entry in .odos-swap.yaml (rpc_url and
    private_key)
  - Swapping from an ERC20 token submits an approval transaction first when
    the router allowance is too low

Examples:
  # Swap on Ethereum mainnet
  odos-swap swap 1 WETH to USDC --chain 1

  # Swap on Base and send the output elsewhere
  odos-swap swap 0.5 WETH to DAI --chain 8453 --receiver 0x123...

  # Skip the confirmation prompt
  odos-swap swap 100 USDC to WETH --chain 1 --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Int64Var(&swapChainID, "chain", 1, "Chain ID to swap on")
	swapCmd.Flags().StringVar(&receiverAddr, "receiver", "", "Output recipient address (defaults to the signer)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	swapReq.ChainID = swapChainID
	swapReq.Receiver = receiverAddr

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	network, err := cfg.NetworkForChain(swapReq.ChainID)
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

	apiClient, err := newAPIClient(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	router, err := client.RouterAddress(swapReq.ChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	signer := executor.SignerAddress()
	receiver := signer
	if swapReq.Receiver != "" {
		if !common.IsHexAddress(swapReq.Receiver) {
			printError(fmt.Errorf("invalid receiver address: %s", swapReq.Receiver))
			os.Exit(1)
		}
		receiver = common.HexToAddress(swapReq.Receiver)
	}

	ctx := context.Background()

	// Quote first so the user sees what they are agreeing to
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quote, display, err := fetchQuote(ctx, apiClient, cfg, swapReq, signer.Hex())
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(display)
	}

	if !noConfirm && !jsonOutput {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return
		}
	}

	// ERC20 inputs need a router allowance before the swap can clear
	sourceToken, err := apiClient.FindToken(ctx, swapReq.ChainID, swapReq.SourceToken)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if sourceToken.Address != client.NativeTokenAddress {
		if len(quote.InAmounts) == 0 {
			printError(fmt.Errorf("quote has no input amounts"))
			os.Exit(1)
		}
		amountIn, ok := new(big.Int).SetString(quote.InAmounts[0], 10)
		if !ok {
			printError(fmt.Errorf("invalid input amount in quote: %s", quote.InAmounts[0]))
			os.Exit(1)
		}

		if !jsonOutput {
			s.Suffix = " Checking router allowance..."
			s.Start()
		}
		approveTx, err := executor.EnsureAllowance(ctx, common.HexToAddress(sourceToken.Address), router, amountIn)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if approveTx != "" && !jsonOutput {
			fmt.Printf("Approval submitted: %s\n", color.CyanString(approveTx))
		}
	}

	// Assemble and broadcast
	if !jsonOutput {
		s.Suffix = " Assembling transaction..."
		s.Start()
	}

	msg, err := apiClient.BuildBaseTransaction(ctx, &client.SwapContext{
		SignerAddress:   signer,
		OutputRecipient: receiver,
		PathID:          quote.PathID,
		RouterAddress:   router,
	})
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if verbose {
		fmt.Printf("\nBase transaction: to=%s value=%s data=%d bytes\n",
			msg.To.Hex(), msg.Value.String(), len(msg.Data))
	}

	if !jsonOutput {
		s.Suffix = " Broadcasting transaction..."
		s.Start()
	}
	txHash, err := executor.SendTransaction(ctx, msg)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{
			"tx_hash":     txHash,
			"path_id":     quote.PathID,
			"source":      display.SourceAmount + " " + display.SourceToken,
			"destination": display.DestAmount + " " + display.DestToken,
			"receiver":    receiver.Hex(),
		}, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		printSuccess(fmt.Sprintf("Swap submitted: %s", color.GreenString(txHash)))
	}
}

func confirmSwap() bool {
	fmt.Print("Proceed with the swap? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
