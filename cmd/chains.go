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
	"github.com/spf13/cobra"

	"odos-swap/config"
	"odos-swap/pkg/client"
)

var chainsCmd = &cobra.Command{
	Use:   "list-chains",
	Short: "List chains supported by the Odos API",
	Run:   runListChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runListChains(cmd *cobra.Command, args []string) {
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

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported chains..."
		s.Start()
	}

	chains, err := apiClient.GetChains(context.Background())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{"chains": chains}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	color.Green("              SUPPORTED CHAINS")
	fmt.Println(strings.Repeat("=", 50))

	for _, chainID := range chains {
		// Mark the chains this CLI can also execute on
		if _, err := client.RouterAddress(chainID); err == nil {
			fmt.Printf("  %s %d\n", color.GreenString("*"), chainID)
		} else {
			fmt.Printf("    %d\n", chainID)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("\nTotal: %d chains (* = known router deployment)\n\n", len(chains))
}
