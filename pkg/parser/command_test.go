package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"odos-swap/pkg/types"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		command string
		amount  string
		source  string
		dest    string
	}{
		{"swap 1 ETH to USDC", "1", "ETH", "USDC"},
		{"1.5 WBTC to DAI", "1.5", "WBTC", "DAI"},
		{"100.25 usdc to weth", "100.25", "USDC", "WETH"},
		{"  swap 0.001 WETH to USDC  ", "0.001", "WETH", "USDC"},
	}

	for _, tc := range tests {
		t.Run(tc.command, func(t *testing.T) {
			req, err := ParseSwapCommand(tc.command)
			require.NoError(t, err)
			require.Equal(t, tc.amount, req.Amount)
			require.Equal(t, tc.source, req.SourceToken)
			require.Equal(t, tc.dest, req.DestToken)
		})
	}
}

func TestParseSwapCommand_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"swap ETH to USDC",
		"1 ETH USDC",
		"one ETH to USDC",
		"1 ETH to",
	}

	for _, command := range invalid {
		_, err := ParseSwapCommand(command)
		require.Error(t, err, "command %q", command)
	}
}

func TestValidateSwapRequest(t *testing.T) {
	valid := &types.SwapRequest{Amount: "1", SourceToken: "WETH", DestToken: "USDC", ChainID: 1}
	require.NoError(t, ValidateSwapRequest(valid))

	require.Error(t, ValidateSwapRequest(&types.SwapRequest{SourceToken: "WETH", DestToken: "USDC", ChainID: 1}))
	require.Error(t, ValidateSwapRequest(&types.SwapRequest{Amount: "1", DestToken: "USDC", ChainID: 1}))
	require.Error(t, ValidateSwapRequest(&types.SwapRequest{Amount: "1", SourceToken: "WETH", ChainID: 1}))
	require.Error(t, ValidateSwapRequest(&types.SwapRequest{Amount: "1", SourceToken: "WETH", DestToken: "USDC"}))
}
