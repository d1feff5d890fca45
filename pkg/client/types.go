package client

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// InputToken is one token being sold in a quote request
type InputToken struct {
	TokenAddress string `json:"tokenAddress"`
	Amount       string `json:"amount"`
}

// OutputToken is one token being bought in a quote request. Proportion is a
// fraction of the output; a single-output swap uses 1.
type OutputToken struct {
	TokenAddress string  `json:"tokenAddress"`
	Proportion   float64 `json:"proportion"`
}

// QuoteRequest describes a desired swap. The client performs no structural
// validation; the server rejects malformed requests.
type QuoteRequest struct {
	ChainID              int64         `json:"chainId"`
	InputTokens          []InputToken  `json:"inputTokens"`
	OutputTokens         []OutputToken `json:"outputTokens"`
	UserAddr             string        `json:"userAddr"`
	SlippageLimitPercent float64       `json:"slippageLimitPercent,omitempty"`
	ReferralCode         uint32        `json:"referralCode,omitempty"`
	DisableRFQs          bool          `json:"disableRFQs,omitempty"`
	Compact              bool          `json:"compact,omitempty"`
}

// SingleQuoteResponse is a candidate route returned by the quote endpoint.
// PathID is the opaque token later exchanged for call data via assembly.
type SingleQuoteResponse struct {
	PathID           string    `json:"pathId"`
	BlockNumber      uint64    `json:"blockNumber"`
	GasEstimate      float64   `json:"gasEstimate"`
	GasEstimateValue float64   `json:"gasEstimateValue"`
	InTokens         []string  `json:"inTokens"`
	InAmounts        []string  `json:"inAmounts"`
	OutTokens        []string  `json:"outTokens"`
	OutAmounts       []string  `json:"outAmounts"`
	OutValues        []float64 `json:"outValues"`
	NetOutValue      float64   `json:"netOutValue"`
	PriceImpact      float64   `json:"priceImpact"`
	PercentDiff      float64   `json:"percentDiff"`
}

// AssembleRequest exchanges a quoted path for executable transaction data
type AssembleRequest struct {
	UserAddr string          `json:"userAddr"`
	PathID   string          `json:"pathId"`
	Simulate bool            `json:"simulate"`
	Receiver *common.Address `json:"receiver,omitempty"`
}

// TransactionData is the subset of the assembly response needed to build an
// on-chain transaction
type TransactionData struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas"`
	GasPrice uint64 `json:"gasPrice"`
	Nonce    uint64 `json:"nonce"`
	ChainID  int64  `json:"chainId"`
}

// Simulation is the auxiliary simulation metadata of an assembly response
type Simulation struct {
	IsSuccess       bool   `json:"isSuccess"`
	GasEstimate     int64  `json:"gasEstimate"`
	SimulationError string `json:"simulationError,omitempty"`
}

// AssemblyResponse is the decoded body of a successful assemble call
type AssemblyResponse struct {
	BlockNumber uint64          `json:"blockNumber"`
	GasEstimate uint64          `json:"gasEstimate"`
	Transaction TransactionData `json:"transaction"`
	Simulation  *Simulation     `json:"simulation,omitempty"`
}

// SwapContext carries the minimal data needed to drive assembly without
// re-deriving a quote. The path ID is only meaningful if it was issued by a
// quote for the same swap; the client does not validate that linkage.
type SwapContext struct {
	SignerAddress   common.Address
	OutputRecipient common.Address
	PathID          string
	RouterAddress   common.Address
}

// parseValue converts the assembly value field, a decimal or 0x-prefixed hex
// string, into a native amount in wei. An empty string is zero.
func parseValue(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		value, err := hexutil.DecodeBig(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex value %q: %w", s, err)
		}
		return value, nil
	}
	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal value %q", s)
	}
	return value, nil
}
