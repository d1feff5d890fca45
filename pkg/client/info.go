package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeTokenAddress is the sentinel Odos uses for a chain's gas token
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"

// Odos V2 router deployments by chain ID
var routerAddresses = map[int64]common.Address{
	1:     common.HexToAddress("0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559"), // Ethereum
	10:    common.HexToAddress("0xCa423977156BB05b13A2BA3b76Bc5419E2fE9680"), // Optimism
	56:    common.HexToAddress("0x89b8AA89FDd0507a99d334CBe3C808fAFC7d850E"), // BNB Chain
	137:   common.HexToAddress("0x4E3288c9ca110bCC82bf38F09A7b425c095d92Bf"), // Polygon
	8453:  common.HexToAddress("0x19cEeAd7105607Cd444F5ad10dd51356436095a1"), // Base
	42161: common.HexToAddress("0xa669e7A0d4b3e4Fa48af2dE86BD4CD7126Be4e13"), // Arbitrum
	43114: common.HexToAddress("0x88de50B233052e4Fb783d4F6db78Cc34fEa3e9FC"), // Avalanche
}

// RouterAddress returns the Odos V2 router contract for a chain
func RouterAddress(chainID int64) (common.Address, error) {
	router, ok := routerAddresses[chainID]
	if !ok {
		return common.Address{}, fmt.Errorf("no known router for chain %d", chainID)
	}
	return router, nil
}

// TokenInfo describes one token supported on a chain
type TokenInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	AssetID  string `json:"assetId"`
	// Address is the map key in the API response, filled in after decoding
	Address string `json:"-"`
}

type tokenMapResponse struct {
	TokenMap map[string]TokenInfo `json:"tokenMap"`
}

type chainsResponse struct {
	Chains []int64 `json:"chains"`
}

// GetChains lists the chain IDs supported by the Odos API
func (s *SorV2) GetChains(ctx context.Context) ([]int64, error) {
	response, err := s.client.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.client.endpoint("/info/chains"), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to list chains: API error (status: %d): %s",
			response.StatusCode, readErrorBody(response.Body, unknownQuoteError))
	}

	var chains chainsResponse
	if err := json.NewDecoder(response.Body).Decode(&chains); err != nil {
		return nil, &DecodeError{Op: "chains", Err: err}
	}
	return chains.Chains, nil
}

// GetTokens lists the tokens supported on a chain, keyed by address
func (s *SorV2) GetTokens(ctx context.Context, chainID int64) (map[string]TokenInfo, error) {
	response, err := s.client.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.client.endpoint(fmt.Sprintf("/info/tokens/%d", chainID)), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to list tokens: API error (status: %d): %s",
			response.StatusCode, readErrorBody(response.Body, unknownQuoteError))
	}

	var tokens tokenMapResponse
	if err := json.NewDecoder(response.Body).Decode(&tokens); err != nil {
		return nil, &DecodeError{Op: "tokens", Err: err}
	}

	for address, token := range tokens.TokenMap {
		token.Address = address
		tokens.TokenMap[address] = token
	}
	return tokens.TokenMap, nil
}

// FindToken resolves a token symbol on a chain. Exact match wins; otherwise
// the closest substring match (shortest symbol, ties broken alphabetically)
// is accepted as a fallback.
func (s *SorV2) FindToken(ctx context.Context, chainID int64, symbol string) (TokenInfo, error) {
	tokens, err := s.GetTokens(ctx, chainID)
	if err != nil {
		return TokenInfo{}, err
	}

	symbol = strings.ToUpper(symbol)

	for _, token := range tokens {
		if strings.ToUpper(token.Symbol) == symbol {
			return token, nil
		}
	}

	var matches []TokenInfo
	for _, token := range tokens {
		if strings.Contains(strings.ToUpper(token.Symbol), symbol) {
			matches = append(matches, token)
		}
	}
	if len(matches) > 0 {
		sort.Slice(matches, func(i, j int) bool {
			if len(matches[i].Symbol) != len(matches[j].Symbol) {
				return len(matches[i].Symbol) < len(matches[j].Symbol)
			}
			if matches[i].Symbol != matches[j].Symbol {
				return matches[i].Symbol < matches[j].Symbol
			}
			return matches[i].Address < matches[j].Address
		})
		return matches[0], nil
	}

	return TokenInfo{}, fmt.Errorf("token '%s' not found on chain %d", symbol, chainID)
}
