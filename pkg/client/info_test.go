package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const tokenMapBody = `{
	"tokenMap": {
		"0x0000000000000000000000000000000000000000": {"name": "Ether", "symbol": "ETH", "decimals": 18},
		"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": {"name": "Wrapped Ether", "symbol": "WETH", "decimals": 18},
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {"name": "USD Coin", "symbol": "USDC", "decimals": 6}
	}
}`

func TestGetTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/info/tokens/1", r.URL.Path)
		fmt.Fprint(w, tokenMapBody)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	tokens, err := sor.GetTokens(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	usdc := tokens["0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"]
	require.Equal(t, "USDC", usdc.Symbol)
	require.Equal(t, int32(6), usdc.Decimals)
	require.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", usdc.Address)
}

func TestFindToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tokenMapBody)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)
	ctx := context.Background()

	// Exact match wins over the substring match (ETH vs WETH)
	token, err := sor.FindToken(ctx, 1, "eth")
	require.NoError(t, err)
	require.Equal(t, "ETH", token.Symbol)

	token, err = sor.FindToken(ctx, 1, "WETH")
	require.NoError(t, err)
	require.Equal(t, "WETH", token.Symbol)

	_, err = sor.FindToken(ctx, 1, "DOGE")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestFindToken_SubstringFallbackIsStable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"tokenMap": {
				"0xd9aaec86b65d86f6a7b5b1b0c42ffa531710b6ca": {"name": "Bridged USDC", "symbol": "USDbC", "decimals": 6},
				"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": {"name": "USD Coin", "symbol": "USDC", "decimals": 6},
				"0xfde4c96c8593536e31f229ea8f37b2ada2699bb2": {"name": "Tether USD", "symbol": "USDT", "decimals": 6}
			}
		}`)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)
	ctx := context.Background()

	// Several symbols contain "USD"; the resolution must not depend on map
	// iteration order. Shortest symbol wins, ties break alphabetically.
	for i := 0; i < 10; i++ {
		token, err := sor.FindToken(ctx, 8453, "USD")
		require.NoError(t, err)
		require.Equal(t, "USDC", token.Symbol)
	}
}

func TestGetChains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/info/chains", r.URL.Path)
		fmt.Fprint(w, `{"chains": [1, 10, 137, 8453]}`)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	chains, err := sor.GetChains(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 10, 137, 8453}, chains)
}
