package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *SorV2 {
	t.Helper()
	sor, err := NewWithConfig(ClientConfig{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return sor
}

func TestGetSwapQuote_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sor/quote/v2", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("accept"))

		var req QuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(1), req.ChainID)
		require.Len(t, req.InputTokens, 1)
		require.Equal(t, "1000000000000000000", req.InputTokens[0].Amount)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"pathId": "abc123",
			"blockNumber": 19000000,
			"gasEstimate": 253000,
			"inAmounts": ["1000000000000000000"],
			"outAmounts": ["3100000000"],
			"priceImpact": -0.05,
			"futureField": {"ignored": true}
		}`)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	quote, err := sor.GetSwapQuote(context.Background(), &QuoteRequest{
		ChainID:      1,
		InputTokens:  []InputToken{{TokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Amount: "1000000000000000000"}},
		OutputTokens: []OutputToken{{TokenAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Proportion: 1}},
		UserAddr:     "0x47E2D28169738039755586743E2dfCF3bd643f86",
	})
	require.NoError(t, err)
	require.Equal(t, "abc123", quote.PathID)
	require.Equal(t, uint64(19000000), quote.BlockNumber)
	require.Equal(t, []string{"3100000000"}, quote.OutAmounts)
}

func TestGetSwapQuote_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail": "no viable path found"}`)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	_, err := sor.GetSwapQuote(context.Background(), &QuoteRequest{})
	require.Error(t, err)

	var quoteErr *QuoteError
	require.ErrorAs(t, err, &quoteErr)
	require.Equal(t, http.StatusBadRequest, quoteErr.StatusCode)
	require.Contains(t, err.Error(), "400")
	require.Contains(t, err.Error(), "no viable path found")
}

func TestGetSwapQuote_PersistentServerError(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "service down")
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	_, err := sor.GetSwapQuote(context.Background(), &QuoteRequest{})
	require.Error(t, err)

	// 5xx is retried, and the final response still surfaces as a quote error
	var quoteErr *QuoteError
	require.ErrorAs(t, err, &quoteErr)
	require.Equal(t, http.StatusServiceUnavailable, quoteErr.StatusCode)
	require.Contains(t, err.Error(), "service down")
	require.Equal(t, 3, attempts)
}

func TestGetSwapQuote_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	_, err := sor.GetSwapQuote(context.Background(), &QuoteRequest{})
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "quote", decodeErr.Op)
}

func TestGetSwapQuote_Concurrent(t *testing.T) {
	// One shared client instance must serve independent concurrent calls
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req QuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fmt.Fprintf(w, `{"pathId": %q}`, "path-"+req.UserAddr)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	const calls = 16
	results := make([]string, calls)
	errs := make([]error, calls)

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			quote, err := sor.GetSwapQuote(context.Background(), &QuoteRequest{
				UserAddr: fmt.Sprintf("user-%d", i),
			})
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = quote.PathID
		}(i)
	}
	wg.Wait()

	for i := 0; i < calls; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, fmt.Sprintf("path-user-%d", i), results[i])
	}
}

func TestGetAssembleResponse_StatusPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sor/assemble", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, "path expired")
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	// The low-level call defers status judgment to the caller
	response, err := sor.GetAssembleResponse(context.Background(), AssembleRequest{PathID: "stale"})
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)
}

func TestAssembleTxData_Success(t *testing.T) {
	signer := common.HexToAddress("0x47E2D28169738039755586743E2dfCF3bd643f86")
	recipient := common.HexToAddress("0x1111111111111111111111111111111111111111")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AssembleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, signer.Hex(), req.UserAddr)
		require.Equal(t, "path-1", req.PathID)
		require.False(t, req.Simulate)
		require.NotNil(t, req.Receiver)
		require.Equal(t, recipient, *req.Receiver)

		// Extra fields at every level must be tolerated
		fmt.Fprint(w, `{
			"blockNumber": 19000001,
			"gasEstimate": 280000,
			"newTopLevelField": [1, 2, 3],
			"transaction": {
				"to": "0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559",
				"from": "0x47E2D28169738039755586743E2dfCF3bd643f86",
				"data": "0x83bd37f9000a",
				"value": "0",
				"gas": 280000,
				"gasPrice": 21000000000,
				"nonce": 7,
				"chainId": 1,
				"unexpected": "field"
			}
		}`)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	transaction, err := sor.AssembleTxData(context.Background(), signer, recipient, "path-1")
	require.NoError(t, err)
	require.Equal(t, "0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559", transaction.To)
	require.Equal(t, "0x83bd37f9000a", transaction.Data)
	require.Equal(t, "0", transaction.Value)
	require.Equal(t, uint64(7), transaction.Nonce)
}

func TestAssembleTxData_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	_, err := sor.AssembleTxData(context.Background(), common.Address{}, common.Address{}, "path-1")
	require.Error(t, err)

	var assembleErr *AssembleError
	require.ErrorAs(t, err, &assembleErr)
	require.Equal(t, http.StatusTooManyRequests, assembleErr.StatusCode)
	require.Contains(t, err.Error(), "429")
	require.Contains(t, err.Error(), "rate limited")
}

func TestAssembleTxData_MissingTransaction(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no transaction member", `{"blockNumber": 1}`},
		{"transaction missing required fields", `{"transaction": {"gas": 100}}`},
		{"transaction missing value", `{"transaction": {"to": "0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559", "data": "0x1234"}}`},
		{"transaction wrong type", `{"transaction": "oops"}`},
		{"not json", `<html>busy</html>`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			sor := newTestClient(t, server.URL)

			_, err := sor.AssembleTxData(context.Background(), common.Address{}, common.Address{}, "p")
			require.Error(t, err)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			require.Equal(t, "assemble", decodeErr.Op)
		})
	}
}

func assembleHandler(t *testing.T, data, value string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"transaction": {"to": "0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559", "from": "0x47E2D28169738039755586743E2dfCF3bd643f86", "data": %q, "value": %q}}`, data, value)
	}
}

func TestBuildBaseTransaction(t *testing.T) {
	server := httptest.NewServer(assembleHandler(t, "0x1234", "1000000000000000000"))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	swap := &SwapContext{
		SignerAddress:   common.HexToAddress("0x47E2D28169738039755586743E2dfCF3bd643f86"),
		OutputRecipient: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		PathID:          "path-1",
		RouterAddress:   common.HexToAddress("0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559"),
	}

	msg, err := sor.BuildBaseTransaction(context.Background(), swap)
	require.NoError(t, err)

	require.Equal(t, []byte{0x12, 0x34}, msg.Data)
	require.Equal(t, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), msg.Value)
	require.NotNil(t, msg.To)
	require.Equal(t, swap.RouterAddress, *msg.To)
	require.Equal(t, swap.SignerAddress, msg.From)

	// Gas parameters stay unset for the sending pipeline
	require.Zero(t, msg.Gas)
	require.Nil(t, msg.GasPrice)
}

func TestBuildBaseTransaction_HexValue(t *testing.T) {
	server := httptest.NewServer(assembleHandler(t, "0x1234", "0xde0b6b3a7640000"))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	msg, err := sor.BuildBaseTransaction(context.Background(), &SwapContext{PathID: "p"})
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), msg.Value)
}

func TestBuildBaseTransaction_UnprefixedData(t *testing.T) {
	// Call data without the 0x prefix is still valid hex
	server := httptest.NewServer(assembleHandler(t, "1234", "0"))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	msg, err := sor.BuildBaseTransaction(context.Background(), &SwapContext{PathID: "p"})
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x34}, msg.Data)
}

func TestBuildBaseTransaction_MissingValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"transaction": {"to": "0xCf5540fFFCdC3d510B18bFcA6d2b9987b0772559", "data": "0x1234"}}`)
	}))
	defer server.Close()

	sor := newTestClient(t, server.URL)

	// A transaction without a value must fail the decode, not come back with
	// value zero
	_, err := sor.BuildBaseTransaction(context.Background(), &SwapContext{PathID: "p"})
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "assemble", decodeErr.Op)
}

func TestBuildBaseTransaction_BadHexData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"odd length", "0x123"},
		{"not hex", "0x12zz"},
		{"unprefixed odd length", "123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(assembleHandler(t, tc.data, "0"))
			defer server.Close()

			sor := newTestClient(t, server.URL)

			_, err := sor.BuildBaseTransaction(context.Background(), &SwapContext{PathID: "p"})
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transaction data")
		})
	}
}
