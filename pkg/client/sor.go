package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	quotePath    = "/sor/quote/v2"
	assemblePath = "/sor/assemble"
)

// SorV2 is a client for the Odos Smart Order Routing V2 API. A single
// instance is safe for concurrent use; it holds no per-call state.
type SorV2 struct {
	client *HTTPClient
}

// New creates a client with the default configuration
func New() (*SorV2, error) {
	httpClient, err := NewHTTPClient()
	if err != nil {
		return nil, err
	}
	return &SorV2{client: httpClient}, nil
}

// NewWithConfig creates a client with the given configuration
func NewWithConfig(config ClientConfig) (*SorV2, error) {
	httpClient, err := NewHTTPClientWithConfig(config)
	if err != nil {
		return nil, err
	}
	return &SorV2{client: httpClient}, nil
}

// Config returns the client configuration
func (s *SorV2) Config() ClientConfig {
	return s.client.Config()
}

// GetSwapQuote requests a swap quote from the Odos API
func (s *SorV2) GetSwapQuote(ctx context.Context, quoteRequest *QuoteRequest) (*SingleQuoteResponse, error) {
	body, err := json.Marshal(quoteRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote request: %w", err)
	}

	response, err := s.client.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, s.client.endpoint(quotePath), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &QuoteError{
			StatusCode: response.StatusCode,
			Body:       readErrorBody(response.Body, unknownQuoteError),
		}
	}

	var quote SingleQuoteResponse
	if err := json.NewDecoder(response.Body).Decode(&quote); err != nil {
		return nil, &DecodeError{Op: "quote", Err: err}
	}
	return &quote, nil
}

// GetAssembleResponse posts an assemble request and returns the raw HTTP
// response. HTTP error statuses are not treated as failures here; callers
// needing custom handling (e.g. simulation mode) inspect status and body
// themselves. The caller owns the response body.
func (s *SorV2) GetAssembleResponse(ctx context.Context, assembleRequest AssembleRequest) (*http.Response, error) {
	body, err := json.Marshal(assembleRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal assemble request: %w", err)
	}

	return s.client.ExecuteWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, s.client.endpoint(assemblePath), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// AssembleTxData assembles transaction data for a quoted path
func (s *SorV2) AssembleTxData(ctx context.Context, signerAddress, outputRecipient common.Address, pathID string) (TransactionData, error) {
	receiver := outputRecipient
	assembleRequest := AssembleRequest{
		UserAddr: signerAddress.Hex(),
		PathID:   pathID,
		Simulate: false,
		Receiver: &receiver,
	}

	response, err := s.GetAssembleResponse(ctx, assembleRequest)
	if err != nil {
		return TransactionData{}, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return TransactionData{}, &AssembleError{
			StatusCode: response.StatusCode,
			Body:       readErrorBody(response.Body, unknownAssembleError),
		}
	}

	// Decode in two stages: a generic document first, then the transaction
	// member projected into its typed shape. Additive fields anywhere in the
	// payload are tolerated; a missing or malformed transaction is not.
	var document map[string]json.RawMessage
	if err := json.NewDecoder(response.Body).Decode(&document); err != nil {
		return TransactionData{}, &DecodeError{Op: "assemble", Err: err}
	}

	raw, ok := document["transaction"]
	if !ok {
		return TransactionData{}, &DecodeError{Op: "assemble", Err: fmt.Errorf("missing transaction field")}
	}

	var transaction TransactionData
	if err := json.Unmarshal(raw, &transaction); err != nil {
		return TransactionData{}, &DecodeError{Op: "assemble", Err: err}
	}
	if transaction.To == "" || transaction.Data == "" || transaction.Value == "" {
		return TransactionData{}, &DecodeError{Op: "assemble", Err: fmt.Errorf("transaction is missing required fields")}
	}

	return transaction, nil
}

// BuildBaseTransaction assembles a swap and maps it into a transaction
// message ready for gas-parameter completion. Gas price, gas limit and nonce
// are deliberately left unset for the sending pipeline to populate before
// signing.
func (s *SorV2) BuildBaseTransaction(ctx context.Context, swap *SwapContext) (ethereum.CallMsg, error) {
	transaction, err := s.AssembleTxData(ctx, swap.SignerAddress, swap.OutputRecipient, swap.PathID)
	if err != nil {
		return ethereum.CallMsg{}, err
	}

	// The API usually 0x-prefixes call data, but unprefixed hex is accepted
	rawData := transaction.Data
	if !strings.HasPrefix(rawData, "0x") && !strings.HasPrefix(rawData, "0X") {
		rawData = "0x" + rawData
	}
	data, err := hexutil.Decode(rawData)
	if err != nil {
		return ethereum.CallMsg{}, fmt.Errorf("invalid transaction data: %w", err)
	}

	value, err := parseValue(transaction.Value)
	if err != nil {
		return ethereum.CallMsg{}, fmt.Errorf("invalid transaction value: %w", err)
	}

	to := swap.RouterAddress
	return ethereum.CallMsg{
		From:  swap.SignerAddress,
		To:    &to,
		Value: value,
		Data:  data,
	}, nil
}

// readErrorBody reads an error response body best-effort, falling back to a
// placeholder rather than failing the already-failing call a second time
func readErrorBody(body io.Reader, fallback string) string {
	text, err := io.ReadAll(body)
	if err != nil || len(text) == 0 {
		return fallback
	}
	return string(text)
}
