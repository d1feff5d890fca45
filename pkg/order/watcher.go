package order

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"odos-swap/pkg/client"
)

const (
	DefaultCheckInterval = 30 * time.Second // Check prices every 30 seconds
	MinCheckInterval     = 10 * time.Second // Minimum interval to avoid rate limiting
)

// Sender broadcasts completed swap transactions. Satisfied by
// execute.Executor.
type Sender interface {
	SignerAddress() common.Address
	EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error)
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (string, error)
}

// Watcher polls prices for active limit orders and executes them when their
// trigger condition is met
type Watcher struct {
	storage  *Storage
	api      *client.SorV2
	sender   Sender
	chainID  int64
	slippage float64
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewWatcher creates a watcher over the given storage. The sender signs on a
// single chain, so the watcher only considers orders for that chain.
func NewWatcher(storage *Storage, api *client.SorV2, sender Sender, chainID int64, slippagePercent float64) *Watcher {
	return &Watcher{
		storage:  storage,
		api:      api,
		sender:   sender,
		chainID:  chainID,
		slippage: slippagePercent,
		interval: DefaultCheckInterval,
	}
}

// SetCheckInterval sets the price check interval
func (w *Watcher) SetCheckInterval(interval time.Duration) {
	if interval < MinCheckInterval {
		interval = MinCheckInterval
	}
	w.interval = interval
}

// Start blocks, checking all active orders on every tick until Stop is
// called or the context is cancelled. Per-order failures are recorded on the
// order, not returned. A stopped watcher can be started again.
func (w *Watcher) Start(ctx context.Context, onEvent func(order *LimitOrder, message string)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Check immediately first, then on every tick
	w.CheckOnce(ctx, onEvent)

	for {
		select {
		case <-ticker.C:
			w.CheckOnce(ctx, onEvent)
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop signals a running watcher to exit
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopChan)
		w.running = false
	}
}

// CheckOnce evaluates every active order a single time
func (w *Watcher) CheckOnce(ctx context.Context, onEvent func(order *LimitOrder, message string)) {
	for _, o := range w.storage.Active() {
		if o.ChainID != w.chainID {
			continue
		}
		if err := w.checkOrder(ctx, o, onEvent); err != nil && onEvent != nil {
			onEvent(o, fmt.Sprintf("check failed: %v", err))
		}
	}
}

// checkOrder prices one order and executes it when triggered
func (w *Watcher) checkOrder(ctx context.Context, o *LimitOrder, onEvent func(order *LimitOrder, message string)) error {
	quote, price, err := w.currentPrice(ctx, o)
	if err != nil {
		return err
	}

	o.LastPrice = price.String()
	if err := w.storage.Update(o); err != nil {
		return err
	}

	triggered, err := o.Triggered(price)
	if err != nil {
		return err
	}
	if !triggered {
		if onEvent != nil {
			onEvent(o, fmt.Sprintf("price %s, waiting for %s %s", price, o.Condition, o.TriggerPrice))
		}
		return nil
	}

	if onEvent != nil {
		onEvent(o, fmt.Sprintf("triggered at price %s", price))
	}

	txHash, err := w.executeOrder(ctx, o, quote)
	if err != nil {
		o.Status = StatusFailed
		o.ErrorMessage = err.Error()
		_ = w.storage.Update(o)
		return err
	}

	o.Status = StatusExecuted
	o.ExecutedPrice = price.String()
	o.TxHash = txHash
	o.ErrorMessage = ""
	if err := w.storage.Update(o); err != nil {
		return err
	}

	if onEvent != nil {
		onEvent(o, fmt.Sprintf("executed, tx %s", txHash))
	}
	return nil
}

// currentPrice quotes the order's full amount and derives the pair price in
// dest tokens per source token
func (w *Watcher) currentPrice(ctx context.Context, o *LimitOrder) (*client.SingleQuoteResponse, decimal.Decimal, error) {
	amountIn, err := o.AmountBaseUnits()
	if err != nil {
		return nil, decimal.Zero, err
	}

	quote, err := w.api.GetSwapQuote(ctx, &client.QuoteRequest{
		ChainID:              o.ChainID,
		InputTokens:          []client.InputToken{{TokenAddress: o.SourceAddress, Amount: amountIn}},
		OutputTokens:         []client.OutputToken{{TokenAddress: o.DestAddress, Proportion: 1}},
		UserAddr:             w.sender.SignerAddress().Hex(),
		SlippageLimitPercent: w.slippage,
	})
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to get quote: %w", err)
	}

	if len(quote.OutAmounts) == 0 {
		return nil, decimal.Zero, fmt.Errorf("quote has no output amounts")
	}

	out, err := decimal.NewFromString(quote.OutAmounts[0])
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("invalid output amount: %w", err)
	}
	amount, err := decimal.NewFromString(o.Amount)
	if err != nil || amount.IsZero() {
		return nil, decimal.Zero, fmt.Errorf("invalid order amount %q", o.Amount)
	}

	price := out.Shift(-o.DestDecimals).Div(amount)
	return quote, price, nil
}

// executeOrder runs the assemble/build/send pipeline for a triggered order
// using the path ID of the quote that triggered it
func (w *Watcher) executeOrder(ctx context.Context, o *LimitOrder, quote *client.SingleQuoteResponse) (string, error) {
	router, err := client.RouterAddress(o.ChainID)
	if err != nil {
		return "", err
	}

	signer := w.sender.SignerAddress()
	receiver := signer
	if o.Receiver != "" {
		if !common.IsHexAddress(o.Receiver) {
			return "", fmt.Errorf("invalid receiver address: %s", o.Receiver)
		}
		receiver = common.HexToAddress(o.Receiver)
	}

	// ERC20 inputs need a router allowance before the swap can clear
	if o.SourceAddress != client.NativeTokenAddress {
		amountIn, err := o.AmountBaseUnits()
		if err != nil {
			return "", err
		}
		amount, ok := new(big.Int).SetString(amountIn, 10)
		if !ok {
			return "", fmt.Errorf("invalid amount %q", amountIn)
		}
		if _, err := w.sender.EnsureAllowance(ctx, common.HexToAddress(o.SourceAddress), router, amount); err != nil {
			return "", fmt.Errorf("failed to ensure allowance: %w", err)
		}
	}

	msg, err := w.api.BuildBaseTransaction(ctx, &client.SwapContext{
		SignerAddress:   signer,
		OutputRecipient: receiver,
		PathID:          quote.PathID,
		RouterAddress:   router,
	})
	if err != nil {
		return "", err
	}

	return w.sender.SendTransaction(ctx, msg)
}
