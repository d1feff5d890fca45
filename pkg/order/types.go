package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceCondition defines when an order should be triggered
type PriceCondition string

const (
	PriceAbove PriceCondition = "above" // Trigger when price goes above target
	PriceBelow PriceCondition = "below" // Trigger when price goes below target
)

// Status defines the current state of a limit order
type Status string

const (
	StatusActive    Status = "active"    // Order is being watched
	StatusExecuted  Status = "executed"  // Order has been swapped on-chain
	StatusCancelled Status = "cancelled" // Order was cancelled
	StatusFailed    Status = "failed"    // Execution failed
)

// LimitOrder is a single-shot swap that executes when the pair price crosses
// a target. Token addresses and decimals are resolved once at creation so
// the watcher does not re-query the token list on every poll.
type LimitOrder struct {
	// Identity
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`

	// Swap parameters
	ChainID        int64  `json:"chain_id"`
	SourceToken    string `json:"source_token"`     // Symbol to sell (e.g. "WETH")
	SourceAddress  string `json:"source_address"`   // Resolved token address
	SourceDecimals int32  `json:"source_decimals"`
	DestToken      string `json:"dest_token"`       // Symbol to buy (e.g. "USDC")
	DestAddress    string `json:"dest_address"`
	DestDecimals   int32  `json:"dest_decimals"`
	Amount         string `json:"amount"` // Human units of the source token
	Receiver       string `json:"receiver"`

	// Trigger
	TriggerPrice string         `json:"trigger_price"` // Dest tokens per source token
	Condition    PriceCondition `json:"condition"`

	// Execution tracking
	Status        Status `json:"status"`
	LastPrice     string `json:"last_price,omitempty"`
	ExecutedPrice string `json:"executed_price,omitempty"`
	TxHash        string `json:"tx_hash,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Validate checks if the order has valid parameters
func (o *LimitOrder) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("order name is required")
	}
	if o.ChainID == 0 {
		return fmt.Errorf("chain ID is required")
	}
	if o.SourceAddress == "" || o.DestAddress == "" {
		return fmt.Errorf("token addresses must be resolved")
	}

	amount, err := decimal.NewFromString(o.Amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("amount must be a positive number")
	}

	trigger, err := decimal.NewFromString(o.TriggerPrice)
	if err != nil || !trigger.IsPositive() {
		return fmt.Errorf("trigger price must be a positive number")
	}

	if o.Condition != PriceAbove && o.Condition != PriceBelow {
		return fmt.Errorf("condition must be %q or %q", PriceAbove, PriceBelow)
	}
	return nil
}

// CanExecute reports whether the order is still eligible for execution
func (o *LimitOrder) CanExecute() bool {
	return o.Status == StatusActive
}

// Triggered reports whether the current price satisfies the order condition
func (o *LimitOrder) Triggered(price decimal.Decimal) (bool, error) {
	trigger, err := decimal.NewFromString(o.TriggerPrice)
	if err != nil {
		return false, fmt.Errorf("invalid trigger price: %w", err)
	}

	switch o.Condition {
	case PriceAbove:
		return price.GreaterThanOrEqual(trigger), nil
	case PriceBelow:
		return price.LessThanOrEqual(trigger), nil
	default:
		return false, fmt.Errorf("unknown price condition: %s", o.Condition)
	}
}

// AmountBaseUnits converts the human amount into source-token base units
func (o *LimitOrder) AmountBaseUnits() (string, error) {
	amount, err := decimal.NewFromString(o.Amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}
	return amount.Shift(o.SourceDecimals).BigInt().String(), nil
}
