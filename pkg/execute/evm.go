package execute

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"odos-swap/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ERC20 functions needed to clear a swap: router allowance and approval,
// plus balance checks
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}
]`

// Executor completes, signs and broadcasts swap transactions on one EVM
// network. It fills the gas price, gas limit and nonce that the API client
// deliberately leaves unset.
type Executor struct {
	network    config.EVMNetwork
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	erc20      abi.ABI
}

// NewExecutor creates an executor for a configured network
func NewExecutor(network config.EVMNetwork) (*Executor, error) {
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for chain %d", network.ChainID)
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for chain %d", network.ChainID)
	}

	client, err := ethclient.Dial(network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(network.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &Executor{
		network:    network,
		client:     client,
		privateKey: privateKey,
		erc20:      parsedABI,
	}, nil
}

// SignerAddress returns the address derived from the configured key
func (e *Executor) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(e.privateKey.PublicKey)
}

// SendTransaction completes the base transaction message with nonce and gas
// parameters, signs it and broadcasts it. Returns the transaction hash.
func (e *Executor) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (string, error) {
	if msg.To == nil {
		return "", fmt.Errorf("transaction has no destination")
	}

	from := e.SignerAddress()

	nonce, err := e.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := e.gasPrice(ctx)
	if err != nil {
		return "", err
	}

	gasLimit, err := e.gasLimit(ctx, msg)
	if err != nil {
		return "", err
	}

	tx := buildTransaction(nonce, gasPrice, gasLimit, msg)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(e.network.ChainID)), e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// buildTransaction assembles a legacy transaction from a completed message
func buildTransaction(nonce uint64, gasPrice *big.Int, gasLimit uint64, msg ethereum.CallMsg) *types.Transaction {
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	return types.NewTransaction(nonce, *msg.To, value, gasLimit, gasPrice, msg.Data)
}

// gasPrice returns the configured gas price, or the node's suggestion
func (e *Executor) gasPrice(ctx context.Context) (*big.Int, error) {
	if e.network.GasPrice != nil {
		return big.NewInt(*e.network.GasPrice), nil
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// gasLimit returns the configured gas limit, or an estimate with a 20% buffer
func (e *Executor) gasLimit(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if e.network.GasLimit != nil {
		return *e.network.GasLimit, nil
	}

	estimated, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return estimated * 120 / 100, nil
}

// BalanceOf returns the ERC20 token balance of an account
func (e *Executor) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	result, err := e.callERC20(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

// Allowance returns how much of a token the spender may move for the owner
func (e *Executor) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	result, err := e.callERC20(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to get allowance: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

// Approve submits an ERC20 approval for the spender and returns the tx hash
func (e *Executor) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error) {
	data, err := e.erc20.Pack("approve", spender, amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack approve data: %w", err)
	}

	to := token
	return e.SendTransaction(ctx, ethereum.CallMsg{
		From: e.SignerAddress(),
		To:   &to,
		Data: data,
	})
}

// EnsureAllowance checks the spender's allowance and submits an approval for
// the exact amount if it is short. Returns the approval tx hash, or empty
// when no approval was needed.
func (e *Executor) EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error) {
	allowance, err := e.Allowance(ctx, token, e.SignerAddress(), spender)
	if err != nil {
		return "", err
	}

	if allowance.Cmp(amount) >= 0 {
		return "", nil
	}

	return e.Approve(ctx, token, spender, amount)
}

// callERC20 makes a read-only contract call against a token
func (e *Executor) callERC20(ctx context.Context, token common.Address, method string, args ...interface{}) ([]byte, error) {
	data, err := e.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &token,
		Data: data,
	}
	return e.client.CallContract(ctx, msg, nil)
}

// Close closes the client connection
func (e *Executor) Close() {
	if e.client != nil {
		e.client.Close()
	}
}
