package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"afri-swap/config"
	domain "afri-swap/pkg/types"
)

const (
	defaultApproveGas = uint64(100000) // Typical ERC20 approve
	defaultSwapGas    = uint64(300000)
)

// EVMClient implements Client on top of a go-ethereum RPC connection
type EVMClient struct {
	config       config.LedgerConfig
	client       *ethclient.Client
	privateKey   *ecdsa.PrivateKey
	account      common.Address
	swapContract common.Address
	priceOracle  common.Address
	limiter      ratelimit.Limiter
	logger       *zap.Logger
}

// NewEVMClient connects to the configured RPC endpoint. The private key is
// optional; without it the client is read-only.
func NewEVMClient(cfg config.LedgerConfig, logger *zap.Logger) (*EVMClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Validate configuration
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	if cfg.SwapContract != "" && !common.IsHexAddress(cfg.SwapContract) {
		return nil, fmt.Errorf("invalid swap contract address: %s", cfg.SwapContract)
	}
	if cfg.PriceOracle != "" && !common.IsHexAddress(cfg.PriceOracle) {
		return nil, fmt.Errorf("invalid price oracle address: %s", cfg.PriceOracle)
	}

	// Connect to the RPC endpoint
	client, err := ethclient.Dial(cfg.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	e := &EVMClient{
		config:       cfg,
		client:       client,
		swapContract: common.HexToAddress(cfg.SwapContract),
		priceOracle:  common.HexToAddress(cfg.PriceOracle),
		limiter:      newLimiter(cfg.RateLimit),
		logger:       logger.Named("ledger"),
	}

	// Parse private key
	if cfg.PrivateKey != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		e.privateKey = privateKey
		e.account = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	return e, nil
}

func newLimiter(rps int) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(rps)
}

// Account returns the signing account, or the zero address when read-only
func (e *EVMClient) Account() common.Address {
	return e.account
}

// SwapContract returns the swap contract address (the allowance spender)
func (e *EVMClient) SwapContract() common.Address {
	return e.swapContract
}

// CurrentBlockNumber returns the latest block number
func (e *EVMClient) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := e.read(ctx, "eth_blockNumber", func() error {
		n, err := e.client.BlockNumber(ctx)
		number = n
		return err
	})
	return number, err
}

// BlockTimestamp returns the unix timestamp of a block
func (e *EVMClient) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	var timestamp uint64
	err := e.read(ctx, "eth_getBlockByNumber", func() error {
		header, err := e.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return err
		}
		timestamp = header.Time
		return nil
	})
	return timestamp, err
}

// TransferLogs queries ERC-20 Transfer events emitted by token
func (e *EVMClient) TransferLogs(ctx context.Context, token common.Address, fromBlock, toBlock uint64, filter TransferFilter) ([]TransferLog, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{token},
		Topics:    transferTopics(filter),
	}

	var raw []types.Log
	err := e.read(ctx, "eth_getLogs", func() error {
		logs, err := e.client.FilterLogs(ctx, query)
		raw = logs
		return err
	})
	if err != nil {
		return nil, err
	}

	logs := make([]TransferLog, 0, len(raw))
	for _, l := range raw {
		if l.Removed {
			continue
		}
		decoded, err := decodeTransferLog(l)
		if err != nil {
			return nil, err
		}
		logs = append(logs, decoded)
	}
	return logs, nil
}

// EstimateSwap asks the swap contract for the output of amountIn
func (e *EVMClient) EstimateSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	data, err := swapABI.Pack("estimate", tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to pack estimate data: %w", err)
	}

	result, err := e.call(ctx, e.swapContract, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call estimate: %w", err)
	}
	return unpackBigInt(swapABI, "estimate", result)
}

// Allowance returns how much spender may move on behalf of owner
func (e *EVMClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance data: %w", err)
	}

	result, err := e.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}
	return unpackBigInt(erc20ABI, "allowance", result)
}

// BalanceOf returns the account balance of token, or the native balance
// when token is the native asset sentinel
func (e *EVMClient) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if token == domain.NativeAssetAddress {
		var balance *big.Int
		err := e.read(ctx, "eth_getBalance", func() error {
			b, err := e.client.BalanceAt(ctx, account, nil)
			balance = b
			return err
		})
		return balance, err
	}

	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := e.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	return unpackBigInt(erc20ABI, "balanceOf", result)
}

// LatestPrice reads the oracle's reference price for token
func (e *EVMClient) LatestPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	if e.priceOracle == (common.Address{}) {
		return nil, fmt.Errorf("price oracle not configured")
	}

	data, err := priceABI.Pack("getLatestPrice", token)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getLatestPrice data: %w", err)
	}

	result, err := e.call(ctx, e.priceOracle, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call getLatestPrice: %w", err)
	}
	return unpackBigInt(priceABI, "getLatestPrice", result)
}

// Approve submits an allowance-setting transaction
func (e *EVMClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (PendingTx, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return PendingTx{}, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return e.transact(ctx, token, big.NewInt(0), data, defaultApproveGas)
}

// SubmitSwap submits the swap transaction. value carries the native amount
// and may be nil for token inputs.
func (e *EVMClient) SubmitSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, value *big.Int) (PendingTx, error) {
	data, err := swapABI.Pack("swap", tokenIn, tokenOut, amountIn)
	if err != nil {
		return PendingTx{}, fmt.Errorf("failed to pack swap data: %w", err)
	}
	if value == nil {
		value = big.NewInt(0)
	}
	return e.transact(ctx, e.swapContract, value, data, defaultSwapGas)
}

// AwaitConfirmation polls for the receipt until the transaction is mined
func (e *EVMClient) AwaitConfirmation(ctx context.Context, tx PendingTx) error {
	interval := e.config.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var receipt *types.Receipt
	operation := func() error {
		e.limiter.Take()
		r, err := e.client.TransactionReceipt(ctx, tx.Hash)
		if errors.Is(err, ethereum.NotFound) {
			return err
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get transaction receipt: %w", err))
		}
		receipt = r
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s in block %d", ErrReverted, tx.Hash.Hex(), receipt.BlockNumber.Uint64())
	}

	e.logger.Debug("transaction confirmed",
		zap.String("tx_hash", tx.Hash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))
	return nil
}

// Close closes the client connection
func (e *EVMClient) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// call performs an eth_call against contract
func (e *EVMClient) call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	if contract == (common.Address{}) {
		return nil, fmt.Errorf("contract address not configured")
	}

	msg := ethereum.CallMsg{
		From: e.account,
		To:   &contract,
		Data: data,
	}

	var result []byte
	err := e.read(ctx, "eth_call", func() error {
		r, err := e.client.CallContract(ctx, msg, nil)
		result = r
		return err
	})
	return result, err
}

// read runs a rate limited read with exponential retries. NotFound is
// never retried and is reported as ErrNotFound.
func (e *EVMClient) read(ctx context.Context, method string, fn func() error) error {
	start := time.Now()
	operation := func() error {
		e.limiter.Take()
		err := fn()
		if errors.Is(err, ethereum.NotFound) {
			return backoff.Permanent(ErrNotFound)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.config.MaxRetries), ctx)
	err := backoff.Retry(operation, b)

	e.logger.Debug("rpc call",
		zap.String("method", method),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))
	return err
}

// transact builds, signs and sends a legacy transaction
func (e *EVMClient) transact(ctx context.Context, to common.Address, value *big.Int, data []byte, fallbackGas uint64) (PendingTx, error) {
	if e.privateKey == nil {
		return PendingTx{}, ErrNoSigner
	}
	if to == (common.Address{}) {
		return PendingTx{}, fmt.Errorf("contract address not configured")
	}

	// Get nonce
	e.limiter.Take()
	nonce, err := e.client.PendingNonceAt(ctx, e.account)
	if err != nil {
		return PendingTx{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	// Get gas price
	gasPrice, err := e.getGasPrice(ctx)
	if err != nil {
		return PendingTx{}, err
	}

	// Estimate gas limit if not provided
	gasLimit := fallbackGas
	if e.config.GasLimit != nil {
		gasLimit = *e.config.GasLimit
	} else {
		msg := ethereum.CallMsg{
			From:  e.account,
			To:    &to,
			Value: value,
			Data:  data,
		}
		e.limiter.Take()
		estimatedGas, err := e.client.EstimateGas(ctx, msg)
		if err == nil {
			gasLimit = estimatedGas * 120 / 100 // Add 20% buffer
		} else {
			e.logger.Debug("gas estimation failed, using fallback",
				zap.Uint64("gas_limit", gasLimit), zap.Error(err))
		}
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	// Sign transaction
	chainID := big.NewInt(e.config.ChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), e.privateKey)
	if err != nil {
		return PendingTx{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	// Send transaction
	e.limiter.Take()
	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return PendingTx{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	e.logger.Info("transaction submitted",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce))

	return PendingTx{Hash: signedTx.Hash()}, nil
}

// getGasPrice returns the gas price to use for transactions
func (e *EVMClient) getGasPrice(ctx context.Context) (*big.Int, error) {
	// Use configured gas price if available
	if e.config.GasPrice != nil {
		return big.NewInt(*e.config.GasPrice), nil
	}

	// Otherwise, get current gas price from network
	e.limiter.Take()
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	return gasPrice, nil
}
