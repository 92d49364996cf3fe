// Package eth implements the account service over a JSON-RPC Ethereum node:
// balance and allowance reads, token approvals, native asset wrapping and
// on-chain limit order submission.
package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/seedliq/makerbot/internal/domain"
)

// ERC-20 and WETH function selectors, first four bytes of the keccak hash of
// the canonical signature.
var (
	selBalanceOf = ethcrypto.Keccak256([]byte("balanceOf(address)"))[:4]
	selAllowance = ethcrypto.Keccak256([]byte("allowance(address,address)"))[:4]
	selApprove   = ethcrypto.Keccak256([]byte("approve(address,uint256)"))[:4]
	selDecimals  = ethcrypto.Keccak256([]byte("decimals()"))[:4]
	selDeposit   = ethcrypto.Keccak256([]byte("deposit()"))[:4]

	selPlaceLimitOrder = ethcrypto.Keccak256([]byte("placeLimitOrder(bytes32,uint8,uint256,uint256,uint256)"))[:4]
)

// maxUint256 is the allowance value granted by ApproveUnlimited.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// nativeDecimals is the precision of the native asset (wei per ether).
const nativeDecimals = 18

// receiptPollInterval is how often pending transactions are polled for a
// receipt.
const receiptPollInterval = 2 * time.Second

// Config holds the parameters needed to construct an Account.
type Config struct {
	RPCURL string
	// ChainID is used for EIP-155 replay-protected signing.
	ChainID int64
	// GasPriceGwei is the flat gas price applied to every transaction.
	GasPriceGwei float64
	// WrappedNativeAddress is the deposit target for WrapNative.
	WrappedNativeAddress string
	// ExchangeProxyAddress is the allowance spender and order submission target.
	ExchangeProxyAddress string
}

// Account implements domain.AccountService against a live node. All amount
// parameters and results are display units; conversion to and from base units
// happens at this boundary using each token's reported decimals.
type Account struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	// gasPrice is in wei.
	gasPrice *big.Int
	wrapped  common.Address
	spender  common.Address
	logger   *slog.Logger

	// nonceMu serialises nonce allocation across concurrent transaction calls.
	nonceMu sync.Mutex

	// decimalsMu guards decimalsCache, keyed by lowercase token address.
	decimalsMu    sync.Mutex
	decimalsCache map[string]int32
}

var _ domain.AccountService = (*Account)(nil)

// NewAccount dials the node at cfg.RPCURL and returns an Account signing with
// the given key.
func NewAccount(ctx context.Context, cfg Config, key *ecdsa.PrivateKey, logger *slog.Logger) (*Account, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("eth: dialing %s: %w", cfg.RPCURL, err)
	}

	gasPrice := decimal.NewFromFloat(cfg.GasPriceGwei).Shift(9).BigInt()

	return &Account{
		client:        client,
		key:           key,
		address:       ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:       big.NewInt(cfg.ChainID),
		gasPrice:      gasPrice,
		wrapped:       common.HexToAddress(cfg.WrappedNativeAddress),
		spender:       common.HexToAddress(cfg.ExchangeProxyAddress),
		logger:        logger.With("component", "eth"),
		decimalsCache: make(map[string]int32),
	}, nil
}

// Close releases the underlying RPC connection.
func (a *Account) Close() {
	a.client.Close()
}

// Address returns the account's checksummed address.
func (a *Account) Address() string {
	return a.address.Hex()
}

// NativeBalance returns the account's native asset balance in ether units.
func (a *Account) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	wei, err := a.client.BalanceAt(ctx, a.address, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("eth: fetching native balance: %w", err)
	}
	return decimal.NewFromBigInt(wei, -nativeDecimals), nil
}

// TokenBalance returns the account's balance of the given ERC-20 token in
// display units.
func (a *Account) TokenBalance(ctx context.Context, tokenAddr string) (decimal.Decimal, error) {
	token := common.HexToAddress(tokenAddr)

	raw, err := a.callUint256(ctx, token, packCall(selBalanceOf, addressArg(a.address)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("eth: fetching balance of %s: %w", tokenAddr, err)
	}

	dec, err := a.tokenDecimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -dec), nil
}

// Allowance returns the spend allowance granted to the exchange proxy for the
// given token, in display units.
func (a *Account) Allowance(ctx context.Context, tokenAddr string) (decimal.Decimal, error) {
	token := common.HexToAddress(tokenAddr)

	raw, err := a.callUint256(ctx, token, packCall(selAllowance, addressArg(a.address), addressArg(a.spender)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("eth: fetching allowance of %s: %w", tokenAddr, err)
	}

	dec, err := a.tokenDecimals(ctx, token)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -dec), nil
}

// ApproveUnlimited grants the exchange proxy the maximum possible allowance
// for the token. It blocks until the transaction is mined.
func (a *Account) ApproveUnlimited(ctx context.Context, tokenAddr string) (string, error) {
	token := common.HexToAddress(tokenAddr)
	data := packCall(selApprove, addressArg(a.spender), uint256Arg(maxUint256))

	txHash, err := a.sendAndWait(ctx, token, nil, data)
	if err != nil {
		return "", fmt.Errorf("eth: approving %s: %w", tokenAddr, err)
	}
	a.logger.Info("approved unlimited allowance", "token", tokenAddr, "tx", txHash)
	return txHash, nil
}

// WrapNative deposits amount of the native asset into the wrapped token
// contract. It blocks until the transaction is mined.
func (a *Account) WrapNative(ctx context.Context, amount decimal.Decimal) (string, error) {
	value := amount.Shift(nativeDecimals).BigInt()
	if value.Sign() <= 0 {
		return "", fmt.Errorf("eth: wrap amount must be positive, got %s", amount)
	}

	txHash, err := a.sendAndWait(ctx, a.wrapped, value, packCall(selDeposit))
	if err != nil {
		return "", fmt.Errorf("eth: wrapping %s: %w", amount, err)
	}
	a.logger.Info("wrapped native asset", "amount", amount, "tx", txHash)
	return txHash, nil
}

// SubmitLimitOrder places one limit order on the exchange proxy. Quantity and
// price are scaled to 18 decimals on the wire. It blocks until the transaction
// is mined.
func (a *Account) SubmitLimitOrder(ctx context.Context, order domain.LimitOrder) (string, error) {
	var side uint8
	if order.Side == domain.SideAsk {
		side = 1
	}

	marketHash := ethcrypto.Keccak256Hash([]byte(order.MarketID))
	data := packCall(selPlaceLimitOrder,
		marketHash.Bytes(),
		uint256Arg(big.NewInt(int64(side))),
		uint256Arg(order.Quantity.Shift(nativeDecimals).BigInt()),
		uint256Arg(order.Price.Shift(nativeDecimals).BigInt()),
		uint256Arg(big.NewInt(order.ExpiresAt.Unix())),
	)

	txHash, err := a.sendAndWait(ctx, a.spender, nil, data)
	if err != nil {
		return "", fmt.Errorf("eth: submitting %s order on %s: %w", order.Side, order.MarketID, err)
	}
	return txHash, nil
}

// tokenDecimals returns the token's reported decimals, caching the result.
func (a *Account) tokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	key := token.Hex()

	a.decimalsMu.Lock()
	if dec, ok := a.decimalsCache[key]; ok {
		a.decimalsMu.Unlock()
		return dec, nil
	}
	a.decimalsMu.Unlock()

	raw, err := a.callUint256(ctx, token, packCall(selDecimals))
	if err != nil {
		return 0, fmt.Errorf("eth: fetching decimals of %s: %w", key, err)
	}
	dec := int32(raw.Int64())

	a.decimalsMu.Lock()
	a.decimalsCache[key] = dec
	a.decimalsMu.Unlock()
	return dec, nil
}

// callUint256 performs a read-only contract call and interprets the result as
// a single uint256.
func (a *Account) callUint256(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{
		From: a.address,
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("short call result: %d bytes", len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

// sendAndWait signs and broadcasts a transaction, then polls until a receipt
// arrives. A reverted receipt is reported as an error.
func (a *Account) sendAndWait(ctx context.Context, to common.Address, value *big.Int, data []byte) (string, error) {
	a.nonceMu.Lock()
	defer a.nonceMu.Unlock()

	nonce, err := a.client.PendingNonceAt(ctx, a.address)
	if err != nil {
		return "", fmt.Errorf("fetching nonce: %w", err)
	}

	if value == nil {
		value = new(big.Int)
	}
	gasLimit, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  a.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return "", fmt.Errorf("estimating gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: a.gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(a.chainID), a.key)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}

	txHash := signed.Hash()
	a.logger.Debug("transaction broadcast", "tx", txHash.Hex(), "nonce", nonce)

	receipt, err := a.waitMined(ctx, txHash)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("transaction %s reverted", txHash.Hex())
	}
	return txHash.Hex(), nil
}

// waitMined polls for the transaction receipt until the context is cancelled.
func (a *Account) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := a.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for transaction %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// packCall concatenates a selector with 32-byte-aligned arguments.
func packCall(selector []byte, args ...[]byte) []byte {
	data := make([]byte, 0, 4+32*len(args))
	data = append(data, selector...)
	for _, arg := range args {
		data = append(data, arg...)
	}
	return data
}

// addressArg left-pads an address to a 32-byte ABI word.
func addressArg(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

// uint256Arg left-pads an integer to a 32-byte ABI word.
func uint256Arg(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}
