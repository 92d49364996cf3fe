package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LimitOrder is the order shape handed to the account service for on-chain
// submission. Quantity is in base units, Price in quote units per base unit.
type LimitOrder struct {
	MarketID  string
	Side      Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	ExpiresAt time.Time
}

// AccountService is the narrow interface over the blockchain account: balance
// and allowance reads plus the three transaction kinds the seeder issues.
// Every transaction call blocks until the transaction is accepted by the node
// and returns its transaction id. All amounts are in display units (ether,
// tokens), never wei.
type AccountService interface {
	// Address returns the account's checksummed address.
	Address() string
	NativeBalance(ctx context.Context) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, tokenAddr string) (decimal.Decimal, error)
	Allowance(ctx context.Context, tokenAddr string) (decimal.Decimal, error)
	// ApproveUnlimited grants an effectively unlimited spend allowance for the
	// token and returns the transaction id.
	ApproveUnlimited(ctx context.Context, tokenAddr string) (string, error)
	// WrapNative converts amount of the native asset into its wrapped token
	// form and returns the transaction id.
	WrapNative(ctx context.Context, amount decimal.Decimal) (string, error)
	// SubmitLimitOrder places one limit order and returns the transaction id.
	SubmitLimitOrder(ctx context.Context, order LimitOrder) (string, error)
}
