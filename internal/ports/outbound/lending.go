package outbound

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// TokenGateway wraps the ERC20 calls the workflow makes.
type TokenGateway interface {
	// Approve authorizes spender to pull up to amount of owner's token and
	// blocks until the approval transaction is confirmed.
	Approve(ctx context.Context, token, owner, spender common.Address, amount *big.Int) (*entity.TxReceipt, error)

	// BalanceOf returns owner's token balance in base units.
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// LendingPool wraps the lending pool contract. Every mutating call blocks until
// its transaction is confirmed.
type LendingPool interface {
	// Address is the pool address token approvals are granted to. It may
	// need a chain read the first time it is called.
	Address(ctx context.Context) (common.Address, error)

	Deposit(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address) (*entity.TxReceipt, error)
	Borrow(ctx context.Context, asset common.Address, amount *big.Int, rateMode entity.RateMode, onBehalfOf common.Address) (*entity.TxReceipt, error)
	Repay(ctx context.Context, asset common.Address, amount *big.Int, rateMode entity.RateMode, onBehalfOf common.Address) (*entity.TxReceipt, error)

	// GetAccountData reads a fresh position snapshot. It never mutates state.
	GetAccountData(ctx context.Context, account common.Address) (*entity.AccountPosition, error)
}

// PriceOracle reads price feeds.
type PriceOracle interface {
	LatestPrice(ctx context.Context, feed common.Address) (*entity.PriceQuote, error)
}

// Funder tops up the account's collateral token on local networks.
type Funder interface {
	Fund(ctx context.Context) error
}
