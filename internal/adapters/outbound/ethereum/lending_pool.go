package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

const (
	methodGetLendingPool     = "getLendingPool"
	methodDeposit            = "deposit"
	methodBorrow             = "borrow"
	methodRepay              = "repay"
	methodGetUserAccountData = "getUserAccountData"
)

// referralCode is always zero; Aave no longer pays referrals.
const referralCode uint16 = 0

// LendingPool implements outbound.LendingPool for Aave V2. The pool proxy is
// looked up through the addresses provider on first use, not at construction.
type LendingPool struct {
	tx       *Transactor
	provider common.Address
	abi      *abi.ABI
	logger   *slog.Logger

	mu      sync.Mutex
	address common.Address
}

var _ outbound.LendingPool = (*LendingPool)(nil)

// NewLendingPool returns a gateway for the pool registered at provider.
// It makes no calls.
func NewLendingPool(tx *Transactor, provider common.Address, logger *slog.Logger) (*LendingPool, error) {
	if tx == nil {
		return nil, fmt.Errorf("transactor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolABI, err := abis.GetLendingPoolABI()
	if err != nil {
		return nil, fmt.Errorf("loading LendingPool ABI: %w", err)
	}

	return &LendingPool{
		tx:       tx,
		provider: provider,
		abi:      poolABI,
		logger:   logger.With("component", "lending-pool"),
	}, nil
}

// ResolveLendingPool calls getLendingPool() on a LendingPoolAddressesProvider.
func ResolveLendingPool(ctx context.Context, client ChainClient, provider common.Address) (common.Address, error) {
	providerABI, err := abis.GetLendingPoolAddressesProviderABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("loading LendingPoolAddressesProvider ABI: %w", err)
	}

	out, err := callView(ctx, client, providerABI, provider, methodGetLendingPool)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving lending pool from provider %s: %w", provider.Hex(), err)
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected return type from getLendingPool")
	}
	if addr == (common.Address{}) {
		return common.Address{}, &entity.ConfigurationError{Key: "lending_pool_addresses_provider", Reason: "provider returned zero lending pool"}
	}
	return addr, nil
}

// Address returns the pool address, asking the provider the first time.
// A failed lookup is retried on the next call.
func (p *LendingPool) Address(ctx context.Context) (common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.address != (common.Address{}) {
		return p.address, nil
	}
	addr, err := ResolveLendingPool(ctx, p.tx.Client(), p.provider)
	if err != nil {
		return common.Address{}, err
	}
	p.address = addr
	p.logger.Info("lending pool resolved", "provider", p.provider.Hex(), "pool", addr.Hex())
	return addr, nil
}

// Deposit supplies amount of asset as collateral.
func (p *LendingPool) Deposit(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address) (*entity.TxReceipt, error) {
	return p.transact(ctx, methodDeposit, asset, amount, onBehalfOf, referralCode)
}

// Borrow draws amount of asset against the deposited collateral.
func (p *LendingPool) Borrow(ctx context.Context, asset common.Address, amount *big.Int, rateMode entity.RateMode, onBehalfOf common.Address) (*entity.TxReceipt, error) {
	return p.transact(ctx, methodBorrow, asset, amount, big.NewInt(int64(rateMode)), referralCode, onBehalfOf)
}

// Repay pays back up to amount of asset. MaxUint256 repays the whole debt.
func (p *LendingPool) Repay(ctx context.Context, asset common.Address, amount *big.Int, rateMode entity.RateMode, onBehalfOf common.Address) (*entity.TxReceipt, error) {
	return p.transact(ctx, methodRepay, asset, amount, big.NewInt(int64(rateMode)), onBehalfOf)
}

func (p *LendingPool) transact(ctx context.Context, method string, args ...interface{}) (*entity.TxReceipt, error) {
	pool, err := p.Address(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	return p.tx.Transact(ctx, method, pool, data, nil)
}

// GetAccountData reads getUserAccountData(account) at the latest block.
func (p *LendingPool) GetAccountData(ctx context.Context, account common.Address) (*entity.AccountPosition, error) {
	pool, err := p.Address(ctx)
	if err != nil {
		return nil, err
	}
	out, err := callView(ctx, p.tx.Client(), p.abi, pool, methodGetUserAccountData, account)
	if err != nil {
		return nil, err
	}
	if len(out) != 6 {
		return nil, fmt.Errorf("expected 6 values from getUserAccountData, got %d", len(out))
	}

	values := make([]*big.Int, len(out))
	for i, v := range out {
		b, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unexpected type %T at getUserAccountData output %d", v, i)
		}
		values[i] = b
	}

	return &entity.AccountPosition{
		TotalCollateral:             values[0],
		TotalDebt:                   values[1],
		AvailableToBorrow:           values[2],
		CurrentLiquidationThreshold: values[3],
		LTV:                         values[4],
		HealthFactor:                values[5],
	}, nil
}
