package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

// WETHFunder wraps ether into WETH until the account holds MinBalance.
// It is only wired on local and forked networks.
type WETHFunder struct {
	tx         *Transactor
	balances   outbound.TokenGateway
	weth       common.Address
	minBalance *big.Int
	abi        *abi.ABI
	logger     *slog.Logger
}

var _ outbound.Funder = (*WETHFunder)(nil)

// NewWETHFunder creates a funder for the WETH contract at weth. The current
// balance is read through balances.
func NewWETHFunder(tx *Transactor, balances outbound.TokenGateway, weth common.Address, minBalance *big.Int, logger *slog.Logger) (*WETHFunder, error) {
	if tx == nil {
		return nil, fmt.Errorf("transactor cannot be nil")
	}
	if balances == nil {
		return nil, fmt.Errorf("token gateway cannot be nil")
	}
	if minBalance == nil || minBalance.Sign() <= 0 {
		return nil, fmt.Errorf("minimum balance must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	wethABI, err := abis.GetWETHABI()
	if err != nil {
		return nil, fmt.Errorf("loading WETH ABI: %w", err)
	}
	return &WETHFunder{
		tx:         tx,
		balances:   balances,
		weth:       weth,
		minBalance: minBalance,
		abi:        wethABI,
		logger:     logger.With("component", "weth-funder"),
	}, nil
}

// Fund deposits the shortfall between the current WETH balance and the minimum.
func (f *WETHFunder) Fund(ctx context.Context) error {
	balance, err := f.balances.BalanceOf(ctx, f.weth, f.tx.From())
	if err != nil {
		return fmt.Errorf("reading WETH balance: %w", err)
	}

	if balance.Cmp(f.minBalance) >= 0 {
		f.logger.Info("account already funded", "balance", blockchain.FromWei(balance).String())
		return nil
	}

	shortfall := new(big.Int).Sub(f.minBalance, balance)
	data, err := f.abi.Pack(methodDeposit)
	if err != nil {
		return fmt.Errorf("packing deposit: %w", err)
	}

	receipt, err := f.tx.Transact(ctx, "weth.deposit", f.weth, data, shortfall)
	if err != nil {
		return fmt.Errorf("wrapping %s ETH: %w", blockchain.FromWei(shortfall).String(), err)
	}
	f.logger.Info("wrapped ETH into WETH",
		"amount", blockchain.FromWei(shortfall).String(),
		"tx", receipt.TxHash.Hex())
	return nil
}
