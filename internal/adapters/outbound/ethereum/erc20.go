package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

const (
	methodApprove   = "approve"
	methodBalanceOf = "balanceOf"
)

// Token implements outbound.TokenGateway for any ERC20.
type Token struct {
	tx     *Transactor
	abi    *abi.ABI
	logger *slog.Logger
}

var _ outbound.TokenGateway = (*Token)(nil)

// NewToken creates an ERC20 gateway that sends from tx's account.
func NewToken(tx *Transactor, logger *slog.Logger) (*Token, error) {
	if tx == nil {
		return nil, fmt.Errorf("transactor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	erc20ABI, err := abis.GetERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("loading ERC20 ABI: %w", err)
	}
	return &Token{tx: tx, abi: erc20ABI, logger: logger.With("component", "erc20")}, nil
}

// Approve authorizes spender to transfer up to amount of owner's token.
// owner must be the signing account.
func (t *Token) Approve(ctx context.Context, token, owner, spender common.Address, amount *big.Int) (*entity.TxReceipt, error) {
	if owner != t.tx.From() {
		return nil, fmt.Errorf("approve: owner %s is not the signing account %s", owner.Hex(), t.tx.From().Hex())
	}

	data, err := t.abi.Pack(methodApprove, spender, amount)
	if err != nil {
		return nil, fmt.Errorf("packing approve: %w", err)
	}

	t.logger.Debug("approving", "token", token.Hex(), "spender", spender.Hex(), "amount", amount)
	return t.tx.Transact(ctx, methodApprove, token, data, nil)
}

// BalanceOf returns owner's balance of token in base units.
func (t *Token) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := callView(ctx, t.tx.Client(), t.abi, token, methodBalanceOf, owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected return type %T from balanceOf", out[0])
	}
	return balance, nil
}
