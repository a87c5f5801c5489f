// Package ethereum implements the contract gateway on top of go-ethereum:
// ERC20 approvals, the Aave V2 lending pool, Chainlink price feeds and the
// WETH funding helper. Every mutating call goes through a Transactor that
// signs, submits and waits for a fixed number of confirmations.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// ChainClient is the subset of *ethclient.Client the gateway uses.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ ChainClient = (*ethclient.Client)(nil)

// Dial connects to the node at url and checks that it serves wantChainID.
// A zero wantChainID skips the check.
func Dial(ctx context.Context, url string, wantChainID int64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, &entity.ConnectivityError{Op: "dial", Err: err}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, &entity.ConnectivityError{Op: "eth_chainId", Err: err}
	}
	if wantChainID != 0 && chainID.Int64() != wantChainID {
		client.Close()
		return nil, &entity.ConfigurationError{
			Reason: fmt.Sprintf("node at %s serves chain %s, configured chain_id is %d", redactURL(url), chainID, wantChainID),
		}
	}
	return client, nil
}

// classifyError maps a node error onto the workflow's error kinds. JSON-RPC
// errors (reverts, nonce or balance checks) mean the network refused the
// call; anything else means the node could not be reached.
func classifyError(method string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rejected *entity.TransactionRejected
	if errors.As(err, &rejected) {
		return err
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &entity.TransactionRejected{Method: method, Err: withRevertData(err)}
	}
	return &entity.ConnectivityError{Op: method, Err: err}
}

// withRevertData appends the revert payload when the node returned one.
func withRevertData(err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) || dataErr.ErrorData() == nil {
		return err
	}
	return fmt.Errorf("%w (data: %v)", err, dataErr.ErrorData())
}

// callView packs method, runs eth_call against the latest block and unpacks the outputs.
func callView(ctx context.Context, client ChainClient, contractABI *abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classifyError(method, err)
	}
	if len(result) == 0 {
		return nil, &entity.TransactionRejected{Method: method, Err: fmt.Errorf("empty result from %s, is it a contract?", to.Hex())}
	}

	unpacked, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}
	return unpacked, nil
}

func redactURL(url string) string {
	const keep = 32
	if len(url) <= keep {
		return url
	}
	return url[:keep] + "..."
}
