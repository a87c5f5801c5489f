package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RPCError mimics the JSON-RPC error values go-ethereum returns for reverts
// and rejected transactions. It satisfies rpc.Error and rpc.DataError.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *RPCError) Error() string          { return e.Message }
func (e *RPCError) ErrorCode() int         { return e.Code }
func (e *RPCError) ErrorData() interface{} { return e.Data }

// ErrExecutionReverted is what a node answers when a simulated call reverts.
var ErrExecutionReverted = &RPCError{Code: 3, Message: "execution reverted"}

// MockChainClient implements the go-ethereum client surface used by the
// gateway. Submitted transactions are mined one block after the head at
// submission time; every BlockNumber call advances the head by one.
type MockChainClient struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	Head         uint64

	// BaseFee is reported on the latest header; nil simulates a pre-London chain.
	BaseFee *big.Int

	Balances map[common.Address]*big.Int

	// PendingPolls is how many receipt polls answer NotFound before a receipt appears.
	PendingPolls int

	CallFn        func(msg ethereum.CallMsg) ([]byte, error)
	EstimateGasFn func(msg ethereum.CallMsg) (uint64, error)
	// SendFn rejects a transaction at submission when it returns an error.
	SendFn func(tx *types.Transaction) error
	// RevertFn marks a mined transaction as failed (status 0).
	RevertFn func(tx *types.Transaction) bool

	ChainErr error

	nonces   map[common.Address]uint64
	calls    []ethereum.CallMsg
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	polls    map[common.Hash]int
}

func NewMockChainClient(chainID int64) *MockChainClient {
	return &MockChainClient{
		ChainIDValue: big.NewInt(chainID),
		Head:         100,
		BaseFee:      big.NewInt(1_000_000_000),
		Balances:     make(map[common.Address]*big.Int),
		nonces:       make(map[common.Address]uint64),
		receipts:     make(map[common.Hash]*types.Receipt),
		polls:        make(map[common.Hash]int),
	}
}

// Sent returns the submitted transactions in order.
func (m *MockChainClient) Sent() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Transaction(nil), m.sent...)
}

func (m *MockChainClient) ChainID(_ context.Context) (*big.Int, error) {
	if m.ChainErr != nil {
		return nil, m.ChainErr
	}
	return new(big.Int).Set(m.ChainIDValue), nil
}

func (m *MockChainClient) BlockNumber(_ context.Context) (uint64, error) {
	if m.ChainErr != nil {
		return 0, m.ChainErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Head++
	return m.Head, nil
}

func (m *MockChainClient) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if m.ChainErr != nil {
		return nil, m.ChainErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := new(big.Int).SetUint64(m.Head)
	if number != nil {
		n = number
	}
	return &types.Header{Number: n, BaseFee: m.BaseFee}, nil
}

func (m *MockChainClient) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if m.ChainErr != nil {
		return nil, m.ChainErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.Balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *MockChainClient) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	if m.ChainErr != nil {
		return 0, m.ChainErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonces[account], nil
}

func (m *MockChainClient) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (m *MockChainClient) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (m *MockChainClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if m.ChainErr != nil {
		return 0, m.ChainErr
	}
	if m.EstimateGasFn != nil {
		return m.EstimateGasFn(msg)
	}
	return 100_000, nil
}

func (m *MockChainClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msg)
	m.mu.Unlock()

	if m.ChainErr != nil {
		return nil, m.ChainErr
	}
	if m.CallFn != nil {
		return m.CallFn(msg)
	}
	return nil, errors.New("CallContract not mocked")
}

// Calls returns every eth_call received, in order.
func (m *MockChainClient) Calls() []ethereum.CallMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ethereum.CallMsg(nil), m.calls...)
}

func (m *MockChainClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if m.ChainErr != nil {
		return m.ChainErr
	}
	if m.SendFn != nil {
		if err := m.SendFn(tx); err != nil {
			return err
		}
	}

	from, err := types.Sender(types.LatestSignerForChainID(m.ChainIDValue), tx)
	if err != nil {
		return &RPCError{Code: -32000, Message: fmt.Sprintf("invalid sender: %v", err)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.Nonce() != m.nonces[from] {
		return &RPCError{Code: -32000, Message: fmt.Sprintf("nonce too low: have %d, want %d", tx.Nonce(), m.nonces[from])}
	}
	m.nonces[from]++

	status := types.ReceiptStatusSuccessful
	if m.RevertFn != nil && m.RevertFn(tx) {
		status = types.ReceiptStatusFailed
	}
	m.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(m.Head + 1),
		GasUsed:     tx.Gas() / 2,
	}
	m.sent = append(m.sent, tx)
	return nil
}

func (m *MockChainClient) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if m.ChainErr != nil {
		return nil, m.ChainErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if m.polls[hash] < m.PendingPolls {
		m.polls[hash]++
		return nil, ethereum.NotFound
	}
	return r, nil
}
