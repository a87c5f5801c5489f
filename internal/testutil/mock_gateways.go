package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// CallLog records collaborator calls in the order they happen.
type CallLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *CallLog) Add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *CallLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Index returns the position of the first entry equal to s, or -1.
func (l *CallLog) Index(s string) int {
	for i, e := range l.Entries() {
		if e == s {
			return i
		}
	}
	return -1
}

var mockBlock atomic.Uint64

func mockReceipt(method string) *entity.TxReceipt {
	n := 1000 + mockBlock.Add(1)
	return &entity.TxReceipt{
		Method:        method,
		TxHash:        common.BigToHash(new(big.Int).SetUint64(n)),
		BlockNumber:   n,
		Confirmations: 1,
	}
}

// MockTokenGateway implements outbound.TokenGateway. Approvals are logged as
// submitted and confirmed before returning, like the real blocking gateway.
type MockTokenGateway struct {
	Log         *CallLog
	ApproveFn   func(token, owner, spender common.Address, amount *big.Int) error
	BalanceOfFn func(token, owner common.Address) (*big.Int, error)
}

func (m *MockTokenGateway) Approve(_ context.Context, token, owner, spender common.Address, amount *big.Int) (*entity.TxReceipt, error) {
	m.Log.Add("approve:submitted %s %s", token.Hex(), amount)
	if m.ApproveFn != nil {
		if err := m.ApproveFn(token, owner, spender, amount); err != nil {
			return nil, err
		}
	}
	m.Log.Add("approve:confirmed %s %s", token.Hex(), amount)
	return mockReceipt("approve"), nil
}

func (m *MockTokenGateway) BalanceOf(_ context.Context, token, owner common.Address) (*big.Int, error) {
	if m.BalanceOfFn != nil {
		return m.BalanceOfFn(token, owner)
	}
	return new(big.Int), nil
}

// MockLendingPool implements outbound.LendingPool.
type MockLendingPool struct {
	Log  *CallLog
	Addr common.Address

	// Positions are returned by successive GetAccountData calls; the last one repeats.
	Positions []*entity.AccountPosition

	DepositFn  func(asset common.Address, amount *big.Int) error
	BorrowFn   func(asset common.Address, amount *big.Int, rateMode entity.RateMode) error
	RepayFn    func(asset common.Address, amount *big.Int, rateMode entity.RateMode) error
	QueryErr   error
	AddressErr error

	queries int
}

func (m *MockLendingPool) Address(_ context.Context) (common.Address, error) {
	if m.AddressErr != nil {
		return common.Address{}, m.AddressErr
	}
	return m.Addr, nil
}

func (m *MockLendingPool) Deposit(_ context.Context, asset common.Address, amount *big.Int, _ common.Address) (*entity.TxReceipt, error) {
	m.Log.Add("deposit %s %s", asset.Hex(), amount)
	if m.DepositFn != nil {
		if err := m.DepositFn(asset, amount); err != nil {
			return nil, err
		}
	}
	return mockReceipt("deposit"), nil
}

func (m *MockLendingPool) Borrow(_ context.Context, asset common.Address, amount *big.Int, rateMode entity.RateMode, _ common.Address) (*entity.TxReceipt, error) {
	m.Log.Add("borrow %s %s %d", asset.Hex(), amount, rateMode)
	if m.BorrowFn != nil {
		if err := m.BorrowFn(asset, amount, rateMode); err != nil {
			return nil, err
		}
	}
	return mockReceipt("borrow"), nil
}

func (m *MockLendingPool) Repay(_ context.Context, asset common.Address, amount *big.Int, rateMode entity.RateMode, _ common.Address) (*entity.TxReceipt, error) {
	m.Log.Add("repay %s %s %d", asset.Hex(), amount, rateMode)
	if m.RepayFn != nil {
		if err := m.RepayFn(asset, amount, rateMode); err != nil {
			return nil, err
		}
	}
	return mockReceipt("repay"), nil
}

func (m *MockLendingPool) GetAccountData(_ context.Context, _ common.Address) (*entity.AccountPosition, error) {
	m.Log.Add("getAccountData")
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.Positions) == 0 {
		return &entity.AccountPosition{}, nil
	}
	i := m.queries
	if i >= len(m.Positions) {
		i = len(m.Positions) - 1
	}
	m.queries++
	return m.Positions[i], nil
}

// MockPriceOracle implements outbound.PriceOracle.
type MockPriceOracle struct {
	Log   *CallLog
	Quote *entity.PriceQuote
	Err   error
}

func (m *MockPriceOracle) LatestPrice(_ context.Context, feed common.Address) (*entity.PriceQuote, error) {
	m.Log.Add("latestPrice %s", feed.Hex())
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Quote, nil
}

// MockFunder implements outbound.Funder.
type MockFunder struct {
	Log *CallLog
	Err error
}

func (m *MockFunder) Fund(_ context.Context) error {
	m.Log.Add("fund")
	return m.Err
}

// RecordingReporter implements outbound.Reporter by keeping every line.
type RecordingReporter struct {
	mu    sync.Mutex
	Lines []string
}

func (r *RecordingReporter) Stepf(format string, args ...any)    { r.add(format, args...) }
func (r *RecordingReporter) Infof(format string, args ...any)    { r.add(format, args...) }
func (r *RecordingReporter) Successf(format string, args ...any) { r.add(format, args...) }

func (r *RecordingReporter) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}
