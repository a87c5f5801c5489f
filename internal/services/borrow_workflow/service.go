// Package borrow_workflow runs the deposit, borrow and repay sequence against
// a lending pool. Each mutating step is confirmed before the next one is sent,
// and the first failure aborts the run.
package borrow_workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

// ErrZeroPrice is returned when the price feed answers zero and the borrow
// amount cannot be sized.
var ErrZeroPrice = errors.New("price feed returned zero, cannot size borrow")

// State names one step of the workflow.
type State string

const (
	StateInit           State = "Init"
	StateApproveDeposit State = "Approve-Deposit"
	StateDeposit        State = "Deposit"
	StateQueryDeposit   State = "Query-1"
	StatePrice          State = "Price"
	StateSizeAndBorrow  State = "Size-and-Borrow"
	StateQueryBorrow    State = "Query-2"
	StateRepay          State = "Repay"
	StateDone           State = "Done"
)

// Config holds configuration for the borrow workflow.
type Config struct {
	// DepositAmount is the collateral to deposit, in ether units.
	DepositAmount decimal.Decimal
	// SafetyFactor scales the available borrowing capacity. Must be in (0, 1);
	// zero means unset and selects the default. Callers taking user input
	// reject an explicit zero before building the Config.
	SafetyFactor decimal.Decimal
	RateMode     entity.RateMode
	// RepayDeposit repays DepositAmount in borrow-token base units instead
	// of the whole debt. By default the max-uint256 sentinel is sent.
	RepayDeposit bool
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

func configDefaults() Config {
	return Config{
		DepositAmount: decimal.RequireFromString("0.1"),
		SafetyFactor:  decimal.RequireFromString("0.95"),
		RateMode:      entity.RateModeStable,
		Logger:        slog.Default(),
		Tracer:        otel.Tracer("aave-borrow/borrow_workflow"),
	}
}

// Gateways groups the contract collaborators the workflow talks to.
type Gateways struct {
	Token  outbound.TokenGateway
	Pool   outbound.LendingPool
	Oracle outbound.PriceOracle
	// Funder is only required on local networks.
	Funder outbound.Funder
}

// Result collects what the workflow observed. On failure it holds everything
// gathered up to the failing step.
type Result struct {
	// Reached is the last state that completed.
	Reached  State
	Funded   bool
	Receipts []*entity.TxReceipt

	AfterDeposit *entity.AccountPosition
	AfterBorrow  *entity.AccountPosition
	Price        *entity.PriceQuote

	BorrowAmount    decimal.Decimal
	BorrowAmountWei *big.Int
	RepayAmountWei  *big.Int
}

// Service runs one borrow workflow.
type Service struct {
	config    Config
	network   entity.Network
	addresses entity.NetworkAddresses
	account   entity.Account
	gateways  Gateways
	reporter  outbound.Reporter

	depositWei *big.Int
	logger     *slog.Logger
}

// NewService creates a new borrow workflow service.
func NewService(
	config Config,
	network entity.Network,
	addresses entity.NetworkAddresses,
	account entity.Account,
	gateways Gateways,
	reporter outbound.Reporter,
) (*Service, error) {
	if gateways.Token == nil {
		return nil, fmt.Errorf("token gateway cannot be nil")
	}
	if gateways.Pool == nil {
		return nil, fmt.Errorf("lending pool cannot be nil")
	}
	if gateways.Oracle == nil {
		return nil, fmt.Errorf("price oracle cannot be nil")
	}
	if network.Local && gateways.Funder == nil {
		return nil, fmt.Errorf("funder cannot be nil on local network %s", network.Name)
	}
	if reporter == nil {
		return nil, fmt.Errorf("reporter cannot be nil")
	}

	defaults := configDefaults()
	if config.DepositAmount.IsZero() {
		config.DepositAmount = defaults.DepositAmount
	}
	if config.SafetyFactor.IsZero() {
		config.SafetyFactor = defaults.SafetyFactor
	}
	if config.RateMode == 0 {
		config.RateMode = defaults.RateMode
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Tracer == nil {
		config.Tracer = defaults.Tracer
	}

	if !config.SafetyFactor.IsPositive() || config.SafetyFactor.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("safety factor must be in (0, 1), got %s", config.SafetyFactor)
	}
	if config.RateMode != entity.RateModeStable && config.RateMode != entity.RateModeVariable {
		return nil, fmt.Errorf("unsupported rate mode %s", config.RateMode)
	}
	depositWei, err := blockchain.ToWei(config.DepositAmount)
	if err != nil {
		return nil, fmt.Errorf("converting deposit amount: %w", err)
	}
	if depositWei.Sign() == 0 {
		return nil, fmt.Errorf("deposit amount %s is below one wei", config.DepositAmount)
	}

	return &Service{
		config:     config,
		network:    network,
		addresses:  addresses,
		account:    account,
		gateways:   gateways,
		reporter:   reporter,
		depositWei: depositWei,
		logger: config.Logger.With(
			"component", "borrow-workflow",
			"account", account.Address.Hex(),
		),
	}, nil
}

// SizeBorrow returns how much of the borrow token to borrow:
// (1 / price) * (available * safetyFactor), where available is denominated in
// the collateral currency and price is borrow token per collateral unit.
func SizeBorrow(available, price, safetyFactor decimal.Decimal) (decimal.Decimal, error) {
	if price.IsZero() {
		return decimal.Zero, ErrZeroPrice
	}
	// 36 digits keeps every wei of an 18 decimal result after truncation.
	return available.Mul(safetyFactor).DivRound(price, 36), nil
}

type step struct {
	state State
	run   func(ctx context.Context, res *Result) error
}

// Run executes every state in order and stops at the first failure. The
// returned error names the failing state and keeps its kind for errors.Is.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	steps := []step{
		{StateInit, s.init},
		{StateApproveDeposit, s.approveDeposit},
		{StateDeposit, s.deposit},
		{StateQueryDeposit, s.queryAfterDeposit},
		{StatePrice, s.readPrice},
		{StateSizeAndBorrow, s.sizeAndBorrow},
		{StateQueryBorrow, s.queryAfterBorrow},
		{StateRepay, s.repay},
	}

	ctx, span := s.config.Tracer.Start(ctx, "BorrowWorkflow", trace.WithAttributes(
		attribute.String("network", s.network.Name),
		attribute.Bool("network.local", s.network.Local),
		attribute.String("account", s.account.Address.Hex()),
	))
	defer span.End()

	res := &Result{}
	for _, st := range steps {
		if err := s.runStep(ctx, st, res); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		res.Reached = st.state
	}

	res.Reached = StateDone
	s.reporter.Successf("Deposited, borrowed and repaid on %s.", s.network.Name)
	s.logger.Info("workflow complete", "transactions", len(res.Receipts))
	return res, nil
}

func (s *Service) runStep(ctx context.Context, st step, res *Result) error {
	ctx, span := s.config.Tracer.Start(ctx, string(st.state))
	defer span.End()

	s.logger.Debug("entering state", "state", st.state)
	if err := st.run(ctx, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("state failed", "state", st.state, "error", err)
		return fmt.Errorf("%s: %w", st.state, err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, res *Result, receipt *entity.TxReceipt) {
	res.Receipts = append(res.Receipts, receipt)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("tx.hash", receipt.TxHash.Hex()),
		attribute.Int64("tx.block", int64(receipt.BlockNumber)),
	)
	s.logger.Info("transaction confirmed",
		"method", receipt.Method,
		"tx", receipt.TxHash.Hex(),
		"block", receipt.BlockNumber)
}

func (s *Service) init(ctx context.Context, res *Result) error {
	s.reporter.Stepf("Running on %s as %s", s.network.Name, s.account.Address.Hex())
	if !s.network.Local {
		return nil
	}

	s.reporter.Infof("Local network, funding account with collateral token")
	if err := s.gateways.Funder.Fund(ctx); err != nil {
		return fmt.Errorf("funding account: %w", err)
	}
	res.Funded = true
	return nil
}

func (s *Service) approveDeposit(ctx context.Context, res *Result) error {
	s.reporter.Stepf("Approving %s collateral for the lending pool", s.config.DepositAmount)
	pool, err := s.gateways.Pool.Address(ctx)
	if err != nil {
		return fmt.Errorf("resolving lending pool: %w", err)
	}
	receipt, err := s.gateways.Token.Approve(ctx, s.addresses.CollateralToken, s.account.Address, pool, s.depositWei)
	if err != nil {
		return fmt.Errorf("approving collateral: %w", err)
	}
	s.record(ctx, res, receipt)
	s.reporter.Successf("Approved")
	return nil
}

func (s *Service) deposit(ctx context.Context, res *Result) error {
	s.reporter.Stepf("Depositing %s collateral", s.config.DepositAmount)
	receipt, err := s.gateways.Pool.Deposit(ctx, s.addresses.CollateralToken, s.depositWei, s.account.Address)
	if err != nil {
		return fmt.Errorf("depositing collateral: %w", err)
	}
	s.record(ctx, res, receipt)
	s.reporter.Successf("Deposited")
	return nil
}

func (s *Service) queryAfterDeposit(ctx context.Context, res *Result) error {
	s.reporter.Stepf("Reading account position")
	pos, err := s.queryPosition(ctx)
	if err != nil {
		return err
	}
	res.AfterDeposit = pos
	return nil
}

func (s *Service) readPrice(ctx context.Context, res *Result) error {
	s.reporter.Stepf("Reading borrow token price")
	quote, err := s.gateways.Oracle.LatestPrice(ctx, s.addresses.PriceFeed)
	if err != nil {
		return fmt.Errorf("reading price feed %s: %w", s.addresses.PriceFeed.Hex(), err)
	}
	res.Price = quote
	s.reporter.Infof("The %s price is %s (round %s, updated %s)",
		quote.Description, quote.Price(), quote.RoundID, quote.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	return nil
}

func (s *Service) sizeAndBorrow(ctx context.Context, res *Result) error {
	available := res.AfterDeposit.AvailableToBorrowEth()
	amount, err := SizeBorrow(available, res.Price.Price(), s.config.SafetyFactor)
	if err != nil {
		return err
	}
	amountWei, err := blockchain.ToWei(amount)
	if err != nil {
		return fmt.Errorf("converting borrow amount %s: %w", amount, err)
	}
	res.BorrowAmount = amount
	res.BorrowAmountWei = amountWei

	s.reporter.Stepf("Borrowing %s (%s rate)", amount, s.config.RateMode)
	receipt, err := s.gateways.Pool.Borrow(ctx, s.addresses.BorrowToken, amountWei, s.config.RateMode, s.account.Address)
	if err != nil {
		return fmt.Errorf("borrowing: %w", err)
	}
	s.record(ctx, res, receipt)
	s.reporter.Successf("Borrowed")
	return nil
}

func (s *Service) queryAfterBorrow(ctx context.Context, res *Result) error {
	s.reporter.Stepf("Reading account position after borrow")
	pos, err := s.queryPosition(ctx)
	if err != nil {
		return err
	}
	res.AfterBorrow = pos
	return nil
}

func (s *Service) repay(ctx context.Context, res *Result) error {
	amount := blockchain.MaxUint256
	label := "all debt"
	if s.config.RepayDeposit {
		amount = s.depositWei
		label = s.config.DepositAmount.String()
	}
	res.RepayAmountWei = amount

	s.reporter.Stepf("Repaying %s", label)
	pool, err := s.gateways.Pool.Address(ctx)
	if err != nil {
		return fmt.Errorf("resolving lending pool: %w", err)
	}
	receipt, err := s.gateways.Token.Approve(ctx, s.addresses.BorrowToken, s.account.Address, pool, amount)
	if err != nil {
		return fmt.Errorf("approving repayment: %w", err)
	}
	s.record(ctx, res, receipt)

	receipt, err = s.gateways.Pool.Repay(ctx, s.addresses.BorrowToken, amount, s.config.RateMode, s.account.Address)
	if err != nil {
		return fmt.Errorf("repaying: %w", err)
	}
	s.record(ctx, res, receipt)
	s.reporter.Successf("Repaid")
	return nil
}

func (s *Service) queryPosition(ctx context.Context) (*entity.AccountPosition, error) {
	pos, err := s.gateways.Pool.GetAccountData(ctx, s.account.Address)
	if err != nil {
		return nil, fmt.Errorf("reading account data: %w", err)
	}
	s.reporter.Infof("You have %s worth of ETH deposited.", pos.TotalCollateralEth())
	s.reporter.Infof("You have %s worth of ETH borrowed.", pos.TotalDebtEth())
	s.reporter.Infof("You can borrow %s worth of ETH.", pos.AvailableToBorrowEth())
	s.logger.Info("account position",
		"collateral", pos.TotalCollateralEth(),
		"debt", pos.TotalDebtEth(),
		"available", pos.AvailableToBorrowEth(),
		"health", pos.Health())
	return pos, nil
}
