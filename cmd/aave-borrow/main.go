// Package main runs the lending pool borrow workflow once against the selected
// network: deposit WETH, borrow DAI sized from the Chainlink price, repay.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/archon-research/aave-borrow/internal/adapters/outbound/console"
	"github.com/archon-research/aave-borrow/internal/adapters/outbound/ethereum"
	"github.com/archon-research/aave-borrow/internal/adapters/outbound/networkconfig"
	"github.com/archon-research/aave-borrow/internal/adapters/outbound/telemetry"
	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/env"
	"github.com/archon-research/aave-borrow/internal/services/borrow_workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	network       string
	configPath    string
	depositAmount decimal.Decimal
	safetyFactor  decimal.Decimal
	rateMode      entity.RateMode
	confirmations uint64
	repayDeposit  bool
	privateKey    string
	tracing       bool
	otlpEndpoint  string
}

func parseConfig(args []string) (cliConfig, error) {
	fs := flag.NewFlagSet("aave-borrow", flag.ContinueOnError)
	network := fs.String("network", "", "Network name from the config file (defaults to NETWORK env var, then default_network)")
	configPath := fs.String("config", "", "Network config file, .yaml or .toml (defaults to NETWORK_CONFIG env var)")
	deposit := fs.String("deposit", "0.1", "Collateral to deposit, in ether units")
	safetyFactor := fs.String("safety-factor", "0.95", "Fraction of available borrowing capacity to use, in (0, 1)")
	rateMode := fs.String("rate-mode", "stable", "Interest rate mode: stable or variable")
	confirmations := fs.Uint64("confirmations", 1, "Blocks to wait for on each transaction")
	repayDeposit := fs.Bool("repay-deposit", false, "Repay the deposit amount of the borrowed token instead of the whole debt")
	tracing := fs.Bool("trace", false, "Export workflow spans (also enabled by OTEL_TRACES=true)")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg := cliConfig{
		network:       *network,
		configPath:    *configPath,
		confirmations: *confirmations,
		repayDeposit:  *repayDeposit,
	}

	if cfg.network == "" {
		cfg.network = env.Get("NETWORK", "")
	}
	if cfg.configPath == "" {
		cfg.configPath = env.Get("NETWORK_CONFIG", "config/networks.yaml")
	}

	var err error
	cfg.depositAmount, err = decimal.NewFromString(*deposit)
	if err != nil {
		return cliConfig{}, fmt.Errorf("invalid -deposit %q: %w", *deposit, err)
	}
	if !cfg.depositAmount.IsPositive() {
		return cliConfig{}, fmt.Errorf("deposit amount must be positive, got %s", cfg.depositAmount)
	}
	cfg.safetyFactor, err = decimal.NewFromString(*safetyFactor)
	if err != nil {
		return cliConfig{}, fmt.Errorf("invalid -safety-factor %q: %w", *safetyFactor, err)
	}
	if !cfg.safetyFactor.IsPositive() || cfg.safetyFactor.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return cliConfig{}, fmt.Errorf("safety factor must be in (0, 1), got %s", cfg.safetyFactor)
	}
	cfg.rateMode, err = entity.ParseRateMode(*rateMode)
	if err != nil {
		return cliConfig{}, fmt.Errorf("invalid -rate-mode: %w", err)
	}
	if cfg.confirmations == 0 {
		return cliConfig{}, fmt.Errorf("confirmations must be at least 1")
	}

	cfg.privateKey = os.Getenv("PRIVATE_KEY")
	if cfg.privateKey == "" {
		return cliConfig{}, fmt.Errorf("PRIVATE_KEY environment variable is required")
	}

	cfg.otlpEndpoint = env.Get("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.tracing = *tracing || env.GetBool("OTEL_TRACES", false) || cfg.otlpEndpoint != ""

	return cfg, nil
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelWarn),
	})).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	registry, err := networkconfig.Load(cfg.configPath)
	if err != nil {
		return err
	}
	networkName, err := registry.NetworkName(cfg.network)
	if err != nil {
		return err
	}
	network, err := registry.Context(networkName)
	if err != nil {
		return err
	}
	addresses, err := registry.Resolve(networkName)
	if err != nil {
		return err
	}
	logger = logger.With("network", network.Name)
	logger.Info("network resolved", "local", network.Local, "chain_id", addresses.ChainID)

	if cfg.tracing {
		shutdown, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
			Network:      network.Name,
			OTLPEndpoint: cfg.otlpEndpoint,
		})
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	key, account, err := ethereum.LoadAccount(cfg.privateKey)
	if err != nil {
		return err
	}

	client, err := ethereum.Dial(ctx, addresses.RPCURL, addresses.ChainID)
	if err != nil {
		return err
	}
	defer client.Close()

	transactor, err := ethereum.NewTransactor(client, ethereum.TransactorConfig{
		PrivateKey:    key,
		ChainID:       big.NewInt(addresses.ChainID),
		Confirmations: cfg.confirmations,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating transactor: %w", err)
	}

	token, err := ethereum.NewToken(transactor, logger)
	if err != nil {
		return fmt.Errorf("creating token gateway: %w", err)
	}
	pool, err := ethereum.NewLendingPool(transactor, addresses.LendingPoolAddressesProvider, logger)
	if err != nil {
		return fmt.Errorf("creating lending pool gateway: %w", err)
	}
	priceFeed, err := ethereum.NewPriceFeed(client)
	if err != nil {
		return fmt.Errorf("creating price feed gateway: %w", err)
	}

	gateways := borrow_workflow.Gateways{Token: token, Pool: pool, Oracle: priceFeed}
	if network.Local {
		minBalance, err := blockchain.ToWei(cfg.depositAmount)
		if err != nil {
			return err
		}
		funder, err := ethereum.NewWETHFunder(transactor, token, addresses.CollateralToken, minBalance, logger)
		if err != nil {
			return fmt.Errorf("creating WETH funder: %w", err)
		}
		gateways.Funder = funder
	}

	service, err := borrow_workflow.NewService(
		borrow_workflow.Config{
			DepositAmount: cfg.depositAmount,
			SafetyFactor:  cfg.safetyFactor,
			RateMode:      cfg.rateMode,
			RepayDeposit:  cfg.repayDeposit,
			Logger:        logger,
		},
		*network,
		*addresses,
		*account,
		gateways,
		console.NewReporter(os.Stdout),
	)
	if err != nil {
		return fmt.Errorf("creating workflow: %w", err)
	}

	if _, err := service.Run(ctx); err != nil {
		return err
	}
	return nil
}
