package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/time/rate"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// TransactorConfig holds configuration for the Transactor.
type TransactorConfig struct {
	PrivateKey *ecdsa.PrivateKey
	ChainID    *big.Int

	// Confirmations is how many blocks, counting the inclusion block, must
	// exist before a transaction counts as landed.
	Confirmations uint64

	// PollInterval bounds how often the node is asked for receipts.
	PollInterval time.Duration

	// GasHeadroomPercent is added on top of the node's gas estimate.
	GasHeadroomPercent uint64

	Logger *slog.Logger
}

func transactorConfigDefaults() TransactorConfig {
	return TransactorConfig{
		Confirmations:      1,
		PollInterval:       time.Second,
		GasHeadroomPercent: 20,
		Logger:             slog.Default(),
	}
}

// Transactor signs and submits transactions for one account and blocks until
// they are confirmed.
type Transactor struct {
	client        ChainClient
	key           *ecdsa.PrivateKey
	from          common.Address
	chainID       *big.Int
	signer        types.Signer
	confirmations uint64
	headroom      uint64
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// NewTransactor creates a Transactor for the account behind cfg.PrivateKey.
func NewTransactor(client ChainClient, cfg TransactorConfig) (*Transactor, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain ID must be positive")
	}

	defaults := transactorConfigDefaults()
	if cfg.Confirmations == 0 {
		cfg.Confirmations = defaults.Confirmations
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.GasHeadroomPercent == 0 {
		cfg.GasHeadroomPercent = defaults.GasHeadroomPercent
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}

	return &Transactor{
		client:        client,
		key:           cfg.PrivateKey,
		from:          crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey),
		chainID:       cfg.ChainID,
		signer:        types.LatestSignerForChainID(cfg.ChainID),
		confirmations: cfg.Confirmations,
		headroom:      cfg.GasHeadroomPercent,
		limiter:       rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		logger:        cfg.Logger.With("component", "transactor"),
	}, nil
}

// From returns the signing account's address.
func (t *Transactor) From() common.Address {
	return t.from
}

// Client returns the underlying chain client for read-only calls.
func (t *Transactor) Client() ChainClient {
	return t.client
}

// Transact submits a call to `to` and waits for the configured number of confirmations.
func (t *Transactor) Transact(ctx context.Context, method string, to common.Address, data []byte, value *big.Int) (*entity.TxReceipt, error) {
	tx, err := t.Send(ctx, method, to, data, value)
	if err != nil {
		return nil, err
	}
	return t.WaitForConfirmations(ctx, method, tx.Hash(), t.confirmations)
}

// Send builds, signs and submits a transaction without waiting for it.
func (t *Transactor) Send(ctx context.Context, method string, to common.Address, data []byte, value *big.Int) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := t.client.PendingNonceAt(ctx, t.from)
	if err != nil {
		return nil, classifyError("eth_getTransactionCount", err)
	}

	msg := ethereum.CallMsg{From: t.from, To: &to, Value: value, Data: data}
	estimate, err := t.client.EstimateGas(ctx, msg)
	if err != nil {
		// The node simulates the call here, so a revert surfaces before submission.
		return nil, classifyError(method, err)
	}
	gasLimit := estimate + estimate*t.headroom/100

	header, err := t.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, classifyError("eth_getBlockByNumber", err)
	}

	var txData types.TxData
	if header.BaseFee == nil {
		gasPrice, err := t.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, classifyError("eth_gasPrice", err)
		}
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    value,
			Data:     data,
		}
	} else {
		tip, err := t.client.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, classifyError("eth_maxPriorityFeePerGas", err)
		}
		// feeCap = 2*baseFee + tip, as bind.TransactOpts does.
		feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)
		txData = &types.DynamicFeeTx{
			ChainID:   t.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}
	}

	signed, err := types.SignNewTx(t.key, t.signer, txData)
	if err != nil {
		return nil, fmt.Errorf("signing %s: %w", method, err)
	}

	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return nil, classifyError(method, err)
	}

	t.logger.Info("transaction submitted",
		"method", method,
		"tx", signed.Hash().Hex(),
		"to", to.Hex(),
		"nonce", nonce,
		"gas", gasLimit)

	return signed, nil
}

// WaitForConfirmations blocks until the transaction is included and the chain
// head is at least confirmations-1 blocks past the inclusion block. A receipt
// with failed status is reported as TransactionRejected. There is no timeout
// beyond ctx.
func (t *Transactor) WaitForConfirmations(ctx context.Context, method string, hash common.Hash, confirmations uint64) (*entity.TxReceipt, error) {
	var receipt *types.Receipt
	for {
		r := t.limiter.Reserve()
		select {
		case <-ctx.Done():
			r.Cancel()
			return nil, fmt.Errorf("waiting for %s (tx %s): %w", method, hash.Hex(), ctx.Err())
		case <-time.After(r.Delay()):
		}

		if receipt == nil {
			r, err := t.client.TransactionReceipt(ctx, hash)
			if errors.Is(err, ethereum.NotFound) {
				continue
			}
			if err != nil {
				return nil, classifyError("eth_getTransactionReceipt", err)
			}
			if r.Status == types.ReceiptStatusFailed {
				return nil, &entity.TransactionRejected{
					Method: method,
					TxHash: hash,
					Err:    fmt.Errorf("execution reverted in block %s", r.BlockNumber),
				}
			}
			receipt = r
		}

		head, err := t.client.BlockNumber(ctx)
		if err != nil {
			return nil, classifyError("eth_blockNumber", err)
		}

		included := receipt.BlockNumber.Uint64()
		if head < included {
			continue
		}
		if got := head - included + 1; got >= confirmations {
			t.logger.Info("transaction confirmed",
				"method", method,
				"tx", hash.Hex(),
				"block", included,
				"confirmations", got,
				"gasUsed", receipt.GasUsed)
			return &entity.TxReceipt{
				Method:        method,
				TxHash:        hash,
				BlockNumber:   included,
				GasUsed:       receipt.GasUsed,
				Confirmations: got,
			}, nil
		}
	}
}
