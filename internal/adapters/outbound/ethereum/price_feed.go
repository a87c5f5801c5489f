package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

const (
	methodLatestRoundData = "latestRoundData"
	methodDecimals        = "decimals"
	methodDescription     = "description"
)

// PriceFeed implements outbound.PriceOracle over Chainlink AggregatorV3 feeds.
type PriceFeed struct {
	client ChainClient
	abi    *abi.ABI
}

var _ outbound.PriceOracle = (*PriceFeed)(nil)

// NewPriceFeed creates a feed reader.
func NewPriceFeed(client ChainClient) (*PriceFeed, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	feedABI, err := abis.GetAggregatorV3ABI()
	if err != nil {
		return nil, fmt.Errorf("loading AggregatorV3 ABI: %w", err)
	}
	return &PriceFeed{client: client, abi: feedABI}, nil
}

// LatestPrice reads latestRoundData(), decimals() and description() from
// feed. The round metadata is returned as-is; staleness is not checked.
func (f *PriceFeed) LatestPrice(ctx context.Context, feed common.Address) (*entity.PriceQuote, error) {
	descOut, err := callView(ctx, f.client, f.abi, feed, methodDescription)
	if err != nil {
		return nil, asConnectivity(methodDescription, err)
	}
	description, ok := descOut[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected return type %T from description", descOut[0])
	}

	decOut, err := callView(ctx, f.client, f.abi, feed, methodDecimals)
	if err != nil {
		return nil, asConnectivity(methodDecimals, err)
	}
	decimals, ok := decOut[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected return type %T from decimals", decOut[0])
	}

	out, err := callView(ctx, f.client, f.abi, feed, methodLatestRoundData)
	if err != nil {
		return nil, asConnectivity(methodLatestRoundData, err)
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("expected 5 values from latestRoundData, got %d", len(out))
	}

	roundID, ok1 := out[0].(*big.Int)
	answer, ok2 := out[1].(*big.Int)
	startedAt, ok3 := out[2].(*big.Int)
	updatedAt, ok4 := out[3].(*big.Int)
	answeredInRound, ok5 := out[4].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("unexpected return types from latestRoundData")
	}

	return &entity.PriceQuote{
		Feed:            feed,
		Description:     description,
		RoundID:         roundID,
		Answer:          answer,
		StartedAt:       time.Unix(startedAt.Int64(), 0).UTC(),
		UpdatedAt:       time.Unix(updatedAt.Int64(), 0).UTC(),
		AnsweredInRound: answeredInRound,
		Decimals:        int(decimals),
	}, nil
}

// asConnectivity reports any failed feed read as unreachable: a feed read has
// no transaction that could be rejected. Only the node's error is kept so the
// result matches ErrConnectivity alone.
func asConnectivity(op string, err error) error {
	var rejected *entity.TransactionRejected
	if errors.As(err, &rejected) {
		return &entity.ConnectivityError{Op: op, Err: rejected.Err}
	}
	return err
}
