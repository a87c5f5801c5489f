package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceQuote is one latestRoundData() read from an AggregatorV3 feed.
// Round and timestamp fields are carried for display only; staleness is not checked.
type PriceQuote struct {
	Feed            common.Address
	Description     string // e.g. "DAI / ETH"
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound *big.Int
	Decimals        int
}

// Price returns the answer scaled by the feed's decimals.
func (q *PriceQuote) Price() decimal.Decimal {
	return fromBase(q.Answer, int32(q.Decimals))
}
