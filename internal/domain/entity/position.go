package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// EtherDecimals is the base-unit scale of amounts reported by the lending pool.
	EtherDecimals = 18
	// BasisPointDecimals is the scale of LTV and liquidation threshold values (8000 = 80%).
	BasisPointDecimals = 4
)

// AccountPosition is the result of one getUserAccountData() read.
// All values are raw base units as returned by the pool; amounts are
// denominated in ETH with 18 decimals.
type AccountPosition struct {
	TotalCollateral             *big.Int
	TotalDebt                   *big.Int
	AvailableToBorrow           *big.Int
	CurrentLiquidationThreshold *big.Int // basis points
	LTV                         *big.Int // basis points
	HealthFactor                *big.Int // 18 decimals, 1e18 = 1.0
}

// TotalCollateralEth returns the total collateral in display units.
func (p *AccountPosition) TotalCollateralEth() decimal.Decimal {
	return fromBase(p.TotalCollateral, EtherDecimals)
}

// TotalDebtEth returns the total debt in display units.
func (p *AccountPosition) TotalDebtEth() decimal.Decimal {
	return fromBase(p.TotalDebt, EtherDecimals)
}

// AvailableToBorrowEth returns the remaining borrowing capacity in display units.
func (p *AccountPosition) AvailableToBorrowEth() decimal.Decimal {
	return fromBase(p.AvailableToBorrow, EtherDecimals)
}

// LiquidationThreshold returns the threshold as a ratio (0.8 for 8000 bps).
func (p *AccountPosition) LiquidationThreshold() decimal.Decimal {
	return fromBase(p.CurrentLiquidationThreshold, BasisPointDecimals)
}

// LoanToValue returns the LTV as a ratio.
func (p *AccountPosition) LoanToValue() decimal.Decimal {
	return fromBase(p.LTV, BasisPointDecimals)
}

// Health returns the health factor in display units. A position without debt
// reports max uint256 here.
func (p *AccountPosition) Health() decimal.Decimal {
	return fromBase(p.HealthFactor, EtherDecimals)
}

// fromBase is blockchain.FromBaseUnits kept local so entity imports no
// internal packages. The two must agree.
func fromBase(x *big.Int, decimals int32) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(x, -decimals)
}
