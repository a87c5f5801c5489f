package blockchain

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the base-unit scale of ETH and of 18-decimal ERC20 tokens.
const EtherDecimals = 18

// MaxUint256 is the protocol sentinel for "the whole amount" (e.g. repay full debt).
var MaxUint256 = new(uint256.Int).SetAllOne().ToBig()

// ToBaseUnits converts a display amount to integer base units, truncating any
// digits beyond the token's precision. The result must fit in a uint256.
func ToBaseUnits(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must be non-negative, got %s", amount)
	}
	base := amount.Shift(int32(decimals)).Truncate(0).BigInt()
	if _, overflow := uint256.FromBig(base); overflow {
		return nil, fmt.Errorf("amount %s overflows uint256 at %d decimals", amount, decimals)
	}
	return base, nil
}

// FromBaseUnits converts integer base units to an exact display amount.
func FromBaseUnits(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// ToWei converts an ether amount to wei.
func ToWei(amount decimal.Decimal) (*big.Int, error) {
	return ToBaseUnits(amount, EtherDecimals)
}

// FromWei converts wei to ether.
func FromWei(amount *big.Int) decimal.Decimal {
	return FromBaseUnits(amount, EtherDecimals)
}

// MustToWei is ToWei for compile-time constants.
func MustToWei(amount string) *big.Int {
	v, err := ToWei(decimal.RequireFromString(amount))
	if err != nil {
		panic(err)
	}
	return v
}
