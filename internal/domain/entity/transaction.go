package entity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// RateMode selects stable or variable interest accrual on a borrow position.
type RateMode int64

const (
	RateModeStable   RateMode = 1
	RateModeVariable RateMode = 2
)

func (m RateMode) String() string {
	switch m {
	case RateModeStable:
		return "stable"
	case RateModeVariable:
		return "variable"
	default:
		return fmt.Sprintf("RateMode(%d)", int64(m))
	}
}

// ParseRateMode parses "stable" or "variable".
func ParseRateMode(s string) (RateMode, error) {
	switch s {
	case "stable", "1":
		return RateModeStable, nil
	case "variable", "2":
		return RateModeVariable, nil
	default:
		return 0, fmt.Errorf("unknown rate mode %q", s)
	}
}

// TxReceipt is a confirmed transaction as seen by the workflow.
type TxReceipt struct {
	Method        string
	TxHash        common.Hash
	BlockNumber   uint64
	GasUsed       uint64
	Confirmations uint64
}
