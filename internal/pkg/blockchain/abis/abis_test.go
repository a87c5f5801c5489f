package abis

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func TestABIsExposeWorkflowMethods(t *testing.T) {
	tests := []struct {
		name    string
		load    func() (*abi.ABI, error)
		methods []string
	}{
		{"erc20", GetERC20ABI, []string{"approve", "balanceOf"}},
		{"weth", GetWETHABI, []string{"deposit"}},
		{"lending pool", GetLendingPoolABI, []string{"deposit", "borrow", "repay", "getUserAccountData"}},
		{"addresses provider", GetLendingPoolAddressesProviderABI, []string{"getLendingPool"}},
		{"aggregator v3", GetAggregatorV3ABI, []string{"latestRoundData", "decimals", "description"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := tt.load()
			if err != nil {
				t.Fatalf("parsing ABI: %v", err)
			}
			for _, m := range tt.methods {
				if _, ok := parsed.Methods[m]; !ok {
					t.Errorf("method %s missing", m)
				}
			}
		})
	}
}

func TestGetUserAccountDataSelector(t *testing.T) {
	parsed, err := GetLendingPoolABI()
	if err != nil {
		t.Fatalf("parsing ABI: %v", err)
	}
	// Same selector the pool exposes on mainnet: bf92857c.
	if got := parsed.Methods["getUserAccountData"].ID; len(got) != 4 || got[0] != 0xbf || got[1] != 0x92 || got[2] != 0x85 || got[3] != 0x7c {
		t.Errorf("unexpected selector %x", got)
	}
}

func TestABIsAreParsedOnce(t *testing.T) {
	first, err := GetERC20ABI()
	if err != nil {
		t.Fatalf("parsing ABI: %v", err)
	}
	second, err := GetERC20ABI()
	if err != nil {
		t.Fatalf("parsing ABI: %v", err)
	}
	if first != second {
		t.Error("expected the cached ABI to be returned")
	}
}

func TestParseABIRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseABI(`[{"type": "function", "name": }]`); err == nil {
		t.Error("expected error for malformed ABI")
	}
}
