package blockchain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		expected string
		wantErr  bool
	}{
		{name: "0.1 ether", amount: "0.1", decimals: 18, expected: "100000000000000000"},
		{name: "4.75 ether", amount: "4.75", decimals: 18, expected: "4750000000000000000"},
		{name: "1 USDC", amount: "1", decimals: 6, expected: "1000000"},
		{name: "truncates below precision", amount: "1.0000001", decimals: 6, expected: "1000000"},
		{name: "zero", amount: "0", decimals: 18, expected: "0"},
		{name: "negative", amount: "-1", decimals: 18, wantErr: true},
		{name: "overflow", amount: "1e60", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestWeiRoundTrip(t *testing.T) {
	ints := []string{
		"0",
		"1",
		"100000000000000000",
		"123456789012345678901234567890",
		MaxUint256.String(),
	}
	for _, s := range ints {
		t.Run("int "+s, func(t *testing.T) {
			x, _ := new(big.Int).SetString(s, 10)
			got, err := ToWei(FromWei(x))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cmp(x) != 0 {
				t.Errorf("got %s, want %s", got, x)
			}
		})
	}

	decimals := []string{"0", "0.1", "4.75", "0.000000000000000001", "1234567.123456789012345678"}
	for _, s := range decimals {
		t.Run("decimal "+s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			w, err := ToWei(d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := FromWei(w); !got.Equal(d) {
				t.Errorf("got %s, want %s", got, d)
			}
		})
	}
}

func TestMaxUint256(t *testing.T) {
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if MaxUint256.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", MaxUint256, want)
	}
}
