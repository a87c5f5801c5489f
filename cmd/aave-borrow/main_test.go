package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/testutil"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		envVars   map[string]string
		check     func(t *testing.T, cfg cliConfig)
		wantError string
	}{
		{
			name:    "defaults",
			args:    []string{},
			envVars: map[string]string{"PRIVATE_KEY": testKey},
			check: func(t *testing.T, cfg cliConfig) {
				if cfg.configPath != "config/networks.yaml" {
					t.Errorf("configPath = %q", cfg.configPath)
				}
				if cfg.network != "" {
					t.Errorf("network = %q, want empty", cfg.network)
				}
				if !cfg.depositAmount.Equal(decimal.RequireFromString("0.1")) {
					t.Errorf("depositAmount = %s", cfg.depositAmount)
				}
				if !cfg.safetyFactor.Equal(decimal.RequireFromString("0.95")) {
					t.Errorf("safetyFactor = %s", cfg.safetyFactor)
				}
				if cfg.rateMode != entity.RateModeStable {
					t.Errorf("rateMode = %s", cfg.rateMode)
				}
				if cfg.confirmations != 1 {
					t.Errorf("confirmations = %d", cfg.confirmations)
				}
				if cfg.repayDeposit || cfg.tracing {
					t.Errorf("repayDeposit=%v tracing=%v, want both false", cfg.repayDeposit, cfg.tracing)
				}
			},
		},
		{
			name: "all flags",
			args: []string{
				"-network", "kovan", "-config", "networks.toml", "-deposit", "0.5",
				"-safety-factor", "0.8", "-rate-mode", "variable", "-confirmations", "3",
				"-repay-deposit", "-trace",
			},
			envVars: map[string]string{"PRIVATE_KEY": testKey},
			check: func(t *testing.T, cfg cliConfig) {
				if cfg.network != "kovan" || cfg.configPath != "networks.toml" {
					t.Errorf("network=%q config=%q", cfg.network, cfg.configPath)
				}
				if !cfg.depositAmount.Equal(decimal.RequireFromString("0.5")) {
					t.Errorf("depositAmount = %s", cfg.depositAmount)
				}
				if !cfg.safetyFactor.Equal(decimal.RequireFromString("0.8")) {
					t.Errorf("safetyFactor = %s", cfg.safetyFactor)
				}
				if cfg.rateMode != entity.RateModeVariable || cfg.confirmations != 3 {
					t.Errorf("rateMode=%s confirmations=%d", cfg.rateMode, cfg.confirmations)
				}
				if !cfg.repayDeposit || !cfg.tracing {
					t.Errorf("repayDeposit=%v tracing=%v, want both true", cfg.repayDeposit, cfg.tracing)
				}
			},
		},
		{
			name: "network and config from env",
			args: []string{},
			envVars: map[string]string{
				"PRIVATE_KEY":    testKey,
				"NETWORK":        "mainnet-fork",
				"NETWORK_CONFIG": "/etc/aave/networks.yaml",
			},
			check: func(t *testing.T, cfg cliConfig) {
				if cfg.network != "mainnet-fork" || cfg.configPath != "/etc/aave/networks.yaml" {
					t.Errorf("network=%q config=%q", cfg.network, cfg.configPath)
				}
			},
		},
		{
			name:    "flag takes precedence over env",
			args:    []string{"-network", "mainnet"},
			envVars: map[string]string{"PRIVATE_KEY": testKey, "NETWORK": "development"},
			check: func(t *testing.T, cfg cliConfig) {
				if cfg.network != "mainnet" {
					t.Errorf("network = %q, want mainnet", cfg.network)
				}
			},
		},
		{
			name:    "otlp endpoint enables tracing",
			args:    []string{},
			envVars: map[string]string{"PRIVATE_KEY": testKey, "OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317"},
			check: func(t *testing.T, cfg cliConfig) {
				if !cfg.tracing || cfg.otlpEndpoint != "localhost:4317" {
					t.Errorf("tracing=%v endpoint=%q", cfg.tracing, cfg.otlpEndpoint)
				}
			},
		},
		{
			name:    "OTEL_TRACES enables tracing",
			args:    []string{},
			envVars: map[string]string{"PRIVATE_KEY": testKey, "OTEL_TRACES": "true"},
			check: func(t *testing.T, cfg cliConfig) {
				if !cfg.tracing {
					t.Error("tracing = false, want true")
				}
			},
		},
		{
			name:      "missing private key",
			args:      []string{},
			wantError: "PRIVATE_KEY",
		},
		{
			name:      "invalid deposit",
			args:      []string{"-deposit", "lots"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "invalid -deposit",
		},
		{
			name:      "zero deposit",
			args:      []string{"-deposit", "0"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "deposit amount must be positive",
		},
		{
			name:      "invalid safety factor",
			args:      []string{"-safety-factor", "most"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "invalid -safety-factor",
		},
		{
			name:      "zero safety factor",
			args:      []string{"-safety-factor", "0"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "safety factor must be in (0, 1)",
		},
		{
			name:      "safety factor of one",
			args:      []string{"-safety-factor", "1"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "safety factor must be in (0, 1)",
		},
		{
			name:      "invalid rate mode",
			args:      []string{"-rate-mode", "fixed"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "unknown rate mode",
		},
		{
			name:      "zero confirmations",
			args:      []string{"-confirmations", "0"},
			envVars:   map[string]string{"PRIVATE_KEY": testKey},
			wantError: "confirmations must be at least 1",
		},
		{
			name:      "invalid flag",
			args:      []string{"--nonexistent"},
			wantError: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"PRIVATE_KEY", "NETWORK", "NETWORK_CONFIG", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_TRACES"} {
				if _, has := tt.envVars[k]; has {
					continue
				}
				prev, hadPrev := os.LookupEnv(k)
				os.Unsetenv(k)
				t.Cleanup(func() {
					if hadPrev {
						os.Setenv(k, prev)
					}
				})
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := parseConfig(tt.args)

			if tt.wantError != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantError)
				}
				if !strings.Contains(err.Error(), tt.wantError) {
					t.Fatalf("expected error containing %q, got %q", tt.wantError, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/networks.yaml"
	data := `
default_network: mainnet
networks:
  mainnet:
    chain_id: 1
    rpc_url: http://127.0.0.1:1
    lending_pool_addresses_provider: "0xB53C1a33016B2DC2fF3653530bfF1848a515c8c5"
    weth_token: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
    dai_eth_price_feed: "0x773616E4d11A78F511299002da57A0a94577F1f4"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRIVATE_KEY", testKey)

	tests := []struct {
		name      string
		args      []string
		wantError string
	}{
		{name: "missing config file", args: []string{"-config", dir + "/missing.yaml"}, wantError: "missing.yaml"},
		{name: "unknown network", args: []string{"-config", path, "-network", "ropsten"}, wantError: "ropsten"},
		{name: "missing address", args: []string{"-config", path}, wantError: "dai_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t.Context(), tt.args)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantError)
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Fatalf("expected error containing %q, got %q", tt.wantError, err.Error())
			}
		})
	}
}

// On a local network the account is funded before anything touches the
// lending pool, so the provider is only asked for the pool on approve.
func TestRun_FundsBeforeResolvingPool(t *testing.T) {
	const (
		balanceOf      = "0x70a08231"
		getLendingPool = "0x0261bf8b"
	)
	pool := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")

	var (
		mu        sync.Mutex
		selectors []string
	)
	node := testutil.StartMockEthRPC(t, map[string]interface{}{
		"eth_chainId": "0x1",
		"eth_call": testutil.RPCHandler(func(params []json.RawMessage) (interface{}, error) {
			var msg struct {
				Input hexutil.Bytes `json:"input"`
				Data  hexutil.Bytes `json:"data"`
			}
			if err := json.Unmarshal(params[0], &msg); err != nil {
				return nil, err
			}
			input := msg.Input
			if len(input) == 0 {
				input = msg.Data
			}
			if len(input) < 4 {
				return nil, fmt.Errorf("short call data")
			}
			selector := hexutil.Encode(input[:4])

			mu.Lock()
			selectors = append(selectors, selector)
			mu.Unlock()

			switch selector {
			case balanceOf:
				// 1000 ether: enough collateral that no wrap is sent.
				return hexutil.Encode(common.LeftPadBytes(common.FromHex("0x3635c9adc5dea00000"), 32)), nil
			case getLendingPool:
				return hexutil.Encode(common.LeftPadBytes(pool.Bytes(), 32)), nil
			}
			return nil, fmt.Errorf("unexpected selector %s", selector)
		}),
	})

	path := t.TempDir() + "/networks.yaml"
	data := fmt.Sprintf(`
default_network: development
local_environments:
  - development
networks:
  development:
    chain_id: 1
    rpc_url: %s
    lending_pool_addresses_provider: "0xB53C1a33016B2DC2fF3653530bfF1848a515c8c5"
    weth_token: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
    dai_token: "0x6B175474E89094C44Da98b954EedeAC495271d0F"
    dai_eth_price_feed: "0x773616E4d11A78F511299002da57A0a94577F1f4"
`, node.URL)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRIVATE_KEY", testKey)
	t.Setenv("NETWORK", "")
	t.Setenv("OTEL_TRACES", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	// The node has no eth_getTransactionCount, so the first approve fails.
	if err := run(t.Context(), []string{"-config", path}); err == nil {
		t.Fatal("expected approve to fail, got nil")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{balanceOf, getLendingPool}
	if strings.Join(selectors, ",") != strings.Join(want, ",") {
		t.Fatalf("eth_call selectors = %v, want %v", selectors, want)
	}
}
