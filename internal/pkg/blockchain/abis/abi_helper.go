// Package abis holds the contract ABIs the borrow workflow calls.
package abis

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Parsed ABIs are shared read-only between gateways.
var parsed sync.Map

// ParseABI parses a JSON ABI definition.
func ParseABI(abiJSON string) (*abi.ABI, error) {
	a, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	return &a, nil
}

func load(name, abiJSON string) (*abi.ABI, error) {
	if a, ok := parsed.Load(name); ok {
		return a.(*abi.ABI), nil
	}
	a, err := ParseABI(abiJSON)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	actual, _ := parsed.LoadOrStore(name, a)
	return actual.(*abi.ABI), nil
}
