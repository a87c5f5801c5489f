// Package entity contains the core domain entities for the borrow workflow.
// These entities are transient values and have no I/O of their own.
package entity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Network is the active network context. It is resolved once when the
// workflow starts and passed to every component that depends on it.
type Network struct {
	Name string
	// Local marks development and forked networks where the account is
	// funded with collateral before the workflow runs.
	Local bool
}

// NewNetwork creates a new Network entity with validation.
func NewNetwork(name string, local bool) (*Network, error) {
	n := &Network{Name: name, Local: local}
	if err := n.validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) validate() error {
	if n.Name == "" {
		return fmt.Errorf("network name must not be empty")
	}
	return nil
}

// NetworkAddresses holds the contract addresses the workflow needs on one network.
type NetworkAddresses struct {
	Network                      string
	ChainID                      int64
	RPCURL                       string
	LendingPoolAddressesProvider common.Address
	CollateralToken              common.Address
	BorrowToken                  common.Address
	PriceFeed                    common.Address
}

// Account is the party every transaction is sent from.
type Account struct {
	Address common.Address
}
