package entity

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel error kinds. Every typed error below matches exactly one of them
// through errors.Is.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrTransactionRejected = errors.New("transaction rejected")
	ErrConnectivity        = errors.New("connectivity error")
)

// ConfigurationError reports a missing network entry or address.
type ConfigurationError struct {
	Network string
	Key     string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: network %q: %s", e.Network, e.Reason)
	}
	return fmt.Sprintf("configuration error: network %q: %s: %s", e.Network, e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TransactionRejected reports a transaction that reverted or was refused by the network.
type TransactionRejected struct {
	Method string
	TxHash common.Hash
	Err    error
}

func (e *TransactionRejected) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("transaction rejected: %s (tx %s): %v", e.Method, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("transaction rejected: %s: %v", e.Method, e.Err)
}

func (e *TransactionRejected) Unwrap() error { return e.Err }

func (e *TransactionRejected) Is(target error) bool { return target == ErrTransactionRejected }

// ConnectivityError reports a node or feed that could not be reached.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connectivity error: %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }
