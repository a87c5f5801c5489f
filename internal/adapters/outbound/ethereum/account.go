package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// LoadAccount parses a hex-encoded secp256k1 private key (with or without 0x).
func LoadAccount(hexKey string) (*ecdsa.PrivateKey, *entity.Account, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, nil, fmt.Errorf("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, &entity.Account{Address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}
