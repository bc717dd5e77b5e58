package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Provider exposes signing accounts. It stands in for an injected browser wallet.
type Provider interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

var privateKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// NormalizePrivateKey strips an optional 0x prefix and checks for 32 bytes of hex.
func NormalizePrivateKey(raw string) (string, bool) {
	key := strings.TrimSpace(raw)
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}
	if !privateKeyPattern.MatchString(key) {
		return "", false
	}
	return strings.ToLower(key), true
}

// KeyProvider signs with a single local private key.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ Provider = (*KeyProvider)(nil)

// NewKeyProvider parses a hex private key.
func NewKeyProvider(raw string) (*KeyProvider, error) {
	hexKey, ok := NormalizePrivateKey(raw)
	if !ok {
		return nil, fmt.Errorf("private key must be 32-byte hex")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &KeyProvider{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// ProviderFromKey returns nil when no usable key is configured. An invalid key is
// ignored with a warning and the session stays read-only.
func ProviderFromKey(raw string, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	provider, err := NewKeyProvider(raw)
	if err != nil {
		logger.Warn("ignoring invalid private key, using read-only mode", zap.Error(err))
		return nil
	}
	return provider
}

func (p *KeyProvider) Accounts(context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) SignTx(_ context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if account != p.address {
		return nil, fmt.Errorf("unknown account %s", account.Hex())
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
}
