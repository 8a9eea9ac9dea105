package security

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/terraregistry/auth-service/internal/domain"
)

// Network identifiers for Cardano-style deployments.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

const (
	// mockSignaturePrefix marks the development-only signature bypass.
	// Unsafe for production; only honored when explicitly enabled.
	mockSignaturePrefix = "MOCK_"

	// Heuristic lower bounds for a hex-encoded COSE_Sign1 signature and an
	// Ed25519 public key. These are sanity gates, not envelope verification.
	minSignatureHexLen = 140
	minPublicKeyHexLen = 64
)

// CardanoAuthenticator performs structural validation of wallet addresses and
// detached signatures for the configured network.
type CardanoAuthenticator struct {
	network   string
	allowMock bool
}

// NewCardanoAuthenticator builds an authenticator for the deployment network.
func NewCardanoAuthenticator(network string, allowMock bool) (*CardanoAuthenticator, error) {
	switch network {
	case NetworkMainnet, NetworkTestnet:
	default:
		return nil, fmt.Errorf("unknown cardano network %q", network)
	}
	return &CardanoAuthenticator{network: network, allowMock: allowMock}, nil
}

// ValidateAddress checks the bech32 prefix, structure, and embedded network id
// of a payment address against the configured network.
func (a *CardanoAuthenticator) ValidateAddress(address string) error {
	return a.validateBech32(address, "addr", "addr_test")
}

// ValidateStakeAddress performs the same checks for a reward/stake address.
func (a *CardanoAuthenticator) ValidateStakeAddress(address string) error {
	return a.validateBech32(address, "stake", "stake_test")
}

// VerifySignature applies the signature gates after the challenge gate has
// already passed: address validity, then hex/length sanity of signature and
// public key. Full CIP-8 envelope verification is a documented limitation.
func (a *CardanoAuthenticator) VerifySignature(message, address, signature, publicKey string) error {
	if err := a.ValidateAddress(address); err != nil {
		return err
	}

	if a.allowMock && strings.HasPrefix(signature, mockSignaturePrefix) {
		return nil
	}

	if message == "" {
		return fmt.Errorf("%w: empty challenge message", domain.ErrSignatureInvalid)
	}
	if err := validateHexField(signature, minSignatureHexLen); err != nil {
		return fmt.Errorf("%w: signature %v", domain.ErrSignatureInvalid, err)
	}
	if err := validateHexField(publicKey, minPublicKeyHexLen); err != nil {
		return fmt.Errorf("%w: public key %v", domain.ErrSignatureInvalid, err)
	}
	return nil
}

func (a *CardanoAuthenticator) validateBech32(address, mainnetPrefix, testnetPrefix string) error {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return fmt.Errorf("%w: address is required", domain.ErrInvalidInput)
	}

	wantPrefix := mainnetPrefix
	if a.network == NetworkTestnet {
		wantPrefix = testnetPrefix
	}

	// Cardano addresses exceed the 90-char BIP-173 limit, hence DecodeNoLimit.
	hrp, data, err := bech32.DecodeNoLimit(trimmed)
	if err != nil {
		return fmt.Errorf("%w: malformed address: %v", domain.ErrInvalidInput, err)
	}
	if hrp != wantPrefix {
		return fmt.Errorf("%w: address prefix %q does not match network %s", domain.ErrInvalidInput, hrp, a.network)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil || len(payload) == 0 {
		return fmt.Errorf("%w: undecodable address payload", domain.ErrInvalidInput)
	}

	networkID := payload[0] & 0x0f
	switch a.network {
	case NetworkMainnet:
		if networkID != 1 {
			return fmt.Errorf("%w: address network id %d is not mainnet", domain.ErrInvalidInput, networkID)
		}
	case NetworkTestnet:
		if networkID != 0 {
			return fmt.Errorf("%w: address network id %d is not testnet", domain.ErrInvalidInput, networkID)
		}
	}
	return nil
}

func validateHexField(value string, minLen int) error {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < minLen {
		return fmt.Errorf("shorter than %d hex chars", minLen)
	}
	if _, err := hex.DecodeString(trimmed); err != nil {
		return fmt.Errorf("not valid hex")
	}
	return nil
}
