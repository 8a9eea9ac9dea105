package ports

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccessClaims is the identity payload of a short-lived access token.
type AccessClaims struct {
	UserID uuid.UUID
	Email  string
	Role   domain.Role
}

// RefreshClaims is the minimal payload of a long-lived refresh token.
type RefreshClaims struct {
	UserID uuid.UUID
}

// TokenPair is one issued access/refresh pair with its expiries.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenCodec signs and verifies stateless bearer tokens.
// Every verification failure surfaces as domain.ErrInvalidToken; HashToken
// derives the deterministic digest used as the session storage key.
type TokenCodec interface {
	IssuePair(user domain.User, now time.Time) (TokenPair, error)
	VerifyAccessToken(token string) (AccessClaims, error)
	VerifyRefreshToken(token string) (RefreshClaims, error)
	HashToken(token string) string
}

// ChallengeRegistry issues and consumes short-lived wallet challenges.
// Consume is atomic check-then-delete: at most one caller wins per id.
type ChallengeRegistry interface {
	Generate(userID uuid.UUID) domain.WalletChallenge
	Consume(challengeID string) (domain.WalletChallenge, bool)
}

// WalletAuthenticator validates wallet addresses and detached signatures.
// Implementations may be structural-only; full envelope verification plugs in
// behind this interface without orchestrator changes.
type WalletAuthenticator interface {
	ValidateAddress(address string) error
	ValidateStakeAddress(address string) error
	VerifySignature(message, address, signature, publicKey string) error
}
