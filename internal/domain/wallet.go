package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a verified link between a user and an external Cardano-style address.
// One wallet per user and one user per address, both enforced at link time.
type Wallet struct {
	WalletID     uuid.UUID
	UserID       uuid.UUID
	Address      string
	StakeAddress string
	PublicKey    string
	IsActive     bool
	LinkedAt     time.Time
	VerifiedAt   *time.Time
}

// WalletChallenge is the transient challenge a wallet is asked to sign.
// It lives only in process memory and is consumed on first terminal use.
type WalletChallenge struct {
	ChallengeID string
	UserID      uuid.UUID
	Message     string
	ExpiresAt   time.Time
}
