package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
)

type Config struct {
	DefaultRole          domain.Role
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration

	RegisterRateLimitIPThreshold         int
	RegisterRateLimitIdentifierThreshold int
	RegisterRateLimitWindow              time.Duration
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Role     string `json:"role,omitempty"`

	IPAddress string `json:"-"`
}

type RegisterResponse struct {
	User domain.User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthResponse is the shared success shape of password and wallet logins and
// of token refresh: the sanitized user plus a freshly minted token pair.
type AuthResponse struct {
	User             domain.User `json:"user"`
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	RefreshExpiresAt time.Time   `json:"refresh_expires_at"`
}

type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type WalletLoginChallengeRequest struct {
	Address string `json:"address"`
}

type WalletChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Message     string    `json:"message"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type LinkWalletRequest struct {
	UserID       uuid.UUID `json:"-"`
	ChallengeID  string    `json:"challenge_id"`
	Address      string    `json:"address"`
	StakeAddress string    `json:"stake_address,omitempty"`
	Signature    string    `json:"signature"`
	PublicKey    string    `json:"public_key"`
}

type WalletLoginRequest struct {
	ChallengeID string `json:"challenge_id"`
	Address     string `json:"address"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}
