package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of registry account roles.
type Role string

const (
	RoleDeveloper     Role = "developer"
	RoleVerifier      Role = "verifier"
	RoleAdministrator Role = "administrator"
	RoleBuyer         Role = "buyer"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleDeveloper, RoleVerifier, RoleAdministrator, RoleBuyer:
		return true
	}
	return false
}

// User is the canonical authentication identity aggregate.
// Lockout state lives on the row so it survives process restarts.
type User struct {
	UserID              uuid.UUID
	Email               string
	PasswordHash        string
	Name                string
	Company             string
	Role                Role
	WalletAddress       string
	EmailVerified       bool
	AccountLocked       bool
	LockedUntil         *time.Time
	FailedLoginAttempts int
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Sanitized returns a copy safe to hand to callers: the password hash is stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// Session binds one issued token pair to a user.
// Only SHA-256 digests of the tokens are stored, never the bearer values.
type Session struct {
	SessionID        uuid.UUID
	UserID           uuid.UUID
	AccessTokenHash  string
	RefreshTokenHash string
	ExpiresAt        time.Time
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
}

// EmailVerificationToken is a single-use 24h token issued at registration.
type EmailVerificationToken struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// PasswordResetToken is a single-use 1h token issued on reset request.
type PasswordResetToken struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
