package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
)

// UserRepository defines persistence operations for user identities.
// Update carries the whole mutated copy so lockout state stays a single
// read-modify-write against the row.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByWalletAddress(ctx context.Context, address string) (domain.User, error)
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// SessionRepository manages persistent session lifecycle.
// Sessions are keyed by token digests; rotation deletes and re-creates,
// never updates tokens in place.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	GetByAccessTokenHash(ctx context.Context, digest string) (domain.Session, error)
	GetByRefreshTokenHash(ctx context.Context, digest string) (domain.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Session, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteInactive(ctx context.Context, olderThan time.Time) (int64, error)
}

// EmailVerificationTokenRepository owns the single-use email token lifecycle.
type EmailVerificationTokenRepository interface {
	Create(ctx context.Context, token domain.EmailVerificationToken) (domain.EmailVerificationToken, error)
	GetByToken(ctx context.Context, token string) (domain.EmailVerificationToken, error)
	MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// PasswordResetTokenRepository mirrors the verification token contract for
// the password recovery flow.
type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token domain.PasswordResetToken) (domain.PasswordResetToken, error)
	GetByToken(ctx context.Context, token string) (domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// WalletRepository persists user-to-address links.
type WalletRepository interface {
	Create(ctx context.Context, wallet domain.Wallet) (domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (domain.Wallet, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (domain.Wallet, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
