package postgres

import (
	"github.com/terraregistry/auth-service/internal/ports"
	"gorm.io/gorm"
)

// Repositories bundles every Postgres-backed repository behind one constructor
// so wiring stays a single call at bootstrap.
type Repositories struct {
	Users       ports.UserRepository
	Sessions    ports.SessionRepository
	EmailTokens ports.EmailVerificationTokenRepository
	ResetTokens ports.PasswordResetTokenRepository
	Wallets     ports.WalletRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Sessions:    &sessionRepository{db: db},
		EmailTokens: &emailVerificationTokenRepository{db: db},
		ResetTokens: &passwordResetTokenRepository{db: db},
		Wallets:     &walletRepository{db: db},
	}
}
