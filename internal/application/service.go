package application

import (
	"time"

	"github.com/terraregistry/auth-service/internal/domain"
	"github.com/terraregistry/auth-service/internal/ports"
)

// dummyPasswordHash is a syntactically valid bcrypt hash of a throwaway
// value. Login compares against it when no account exists so the credential
// check always runs at full cost before any branch-dependent decision.
const dummyPasswordHash = "$2a$12$K3JNi5xUgUl7o6LBM1Fq7eS1PjNN0hUKY0q4jD0P7VdW4F8eGHOyW"

type Service struct {
	cfg         Config
	users       ports.UserRepository
	sessions    ports.SessionRepository
	emailTokens ports.EmailVerificationTokenRepository
	resetTokens ports.PasswordResetTokenRepository
	wallets     ports.WalletRepository
	challenges  ports.ChallengeRegistry
	walletAuth  ports.WalletAuthenticator
	hasher      ports.PasswordHasher
	tokens      ports.TokenCodec
	email       ports.EmailSender
	rates       ports.RateLimitStore
	lockout     domain.LockoutPolicy
	userLocks   keyedMutex
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Users       ports.UserRepository
	Sessions    ports.SessionRepository
	EmailTokens ports.EmailVerificationTokenRepository
	ResetTokens ports.PasswordResetTokenRepository
	Wallets     ports.WalletRepository
	Challenges  ports.ChallengeRegistry
	WalletAuth  ports.WalletAuthenticator
	Hasher      ports.PasswordHasher
	Tokens      ports.TokenCodec
	Email       ports.EmailSender
	Rates       ports.RateLimitStore
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.VerificationTokenTTL <= 0 {
		cfg.VerificationTokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleDeveloper
	}

	return &Service{
		cfg:         cfg,
		users:       deps.Users,
		sessions:    deps.Sessions,
		emailTokens: deps.EmailTokens,
		resetTokens: deps.ResetTokens,
		wallets:     deps.Wallets,
		challenges:  deps.Challenges,
		walletAuth:  deps.WalletAuth,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		email:       deps.Email,
		rates:       deps.Rates,
		lockout: domain.LockoutPolicy{
			Threshold:    cfg.FailedLoginThreshold,
			LockDuration: cfg.LockoutDuration,
		},
		userLocks: newKeyedMutex(),
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}
