package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID              uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string     `gorm:"column:email"`
	PasswordHash        string     `gorm:"column:password_hash"`
	Name                string     `gorm:"column:name"`
	Company             string     `gorm:"column:company"`
	Role                string     `gorm:"column:role"`
	WalletAddress       *string    `gorm:"column:wallet_address"`
	EmailVerified       bool       `gorm:"column:email_verified"`
	AccountLocked       bool       `gorm:"column:account_locked"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	FailedLoginAttempts int        `gorm:"column:failed_login_attempts"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	SessionID        uuid.UUID `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id"`
	AccessTokenHash  string    `gorm:"column:access_token_hash"`
	RefreshTokenHash string    `gorm:"column:refresh_token_hash"`
	ExpiresAt        time.Time `gorm:"column:expires_at"`
	IPAddress        *string   `gorm:"column:ip_address"`
	UserAgent        string    `gorm:"column:user_agent"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type emailVerificationTokenModel struct {
	TokenID   uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	Token     string     `gorm:"column:token"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (emailVerificationTokenModel) TableName() string { return "email_verification_tokens" }

type passwordResetTokenModel struct {
	TokenID   uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	Token     string     `gorm:"column:token"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (passwordResetTokenModel) TableName() string { return "password_reset_tokens" }

type walletModel struct {
	WalletID     uuid.UUID  `gorm:"column:wallet_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID  `gorm:"column:user_id"`
	Address      string     `gorm:"column:address"`
	StakeAddress *string    `gorm:"column:stake_address"`
	PublicKey    *string    `gorm:"column:public_key"`
	IsActive     bool       `gorm:"column:is_active"`
	LinkedAt     time.Time  `gorm:"column:linked_at"`
	VerifiedAt   *time.Time `gorm:"column:verified_at"`
}

func (walletModel) TableName() string { return "wallets" }
