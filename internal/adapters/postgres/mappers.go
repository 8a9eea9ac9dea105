package postgres

import (
	"errors"
	"strings"

	"github.com/terraregistry/auth-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:              row.UserID,
		Email:               row.Email,
		PasswordHash:        row.PasswordHash,
		Name:                row.Name,
		Company:             row.Company,
		Role:                domain.Role(row.Role),
		WalletAddress:       stringValue(row.WalletAddress),
		EmailVerified:       row.EmailVerified,
		AccountLocked:       row.AccountLocked,
		LockedUntil:         row.LockedUntil,
		FailedLoginAttempts: row.FailedLoginAttempts,
		LastLoginAt:         row.LastLoginAt,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	return domain.Session{
		SessionID:        row.SessionID,
		UserID:           row.UserID,
		AccessTokenHash:  row.AccessTokenHash,
		RefreshTokenHash: row.RefreshTokenHash,
		ExpiresAt:        row.ExpiresAt,
		IPAddress:        stringValue(row.IPAddress),
		UserAgent:        row.UserAgent,
		CreatedAt:        row.CreatedAt,
	}
}

func toDomainEmailVerificationToken(row emailVerificationTokenModel) domain.EmailVerificationToken {
	return domain.EmailVerificationToken{
		TokenID:   row.TokenID,
		UserID:    row.UserID,
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt,
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}
}

func toDomainPasswordResetToken(row passwordResetTokenModel) domain.PasswordResetToken {
	return domain.PasswordResetToken{
		TokenID:   row.TokenID,
		UserID:    row.UserID,
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt,
		UsedAt:    row.UsedAt,
		CreatedAt: row.CreatedAt,
	}
}

func toDomainWallet(row walletModel) domain.Wallet {
	return domain.Wallet{
		WalletID:     row.WalletID,
		UserID:       row.UserID,
		Address:      row.Address,
		StakeAddress: stringValue(row.StakeAddress),
		PublicKey:    stringValue(row.PublicKey),
		IsActive:     row.IsActive,
		LinkedAt:     row.LinkedAt,
		VerifiedAt:   row.VerifiedAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
