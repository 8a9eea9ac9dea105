package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"gorm.io/gorm"
)

type emailVerificationTokenRepository struct {
	db *gorm.DB
}

func (r *emailVerificationTokenRepository) Create(ctx context.Context, token domain.EmailVerificationToken) (domain.EmailVerificationToken, error) {
	rec := emailVerificationTokenModel{
		UserID:    token.UserID,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		UsedAt:    token.UsedAt,
		CreatedAt: token.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.EmailVerificationToken{}, err
	}
	return toDomainEmailVerificationToken(rec), nil
}

func (r *emailVerificationTokenRepository) GetByToken(ctx context.Context, token string) (domain.EmailVerificationToken, error) {
	var rec emailVerificationTokenModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EmailVerificationToken{}, domain.ErrNotFound
		}
		return domain.EmailVerificationToken{}, err
	}
	return toDomainEmailVerificationToken(rec), nil
}

// MarkUsed burns the token. The used_at IS NULL guard makes the burn
// first-writer-wins under concurrent redemption.
func (r *emailVerificationTokenRepository) MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&emailVerificationTokenModel{}).
		Where("token_id = ?", tokenID).
		Where("used_at IS NULL").
		Update("used_at", usedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTokenConsumed
	}
	return nil
}

func (r *emailVerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&emailVerificationTokenModel{})
	return res.RowsAffected, res.Error
}

func (r *emailVerificationTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&emailVerificationTokenModel{}).Error
}

type passwordResetTokenRepository struct {
	db *gorm.DB
}

func (r *passwordResetTokenRepository) Create(ctx context.Context, token domain.PasswordResetToken) (domain.PasswordResetToken, error) {
	rec := passwordResetTokenModel{
		UserID:    token.UserID,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		UsedAt:    token.UsedAt,
		CreatedAt: token.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.PasswordResetToken{}, err
	}
	return toDomainPasswordResetToken(rec), nil
}

func (r *passwordResetTokenRepository) GetByToken(ctx context.Context, token string) (domain.PasswordResetToken, error) {
	var rec passwordResetTokenModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PasswordResetToken{}, domain.ErrNotFound
		}
		return domain.PasswordResetToken{}, err
	}
	return toDomainPasswordResetToken(rec), nil
}

func (r *passwordResetTokenRepository) MarkUsed(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&passwordResetTokenModel{}).
		Where("token_id = ?", tokenID).
		Where("used_at IS NULL").
		Update("used_at", usedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTokenConsumed
	}
	return nil
}

func (r *passwordResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&passwordResetTokenModel{})
	return res.RowsAffected, res.Error
}

func (r *passwordResetTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&passwordResetTokenModel{}).Error
}
