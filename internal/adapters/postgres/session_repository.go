package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	rec := sessionModel{
		UserID:           session.UserID,
		AccessTokenHash:  session.AccessTokenHash,
		RefreshTokenHash: session.RefreshTokenHash,
		ExpiresAt:        session.ExpiresAt,
		IPAddress:        nullableString(session.IPAddress),
		UserAgent:        session.UserAgent,
		CreatedAt:        session.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetByAccessTokenHash(ctx context.Context, digest string) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("access_token_hash = ?", digest).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetByRefreshTokenHash(ctx context.Context, digest string) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("refresh_token_hash = ?", digest).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Session, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Session, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainSession(item))
	}
	return result, nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&sessionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByUser removes every session the user owns. Zero rows is success:
// logout is idempotent.
func (r *sessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&sessionModel{}).Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&sessionModel{})
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) DeleteInactive(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at <= ?", olderThan).
		Delete(&sessionModel{})
	return res.RowsAffected, res.Error
}
