package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	rec := userModel{
		Email:               user.Email,
		PasswordHash:        user.PasswordHash,
		Name:                user.Name,
		Company:             user.Company,
		Role:                string(user.Role),
		WalletAddress:       nullableString(user.WalletAddress),
		EmailVerified:       user.EmailVerified,
		AccountLocked:       user.AccountLocked,
		LockedUntil:         user.LockedUntil,
		FailedLoginAttempts: user.FailedLoginAttempts,
		LastLoginAt:         user.LastLoginAt,
		CreatedAt:           user.CreatedAt,
		UpdatedAt:           user.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrDuplicateResource
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByWalletAddress(ctx context.Context, address string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", address).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// Update writes the full mutated row. Lockout counters, lock flags, and the
// wallet mirror all ride the same statement so a login attempt is one write.
func (r *userRepository) Update(ctx context.Context, user domain.User) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", user.UserID).
		Updates(map[string]any{
			"email":                 user.Email,
			"password_hash":         user.PasswordHash,
			"name":                  user.Name,
			"company":               user.Company,
			"role":                  string(user.Role),
			"wallet_address":        nullableString(user.WalletAddress),
			"email_verified":        user.EmailVerified,
			"account_locked":        user.AccountLocked,
			"locked_until":          user.LockedUntil,
			"failed_login_attempts": user.FailedLoginAttempts,
			"last_login_at":         user.LastLoginAt,
			"updated_at":            user.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&userModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
