package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/terraregistry/auth-service/internal/domain"
	"gorm.io/gorm"
)

type walletRepository struct {
	db *gorm.DB
}

func (r *walletRepository) Create(ctx context.Context, wallet domain.Wallet) (domain.Wallet, error) {
	rec := walletModel{
		UserID:       wallet.UserID,
		Address:      wallet.Address,
		StakeAddress: nullableString(wallet.StakeAddress),
		PublicKey:    nullableString(wallet.PublicKey),
		IsActive:     wallet.IsActive,
		LinkedAt:     wallet.LinkedAt,
		VerifiedAt:   wallet.VerifiedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Wallet{}, domain.ErrDuplicateResource
		}
		return domain.Wallet{}, err
	}
	return toDomainWallet(rec), nil
}

func (r *walletRepository) GetByAddress(ctx context.Context, address string) (domain.Wallet, error) {
	var rec walletModel
	if err := r.db.WithContext(ctx).Where("address = ?", address).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, err
	}
	return toDomainWallet(rec), nil
}

func (r *walletRepository) GetByUser(ctx context.Context, userID uuid.UUID) (domain.Wallet, error) {
	var rec walletModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, err
	}
	return toDomainWallet(rec), nil
}

func (r *walletRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&walletModel{}).Error
}
