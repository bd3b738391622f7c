package repository

import (
	"context"
	"time"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, reset *model.PasswordReset) error
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.PasswordReset, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	InvalidateForUser(ctx context.Context, userID uuid.UUID) error
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *model.PasswordReset) error {
	return GetDB(ctx, r.db).Create(reset).Error
}

// FindActiveByUser returns the newest unexpired, unused reset code for a user.
func (r *passwordResetRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND used_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at desc").
		First(&reset).Error
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *passwordResetRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return GetDB(ctx, r.db).Model(&model.PasswordReset{}).Where("id = ?", id).Update("used_at", now).Error
}

// InvalidateForUser expires all outstanding codes, e.g. when issuing a new one.
func (r *passwordResetRepository) InvalidateForUser(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	return GetDB(ctx, r.db).Model(&model.PasswordReset{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", now).Error
}
