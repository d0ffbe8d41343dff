package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/originmark/originmarkd/internal/domain"
)

type KeyPairRepository struct {
	db *gorm.DB
}

func NewKeyPairRepository(gdb *gorm.DB) *KeyPairRepository {
	return &KeyPairRepository{db: gdb}
}

// Create stores a key pair. When the pair is primary, any previous
// primary for the user is demoted in the same transaction.
func (r *KeyPairRepository) Create(ctx context.Context, pair domain.UserKeyPair) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pair.IsPrimary {
			err := tx.Model(&UserKeyPairModel{}).
				Where("user_id = ? AND is_primary = true", pair.UserID).
				Update("is_primary", false).Error
			if err != nil {
				return err
			}
		}
		m := keyPairToModel(pair)
		return tx.Create(&m).Error
	})
}

func (r *KeyPairRepository) ByID(ctx context.Context, id string) (*domain.UserKeyPair, error) {
	var m UserKeyPairModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pair := keyPairToDomain(m)
	return &pair, nil
}

// PrimaryForUser returns the user's active primary pair.
func (r *KeyPairRepository) PrimaryForUser(ctx context.Context, userID string) (*domain.UserKeyPair, error) {
	var m UserKeyPairModel
	err := r.db.WithContext(ctx).
		First(&m, "user_id = ? AND is_primary = true AND is_active = true", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pair := keyPairToDomain(m)
	return &pair, nil
}

func (r *KeyPairRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserKeyPair, error) {
	var models []UserKeyPairModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = true", userID).
		Order("created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	pairs := make([]domain.UserKeyPair, 0, len(models))
	for _, m := range models {
		pairs = append(pairs, keyPairToDomain(m))
	}
	return pairs, nil
}

func (r *KeyPairRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&UserKeyPairModel{}).
		Where("id = ?", id).
		Update("last_used", at).Error
}

// Rotate deactivates the old pair and installs the new one as primary.
func (r *KeyPairRepository) Rotate(ctx context.Context, oldID string, replacement domain.UserKeyPair) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserKeyPairModel{}).
			Where("id = ? AND user_id = ?", oldID, replacement.UserID).
			Updates(map[string]any{"is_active": false, "is_primary": false})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		m := keyPairToModel(replacement)
		return tx.Create(&m).Error
	})
}
