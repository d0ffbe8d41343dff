package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/usecase"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(gdb *gorm.DB) *UserRepository {
	return &UserRepository{db: gdb}
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	m := userToModel(u)
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *UserRepository) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) UsernameByID(ctx context.Context, userID string) (string, error) {
	u, err := r.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).First(&m, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := userToDomain(m)
	return &u, nil
}

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(gdb *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: gdb}
}

func (r *APIKeyRepository) Create(ctx context.Context, k domain.APIKey) error {
	m := apiKeyToModel(k)
	return r.db.WithContext(ctx).Create(&m).Error
}

// ByHash resolves an active key by its stored hash.
func (r *APIKeyRepository) ByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var m APIKeyModel
	err := r.db.WithContext(ctx).
		First(&m, "key_hash = ? AND is_active = true", keyHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	k := apiKeyToDomain(m)
	return &k, nil
}

func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error) {
	var models []APIKeyModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	keys := make([]domain.APIKey, 0, len(models))
	for _, m := range models {
		keys = append(keys, apiKeyToDomain(m))
	}
	return keys, nil
}

// Touch records one use of the key.
func (r *APIKeyRepository) Touch(ctx context.Context, keyID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&APIKeyModel{}).
		Where("id = ?", keyID).
		Updates(map[string]any{
			"last_used":   at,
			"usage_count": gorm.Expr("usage_count + 1"),
		}).Error
}

func (r *APIKeyRepository) Deactivate(ctx context.Context, keyID, userID string) error {
	res := r.db.WithContext(ctx).
		Model(&APIKeyModel{}).
		Where("id = ? AND user_id = ?", keyID, userID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ usecase.UserDirectory = (*UserRepository)(nil)
