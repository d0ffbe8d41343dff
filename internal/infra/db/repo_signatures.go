package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/originmark/originmarkd/internal/domain"
	"github.com/originmark/originmarkd/internal/usecase"
)

type SignatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(gdb *gorm.DB) *SignatureRepository {
	return &SignatureRepository{db: gdb}
}

func (r *SignatureRepository) Create(ctx context.Context, rec domain.SignatureRecord) error {
	m, err := signatureToModel(rec)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *SignatureRepository) Get(ctx context.Context, id string) (*domain.SignatureRecord, error) {
	var m SignatureModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec, err := signatureToDomain(m)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SignatureRepository) ListByUser(ctx context.Context, userID string) ([]domain.SignatureRecord, error) {
	var models []SignatureModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	records := make([]domain.SignatureRecord, 0, len(models))
	for _, m := range models {
		rec, err := signatureToDomain(m)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ usecase.SignatureStore = (*SignatureRepository)(nil)
