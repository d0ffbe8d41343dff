package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsageMetric struct {
	APIKeyID     string
	UserID       string
	Endpoint     string
	Method       string
	StatusCode   int
	ResponseTime float64
	Timestamp    time.Time
}

type MetricsRepository struct {
	db *gorm.DB
}

func NewMetricsRepository(gdb *gorm.DB) *MetricsRepository {
	return &MetricsRepository{db: gdb}
}

func (r *MetricsRepository) Record(ctx context.Context, metric UsageMetric) error {
	m := UsageMetricModel{
		ID:           uuid.NewString(),
		APIKeyID:     metric.APIKeyID,
		UserID:       metric.UserID,
		Endpoint:     metric.Endpoint,
		Method:       metric.Method,
		StatusCode:   metric.StatusCode,
		ResponseTime: metric.ResponseTime,
		Timestamp:    metric.Timestamp,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}
