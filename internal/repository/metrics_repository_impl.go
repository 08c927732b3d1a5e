package repository

import (
	"context"

	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type metricsRepository struct {
	db *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) domainRepo.MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) CompletedToday(ctx context.Context, clinicID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Table("clinic_today_completed").
		Where("clinic_id = ?", clinicID).
		Count(&count).Error
	return count, err
}

// AvgWaitMinutesToday is invalid when nobody has entered treatment today
func (r *metricsRepository) AvgWaitMinutesToday(ctx context.Context, clinicID uuid.UUID) (decimal.NullDecimal, error) {
	var row struct {
		AvgWaitMins decimal.NullDecimal
	}
	err := conn(ctx, r.db).Table("clinic_avg_wait_time_today").
		Select("avg_wait_mins").
		Where("clinic_id = ?", clinicID).
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return row.AvgWaitMins, nil
}
