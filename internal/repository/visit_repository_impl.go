package repository

import (
	"context"
	"errors"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type visitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) domainRepo.VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Create(ctx context.Context, visit *entity.PatientVisit) error {
	return conn(ctx, r.db).Create(visit).Error
}

func (r *visitRepository) CountByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.PatientVisit{}).
		Where("clinic_id = ? AND patient_phone = ?", clinicID, phone).
		Count(&count).Error
	return count, err
}

func (r *visitRepository) LatestByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (*entity.PatientVisit, error) {
	var visit entity.PatientVisit
	err := conn(ctx, r.db).
		Where("clinic_id = ? AND patient_phone = ?", clinicID, phone).
		Order("visit_date DESC").
		First(&visit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &visit, nil
}

func (r *visitRepository) ListByPhone(ctx context.Context, clinicID uuid.UUID, phone string) ([]entity.PatientVisit, error) {
	var visits []entity.PatientVisit
	err := conn(ctx, r.db).
		Where("clinic_id = ? AND patient_phone = ?", clinicID, phone).
		Order("visit_date DESC").
		Find(&visits).Error
	if err != nil {
		return nil, err
	}
	return visits, nil
}
