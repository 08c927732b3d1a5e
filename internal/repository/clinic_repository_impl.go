package repository

import (
	"context"
	"errors"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type clinicRepository struct {
	db *gorm.DB
}

func NewClinicRepository(db *gorm.DB) domainRepo.ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *entity.Clinic) error {
	return conn(ctx, r.db).Create(clinic).Error
}

func (r *clinicRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Clinic, error) {
	var clinic entity.Clinic
	err := conn(ctx, r.db).Where("id = ?", id).First(&clinic).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &clinic, nil
}

func (r *clinicRepository) FindAll(ctx context.Context) ([]entity.Clinic, error) {
	var clinics []entity.Clinic
	err := conn(ctx, r.db).Order("created_at DESC").Find(&clinics).Error
	if err != nil {
		return nil, err
	}
	return clinics, nil
}

func (r *clinicRepository) SetPrimaryDoctorIfEmpty(ctx context.Context, id uuid.UUID, doctorID uuid.UUID) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.Clinic{}).
		Where("id = ? AND primary_doctor_id IS NULL", id).
		Update("primary_doctor_id", doctorID)
	return result.RowsAffected, result.Error
}

func (r *clinicRepository) ReplacePrimaryDoctor(ctx context.Context, id uuid.UUID, from uuid.UUID, to *uuid.UUID) (int64, error) {
	var value any = gorm.Expr("NULL")
	if to != nil {
		value = *to
	}
	result := conn(ctx, r.db).Model(&entity.Clinic{}).
		Where("id = ? AND primary_doctor_id = ?", id, from).
		Update("primary_doctor_id", value)
	return result.RowsAffected, result.Error
}
