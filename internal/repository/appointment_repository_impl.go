package repository

import (
	"context"
	"errors"
	"time"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) domainRepo.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	return conn(ctx, r.db).Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := conn(ctx, r.db).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindBookedSince(ctx context.Context, clinicID uuid.UUID, since time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := conn(ctx, r.db).
		Where("clinic_id = ? AND status = ? AND appointment_time >= ?", clinicID, entity.AppointmentStatusBooked, since).
		Order("appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindBookedBetween(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := conn(ctx, r.db).
		Where("clinic_id = ? AND status = ? AND appointment_time >= ? AND appointment_time < ?",
			clinicID, entity.AppointmentStatusBooked, from, to).
		Order("appointment_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// Cancel is conditional on BOOKED so two concurrent arrivals cannot both win
func (r *appointmentRepository) Cancel(ctx context.Context, clinicID, id uuid.UUID) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.Appointment{}).
		Where("id = ? AND clinic_id = ? AND status = ?", id, clinicID, entity.AppointmentStatusBooked).
		Update("status", entity.AppointmentStatusCancelled)
	return result.RowsAffected, result.Error
}
