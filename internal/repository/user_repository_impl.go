package repository

import (
	"context"
	"errors"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) domainRepo.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.AppUser) error {
	return conn(ctx, r.db).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AppUser, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.AppUser, error) {
	return r.first(conn(ctx, r.db).Where("LOWER(email) = LOWER(?)", email))
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*entity.AppUser, error) {
	return r.first(conn(ctx, r.db).Where("phone = ?", phone))
}

func (r *userRepository) FindAll(ctx context.Context) ([]entity.AppUser, error) {
	var users []entity.AppUser
	err := conn(ctx, r.db).Order("created_at DESC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) FindFirstDoctorInClinic(ctx context.Context, clinicID uuid.UUID) (*entity.AppUser, error) {
	return r.first(conn(ctx, r.db).
		Where("clinic_id = ? AND role = ?", clinicID, entity.RoleDoctor).
		Order("created_at ASC"))
}

func (r *userRepository) CountByRole(ctx context.Context, role entity.Role) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.AppUser{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (r *userRepository) AssignClinic(ctx context.Context, id uuid.UUID, clinicID uuid.UUID) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.AppUser{}).
		Where("id = ? AND role <> ?", id, entity.RoleAdmin).
		Update("clinic_id", clinicID)
	return result.RowsAffected, result.Error
}

// UpdateAvailability only touches doctor rows
func (r *userRepository) UpdateAvailability(ctx context.Context, id uuid.UUID, status entity.AvailabilityStatus) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.AppUser{}).
		Where("id = ? AND role = ?", id, entity.RoleDoctor).
		Update("availability_status", status)
	return result.RowsAffected, result.Error
}

func (r *userRepository) first(query *gorm.DB) (*entity.AppUser, error) {
	var user entity.AppUser
	err := query.First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
