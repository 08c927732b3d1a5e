package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicflow/internal/domain/entity"
	domainRepo "clinicflow/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertWithAdmissionSQL stores IN_TREATMENT only when the clinic chair is free
const insertWithAdmissionSQL = `
INSERT INTO patients (clinic_id, name, phone, treatment, status, treatment_started_at, created_at, updated_at)
SELECT CAST(@clinic AS uuid), CAST(@name AS varchar), CAST(@phone AS varchar), CAST(@treatment AS text),
       s.status, CASE WHEN s.status = 'IN_TREATMENT' THEN now() END, now(), now()
FROM (
    SELECT CASE
        WHEN CAST(@status AS varchar) = 'IN_TREATMENT' AND NOT EXISTS (
            SELECT 1 FROM patients p
            WHERE p.clinic_id = CAST(@clinic AS uuid) AND p.status = 'IN_TREATMENT'
        ) THEN 'IN_TREATMENT'
        ELSE 'IN_QUEUE'
    END AS status
) s
RETURNING id, status, treatment_started_at, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type patientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) domainRepo.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) FindQueue(ctx context.Context, clinicID uuid.UUID) ([]entity.Patient, error) {
	var patients []entity.Patient
	err := conn(ctx, r.db).
		Where("clinic_id = ? AND status IN ?", clinicID, entity.ActivePatientStatuses).
		Order("created_at ASC").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *patientRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	var patient entity.Patient
	err := conn(ctx, r.db).Where("id = ?", id).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) CreateWithAdmission(ctx context.Context, patient *entity.Patient) error {
	var row struct {
		ID                 uuid.UUID
		Status             entity.PatientStatus
		TreatmentStartedAt *time.Time
		CreatedAt          time.Time
		UpdatedAt          time.Time
	}

	err := inTransaction(ctx, r.db, func(tx *gorm.DB) error {
		if patient.Status == entity.PatientStatusInTreatment {
			if err := lockClinic(tx, patient.ClinicID); err != nil {
				return err
			}
		}
		return tx.Raw(insertWithAdmissionSQL, map[string]any{
			"clinic":    patient.ClinicID,
			"name":      patient.Name,
			"phone":     patient.Phone,
			"treatment": patient.Treatment,
			"status":    string(patient.Status),
		}).Scan(&row).Error
	})
	if err != nil {
		return err
	}

	patient.ID = row.ID
	patient.Status = row.Status
	patient.TreatmentStartedAt = row.TreatmentStartedAt
	patient.CreatedAt = row.CreatedAt
	patient.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *patientRepository) PromoteIfVacant(ctx context.Context, clinicID, id uuid.UUID) (int64, error) {
	var affected int64
	err := inTransaction(ctx, r.db, func(tx *gorm.DB) error {
		if err := lockClinic(tx, clinicID); err != nil {
			return err
		}
		result := tx.Model(&entity.Patient{}).
			Where("id = ? AND clinic_id = ? AND status = ?", id, clinicID, entity.PatientStatusInQueue).
			Where("NOT EXISTS (SELECT 1 FROM patients o WHERE o.clinic_id = ? AND o.status = ? AND o.id <> ?)",
				clinicID, entity.PatientStatusInTreatment, id).
			Updates(map[string]any{
				"status":               entity.PatientStatusInTreatment,
				"treatment_started_at": gorm.Expr("now()"),
			})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

func (r *patientRepository) TransitionStatus(ctx context.Context, clinicID, id uuid.UUID, from, to entity.PatientStatus) (int64, error) {
	updates := map[string]any{"status": to}
	switch to {
	case entity.PatientStatusCompleted:
		updates["completed_at"] = gorm.Expr("now()")
	case entity.PatientStatusInTreatment:
		updates["treatment_started_at"] = gorm.Expr("now()")
	}

	result := conn(ctx, r.db).Model(&entity.Patient{}).
		Where("id = ? AND clinic_id = ? AND status = ?", id, clinicID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *patientRepository) FindByPhonePrefix(ctx context.Context, clinicID uuid.UUID, prefix string, limit int) ([]entity.Patient, error) {
	var patients []entity.Patient
	err := conn(ctx, r.db).
		Where("clinic_id = ? AND phone LIKE ?", clinicID, likeEscaper.Replace(prefix)+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *patientRepository) CountByStatus(ctx context.Context, clinicID uuid.UUID, status entity.PatientStatus) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.Patient{}).
		Where("clinic_id = ? AND status = ?", clinicID, status).
		Count(&count).Error
	return count, err
}

// lockClinic serializes admissions for one clinic until the transaction ends
func lockClinic(tx *gorm.DB, clinicID uuid.UUID) error {
	var clinic entity.Clinic
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", clinicID).
		Take(&clinic).Error
}
