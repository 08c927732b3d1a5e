package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// ClinicToResponse converts a Clinic entity to ClinicResponse DTO
func ClinicToResponse(clinic *entity.Clinic) *dto.ClinicResponse {
	if clinic == nil {
		return nil
	}

	return &dto.ClinicResponse{
		ID:              clinic.ID,
		Name:            clinic.Name,
		Location:        clinic.Location,
		PrimaryDoctorID: clinic.PrimaryDoctorID,
		CreatedAt:       clinic.CreatedAt,
	}
}
