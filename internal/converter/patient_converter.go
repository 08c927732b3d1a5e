package converter

import (
	"time"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/pkg/timefmt"
)

// PatientToResponse converts a Patient entity to PatientResponse DTO
func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:                 patient.ID,
		ClinicID:           patient.ClinicID,
		Name:               patient.Name,
		Phone:              patient.Phone,
		Treatment:          patient.Treatment,
		Status:             string(patient.Status),
		TreatmentStartedAt: patient.TreatmentStartedAt,
		CompletedAt:        patient.CompletedAt,
		CreatedAt:          patient.CreatedAt,
	}
}

// VisitsToResponses converts visit history, rendering each age relative to now
func VisitsToResponses(visits []entity.PatientVisit, now time.Time) []dto.VisitResponse {
	responses := make([]dto.VisitResponse, len(visits))
	for i, visit := range visits {
		responses[i] = dto.VisitResponse{
			ID:          visit.ID,
			PatientName: visit.PatientName,
			Treatment:   visit.Treatment,
			Notes:       visit.Notes,
			VisitDate:   visit.VisitDate,
			VisitedAgo:  timefmt.Relative(visit.VisitDate, now),
		}
	}
	return responses
}

func MetricsToResponse(metrics *entity.ClinicMetrics) *dto.MetricsResponse {
	if metrics == nil {
		return nil
	}

	return &dto.MetricsResponse{
		CompletedToday: metrics.CompletedToday,
		WaitingCount:   metrics.WaitingCount,
		AvgWaitMins:    metrics.AvgWaitMins,
	}
}
