package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:              appointment.ID,
		ClinicID:        appointment.ClinicID,
		PatientName:     appointment.PatientName,
		PatientPhone:    appointment.PatientPhone,
		Treatment:       appointment.Treatment,
		AppointmentTime: appointment.AppointmentTime,
		Status:          string(appointment.Status),
		CreatedAt:       appointment.CreatedAt,
	}
}

func SlotsToResponse(date string, slots []entity.TimeSlot) *dto.SlotsResponse {
	response := &dto.SlotsResponse{
		Date:  date,
		Slots: make([]dto.SlotResponse, len(slots)),
	}
	for i, slot := range slots {
		response.Slots[i] = dto.SlotResponse{Time: slot.Time, Disabled: slot.Disabled}
	}
	return response
}
