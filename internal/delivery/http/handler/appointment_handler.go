package handler

import (
	"encoding/json"
	"net/http"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
	"clinicflow/pkg/validator"
)

type AppointmentHandler struct {
	queueUsecase usecase.QueueUsecase
	validator    *validator.CustomValidator
}

func NewAppointmentHandler(queueUsecase usecase.QueueUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
	}
}

func (h *AppointmentHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var req dto.ScheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.queueUsecase.ScheduleAppointment(r.Context(), actor, &req)
	if err != nil {
		writeQueueError(w, err, "Failed to schedule appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment scheduled successfully", appointment)
}

// Slots lists the day's 30 minute slots with taken or past ones disabled
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	slots, err := h.queueUsecase.AvailableSlots(r.Context(), actor, r.URL.Query().Get("date"))
	if err != nil {
		writeQueueError(w, err, "Failed to get slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", slots)
}

func (h *AppointmentHandler) Arrive(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	appointmentID, ok := pathUUID(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	patient, err := h.queueUsecase.MarkArrived(r.Context(), actor, appointmentID)
	if err != nil {
		writeQueueError(w, err, "Failed to mark arrival")
		return
	}

	response.Success(w, http.StatusOK, "Patient checked in successfully", patient)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	appointmentID, ok := pathUUID(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	if err := h.queueUsecase.CancelAppointment(r.Context(), actor, appointmentID); err != nil {
		writeQueueError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", nil)
}
