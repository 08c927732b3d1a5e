package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
	"clinicflow/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type QueueHandler struct {
	queueUsecase  usecase.QueueUsecase
	lookupUsecase usecase.LookupUsecase
	validator     *validator.CustomValidator
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, lookupUsecase usecase.LookupUsecase, validator *validator.CustomValidator) *QueueHandler {
	return &QueueHandler{
		queueUsecase:  queueUsecase,
		lookupUsecase: lookupUsecase,
		validator:     validator,
	}
}

// writeQueueError maps clinic workflow errors onto HTTP statuses
func writeQueueError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrClinicRequired), errors.Is(err, usecase.ErrForbidden), errors.Is(err, usecase.ErrNotDoctor):
		response.Forbidden(w, err.Error())
	case errors.Is(err, usecase.ErrPatientNotFound), errors.Is(err, usecase.ErrAppointmentNotFound), errors.Is(err, usecase.ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, usecase.ErrInvalidTransition), errors.Is(err, usecase.ErrAppointmentNotBooked), errors.Is(err, usecase.ErrSlotTaken):
		response.Error(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, usecase.ErrInvalidSlot), errors.Is(err, usecase.ErrSlotInPast),
		errors.Is(err, usecase.ErrInvalidDate), errors.Is(err, usecase.ErrInvalidStatus):
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
	default:
		response.InternalServerError(w, fallback)
	}
}

func pathUUID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}

// RegisterWalkIn admits a walk-in patient
func (h *QueueHandler) RegisterWalkIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var req dto.RegisterWalkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	patient, err := h.queueUsecase.RegisterWalkIn(r.Context(), actor, &req)
	if err != nil {
		writeQueueError(w, err, "Failed to register patient")
		return
	}

	response.Success(w, http.StatusCreated, "Patient registered successfully", patient)
}

func (h *QueueHandler) CompleteTreatment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	patientID, ok := pathUUID(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	// An empty body completes without notes
	var req dto.CompleteTreatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	if err := h.queueUsecase.CompleteTreatment(r.Context(), actor, patientID, &req); err != nil {
		writeQueueError(w, err, "Failed to complete treatment")
		return
	}

	response.Success(w, http.StatusOK, "Treatment completed successfully", nil)
}

func (h *QueueHandler) CancelPatient(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	patientID, ok := pathUUID(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid patient ID", nil)
		return
	}

	if err := h.queueUsecase.CancelPatient(r.Context(), actor, patientID); err != nil {
		writeQueueError(w, err, "Failed to cancel patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient cancelled successfully", nil)
}

// SetAvailability toggles the calling doctor between READY and ON_BREAK
func (h *QueueHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	var req dto.SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	if err := h.queueUsecase.SetAvailability(r.Context(), actor, &req); err != nil {
		writeQueueError(w, err, "Failed to update availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability updated successfully", nil)
}

func (h *QueueHandler) VisitHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	phone := r.URL.Query().Get("phone")
	if phone == "" {
		response.Error(w, http.StatusBadRequest, "phone is required", nil)
		return
	}

	history, err := h.queueUsecase.VisitHistory(r.Context(), actor, phone)
	if err != nil {
		writeQueueError(w, err, "Failed to get visit history")
		return
	}

	response.Success(w, http.StatusOK, "Visit history retrieved successfully", history)
}

func (h *QueueHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	metrics, err := h.queueUsecase.Metrics(r.Context(), actor)
	if err != nil {
		writeQueueError(w, err, "Failed to get metrics")
		return
	}

	response.Success(w, http.StatusOK, "Metrics retrieved successfully", metrics)
}

// LookupPhone is the one-shot form of the workspace autocomplete
func (h *QueueHandler) LookupPhone(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}
	if !actor.User.HasClinic() {
		response.Forbidden(w, usecase.ErrClinicRequired.Error())
		return
	}

	result, err := h.lookupUsecase.LookupPhone(r.Context(), *actor.User.ClinicID, r.URL.Query().Get("prefix"))
	if err != nil {
		response.InternalServerError(w, "Failed to look up phone")
		return
	}

	response.Success(w, http.StatusOK, "Lookup completed", result)
}
