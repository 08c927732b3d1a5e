package handler

import (
	"net/http"
	"strconv"

	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
)

const (
	defaultAuditLogLimit = 50
	maxAuditLogLimit     = 500
)

type AuditLogHandler struct {
	adminUsecase usecase.AdminUsecase
}

func NewAuditLogHandler(adminUsecase usecase.AdminUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		adminUsecase: adminUsecase,
	}
}

// GetAuditLogs returns the newest entries; ?limit= caps the page
func (h *AuditLogHandler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = min(parsed, maxAuditLogLimit)
	}

	auditLogs, err := h.adminUsecase.ListAuditLogs(r.Context(), limit)
	if err != nil {
		response.InternalServerError(w, "Failed to get audit logs")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs)
}
