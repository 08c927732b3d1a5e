package http

import (
	"net/http"

	"clinicflow/internal/delivery/http/handler"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/pkg/response"

	"github.com/gorilla/mux"
)

// SessionCounter reports how many workspace screens are live
type SessionCounter interface {
	Count() int
}

type Router struct {
	router             *mux.Router
	authHandler        *handler.AuthHandler
	adminHandler       *handler.AdminHandler
	auditLogHandler    *handler.AuditLogHandler
	queueHandler       *handler.QueueHandler
	appointmentHandler *handler.AppointmentHandler
	workspaceHandler   *handler.WorkspaceHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
	loginLimiter       *middleware.RateLimiter
	sessions           SessionCounter
}

func NewRouter(
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	auditLogHandler *handler.AuditLogHandler,
	queueHandler *handler.QueueHandler,
	appointmentHandler *handler.AppointmentHandler,
	workspaceHandler *handler.WorkspaceHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loginLimiter *middleware.RateLimiter,
	sessions SessionCounter,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		authHandler:        authHandler,
		adminHandler:       adminHandler,
		auditLogHandler:    auditLogHandler,
		queueHandler:       queueHandler,
		appointmentHandler: appointmentHandler,
		workspaceHandler:   workspaceHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
		loginLimiter:       loginLimiter,
		sessions:           sessions,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Preflight requests never reach a method-bound route
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.Handle("/login", r.loginLimiter.Handle(http.HandlerFunc(r.authHandler.Login))).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.Me).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/users", r.adminHandler.CreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/clinic", r.adminHandler.AssignClinic).Methods(http.MethodPut)
	admin.HandleFunc("/overview", r.adminHandler.Overview).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAuditLogs).Methods(http.MethodGet)

	// Clinic creation (admins, or a doctor founding their own clinic)
	clinics := api.PathPrefix("/clinics").Subrouter()
	clinics.Use(r.authMiddleware.Authenticate)
	clinics.Use(middleware.RequireAdminOrDoctor)
	clinics.HandleFunc("", r.adminHandler.CreateClinic).Methods(http.MethodPost)

	// Clinic workspace routes (doctors and assistants with a clinic)
	staff := api.PathPrefix("/").Subrouter()
	staff.Use(r.authMiddleware.Authenticate)
	staff.Use(middleware.RequireClinicStaff)
	staff.Use(middleware.RequireClinic)

	staff.HandleFunc("/queue/walk-ins", r.queueHandler.RegisterWalkIn).Methods(http.MethodPost)
	staff.HandleFunc("/queue/patients/{id}/complete", r.queueHandler.CompleteTreatment).Methods(http.MethodPost)
	staff.HandleFunc("/queue/patients/{id}/cancel", r.queueHandler.CancelPatient).Methods(http.MethodPost)
	staff.HandleFunc("/queue/metrics", r.queueHandler.Metrics).Methods(http.MethodGet)
	staff.HandleFunc("/patients/lookup", r.queueHandler.LookupPhone).Methods(http.MethodGet)
	staff.HandleFunc("/patients/history", r.queueHandler.VisitHistory).Methods(http.MethodGet)
	staff.Handle("/doctor/availability", middleware.RequireDoctor(http.HandlerFunc(r.queueHandler.SetAvailability))).Methods(http.MethodPut)

	staff.HandleFunc("/appointments", r.appointmentHandler.Schedule).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/slots", r.appointmentHandler.Slots).Methods(http.MethodGet)
	staff.HandleFunc("/appointments/{id}/arrive", r.appointmentHandler.Arrive).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/cancel", r.appointmentHandler.Cancel).Methods(http.MethodPost)

	staff.HandleFunc("/workspace/ws", r.workspaceHandler.Connect).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": r.sessions.Count(),
	})
}
