package middleware

import (
	"context"
	"net/http"

	"clinicflow/internal/domain/entity"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"
)

// RequireClinic rejects users that are not assigned to a clinic
func RequireClinic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "Identity not found")
			return
		}
		if !identity.User.HasClinic() {
			response.Forbidden(w, usecase.ErrClinicRequired.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentityFromContext extracts the resolved identity from context
func GetIdentityFromContext(ctx context.Context) (entity.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(entity.Identity)
	return identity, ok
}
