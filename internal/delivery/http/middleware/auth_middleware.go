package middleware

import (
	"context"
	"net/http"
	"strings"

	"clinicflow/internal/usecase"
	"clinicflow/pkg/response"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	RoleKey     contextKey = "role"
	TokenIDKey  contextKey = "token_id"
	IdentityKey contextKey = "identity"
)

// AuthMiddleware resolves the bearer session into a full identity. Every
// failure is a plain 401.
type AuthMiddleware struct {
	identityUsecase usecase.IdentityUsecase
}

func NewAuthMiddleware(identityUsecase usecase.IdentityUsecase) *AuthMiddleware {
	return &AuthMiddleware{identityUsecase: identityUsecase}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, msg := bearerToken(r)
		if tokenString == "" {
			response.Unauthorized(w, msg)
			return
		}

		result := m.identityUsecase.ResolveSession(r.Context(), tokenString)
		if !result.IsAuthenticated() {
			response.Unauthorized(w, "Invalid or expired session")
			return
		}
		identity := *result.Identity

		// Add user info to context
		ctx := context.WithValue(r.Context(), UserIDKey, identity.User.ID)
		ctx = context.WithValue(ctx, RoleKey, string(identity.User.Role))
		ctx = context.WithValue(ctx, TokenIDKey, result.TokenID)
		ctx = context.WithValue(ctx, IdentityKey, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads "Bearer <token>" from the Authorization header. Browsers
// cannot set headers on a WebSocket handshake, so the token query parameter
// is accepted as well.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, ""
		}
		return "", "Authorization header is required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}

// GetRoleFromContext extracts the role claim from context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
