package handler

import (
	"context"
	"net/http"

	"travinhgo-backend/internal/service"
	"travinhgo-backend/internal/util"

	"go.uber.org/zap"
)

// SessionIDHeader carries the raw session id on authenticated requests.
const SessionIDHeader = "X-Session-ID"

type contextKey string

const authResultKey contextKey = "auth_result"

// AuthMiddleware resolves the session id header into an identity before
// protected handlers run.
type AuthMiddleware struct {
	authenticator *service.SessionAuthenticator
	logger        *zap.Logger
}

func NewAuthMiddleware(authenticator *service.SessionAuthenticator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

// RequireSession validates the session header and rejects the request unless
// it resolves to an authenticated identity. The verdict is placed on the
// request context for the handler.
func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawSessionID := r.Header.Get(SessionIDHeader)

		result, err := m.authenticator.Validate(r.Context(), rawSessionID)
		if err != nil {
			m.logger.Error("Session validation failed", util.ErrorField(err))
			respondWithJSON(w, http.StatusInternalServerError, errorResponse(err, "Authentication failed"))
			return
		}

		switch result.State {
		case service.StateAuthenticated:
			ctx := context.WithValue(r.Context(), authResultKey, result)
			next.ServeHTTP(w, r.WithContext(ctx))
		case service.StateRejected:
			m.logger.Debug("Session rejected",
				util.String("reason", string(result.Reason)),
				util.String("path", r.URL.Path),
			)
			if result.Reason == service.ReasonTransient {
				respondWithJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   string(result.Reason),
					Message: "Authentication temporarily unavailable",
				})
				return
			}
			respondWithJSON(w, http.StatusUnauthorized, Response{
				Success: false,
				Error:   string(result.Reason),
				Message: "Session is not valid",
			})
		default:
			respondWithJSON(w, http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing_session",
				Message: "Session id is required",
			})
		}
	})
}

// AuthFromContext returns the authentication verdict stored by
// RequireSession, or nil outside a protected route.
func AuthFromContext(ctx context.Context) *service.AuthResult {
	result, _ := ctx.Value(authResultKey).(*service.AuthResult)
	return result
}
