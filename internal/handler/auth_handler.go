package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"travinhgo-backend/internal/service"
	"travinhgo-backend/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for the OTP login flow and session
// management.
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

// RegisterRoutes registers all auth routes
func (h *AuthHandler) RegisterRoutes(router chi.Router, authMiddleware *AuthMiddleware) {
	router.Route("/auth", func(r chi.Router) {
		// Public routes
		r.Post("/otp/request", h.RequestOTP)
		r.Post("/otp/refresh", h.RefreshOTP)
		r.Post("/otp/verify", h.VerifyOTP)
		r.Post("/logout", h.Logout)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireSession)
			r.Get("/sessions", h.ListSessions)
		})
	})
}

type otpRequest struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (r *otpRequest) identifier() (string, error) {
	switch {
	case r.Phone != "" && r.Email != "":
		return "", errors.New("provide either phone or email, not both")
	case r.Phone != "":
		return r.Phone, nil
	case r.Email != "":
		return r.Email, nil
	default:
		return "", errors.New("phone or email is required")
	}
}

// RequestOTP starts an OTP login for a phone number or email address.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	identifier, err := req.identifier()
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid login request")
		return
	}

	var challenge *service.OTPChallenge
	if req.Phone != "" {
		challenge, err = h.authService.AuthenticateWithPhone(ctx, identifier)
	} else {
		challenge, err = h.authService.AuthenticateWithEmail(ctx, identifier)
	}
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), err, "Failed to request OTP")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(challenge, "OTP sent"))
	h.logger.Info("OTP requested via HTTP",
		util.String("reference_id", challenge.ReferenceID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "RequestOTP"),
	)
}

// RefreshOTP replaces an outstanding challenge with a fresh one.
func (h *AuthHandler) RefreshOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	identifier, err := req.identifier()
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid refresh request")
		return
	}

	challenge, err := h.authService.RefreshOTP(ctx, identifier)
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), err, "Failed to refresh OTP")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(challenge, "OTP refreshed"))
	h.logger.Info("OTP refreshed via HTTP",
		util.String("reference_id", challenge.ReferenceID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "RefreshOTP"),
	)
}

// VerifyOTP completes the login and returns the session credentials. This is
// the only response that ever carries the raw session id.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req struct {
		Phone      string `json:"phone,omitempty"`
		Email      string `json:"email,omitempty"`
		Code       string `json:"code"`
		DeviceInfo string `json:"device_info,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	contact := otpRequest{Phone: req.Phone, Email: req.Email}
	identifier, err := contact.identifier()
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid verification request")
		return
	}
	if req.Code == "" {
		h.respondWithError(w, http.StatusBadRequest, errors.New("code is required"), "Invalid verification request")
		return
	}

	result, err := h.authService.VerifyOTP(ctx, identifier, req.Code, req.DeviceInfo, realIP(r))
	if err != nil {
		h.respondWithError(w, h.getStatusCode(err), err, "Verification failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(result, "Login successful"))
	h.logger.Info("Login via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "VerifyOTP"),
	)
}

// Logout deactivates the presented session. Missing and unknown sessions get
// the same success response.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	rawSessionID := r.Header.Get(SessionIDHeader)

	if err := h.authService.Logout(ctx, rawSessionID); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to log out")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
	h.logger.Info("Logout via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Logout"),
	)
}

// ListSessions returns the caller's active sessions. Requires a valid
// session; never includes session id material.
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	auth := AuthFromContext(ctx)
	if auth == nil {
		h.respondWithError(w, http.StatusUnauthorized, errors.New("no authenticated session"), "Authentication required")
		return
	}

	sessions, err := h.authService.ListSessions(ctx, auth.IdentityID)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to list sessions")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(sessions, "Sessions retrieved"))
	h.logger.Debug("Sessions listed via HTTP",
		util.String("identity_id", auth.IdentityID),
		util.Int("count", len(sessions)),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "ListSessions"),
	)
}

// Helper Methods

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func (h *AuthHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	respondWithJSON(w, statusCode, data)
}

func (h *AuthHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode determines the appropriate HTTP status code for an error
func (h *AuthHandler) getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrIdentityNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrOTPInvalid),
		errors.Is(err, service.ErrOTPExpired),
		errors.Is(err, service.ErrOTPMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// realIP returns the client address set by the RealIP middleware.
func realIP(r *http.Request) string {
	return r.RemoteAddr
}
