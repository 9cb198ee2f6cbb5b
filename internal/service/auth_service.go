package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"travinhgo-backend/internal/audit"
	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/hashing"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

// LoginResult carries the raw session id and refresh token back to the
// client. This is the only moment either value exists outside the client;
// the store keeps hashes.
type LoginResult struct {
	SessionID    string    `json:"session_id"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionInfo is what session listing exposes: device metadata only, never
// id material.
type SessionInfo struct {
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuthService orchestrates the OTP login flow: challenge issuance against a
// known identity, verification, session creation under the per-identity
// limit, logout and session listing.
type AuthService struct {
	identities IdentityStore
	sessions   SessionStore
	issuer     *OTPIssuer
	limiter    *SessionLimiter
	hasher     *hashing.Hasher
	recorder   audit.Recorder
	sessionTTL time.Duration
}

func NewAuthService(
	identities IdentityStore,
	sessions SessionStore,
	issuer *OTPIssuer,
	limiter *SessionLimiter,
	hasher *hashing.Hasher,
	recorder audit.Recorder,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		issuer:     issuer,
		limiter:    limiter,
		hasher:     hasher,
		recorder:   recorder,
		sessionTTL: cfg.Auth.SessionTTL,
	}
}

// AuthenticateWithPhone starts an OTP login for a phone number.
func (s *AuthService) AuthenticateWithPhone(ctx context.Context, phone string) (*OTPChallenge, error) {
	return s.requestChallenge(ctx, phone)
}

// AuthenticateWithEmail starts an OTP login for an email address.
func (s *AuthService) AuthenticateWithEmail(ctx context.Context, email string) (*OTPChallenge, error) {
	return s.requestChallenge(ctx, email)
}

func (s *AuthService) requestChallenge(ctx context.Context, identifier string) (*OTPChallenge, error) {
	identity, err := s.resolveActiveIdentity(ctx, identifier)
	if err != nil {
		return nil, err
	}

	challenge, err := s.issuer.RequestOTP(ctx, identifier)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &models.AuthEvent{
		EventType:      models.EventOTPRequested,
		IdentityID:     identity.IdentityID,
		IdentifierHash: util.ContactHash(identifier),
	})

	return challenge, nil
}

// RefreshOTP re-issues a challenge after the previous code expired. The
// identity must still resolve and be active.
func (s *AuthService) RefreshOTP(ctx context.Context, identifier string) (*OTPChallenge, error) {
	identity, err := s.resolveActiveIdentity(ctx, identifier)
	if err != nil {
		return nil, err
	}

	challenge, err := s.issuer.RefreshOTP(ctx, identifier)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &models.AuthEvent{
		EventType:      models.EventOTPRequested,
		IdentityID:     identity.IdentityID,
		IdentifierHash: util.ContactHash(identifier),
		Details:        "refresh",
	})

	return challenge, nil
}

// VerifyOTP completes the login. OTP failures propagate without a session
// being created; on success a fresh session is persisted under the
// concurrent-session limit and the raw credentials are returned exactly once.
func (s *AuthService) VerifyOTP(ctx context.Context, identifier, code, deviceInfo, ipAddress string) (*LoginResult, error) {
	if err := s.issuer.VerifyOTP(ctx, identifier, code); err != nil {
		s.recorder.Record(ctx, &models.AuthEvent{
			EventType:      models.EventOTPFailed,
			IdentifierHash: util.ContactHash(identifier),
			IPAddress:      ipAddress,
			Details:        err.Error(),
		})
		return nil, err
	}

	identity, err := s.resolveActiveIdentity(ctx, identifier)
	if err != nil {
		return nil, err
	}

	rawSessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	refreshToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		SessionHash:     s.hasher.Hash(rawSessionID),
		IdentityID:      identity.IdentityID,
		DeviceInfo:      deviceInfo,
		IPAddress:       ipAddress,
		CreatedAt:       now,
		RefreshExpireAt: now.Add(s.sessionTTL),
		IsActive:        true,
	}

	evicted, err := s.limiter.Register(ctx, session)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, &models.AuthEvent{
		EventType:      models.EventOTPVerified,
		IdentityID:     identity.IdentityID,
		IdentifierHash: util.ContactHash(identifier),
		IPAddress:      ipAddress,
	})
	s.recorder.Record(ctx, &models.AuthEvent{
		EventType:   models.EventLogin,
		IdentityID:  identity.IdentityID,
		SessionHash: session.SessionHash,
		DeviceInfo:  deviceInfo,
		IPAddress:   ipAddress,
	})
	for _, old := range evicted {
		s.recorder.Record(ctx, &models.AuthEvent{
			EventType:   models.EventSessionEvicted,
			IdentityID:  identity.IdentityID,
			SessionHash: old.SessionHash,
			DeviceInfo:  old.DeviceInfo,
		})
	}

	util.Info("Login completed",
		zap.String("identity_id", identity.IdentityID),
		zap.Int("evicted_sessions", len(evicted)))

	return &LoginResult{
		SessionID:    rawSessionID,
		RefreshToken: refreshToken,
		ExpiresAt:    session.RefreshExpireAt,
	}, nil
}

// Logout deactivates the session behind a raw id. Unknown ids are a silent
// no-op so callers cannot probe whether a session ever existed.
func (s *AuthService) Logout(ctx context.Context, rawSessionID string) error {
	if rawSessionID == "" {
		return nil
	}

	sessionHash := s.hasher.Hash(rawSessionID)

	session, err := s.sessions.GetByHash(ctx, sessionHash)
	if err != nil {
		return err
	}
	if session == nil || !session.IsActive {
		return nil
	}

	if err := s.sessions.Deactivate(ctx, sessionHash); err != nil {
		return err
	}

	s.recorder.Record(ctx, &models.AuthEvent{
		EventType:   models.EventLogout,
		IdentityID:  session.IdentityID,
		SessionHash: sessionHash,
	})

	return nil
}

// ListSessions returns the active sessions of an identity for display and
// management. No session id material leaves this method.
func (s *AuthService) ListSessions(ctx context.Context, identityID string) ([]SessionInfo, error) {
	active, err := s.sessions.ListActiveByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	infos := make([]SessionInfo, 0, len(active))
	for _, session := range active {
		infos = append(infos, SessionInfo{
			DeviceInfo: session.DeviceInfo,
			IPAddress:  session.IPAddress,
			CreatedAt:  session.CreatedAt,
		})
	}
	return infos, nil
}

func (s *AuthService) resolveActiveIdentity(ctx context.Context, identifier string) (*models.Identity, error) {
	identity, err := s.identities.GetByContact(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if identity == nil || !identity.IsActive {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

// generateToken draws a 256-bit random value for use as a raw session id or
// refresh token.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
