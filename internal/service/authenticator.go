package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"travinhgo-backend/internal/audit"
	"travinhgo-backend/internal/hashing"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

// AuthState is the outcome class of a session validation.
type AuthState int

const (
	// StateUnauthenticated means no session id was presented at all.
	StateUnauthenticated AuthState = iota
	// StateRejected means a session id was presented but did not hold up.
	StateRejected
	// StateAuthenticated means the session resolved to an active identity.
	StateAuthenticated
)

// RejectReason says why a presented session id was rejected.
type RejectReason string

const (
	ReasonNotFound        RejectReason = "not_found"
	ReasonExpired         RejectReason = "expired"
	ReasonInactive        RejectReason = "inactive"
	ReasonIdentityMissing RejectReason = "identity_missing"
	ReasonTransient       RejectReason = "transient"
)

// DefaultRole is assumed when an identity record carries no role.
const DefaultRole = "user"

// AuthResult is the full verdict of a validation. IdentityID, Role and
// RawSessionID are populated only in the authenticated state.
type AuthResult struct {
	State        AuthState
	Reason       RejectReason
	IdentityID   string
	Role         string
	RawSessionID string
}

func unauthenticated() *AuthResult {
	return &AuthResult{State: StateUnauthenticated}
}

func rejected(reason RejectReason) *AuthResult {
	return &AuthResult{State: StateRejected, Reason: reason}
}

// SessionAuthenticator turns a raw session id from a request into an
// authenticated identity, or a typed rejection. It is the single entry point
// request middleware goes through.
type SessionAuthenticator struct {
	sessions   SessionStore
	identities IdentityStore
	hasher     *hashing.Hasher
	recorder   audit.Recorder
}

func NewSessionAuthenticator(sessions SessionStore, identities IdentityStore, hasher *hashing.Hasher, recorder audit.Recorder) *SessionAuthenticator {
	return &SessionAuthenticator{
		sessions:   sessions,
		identities: identities,
		hasher:     hasher,
		recorder:   recorder,
	}
}

// Validate resolves a raw session id. An empty id is unauthenticated, not
// rejected. A session found past its expiry is flipped inactive on the spot
// so later lookups see a deactivated record even without a sweeper.
func (a *SessionAuthenticator) Validate(ctx context.Context, rawSessionID string) (*AuthResult, error) {
	if rawSessionID == "" {
		return unauthenticated(), nil
	}

	sessionHash := a.hasher.Hash(rawSessionID)

	session, err := a.sessions.GetByHash(ctx, sessionHash)
	if err != nil {
		util.Warn("Session lookup failed", zap.Error(err))
		return rejected(ReasonTransient), nil
	}
	if session == nil {
		return rejected(ReasonNotFound), nil
	}

	if !session.IsActive {
		return rejected(ReasonInactive), nil
	}

	if session.Expired(time.Now().UTC()) {
		if err := a.sessions.Deactivate(ctx, sessionHash); err != nil {
			util.Warn("Failed to deactivate expired session", zap.Error(err))
		} else {
			a.recorder.Record(ctx, &models.AuthEvent{
				EventType:   models.EventSessionExpired,
				IdentityID:  session.IdentityID,
				SessionHash: sessionHash,
			})
		}
		return rejected(ReasonExpired), nil
	}

	identity, err := a.identities.GetByID(ctx, session.IdentityID)
	if err != nil {
		util.Warn("Identity lookup failed", zap.Error(err),
			zap.String("identity_id", session.IdentityID))
		return rejected(ReasonTransient), nil
	}
	if identity == nil || !identity.IsActive {
		return rejected(ReasonIdentityMissing), nil
	}

	role := identity.Role
	if role == "" {
		role = DefaultRole
	}

	return &AuthResult{
		State:        StateAuthenticated,
		IdentityID:   identity.IdentityID,
		Role:         role,
		RawSessionID: rawSessionID,
	}, nil
}
