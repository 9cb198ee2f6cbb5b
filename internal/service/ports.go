package service

import (
	"context"
	"time"

	"travinhgo-backend/internal/models"
)

// IdentityStore reads identity records. Lookups return (nil, nil) on a miss
// so callers can distinguish "no such identity" from store failures.
type IdentityStore interface {
	GetByID(ctx context.Context, identityID string) (*models.Identity, error)
	GetByContact(ctx context.Context, identifier string) (*models.Identity, error)
}

// SessionStore persists session records keyed by the hashed session id.
// Deactivate is idempotent; ListActiveByIdentity returns oldest first.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByHash(ctx context.Context, sessionHash string) (*models.Session, error)
	ListActiveByIdentity(ctx context.Context, identityID string) ([]*models.Session, error)
	Deactivate(ctx context.Context, sessionHash string) error
}

// OTPStore persists at most one pending challenge per identifier. Put
// replaces any outstanding challenge; Get returns (nil, nil) on a miss.
type OTPStore interface {
	Put(ctx context.Context, otp *models.PendingOTP, ttl time.Duration) error
	Get(ctx context.Context, identifier string) (*models.PendingOTP, error)
	Delete(ctx context.Context, identifier string) error
	IncrementAttempts(ctx context.Context, identifier string, ttl time.Duration) (int, error)
}
