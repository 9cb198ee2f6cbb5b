package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

// SessionLimiter caps the number of concurrently active sessions per
// identity. It holds no state of its own; it reads and writes through the
// SessionStore. Registration serializes per identity so two simultaneous
// logins cannot both count themselves as "session N of N".
type SessionLimiter struct {
	store SessionStore
	limit int
	locks keyedMutex
}

func NewSessionLimiter(store SessionStore, cfg *config.Config) *SessionLimiter {
	return &SessionLimiter{
		store: store,
		limit: cfg.Auth.MaxSessions,
	}
}

// Register persists the new session and then evicts the oldest active
// sessions until the identity is back at the limit. The new login is always
// admitted; eviction, not rejection, is the enforcement. Returns the evicted
// sessions for the audit trail.
func (l *SessionLimiter) Register(ctx context.Context, session *models.Session) ([]*models.Session, error) {
	l.locks.Lock(session.IdentityID)
	defer l.locks.Unlock(session.IdentityID)

	if err := l.store.Create(ctx, session); err != nil {
		return nil, err
	}

	active, err := l.store.ListActiveByIdentity(ctx, session.IdentityID)
	if err != nil {
		return nil, err
	}

	excess := len(active) - l.limit
	if excess <= 0 {
		return nil, nil
	}

	evicted := active[:excess] // oldest first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, old := range evicted {
		old := old
		g.Go(func() error {
			return l.store.Deactivate(gctx, old.SessionHash)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	util.Info("Evicted oldest sessions over limit",
		zap.String("identity_id", session.IdentityID),
		zap.Int("evicted", excess),
		zap.Int("limit", l.limit))

	return evicted, nil
}
