package scylla

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

// SessionRepository persists session records in a dual-table layout:
// sessions_by_hash for per-request validation lookups, sessions_by_identity
// for per-user listing and limit enforcement. Logged batches keep the two
// tables consistent.
type SessionRepository struct {
	client *ScyllaClient
}

func NewSessionRepository(client *ScyllaClient) *SessionRepository {
	return &SessionRepository{
		client: client,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateSessionByHash.Statement(),
		session.SessionHash, session.IdentityID, session.DeviceInfo, session.IPAddress,
		session.CreatedAt, session.RefreshExpireAt, session.IsActive)

	batch.Query(r.client.Prepared.CreateSessionByIdentity.Statement(),
		session.IdentityID, session.CreatedAt, session.SessionHash, session.DeviceInfo,
		session.IPAddress, session.RefreshExpireAt, session.IsActive)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create session",
			zap.String("identity_id", session.IdentityID),
			zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	util.Info("Session created",
		zap.String("identity_id", session.IdentityID),
		zap.Time("refresh_expire_at", session.RefreshExpireAt))

	return nil
}

// GetByHash returns the session for a hashed id, or (nil, nil) on a miss.
func (r *SessionRepository) GetByHash(ctx context.Context, sessionHash string) (*models.Session, error) {
	session := &models.Session{}

	query := r.client.Prepared.GetSessionByHash.Bind(sessionHash).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&session.SessionHash, &session.IdentityID, &session.DeviceInfo, &session.IPAddress,
		&session.CreatedAt, &session.RefreshExpireAt, &session.IsActive)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		util.Error("Failed to get session by hash", zap.Error(err))
		return nil, fmt.Errorf("failed to get session by hash: %w", err)
	}

	return session, nil
}

// ListActiveByIdentity returns the active sessions for an identity, oldest
// first. Rows cluster by created_at ascending; the sort is kept as a guard
// for stores that return unordered rows.
func (r *SessionRepository) ListActiveByIdentity(ctx context.Context, identityID string) ([]*models.Session, error) {
	var sessions []*models.Session

	iter := r.client.Prepared.ListSessionsByIdentity.Bind(identityID).WithContext(ctx).Iter()

	for {
		session := &models.Session{}
		if !iter.Scan(&session.IdentityID, &session.CreatedAt, &session.SessionHash,
			&session.DeviceInfo, &session.IPAddress, &session.RefreshExpireAt, &session.IsActive) {
			break
		}
		if session.IsActive {
			sessions = append(sessions, session)
		}
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list sessions for identity",
			zap.String("identity_id", identityID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list sessions for identity: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// Deactivate flips a session to inactive in both tables. Unknown hashes and
// already-inactive sessions are no-ops, not errors.
func (r *SessionRepository) Deactivate(ctx context.Context, sessionHash string) error {
	session, err := r.GetByHash(ctx, sessionHash)
	if err != nil {
		return err
	}
	if session == nil || !session.IsActive {
		return nil
	}

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.DeactivateByHash.Statement(), sessionHash)
	batch.Query(r.client.Prepared.DeactivateByIdentity.Statement(),
		session.IdentityID, session.CreatedAt, sessionHash)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to deactivate session",
			zap.String("identity_id", session.IdentityID),
			zap.Error(err))
		return fmt.Errorf("failed to deactivate session: %w", err)
	}

	util.Info("Session deactivated",
		zap.String("identity_id", session.IdentityID))

	return nil
}
