package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"travinhgo-backend/internal/bucketing"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

// IdentityRepository reads identity records owned by the user-management
// subsystem. The auth core never writes to these tables.
type IdentityRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.Manager
}

func NewIdentityRepository(client *ScyllaClient, bucketing *bucketing.Manager) *IdentityRepository {
	return &IdentityRepository{
		client:    client,
		bucketing: bucketing,
	}
}

// GetByID returns the identity, or (nil, nil) when no such identity exists.
func (r *IdentityRepository) GetByID(ctx context.Context, identityID string) (*models.Identity, error) {
	identity := &models.Identity{}

	bucket := r.bucketing.IdentityBucket(identityID)
	query := r.client.Prepared.GetIdentityByID.Bind(bucket, identityID).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&identity.IdentityBucket, &identity.IdentityID, &identity.PhoneHash,
		&identity.EmailHash, &identity.Role, &identity.IsActive, &identity.CreatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		util.Error("Failed to get identity by ID",
			zap.String("identity_id", identityID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get identity by ID: %w", err)
	}

	return identity, nil
}

// GetByContact resolves a phone number or email to an identity through the
// contact_to_identity lookup table. Returns (nil, nil) on a miss.
func (r *IdentityRepository) GetByContact(ctx context.Context, identifier string) (*models.Identity, error) {
	contactHash := util.ContactHash(identifier)

	var bucket int
	var identityID string
	query := r.client.Prepared.GetIdentityByContact.Bind(contactHash).WithContext(ctx)

	err := r.client.ScanWithRetry(query, &bucket, &identityID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		util.Error("Failed to resolve contact to identity",
			zap.String("contact_hash", contactHash),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve contact to identity: %w", err)
	}

	return r.GetByID(ctx, identityID)
}
