package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travinhgo-backend/internal/models"
)

func testSession(identityID, hash string, createdAt time.Time) *models.Session {
	return &models.Session{
		SessionHash:     hash,
		IdentityID:      identityID,
		DeviceInfo:      "test-device",
		CreatedAt:       createdAt,
		RefreshExpireAt: createdAt.Add(24 * time.Hour),
		IsActive:        true,
	}
}

func TestRegisterUnderLimit(t *testing.T) {
	store := newFakeSessionStore()
	limiter := NewSessionLimiter(store, newTestConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		evicted, err := limiter.Register(ctx, testSession("identity-1", fmt.Sprintf("hash-%d", i), now.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}

	active, err := store.ListActiveByIdentity(ctx, "identity-1")
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestRegisterEvictsOldest(t *testing.T) {
	store := newFakeSessionStore()
	limiter := NewSessionLimiter(store, newTestConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := limiter.Register(ctx, testSession("identity-1", fmt.Sprintf("hash-%d", i), now.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	evicted, err := limiter.Register(ctx, testSession("identity-1", "hash-3", now.Add(3*time.Second)))
	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.Equal(t, "hash-0", evicted[0].SessionHash, "the oldest session goes first")

	oldest, err := store.GetByHash(ctx, "hash-0")
	require.NoError(t, err)
	assert.False(t, oldest.IsActive)

	newest, err := store.GetByHash(ctx, "hash-3")
	require.NoError(t, err)
	assert.True(t, newest.IsActive)

	active, err := store.ListActiveByIdentity(ctx, "identity-1")
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestRegisterDoesNotCrossIdentities(t *testing.T) {
	store := newFakeSessionStore()
	limiter := NewSessionLimiter(store, newTestConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := limiter.Register(ctx, testSession("identity-1", fmt.Sprintf("a-%d", i), now.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	evicted, err := limiter.Register(ctx, testSession("identity-2", "b-0", now))
	require.NoError(t, err)
	assert.Empty(t, evicted, "another identity's sessions must not count against the limit")

	active, err := store.ListActiveByIdentity(ctx, "identity-1")
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestRegisterConcurrentLoginsHoldLimit(t *testing.T) {
	store := newFakeSessionStore()
	cfg := newTestConfig()
	limiter := NewSessionLimiter(store, cfg)
	ctx := context.Background()
	now := time.Now().UTC()

	const logins = 10
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := limiter.Register(ctx, testSession("identity-1", fmt.Sprintf("hash-%d", i), now.Add(time.Duration(i)*time.Millisecond)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	active, err := store.ListActiveByIdentity(ctx, "identity-1")
	require.NoError(t, err)
	assert.Len(t, active, cfg.Auth.MaxSessions)
}
