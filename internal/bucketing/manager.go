package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"travinhgo-backend/internal/config"
)

// Manager assigns identity rows to fixed partition buckets so the identities
// table spreads evenly across the Scylla cluster. Bucket assignment must be
// stable for the lifetime of a deployment.
type Manager struct {
	identityBuckets int
	hasherPool      sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		identityBuckets: cfg.Bucketing.IdentityBuckets,
	}

	// Pool of hash functions to avoid allocation overhead on hot lookups
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// IdentityBucket returns the consistent bucket for an identity id
// (0 to identityBuckets-1).
func (m *Manager) IdentityBucket(identityID string) int {
	return m.bucket(identityID, m.identityBuckets)
}

func (m *Manager) bucket(key string, buckets int) int {
	if buckets <= 0 {
		return 0
	}

	h := m.hasherPool.Get().(hash.Hash64)
	defer func() {
		h.Reset()
		m.hasherPool.Put(h)
	}()

	_, _ = h.Write([]byte(key))
	return int(h.Sum64() % uint64(buckets))
}
