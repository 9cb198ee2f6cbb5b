package service

import "sync"

// keyedMutex serializes work per key: per identifier for OTP issuance, per
// identity for session-limit enforcement. In-process only; a multi-instance
// deployment swaps this for a store-level lock. Entries are never evicted,
// so the map grows with the set of keys seen over the process lifetime
// (a few dozen bytes per distinct contact or identity).
type keyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

func (k *keyedMutex) Lock(key string) {
	m, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m.(*sync.Mutex).Lock()
}

func (k *keyedMutex) Unlock(key string) {
	if m, ok := k.locks.Load(key); ok {
		m.(*sync.Mutex).Unlock()
	}
}
