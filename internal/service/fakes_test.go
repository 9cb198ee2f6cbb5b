package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			OTPTTL:         300 * time.Second,
			OTPMaxAttempts: 5,
			SessionTTL:     24 * time.Hour,
			MaxSessions:    3,
		},
		Hashing: config.HashingConfig{
			Salt:       "test-salt",
			Iterations: 10000,
		},
	}
}

type fakeIdentityStore struct {
	mu         sync.Mutex
	identities map[string]*models.Identity // keyed by identity id
	contacts   map[string]string           // contact hash -> identity id
	err        error
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{
		identities: make(map[string]*models.Identity),
		contacts:   make(map[string]string),
	}
}

func (f *fakeIdentityStore) add(identity *models.Identity, contacts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[identity.IdentityID] = identity
	for _, c := range contacts {
		f.contacts[util.ContactHash(c)] = identity.IdentityID
	}
}

func (f *fakeIdentityStore) GetByID(_ context.Context, identityID string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.identities[identityID], nil
}

func (f *fakeIdentityStore) GetByContact(_ context.Context, identifier string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.contacts[util.ContactHash(identifier)]
	if !ok {
		return nil, nil
	}
	return f.identities[id], nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session // keyed by session hash
	err      error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.Session)}
}

func (f *fakeSessionStore) Create(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copied := *session
	f.sessions[session.SessionHash] = &copied
	return nil
}

func (f *fakeSessionStore) GetByHash(_ context.Context, sessionHash string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	session, ok := f.sessions[sessionHash]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) ListActiveByIdentity(_ context.Context, identityID string) ([]*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var active []*models.Session
	for _, session := range f.sessions {
		if session.IdentityID == identityID && session.IsActive {
			copied := *session
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

func (f *fakeSessionStore) Deactivate(_ context.Context, sessionHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if session, ok := f.sessions[sessionHash]; ok {
		session.IsActive = false
	}
	return nil
}

type fakeOTPStore struct {
	mu       sync.Mutex
	pending  map[string]*models.PendingOTP
	attempts map[string]int
	err      error
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{
		pending:  make(map[string]*models.PendingOTP),
		attempts: make(map[string]int),
	}
}

func (f *fakeOTPStore) Put(_ context.Context, otp *models.PendingOTP, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copied := *otp
	f.pending[otp.Identifier] = &copied
	delete(f.attempts, otp.Identifier)
	return nil
}

func (f *fakeOTPStore) Get(_ context.Context, identifier string) (*models.PendingOTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	otp, ok := f.pending[identifier]
	if !ok {
		return nil, nil
	}
	copied := *otp
	return &copied, nil
}

func (f *fakeOTPStore) Delete(_ context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.pending, identifier)
	delete(f.attempts, identifier)
	return nil
}

func (f *fakeOTPStore) IncrementAttempts(_ context.Context, identifier string, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.attempts[identifier]++
	return f.attempts[identifier], nil
}

type sentCode struct {
	identifier string
	code       string
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeDispatcher) Send(_ context.Context, identifier, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{identifier: identifier, code: code})
	return nil
}

func (f *fakeDispatcher) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].code
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []*models.AuthEvent
}

func (f *fakeRecorder) Record(_ context.Context, event *models.AuthEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRecorder) countType(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}
