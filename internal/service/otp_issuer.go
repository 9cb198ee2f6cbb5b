package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/hashing"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/notify"
	"travinhgo-backend/internal/util"
)

// OTPChallenge is what the caller gets back from an OTP request: a
// correlation id and the window in which the code is valid. Never the code.
type OTPChallenge struct {
	ReferenceID string `json:"reference_id"`
	ExpiresIn   int    `json:"expires_in"`
}

// OTPIssuer owns the OTP half of the login flow: one outstanding challenge
// per identifier, single-use codes, attempt limiting. Issuance and
// verification for the same identifier are serialized so a refresh can never
// race a concurrent verification of the code it is invalidating.
type OTPIssuer struct {
	store       OTPStore
	hasher      *hashing.Hasher
	dispatcher  notify.Dispatcher
	ttl         time.Duration
	maxAttempts int
	locks       keyedMutex
}

func NewOTPIssuer(store OTPStore, hasher *hashing.Hasher, dispatcher notify.Dispatcher, cfg *config.Config) *OTPIssuer {
	return &OTPIssuer{
		store:       store,
		hasher:      hasher,
		dispatcher:  dispatcher,
		ttl:         cfg.Auth.OTPTTL,
		maxAttempts: cfg.Auth.OTPMaxAttempts,
	}
}

// RequestOTP issues a fresh 6-digit challenge for the identifier. Any prior
// challenge is invalidated by the overwrite. The raw code goes to the
// dispatcher and nowhere else.
func (i *OTPIssuer) RequestOTP(ctx context.Context, identifier string) (*OTPChallenge, error) {
	identifier = util.NormalizeContact(identifier)

	i.locks.Lock(identifier)
	defer i.locks.Unlock(identifier)

	return i.issue(ctx, identifier)
}

// RefreshOTP discards the stale challenge before issuing a new one, so there
// is no window in which two codes verify.
func (i *OTPIssuer) RefreshOTP(ctx context.Context, identifier string) (*OTPChallenge, error) {
	identifier = util.NormalizeContact(identifier)

	i.locks.Lock(identifier)
	defer i.locks.Unlock(identifier)

	if err := i.store.Delete(ctx, identifier); err != nil {
		return nil, err
	}
	return i.issue(ctx, identifier)
}

// issue must be called with the identifier lock held.
func (i *OTPIssuer) issue(ctx context.Context, identifier string) (*OTPChallenge, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	now := time.Now().UTC()
	otp := &models.PendingOTP{
		Identifier:  identifier,
		CodeHash:    i.hasher.Hash(code),
		ReferenceID: uuid.New().String(),
		IssuedAt:    now,
		ExpiresAt:   now.Add(i.ttl),
	}

	if err := i.store.Put(ctx, otp, i.ttl); err != nil {
		return nil, err
	}

	if err := i.dispatcher.Send(ctx, identifier, code); err != nil {
		// An undispatched code must not linger as a verifiable challenge.
		if delErr := i.store.Delete(ctx, identifier); delErr != nil {
			util.Warn("Failed to clear undelivered OTP challenge", zap.Error(delErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	util.Info("OTP challenge issued",
		zap.String("reference_id", otp.ReferenceID),
		zap.Time("expires_at", otp.ExpiresAt))

	return &OTPChallenge{
		ReferenceID: otp.ReferenceID,
		ExpiresIn:   int(i.ttl.Seconds()),
	}, nil
}

// VerifyOTP checks a submitted code against the outstanding challenge and
// consumes it on success. Failures are typed: ErrOTPInvalid when nothing is
// pending (or attempts are exhausted), ErrOTPExpired past the TTL,
// ErrOTPMismatch on a wrong code.
func (i *OTPIssuer) VerifyOTP(ctx context.Context, identifier, code string) error {
	identifier = util.NormalizeContact(identifier)

	i.locks.Lock(identifier)
	defer i.locks.Unlock(identifier)

	otp, err := i.store.Get(ctx, identifier)
	if err != nil {
		return err
	}
	if otp == nil {
		return ErrOTPInvalid
	}

	if otp.Expired(time.Now().UTC()) {
		if err := i.store.Delete(ctx, identifier); err != nil {
			util.Warn("Failed to clear expired OTP challenge", zap.Error(err))
		}
		return ErrOTPExpired
	}

	if !i.hasher.Compare(code, otp.CodeHash) {
		attempts, attErr := i.store.IncrementAttempts(ctx, identifier, i.ttl)
		if attErr != nil {
			util.Warn("Failed to count OTP attempt", zap.Error(attErr))
		}
		if attErr == nil && attempts >= i.maxAttempts {
			if err := i.store.Delete(ctx, identifier); err != nil {
				util.Warn("Failed to void exhausted OTP challenge", zap.Error(err))
			}
			util.Warn("OTP challenge voided after too many attempts",
				zap.String("reference_id", otp.ReferenceID),
				zap.Int("attempts", attempts))
			return ErrOTPInvalid
		}
		return ErrOTPMismatch
	}

	// Single use: the challenge is gone the moment it verifies.
	if err := i.store.Delete(ctx, identifier); err != nil {
		return err
	}

	util.Info("OTP verified", zap.String("reference_id", otp.ReferenceID))
	return nil
}

// generateCode draws a uniform 6-digit code (100000-999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
