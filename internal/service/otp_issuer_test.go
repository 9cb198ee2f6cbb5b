package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travinhgo-backend/internal/hashing"
	"travinhgo-backend/internal/models"
)

func newTestIssuer(t *testing.T) (*OTPIssuer, *fakeOTPStore, *fakeDispatcher) {
	t.Helper()
	cfg := newTestConfig()
	store := newFakeOTPStore()
	dispatcher := &fakeDispatcher{}
	issuer := NewOTPIssuer(store, hashing.NewHasher(cfg), dispatcher, cfg)
	return issuer, store, dispatcher
}

func TestRequestOTPIssuesChallenge(t *testing.T) {
	issuer, store, dispatcher := newTestIssuer(t)
	ctx := context.Background()

	challenge, err := issuer.RequestOTP(ctx, "+84 90 123 4567")
	require.NoError(t, err)
	require.NotNil(t, challenge)
	assert.NotEmpty(t, challenge.ReferenceID)
	assert.Equal(t, 300, challenge.ExpiresIn)

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "+84901234567", dispatcher.sent[0].identifier)
	assert.Len(t, dispatcher.sent[0].code, 6)

	pending, err := store.Get(ctx, "+84901234567")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, challenge.ReferenceID, pending.ReferenceID)
	assert.NotContains(t, pending.CodeHash, dispatcher.sent[0].code)
}

func TestRequestOTPReplacesPendingChallenge(t *testing.T) {
	issuer, _, dispatcher := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	firstCode := dispatcher.lastCode()

	_, err = issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	secondCode := dispatcher.lastCode()

	if firstCode != secondCode {
		err = issuer.VerifyOTP(ctx, "user@example.com", firstCode)
		assert.ErrorIs(t, err, ErrOTPMismatch)
	}
	err = issuer.VerifyOTP(ctx, "user@example.com", secondCode)
	assert.NoError(t, err)
}

func TestVerifyOTPWithoutChallenge(t *testing.T) {
	issuer, _, _ := newTestIssuer(t)

	err := issuer.VerifyOTP(context.Background(), "user@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestVerifyOTPExpiredChallenge(t *testing.T) {
	issuer, store, _ := newTestIssuer(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Put(ctx, &models.PendingOTP{
		Identifier:  "user@example.com",
		CodeHash:    "irrelevant",
		ReferenceID: "ref-1",
		IssuedAt:    now.Add(-10 * time.Minute),
		ExpiresAt:   now.Add(-5 * time.Minute),
	}, 0))

	err := issuer.VerifyOTP(ctx, "user@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPExpired)

	pending, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Nil(t, pending, "expired challenge should be cleared")
}

func TestVerifyOTPSingleUse(t *testing.T) {
	issuer, _, dispatcher := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	code := dispatcher.lastCode()

	require.NoError(t, issuer.VerifyOTP(ctx, "user@example.com", code))

	err = issuer.VerifyOTP(ctx, "user@example.com", code)
	assert.ErrorIs(t, err, ErrOTPInvalid, "a consumed code must not verify twice")
}

func TestVerifyOTPMismatchThenSuccess(t *testing.T) {
	issuer, _, dispatcher := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	code := dispatcher.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = issuer.VerifyOTP(ctx, "user@example.com", wrong)
	assert.ErrorIs(t, err, ErrOTPMismatch)

	assert.NoError(t, issuer.VerifyOTP(ctx, "user@example.com", code))
}

func TestVerifyOTPAttemptExhaustion(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.OTPMaxAttempts = 2
	store := newFakeOTPStore()
	dispatcher := &fakeDispatcher{}
	issuer := NewOTPIssuer(store, hashing.NewHasher(cfg), dispatcher, cfg)
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	code := dispatcher.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err = issuer.VerifyOTP(ctx, "user@example.com", wrong)
	assert.ErrorIs(t, err, ErrOTPMismatch)

	err = issuer.VerifyOTP(ctx, "user@example.com", wrong)
	assert.ErrorIs(t, err, ErrOTPInvalid, "challenge should be voided at the attempt limit")

	err = issuer.VerifyOTP(ctx, "user@example.com", code)
	assert.ErrorIs(t, err, ErrOTPInvalid, "even the right code must fail after voiding")
}

func TestAttemptCounterResetsWithNewChallenge(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.OTPMaxAttempts = 2
	store := newFakeOTPStore()
	dispatcher := &fakeDispatcher{}
	issuer := NewOTPIssuer(store, hashing.NewHasher(cfg), dispatcher, cfg)
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	firstCode := dispatcher.lastCode()

	wrong := "000000"
	if wrong == firstCode {
		wrong = "000001"
	}
	err = issuer.VerifyOTP(ctx, "user@example.com", wrong)
	require.ErrorIs(t, err, ErrOTPMismatch)

	// A fresh challenge starts with a clean attempt budget.
	_, err = issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	secondCode := dispatcher.lastCode()
	if wrong == secondCode {
		wrong = "000002"
	}

	err = issuer.VerifyOTP(ctx, "user@example.com", wrong)
	assert.ErrorIs(t, err, ErrOTPMismatch,
		"one stale miss must not count against the new challenge")

	assert.NoError(t, issuer.VerifyOTP(ctx, "user@example.com", secondCode))
}

func TestRequestOTPDeliveryFailure(t *testing.T) {
	issuer, store, dispatcher := newTestIssuer(t)
	dispatcher.err = errors.New("broker unreachable")
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	pending, err := store.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Nil(t, pending, "undelivered challenge must not stay verifiable")
}

func TestRefreshOTPInvalidatesOldCode(t *testing.T) {
	issuer, _, dispatcher := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.RequestOTP(ctx, "user@example.com")
	require.NoError(t, err)
	firstCode := dispatcher.lastCode()

	_, err = issuer.RefreshOTP(ctx, "user@example.com")
	require.NoError(t, err)
	secondCode := dispatcher.lastCode()

	if firstCode != secondCode {
		err = issuer.VerifyOTP(ctx, "user@example.com", firstCode)
		assert.ErrorIs(t, err, ErrOTPMismatch)
	}
	assert.NoError(t, issuer.VerifyOTP(ctx, "user@example.com", secondCode))
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}
