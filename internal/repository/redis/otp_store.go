package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"travinhgo-backend/internal/client"
	"travinhgo-backend/internal/models"
	"travinhgo-backend/internal/util"
)

const (
	otpPrefix        = "otp:"
	otpAttemptPrefix = "otp_attempts:"
)

// OTPStore keeps pending OTP challenges in Redis, one per identifier. The
// key TTL mirrors the challenge expiry, so Redis reclaims stale challenges
// on its own; the record still carries expires_at for the explicit check.
type OTPStore struct {
	client *client.RedisClient
}

func NewOTPStore(client *client.RedisClient) *OTPStore {
	return &OTPStore{client: client}
}

// Put stores a pending challenge, replacing any prior one for the same
// identifier. The overwrite is what invalidates an outstanding code. The
// attempt counter belongs to the challenge, so it resets with it.
func (s *OTPStore) Put(ctx context.Context, otp *models.PendingOTP, ttl time.Duration) error {
	key := otpPrefix + otp.Identifier

	payload, err := json.Marshal(otp)
	if err != nil {
		return fmt.Errorf("failed to marshal pending OTP: %w", err)
	}

	if err := s.client.Del(ctx, otpAttemptPrefix+otp.Identifier); err != nil {
		util.Error("Failed to reset OTP attempt counter", zap.Error(err))
		return fmt.Errorf("failed to reset OTP attempt counter: %w", err)
	}

	if err := s.client.Set(ctx, key, string(payload), ttl); err != nil {
		util.Error("Failed to store pending OTP",
			zap.String("reference_id", otp.ReferenceID),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to store pending OTP: %w", err)
	}

	util.Debug("Pending OTP stored",
		zap.String("reference_id", otp.ReferenceID),
		zap.Duration("ttl", ttl))
	return nil
}

// Get returns the pending challenge for an identifier, or (nil, nil) when
// none is outstanding.
func (s *OTPStore) Get(ctx context.Context, identifier string) (*models.PendingOTP, error) {
	key := otpPrefix + identifier

	payload, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, nil
		}
		util.Error("Failed to get pending OTP", zap.Error(err))
		return nil, fmt.Errorf("failed to get pending OTP: %w", err)
	}

	otp := &models.PendingOTP{}
	if err := json.Unmarshal([]byte(payload), otp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending OTP: %w", err)
	}

	return otp, nil
}

// Delete consumes the challenge and its attempt counter.
func (s *OTPStore) Delete(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, otpPrefix+identifier, otpAttemptPrefix+identifier); err != nil {
		util.Error("Failed to delete pending OTP", zap.Error(err))
		return fmt.Errorf("failed to delete pending OTP: %w", err)
	}

	return nil
}

// IncrementAttempts bumps the failed-verification counter for an identifier
// and returns the new count. The counter expires with the challenge window.
func (s *OTPStore) IncrementAttempts(ctx context.Context, identifier string, ttl time.Duration) (int, error) {
	key := otpAttemptPrefix + identifier

	count, err := s.client.IncrWithExpire(ctx, key, ttl)
	if err != nil {
		util.Error("Failed to increment OTP attempts", zap.Error(err))
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	return int(count), nil
}
