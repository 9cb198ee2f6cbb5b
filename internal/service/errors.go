package service

import "errors"

// Expected authentication failures. These are control flow, not crashes: the
// HTTP layer maps them to responses, infrastructure errors stay wrapped and
// distinct from all of these.
var (
	ErrIdentityNotFound = errors.New("identity not found")

	ErrOTPInvalid  = errors.New("no valid OTP challenge outstanding")
	ErrOTPExpired  = errors.New("OTP challenge expired")
	ErrOTPMismatch = errors.New("OTP code mismatch")

	ErrDeliveryFailed = errors.New("OTP delivery failed")
)
