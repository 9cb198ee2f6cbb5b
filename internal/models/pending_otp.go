package models

import "time"

// PendingOTP is the ephemeral proof-of-possession record for one identifier.
// At most one is outstanding per identifier; a new request replaces it.
type PendingOTP struct {
	Identifier  string    `json:"identifier"`
	CodeHash    string    `json:"code_hash"`
	ReferenceID string    `json:"reference_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the challenge TTL has elapsed.
func (o *PendingOTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
