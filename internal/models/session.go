package models

import "time"

// Session backs a long-lived authenticated client state. SessionHash is the
// one-way hash of the id handed to the client; the raw id is never persisted.
type Session struct {
	SessionHash     string    `db:"session_hash"`
	IdentityID      string    `db:"identity_id"`
	DeviceInfo      string    `db:"device_info"`
	IPAddress       string    `db:"ip_address"`
	CreatedAt       time.Time `db:"created_at"`
	RefreshExpireAt time.Time `db:"refresh_expire_at"`
	IsActive        bool      `db:"is_active"`
}

// Expired reports whether the refresh expiry has passed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.RefreshExpireAt)
}
