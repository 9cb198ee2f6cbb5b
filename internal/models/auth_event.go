package models

import "time"

// Auth event types recorded for the audit trail.
const (
	EventOTPRequested   = "otp_requested"
	EventOTPVerified    = "otp_verified"
	EventOTPFailed      = "otp_failed"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventSessionEvicted = "session_evicted"
	EventSessionExpired = "session_expired"
)

// AuthEvent is one row in the audit log.
type AuthEvent struct {
	EventTime      time.Time `db:"event_time"`
	EventType      string    `db:"event_type"`
	IdentityID     string    `db:"identity_id"`
	IdentifierHash string    `db:"identifier_hash"`
	SessionHash    string    `db:"session_hash"`
	DeviceInfo     string    `db:"device_info"`
	IPAddress      string    `db:"ip_address"`
	Details        string    `db:"details"`
}
