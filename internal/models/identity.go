package models

import "time"

// Identity is the authenticatable principal. The record is owned by the
// user-management subsystem; the auth core only reads it.
type Identity struct {
	IdentityBucket int       `db:"identity_bucket"`
	IdentityID     string    `db:"identity_id"`
	PhoneHash      string    `db:"phone_hash"`
	EmailHash      string    `db:"email_hash"`
	Role           string    `db:"role"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}
