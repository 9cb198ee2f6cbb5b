package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeContact canonicalizes a phone number or email address so that the
// same contact always produces the same lookup key. Phone numbers lose
// formatting characters; emails are lowercased and trimmed.
func NormalizeContact(identifier string) string {
	s := strings.TrimSpace(identifier)
	if strings.Contains(s, "@") {
		return strings.ToLower(s)
	}
	for _, c := range []string{" ", "-", "(", ")", "."} {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}

// ContactHash derives the lookup key stored in the contact_to_identity table.
// SHA-256 over the normalized contact; not a secret hash, just a stable key
// that keeps raw contacts out of partition keys.
func ContactHash(identifier string) string {
	sum := sha256.Sum256([]byte(NormalizeContact(identifier)))
	return hex.EncodeToString(sum[:])
}

// IsEmail reports whether the identifier looks like an email address rather
// than a phone number.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}
