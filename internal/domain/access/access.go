// Package access implements the patient-access-key sharing protocol: opaque
// bearer tokens that grant a patient or caregiver scoped read access to one
// discharge summary without a full account.
package access

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Roles an access key can carry.
const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
)

var (
	// ErrNotAuthorized is the single error every validation failure maps
	// to: absent key, inactive key, expired key, or a key bound to a
	// different summary. Callers must not be able to tell which.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrKeyNotFound indicates the key does not exist in the store.
	ErrKeyNotFound = errors.New("access key not found")

	// ErrInvalidRole indicates a role outside {patient, caregiver}.
	ErrInvalidRole = errors.New("invalid role")
)

// AccessKey represents a capability: the bearer may access summary SummaryID
// in role Role, optionally tied to a phone number. The key value is immutable
// once minted; only the role may change.
type AccessKey struct {
	Key         string     `json:"access_key"`
	SummaryID   uuid.UUID  `json:"summary_id"`
	Role        string     `json:"role"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the key has an expiry in the past.
func (k *AccessKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// ValidRole reports whether role is one of the enumerated capability levels.
func ValidRole(role string) bool {
	return role == RolePatient || role == RoleCaregiver
}

const (
	// keyPrefix is prepended to every generated key for easy
	// identification in logs and support tickets.
	keyPrefix = "cb_k1_"

	// keyRandomBytes is the amount of entropy per key: 16 bytes = 128
	// bits, encoded as 32 hex chars.
	keyRandomBytes = 16
)

// generateKey produces a cryptographically random, URL-safe key string:
// cb_k1_<32-hex-chars>. Keys are never derived from user input.
func generateKey() (string, error) {
	b := make([]byte, keyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(b), nil
}
