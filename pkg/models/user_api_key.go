package models

import (
	"time"

	"github.com/google/uuid"
)

// UserAPIKey stores a user's own provider credential, encrypted at rest.
// Plaintext keys exist only in memory for the duration of a request;
// read paths expose a masked form instead.
type UserAPIKey struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	UserID       uuid.UUID  `db:"user_id"       json:"user_id"`
	ProviderName string     `db:"provider_name" json:"provider_name"`
	EncryptedKey string     `db:"encrypted_key" json:"-"`
	IsActive     bool       `db:"is_active"     json:"is_active"`
	LastUsedAt   *time.Time `db:"last_used_at"  json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
