package models

import "time"

// APIKey is an extension access key. A key is bound to the first client id
// that presents it and stays bound until it expires.
type APIKey struct {
	ID        int       `db:"id" json:"id"`
	APIKey    string    `db:"api_key" json:"apiKey"`
	ClientID  *string   `db:"client_id" json:"clientId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}

// IsExpired reports whether the key is no longer valid at now.
func (k *APIKey) IsExpired(now time.Time) bool {
	return !k.ExpiresAt.After(now)
}

// IsBound reports whether a client id has been attached to the key.
func (k *APIKey) IsBound() bool {
	return k.ClientID != nil && *k.ClientID != ""
}
