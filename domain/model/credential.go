package model

import "time"

// Credential stores the OAuth token pair for one target account. It is
// refreshed in place by the credential manager and never duplicated.
type Credential struct {
	ID           string     `json:"id"`
	Platform     string     `json:"platform"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ExpiresWithin reports whether the token expires inside the given margin.
// A credential without an expiry is treated as non-expiring.
func (c *Credential) ExpiresWithin(margin time.Duration, now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Sub(now) < margin
}

// TargetAccount is a platform-bound account owned by a user of the
// surrounding system. The core reads it and may only flip IsActive to false
// on an irrecoverable auth failure.
type TargetAccount struct {
	ID           string    `json:"id"`
	Platform     string    `json:"platform"`
	AccountRef   string    `json:"account_ref"`
	CredentialID string    `json:"credential_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
