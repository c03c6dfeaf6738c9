package models

import (
	"strings"
	"time"
)

// APIKey is a hashed programmatic-access credential. The plaintext key is
// returned exactly once, at creation.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"` // first chars shown in lists
	Scopes     []string   `json:"scopes"`
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HasScope reports whether the key grants the requested scope.
// Scopes support a trailing wildcard segment, e.g. "read:*".
func (k *APIKey) HasScope(scope string) bool {
	if k.Revoked {
		return false
	}
	for _, s := range k.Scopes {
		if s == scope || s == "*" {
			return true
		}
		if strings.HasSuffix(s, ":*") && strings.HasPrefix(scope, strings.TrimSuffix(s, "*")) {
			return true
		}
	}
	return false
}

// CreateAPIKeyRequest is the payload for POST /api/keys
type CreateAPIKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// CreateAPIKeyResponse includes the one-time plaintext key
type CreateAPIKeyResponse struct {
	Key    *APIKey `json:"key"`
	Secret string  `json:"secret"`
}
