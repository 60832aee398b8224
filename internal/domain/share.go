package domain

import (
	"time"
)

// AccessType describes how access to a share is gated at the policy layer.
type AccessType string

const (
	AccessPublic   AccessType = "public"
	AccessPassword AccessType = "password"
	AccessToken    AccessType = "token"
)

// IsValid returns true if the access type is one of the known values
func (t AccessType) IsValid() bool {
	switch t {
	case AccessPublic, AccessPassword, AccessToken:
		return true
	}
	return false
}

// ShareStatus represents the lifecycle state of a share.
// Active is the initial state. Expired and Revoked are terminal.
type ShareStatus string

const (
	StatusActive  ShareStatus = "active"
	StatusExpired ShareStatus = "expired"
	StatusRevoked ShareStatus = "revoked"
)

// RateLimitConfig configures the fixed-window rate limit for a share
type RateLimitConfig struct {
	MaxRequests   int `json:"maxRequests"`
	WindowMinutes int `json:"windowMinutes"`
}

// Window returns the rate limit window as a duration
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// SecurityConfig is the embedded security policy of a share.
// A nil config, or a config with no rule set, imposes no restrictions.
type SecurityConfig struct {
	RateLimit         *RateLimitConfig `json:"rateLimit,omitempty"`
	IPAllowlist       []string         `json:"ipAllowlist,omitempty"`
	IPDenylist        []string         `json:"ipDenylist,omitempty"`
	ReferrerAllowlist []string         `json:"referrerAllowlist,omitempty"`
	CSRFProtection    bool             `json:"csrfProtection"`
}

// Share is a persistent, revocable grant of access to a path.
type Share struct {
	ID               string
	Path             string
	AccessType       AccessType
	Status           ShareStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpiresAt        *time.Time
	AccessCount      int64
	MaxAccesses      int64 // 0 means unlimited
	PasswordHash     string
	AllowZipDownload bool
	Security         *SecurityConfig
	CSRFToken        string // mirror; the authoritative copy lives in the cache
	Metadata         map[string]string
	LastAccessedAt   *time.Time
}

// HasPassword returns true if the share is password protected
func (s *Share) HasPassword() bool {
	return s.PasswordHash != ""
}

// IsExpired returns true if the share has an expiry in the past
func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// AccessLimitReached returns true if the access ceiling has been hit
func (s *Share) AccessLimitReached() bool {
	return s.MaxAccesses > 0 && s.AccessCount >= s.MaxAccesses
}

// ValidateAccess checks lifecycle state only; password and security policy
// checks are evaluated separately.
// Returns nil if the share can be accessed, or a domain error otherwise.
func (s *Share) ValidateAccess(now time.Time) error {
	if s.Status != StatusActive || s.IsExpired(now) {
		return ErrShareUnavailable
	}
	if s.AccessLimitReached() {
		return ErrAccessLimitReached
	}
	return nil
}

// MarkExpired lazily transitions the share to expired
func (s *Share) MarkExpired(now time.Time) {
	s.Status = StatusExpired
	s.UpdatedAt = now
}

// Revoke transitions the share to revoked. Revocation is irreversible and
// applies even to already expired shares.
func (s *Share) Revoke(now time.Time) {
	s.Status = StatusRevoked
	s.UpdatedAt = now
}

// HasCSRFProtection returns true if CSRF checking is enabled
func (s *Share) HasCSRFProtection() bool {
	return s.Security != nil && s.Security.CSRFProtection
}

// ShareInfo is the outward snapshot of a share. The password hash is never
// exposed; callers see the derived HasPassword flag instead.
type ShareInfo struct {
	ID               string            `json:"id"`
	Path             string            `json:"path"`
	URL              string            `json:"url,omitempty"`
	AccessType       AccessType        `json:"accessType"`
	Status           ShareStatus       `json:"status"`
	HasPassword      bool              `json:"hasPassword"`
	AllowZipDownload bool              `json:"allowZipDownload"`
	AccessCount      int64             `json:"accessCount"`
	MaxAccesses      int64             `json:"maxAccesses,omitempty"`
	ExpiresAt        *time.Time        `json:"expiresAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	LastAccessedAt   *time.Time        `json:"lastAccessedAt,omitempty"`
	Security         *SecurityConfig   `json:"security,omitempty"`
	CSRFToken        string            `json:"csrfToken,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Info builds the outward snapshot of the share
func (s *Share) Info() *ShareInfo {
	return &ShareInfo{
		ID:               s.ID,
		Path:             s.Path,
		AccessType:       s.AccessType,
		Status:           s.Status,
		HasPassword:      s.HasPassword(),
		AllowZipDownload: s.AllowZipDownload,
		AccessCount:      s.AccessCount,
		MaxAccesses:      s.MaxAccesses,
		ExpiresAt:        s.ExpiresAt,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		LastAccessedAt:   s.LastAccessedAt,
		Security:         s.Security,
		CSRFToken:        s.CSRFToken,
		Metadata:         s.Metadata,
	}
}
