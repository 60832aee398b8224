package domain

import "time"

// Access attempt outcomes recorded in the audit log
const (
	AccessOutcomeSuccess = "success"
	AccessOutcomeFailure = "failure"
)

// RateLimitSnapshot captures the limiter state at the time of an access
// attempt, for forensic replay of rate limited requests.
type RateLimitSnapshot struct {
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// AccessLogEntry is an immutable audit record of one access attempt against
// a share. Entries are append-only; this subsystem never mutates or deletes
// them.
type AccessLogEntry struct {
	ID        int64              `json:"id,omitempty"`
	ShareID   string             `json:"shareId"`
	Timestamp time.Time          `json:"timestamp"`
	IPAddress string             `json:"ipAddress"`
	UserAgent string             `json:"userAgent,omitempty"`
	Status    string             `json:"status"`
	Error     string             `json:"error,omitempty"`
	Headers   map[string]string  `json:"headers,omitempty"`
	RateLimit *RateLimitSnapshot `json:"rateLimit,omitempty"`
}
