package repository

import (
	"time"

	"github.com/vertextoedge/secure-file-share/internal/domain"
)

// ShareFilter narrows FindAndCount results. Zero values mean "no filter".
type ShareFilter struct {
	Path     string
	Statuses []domain.ShareStatus
}

// Page controls pagination and ordering of FindAndCount results
type Page struct {
	Offset    int
	Limit     int
	SortBy    string // created_at, updated_at, access_count, path
	SortOrder string // asc or desc
}

// ShareRepository defines the interface for share persistence operations.
// It carries no business logic; lifecycle invariants live in the share
// service.
type ShareRepository interface {
	// CreateShare persists a new share record
	CreateShare(share *domain.Share) error

	// GetShareByID retrieves a share by id.
	// Returns domain.ErrShareNotFound if no such share exists.
	GetShareByID(id string) (*domain.Share, error)

	// UpdateShare persists changes to an existing share record
	UpdateShare(share *domain.Share) error

	// FindAndCount returns the page of shares matching the filter plus the
	// total match count irrespective of pagination
	FindAndCount(filter ShareFilter, page Page) ([]*domain.Share, int, error)

	// IncrementAccessCount atomically increments the access counter and sets
	// the last-accessed timestamp, but only while the counter is below the
	// share's ceiling. Returns false when the ceiling would be exceeded or
	// the share is not active.
	IncrementAccessCount(id string, now time.Time) (bool, error)
}

// AccessLogRepository defines the interface for the append-only access log
type AccessLogRepository interface {
	// AppendAccessLog appends one audit entry
	AppendAccessLog(entry *domain.AccessLogEntry) error

	// ListAccessLogs returns the chronological entries for a share
	ListAccessLogs(shareID string) ([]*domain.AccessLogEntry, error)
}

// ShareStats summarizes persisted share state for the debug endpoint
type ShareStats struct {
	TotalShares   int   `json:"total_shares"`
	ActiveShares  int   `json:"active_shares"`
	RevokedShares int   `json:"revoked_shares"`
	ExpiredShares int   `json:"expired_shares"`
	TotalAccesses int64 `json:"total_accesses"`
}

// StatsRepository exposes aggregate counters over the share table
type StatsRepository interface {
	// GetShareStats returns share statistics
	GetShareStats() (*ShareStats, error)
}
