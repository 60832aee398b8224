package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vertextoedge/secure-file-share/internal/domain"
)

// AppendAccessLog appends one audit entry. Entries are never updated or
// deleted by this subsystem.
func (s *Store) AppendAccessLog(entry *domain.AccessLogEntry) error {
	var headers, rateLimit sql.NullString

	if len(entry.Headers) > 0 {
		raw, err := json.Marshal(entry.Headers)
		if err != nil {
			return fmt.Errorf("failed to encode headers: %w", err)
		}
		headers = sql.NullString{String: string(raw), Valid: true}
	}
	if entry.RateLimit != nil {
		raw, err := json.Marshal(entry.RateLimit)
		if err != nil {
			return fmt.Errorf("failed to encode rate limit snapshot: %w", err)
		}
		rateLimit = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO access_logs (share_id, timestamp, ip_address, user_agent, status, error, headers, rate_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		entry.ShareID, entry.Timestamp, entry.IPAddress, entry.UserAgent,
		entry.Status, nullString(entry.Error), headers, rateLimit,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// ListAccessLogs returns the chronological entries for a share
func (s *Store) ListAccessLogs(shareID string) ([]*domain.AccessLogEntry, error) {
	query := `
		SELECT id, share_id, timestamp, ip_address, user_agent, status, error, headers, rate_limit
		FROM access_logs
		WHERE share_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.db.Query(query, shareID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AccessLogEntry
	for rows.Next() {
		entry := &domain.AccessLogEntry{}
		var errMsg, headers, rateLimit sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.ShareID, &entry.Timestamp, &entry.IPAddress,
			&entry.UserAgent, &entry.Status, &errMsg, &headers, &rateLimit,
		)
		if err != nil {
			return nil, err
		}

		entry.Error = errMsg.String
		if headers.Valid && headers.String != "" {
			if err := json.Unmarshal([]byte(headers.String), &entry.Headers); err != nil {
				return nil, fmt.Errorf("failed to decode headers for log %d: %w", entry.ID, err)
			}
		}
		if rateLimit.Valid && rateLimit.String != "" {
			snapshot := &domain.RateLimitSnapshot{}
			if err := json.Unmarshal([]byte(rateLimit.String), snapshot); err != nil {
				return nil, fmt.Errorf("failed to decode rate limit snapshot for log %d: %w", entry.ID, err)
			}
			entry.RateLimit = snapshot
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
