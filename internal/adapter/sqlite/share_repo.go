package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/domain/repository"
)

const shareColumns = `id, path, access_type, status, created_at, updated_at, expires_at,
	access_count, max_accesses, password_hash, allow_zip_download, security, csrf_token,
	metadata, last_accessed_at`

// CreateShare persists a new share record
func (s *Store) CreateShare(share *domain.Share) error {
	security, metadata, err := encodeShareJSON(share)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO shares (` + shareColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(
		query,
		share.ID, share.Path, string(share.AccessType), string(share.Status),
		share.CreatedAt, share.UpdatedAt, share.ExpiresAt,
		share.AccessCount, share.MaxAccesses,
		nullString(share.PasswordHash), share.AllowZipDownload,
		security, nullString(share.CSRFToken), metadata, share.LastAccessedAt,
	)
	return err
}

// GetShareByID retrieves a share by id
func (s *Store) GetShareByID(id string) (*domain.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE id = ?`
	share, err := scanShare(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return share, nil
}

// UpdateShare persists changes to an existing share record
func (s *Store) UpdateShare(share *domain.Share) error {
	security, metadata, err := encodeShareJSON(share)
	if err != nil {
		return err
	}

	query := `
		UPDATE shares SET
			path = ?, access_type = ?, status = ?, updated_at = ?, expires_at = ?,
			access_count = ?, max_accesses = ?, password_hash = ?, allow_zip_download = ?,
			security = ?, csrf_token = ?, metadata = ?, last_accessed_at = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		share.Path, string(share.AccessType), string(share.Status),
		share.UpdatedAt, share.ExpiresAt,
		share.AccessCount, share.MaxAccesses,
		nullString(share.PasswordHash), share.AllowZipDownload,
		security, nullString(share.CSRFToken), metadata, share.LastAccessedAt,
		share.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrShareNotFound
	}
	return nil
}

// FindAndCount returns the page of shares matching the filter plus the total
// match count irrespective of pagination
func (s *Store) FindAndCount(filter repository.ShareFilter, page repository.Page) ([]*domain.Share, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Path != "" {
		conditions = append(conditions, "path = ?")
		args = append(args, filter.Path)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM shares"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + shareColumns + " FROM shares" + where +
		" ORDER BY " + sortColumn(page.SortBy) + " " + sortDirection(page.SortOrder) +
		" LIMIT ? OFFSET ?"

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	queryArgs := append(args, limit, page.Offset)

	rows, err := s.db.Query(query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var shares []*domain.Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, 0, err
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return shares, total, nil
}

// IncrementAccessCount atomically increments the access counter while it is
// below the ceiling. The WHERE clause is the invariant: no interleaving of
// concurrent accesses can push access_count past max_accesses.
func (s *Store) IncrementAccessCount(id string, now time.Time) (bool, error) {
	query := `
		UPDATE shares SET
			access_count = access_count + 1,
			last_accessed_at = ?,
			updated_at = ?
		WHERE id = ?
			AND status = ?
			AND (max_accesses <= 0 OR access_count < max_accesses)
	`

	result, err := s.db.Exec(query, now, now, id, string(domain.StatusActive))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanShare(row scanner) (*domain.Share, error) {
	share := &domain.Share{}
	var accessType, status string
	var passwordHash, security, csrfToken, metadata sql.NullString

	err := row.Scan(
		&share.ID, &share.Path, &accessType, &status,
		&share.CreatedAt, &share.UpdatedAt, &share.ExpiresAt,
		&share.AccessCount, &share.MaxAccesses,
		&passwordHash, &share.AllowZipDownload,
		&security, &csrfToken, &metadata, &share.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	share.AccessType = domain.AccessType(accessType)
	share.Status = domain.ShareStatus(status)
	share.PasswordHash = passwordHash.String
	share.CSRFToken = csrfToken.String

	if security.Valid && security.String != "" {
		cfg := &domain.SecurityConfig{}
		if err := json.Unmarshal([]byte(security.String), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode security config for share %s: %w", share.ID, err)
		}
		share.Security = cfg
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &share.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for share %s: %w", share.ID, err)
		}
	}

	return share, nil
}

func encodeShareJSON(share *domain.Share) (security, metadata sql.NullString, err error) {
	if share.Security != nil {
		raw, err := json.Marshal(share.Security)
		if err != nil {
			return security, metadata, fmt.Errorf("failed to encode security config: %w", err)
		}
		security = sql.NullString{String: string(raw), Valid: true}
	}
	if len(share.Metadata) > 0 {
		raw, err := json.Marshal(share.Metadata)
		if err != nil {
			return security, metadata, fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}
	return security, metadata, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "updated_at", "updatedAt":
		return "updated_at"
	case "access_count", "accessCount":
		return "access_count"
	case "path":
		return "path"
	case "expires_at", "expiresAt":
		return "expires_at"
	default:
		return "created_at"
	}
}

func sortDirection(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}
