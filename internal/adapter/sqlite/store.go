package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/domain/repository"
	"github.com/vertextoedge/secure-file-share/internal/port"
)

// Store implements port.Store using SQLite
type Store struct {
	db *sql.DB
}

// Ensure Store implements port.Store
var _ port.Store = (*Store)(nil)

// Config tunes the SQLite connection
type Config struct {
	CacheSizeMB   int
	BusyTimeoutMs int
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		CacheSizeMB:   64,
		BusyTimeoutMs: 5000,
	}
}

// Open opens a connection to the SQLite database
func Open(dbPath string, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CacheSizeMB <= 0 {
		cfg.CacheSizeMB = 64
	}
	if cfg.BusyTimeoutMs <= 0 {
		cfg.BusyTimeoutMs = 5000
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", dbPath, cfg.BusyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		// Negative cache_size is in KiB
		fmt.Sprintf("PRAGMA cache_size = -%d", cfg.CacheSizeMB*1024),
		"PRAGMA temp_store = MEMORY",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMs),
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS shares (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			access_type TEXT NOT NULL DEFAULT 'public',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP,
			access_count INTEGER NOT NULL DEFAULT 0,
			max_accesses INTEGER NOT NULL DEFAULT 0,
			password_hash TEXT,
			allow_zip_download BOOLEAN NOT NULL DEFAULT FALSE,
			security TEXT,
			csrf_token TEXT,
			metadata TEXT,
			last_accessed_at TIMESTAMP
		)`,

		// No foreign key on share_id: failed attempts against unknown share
		// ids must still be auditable, and the log is append-only anyway
		`CREATE TABLE IF NOT EXISTS access_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			share_id TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT,
			headers TEXT,
			rate_limit TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_shares_path ON shares(path)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_status ON shares(status)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_created_at ON shares(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_access_logs_share_id ON access_logs(share_id, timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}

// GetShareStats returns aggregate counters over the share table
func (s *Store) GetShareStats() (*repository.ShareStats, error) {
	stats := &repository.ShareStats{}

	err := s.db.QueryRow("SELECT COUNT(*) FROM shares").Scan(&stats.TotalShares)
	if err != nil {
		return nil, err
	}

	counts := map[domain.ShareStatus]*int{
		domain.StatusActive:  &stats.ActiveShares,
		domain.StatusRevoked: &stats.RevokedShares,
		domain.StatusExpired: &stats.ExpiredShares,
	}
	for status, dest := range counts {
		err = s.db.QueryRow("SELECT COUNT(*) FROM shares WHERE status = ?", string(status)).Scan(dest)
		if err != nil {
			return nil, err
		}
	}

	var total sql.NullInt64
	err = s.db.QueryRow("SELECT SUM(access_count) FROM shares").Scan(&total)
	if err != nil {
		return nil, err
	}
	stats.TotalAccesses = total.Int64

	return stats, nil
}
