package share

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/domain/repository"
	"github.com/vertextoedge/secure-file-share/internal/port"
	"github.com/vertextoedge/secure-file-share/internal/util/ratelimiter"
)

// Cache key families. Share snapshots and CSRF tokens live in separate
// keyspaces with the same TTL.
func shareKey(id string) string { return "share:" + id }
func csrfKey(id string) string  { return "csrf:" + id }

// Config tunes the share service
type Config struct {
	BaseURL    string
	CacheTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns default service configuration
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:   time.Hour,
		BcryptCost: 10,
	}
}

// Service orchestrates the share lifecycle: create, modify, list, access,
// revoke. It is the only writer of share records; the cache holds derived,
// expendable snapshots.
type Service struct {
	shares    port.ShareRepository
	cache     port.Cache
	evaluator *SecurityEvaluator
	accessLog *AccessLogger
	registry  *ratelimiter.Registry
	logger    *zap.Logger
	config    *Config

	// now is swappable for tests
	now func() time.Time
}

// NewService creates a share service
func NewService(
	cfg *Config,
	shares port.ShareRepository,
	cache port.Cache,
	evaluator *SecurityEvaluator,
	accessLog *AccessLogger,
	registry *ratelimiter.Registry,
	logger *zap.Logger,
) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	return &Service{
		shares:    shares,
		cache:     cache,
		evaluator: evaluator,
		accessLog: accessLog,
		registry:  registry,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// SecuritySettings is the caller-facing security section of create and
// modify requests. Nil fields mean "not specified" and leave the existing
// value untouched on modify.
type SecuritySettings struct {
	Password          string
	ExpiresInMinutes  int
	RateLimit         *domain.RateLimitConfig
	IPAllowlist       []string
	IPDenylist        []string
	ReferrerAllowlist []string
	CSRFProtection    *bool
}

// CreateShareRequest creates a new share for a path
type CreateShareRequest struct {
	Path             string
	AccessType       domain.AccessType
	MaxAccesses      int64
	AllowZipDownload bool
	Security         *SecuritySettings
	Metadata         map[string]string
}

// ModifyShareRequest updates an existing share
type ModifyShareRequest struct {
	ID               string
	AllowZipDownload *bool
	MaxAccesses      *int64
	Security         *SecuritySettings
	Metadata         map[string]string
}

// ListSharesRequest filters and paginates the share listing
type ListSharesRequest struct {
	Path           string
	Status         domain.ShareStatus
	IncludeExpired bool
	Offset         int
	Limit          int
	SortBy         string
	SortOrder      string
}

// ListSharesResult is one page of shares plus the total match count
type ListSharesResult struct {
	Items  []*domain.ShareInfo `json:"items"`
	Total  int                 `json:"total"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
}

// AccessShareRequest is one attempt to use a share
type AccessShareRequest struct {
	ID        string
	Password  string
	Context   RequestContext
	UserAgent string
	Headers   map[string]string
}

// RevokeShareRequest revokes a share, optionally recording why
type RevokeShareRequest struct {
	ID     string
	Reason string
}

// CreateShare builds and persists a new active share, primes the cache,
// and returns the outward snapshot. The raw password, if any, is hashed
// and discarded immediately.
func (s *Service) CreateShare(req *CreateShareRequest) (*domain.ShareInfo, error) {
	path, err := domain.NormalizePath(req.Path)
	if err != nil {
		return nil, err
	}

	accessType := req.AccessType
	if accessType == "" {
		accessType = domain.AccessPublic
	}
	if !accessType.IsValid() {
		return nil, domain.NewValidationError(map[string]string{"accessType": "unknown access type"})
	}

	now := s.now().UTC()
	share := &domain.Share{
		ID:               uuid.NewString(),
		Path:             path,
		AccessType:       accessType,
		Status:           domain.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
		MaxAccesses:      req.MaxAccesses,
		AllowZipDownload: req.AllowZipDownload,
		Metadata:         req.Metadata,
	}

	if sec := req.Security; sec != nil {
		if sec.Password != "" {
			hash, err := s.hashPassword(sec.Password)
			if err != nil {
				return nil, err
			}
			share.PasswordHash = hash
			if share.AccessType == domain.AccessPublic {
				share.AccessType = domain.AccessPassword
			}
		}
		if sec.ExpiresInMinutes > 0 {
			expires := now.Add(time.Duration(sec.ExpiresInMinutes) * time.Minute)
			share.ExpiresAt = &expires
		}
		share.Security = securityConfig(sec)
	}

	if share.HasCSRFProtection() {
		token, err := s.issueCSRFToken(share.ID)
		if err != nil {
			return nil, err
		}
		share.CSRFToken = token
	}

	if err := s.shares.CreateShare(share); err != nil {
		s.logger.Error("failed to persist share", zap.String("path", path), zap.Error(err))
		return nil, domain.ErrInternal
	}

	info := s.buildInfo(share)
	s.cacheInfo(info)

	s.logger.Info("share created",
		zap.String("share_id", share.ID),
		zap.String("path", share.Path),
		zap.String("access_type", string(share.AccessType)))

	return info, nil
}

// ModifyShare applies a partial update to an existing share: security
// settings merge field-wise, a new password is re-hashed, toggling CSRF
// protection regenerates or clears the token, metadata merges key-wise.
func (s *Service) ModifyShare(req *ModifyShareRequest) (*domain.ShareInfo, error) {
	share, err := s.loadShare(req.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	if req.AllowZipDownload != nil {
		share.AllowZipDownload = *req.AllowZipDownload
	}
	if req.MaxAccesses != nil {
		share.MaxAccesses = *req.MaxAccesses
	}
	if len(req.Metadata) > 0 {
		if share.Metadata == nil {
			share.Metadata = make(map[string]string, len(req.Metadata))
		}
		for k, v := range req.Metadata {
			share.Metadata[k] = v
		}
	}

	if sec := req.Security; sec != nil {
		if sec.Password != "" {
			hash, err := s.hashPassword(sec.Password)
			if err != nil {
				return nil, err
			}
			share.PasswordHash = hash
		}
		if sec.ExpiresInMinutes > 0 {
			expires := now.Add(time.Duration(sec.ExpiresInMinutes) * time.Minute)
			share.ExpiresAt = &expires
		}

		wasProtected := share.HasCSRFProtection()
		share.Security = mergeSecurity(share.Security, sec)

		if share.HasCSRFProtection() && !wasProtected {
			token, err := s.issueCSRFToken(share.ID)
			if err != nil {
				return nil, err
			}
			share.CSRFToken = token
		} else if !share.HasCSRFProtection() && wasProtected {
			share.CSRFToken = ""
			s.deleteCached(csrfKey(share.ID))
		}
	}

	share.UpdatedAt = now

	if err := s.shares.UpdateShare(share); err != nil {
		if errors.Is(err, domain.ErrShareNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update share", zap.String("share_id", share.ID), zap.Error(err))
		return nil, domain.ErrInternal
	}

	info := s.buildInfo(share)
	s.cacheInfo(info)

	s.logger.Info("share modified", zap.String("share_id", share.ID))
	return info, nil
}

// ListShares returns one page of shares matching the filter plus the total
// count. The default listing excludes expired and revoked shares.
func (s *Service) ListShares(req *ListSharesRequest) (*ListSharesResult, error) {
	filter := repository.ShareFilter{Path: ""}
	if req.Path != "" {
		path, err := domain.NormalizePath(req.Path)
		if err != nil {
			return nil, err
		}
		filter.Path = path
	}

	switch {
	case req.Status != "":
		filter.Statuses = []domain.ShareStatus{req.Status}
	case req.IncludeExpired:
		// No status filter: expired and revoked shares are listed too
	default:
		filter.Statuses = []domain.ShareStatus{domain.StatusActive}
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	page := repository.Page{
		Offset:    req.Offset,
		Limit:     limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	shares, total, err := s.shares.FindAndCount(filter, page)
	if err != nil {
		s.logger.Error("failed to list shares", zap.Error(err))
		return nil, domain.ErrInternal
	}

	items := make([]*domain.ShareInfo, 0, len(shares))
	for _, share := range shares {
		items = append(items, s.buildInfo(share))
	}

	return &ListSharesResult{
		Items:  items,
		Total:  total,
		Offset: req.Offset,
		Limit:  limit,
	}, nil
}

// AccessShare performs one gated use of a share: lifecycle check, security
// policy evaluation, password verification, then an atomic access-count
// increment at the store. Every attempt is recorded in the audit log.
func (s *Service) AccessShare(req *AccessShareRequest) (*domain.ShareInfo, error) {
	now := s.now().UTC()

	share, err := s.resolveShare(req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrShareNotFound) {
			s.logFailure(req, nil, "Share not found")
		}
		return nil, err
	}

	// Lifecycle gate; an expired share is lazily flipped and persisted
	if lifecycleErr := share.ValidateAccess(now); lifecycleErr != nil {
		if errors.Is(lifecycleErr, domain.ErrShareUnavailable) && share.Status == domain.StatusActive {
			share.MarkExpired(now)
			if err := s.shares.UpdateShare(share); err != nil {
				s.logger.Error("failed to persist expiry transition",
					zap.String("share_id", share.ID), zap.Error(err))
			}
			s.deleteCached(shareKey(share.ID))
		}
		s.logFailure(req, nil, lifecycleErr.Error())
		return nil, lifecycleErr
	}

	// Security policy gates, in fixed order, short-circuiting
	result := s.evaluator.Evaluate(share.ID, share.Security, share.CSRFToken, req.Context)
	if !result.Valid {
		violation := domain.NewSecurityViolation(result.Reason)
		s.logFailure(req, result.RateLimit, violation.Error())
		return nil, violation
	}

	// Password gate; failed attempts never consume an access
	if share.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(share.PasswordHash), []byte(req.Password)); err != nil {
			s.logFailure(req, result.RateLimit, domain.ErrInvalidPassword.Error())
			return nil, domain.ErrInvalidPassword
		}
	}

	// The store is the authority on the ceiling: the conditional increment
	// cannot overshoot under concurrency
	ok, err := s.shares.IncrementAccessCount(share.ID, now)
	if err != nil {
		s.logger.Error("failed to increment access count",
			zap.String("share_id", share.ID), zap.Error(err))
		return nil, domain.ErrInternal
	}
	if !ok {
		s.logFailure(req, result.RateLimit, domain.ErrAccessLimitReached.Error())
		return nil, domain.ErrAccessLimitReached
	}

	share.AccessCount++
	share.LastAccessedAt = &now
	share.UpdatedAt = now

	info := s.buildInfo(share)
	s.cacheInfo(info)

	s.accessLog.Record(&domain.AccessLogEntry{
		ShareID:   share.ID,
		Timestamp: now,
		IPAddress: req.Context.ClientIP,
		UserAgent: req.UserAgent,
		Status:    domain.AccessOutcomeSuccess,
		Headers:   req.Headers,
		RateLimit: result.RateLimit,
	})

	s.logger.Info("share accessed",
		zap.String("share_id", share.ID),
		zap.String("client_ip", req.Context.ClientIP),
		zap.Int64("access_count", share.AccessCount))

	return info, nil
}

// RevokeShare irreversibly revokes a share, drops its cache entries and
// rate limiter, and optionally records the reason in the metadata.
func (s *Service) RevokeShare(req *RevokeShareRequest) error {
	share, err := s.loadShare(req.ID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	share.Revoke(now)
	if req.Reason != "" {
		if share.Metadata == nil {
			share.Metadata = make(map[string]string, 1)
		}
		share.Metadata["revoke_reason"] = req.Reason
	}

	if err := s.shares.UpdateShare(share); err != nil {
		if errors.Is(err, domain.ErrShareNotFound) {
			return err
		}
		s.logger.Error("failed to revoke share", zap.String("share_id", share.ID), zap.Error(err))
		return domain.ErrInternal
	}

	s.deleteCached(shareKey(share.ID))
	s.deleteCached(csrfKey(share.ID))
	s.registry.Remove(share.ID)

	s.logger.Info("share revoked",
		zap.String("share_id", share.ID),
		zap.String("reason", req.Reason))
	return nil
}

// GetShare is the cache-first read used by the download path. It never
// mutates access counters.
func (s *Service) GetShare(id string) (*domain.ShareInfo, error) {
	if cached, ok := s.cachedInfo(id); ok {
		return cached, nil
	}

	share, err := s.loadShare(id)
	if err != nil {
		return nil, err
	}

	info := s.buildInfo(share)
	s.cacheInfo(info)
	return info, nil
}

// GetAccessLogs returns the audit trail for a share
func (s *Service) GetAccessLogs(id string) ([]*domain.AccessLogEntry, error) {
	if _, err := s.loadShare(id); err != nil {
		return nil, err
	}
	entries, err := s.accessLog.ListForShare(id)
	if err != nil {
		s.logger.Error("failed to list access logs", zap.String("share_id", id), zap.Error(err))
		return nil, domain.ErrInternal
	}
	return entries, nil
}

// resolveShare is the cache-aware resolve used by the access path: a cache
// hit proves existence cheaply, but the store record is loaded for the
// authoritative lifecycle fields and password hash.
func (s *Service) resolveShare(id string) (*domain.Share, error) {
	if _, ok := s.cachedInfo(id); !ok {
		share, err := s.loadShare(id)
		if err != nil {
			return nil, err
		}
		s.cacheInfo(s.buildInfo(share))
		return share, nil
	}
	return s.loadShare(id)
}

// loadShare reads a share from the store, mapping unexpected failures to a
// generic internal error
func (s *Service) loadShare(id string) (*domain.Share, error) {
	share, err := s.shares.GetShareByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrShareNotFound) {
			return nil, err
		}
		s.logger.Error("failed to load share", zap.String("share_id", id), zap.Error(err))
		return nil, domain.ErrInternal
	}
	return share, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash share password", zap.Error(err))
		return "", domain.ErrInternal
	}
	return string(hash), nil
}

// issueCSRFToken generates a 32-byte random token, hex-encoded, and stores
// the authoritative copy in the cache
func (s *Service) issueCSRFToken(shareID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		s.logger.Error("failed to generate csrf token", zap.Error(err))
		return "", domain.ErrInternal
	}
	token := hex.EncodeToString(raw)

	if err := s.cache.Set(csrfKey(shareID), token, s.config.CacheTTL); err != nil {
		// The mirror on the share record still allows verification
		s.logger.Warn("failed to cache csrf token",
			zap.String("share_id", shareID), zap.Error(err))
	}
	return token, nil
}

// buildInfo maps a share to its outward snapshot, attaching the download URL
func (s *Service) buildInfo(share *domain.Share) *domain.ShareInfo {
	info := share.Info()
	if s.config.BaseURL != "" {
		info.URL = s.config.BaseURL + "/shares/" + share.ID + "/download"
	}
	return info
}

// cacheInfo primes the snapshot cache; failures are logged and swallowed
func (s *Service) cacheInfo(info *domain.ShareInfo) {
	raw, err := json.Marshal(info)
	if err != nil {
		s.logger.Warn("failed to encode share snapshot", zap.String("share_id", info.ID), zap.Error(err))
		return
	}
	if err := s.cache.Set(shareKey(info.ID), string(raw), s.config.CacheTTL); err != nil {
		s.logger.Warn("failed to cache share snapshot", zap.String("share_id", info.ID), zap.Error(err))
	}
}

// cachedInfo reads the snapshot cache; any failure counts as a miss
func (s *Service) cachedInfo(id string) (*domain.ShareInfo, bool) {
	raw, ok, err := s.cache.Get(shareKey(id))
	if err != nil {
		s.logger.Warn("share snapshot cache read failed", zap.String("share_id", id), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	info := &domain.ShareInfo{}
	if err := json.Unmarshal([]byte(raw), info); err != nil {
		s.logger.Warn("corrupt share snapshot in cache", zap.String("share_id", id), zap.Error(err))
		s.deleteCached(shareKey(id))
		return nil, false
	}
	return info, true
}

func (s *Service) deleteCached(key string) {
	if err := s.cache.Delete(key); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) logFailure(req *AccessShareRequest, snapshot *domain.RateLimitSnapshot, reason string) {
	s.accessLog.Record(&domain.AccessLogEntry{
		ShareID:   req.ID,
		Timestamp: s.now().UTC(),
		IPAddress: req.Context.ClientIP,
		UserAgent: req.UserAgent,
		Status:    domain.AccessOutcomeFailure,
		Error:     reason,
		Headers:   req.Headers,
		RateLimit: snapshot,
	})
}

// securityConfig maps caller settings to the persisted security config
func securityConfig(sec *SecuritySettings) *domain.SecurityConfig {
	cfg := &domain.SecurityConfig{
		RateLimit:         sec.RateLimit,
		IPAllowlist:       sec.IPAllowlist,
		IPDenylist:        sec.IPDenylist,
		ReferrerAllowlist: sec.ReferrerAllowlist,
	}
	if sec.CSRFProtection != nil {
		cfg.CSRFProtection = *sec.CSRFProtection
	}
	return normalizeSecurity(cfg)
}

// mergeSecurity applies the specified fields of sec on top of the existing
// config. Unspecified fields keep their current values; the rate limit in
// particular is preserved when not re-specified.
func mergeSecurity(existing *domain.SecurityConfig, sec *SecuritySettings) *domain.SecurityConfig {
	cfg := &domain.SecurityConfig{}
	if existing != nil {
		*cfg = *existing
	}
	if sec.RateLimit != nil {
		cfg.RateLimit = sec.RateLimit
	}
	if sec.IPAllowlist != nil {
		cfg.IPAllowlist = sec.IPAllowlist
	}
	if sec.IPDenylist != nil {
		cfg.IPDenylist = sec.IPDenylist
	}
	if sec.ReferrerAllowlist != nil {
		cfg.ReferrerAllowlist = sec.ReferrerAllowlist
	}
	if sec.CSRFProtection != nil {
		cfg.CSRFProtection = *sec.CSRFProtection
	}
	return normalizeSecurity(cfg)
}

// normalizeSecurity collapses a config with no rule set back to nil
func normalizeSecurity(cfg *domain.SecurityConfig) *domain.SecurityConfig {
	if cfg.RateLimit == nil && len(cfg.IPAllowlist) == 0 && len(cfg.IPDenylist) == 0 &&
		len(cfg.ReferrerAllowlist) == 0 && !cfg.CSRFProtection {
		return nil
	}
	return cfg
}
