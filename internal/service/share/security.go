package share

import (
	"crypto/subtle"
	"strings"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/port"
	"github.com/vertextoedge/secure-file-share/internal/util/ratelimiter"
)

// RequestContext carries the security-relevant attributes of an inbound
// request.
type RequestContext struct {
	ClientIP  string
	Referrer  string
	CSRFToken string
}

// EvalResult is the outcome of evaluating a share's security policy against
// a request.
type EvalResult struct {
	Valid     bool
	Reason    string
	RateLimit *domain.RateLimitSnapshot
}

// SecurityEvaluator runs the ordered, short-circuiting policy gates:
// rate limit, IP allowlist, IP denylist, referrer allowlist, CSRF.
// The first failing gate decides the outcome.
type SecurityEvaluator struct {
	registry *ratelimiter.Registry
	cache    port.Cache
	logger   *zap.Logger
}

// NewSecurityEvaluator creates an evaluator backed by the given limiter
// registry and token cache
func NewSecurityEvaluator(registry *ratelimiter.Registry, cache port.Cache, logger *zap.Logger) *SecurityEvaluator {
	return &SecurityEvaluator{
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

// Evaluate checks reqCtx against the share's security config. A nil config,
// or one with no rule set, is always valid. csrfMirror is the token copy on
// the share record, used when the cached copy has expired.
func (e *SecurityEvaluator) Evaluate(shareID string, cfg *domain.SecurityConfig, csrfMirror string, reqCtx RequestContext) EvalResult {
	if cfg == nil {
		return EvalResult{Valid: true}
	}

	var snapshot *domain.RateLimitSnapshot
	if cfg.RateLimit != nil && cfg.RateLimit.MaxRequests > 0 {
		limiter := e.registry.For(shareID, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
		ok, remaining, reset := limiter.Consume(reqCtx.ClientIP)
		snapshot = &domain.RateLimitSnapshot{Remaining: remaining, Reset: reset}
		if !ok {
			return EvalResult{Reason: domain.ReasonRateLimitExceeded, RateLimit: snapshot}
		}
	}

	if len(cfg.IPAllowlist) > 0 && !containsIP(cfg.IPAllowlist, reqCtx.ClientIP) {
		return EvalResult{Reason: domain.ReasonIPNotAllowed, RateLimit: snapshot}
	}

	if len(cfg.IPDenylist) > 0 && containsIP(cfg.IPDenylist, reqCtx.ClientIP) {
		return EvalResult{Reason: domain.ReasonIPBlocked, RateLimit: snapshot}
	}

	if len(cfg.ReferrerAllowlist) > 0 && !matchesReferrer(cfg.ReferrerAllowlist, reqCtx.Referrer) {
		return EvalResult{Reason: domain.ReasonInvalidReferrer, RateLimit: snapshot}
	}

	if cfg.CSRFProtection {
		if !e.verifyCSRFToken(shareID, csrfMirror, reqCtx.CSRFToken) {
			return EvalResult{Reason: domain.ReasonInvalidCSRFToken, RateLimit: snapshot}
		}
	}

	return EvalResult{Valid: true, RateLimit: snapshot}
}

// verifyCSRFToken compares the supplied token against the cached copy,
// falling back to the share record's mirror when the cache entry expired.
// A cache failure is logged and treated as a miss.
func (e *SecurityEvaluator) verifyCSRFToken(shareID, mirror, supplied string) bool {
	if supplied == "" {
		return false
	}

	expected, ok, err := e.cache.Get(csrfKey(shareID))
	if err != nil {
		e.logger.Warn("csrf token cache read failed, falling back to stored mirror",
			zap.String("share_id", shareID),
			zap.Error(err))
		ok = false
	}
	if !ok {
		expected = mirror
	}
	if expected == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

func containsIP(list []string, ip string) bool {
	for _, entry := range list {
		if entry == ip {
			return true
		}
	}
	return false
}

func matchesReferrer(prefixes []string, referrer string) bool {
	if referrer == "" {
		return false
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(referrer, prefix) {
			return true
		}
	}
	return false
}
