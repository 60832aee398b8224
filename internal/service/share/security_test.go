package share

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/util/ratelimiter"
)

func newTestEvaluator(cache *mockCache) *SecurityEvaluator {
	return NewSecurityEvaluator(ratelimiter.NewRegistry(), cache, zap.NewNop())
}

func TestEvaluate_NoConfigIsValid(t *testing.T) {
	eval := newTestEvaluator(newMockCache())

	result := eval.Evaluate("s1", nil, "", RequestContext{ClientIP: "10.0.0.1"})
	if !result.Valid {
		t.Errorf("nil config rejected with %q", result.Reason)
	}

	result = eval.Evaluate("s1", &domain.SecurityConfig{}, "", RequestContext{})
	if !result.Valid {
		t.Errorf("empty config rejected with %q", result.Reason)
	}
}

func TestEvaluate_Gates(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *domain.SecurityConfig
		ctx        RequestContext
		wantValid  bool
		wantReason string
	}{
		{
			name:      "allowlisted ip passes",
			cfg:       &domain.SecurityConfig{IPAllowlist: []string{"10.0.0.1", "10.0.0.2"}},
			ctx:       RequestContext{ClientIP: "10.0.0.2"},
			wantValid: true,
		},
		{
			name:       "unlisted ip rejected",
			cfg:        &domain.SecurityConfig{IPAllowlist: []string{"10.0.0.1"}},
			ctx:        RequestContext{ClientIP: "10.0.0.9"},
			wantReason: domain.ReasonIPNotAllowed,
		},
		{
			name:       "denylisted ip rejected",
			cfg:        &domain.SecurityConfig{IPDenylist: []string{"192.168.1.99"}},
			ctx:        RequestContext{ClientIP: "192.168.1.99"},
			wantReason: domain.ReasonIPBlocked,
		},
		{
			name:      "denylist lets others through",
			cfg:       &domain.SecurityConfig{IPDenylist: []string{"192.168.1.99"}},
			ctx:       RequestContext{ClientIP: "192.168.1.100"},
			wantValid: true,
		},
		{
			name:      "referrer prefix match",
			cfg:       &domain.SecurityConfig{ReferrerAllowlist: []string{"https://example.com"}},
			ctx:       RequestContext{Referrer: "https://example.com/page/1"},
			wantValid: true,
		},
		{
			name:       "referrer mismatch rejected",
			cfg:        &domain.SecurityConfig{ReferrerAllowlist: []string{"https://example.com"}},
			ctx:        RequestContext{Referrer: "https://evil.example.net/"},
			wantReason: domain.ReasonInvalidReferrer,
		},
		{
			name:       "empty referrer rejected when allowlist set",
			cfg:        &domain.SecurityConfig{ReferrerAllowlist: []string{"https://example.com"}},
			ctx:        RequestContext{},
			wantReason: domain.ReasonInvalidReferrer,
		},
		{
			name:       "csrf without token rejected",
			cfg:        &domain.SecurityConfig{CSRFProtection: true},
			ctx:        RequestContext{},
			wantReason: domain.ReasonInvalidCSRFToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := newTestEvaluator(newMockCache())
			result := eval.Evaluate("s1", tt.cfg, "", tt.ctx)
			if result.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v (reason %q)", result.Valid, tt.wantValid, result.Reason)
			}
			if !tt.wantValid && result.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", result.Reason, tt.wantReason)
			}
		})
	}
}

// The allowlist gate runs before the denylist gate, so an IP on both lists
// that passes the allowlist is still caught by the denylist.
func TestEvaluate_GateOrder(t *testing.T) {
	eval := newTestEvaluator(newMockCache())

	cfg := &domain.SecurityConfig{
		IPAllowlist: []string{"10.0.0.1"},
		IPDenylist:  []string{"10.0.0.1"},
	}
	result := eval.Evaluate("s1", cfg, "", RequestContext{ClientIP: "10.0.0.1"})
	if result.Valid || result.Reason != domain.ReasonIPBlocked {
		t.Errorf("reason = %q, want IP_BLOCKED after passing the allowlist", result.Reason)
	}

	// Rate limit runs first: a denylisted client still consumes a slot and,
	// past the limit, gets the rate limit reason rather than the IP one
	cfg = &domain.SecurityConfig{
		RateLimit:  &domain.RateLimitConfig{MaxRequests: 1, WindowMinutes: 1},
		IPDenylist: []string{"10.0.0.1"},
	}
	ctx := RequestContext{ClientIP: "10.0.0.1"}
	result = eval.Evaluate("s2", cfg, "", ctx)
	if result.Reason != domain.ReasonIPBlocked {
		t.Fatalf("first attempt reason = %q, want IP_BLOCKED", result.Reason)
	}
	result = eval.Evaluate("s2", cfg, "", ctx)
	if result.Reason != domain.ReasonRateLimitExceeded {
		t.Errorf("second attempt reason = %q, want RATE_LIMIT_EXCEEDED", result.Reason)
	}
}

func TestEvaluate_RateLimitSnapshot(t *testing.T) {
	eval := newTestEvaluator(newMockCache())
	cfg := &domain.SecurityConfig{RateLimit: &domain.RateLimitConfig{MaxRequests: 3, WindowMinutes: 5}}

	result := eval.Evaluate("s1", cfg, "", RequestContext{ClientIP: "10.0.0.1"})
	if !result.Valid {
		t.Fatalf("first request rejected with %q", result.Reason)
	}
	if result.RateLimit == nil {
		t.Fatal("expected a rate limit snapshot on success")
	}
	if result.RateLimit.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", result.RateLimit.Remaining)
	}
	if result.RateLimit.Reset.IsZero() {
		t.Error("snapshot reset time not set")
	}
}

func TestVerifyCSRFToken(t *testing.T) {
	token := "a3f1c9d2e8b7465f9c0d1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d"

	t.Run("cached token matches", func(t *testing.T) {
		cache := newMockCache()
		if err := cache.Set(csrfKey("s1"), token, time.Hour); err != nil {
			t.Fatal(err)
		}
		eval := newTestEvaluator(cache)

		cfg := &domain.SecurityConfig{CSRFProtection: true}
		result := eval.Evaluate("s1", cfg, "", RequestContext{CSRFToken: token})
		if !result.Valid {
			t.Errorf("cached token rejected with %q", result.Reason)
		}
	})

	t.Run("mirror used after cache expiry", func(t *testing.T) {
		eval := newTestEvaluator(newMockCache())

		cfg := &domain.SecurityConfig{CSRFProtection: true}
		result := eval.Evaluate("s1", cfg, token, RequestContext{CSRFToken: token})
		if !result.Valid {
			t.Errorf("mirror fallback rejected with %q", result.Reason)
		}
	})

	t.Run("cache failure falls back to mirror", func(t *testing.T) {
		cache := newMockCache()
		cache.getErr = errors.New("connection refused")
		eval := newTestEvaluator(cache)

		cfg := &domain.SecurityConfig{CSRFProtection: true}
		result := eval.Evaluate("s1", cfg, token, RequestContext{CSRFToken: token})
		if !result.Valid {
			t.Errorf("cache failure should fall back to mirror, got %q", result.Reason)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		cache := newMockCache()
		if err := cache.Set(csrfKey("s1"), token, time.Hour); err != nil {
			t.Fatal(err)
		}
		eval := newTestEvaluator(cache)

		cfg := &domain.SecurityConfig{CSRFProtection: true}
		result := eval.Evaluate("s1", cfg, "", RequestContext{CSRFToken: "not-the-token"})
		if result.Valid || result.Reason != domain.ReasonInvalidCSRFToken {
			t.Errorf("reason = %q, want INVALID_CSRF_TOKEN", result.Reason)
		}
	})

	t.Run("no token anywhere rejected", func(t *testing.T) {
		eval := newTestEvaluator(newMockCache())

		cfg := &domain.SecurityConfig{CSRFProtection: true}
		result := eval.Evaluate("s1", cfg, "", RequestContext{CSRFToken: token})
		if result.Valid {
			t.Error("token accepted with no expected value to compare against")
		}
	})
}
