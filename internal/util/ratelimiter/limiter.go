package ratelimiter

import (
	"sync"
	"time"
)

// Limiter enforces a fixed-window request count per client key.
// Each client gets maxRequests consumptions per window; when the window
// elapses a fresh one begins. Windows are fixed, not sliding.
// Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	clients     map[string]*windowState

	// now is swappable for tests
	now func() time.Time
}

type windowState struct {
	start time.Time
	count int
}

// New creates a limiter allowing maxRequests per window per client key
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		clients:     make(map[string]*windowState),
		now:         time.Now,
	}
}

// Consume attempts to take one request slot for clientKey.
// Returns whether the request is allowed, the remaining slots in the current
// window, and the time at which the window resets.
func (l *Limiter) Consume(clientKey string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, ok := l.clients[clientKey]
	if !ok || now.Sub(state.start) >= l.window {
		state = &windowState{start: now}
		l.clients[clientKey] = state
	}

	reset := state.start.Add(l.window)
	if state.count >= l.maxRequests {
		return false, 0, reset
	}

	state.count++
	return true, l.maxRequests - state.count, reset
}

// Prune drops client windows that ended before now. Called opportunistically
// by the registry to bound memory on long-lived shares.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, state := range l.clients {
		if now.Sub(state.start) >= l.window {
			delete(l.clients, key)
		}
	}
}

// Registry holds per-share limiters, created lazily on first use and kept
// for the lifetime of the process. State is process-local; multi-instance
// deployments need a shared backend for correct enforcement.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry creates an empty limiter registry
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
	}
}

// For returns the limiter for shareID, creating it on first use.
// A limiter created with an earlier config is replaced when the share's
// rate limit settings change.
func (r *Registry) For(shareID string, maxRequests int, window time.Duration) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[shareID]
	if !ok || limiter.maxRequests != maxRequests || limiter.window != window {
		limiter = New(maxRequests, window)
		r.limiters[shareID] = limiter
	}
	return limiter
}

// Remove drops the limiter for shareID, if any
func (r *Registry) Remove(shareID string) {
	r.mu.Lock()
	delete(r.limiters, shareID)
	r.mu.Unlock()
}

// Len returns the number of registered limiters
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
