package share

import (
	"sync"
	"time"

	"github.com/vertextoedge/secure-file-share/internal/domain"
	"github.com/vertextoedge/secure-file-share/internal/domain/repository"
)

// mockShareRepo is an in-memory share repository. Shares are copied on the
// way in and out so tests observe persisted state, not shared pointers.
type mockShareRepo struct {
	mu     sync.Mutex
	shares map[string]*domain.Share

	createErr error
	getErr    error
	updateErr error
	incErr    error
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{shares: make(map[string]*domain.Share)}
}

func copyShare(s *domain.Share) *domain.Share {
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	if s.LastAccessedAt != nil {
		t := *s.LastAccessedAt
		c.LastAccessedAt = &t
	}
	if s.Security != nil {
		sec := *s.Security
		c.Security = &sec
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (m *mockShareRepo) CreateShare(share *domain.Share) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[share.ID] = copyShare(share)
	return nil
}

func (m *mockShareRepo) GetShareByID(id string) (*domain.Share, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok {
		return nil, domain.ErrShareNotFound
	}
	return copyShare(share), nil
}

func (m *mockShareRepo) UpdateShare(share *domain.Share) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[share.ID]; !ok {
		return domain.ErrShareNotFound
	}
	m.shares[share.ID] = copyShare(share)
	return nil
}

func (m *mockShareRepo) FindAndCount(filter repository.ShareFilter, page repository.Page) ([]*domain.Share, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*domain.Share, 0, len(m.shares))
	for _, share := range m.shares {
		if filter.Path != "" && share.Path != filter.Path {
			continue
		}
		if len(filter.Statuses) > 0 {
			ok := false
			for _, status := range filter.Statuses {
				if share.Status == status {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, copyShare(share))
	}

	total := len(matched)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if page.Limit <= 0 || end > total {
		end = total
	}
	return matched[page.Offset:end], total, nil
}

func (m *mockShareRepo) IncrementAccessCount(id string, now time.Time) (bool, error) {
	if m.incErr != nil {
		return false, m.incErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok {
		return false, nil
	}
	if share.Status != domain.StatusActive {
		return false, nil
	}
	if share.MaxAccesses > 0 && share.AccessCount >= share.MaxAccesses {
		return false, nil
	}
	share.AccessCount++
	t := now
	share.LastAccessedAt = &t
	share.UpdatedAt = now
	return true, nil
}

// mockLogRepo records appended audit entries in order
type mockLogRepo struct {
	mu      sync.Mutex
	entries []*domain.AccessLogEntry

	appendErr error
}

func newMockLogRepo() *mockLogRepo {
	return &mockLogRepo{}
}

func (m *mockLogRepo) AppendAccessLog(entry *domain.AccessLogEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLogRepo) ListAccessLogs(shareID string) ([]*domain.AccessLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AccessLogEntry
	for _, entry := range m.entries {
		if entry.ShareID == shareID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *mockLogRepo) last() *domain.AccessLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// mockCache is an in-memory cache that ignores TTLs but records them, so
// tests can assert on the TTL passed in. Expiry behavior is covered by the
// real cache adapters' own tests.
type mockCache struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockCache) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockCache) Set(key, value string, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.ttls, key)
	return nil
}
