package capture

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fakewire/fakewire/internal/domain"
)

// MemoryStore is an in-memory Store implementation used for unit tests and
// for running the capture server without a database.
type MemoryStore struct {
	mu       sync.Mutex
	inboxes  map[string]domain.Inbox
	requests map[string][]domain.CapturedRequest // token -> oldest first
	byID     map[string]domain.CapturedRequest
	pingErr  error
}

// NewMemoryStore instantiates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inboxes:  make(map[string]domain.Inbox),
		requests: make(map[string][]domain.CapturedRequest),
		byID:     make(map[string]domain.CapturedRequest),
	}
}

// WithPingError forces Ping to return the supplied error.
func (m *MemoryStore) WithPingError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
	return m
}

// CreateInbox registers a new inbox for the token.
func (m *MemoryStore) CreateInbox(ctx context.Context, token string, createdAt time.Time) (domain.Inbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inboxes[token]; ok {
		return domain.Inbox{}, ErrInboxExists
	}
	inbox := domain.Inbox{Token: token, CreatedAt: createdAt}
	m.inboxes[token] = inbox
	return inbox, nil
}

// GetInbox returns the inbox for the token including its request count.
func (m *MemoryStore) GetInbox(ctx context.Context, token string) (domain.Inbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inbox, ok := m.inboxes[token]
	if !ok {
		return domain.Inbox{}, ErrInboxNotFound
	}
	inbox.RequestCount = len(m.requests[token])
	return inbox, nil
}

// ListInboxes returns all inboxes, newest first.
func (m *MemoryStore) ListInboxes(ctx context.Context) ([]domain.Inbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Inbox, 0, len(m.inboxes))
	for token, inbox := range m.inboxes {
		inbox.RequestCount = len(m.requests[token])
		out = append(out, inbox)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SaveRequest appends a captured request to its inbox.
func (m *MemoryStore) SaveRequest(ctx context.Context, req domain.CapturedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inboxes[req.Token]; !ok {
		return ErrInboxNotFound
	}
	m.requests[req.Token] = append(m.requests[req.Token], req)
	m.byID[req.ID] = req
	return nil
}

// ListRequests pages through an inbox, newest first.
func (m *MemoryStore) ListRequests(ctx context.Context, token string, limit, offset int) (domain.RequestPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inboxes[token]; !ok {
		return domain.RequestPage{}, ErrInboxNotFound
	}

	stored := m.requests[token]
	page := domain.RequestPage{Total: len(stored), Items: []domain.CapturedRequest{}}

	// stored is oldest first; walk it backwards.
	start := len(stored) - 1 - offset
	for i := start; i >= 0 && len(page.Items) < limit; i-- {
		page.Items = append(page.Items, stored[i])
	}
	return page, nil
}

// GetRequest looks up a single captured request by ID.
func (m *MemoryStore) GetRequest(ctx context.Context, id string) (domain.CapturedRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.byID[id]
	if !ok {
		return domain.CapturedRequest{}, ErrRequestNotFound
	}
	return req, nil
}

// DeleteRequests removes all captured requests for the token.
func (m *MemoryStore) DeleteRequests(ctx context.Context, token string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inboxes[token]; !ok {
		return 0, ErrInboxNotFound
	}
	removed := len(m.requests[token])
	for _, req := range m.requests[token] {
		delete(m.byID, req.ID)
	}
	delete(m.requests, token)
	return removed, nil
}

// TrimRequests drops the oldest requests so at most keep remain.
func (m *MemoryStore) TrimRequests(ctx context.Context, token string, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.requests[token]
	if keep < 0 || len(stored) <= keep {
		return 0, nil
	}
	drop := len(stored) - keep
	for _, req := range stored[:drop] {
		delete(m.byID, req.ID)
	}
	m.requests[token] = append([]domain.CapturedRequest(nil), stored[drop:]...)
	return drop, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

// Close implements Store.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
