package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// SessionManager opens review sessions through the current GitLab client and
// tracks them by id until they are closed.
type SessionManager struct {
	provider *GitLabClientProvider
	pageSize int

	mu       sync.Mutex
	sessions map[string]*ReviewSession
}

// NewSessionManager creates a SessionManager. pageSize is the number of
// discussions requested per page.
func NewSessionManager(provider *GitLabClientProvider, pageSize int) *SessionManager {
	return &SessionManager{
		provider: provider,
		pageSize: pageSize,
		sessions: map[string]*ReviewSession{},
	}
}

// Open loads the issuable identified by projectID, iid and kind and starts a
// session for it.
func (m *SessionManager) Open(ctx context.Context, projectID, iid int, kind model.IssuableKind) (*ReviewSession, error) {
	client, err := m.provider.Client()
	if err != nil {
		return nil, err
	}

	var issuable *model.Issuable
	switch kind {
	case model.IssuableKindMergeRequest:
		issuable, err = client.GetMergeRequest(ctx, projectID, iid)
	case model.IssuableKindIssue:
		issuable, err = client.GetIssue(ctx, projectID, iid)
	default:
		return nil, fmt.Errorf("%s: %w", kind, model.ErrUnsupportedKind)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d of project %d: %w", kind, iid, projectID, err)
	}

	s, err := OpenSession(ctx, client, *issuable, m.pageSize)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the open session with the given id.
func (m *SessionManager) Get(id string) (*ReviewSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close disposes and forgets the session. It reports whether it existed.
func (m *SessionManager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Dispose()
	}
	return ok
}

// CloseAll disposes every open session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*ReviewSession{}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Dispose()
	}
}
