package application

import (
	"fmt"
	"sync"

	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// GitLabClientProvider enables runtime hot-swap of the GitLab client.
// It holds a mutex-protected reference to the current driven.GitLabClient,
// allowing a token change to take effect without restarting the application.
type GitLabClientProvider struct {
	mu     sync.RWMutex
	client driven.GitLabClient
}

// NewGitLabClientProvider creates a new provider with the given initial client.
// client may be nil if no token is available at startup.
func NewGitLabClientProvider(client driven.GitLabClient) *GitLabClientProvider {
	return &GitLabClientProvider{client: client}
}

// Get returns the current GitLab client, or nil.
func (p *GitLabClientProvider) Get() driven.GitLabClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Client returns the current client or an ErrUnauthorized error when no
// token has been configured.
func (p *GitLabClientProvider) Client() (driven.GitLabClient, error) {
	c := p.Get()
	if c == nil {
		return nil, fmt.Errorf("no GitLab token configured: %w", driven.ErrUnauthorized)
	}
	return c, nil
}

// Replace swaps the current client. Sessions already open keep the client
// they were opened with.
func (p *GitLabClientProvider) Replace(client driven.GitLabClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *GitLabClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
