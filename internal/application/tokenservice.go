package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// ClientFactory builds a GitLab client authenticated with token.
type ClientFactory func(token string) driven.GitLabClient

// TokenService manages the personal access token of the configured instance
// and swaps the provider's client whenever it changes. Projects cached under
// the previous credentials are dropped on every change.
type TokenService struct {
	store       driven.TokenStore
	provider    *GitLabClientProvider
	projects    *ProjectCache
	instanceURL string
	newClient   ClientFactory
}

// NewTokenService creates a TokenService for instanceURL. projects may be nil.
func NewTokenService(store driven.TokenStore, provider *GitLabClientProvider, projects *ProjectCache, instanceURL string, newClient ClientFactory) *TokenService {
	return &TokenService{
		store:       store,
		provider:    provider,
		projects:    projects,
		instanceURL: instanceURL,
		newClient:   newClient,
	}
}

// Bootstrap installs the initial client. A stored token takes priority over
// envToken. It reports whether a client was installed.
func (s *TokenService) Bootstrap(ctx context.Context, envToken string) bool {
	token := envToken
	stored, err := s.store.Get(ctx, s.instanceURL)
	switch {
	case err == nil && stored != "":
		token = stored
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		slog.Debug("token store disabled, using environment token only")
	case err != nil:
		slog.Warn("failed to read stored token", "instance", s.instanceURL, "error", err)
	}

	if token == "" {
		slog.Info("no GitLab token configured, API calls disabled until one is set", "instance", s.instanceURL)
		return false
	}
	s.provider.Replace(s.newClient(token))
	return true
}

// SetToken persists token and swaps in a client using it.
func (s *TokenService) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := s.store.Set(ctx, s.instanceURL, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.swap(s.newClient(token))
	slog.Info("GitLab token updated", "instance", s.instanceURL)
	return nil
}

// RemoveToken deletes the stored token and disables the client.
func (s *TokenService) RemoveToken(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.instanceURL); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	s.swap(nil)
	slog.Info("GitLab token removed", "instance", s.instanceURL)
	return nil
}

func (s *TokenService) swap(client driven.GitLabClient) {
	s.provider.Replace(client)
	if s.projects != nil {
		s.projects.Clear()
	}
}

// HasToken reports whether a client is currently installed.
func (s *TokenService) HasToken() bool {
	return s.provider.HasClient()
}
