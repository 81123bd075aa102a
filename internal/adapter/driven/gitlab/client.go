// Package gitlab implements the GitLabClient port using the GitLab client-go library.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitLabClient = (*Client)(nil)

// Client implements the driven.GitLabClient port against one GitLab instance.
type Client struct {
	gl          *gl.Client
	httpClient  *http.Client // Shared with GraphQL and raw downloads.
	token       string       // Stored for the GraphQL Authorization header.
	instanceURL string
	graphqlURL  string
}

// Options tunes the transport of a Client.
type Options struct {
	// RequestsPerSecond caps outgoing API calls. Zero disables limiting.
	RequestsPerSecond float64
	// Timeout bounds each HTTP round trip.
	Timeout time.Duration
}

// NewClient creates a GitLab API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. x/time/rate limiter (client-side request budget)
//  3. client-go (GitLab REST API with PRIVATE-TOKEN auth, retries disabled)
func NewClient(instanceURL, token string, opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   timeout,
	}
	return newClient(httpClient, instanceURL, token, opts.RequestsPerSecond)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and instance URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, instanceURL, token string) (*Client, error) {
	return newClient(httpClient, instanceURL, token, 0)
}

func newClient(httpClient *http.Client, instanceURL, token string, rps float64) (*Client, error) {
	instanceURL = strings.TrimSuffix(instanceURL, "/")
	if instanceURL == "" {
		return nil, errors.New("gitlab instance URL is required")
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	burst := max(1, int(rps))

	client, err := gl.NewClient(token,
		gl.WithBaseURL(instanceURL),
		gl.WithHTTPClient(httpClient),
		gl.WithoutRetries(),
		gl.WithCustomLimiter(rate.NewLimiter(limit, burst)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client for %s: %w", instanceURL, err)
	}

	return &Client{
		gl:          client,
		httpClient:  httpClient,
		token:       token,
		instanceURL: instanceURL,
		graphqlURL:  instanceURL + "/api/graphql",
	}, nil
}

// InstanceURL returns the instance the client talks to, without a trailing slash.
func (c *Client) InstanceURL() string {
	return c.instanceURL
}

// wrapError classifies a client-go failure into one of the driven sentinels.
func wrapError(op string, resp *gl.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil {
		return fmt.Errorf("%s: %w: %w", op, driven.ErrTransport, err)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %w", op, driven.ErrNotFound, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, driven.ErrUnauthorized, err)
	case code >= 200 && code < 300:
		return fmt.Errorf("%s: %w: %w", op, driven.ErrMalformedResponse, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, driven.ErrTransport, err)
	}
}

// doRaw issues a request for an endpoint client-go has no typed method for.
// opt is encoded as query parameters for GET and as a JSON body otherwise.
func (c *Client) doRaw(ctx context.Context, op, method, path string, opt, v any) error {
	req, err := c.gl.NewRequest(method, path, opt, []gl.RequestOptionFunc{gl.WithContext(ctx)})
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	resp, err := c.gl.Do(req, v)
	logRateLimit(resp, path)
	return wrapError(op, resp, err)
}

// logRateLimit logs the call at debug level and warns when the instance's
// rate limit budget runs low.
func logRateLimit(resp *gl.Response, endpoint string) {
	if resp == nil || resp.Response == nil {
		return
	}

	remaining, err := strconv.Atoi(resp.Header.Get("RateLimit-Remaining"))
	if err != nil {
		slog.Debug("gitlab api call", "endpoint", endpoint, "status", resp.StatusCode)
		return
	}

	slog.Debug("gitlab api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"rate_remaining", remaining,
		"rate_limit", resp.Header.Get("RateLimit-Limit"),
	)

	if remaining < 100 {
		slog.Warn("gitlab rate limit low",
			"remaining", remaining,
			"reset", resp.Header.Get("RateLimit-ResetTime"),
		)
	}
}

func ctxOpt(ctx context.Context) gl.RequestOptionFunc {
	return gl.WithContext(ctx)
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
