package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// snippetRef is the snippet repository revision raw file reads resolve against.
const snippetRef = "HEAD"

const snippetsQuery = `query GetSnippets($projectPath: ID!) {
	project(fullPath: $projectPath) {
		id
		snippets {
			nodes {
				id
				title
				description
				webUrl
				blobs {
					nodes {
						name
						path
					}
				}
			}
		}
	}
}`

// graphqlRequest is the JSON body sent to the GitLab GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type snippetsResponse struct {
	Data struct {
		Project *struct {
			ID       string `json:"id"`
			Snippets struct {
				Nodes []struct {
					ID          string `json:"id"`
					Title       string `json:"title"`
					Description string `json:"description"`
					WebURL      string `json:"webUrl"`
					Blobs       struct {
						Nodes []struct {
							Name string `json:"name"`
							Path string `json:"path"`
						} `json:"nodes"`
					} `json:"blobs"`
				} `json:"nodes"`
			} `json:"snippets"`
		} `json:"project"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ListSnippets returns the snippets of a project via GraphQL. A missing
// project means it does not exist or the token cannot see it; both surface
// as ErrNotFound.
func (c *Client) ListSnippets(ctx context.Context, projectFullPath string) ([]model.Snippet, error) {
	var gqlResp snippetsResponse
	err := c.graphql(ctx, graphqlRequest{
		Query:     snippetsQuery,
		Variables: map[string]any{"projectPath": projectFullPath},
	}, &gqlResp)
	if err != nil {
		return nil, fmt.Errorf("listing snippets of %s: %w", projectFullPath, err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("listing snippets of %s: %w: %s", projectFullPath, driven.ErrMalformedResponse, gqlResp.Errors[0].Message)
	}
	project := gqlResp.Data.Project
	if project == nil {
		return nil, fmt.Errorf("project %s was not found, you might not have permission to see it: %w", projectFullPath, driven.ErrNotFound)
	}

	projectID, err := parseGlobalID(project.ID)
	if err != nil {
		return nil, fmt.Errorf("listing snippets of %s: %w: %w", projectFullPath, driven.ErrMalformedResponse, err)
	}

	snippets := make([]model.Snippet, 0, len(project.Snippets.Nodes))
	for _, n := range project.Snippets.Nodes {
		id, err := parseGlobalID(n.ID)
		if err != nil {
			return nil, fmt.Errorf("listing snippets of %s: %w: %w", projectFullPath, driven.ErrMalformedResponse, err)
		}
		s := model.Snippet{
			ID:          id,
			ProjectID:   projectID,
			Title:       n.Title,
			Description: n.Description,
			WebURL:      n.WebURL,
			Blobs:       make([]model.SnippetBlob, 0, len(n.Blobs.Nodes)),
		}
		for _, b := range n.Blobs.Nodes {
			s.Blobs = append(s.Blobs, model.SnippetBlob{Name: b.Name, Path: b.Path})
		}
		snippets = append(snippets, s)
	}
	return snippets, nil
}

// SnippetContent reads one file of a project snippet over REST, since the
// GraphQL API does not expose blob content.
func (c *Client) SnippetContent(ctx context.Context, projectID, snippetID int, blobPath string) (string, error) {
	path := fmt.Sprintf("projects/%d/snippets/%d/files/%s/%s/raw", projectID, snippetID, snippetRef, url.PathEscape(blobPath))

	var buf bytes.Buffer
	if err := c.doRaw(ctx, fmt.Sprintf("reading snippet %d file %s", snippetID, blobPath), http.MethodGet, path, nil, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// graphql posts a query to the instance GraphQL endpoint and decodes the body into v.
func (c *Client) graphql(ctx context.Context, reqBody graphqlRequest, v any) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create graphql request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: graphql request: %w", driven.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: graphql status %d", driven.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: graphql status %d", driven.ErrTransport, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode graphql response: %w", driven.ErrMalformedResponse, err)
	}
	return nil
}

// parseGlobalID extracts the numeric id from a GraphQL global id such as
// "gid://gitlab/ProjectSnippet/111".
func parseGlobalID(gid string) (int, error) {
	i := strings.LastIndex(gid, "/")
	id, err := strconv.Atoi(gid[i+1:])
	if err != nil {
		return 0, fmt.Errorf("parse global id %q: %w", gid, err)
	}
	return id, nil
}
