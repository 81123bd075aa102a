package gitlab

import (
	"context"
	"fmt"
	"path"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// CreateSnippet creates a single-file snippet in a project.
func (c *Client) CreateSnippet(ctx context.Context, projectID int, snippet model.NewSnippet) (*model.Snippet, error) {
	visibility := gl.VisibilityValue(snippet.Visibility)
	s, resp, err := c.gl.ProjectSnippets.CreateSnippet(projectID, &gl.CreateProjectSnippetOptions{
		Title:      gl.Ptr(snippet.Title),
		Visibility: &visibility,
		Files: &[]*gl.CreateSnippetFileOptions{{
			FilePath: gl.Ptr(snippet.FileName),
			Content:  gl.Ptr(snippet.Content),
		}},
	}, ctxOpt(ctx))
	if err != nil {
		return nil, wrapError(fmt.Sprintf("creating snippet %s in project %d", snippet.FileName, projectID), resp, err)
	}
	out := mapSnippet(s)
	return &out, nil
}

// mapSnippet converts a REST snippet to the domain type.
func mapSnippet(s *gl.Snippet) model.Snippet {
	out := model.Snippet{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		Title:       s.Title,
		Description: s.Description,
		WebURL:      s.WebURL,
		Blobs:       make([]model.SnippetBlob, 0, len(s.Files)),
	}
	for _, f := range s.Files {
		out.Blobs = append(out.Blobs, model.SnippetBlob{Name: path.Base(f.Path), Path: f.Path})
	}
	if len(out.Blobs) == 0 && s.FileName != "" {
		out.Blobs = append(out.Blobs, model.SnippetBlob{Name: path.Base(s.FileName), Path: s.FileName})
	}
	return out
}
