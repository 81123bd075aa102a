package gitlab

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

type lintRequest struct {
	Content string `json:"content"`
}

type lintResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// LintCIConfig validates CI configuration content in the context of a project.
func (c *Client) LintCIConfig(ctx context.Context, projectID int, content string) (*model.CIValidation, error) {
	var resp lintResponse
	path := fmt.Sprintf("projects/%d/ci/lint", projectID)
	if err := c.doRaw(ctx, "linting CI configuration", http.MethodPost, path, &lintRequest{Content: content}, &resp); err != nil {
		return nil, err
	}

	out := &model.CIValidation{
		Valid:    resp.Valid,
		Errors:   resp.Errors,
		Warnings: resp.Warnings,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out, nil
}
