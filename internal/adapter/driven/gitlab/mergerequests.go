package gitlab

import (
	"context"
	"fmt"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// GetMergeRequest returns a single merge request.
func (c *Client) GetMergeRequest(ctx context.Context, projectID, iid int) (*model.Issuable, error) {
	mr, resp, err := c.gl.MergeRequests.GetMergeRequest(projectID, iid, nil, ctxOpt(ctx))
	logRateLimit(resp, "merge_request")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("getting merge request %d!%d", projectID, iid), resp, err)
	}
	issuable := mapBasicMergeRequest(&mr.BasicMergeRequest)
	return &issuable, nil
}

// GetIssue returns a single issue.
func (c *Client) GetIssue(ctx context.Context, projectID, iid int) (*model.Issuable, error) {
	issue, resp, err := c.gl.Issues.GetIssue(projectID, iid, ctxOpt(ctx))
	logRateLimit(resp, "issue")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("getting issue %d#%d", projectID, iid), resp, err)
	}
	issuable := mapIssue(issue)
	return &issuable, nil
}

// ListVersions returns the diff versions of a merge request, newest first.
func (c *Client) ListVersions(ctx context.Context, projectID, iid int) ([]model.MrVersion, error) {
	versions, resp, err := c.gl.MergeRequests.GetMergeRequestDiffVersions(projectID, iid, nil, ctxOpt(ctx))
	logRateLimit(resp, "merge_request_versions")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("listing versions of %d!%d", projectID, iid), resp, err)
	}

	out := make([]model.MrVersion, 0, len(versions))
	for _, v := range versions {
		out = append(out, mapVersion(v))
	}
	return out, nil
}

// GetVersion returns one merge request version including its changed files.
func (c *Client) GetVersion(ctx context.Context, projectID, iid, versionID int) (*model.MrVersion, error) {
	path := fmt.Sprintf("projects/%d/merge_requests/%d/versions/%d", projectID, iid, versionID)

	var v gl.MergeRequestDiffVersion
	if err := c.doRaw(ctx, fmt.Sprintf("getting version %d of %d!%d", versionID, projectID, iid), http.MethodGet, path, nil, &v); err != nil {
		return nil, err
	}

	version := mapVersion(&v)
	return &version, nil
}

// GetRawFile returns the content of path at ref.
func (c *Client) GetRawFile(ctx context.Context, projectID int, path, ref string) (string, error) {
	content, resp, err := c.gl.RepositoryFiles.GetRawFile(projectID, path, &gl.GetRawFileOptions{Ref: gl.Ptr(ref)}, ctxOpt(ctx))
	logRateLimit(resp, "raw_file")
	if err != nil {
		return "", wrapError(fmt.Sprintf("reading %s at %s", path, ref), resp, err)
	}
	return string(content), nil
}

// ListOpenMergeRequests returns open merge requests whose source branch is sourceBranch.
func (c *Client) ListOpenMergeRequests(ctx context.Context, projectID int, sourceBranch string) ([]model.Issuable, error) {
	opts := &gl.ListProjectMergeRequestsOptions{
		State:        gl.Ptr("opened"),
		SourceBranch: gl.Ptr(sourceBranch),
	}
	mrs, resp, err := c.gl.MergeRequests.ListProjectMergeRequests(projectID, opts, ctxOpt(ctx))
	logRateLimit(resp, "merge_requests")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("listing merge requests for %s", sourceBranch), resp, err)
	}

	out := make([]model.Issuable, 0, len(mrs))
	for _, mr := range mrs {
		out = append(out, mapBasicMergeRequest(mr))
	}
	return out, nil
}

// ListClosingIssues returns the issues a merge request closes when merged.
func (c *Client) ListClosingIssues(ctx context.Context, projectID, iid int) ([]model.Issuable, error) {
	issues, resp, err := c.gl.MergeRequests.GetIssuesClosedOnMerge(projectID, iid, nil, ctxOpt(ctx))
	logRateLimit(resp, "closes_issues")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("listing issues closed by %d!%d", projectID, iid), resp, err)
	}

	out := make([]model.Issuable, 0, len(issues))
	for _, issue := range issues {
		out = append(out, mapIssue(issue))
	}
	return out, nil
}
