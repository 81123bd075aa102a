package gitlab

import (
	"context"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// LastPipeline returns the newest pipeline for ref, or nil when none exists.
func (c *Client) LastPipeline(ctx context.Context, projectID int, ref string) (*model.Pipeline, error) {
	opts := &gl.ListProjectPipelinesOptions{
		ListOptions: gl.ListOptions{PerPage: 1},
		Ref:         gl.Ptr(ref),
	}
	infos, resp, err := c.gl.Pipelines.ListProjectPipelines(projectID, opts, ctxOpt(ctx))
	logRateLimit(resp, "pipelines")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("listing pipelines for %s", ref), resp, err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, nil
	}

	// The list endpoint returns a reduced view; fetch the full pipeline.
	p, resp, err := c.gl.Pipelines.GetPipeline(projectID, infos[0].ID, ctxOpt(ctx))
	logRateLimit(resp, "pipeline")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("getting pipeline %d", infos[0].ID), resp, err)
	}
	out := mapPipeline(p)
	return &out, nil
}

// ListJobs returns every job of a pipeline across all result pages.
func (c *Client) ListJobs(ctx context.Context, projectID, pipelineID int) ([]model.Job, error) {
	opts := &gl.ListJobsOptions{ListOptions: gl.ListOptions{PerPage: 100}}

	var all []model.Job
	for {
		jobs, resp, err := c.gl.Jobs.ListPipelineJobs(projectID, pipelineID, opts, ctxOpt(ctx))
		logRateLimit(resp, "pipeline_jobs")
		if err != nil {
			return nil, wrapError(fmt.Sprintf("listing jobs of pipeline %d (page %d)", pipelineID, opts.Page), resp, err)
		}
		for _, j := range jobs {
			if j == nil {
				continue
			}
			all = append(all, mapJob(j))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if all == nil {
		all = []model.Job{}
	}
	return all, nil
}

// CreatePipeline starts a new pipeline on ref.
func (c *Client) CreatePipeline(ctx context.Context, projectID int, ref string) (*model.Pipeline, error) {
	p, resp, err := c.gl.Pipelines.CreatePipeline(projectID, &gl.CreatePipelineOptions{Ref: gl.Ptr(ref)}, ctxOpt(ctx))
	logRateLimit(resp, "create_pipeline")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("creating pipeline for %s", ref), resp, err)
	}
	out := mapPipeline(p)
	return &out, nil
}

// RetryPipeline retries the failed jobs of a pipeline.
func (c *Client) RetryPipeline(ctx context.Context, projectID, pipelineID int) (*model.Pipeline, error) {
	p, resp, err := c.gl.Pipelines.RetryPipelineBuild(projectID, pipelineID, ctxOpt(ctx))
	logRateLimit(resp, "retry_pipeline")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("retrying pipeline %d", pipelineID), resp, err)
	}
	out := mapPipeline(p)
	return &out, nil
}

// CancelPipeline cancels the running jobs of a pipeline.
func (c *Client) CancelPipeline(ctx context.Context, projectID, pipelineID int) (*model.Pipeline, error) {
	p, resp, err := c.gl.Pipelines.CancelPipelineBuild(projectID, pipelineID, ctxOpt(ctx))
	logRateLimit(resp, "cancel_pipeline")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("cancelling pipeline %d", pipelineID), resp, err)
	}
	out := mapPipeline(p)
	return &out, nil
}
