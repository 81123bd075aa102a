package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// WorkspaceOptions selects the git remotes used for a workspace.
type WorkspaceOptions struct {
	// RemoteName is the remote the project is read from; "" lets the
	// resolver pick the branch upstream or origin.
	RemoteName string
	// PipelineRemoteName is the remote pipelines run on, when it differs
	// from RemoteName (for example a fork workflow).
	PipelineRemoteName string
}

// WorkspaceService answers questions about a local working copy: its
// project, branch status, pipelines, searches, CI lint and snippets.
type WorkspaceService struct {
	provider *GitLabClientProvider
	resolver driven.RemoteResolver
	patches  driven.PatchApplier
	cache    *ProjectCache
	opts     WorkspaceOptions
}

// NewWorkspaceService creates a WorkspaceService.
func NewWorkspaceService(provider *GitLabClientProvider, resolver driven.RemoteResolver, patches driven.PatchApplier, cache *ProjectCache, opts WorkspaceOptions) *WorkspaceService {
	return &WorkspaceService{
		provider: provider,
		resolver: resolver,
		patches:  patches,
		cache:    cache,
		opts:     opts,
	}
}

// ResolveProject maps the working copy at path to its GitLab project.
func (s *WorkspaceService) ResolveProject(ctx context.Context, path string) (*model.Workspace, *model.Project, error) {
	client, err := s.provider.Client()
	if err != nil {
		return nil, nil, err
	}
	return s.resolve(ctx, client, path, s.opts.RemoteName)
}

func (s *WorkspaceService) resolve(ctx context.Context, client driven.GitLabClient, path, remoteName string) (*model.Workspace, *model.Project, error) {
	ws, err := s.resolver.Resolve(ctx, path, remoteName)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve workspace %s: %w", path, err)
	}
	if s.cache.ObserveBranch(*ws) {
		slog.Debug("branch changed, project cache evicted", "workspace", ws.Path, "branch", ws.Branch)
	}

	fullPath := ws.Remote.FullPath()
	if p, ok := s.cache.Get(fullPath); ok {
		return ws, p, nil
	}

	p, err := client.GetProject(ctx, fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("get project %s: %w", fullPath, err)
	}
	s.cache.Put(fullPath, p)
	return ws, p, nil
}

// pipelineProject resolves the project pipelines run on.
func (s *WorkspaceService) pipelineProject(ctx context.Context, client driven.GitLabClient, path string, ws *model.Workspace, project *model.Project) (*model.Workspace, *model.Project, error) {
	if s.opts.PipelineRemoteName == "" || s.opts.PipelineRemoteName == s.opts.RemoteName {
		return ws, project, nil
	}
	return s.resolve(ctx, client, path, s.opts.PipelineRemoteName)
}

// CurrentMergeRequest returns the open merge request whose source branch is
// the workspace's tracking branch.
func (s *WorkspaceService) CurrentMergeRequest(ctx context.Context, path string) (*model.Project, *model.Issuable, error) {
	client, err := s.provider.Client()
	if err != nil {
		return nil, nil, err
	}
	ws, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return nil, nil, err
	}

	mrs, err := client.ListOpenMergeRequests(ctx, project.ID, ws.TrackingBranch)
	if err != nil {
		return nil, nil, fmt.Errorf("list merge requests for %s: %w", ws.TrackingBranch, err)
	}
	if len(mrs) == 0 {
		return project, nil, fmt.Errorf("no open merge request for branch %s: %w", ws.TrackingBranch, driven.ErrNotFound)
	}
	return project, &mrs[0], nil
}

// BranchStatus collects the pipeline, merge request and closing issues of
// the workspace's branch. Each segment fails on its own; only a failure to
// resolve the workspace itself is returned as an error.
func (s *WorkspaceService) BranchStatus(ctx context.Context, path string) (*model.BranchStatus, error) {
	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}
	ws, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return nil, err
	}

	status := &model.BranchStatus{Branch: ws.Branch}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		status.Pipeline, status.Jobs, status.PipelineErr = s.pipelineSegment(ctx, client, path, ws, project)
	}()
	go func() {
		defer wg.Done()
		s.mergeRequestSegment(ctx, client, ws, project, status)
	}()
	wg.Wait()

	for _, seg := range []struct {
		name string
		err  error
	}{
		{"pipeline", status.PipelineErr},
		{"merge_request", status.MergeRequestErr},
		{"closing_issues", status.ClosingIssuesErr},
	} {
		if seg.err != nil {
			slog.Warn("branch status segment failed", "segment", seg.name, "branch", ws.Branch, "error", seg.err)
		}
	}
	return status, nil
}

func (s *WorkspaceService) pipelineSegment(ctx context.Context, client driven.GitLabClient, path string, ws *model.Workspace, project *model.Project) (*model.Pipeline, []model.Job, error) {
	pws, pproject, err := s.pipelineProject(ctx, client, path, ws, project)
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := client.LastPipeline(ctx, pproject.ID, pws.TrackingBranch)
	if err != nil {
		return nil, nil, fmt.Errorf("last pipeline for %s: %w", pws.TrackingBranch, err)
	}
	if pipeline == nil {
		return nil, []model.Job{}, nil
	}

	jobs, err := client.ListJobs(ctx, pproject.ID, pipeline.ID)
	if err != nil {
		return pipeline, nil, fmt.Errorf("list jobs of pipeline %d: %w", pipeline.ID, err)
	}
	return pipeline, DedupeJobs(jobs), nil
}

func (s *WorkspaceService) mergeRequestSegment(ctx context.Context, client driven.GitLabClient, ws *model.Workspace, project *model.Project, status *model.BranchStatus) {
	mrs, err := client.ListOpenMergeRequests(ctx, project.ID, ws.TrackingBranch)
	if err != nil {
		status.MergeRequestErr = fmt.Errorf("list merge requests for %s: %w", ws.TrackingBranch, err)
		status.ClosingIssuesErr = status.MergeRequestErr
		return
	}
	if len(mrs) == 0 {
		status.ClosingIssues = []model.Issuable{}
		return
	}
	mr := mrs[0]
	status.MergeRequest = &mr

	issues, err := client.ListClosingIssues(ctx, project.ID, mr.IID)
	if err != nil {
		status.ClosingIssuesErr = fmt.Errorf("issues closed by !%d: %w", mr.IID, err)
		return
	}
	status.ClosingIssues = issues
}

// DedupeJobs keeps the newest job per name, in order of first appearance.
// Retried jobs otherwise show up once per attempt.
func DedupeJobs(jobs []model.Job) []model.Job {
	index := map[string]int{}
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		i, ok := index[j.Name]
		if !ok {
			index[j.Name] = len(out)
			out = append(out, j)
			continue
		}
		if j.CreatedAt.After(out[i].CreatedAt) {
			out[i] = j
		}
	}
	return out
}

// PipelineAction creates a pipeline on the tracking branch, or retries or
// cancels the branch's last pipeline.
func (s *WorkspaceService) PipelineAction(ctx context.Context, path string, action model.PipelineAction) (*model.Pipeline, error) {
	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}
	ws, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return nil, err
	}
	ws, project, err = s.pipelineProject(ctx, client, path, ws, project)
	if err != nil {
		return nil, err
	}

	if action == model.PipelineActionCreate {
		p, err := client.CreatePipeline(ctx, project.ID, ws.TrackingBranch)
		if err != nil {
			return nil, fmt.Errorf("create pipeline on %s: %w", ws.TrackingBranch, err)
		}
		return p, nil
	}

	last, err := client.LastPipeline(ctx, project.ID, ws.TrackingBranch)
	if err != nil {
		return nil, fmt.Errorf("last pipeline for %s: %w", ws.TrackingBranch, err)
	}
	if last == nil {
		return nil, fmt.Errorf("no pipeline on %s: %w", ws.TrackingBranch, driven.ErrNotFound)
	}

	switch action {
	case model.PipelineActionRetry:
		p, err := client.RetryPipeline(ctx, project.ID, last.ID)
		if err != nil {
			return nil, fmt.Errorf("retry pipeline %d: %w", last.ID, err)
		}
		return p, nil
	case model.PipelineActionCancel:
		p, err := client.CancelPipeline(ctx, project.ID, last.ID)
		if err != nil {
			return nil, fmt.Errorf("cancel pipeline %d: %w", last.ID, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown pipeline action %q", action)
	}
}

// Search runs a custom query against the workspace's project.
func (s *WorkspaceService) Search(ctx context.Context, path string, q model.CustomQuery) ([]model.Issuable, error) {
	nq, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}
	ws, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return nil, err
	}

	req := driven.SearchRequest{Query: nq, ProjectID: project.ID}

	if nq.Type == model.QueryTypeEpics {
		if project.NamespaceKind != model.NamespaceKindGroup {
			return nil, fmt.Errorf("%w: epics need a project in a group namespace", model.ErrInvalidQuery)
		}
		req.GroupID = project.NamespaceID
	}

	if nq.Type != model.QueryTypeIssues {
		if nq.Author != "" {
			if req.AuthorID, err = s.userID(ctx, client, nq.Author); err != nil {
				return nil, err
			}
		}
		if nq.Assignee != "" && nq.Assignee != model.AssigneeAny && nq.Assignee != model.AssigneeNone {
			if req.AssigneeID, err = s.userID(ctx, client, nq.Assignee); err != nil {
				return nil, err
			}
		}
	}

	switch nq.PipelineID {
	case "":
	case model.PipelineIDBranch:
		last, err := client.LastPipeline(ctx, project.ID, ws.TrackingBranch)
		if err != nil {
			return nil, fmt.Errorf("last pipeline for %s: %w", ws.TrackingBranch, err)
		}
		if last == nil {
			slog.Debug("no pipeline on branch, query has no results", "query", nq.Name, "branch", ws.TrackingBranch)
			return []model.Issuable{}, nil
		}
		req.PipelineID = last.ID
	default:
		// Normalize guarantees a positive number here.
		req.PipelineID, _ = strconv.Atoi(nq.PipelineID)
	}

	items, err := client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", nq.Type, err)
	}
	return items, nil
}

// SearchText parses a free-text search such as "label:bug author:me" into a
// query of type typ and runs it.
func (s *WorkspaceService) SearchText(ctx context.Context, path, text string, typ model.QueryType) (model.CustomQuery, []model.Issuable, error) {
	q, err := model.ParseSearchText(text, typ)
	if err != nil {
		return q, nil, err
	}
	items, err := s.Search(ctx, path, q)
	return q, items, err
}

// userID resolves a username to an id; unknown users map to -1 so the
// query matches nothing instead of ignoring the filter.
func (s *WorkspaceService) userID(ctx context.Context, client driven.GitLabClient, username string) (*int, error) {
	id, ok, err := client.FindUserID(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	if !ok {
		id = -1
	}
	return &id, nil
}

// ValidateCIConfig checks YAML syntax locally, then lints content against the
// workspace's project. Syntax errors are reported without a remote call.
func (s *WorkspaceService) ValidateCIConfig(ctx context.Context, path, content string) (*model.CIValidation, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return &model.CIValidation{
			Valid:    false,
			Errors:   []string{yaml.FormatError(err, false, true)},
			Warnings: []string{},
		}, nil
	}

	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}
	_, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return nil, err
	}

	v, err := client.LintCIConfig(ctx, project.ID, content)
	if err != nil {
		return nil, fmt.Errorf("lint CI config: %w", err)
	}
	return v, nil
}

// Snippets lists the snippets of the workspace's project.
func (s *WorkspaceService) Snippets(ctx context.Context, path string) ([]model.Snippet, error) {
	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}
	ws, err := s.resolver.Resolve(ctx, path, s.opts.RemoteName)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", path, err)
	}

	snippets, err := client.ListSnippets(ctx, ws.Remote.FullPath())
	if err != nil {
		return nil, fmt.Errorf("list snippets of %s: %w", ws.Remote.FullPath(), err)
	}
	return snippets, nil
}

// SnippetContent returns the raw content of one snippet file.
func (s *WorkspaceService) SnippetContent(ctx context.Context, path string, snippetID int, blobPath string) (string, error) {
	client, err := s.provider.Client()
	if err != nil {
		return "", err
	}
	_, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return "", err
	}

	content, err := client.SnippetContent(ctx, project.ID, snippetID, blobPath)
	if err != nil {
		return "", fmt.Errorf("read snippet %d file %s: %w", snippetID, blobPath, err)
	}
	return content, nil
}

// CreateSnippet creates a single-file snippet in the workspace's project.
func (s *WorkspaceService) CreateSnippet(ctx context.Context, path string, snippet model.NewSnippet) (*model.Snippet, error) {
	snippet, err := snippet.Validate()
	if err != nil {
		return nil, err
	}

	client, err := s.provider.Client()
	if err != nil {
		return nil, err
	}
	_, project, err := s.resolve(ctx, client, path, s.opts.RemoteName)
	if err != nil {
		return nil, err
	}

	created, err := client.CreateSnippet(ctx, project.ID, snippet)
	if err != nil {
		return nil, fmt.Errorf("create snippet in %s: %w", project.FullPath, err)
	}
	slog.Info("snippet created", "project", project.FullPath, "snippet", created.ID, "visibility", snippet.Visibility)
	return created, nil
}

// PatchSnippets lists the project snippets that carry a .patch file.
func (s *WorkspaceService) PatchSnippets(ctx context.Context, path string) ([]model.Snippet, error) {
	snippets, err := s.Snippets(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make([]model.Snippet, 0, len(snippets))
	for _, sn := range snippets {
		if _, ok := sn.PatchBlob(); ok {
			out = append(out, sn)
		}
	}
	return out, nil
}

// ApplySnippetPatch downloads the first .patch file of a project snippet and
// applies it to the working copy at path.
func (s *WorkspaceService) ApplySnippetPatch(ctx context.Context, path string, snippetID int) (*model.AppliedPatch, error) {
	snippets, err := s.PatchSnippets(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(snippets) == 0 {
		return nil, model.ErrNoPatchSnippets
	}
	idx := slices.IndexFunc(snippets, func(sn model.Snippet) bool { return sn.ID == snippetID })
	if idx < 0 {
		return nil, fmt.Errorf("snippet %d has no .patch file or is not in this project: %w", snippetID, driven.ErrNotFound)
	}
	blob, _ := snippets[idx].PatchBlob()

	patch, err := s.SnippetContent(ctx, path, snippetID, blob.Path)
	if err != nil {
		return nil, err
	}

	files, err := s.patches.ApplyPatch(ctx, path, patch)
	if err != nil {
		return nil, fmt.Errorf("apply snippet %d %s: %w", snippetID, blob.Path, err)
	}
	slog.Info("snippet patch applied", "snippet", snippetID, "blob", blob.Path, "files", len(files))
	return &model.AppliedPatch{SnippetID: snippetID, Blob: blob.Path, Files: files}, nil
}
