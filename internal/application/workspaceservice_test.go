package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

type workspaceFixture struct {
	svc      *application.WorkspaceService
	fake     *fakeGitLab
	resolver *fakeResolver
	patches  *fakePatchApplier
	cache    *application.ProjectCache
}

func newWorkspaceFixture(t *testing.T, opts application.WorkspaceOptions) workspaceFixture {
	t.Helper()

	fake := newMRFake()
	fake.projects = map[string]*model.Project{
		"group/project": {ID: testProjectID, FullPath: "group/project", NamespaceID: 77, NamespaceKind: model.NamespaceKindGroup},
		"fork/project":  {ID: 999, FullPath: "fork/project", NamespaceID: 5, NamespaceKind: "user"},
	}
	resolver := &fakeResolver{workspace: testWorkspace("feature")}
	patches := &fakePatchApplier{files: []string{"hello.txt"}}
	cache := application.NewProjectCache()
	svc := application.NewWorkspaceService(application.NewGitLabClientProvider(fake), resolver, patches, cache, opts)
	return workspaceFixture{svc: svc, fake: fake, resolver: resolver, patches: patches, cache: cache}
}

func TestWorkspaceService_ResolveProjectCaches(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	ctx := context.Background()

	ws, p, err := f.svc.ResolveProject(ctx, "/src/project")
	require.NoError(t, err)
	assert.Equal(t, "feature", ws.Branch)
	assert.Equal(t, testProjectID, p.ID)

	_, _, err = f.svc.ResolveProject(ctx, "/src/project")
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.called("GetProject"))

	f.resolver.setBranch("other")
	_, _, err = f.svc.ResolveProject(ctx, "/src/project")
	require.NoError(t, err)
	assert.Equal(t, 2, f.fake.called("GetProject"), "branch change evicts the cached project")
}

func TestWorkspaceService_ResolveErrors(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.resolver.err = driven.ErrNotFound

	_, _, err := f.svc.ResolveProject(context.Background(), "/tmp")
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestWorkspaceService_BranchStatus(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.lastPipeline = &model.Pipeline{ID: 10, Status: "failed", Ref: "feature"}
	f.fake.jobs = []model.Job{
		{ID: 1, Name: "test", Status: "failed", CreatedAt: at(1)},
		{ID: 2, Name: "lint", Status: "success", CreatedAt: at(1)},
		{ID: 3, Name: "test", Status: "success", CreatedAt: at(5)},
	}
	mr := testMR()
	f.fake.openMRs = []model.Issuable{mr}
	f.fake.closing = []model.Issuable{testIssue()}

	status, err := f.svc.BranchStatus(context.Background(), "/src/project")
	require.NoError(t, err)

	assert.Equal(t, "feature", status.Branch)
	require.NotNil(t, status.Pipeline)
	assert.Equal(t, 10, status.Pipeline.ID)
	require.Len(t, status.Jobs, 2)
	assert.Equal(t, 3, status.Jobs[0].ID)
	assert.Equal(t, "lint", status.Jobs[1].Name)
	require.NotNil(t, status.MergeRequest)
	assert.Equal(t, testMRIID, status.MergeRequest.IID)
	assert.Len(t, status.ClosingIssues, 1)
	assert.NoError(t, status.PipelineErr)
	assert.NoError(t, status.MergeRequestErr)
	assert.NoError(t, status.ClosingIssuesErr)
}

func TestWorkspaceService_BranchStatusSegmentsDegradeIndependently(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.lastPipelineErr = driven.ErrTransport
	f.fake.openMRs = []model.Issuable{testMR()}
	f.fake.closingErr = driven.ErrUnauthorized

	status, err := f.svc.BranchStatus(context.Background(), "/src/project")
	require.NoError(t, err)

	assert.ErrorIs(t, status.PipelineErr, driven.ErrTransport)
	assert.NotNil(t, status.MergeRequest)
	assert.NoError(t, status.MergeRequestErr)
	assert.ErrorIs(t, status.ClosingIssuesErr, driven.ErrUnauthorized)
}

func TestWorkspaceService_BranchStatusWithoutPipelineOrMR(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})

	status, err := f.svc.BranchStatus(context.Background(), "/src/project")
	require.NoError(t, err)
	assert.Nil(t, status.Pipeline)
	assert.Nil(t, status.MergeRequest)
	assert.Zero(t, f.fake.called("ListJobs"))
	assert.Zero(t, f.fake.called("ListClosingIssues"))
}

func TestDedupeJobs(t *testing.T) {
	jobs := application.DedupeJobs([]model.Job{
		{ID: 1, Name: "build", CreatedAt: at(3)},
		{ID: 2, Name: "build", CreatedAt: at(1)},
		{ID: 3, Name: "test", CreatedAt: time.Time{}},
	})
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[0].ID)
	assert.Equal(t, 3, jobs[1].ID)
}

func TestWorkspaceService_PipelineAction(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	ctx := context.Background()

	_, err := f.svc.PipelineAction(ctx, "/src/project", model.PipelineActionRetry)
	assert.ErrorIs(t, err, driven.ErrNotFound, "nothing to retry")

	p, err := f.svc.PipelineAction(ctx, "/src/project", model.PipelineActionCreate)
	require.NoError(t, err)
	assert.Equal(t, "feature", p.Ref)

	f.fake.lastPipeline = &model.Pipeline{ID: 42}
	p, err = f.svc.PipelineAction(ctx, "/src/project", model.PipelineActionRetry)
	require.NoError(t, err)
	assert.Equal(t, 42, p.ID)

	p, err = f.svc.PipelineAction(ctx, "/src/project", model.PipelineActionCancel)
	require.NoError(t, err)
	assert.Equal(t, "canceled", p.Status)
}

func TestWorkspaceService_PipelineRemote(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{PipelineRemoteName: "fork"})
	fork := testWorkspace("feature")
	fork.Remote.Namespace = "fork"
	f.resolver.byRemote = map[string]model.Workspace{"fork": fork}

	_, err := f.svc.PipelineAction(context.Background(), "/src/project", model.PipelineActionCreate)
	require.NoError(t, err)
	_, ok := f.cache.Get("fork/project")
	assert.True(t, ok, "pipeline project resolved through the pipeline remote")
}

func TestWorkspaceService_SearchMergeRequests(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.users = map[string]int{"alice": 7}
	f.fake.searchResult = []model.Issuable{testMR()}

	items, err := f.svc.Search(context.Background(), "/src/project", model.CustomQuery{
		Author:   "alice",
		Assignee: "ghost",
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	req := f.fake.searchReq
	require.NotNil(t, req)
	assert.Equal(t, model.QueryTypeMergeRequests, req.Query.Type)
	assert.Equal(t, testProjectID, req.ProjectID)
	require.NotNil(t, req.AuthorID)
	assert.Equal(t, 7, *req.AuthorID)
	require.NotNil(t, req.AssigneeID)
	assert.Equal(t, -1, *req.AssigneeID)
}

func TestWorkspaceService_SearchIssuesKeepUsernames(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})

	_, err := f.svc.Search(context.Background(), "/src/project", model.CustomQuery{
		Type:     model.QueryTypeIssues,
		Author:   "alice",
		Assignee: model.AssigneeNone,
	})
	require.NoError(t, err)
	assert.Zero(t, f.fake.called("FindUserID"))
	assert.Nil(t, f.fake.searchReq.AuthorID)
	assert.Nil(t, f.fake.searchReq.AssigneeID)
}

func TestWorkspaceService_SearchAssigneeAnyNotResolved(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})

	_, err := f.svc.Search(context.Background(), "/src/project", model.CustomQuery{Assignee: model.AssigneeAny})
	require.NoError(t, err)
	assert.Zero(t, f.fake.called("FindUserID"))
	assert.Nil(t, f.fake.searchReq.AssigneeID)
}

func TestWorkspaceService_SearchEpics(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})

	_, err := f.svc.Search(context.Background(), "/src/project", model.CustomQuery{Type: model.QueryTypeEpics})
	require.NoError(t, err)
	assert.Equal(t, 77, f.fake.searchReq.GroupID)

	user := testWorkspace("feature")
	user.Remote.Namespace = "fork"
	f.resolver.workspace = user
	_, err = f.svc.Search(context.Background(), "/src/project", model.CustomQuery{Type: model.QueryTypeEpics})
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
}

func TestWorkspaceService_SearchBranchPipeline(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	q := model.CustomQuery{Type: model.QueryTypeVulnerabilities, PipelineID: model.PipelineIDBranch}

	items, err := f.svc.Search(context.Background(), "/src/project", q)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, f.fake.called("Search"), "no pipeline on the branch")

	f.fake.lastPipeline = &model.Pipeline{ID: 31}
	_, err = f.svc.Search(context.Background(), "/src/project", q)
	require.NoError(t, err)
	assert.Equal(t, 31, f.fake.searchReq.PipelineID)

	_, err = f.svc.Search(context.Background(), "/src/project", model.CustomQuery{
		Type: model.QueryTypeVulnerabilities, PipelineID: "12",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, f.fake.searchReq.PipelineID)
}

func TestWorkspaceService_SearchInvalidQuery(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})

	_, err := f.svc.Search(context.Background(), "/src/project", model.CustomQuery{Type: "pipelines"})
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
	assert.Zero(t, f.fake.called("GetProject"))
}

func TestWorkspaceService_ValidateCIConfig(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.lint = &model.CIValidation{Valid: true, Errors: []string{}, Warnings: []string{}}
	ctx := context.Background()

	v, err := f.svc.ValidateCIConfig(ctx, "/src/project", "test:\n  script: [\"go test ./...\"]\n")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 1, f.fake.called("LintCIConfig"))

	v, err = f.svc.ValidateCIConfig(ctx, "/src/project", "test:\n  script: [unclosed\n")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	require.Len(t, v.Errors, 1)
	assert.NotEmpty(t, v.Errors[0])
	assert.Equal(t, 1, f.fake.called("LintCIConfig"), "syntax errors are not sent for linting")
}

func TestWorkspaceService_Snippets(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.snippets = []model.Snippet{{ID: 1, Title: "deploy", Blobs: []model.SnippetBlob{{Name: "deploy.sh", Path: "deploy.sh"}}}}
	f.fake.snippetContent = "echo hi"
	ctx := context.Background()

	snippets, err := f.svc.Snippets(ctx, "/src/project")
	require.NoError(t, err)
	require.Len(t, snippets, 1)

	content, err := f.svc.SnippetContent(ctx, "/src/project", 1, "deploy.sh")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", content)
}

func TestWorkspaceService_CurrentMergeRequest(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	ctx := context.Background()

	_, _, err := f.svc.CurrentMergeRequest(ctx, "/src/project")
	assert.ErrorIs(t, err, driven.ErrNotFound)

	f.fake.openMRs = []model.Issuable{testMR()}
	p, mr, err := f.svc.CurrentMergeRequest(ctx, "/src/project")
	require.NoError(t, err)
	assert.Equal(t, testProjectID, p.ID)
	assert.Equal(t, testMRIID, mr.IID)
}

func TestWorkspaceService_SearchText(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.searchResult = []model.Issuable{testIssue()}

	q, items, err := f.svc.SearchText(context.Background(), "/src/project", "crash label:bug assignee:me", model.QueryTypeIssues)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, model.QueryScopeAssignedToMe, q.Scope)

	req := f.fake.searchReq
	require.NotNil(t, req)
	assert.Equal(t, []string{"bug"}, req.Query.Labels)
	assert.Equal(t, "crash", req.Query.Search)
	assert.Equal(t, model.QueryScopeAssignedToMe, req.Query.Scope)

	_, _, err = f.svc.SearchText(context.Background(), "/src/project", "weight:3", model.QueryTypeIssues)
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
}

func TestWorkspaceService_CreateSnippet(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})

	s, err := f.svc.CreateSnippet(context.Background(), "/src/project", model.NewSnippet{
		FileName: "main.go", Content: "package main\n", Visibility: model.SnippetVisibilityPublic,
	})
	require.NoError(t, err)
	assert.Equal(t, testProjectID, s.ProjectID)
	assert.NotEmpty(t, s.WebURL)

	require.Len(t, f.fake.newSnippets, 1)
	assert.Equal(t, "main.go", f.fake.newSnippets[0].Title, "title defaults to the file name")
	assert.Equal(t, model.SnippetVisibilityPublic, f.fake.newSnippets[0].Visibility)

	_, err = f.svc.CreateSnippet(context.Background(), "/src/project", model.NewSnippet{FileName: "empty.go"})
	assert.ErrorIs(t, err, model.ErrInvalidSnippet)
	assert.Equal(t, 1, f.fake.called("CreateSnippet"))
}

func TestWorkspaceService_ApplySnippetPatch(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.snippets = []model.Snippet{
		{ID: 1, Title: "notes", Blobs: []model.SnippetBlob{{Name: "notes.md", Path: "notes.md"}}},
		{ID: 2, Title: "fix", Blobs: []model.SnippetBlob{
			{Name: "README.md", Path: "README.md"},
			{Name: "fix.patch", Path: "fix.patch"},
		}},
	}
	f.fake.snippetContent = "diff --git a/hello.txt b/hello.txt\n"
	ctx := context.Background()

	patchSnippets, err := f.svc.PatchSnippets(ctx, "/src/project")
	require.NoError(t, err)
	require.Len(t, patchSnippets, 1)
	assert.Equal(t, 2, patchSnippets[0].ID)

	applied, err := f.svc.ApplySnippetPatch(ctx, "/src/project", 2)
	require.NoError(t, err)
	assert.Equal(t, "fix.patch", applied.Blob)
	assert.Equal(t, []string{"hello.txt"}, applied.Files)
	assert.Equal(t, "fix.patch", f.fake.snippetBlob)
	assert.Equal(t, []string{f.fake.snippetContent}, f.patches.patches)

	_, err = f.svc.ApplySnippetPatch(ctx, "/src/project", 1)
	assert.ErrorIs(t, err, driven.ErrNotFound, "snippet without a .patch file")
}

func TestWorkspaceService_ApplySnippetPatchWithoutPatchSnippets(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.snippets = []model.Snippet{{ID: 1, Blobs: []model.SnippetBlob{{Name: "notes.md", Path: "notes.md"}}}}

	_, err := f.svc.ApplySnippetPatch(context.Background(), "/src/project", 1)
	assert.ErrorIs(t, err, model.ErrNoPatchSnippets)
	assert.Zero(t, f.fake.called("SnippetContent"))
}

func TestWorkspaceService_ApplySnippetPatchConflict(t *testing.T) {
	f := newWorkspaceFixture(t, application.WorkspaceOptions{})
	f.fake.snippets = []model.Snippet{{ID: 3, Blobs: []model.SnippetBlob{{Name: "a.patch", Path: "a.patch"}}}}
	f.patches.err = model.ErrPatchDoesNotApply

	_, err := f.svc.ApplySnippetPatch(context.Background(), "/src/project", 3)
	assert.ErrorIs(t, err, model.ErrPatchDoesNotApply)
}
