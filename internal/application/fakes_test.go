package application_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// fakeGitLab is an in-memory driven.GitLabClient. Fields are set up by each
// test; calls are recorded by name for assertions.
type fakeGitLab struct {
	mu    sync.Mutex
	calls []string

	mergeRequests map[int]*model.Issuable
	issues        map[int]*model.Issuable
	versions      []model.MrVersion
	versionDetail map[int]*model.MrVersion
	versionsErr   error
	files         map[string]string // "ref:path" -> content

	discussionPages [][]model.Discussion
	pageErr         map[int]error
	withoutTotals   bool // Serve next-page links only, like large GitLab collections.
	labelEvents     []model.LabelEvent
	labelErr        error
	labelDelay      time.Duration

	notes      map[int]*model.Note
	getNoteErr error
	updateErr  error
	deleteErr  error
	resolveErr error
	replyErr   error
	createErr  error
	nextNoteID int

	// block, when set, is waited on by SetResolved and UpdateNote.
	block chan struct{}

	projects   map[string]*model.Project
	projectErr error
	users      map[string]int

	lastPipeline    *model.Pipeline
	lastPipelineErr error
	jobs            []model.Job
	jobsErr         error
	openMRs         []model.Issuable
	openMRsErr      error
	closing         []model.Issuable
	closingErr      error

	searchReq    *driven.SearchRequest
	searchResult []model.Issuable

	lint      *model.CIValidation
	lintCalls int

	snippets       []model.Snippet
	snippetContent string
	snippetBlob    string
	newSnippets    []model.NewSnippet
}

var _ driven.GitLabClient = (*fakeGitLab)(nil)

func (f *fakeGitLab) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeGitLab) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeGitLab) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGitLab) GetMergeRequest(_ context.Context, _, iid int) (*model.Issuable, error) {
	f.record("GetMergeRequest")
	if mr, ok := f.mergeRequests[iid]; ok {
		return mr, nil
	}
	return nil, driven.ErrNotFound
}

func (f *fakeGitLab) GetIssue(_ context.Context, _, iid int) (*model.Issuable, error) {
	f.record("GetIssue")
	if is, ok := f.issues[iid]; ok {
		return is, nil
	}
	return nil, driven.ErrNotFound
}

func (f *fakeGitLab) ListVersions(_ context.Context, _, _ int) ([]model.MrVersion, error) {
	f.record("ListVersions")
	return f.versions, f.versionsErr
}

func (f *fakeGitLab) GetVersion(_ context.Context, _, _, versionID int) (*model.MrVersion, error) {
	f.record("GetVersion")
	if v, ok := f.versionDetail[versionID]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, driven.ErrNotFound
}

func (f *fakeGitLab) GetRawFile(_ context.Context, _ int, path, ref string) (string, error) {
	f.record("GetRawFile")
	if c, ok := f.files[ref+":"+path]; ok {
		return c, nil
	}
	return "", driven.ErrNotFound
}

func (f *fakeGitLab) ListOpenMergeRequests(_ context.Context, _ int, _ string) ([]model.Issuable, error) {
	f.record("ListOpenMergeRequests")
	return f.openMRs, f.openMRsErr
}

func (f *fakeGitLab) ListClosingIssues(_ context.Context, _, _ int) ([]model.Issuable, error) {
	f.record("ListClosingIssues")
	return f.closing, f.closingErr
}

func (f *fakeGitLab) ListDiscussions(_ context.Context, _ model.Issuable, page, _ int) (driven.DiscussionPage, error) {
	f.record("ListDiscussions")
	if err := f.pageErr[page]; err != nil {
		return driven.DiscussionPage{}, err
	}
	out := driven.DiscussionPage{Discussions: []model.Discussion{}, TotalPages: len(f.discussionPages)}
	if page >= 1 && page <= len(f.discussionPages) {
		out.Discussions = f.discussionPages[page-1]
	}
	if page < len(f.discussionPages) {
		out.NextPage = page + 1
	}
	if f.withoutTotals {
		out.TotalPages = 0
	}
	return out, nil
}

func (f *fakeGitLab) ListLabelEvents(ctx context.Context, _ model.Issuable) ([]model.LabelEvent, error) {
	f.record("ListLabelEvents")
	if f.labelDelay > 0 {
		select {
		case <-time.After(f.labelDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.labelEvents, f.labelErr
}

func (f *fakeGitLab) GetNote(_ context.Context, _ model.Issuable, noteID int) (*model.Note, error) {
	f.record("GetNote")
	if f.getNoteErr != nil {
		return nil, f.getNoteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok {
		return nil, driven.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *fakeGitLab) CreateDiscussion(_ context.Context, _ model.Issuable, body string, pos *model.Position) (*model.Discussion, error) {
	f.record("CreateDiscussion")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	f.nextNoteID++
	id := 1000 + f.nextNoteID
	f.mu.Unlock()
	return &model.Discussion{
		ID: fmt.Sprintf("new-%d", id),
		Notes: []model.Note{{
			ID: id, Body: body, Author: "me", CreatedAt: time.Now(),
			Resolvable: pos != nil, Position: pos,
		}},
	}, nil
}

func (f *fakeGitLab) AddNote(_ context.Context, _ model.Issuable, body string) (*model.Note, error) {
	f.record("AddNote")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &model.Note{ID: 2000, Body: body, Author: "me", CreatedAt: time.Now()}, nil
}

func (f *fakeGitLab) Reply(_ context.Context, _ model.Issuable, _, body string) (*model.Note, error) {
	f.record("Reply")
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	f.mu.Lock()
	f.nextNoteID++
	id := 3000 + f.nextNoteID
	f.mu.Unlock()
	return &model.Note{ID: id, Body: body, Author: "me", CreatedAt: time.Now()}, nil
}

func (f *fakeGitLab) UpdateNote(ctx context.Context, _ model.Issuable, _ string, noteID int, body string) (*model.Note, error) {
	f.record("UpdateNote")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok {
		return nil, driven.ErrNotFound
	}
	n.Body = body
	cp := *n
	return &cp, nil
}

func (f *fakeGitLab) DeleteNote(_ context.Context, _ model.Issuable, _ string, noteID int) error {
	f.record("DeleteNote")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, noteID)
	return nil
}

func (f *fakeGitLab) SetResolved(ctx context.Context, _ model.Issuable, discussionID string, resolved bool) (*model.Discussion, error) {
	f.record("SetResolved")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &model.Discussion{ID: discussionID}, nil
}

func (f *fakeGitLab) GetProject(_ context.Context, fullPath string) (*model.Project, error) {
	f.record("GetProject")
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	if p, ok := f.projects[fullPath]; ok {
		return p, nil
	}
	return nil, driven.ErrNotFound
}

func (f *fakeGitLab) FindUserID(_ context.Context, username string) (int, bool, error) {
	f.record("FindUserID")
	id, ok := f.users[username]
	return id, ok, nil
}

func (f *fakeGitLab) LastPipeline(_ context.Context, _ int, _ string) (*model.Pipeline, error) {
	f.record("LastPipeline")
	return f.lastPipeline, f.lastPipelineErr
}

func (f *fakeGitLab) ListJobs(_ context.Context, _, _ int) ([]model.Job, error) {
	f.record("ListJobs")
	return f.jobs, f.jobsErr
}

func (f *fakeGitLab) CreatePipeline(_ context.Context, _ int, ref string) (*model.Pipeline, error) {
	f.record("CreatePipeline")
	return &model.Pipeline{ID: 500, Ref: ref, Status: "created"}, nil
}

func (f *fakeGitLab) RetryPipeline(_ context.Context, _, pipelineID int) (*model.Pipeline, error) {
	f.record("RetryPipeline")
	return &model.Pipeline{ID: pipelineID, Status: "running"}, nil
}

func (f *fakeGitLab) CancelPipeline(_ context.Context, _, pipelineID int) (*model.Pipeline, error) {
	f.record("CancelPipeline")
	return &model.Pipeline{ID: pipelineID, Status: "canceled"}, nil
}

func (f *fakeGitLab) Search(_ context.Context, req driven.SearchRequest) ([]model.Issuable, error) {
	f.record("Search")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchReq = &req
	return slices.Clone(f.searchResult), nil
}

func (f *fakeGitLab) LintCIConfig(_ context.Context, _ int, _ string) (*model.CIValidation, error) {
	f.record("LintCIConfig")
	return f.lint, nil
}

func (f *fakeGitLab) ListSnippets(_ context.Context, _ string) ([]model.Snippet, error) {
	f.record("ListSnippets")
	return f.snippets, nil
}

func (f *fakeGitLab) SnippetContent(_ context.Context, _, _ int, blobPath string) (string, error) {
	f.record("SnippetContent")
	f.mu.Lock()
	f.snippetBlob = blobPath
	f.mu.Unlock()
	return f.snippetContent, nil
}

func (f *fakeGitLab) CreateSnippet(_ context.Context, projectID int, n model.NewSnippet) (*model.Snippet, error) {
	f.record("CreateSnippet")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newSnippets = append(f.newSnippets, n)
	return &model.Snippet{
		ID: len(f.newSnippets), ProjectID: projectID, Title: n.Title,
		WebURL: fmt.Sprintf("https://gitlab.example.com/group/project/-/snippets/%d", len(f.newSnippets)),
		Blobs:  []model.SnippetBlob{{Name: n.FileName, Path: n.FileName}},
	}, nil
}

// fakePatchApplier records the patches it is asked to apply.
type fakePatchApplier struct {
	patches []string
	files   []string
	err     error
}

func (a *fakePatchApplier) ApplyPatch(_ context.Context, _, patch string) ([]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.patches = append(a.patches, patch)
	return a.files, nil
}

// fakeResolver returns a fixed workspace.
type fakeResolver struct {
	mu        sync.Mutex
	workspace model.Workspace
	byRemote  map[string]model.Workspace
	err       error
}

func (r *fakeResolver) Resolve(_ context.Context, _, remoteName string) (*model.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if ws, ok := r.byRemote[remoteName]; ok {
		return &ws, nil
	}
	ws := r.workspace
	return &ws, nil
}

func (r *fakeResolver) setBranch(branch string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspace.Branch = branch
	r.workspace.TrackingBranch = branch
}

// fakeTokenStore is an in-memory driven.TokenStore.
type fakeTokenStore struct {
	tokens map[string]string
	err    error
}

func (s *fakeTokenStore) Set(_ context.Context, instanceURL, token string) error {
	if s.err != nil {
		return s.err
	}
	if s.tokens == nil {
		s.tokens = map[string]string{}
	}
	s.tokens[instanceURL] = token
	return nil
}

func (s *fakeTokenStore) Get(_ context.Context, instanceURL string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.tokens[instanceURL], nil
}

func (s *fakeTokenStore) List(_ context.Context) ([]model.Token, error) {
	var out []model.Token
	for k, v := range s.tokens {
		out = append(out, model.Token{InstanceURL: k, Value: v})
	}
	return out, s.err
}

func (s *fakeTokenStore) Delete(_ context.Context, instanceURL string) error {
	delete(s.tokens, instanceURL)
	return nil
}
