package driven

import (
	"context"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// DiscussionPage is one page of discussions plus the paging the server
// reported. TotalPages is 0 when the server omits totals, which GitLab does
// for large collections; NextPage is 0 on the last page.
type DiscussionPage struct {
	Discussions []model.Discussion
	TotalPages  int
	NextPage    int
}

// SearchRequest is a normalized custom query with its user and pipeline
// references already resolved to ids.
type SearchRequest struct {
	Query      model.CustomQuery
	ProjectID  int
	GroupID    int  // Namespace id; only used for epics.
	AuthorID   *int // Set for non-issue queries with an author; -1 when unknown.
	AssigneeID *int // Set for non-issue queries with a named assignee; -1 when unknown.
	PipelineID int  // Zero when the query has no pipeline filter.
}

// MergeRequestReader reads issuables, merge request versions and repository files.
type MergeRequestReader interface {
	GetMergeRequest(ctx context.Context, projectID, iid int) (*model.Issuable, error)
	GetIssue(ctx context.Context, projectID, iid int) (*model.Issuable, error)

	// ListVersions returns the diff versions of a merge request, newest first.
	// The returned versions carry no diffs.
	ListVersions(ctx context.Context, projectID, iid int) ([]model.MrVersion, error)
	// GetVersion returns a single version including its changed files.
	GetVersion(ctx context.Context, projectID, iid, versionID int) (*model.MrVersion, error)

	// GetRawFile returns the content of path at ref.
	GetRawFile(ctx context.Context, projectID int, path, ref string) (string, error)

	// ListOpenMergeRequests returns open merge requests whose source branch is sourceBranch.
	ListOpenMergeRequests(ctx context.Context, projectID int, sourceBranch string) ([]model.Issuable, error)
	// ListClosingIssues returns the issues a merge request closes when merged.
	ListClosingIssues(ctx context.Context, projectID, iid int) ([]model.Issuable, error)
}

// DiscussionReader reads discussions, notes and label events of an issuable.
type DiscussionReader interface {
	// ListDiscussions returns one page (1-based) of discussions in ascending order.
	ListDiscussions(ctx context.Context, issuable model.Issuable, page, perPage int) (DiscussionPage, error)
	ListLabelEvents(ctx context.Context, issuable model.Issuable) ([]model.LabelEvent, error)
	GetNote(ctx context.Context, issuable model.Issuable, noteID int) (*model.Note, error)
}

// DiscussionWriter mutates discussions and notes.
type DiscussionWriter interface {
	// CreateDiscussion starts a discussion. pos is nil for an overview discussion.
	CreateDiscussion(ctx context.Context, issuable model.Issuable, body string, pos *model.Position) (*model.Discussion, error)
	// AddNote posts a general note on the issuable.
	AddNote(ctx context.Context, issuable model.Issuable, body string) (*model.Note, error)
	Reply(ctx context.Context, issuable model.Issuable, discussionID, body string) (*model.Note, error)
	UpdateNote(ctx context.Context, issuable model.Issuable, discussionID string, noteID int, body string) (*model.Note, error)
	DeleteNote(ctx context.Context, issuable model.Issuable, discussionID string, noteID int) error
	SetResolved(ctx context.Context, issuable model.Issuable, discussionID string, resolved bool) (*model.Discussion, error)
}

// ProjectReader reads projects and users.
type ProjectReader interface {
	GetProject(ctx context.Context, fullPath string) (*model.Project, error)
	// FindUserID looks a user up by username; ok is false when no user matches.
	FindUserID(ctx context.Context, username string) (id int, ok bool, err error)
}

// PipelineClient reads and drives CI pipelines.
type PipelineClient interface {
	// LastPipeline returns the newest pipeline for ref, or nil when there is none.
	LastPipeline(ctx context.Context, projectID int, ref string) (*model.Pipeline, error)
	ListJobs(ctx context.Context, projectID, pipelineID int) ([]model.Job, error)
	CreatePipeline(ctx context.Context, projectID int, ref string) (*model.Pipeline, error)
	RetryPipeline(ctx context.Context, projectID, pipelineID int) (*model.Pipeline, error)
	CancelPipeline(ctx context.Context, projectID, pipelineID int) (*model.Pipeline, error)
}

// IssuableSearcher runs custom queries.
type IssuableSearcher interface {
	Search(ctx context.Context, req SearchRequest) ([]model.Issuable, error)
}

// CILinter validates CI configuration against a project.
type CILinter interface {
	LintCIConfig(ctx context.Context, projectID int, content string) (*model.CIValidation, error)
}

// SnippetReader lists project snippets and reads their files.
type SnippetReader interface {
	ListSnippets(ctx context.Context, projectFullPath string) ([]model.Snippet, error)
	SnippetContent(ctx context.Context, projectID, snippetID int, blobPath string) (string, error)
}

// SnippetWriter creates project snippets.
type SnippetWriter interface {
	CreateSnippet(ctx context.Context, projectID int, snippet model.NewSnippet) (*model.Snippet, error)
}

// GitLabClient defines the driven port for everything the panel needs from a
// GitLab instance.
type GitLabClient interface {
	MergeRequestReader
	DiscussionReader
	DiscussionWriter
	ProjectReader
	PipelineClient
	IssuableSearcher
	CILinter
	SnippetReader
	SnippetWriter
}
