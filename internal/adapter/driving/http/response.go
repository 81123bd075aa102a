package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	HasToken bool   `json:"has_token"`
	Sessions int    `json:"sessions"`
}

// TokenRequest is the JSON body for storing a personal access token.
type TokenRequest struct {
	Token string `json:"token"`
}

// OpenSessionRequest is the JSON body for opening a review session.
type OpenSessionRequest struct {
	ProjectID int    `json:"project_id"`
	IID       int    `json:"iid"`
	Kind      string `json:"kind"` // "merge_request" (default) or "issue".
}

// BodyRequest carries a comment body.
type BodyRequest struct {
	Body string `json:"body"`
}

// CreateThreadRequest is the JSON body for commenting on a diff line.
type CreateThreadRequest struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side"` // "head" (default) or "base".
	Body string `json:"body"`
}

// PipelineActionRequest is the JSON body for the pipeline endpoint.
type PipelineActionRequest struct {
	Action string `json:"action"`
}

// LintRequest is the JSON body for the CI lint endpoint.
type LintRequest struct {
	Content string `json:"content"`
}

// SearchRequest is the JSON form of a custom query.
type SearchRequest struct {
	Name             string   `json:"name"`
	NoItemText       string   `json:"no_item_text"`
	Type             string   `json:"type"`
	Scope            string   `json:"scope"`
	State            string   `json:"state"`
	Labels           []string `json:"labels"`
	Milestone        string   `json:"milestone"`
	Author           string   `json:"author"`
	Assignee         string   `json:"assignee"`
	Search           string   `json:"search"`
	SearchIn         string   `json:"search_in"`
	CreatedBefore    string   `json:"created_before"`
	CreatedAfter     string   `json:"created_after"`
	UpdatedBefore    string   `json:"updated_before"`
	UpdatedAfter     string   `json:"updated_after"`
	WIP              string   `json:"wip"`
	Confidential     bool     `json:"confidential"`
	ExcludeLabels    []string `json:"exclude_labels"`
	ExcludeMilestone string   `json:"exclude_milestone"`
	ExcludeAuthor    string   `json:"exclude_author"`
	ExcludeAssignee  string   `json:"exclude_assignee"`
	ExcludeSearch    string   `json:"exclude_search"`
	ExcludeSearchIn  string   `json:"exclude_search_in"`
	OrderBy          string   `json:"order_by"`
	Sort             string   `json:"sort"`
	MaxResults       int      `json:"max_results"`
	ReportTypes      []string `json:"report_types"`
	SeverityLevels   []string `json:"severity_levels"`
	ConfidenceLevels []string `json:"confidence_levels"`
	PipelineID       string   `json:"pipeline_id"`
}

func (r SearchRequest) toCustomQuery() model.CustomQuery {
	return model.CustomQuery{
		Name:             r.Name,
		NoItemText:       r.NoItemText,
		Type:             model.QueryType(r.Type),
		Scope:            model.QueryScope(r.Scope),
		State:            model.QueryState(r.State),
		Labels:           r.Labels,
		Milestone:        r.Milestone,
		Author:           r.Author,
		Assignee:         r.Assignee,
		Search:           r.Search,
		SearchIn:         r.SearchIn,
		CreatedBefore:    r.CreatedBefore,
		CreatedAfter:     r.CreatedAfter,
		UpdatedBefore:    r.UpdatedBefore,
		UpdatedAfter:     r.UpdatedAfter,
		WIP:              r.WIP,
		Confidential:     r.Confidential,
		ExcludeLabels:    r.ExcludeLabels,
		ExcludeMilestone: r.ExcludeMilestone,
		ExcludeAuthor:    r.ExcludeAuthor,
		ExcludeAssignee:  r.ExcludeAssignee,
		ExcludeSearch:    r.ExcludeSearch,
		ExcludeSearchIn:  r.ExcludeSearchIn,
		OrderBy:          r.OrderBy,
		Sort:             r.Sort,
		MaxResults:       r.MaxResults,
		ReportTypes:      r.ReportTypes,
		SeverityLevels:   r.SeverityLevels,
		ConfidenceLevels: r.ConfidenceLevels,
		PipelineID:       r.PipelineID,
	}
}

// SearchResponse is the result of a custom query.
type SearchResponse struct {
	Name       string             `json:"name"`
	NoItemText string             `json:"no_item_text"`
	Items      []IssuableResponse `json:"items"`
}

// IssuableResponse is the JSON representation of an issuable.
type IssuableResponse struct {
	ID           int    `json:"id"`
	IID          int    `json:"iid"`
	ProjectID    int    `json:"project_id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	State        string `json:"state"`
	Author       string `json:"author"`
	WebURL       string `json:"web_url"`
	SourceBranch string `json:"source_branch,omitempty"`
	References   string `json:"references,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// VersionResponse is the JSON representation of a merge request version.
type VersionResponse struct {
	ID             int    `json:"id"`
	BaseCommitSHA  string `json:"base_commit_sha"`
	HeadCommitSHA  string `json:"head_commit_sha"`
	StartCommitSHA string `json:"start_commit_sha"`
}

// ChangedFileResponse is one entry of a session's file tree.
type ChangedFileResponse struct {
	Path        string `json:"path"`
	OldPath     string `json:"old_path"`
	Description string `json:"description"`
	ChangeType  string `json:"change_type"`
	Unsupported bool   `json:"unsupported"`
	DiffTitle   string `json:"diff_title"`
}

// SessionResponse describes an open review session.
type SessionResponse struct {
	ID       string                `json:"id"`
	Issuable IssuableResponse      `json:"issuable"`
	Version  *VersionResponse      `json:"version"`
	Files    []ChangedFileResponse `json:"files"`
	// VersionError is set when a merge request opened without a readable
	// version. Discussions still work.
	VersionError string `json:"version_error,omitempty"`
}

// ContentResponse is one side of a changed file.
type ContentResponse struct {
	Path      string `json:"path"`
	Side      string `json:"side"`
	VersionID int    `json:"version_id,omitempty"`
	Content   string `json:"content"`
}

// RefreshResponse reports the outcome of a version refresh.
type RefreshResponse struct {
	Changed   bool `json:"changed"`
	VersionID int  `json:"version_id"`
}

// NoteResponse is the JSON representation of a note with rendered HTML.
type NoteResponse struct {
	ID         int    `json:"id"`
	Author     string `json:"author"`
	Body       string `json:"body"`
	BodyHTML   string `json:"body_html"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	System     bool   `json:"system"`
	Resolvable bool   `json:"resolvable"`
	Resolved   bool   `json:"resolved"`
	State      string `json:"state,omitempty"`
}

// ThreadResponse is a comment thread anchored at a diff line.
type ThreadResponse struct {
	DiscussionID string         `json:"discussion_id"`
	Path         string         `json:"path"`
	Line         int            `json:"line"`
	Resolvable   bool           `json:"resolvable"`
	Resolved     bool           `json:"resolved"`
	Comments     []NoteResponse `json:"comments"`
}

// DiscussionResponse is a discussion as a list of notes.
type DiscussionResponse struct {
	ID             string         `json:"id"`
	IndividualNote bool           `json:"individual_note"`
	Resolved       bool           `json:"resolved"`
	Notes          []NoteResponse `json:"notes"`
}

// LabelEventResponse is a label added or removed.
type LabelEventResponse struct {
	Action    string `json:"action"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	User      string `json:"user"`
	CreatedAt string `json:"created_at"`
}

// TimelineEntryResponse is one timeline item; exactly one payload is set.
type TimelineEntryResponse struct {
	Kind       string              `json:"kind"`
	Discussion *DiscussionResponse `json:"discussion,omitempty"`
	LabelEvent *LabelEventResponse `json:"label_event,omitempty"`
}

// DiscussionsResponse is the reconciled discussion view of a session.
type DiscussionsResponse struct {
	Timeline []TimelineEntryResponse `json:"timeline"`
	Threads  []ThreadResponse        `json:"threads"`
	Overview []DiscussionResponse    `json:"overview"`
}

// PipelineResponse is the JSON representation of a pipeline.
type PipelineResponse struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Ref    string `json:"ref"`
	SHA    string `json:"sha"`
	WebURL string `json:"web_url"`
}

// JobResponse is the JSON representation of a pipeline job.
type JobResponse struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Stage  string `json:"stage"`
	Status string `json:"status"`
	WebURL string `json:"web_url"`
}

// BranchStatusResponse reports each status segment with its own error.
type BranchStatusResponse struct {
	Branch            string             `json:"branch"`
	Pipeline          *PipelineResponse  `json:"pipeline"`
	Jobs              []JobResponse      `json:"jobs"`
	PipelineError     string             `json:"pipeline_error,omitempty"`
	MergeRequest      *IssuableResponse  `json:"merge_request"`
	MergeRequestError string             `json:"merge_request_error,omitempty"`
	ClosingIssues     []IssuableResponse `json:"closing_issues"`
	ClosingIssuesErr  string             `json:"closing_issues_error,omitempty"`
}

// CIValidationResponse is the result of a CI lint.
type CIValidationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// SnippetResponse is a snippet with its files.
type SnippetResponse struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	WebURL      string   `json:"web_url"`
	Files       []string `json:"files"`
}

// CreateSnippetRequest creates a single-file snippet. FromLine and ToLine
// select a 1-based inclusive range of Content when set.
type CreateSnippetRequest struct {
	Title      string `json:"title"`
	FileName   string `json:"file_name"`
	Content    string `json:"content"`
	Visibility string `json:"visibility"`
	FromLine   int    `json:"from_line"`
	ToLine     int    `json:"to_line"`
}

// AppliedPatchResponse lists the files a snippet patch changed.
type AppliedPatchResponse struct {
	SnippetID int      `json:"snippet_id"`
	File      string   `json:"file"`
	Changed   []string `json:"changed"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toIssuableResponse(i model.Issuable) IssuableResponse {
	return IssuableResponse{
		ID:           i.ID,
		IID:          i.IID,
		ProjectID:    i.ProjectID,
		Kind:         string(i.Kind),
		Title:        i.Title,
		State:        i.State,
		Author:       i.Author,
		WebURL:       i.WebURL,
		SourceBranch: i.SourceBranch,
		References:   i.References,
		UpdatedAt:    formatTime(i.UpdatedAt),
	}
}

func toIssuableResponses(items []model.Issuable) []IssuableResponse {
	out := make([]IssuableResponse, 0, len(items))
	for _, i := range items {
		out = append(out, toIssuableResponse(i))
	}
	return out
}

func toSessionResponse(s *application.ReviewSession) SessionResponse {
	files, err := s.ChangedFiles()
	resp := SessionResponse{
		ID:       s.ID(),
		Issuable: toIssuableResponse(s.Issuable()),
		Files:    toChangedFileResponses(files),
	}
	if err != nil {
		resp.VersionError = err.Error()
	}
	if v := s.Version(); v != nil {
		resp.Version = &VersionResponse{
			ID:             v.ID,
			BaseCommitSHA:  v.BaseCommitSHA,
			HeadCommitSHA:  v.HeadCommitSHA,
			StartCommitSHA: v.StartCommitSHA,
		}
	}
	return resp
}

func toChangedFileResponses(items []application.ChangedFileItem) []ChangedFileResponse {
	out := make([]ChangedFileResponse, 0, len(items))
	for _, f := range items {
		out = append(out, ChangedFileResponse{
			Path:        f.Path,
			OldPath:     f.OldPath,
			Description: f.Description,
			ChangeType:  string(f.ChangeType),
			Unsupported: f.Unsupported,
			DiffTitle:   f.DiffTitle,
		})
	}
	return out
}

func toNoteResponse(n model.Note, md *Markdown) NoteResponse {
	return NoteResponse{
		ID:         n.ID,
		Author:     n.Author,
		Body:       n.Body,
		BodyHTML:   md.Render(n.Body),
		CreatedAt:  formatTime(n.CreatedAt),
		UpdatedAt:  formatTime(n.UpdatedAt),
		System:     n.System,
		Resolvable: n.Resolvable,
		Resolved:   n.Resolved,
	}
}

func toThreadResponse(v application.ThreadView, md *Markdown) ThreadResponse {
	comments := make([]NoteResponse, 0, len(v.Comments))
	for _, c := range v.Comments {
		n := toNoteResponse(c.Note, md)
		n.State = string(c.State)
		comments = append(comments, n)
	}
	return ThreadResponse{
		DiscussionID: v.DiscussionID,
		Path:         v.Path,
		Line:         v.Line,
		Resolvable:   v.Resolvable,
		Resolved:     v.Resolved,
		Comments:     comments,
	}
}

func toDiscussionResponse(d model.Discussion, md *Markdown) DiscussionResponse {
	notes := make([]NoteResponse, 0, len(d.Notes))
	for _, n := range d.Notes {
		notes = append(notes, toNoteResponse(n, md))
	}
	return DiscussionResponse{
		ID:             d.ID,
		IndividualNote: d.IndividualNote,
		Resolved:       d.Resolved(),
		Notes:          notes,
	}
}

func toTimelineResponse(entries []model.TimelineEntry, md *Markdown) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		r := TimelineEntryResponse{Kind: string(e.Kind)}
		switch e.Kind {
		case model.EntryDiscussion:
			d := toDiscussionResponse(*e.Discussion, md)
			r.Discussion = &d
		case model.EntryLabelEvent:
			r.LabelEvent = &LabelEventResponse{
				Action:    e.LabelEvent.Action,
				Label:     e.LabelEvent.LabelName,
				Color:     e.LabelEvent.LabelColor,
				User:      e.LabelEvent.User,
				CreatedAt: formatTime(e.LabelEvent.CreatedAt),
			}
		}
		out = append(out, r)
	}
	return out
}

func toDiscussionsResponse(s *application.ReviewSession) DiscussionsResponse {
	md := markdownFor(s.Issuable().WebURL)
	threads := s.Threads()
	resp := DiscussionsResponse{
		Timeline: toTimelineResponse(s.Timeline(), md),
		Threads:  make([]ThreadResponse, 0, len(threads)),
		Overview: []DiscussionResponse{},
	}
	for _, t := range threads {
		resp.Threads = append(resp.Threads, toThreadResponse(t.View(), md))
	}
	for _, d := range s.Overview() {
		resp.Overview = append(resp.Overview, toDiscussionResponse(d, md))
	}
	return resp
}

func toPipelineResponse(p *model.Pipeline) *PipelineResponse {
	if p == nil {
		return nil
	}
	return &PipelineResponse{ID: p.ID, Status: p.Status, Ref: p.Ref, SHA: p.SHA, WebURL: p.WebURL}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func toBranchStatusResponse(s *model.BranchStatus) BranchStatusResponse {
	resp := BranchStatusResponse{
		Branch:            s.Branch,
		Pipeline:          toPipelineResponse(s.Pipeline),
		Jobs:              make([]JobResponse, 0, len(s.Jobs)),
		PipelineError:     errString(s.PipelineErr),
		MergeRequestError: errString(s.MergeRequestErr),
		ClosingIssues:     toIssuableResponses(s.ClosingIssues),
		ClosingIssuesErr:  errString(s.ClosingIssuesErr),
	}
	for _, j := range s.Jobs {
		resp.Jobs = append(resp.Jobs, JobResponse{ID: j.ID, Name: j.Name, Stage: j.Stage, Status: j.Status, WebURL: j.WebURL})
	}
	if s.MergeRequest != nil {
		mr := toIssuableResponse(*s.MergeRequest)
		resp.MergeRequest = &mr
	}
	return resp
}

func toSnippetResponse(s model.Snippet) SnippetResponse {
	files := make([]string, 0, len(s.Blobs))
	for _, b := range s.Blobs {
		files = append(files, b.Path)
	}
	return SnippetResponse{ID: s.ID, Title: s.Title, Description: s.Description, WebURL: s.WebURL, Files: files}
}

func toSnippetResponses(snippets []model.Snippet) []SnippetResponse {
	out := make([]SnippetResponse, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, toSnippetResponse(s))
	}
	return out
}
