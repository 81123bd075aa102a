package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// searchParams is the query string of a custom query. Field tags follow the
// GitLab list endpoints; exclusions use the not[...] syntax.
type searchParams struct {
	Scope                 string   `url:"scope,omitempty"`
	State                 string   `url:"state,omitempty"`
	IncludeAncestorGroups bool     `url:"include_ancestor_groups,omitempty"`
	Labels                []string `url:"labels,comma,omitempty"`
	Milestone             string   `url:"milestone,omitempty"`
	AuthorUsername        string   `url:"author_username,omitempty"`
	AuthorID              string   `url:"author_id,omitempty"`
	AssigneeUsername      string   `url:"assignee_username,omitempty"`
	AssigneeID            string   `url:"assignee_id,omitempty"`
	Search                string   `url:"search,omitempty"`
	In                    string   `url:"in,omitempty"`
	CreatedBefore         string   `url:"created_before,omitempty"`
	CreatedAfter          string   `url:"created_after,omitempty"`
	UpdatedBefore         string   `url:"updated_before,omitempty"`
	UpdatedAfter          string   `url:"updated_after,omitempty"`
	WIP                   string   `url:"wip,omitempty"`
	Confidential          bool     `url:"confidential,omitempty"`
	NotLabels             []string `url:"not[labels],comma,omitempty"`
	NotMilestone          string   `url:"not[milestone],omitempty"`
	NotAuthorUsername     string   `url:"not[author_username],omitempty"`
	NotAssigneeUsername   string   `url:"not[assignee_username],omitempty"`
	NotSearch             string   `url:"not[search],omitempty"`
	NotIn                 string   `url:"not[in],omitempty"`
	OrderBy               string   `url:"order_by,omitempty"`
	Sort                  string   `url:"sort,omitempty"`
	PerPage               int      `url:"per_page,omitempty"`
	ReportType            []string `url:"report_type,comma,omitempty"`
	Severity              []string `url:"severity,comma,omitempty"`
	Confidence            []string `url:"confidence,comma,omitempty"`
	PipelineID            int      `url:"pipeline_id,omitempty"`
}

// searchItem decodes the union of fields the list endpoints return.
type searchItem struct {
	ID           int        `json:"id"`
	IID          int        `json:"iid"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	Name         string     `json:"name"` // Vulnerability findings have no title.
	Description  string     `json:"description"`
	WebURL       string     `json:"web_url"`
	State        string     `json:"state"`
	SHA          string     `json:"sha"`
	SourceBranch string     `json:"source_branch"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	Author       *struct {
		Username string `json:"username"`
	} `json:"author"`
	References *struct {
		Full string `json:"full"`
	} `json:"references"`
}

// Search runs a normalized custom query against the project or, for epics,
// its group.
func (c *Client) Search(ctx context.Context, req driven.SearchRequest) ([]model.Issuable, error) {
	path, params := buildSearch(req)

	var items []searchItem
	if err := c.doRaw(ctx, fmt.Sprintf("searching %s", req.Query.Type), http.MethodGet, path, params, &items); err != nil {
		return nil, err
	}

	kind := req.Query.Type.IssuableKind()
	out := make([]model.Issuable, 0, len(items))
	for _, it := range items {
		out = append(out, it.toIssuable(kind))
	}
	return out, nil
}

// buildSearch maps a search request to an API path and query parameters.
func buildSearch(req driven.SearchRequest) (string, *searchParams) {
	q := req.Query
	p := &searchParams{
		State:         string(q.State),
		Labels:        q.Labels,
		Milestone:     q.Milestone,
		Search:        q.Search,
		In:            model.ExpandSearchIn(q.SearchIn),
		CreatedBefore: q.CreatedBefore,
		CreatedAfter:  q.CreatedAfter,
		UpdatedBefore: q.UpdatedBefore,
		UpdatedAfter:  q.UpdatedAfter,
		OrderBy:       q.OrderBy,
		Sort:          q.Sort,
		PerPage:       q.MaxResults,
		ReportType:    q.ReportTypes,
		Severity:      q.SeverityLevels,
		Confidence:    q.ConfidenceLevels,
		PipelineID:    req.PipelineID,
	}

	var path string
	if q.Type == model.QueryTypeEpics {
		path = fmt.Sprintf("groups/%d/epics", req.GroupID)
		p.IncludeAncestorGroups = true
	} else {
		path = fmt.Sprintf("projects/%d/%s", req.ProjectID, q.Type.Endpoint())
		p.Scope = string(q.Scope)
	}

	isIssues := q.Type == model.QueryTypeIssues

	if isIssues {
		p.AuthorUsername = q.Author
	} else if req.AuthorID != nil {
		p.AuthorID = strconv.Itoa(*req.AuthorID)
	}

	switch {
	case q.Assignee == model.AssigneeAny || q.Assignee == model.AssigneeNone:
		p.AssigneeID = q.Assignee
	case q.Assignee != "" && isIssues:
		p.AssigneeUsername = q.Assignee
	case req.AssigneeID != nil:
		p.AssigneeID = strconv.Itoa(*req.AssigneeID)
	}

	if q.Type == model.QueryTypeMergeRequests {
		p.WIP = q.WIP
	}

	if isIssues {
		p.Confidential = q.Confidential
		p.NotLabels = q.ExcludeLabels
		p.NotMilestone = q.ExcludeMilestone
		p.NotAuthorUsername = q.ExcludeAuthor
		p.NotAssigneeUsername = q.ExcludeAssignee
		p.NotSearch = q.ExcludeSearch
		p.NotIn = model.ExpandSearchIn(q.ExcludeSearchIn)
	}

	return path, p
}

func (it searchItem) toIssuable(kind model.IssuableKind) model.Issuable {
	out := model.Issuable{
		ID:           it.ID,
		IID:          it.IID,
		ProjectID:    it.ProjectID,
		Title:        it.Title,
		Description:  it.Description,
		WebURL:       it.WebURL,
		State:        it.State,
		SHA:          it.SHA,
		SourceBranch: it.SourceBranch,
		Kind:         kind,
		CreatedAt:    timeValue(it.CreatedAt),
		UpdatedAt:    timeValue(it.UpdatedAt),
	}
	if out.Title == "" {
		out.Title = it.Name
	}
	if it.Author != nil {
		out.Author = it.Author.Username
	}
	if it.References != nil {
		out.References = it.References.Full
	}
	return out
}
