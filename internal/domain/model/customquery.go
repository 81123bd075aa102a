package model

import (
	"fmt"
	"slices"
	"strconv"
)

// QueryType is the resource a custom query lists.
type QueryType string

const (
	QueryTypeIssues          QueryType = "issues"
	QueryTypeMergeRequests   QueryType = "merge_requests"
	QueryTypeEpics           QueryType = "epics"
	QueryTypeSnippets        QueryType = "snippets"
	QueryTypeVulnerabilities QueryType = "vulnerabilities"
)

// Endpoint returns the REST collection name for the query type.
func (t QueryType) Endpoint() string {
	if t == QueryTypeVulnerabilities {
		return "vulnerability_findings"
	}
	return string(t)
}

// IssuableKind maps the query type to the kind of the items it returns.
func (t QueryType) IssuableKind() IssuableKind {
	switch t {
	case QueryTypeIssues:
		return IssuableKindIssue
	case QueryTypeEpics:
		return IssuableKindEpic
	case QueryTypeSnippets:
		return IssuableKindSnippet
	case QueryTypeVulnerabilities:
		return IssuableKindVulnerability
	default:
		return IssuableKindMergeRequest
	}
}

// QueryScope limits results relative to the current user.
type QueryScope string

const (
	QueryScopeAll          QueryScope = "all"
	QueryScopeAssignedToMe QueryScope = "assigned_to_me"
	QueryScopeCreatedByMe  QueryScope = "created_by_me"
	QueryScopeDismissed    QueryScope = "dismissed"
)

// QueryState filters on issuable state.
type QueryState string

const (
	QueryStateAll    QueryState = "all"
	QueryStateOpened QueryState = "opened"
	QueryStateClosed QueryState = "closed"
)

// Special assignee values passed through to the API verbatim.
const (
	AssigneeAny  = "Any"
	AssigneeNone = "None"
)

// PipelineIDBranch selects the last pipeline of the workspace's tracking branch.
const PipelineIDBranch = "branch"

// DefaultNoItemText is shown when a query returns nothing and NoItemText is unset.
const DefaultNoItemText = "No items found."

const (
	defaultMaxResults = 20
	maxMaxResults     = 100
)

var (
	validSearchIn = []string{"", "all", "title", "description"}
	validWIP      = []string{"", "yes", "no"}
	validSort     = []string{"", "asc", "desc"}
	validOrderBy  = []string{
		"", "created_at", "updated_at", "priority", "due_date", "relative_position",
		"label_priority", "milestone_due", "popularity", "weight",
	}
	validReportTypes = []string{"sast", "dast", "dependency_scanning", "container_scanning"}
	validSeverities  = []string{"undefined", "info", "unknown", "low", "medium", "high", "critical"}
	validConfidences = []string{
		"undefined", "ignore", "unknown", "experimental", "low", "medium", "high", "confirmed",
	}
)

// CustomQuery is a user-defined issuable search. Zero values mean "not set";
// Normalize fills in defaults and rejects unknown enum values.
type CustomQuery struct {
	Name       string
	NoItemText string

	Type  QueryType
	Scope QueryScope
	State QueryState

	Labels        []string
	Milestone     string
	Author        string
	Assignee      string
	Search        string
	SearchIn      string
	CreatedBefore string
	CreatedAfter  string
	UpdatedBefore string
	UpdatedAfter  string
	WIP           string
	Confidential  bool

	ExcludeLabels    []string
	ExcludeMilestone string
	ExcludeAuthor    string
	ExcludeAssignee  string
	ExcludeSearch    string
	ExcludeSearchIn  string

	OrderBy    string
	Sort       string
	MaxResults int

	ReportTypes      []string
	SeverityLevels   []string
	ConfidenceLevels []string

	// PipelineID is a numeric pipeline id or PipelineIDBranch.
	PipelineID string
}

// Normalize returns a validated copy of q with defaults applied.
func (q CustomQuery) Normalize() (CustomQuery, error) {
	if q.Type == "" {
		q.Type = QueryTypeMergeRequests
	}
	if q.Scope == "" {
		q.Scope = QueryScopeAll
	}
	if q.State == "" {
		q.State = QueryStateOpened
	}
	if q.MaxResults == 0 {
		q.MaxResults = defaultMaxResults
	}
	if q.NoItemText == "" {
		q.NoItemText = DefaultNoItemText
	}

	switch q.Type {
	case QueryTypeIssues, QueryTypeMergeRequests, QueryTypeEpics, QueryTypeSnippets, QueryTypeVulnerabilities:
	default:
		return q, fmt.Errorf("%w: unknown type %q", ErrInvalidQuery, q.Type)
	}
	switch q.Scope {
	case QueryScopeAll, QueryScopeAssignedToMe, QueryScopeCreatedByMe, QueryScopeDismissed:
	default:
		return q, fmt.Errorf("%w: unknown scope %q", ErrInvalidQuery, q.Scope)
	}
	switch q.State {
	case QueryStateAll, QueryStateOpened, QueryStateClosed:
	default:
		return q, fmt.Errorf("%w: unknown state %q", ErrInvalidQuery, q.State)
	}

	switch q.Type {
	case QueryTypeVulnerabilities:
		if q.Scope != QueryScopeDismissed {
			q.Scope = QueryScopeAll
		}
	case QueryTypeIssues, QueryTypeMergeRequests:
		if q.Scope != QueryScopeAssignedToMe && q.Scope != QueryScopeCreatedByMe {
			q.Scope = QueryScopeAll
		}
	}

	if err := checkOneOf("searchIn", q.SearchIn, validSearchIn); err != nil {
		return q, err
	}
	if err := checkOneOf("excludeSearchIn", q.ExcludeSearchIn, validSearchIn); err != nil {
		return q, err
	}
	if err := checkOneOf("wip", q.WIP, validWIP); err != nil {
		return q, err
	}
	if err := checkOneOf("orderBy", q.OrderBy, validOrderBy); err != nil {
		return q, err
	}
	if err := checkOneOf("sort", q.Sort, validSort); err != nil {
		return q, err
	}
	if err := checkAll("reportTypes", q.ReportTypes, validReportTypes); err != nil {
		return q, err
	}
	if err := checkAll("severityLevels", q.SeverityLevels, validSeverities); err != nil {
		return q, err
	}
	if err := checkAll("confidenceLevels", q.ConfidenceLevels, validConfidences); err != nil {
		return q, err
	}

	if q.MaxResults < 1 || q.MaxResults > maxMaxResults {
		return q, fmt.Errorf("%w: maxResults must be between 1 and %d, got %d", ErrInvalidQuery, maxMaxResults, q.MaxResults)
	}

	if q.PipelineID != "" && q.PipelineID != PipelineIDBranch {
		id, err := strconv.Atoi(q.PipelineID)
		if err != nil || id <= 0 {
			return q, fmt.Errorf("%w: pipelineId must be a positive number or %q", ErrInvalidQuery, PipelineIDBranch)
		}
	}

	return q, nil
}

// ExpandSearchIn maps the "all" search scope to the fields the API accepts.
func ExpandSearchIn(v string) string {
	if v == "all" {
		return "title,description"
	}
	return v
}

func checkOneOf(field, v string, allowed []string) error {
	if !slices.Contains(allowed, v) {
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidQuery, field, v)
	}
	return nil
}

func checkAll(field string, vs, allowed []string) error {
	for _, v := range vs {
		if err := checkOneOf(field, v, allowed); err != nil {
			return err
		}
	}
	return nil
}
