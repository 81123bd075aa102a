package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// queryDoc is one custom query as written in a query file.
type queryDoc struct {
	Name             string   `yaml:"name"`
	NoItemText       string   `yaml:"noItemText"`
	Type             string   `yaml:"type"`
	Scope            string   `yaml:"scope"`
	State            string   `yaml:"state"`
	Labels           []string `yaml:"labels"`
	Milestone        string   `yaml:"milestone"`
	Author           string   `yaml:"author"`
	Assignee         string   `yaml:"assignee"`
	Search           string   `yaml:"search"`
	SearchIn         string   `yaml:"searchIn"`
	CreatedBefore    string   `yaml:"createdBefore"`
	CreatedAfter     string   `yaml:"createdAfter"`
	UpdatedBefore    string   `yaml:"updatedBefore"`
	UpdatedAfter     string   `yaml:"updatedAfter"`
	WIP              string   `yaml:"wip"`
	Confidential     bool     `yaml:"confidential"`
	ExcludeLabels    []string `yaml:"excludeLabels"`
	ExcludeMilestone string   `yaml:"excludeMilestone"`
	ExcludeAuthor    string   `yaml:"excludeAuthor"`
	ExcludeAssignee  string   `yaml:"excludeAssignee"`
	ExcludeSearch    string   `yaml:"excludeSearch"`
	ExcludeSearchIn  string   `yaml:"excludeSearchIn"`
	OrderBy          string   `yaml:"orderBy"`
	Sort             string   `yaml:"sort"`
	MaxResults       int      `yaml:"maxResults"`
	ReportTypes      []string `yaml:"reportTypes"`
	SeverityLevels   []string `yaml:"severityLevels"`
	ConfidenceLevels []string `yaml:"confidenceLevels"`
	PipelineID       string   `yaml:"pipelineId"`
}

func (d queryDoc) toCustomQuery() model.CustomQuery {
	return model.CustomQuery{
		Name:             d.Name,
		NoItemText:       d.NoItemText,
		Type:             model.QueryType(d.Type),
		Scope:            model.QueryScope(d.Scope),
		State:            model.QueryState(d.State),
		Labels:           d.Labels,
		Milestone:        d.Milestone,
		Author:           d.Author,
		Assignee:         d.Assignee,
		Search:           d.Search,
		SearchIn:         d.SearchIn,
		CreatedBefore:    d.CreatedBefore,
		CreatedAfter:     d.CreatedAfter,
		UpdatedBefore:    d.UpdatedBefore,
		UpdatedAfter:     d.UpdatedAfter,
		WIP:              d.WIP,
		Confidential:     d.Confidential,
		ExcludeLabels:    d.ExcludeLabels,
		ExcludeMilestone: d.ExcludeMilestone,
		ExcludeAuthor:    d.ExcludeAuthor,
		ExcludeAssignee:  d.ExcludeAssignee,
		ExcludeSearch:    d.ExcludeSearch,
		ExcludeSearchIn:  d.ExcludeSearchIn,
		OrderBy:          d.OrderBy,
		Sort:             d.Sort,
		MaxResults:       d.MaxResults,
		ReportTypes:      d.ReportTypes,
		SeverityLevels:   d.SeverityLevels,
		ConfidenceLevels: d.ConfidenceLevels,
		PipelineID:       d.PipelineID,
	}
}

// parseQueryFile reads a YAML list of custom queries and validates each one.
func parseQueryFile(data []byte) ([]model.CustomQuery, error) {
	var docs []queryDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse query file:\n%s", yaml.FormatError(err, false, true))
	}

	queries := make([]model.CustomQuery, 0, len(docs))
	for i, d := range docs {
		q, err := d.toCustomQuery().Normalize()
		if err != nil {
			return nil, fmt.Errorf("query %d (%s): %w", i+1, d.Name, err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func newSearchCmd(st *rootState) *cobra.Command {
	var (
		file string
		text string
		doc  queryDoc
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run custom issuable queries against the workspace project",
		Long: `Run a custom query built from flags, or every query in a YAML file.

Examples:
  mrpanel search --scope assigned_to_me
  mrpanel search --type issues --label bug --label backend
  mrpanel search --type vulnerabilities --pipeline branch --severity critical
  mrpanel search --file queries.yml
  mrpanel search --type issues --text "crash label:bug assignee:me"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if text != "" {
				q, items, err := st.app.Workspace.SearchText(cmd.Context(), st.path, text, model.QueryType(doc.Type))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderIssuables(q.Name, q.NoItemText, items))
				return nil
			}

			var queries []model.CustomQuery
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read query file: %w", err)
				}
				if queries, err = parseQueryFile(data); err != nil {
					return err
				}
			} else {
				if doc.Name == "" {
					doc.Name = "Search"
				}
				q, err := doc.toCustomQuery().Normalize()
				if err != nil {
					return err
				}
				queries = []model.CustomQuery{q}
			}

			for _, q := range queries {
				items, err := st.app.Workspace.Search(cmd.Context(), st.path, q)
				if err != nil {
					return fmt.Errorf("%s: %w", q.Name, err)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderIssuables(q.Name, q.NoItemText, items))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&file, "file", "", "YAML file with a list of queries")
	f.StringVar(&text, "text", "", "free-text search, e.g. \"label:bug author:me\"")
	f.StringVar(&doc.Name, "name", "", "title shown above the results")
	f.StringVar(&doc.Type, "type", "", "issues, merge_requests, epics, snippets or vulnerabilities")
	f.StringVar(&doc.Scope, "scope", "", "all, assigned_to_me, created_by_me or dismissed")
	f.StringVar(&doc.State, "state", "", "all, opened or closed")
	f.StringSliceVar(&doc.Labels, "label", nil, "label filter (repeatable)")
	f.StringVar(&doc.Milestone, "milestone", "", "milestone title")
	f.StringVar(&doc.Author, "author", "", "author username")
	f.StringVar(&doc.Assignee, "assignee", "", "assignee username, Any or None")
	f.StringVar(&doc.Search, "search", "", "text search")
	f.StringVar(&doc.SearchIn, "search-in", "", "all, title or description")
	f.StringVar(&doc.WIP, "wip", "", "yes or no")
	f.StringVar(&doc.OrderBy, "order-by", "", "sort field")
	f.StringVar(&doc.Sort, "sort", "", "asc or desc")
	f.IntVar(&doc.MaxResults, "max", 0, "maximum results, 1-100 (default 20)")
	f.StringSliceVar(&doc.ReportTypes, "report-type", nil, "vulnerability report type (repeatable)")
	f.StringSliceVar(&doc.SeverityLevels, "severity", nil, "vulnerability severity (repeatable)")
	f.StringSliceVar(&doc.ConfidenceLevels, "confidence", nil, "vulnerability confidence (repeatable)")
	f.StringVar(&doc.PipelineID, "pipeline", "", "pipeline id or \"branch\"")
	cmd.MarkFlagsMutuallyExclusive("file", "type")
	cmd.MarkFlagsMutuallyExclusive("file", "text")
	return cmd
}
