package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchText(t *testing.T) {
	tests := []struct {
		name string
		text string
		typ  QueryType
		want func(q *CustomQuery)
	}{
		{
			name: "plain text",
			text: "crash on save",
			typ:  QueryTypeIssues,
			want: func(q *CustomQuery) { q.Search = "crash on save" },
		},
		{
			name: "labels accumulate",
			text: "label:bug labels:backend, needs review label:p1",
			typ:  QueryTypeIssues,
			want: func(q *CustomQuery) { q.Labels = []string{"bug", "backend", "needs review", "p1"} },
		},
		{
			name: "space after colon",
			text: "milestone: Release 15.0 title: Dark mode",
			typ:  QueryTypeMergeRequests,
			want: func(q *CustomQuery) {
				q.Milestone = "Release 15.0"
				q.Search = "Dark mode"
			},
		},
		{
			name: "author me",
			text: "author:me",
			typ:  QueryTypeMergeRequests,
			want: func(q *CustomQuery) { q.Scope = QueryScopeCreatedByMe },
		},
		{
			name: "assignee me",
			text: "assignee:me label:bug",
			typ:  QueryTypeIssues,
			want: func(q *CustomQuery) {
				q.Scope = QueryScopeAssignedToMe
				q.Labels = []string{"bug"}
			},
		},
		{
			name: "named users",
			text: "author:alice assignee:bob",
			typ:  QueryTypeMergeRequests,
			want: func(q *CustomQuery) {
				q.Author = "alice"
				q.Assignee = "bob"
			},
		},
		{
			name: "free text before tokens",
			text: "flaky test state:closed",
			typ:  QueryTypeIssues,
			want: func(q *CustomQuery) {
				q.Search = "flaky test"
				q.State = QueryStateClosed
			},
		},
		{
			name: "later title wins",
			text: "title:one title:two",
			typ:  QueryTypeIssues,
			want: func(q *CustomQuery) { q.Search = "two" },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want, err := CustomQuery{Name: "Search", Type: tc.typ}.Normalize()
			require.NoError(t, err)
			tc.want(&want)

			got, err := ParseSearchText(tc.text, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseSearchText_Rejects(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"label:",
		"weight:3",
		"state:merged-ish",
	} {
		_, err := ParseSearchText(text, QueryTypeIssues)
		assert.ErrorIs(t, err, ErrInvalidQuery, text)
	}
}
