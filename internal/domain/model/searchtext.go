package model

import (
	"fmt"
	"regexp"
	"strings"
)

// searchToken finds the start of each "key:" token after the first.
var searchToken = regexp.MustCompile(`(?i)\s[a-z_]*:`)

// ParseSearchText turns a free-text search such as
//
//	label:bug milestone:15.0 author:me crash on save
//
// into a custom query of type typ. Text without any token searches titles and
// descriptions. Recognized tokens are label, labels (comma separated), title,
// milestone, author, assignee, state and scope; "me" as author or assignee
// selects the created_by_me or assigned_to_me scope. Later tokens override
// earlier ones, except labels, which accumulate.
func ParseSearchText(text string, typ QueryType) (CustomQuery, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ": ", ":"))
	if text == "" {
		return CustomQuery{}, fmt.Errorf("%w: search text is empty", ErrInvalidQuery)
	}

	q := CustomQuery{Name: "Search", Type: typ}

	var segments []string
	prev := 0
	for _, loc := range searchToken.FindAllStringIndex(text, -1) {
		segments = append(segments, text[prev:loc[0]])
		prev = loc[0]
	}
	segments = append(segments, text[prev:])

	if len(segments) == 1 && !strings.Contains(text, ":") {
		q.Search = text
		return q.Normalize()
	}

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		key, value, ok := strings.Cut(seg, ":")
		if !ok {
			// Free text before the first token.
			q.Search = seg
			continue
		}
		key = strings.ToLower(key)
		value = strings.TrimSpace(value)
		if value == "" {
			return CustomQuery{}, fmt.Errorf("%w: %s: has no value", ErrInvalidQuery, key)
		}

		switch key {
		case "label":
			q.Labels = append(q.Labels, value)
		case "labels":
			for _, l := range strings.Split(value, ",") {
				if l = strings.TrimSpace(l); l != "" {
					q.Labels = append(q.Labels, l)
				}
			}
		case "title":
			q.Search = value
		case "milestone":
			q.Milestone = value
		case "author":
			if value == "me" {
				q.Author, q.Scope = "", QueryScopeCreatedByMe
			} else {
				q.Author = value
			}
		case "assignee":
			if value == "me" {
				q.Assignee, q.Scope = "", QueryScopeAssignedToMe
			} else {
				q.Assignee = value
			}
		case "state":
			q.State = QueryState(value)
		case "scope":
			q.Scope = QueryScope(value)
		default:
			return CustomQuery{}, fmt.Errorf("%w: unknown search token %q", ErrInvalidQuery, key)
		}
	}
	return q.Normalize()
}
