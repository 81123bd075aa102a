package gitlab

import (
	"context"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

const labelEventsPageSize = 100

// ListDiscussions returns one page of discussions for an issue or merge request.
func (c *Client) ListDiscussions(ctx context.Context, issuable model.Issuable, page, perPage int) (driven.DiscussionPage, error) {
	var (
		discussions []*gl.Discussion
		resp        *gl.Response
		err         error
	)

	if issuable.IsMergeRequest() {
		discussions, resp, err = c.gl.Discussions.ListMergeRequestDiscussions(issuable.ProjectID, issuable.IID,
			&gl.ListMergeRequestDiscussionsOptions{Page: page, PerPage: perPage}, ctxOpt(ctx))
	} else {
		discussions, resp, err = c.gl.Discussions.ListIssueDiscussions(issuable.ProjectID, issuable.IID,
			&gl.ListIssueDiscussionsOptions{Page: page, PerPage: perPage}, ctxOpt(ctx))
	}
	logRateLimit(resp, "discussions")
	if err != nil {
		return driven.DiscussionPage{}, wrapError(fmt.Sprintf("listing discussions of %s (page %d)", ref(issuable), page), resp, err)
	}

	out := driven.DiscussionPage{
		Discussions: make([]model.Discussion, 0, len(discussions)),
		TotalPages:  resp.TotalPages,
		NextPage:    resp.NextPage,
	}
	for _, d := range discussions {
		if d == nil {
			continue
		}
		out.Discussions = append(out.Discussions, mapDiscussion(d))
	}
	return out, nil
}

// ListLabelEvents returns all label events of an issue or merge request in ascending order.
func (c *Client) ListLabelEvents(ctx context.Context, issuable model.Issuable) ([]model.LabelEvent, error) {
	opts := &gl.ListLabelEventsOptions{ListOptions: gl.ListOptions{PerPage: labelEventsPageSize}}

	var all []model.LabelEvent
	for {
		var (
			events []*gl.LabelEvent
			resp   *gl.Response
			err    error
		)
		if issuable.IsMergeRequest() {
			events, resp, err = c.gl.ResourceLabelEvents.ListMergeRequestsLabelEvents(issuable.ProjectID, issuable.IID, opts, ctxOpt(ctx))
		} else {
			events, resp, err = c.gl.ResourceLabelEvents.ListIssueLabelEvents(issuable.ProjectID, issuable.IID, opts, ctxOpt(ctx))
		}
		logRateLimit(resp, "resource_label_events")
		if err != nil {
			return nil, wrapError(fmt.Sprintf("listing label events of %s (page %d)", ref(issuable), opts.Page), resp, err)
		}

		for _, e := range events {
			if e == nil {
				continue
			}
			all = append(all, mapLabelEvent(e))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if all == nil {
		all = []model.LabelEvent{}
	}
	return all, nil
}

// GetNote re-reads a single note so callers can compare it with what they last saw.
func (c *Client) GetNote(ctx context.Context, issuable model.Issuable, noteID int) (*model.Note, error) {
	var (
		note *gl.Note
		resp *gl.Response
		err  error
	)
	if issuable.IsMergeRequest() {
		note, resp, err = c.gl.Notes.GetMergeRequestNote(issuable.ProjectID, issuable.IID, noteID, ctxOpt(ctx))
	} else {
		note, resp, err = c.gl.Notes.GetIssueNote(issuable.ProjectID, issuable.IID, noteID, ctxOpt(ctx))
	}
	logRateLimit(resp, "note")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("getting note %d of %s", noteID, ref(issuable)), resp, err)
	}

	n := mapNote(note)
	return &n, nil
}

// ref renders an issuable reference for error messages.
func ref(issuable model.Issuable) string {
	if issuable.IsMergeRequest() {
		return fmt.Sprintf("%d!%d", issuable.ProjectID, issuable.IID)
	}
	return fmt.Sprintf("%d#%d", issuable.ProjectID, issuable.IID)
}
