package gitlab

import (
	"context"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// CreateDiscussion starts a discussion on an issuable. For merge requests a
// non-nil pos anchors the discussion to a diff line.
func (c *Client) CreateDiscussion(ctx context.Context, issuable model.Issuable, body string, pos *model.Position) (*model.Discussion, error) {
	var (
		d    *gl.Discussion
		resp *gl.Response
		err  error
	)

	if issuable.IsMergeRequest() {
		opts := &gl.CreateMergeRequestDiscussionOptions{Body: gl.Ptr(body)}
		if pos != nil {
			opts.Position = positionOptions(*pos)
		}
		d, resp, err = c.gl.Discussions.CreateMergeRequestDiscussion(issuable.ProjectID, issuable.IID, opts, ctxOpt(ctx))
	} else {
		if pos != nil {
			return nil, fmt.Errorf("creating positioned discussion on %s: %w", ref(issuable), model.ErrNotMergeRequest)
		}
		d, resp, err = c.gl.Discussions.CreateIssueDiscussion(issuable.ProjectID, issuable.IID,
			&gl.CreateIssueDiscussionOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	}
	logRateLimit(resp, "create_discussion")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("creating discussion on %s", ref(issuable)), resp, err)
	}

	out := mapDiscussion(d)
	return &out, nil
}

// AddNote posts a general note on the issuable.
func (c *Client) AddNote(ctx context.Context, issuable model.Issuable, body string) (*model.Note, error) {
	var (
		n    *gl.Note
		resp *gl.Response
		err  error
	)
	if issuable.IsMergeRequest() {
		n, resp, err = c.gl.Notes.CreateMergeRequestNote(issuable.ProjectID, issuable.IID,
			&gl.CreateMergeRequestNoteOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	} else {
		n, resp, err = c.gl.Notes.CreateIssueNote(issuable.ProjectID, issuable.IID,
			&gl.CreateIssueNoteOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	}
	logRateLimit(resp, "create_note")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("adding note to %s", ref(issuable)), resp, err)
	}

	out := mapNote(n)
	return &out, nil
}

// Reply adds a note to an existing discussion.
func (c *Client) Reply(ctx context.Context, issuable model.Issuable, discussionID, body string) (*model.Note, error) {
	var (
		n    *gl.Note
		resp *gl.Response
		err  error
	)
	if issuable.IsMergeRequest() {
		n, resp, err = c.gl.Discussions.AddMergeRequestDiscussionNote(issuable.ProjectID, issuable.IID, discussionID,
			&gl.AddMergeRequestDiscussionNoteOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	} else {
		n, resp, err = c.gl.Discussions.AddIssueDiscussionNote(issuable.ProjectID, issuable.IID, discussionID,
			&gl.AddIssueDiscussionNoteOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	}
	logRateLimit(resp, "reply")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("replying to discussion %s on %s", discussionID, ref(issuable)), resp, err)
	}

	out := mapNote(n)
	return &out, nil
}

// UpdateNote replaces the body of a note.
func (c *Client) UpdateNote(ctx context.Context, issuable model.Issuable, discussionID string, noteID int, body string) (*model.Note, error) {
	var (
		n    *gl.Note
		resp *gl.Response
		err  error
	)
	if issuable.IsMergeRequest() {
		n, resp, err = c.gl.Discussions.UpdateMergeRequestDiscussionNote(issuable.ProjectID, issuable.IID, discussionID, noteID,
			&gl.UpdateMergeRequestDiscussionNoteOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	} else {
		n, resp, err = c.gl.Discussions.UpdateIssueDiscussionNote(issuable.ProjectID, issuable.IID, discussionID, noteID,
			&gl.UpdateIssueDiscussionNoteOptions{Body: gl.Ptr(body)}, ctxOpt(ctx))
	}
	logRateLimit(resp, "update_note")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("updating note %d on %s", noteID, ref(issuable)), resp, err)
	}

	out := mapNote(n)
	return &out, nil
}

// DeleteNote removes a note from a discussion.
func (c *Client) DeleteNote(ctx context.Context, issuable model.Issuable, discussionID string, noteID int) error {
	var (
		resp *gl.Response
		err  error
	)
	if issuable.IsMergeRequest() {
		resp, err = c.gl.Discussions.DeleteMergeRequestDiscussionNote(issuable.ProjectID, issuable.IID, discussionID, noteID, ctxOpt(ctx))
	} else {
		resp, err = c.gl.Discussions.DeleteIssueDiscussionNote(issuable.ProjectID, issuable.IID, discussionID, noteID, ctxOpt(ctx))
	}
	logRateLimit(resp, "delete_note")
	return wrapError(fmt.Sprintf("deleting note %d on %s", noteID, ref(issuable)), resp, err)
}

// SetResolved resolves or unresolves a merge request discussion. Issue
// discussions cannot be resolved.
func (c *Client) SetResolved(ctx context.Context, issuable model.Issuable, discussionID string, resolved bool) (*model.Discussion, error) {
	if !issuable.IsMergeRequest() {
		return nil, fmt.Errorf("resolving discussion %s on %s: %w", discussionID, ref(issuable), model.ErrNotMergeRequest)
	}

	d, resp, err := c.gl.Discussions.ResolveMergeRequestDiscussion(issuable.ProjectID, issuable.IID, discussionID,
		&gl.ResolveMergeRequestDiscussionOptions{Resolved: gl.Ptr(resolved)}, ctxOpt(ctx))
	logRateLimit(resp, "resolve_discussion")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("setting resolved=%t on discussion %s", resolved, discussionID), resp, err)
	}

	out := mapDiscussion(d)
	return &out, nil
}

func positionOptions(p model.Position) *gl.PositionOptions {
	opts := &gl.PositionOptions{
		BaseSHA:      gl.Ptr(p.BaseSHA),
		HeadSHA:      gl.Ptr(p.HeadSHA),
		StartSHA:     gl.Ptr(p.StartSHA),
		PositionType: gl.Ptr(p.PositionType),
		OldPath:      gl.Ptr(p.OldPath),
		NewPath:      gl.Ptr(p.NewPath),
	}
	if p.OldLine > 0 {
		opts.OldLine = gl.Ptr(p.OldLine)
	}
	if p.NewLine > 0 {
		opts.NewLine = gl.Ptr(p.NewLine)
	}
	return opts
}
