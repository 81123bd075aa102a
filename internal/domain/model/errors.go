package model

import "errors"

var (
	// ErrStaleEdit is returned when a comment changed remotely after the edit began.
	ErrStaleEdit = errors.New("this comment changed after you last viewed it, and can't be edited")

	// ErrUnsupportedContent is returned for files that cannot be diffed as text.
	ErrUnsupportedContent = errors.New("images are not supported")

	// ErrSessionDisposed is returned by operations on a closed review session.
	ErrSessionDisposed = errors.New("review session disposed")

	// ErrNotEditing is returned when submitting or cancelling a comment that is not being edited.
	ErrNotEditing = errors.New("comment is not being edited")

	// ErrCommentBusy is returned when a comment is mid-transition and cannot start another.
	ErrCommentBusy = errors.New("comment has an operation in progress")

	// ErrCommentNotFound is returned for note ids that are not part of a thread.
	ErrCommentNotFound = errors.New("comment not found in thread")

	// ErrNotMergeRequest is returned for version operations on non-MR issuables.
	ErrNotMergeRequest = errors.New("issuable is not a merge request")

	// ErrUnsupportedKind is returned when a review session is opened for
	// anything but an issue or merge request.
	ErrUnsupportedKind = errors.New("only issues and merge requests can be reviewed")

	// ErrInvalidQuery is returned by CustomQuery validation.
	ErrInvalidQuery = errors.New("invalid custom query")

	// ErrInvalidSnippet is returned for snippets that cannot be created.
	ErrInvalidSnippet = errors.New("invalid snippet")

	// ErrNoPatchSnippets is returned when a project has no snippet with a
	// .patch file.
	ErrNoPatchSnippets = errors.New("there are no patch snippets (a patch snippet must contain a file whose name ends with \".patch\")")

	// ErrPatchDoesNotApply is returned when a patch conflicts with the working copy.
	ErrPatchDoesNotApply = errors.New("patch does not apply")
)
