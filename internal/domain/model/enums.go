package model

// IssuableKind identifies the GitLab resource an Issuable was loaded from.
type IssuableKind string

const (
	IssuableKindIssue         IssuableKind = "issue"
	IssuableKindMergeRequest  IssuableKind = "merge_request"
	IssuableKindEpic          IssuableKind = "epic"
	IssuableKindSnippet       IssuableKind = "snippet"
	IssuableKindVulnerability IssuableKind = "vulnerability"
)

// ParseIssuableKind validates a kind string received at an adapter boundary.
func ParseIssuableKind(s string) (IssuableKind, bool) {
	switch k := IssuableKind(s); k {
	case IssuableKindIssue, IssuableKindMergeRequest, IssuableKindEpic,
		IssuableKindSnippet, IssuableKindVulnerability:
		return k, true
	}
	return "", false
}

// ChangeType classifies how a file changed within a merge request version.
type ChangeType string

const (
	ChangeTypeAdded    ChangeType = "added"
	ChangeTypeDeleted  ChangeType = "deleted"
	ChangeTypeRenamed  ChangeType = "renamed"
	ChangeTypeModified ChangeType = "modified"
)

// DiffSide selects which revision of a changed file is requested.
type DiffSide string

const (
	DiffSideBase DiffSide = "base" // Old revision at the version's base commit.
	DiffSideHead DiffSide = "head" // New revision at the version's head commit.
)

// ParseDiffSide validates a side string received at an adapter boundary.
func ParseDiffSide(s string) (DiffSide, bool) {
	switch d := DiffSide(s); d {
	case DiffSideBase, DiffSideHead:
		return d, true
	}
	return "", false
}

// AnchorKind classifies a discussion by where it is attached.
type AnchorKind string

const (
	AnchorTextDiff AnchorKind = "text_diff" // Attached to a line of a text diff.
	AnchorGeneral  AnchorKind = "general"   // Overview discussion or non-text position.
)

// CommentState is the per-comment lifecycle state inside a comment thread.
type CommentState string

const (
	CommentStateSynced      CommentState = "synced"
	CommentStateEditing     CommentState = "editing"
	CommentStateResolving   CommentState = "resolving"
	CommentStateUnresolving CommentState = "unresolving"
)

// PipelineAction is an operation a user can trigger on the branch pipeline.
type PipelineAction string

const (
	PipelineActionCreate PipelineAction = "create"
	PipelineActionRetry  PipelineAction = "retry"
	PipelineActionCancel PipelineAction = "cancel"
)

// ParsePipelineAction validates an action string received at an adapter boundary.
func ParsePipelineAction(s string) (PipelineAction, bool) {
	switch a := PipelineAction(s); a {
	case PipelineActionCreate, PipelineActionRetry, PipelineActionCancel:
		return a, true
	}
	return "", false
}
