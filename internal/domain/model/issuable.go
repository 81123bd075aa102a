package model

import "time"

// Issuable is an issue, merge request, epic, snippet or vulnerability as
// shown in the review panel. Identity is (ProjectID, IID).
type Issuable struct {
	ID           int
	IID          int
	ProjectID    int
	Title        string
	Description  string
	WebURL       string
	State        string
	Author       string
	SHA          string // Head SHA; empty for anything but merge requests.
	SourceBranch string
	References   string // Full reference, e.g. "group/project!12".
	Kind         IssuableKind
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsMergeRequest reports whether the issuable is a merge request.
func (i Issuable) IsMergeRequest() bool {
	return i.Kind == IssuableKindMergeRequest
}

// SameAs reports whether both values identify the same remote issuable.
func (i Issuable) SameAs(other Issuable) bool {
	return i.ProjectID == other.ProjectID && i.IID == other.IID && i.Kind == other.Kind
}
