package model

// BranchStatus summarizes the current branch of a workspace. Each segment
// degrades on its own: a segment error leaves the other segments populated.
type BranchStatus struct {
	Branch string

	Pipeline    *Pipeline
	Jobs        []Job
	PipelineErr error

	MergeRequest    *Issuable
	MergeRequestErr error

	ClosingIssues    []Issuable
	ClosingIssuesErr error
}
